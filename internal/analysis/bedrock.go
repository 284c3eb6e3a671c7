// Package analysis turns a finished wallet report into a narrative
// assessment through a Bedrock-hosted model.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wallet-recon/internal/domain"
)

const systemPrompt = "You are a Solana wallet intelligence analyst. " +
	"Given wallet metrics, linkage intelligence, and optional social context, infer behavior, risk profile, and actionable conclusions. " +
	"Be concise, specific, and avoid hallucinating unavailable data. " +
	"When mentioning timing/recency, use exact values from intelligence.first_seen_at and intelligence.last_seen_at; do not invent dates or years. " +
	"Use sections: Summary, Wallet Graph, Behavior, Risk Flags, Actionable Next Steps."

var promptInstructions = []string{
	"Infer likely strategy type (sniper, swing, passive, etc.)",
	"Assess whether this wallet is worth monitoring for alpha signals",
	"Call out likely funder ties and notable linked wallets from the data only",
	"If social data exists, summarize signal quality and potential identity clues",
	"List 2-4 concrete next checks a trader should run",
	"If you mention wallet age or recency, cite first_seen_at/last_seen_at directly from the input data",
}

// Client invokes a Bedrock model over the bearer-token REST endpoint.
type Client struct {
	modelID string
	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the Bedrock runtime endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// NewClient creates an analysis client for the given region and model.
func NewClient(region, modelID, apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		modelID: modelID,
		apiKey:  apiKey,
		baseURL: fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region),
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	System           string    `json:"system"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type invokeResponse struct {
	Content []contentBlock `json:"content"`
}

// AnalyzeWallet feeds the report structures to the model and returns the
// narrative analysis together with the model id used.
func (c *Client) AnalyzeWallet(ctx context.Context, wallet string, metrics *domain.WalletMetrics, intel *domain.WalletIntelligence, social *domain.SocialIntel) (string, string, error) {
	userPrompt, err := json.Marshal(map[string]interface{}{
		"wallet":       wallet,
		"metrics":      metrics,
		"intelligence": intel,
		"social":       social,
		"instructions": promptInstructions,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal prompt: %w", err)
	}

	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        700,
		Temperature:      0.2,
		System:           systemPrompt,
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: string(userPrompt)}},
		}},
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/model/%s/invoke", c.baseURL, c.modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("invoke request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", "", fmt.Errorf("invoke status %d: %s", resp.StatusCode, string(detail))
	}

	var payload invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("decode response: %w", err)
	}

	var sb strings.Builder
	for _, block := range payload.Content {
		sb.WriteString(block.Text)
	}
	return strings.TrimSpace(sb.String()), c.modelID, nil
}
