// Package telemetry ships completed report traces to the Datadog logs
// intake. Failures never affect the report response.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wallet-recon/internal/domain"
)

// Client posts structured log events to the Datadog HTTP intake.
type Client struct {
	apiKey  string
	service string
	env     string
	version string
	baseURL string
	client  *http.Client
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the intake URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// NewClient creates a log shipping client. An empty apiKey disables it.
func NewClient(apiKey, service, env, version, site string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		service: service,
		env:     env,
		version: version,
		baseURL: fmt.Sprintf("https://http-intake.logs.%s", site),
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the client has an API key to ship with.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// SendWalletTraceLog posts one completed-report event.
func (c *Client) SendWalletTraceLog(ctx context.Context, wallet string, trace []domain.TraceStep, metrics *domain.WalletMetrics, socialCount int) error {
	if !c.Enabled() {
		return nil
	}

	event := map[string]interface{}{
		"ddsource":       "go",
		"service":        c.service,
		"ddtags":         fmt.Sprintf("env:%s,version:%s", c.env, c.version),
		"hostname":       c.service,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"message":        "wallet_report_completed",
		"wallet":         wallet,
		"trace":          trace,
		"metrics":        metrics,
		"social_results": socialCount,
	}
	body, err := json.Marshal([]interface{}{event})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/logs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("intake request: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("intake status %d", resp.StatusCode)
	}
	return nil
}
