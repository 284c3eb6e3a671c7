// Package social provides a best-effort X mention search over the wallet
// addresses surfaced by a report.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wallet-recon/internal/domain"
)

const defaultBaseURL = "https://api.x.com"

// maxQueryTerms bounds the OR-joined search query.
const maxQueryTerms = 5

// Client searches recent X posts mentioning wallet addresses.
type Client struct {
	bearerToken string
	baseURL     string
	client      *http.Client
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a search client with the given bearer token.
func NewClient(bearerToken string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		bearerToken: strings.TrimSpace(bearerToken),
		baseURL:     defaultBaseURL,
		client:      &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchPayload struct {
	Data []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		AuthorID  string `json:"author_id"`
		CreatedAt string `json:"created_at"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Name     string `json:"name"`
		} `json:"users"`
	} `json:"includes"`
}

// SearchMentions queries recent posts matching any of the given terms.
// At most maxQueryTerms terms are used, each exact-quoted.
func (c *Client) SearchMentions(ctx context.Context, terms []string, maxResults int) (*domain.SocialIntel, error) {
	used := make([]string, 0, maxQueryTerms)
	for _, t := range terms {
		if t == "" {
			continue
		}
		used = append(used, t)
		if len(used) == maxQueryTerms {
			break
		}
	}
	if len(used) == 0 {
		return &domain.SocialIntel{QueryTerms: []string{}, Mentions: []domain.SocialMention{}}, nil
	}

	quoted := make([]string, len(used))
	for i, t := range used {
		quoted[i] = fmt.Sprintf("%q", t)
	}

	params := url.Values{}
	params.Set("query", strings.Join(quoted, " OR "))
	params.Set("max_results", strconv.Itoa(clamp(maxResults, 10, 100)))
	params.Set("tweet.fields", "created_at,author_id")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "username,name")

	endpoint := c.baseURL + "/2/tweets/search/recent?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search status %d", resp.StatusCode)
	}

	var payload searchPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	userByID := make(map[string]struct{ username, name string }, len(payload.Includes.Users))
	for _, u := range payload.Includes.Users {
		if u.ID != "" {
			userByID[u.ID] = struct{ username, name string }{u.Username, u.Name}
		}
	}

	mentions := make([]domain.SocialMention, 0, maxResults)
	for _, tweet := range payload.Data {
		if len(mentions) == maxResults {
			break
		}
		user := userByID[tweet.AuthorID]
		m := domain.SocialMention{
			Username:  user.username,
			Name:      user.name,
			Text:      tweet.Text,
			CreatedAt: tweet.CreatedAt,
		}
		if user.username != "" {
			m.URL = fmt.Sprintf("https://x.com/%s/status/%s", user.username, tweet.ID)
		}
		mentions = append(mentions, m)
	}

	return &domain.SocialIntel{
		QueryTerms:   used,
		TotalResults: len(mentions),
		Mentions:     mentions,
	}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
