package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second

	// maxAttempts bounds every logical RPC call, single or batched.
	maxAttempts = 4

	// batchSize is the number of getTransaction calls packed into one
	// batched request.
	batchSize = 12

	defaultRateLimitBackoff      = 600 * time.Millisecond
	defaultTransportBackoff      = 400 * time.Millisecond
	defaultBatchRateLimitBackoff = 700 * time.Millisecond
	defaultBatchTransportBackoff = 500 * time.Millisecond
	defaultSequentialDelay       = 80 * time.Millisecond
)

// batchUnsupportedStatus lists HTTP statuses some providers return when they
// reject JSON-RPC batch payloads outright. Seeing one switches the client to
// sequential fetching for the rest of its lifetime.
var batchUnsupportedStatus = map[int]bool{
	http.StatusUnauthorized:         true,
	http.StatusForbidden:            true,
	http.StatusMethodNotAllowed:     true,
	http.StatusUnsupportedMediaType: true,
}

// Client implements RPC over HTTP JSON-RPC 2.0.
type Client struct {
	endpoint string
	client   *http.Client

	rateLimitBackoff      time.Duration
	transportBackoff      time.Duration
	batchRateLimitBackoff time.Duration
	batchTransportBackoff time.Duration
	sequentialDelay       time.Duration

	onCall          func(method string, d time.Duration)
	onBatchFallback func()

	batchUnsupported atomic.Bool
	requestID        atomic.Uint64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithBackoff overrides the per-attempt backoff bases for both single and
// batched calls. Tests use this to keep retries fast.
func WithBackoff(rateLimit, transport time.Duration) ClientOption {
	return func(c *Client) {
		c.rateLimitBackoff = rateLimit
		c.transportBackoff = transport
		c.batchRateLimitBackoff = rateLimit
		c.batchTransportBackoff = transport
	}
}

// WithSequentialDelay sets the inter-call pause used by the sequential
// fallback path.
func WithSequentialDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.sequentialDelay = d
	}
}

// WithCallObserver registers a hook invoked with the method name and total
// duration of every finished logical call, retries included.
func WithCallObserver(fn func(method string, d time.Duration)) ClientOption {
	return func(c *Client) {
		c.onCall = fn
	}
}

// WithBatchFallbackHook registers a hook invoked once when the client
// switches to sequential fetching.
func WithBatchFallbackHook(fn func()) ClientOption {
	return func(c *Client) {
		c.onBatchFallback = fn
	}
}

// NewClient creates a new Solana RPC HTTP client.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:              endpoint,
		client:                &http.Client{Timeout: DefaultTimeout},
		rateLimitBackoff:      defaultRateLimitBackoff,
		transportBackoff:      defaultTransportBackoff,
		batchRateLimitBackoff: defaultBatchRateLimitBackoff,
		batchTransportBackoff: defaultBatchTransportBackoff,
		sequentialDelay:       defaultSequentialDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcErrorBody   `json:"error,omitempty"`
}

// rpcErrorBody is the error payload of a JSON-RPC 2.0 response.
type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func transactionOpts() map[string]interface{} {
	return map[string]interface{}{
		"encoding":                       "jsonParsed",
		"maxSupportedTransactionVersion": 0,
	}
}

// post issues one HTTP POST. A non-nil error means a transport-level
// failure; otherwise the status code and body are returned for the caller
// to classify.
func (c *Client) post(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// call performs a single JSON-RPC call through the bounded retry policy:
// up to maxAttempts attempts, linear backoff scaled by attempt number,
// rate-limit and transport failures retried, protocol errors never.
func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if c.onCall != nil {
		started := time.Now()
		defer func() { c.onCall(method, time.Since(started)) }()
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, respBody, err := c.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if attempt == maxAttempts {
				break
			}
			if err := sleepCtx(ctx, time.Duration(attempt)*c.transportBackoff); err != nil {
				return err
			}
			continue
		}

		if status == http.StatusTooManyRequests {
			if attempt == maxAttempts {
				return &RateLimitError{Attempts: attempt}
			}
			if err := sleepCtx(ctx, time.Duration(attempt)*c.rateLimitBackoff); err != nil {
				return err
			}
			continue
		}
		if status != http.StatusOK {
			return &RPCError{Message: fmt.Sprintf("unexpected HTTP status %d", status)}
		}

		var resp rpcResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			if attempt == maxAttempts {
				break
			}
			if err := sleepCtx(ctx, time.Duration(attempt)*c.transportBackoff); err != nil {
				return err
			}
			continue
		}
		if resp.Error != nil {
			return &RPCError{Code: resp.Error.Code, Message: resp.Error.Message}
		}
		if result != nil && len(resp.Result) > 0 && !bytes.Equal(resp.Result, []byte("null")) {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return &RPCError{Message: "unmarshal result", Err: err}
			}
		}
		return nil
	}

	return &RPCError{
		Message: fmt.Sprintf("transport failed after %d attempts", maxAttempts),
		Err:     lastErr,
	}
}

// GetSignaturesForAddress retrieves recent signatures for an address.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	params := []interface{}{address}
	if limit > 0 {
		params = append(params, map[string]interface{}{"limit": limit})
	}

	var result []SignatureInfo
	if err := c.call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransaction retrieves one transaction by signature in jsonParsed
// encoding. Returns nil without error when the node no longer has it.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*TransactionResult, error) {
	var result *TransactionResult
	params := []interface{}{signature, transactionOpts()}
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransactions retrieves transactions for the given signatures in fixed
// size groups, one batched request per group. Once a provider rejects a
// batch payload the client stays on the sequential path.
func (c *Client) GetTransactions(ctx context.Context, signatures []string) (map[string]*TransactionResult, error) {
	results := make(map[string]*TransactionResult, len(signatures))
	for start := 0; start < len(signatures); start += batchSize {
		chunk := signatures[start:min(start+batchSize, len(signatures))]

		if c.batchUnsupported.Load() {
			if err := c.fetchSequential(ctx, chunk, results); err != nil {
				return nil, err
			}
			continue
		}
		if err := c.fetchBatch(ctx, chunk, results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// fetchBatch issues one batched getTransaction request for the chunk and
// records each result keyed by signature. Responses align positionally with
// the request array; a null result marks the transaction as unavailable.
func (c *Client) fetchBatch(ctx context.Context, chunk []string, results map[string]*TransactionResult) error {
	if c.onCall != nil {
		started := time.Now()
		defer func() { c.onCall("getTransactionBatch", time.Since(started)) }()
	}

	reqs := make([]rpcRequest, len(chunk))
	for i, sig := range chunk {
		reqs[i] = rpcRequest{
			JSONRPC: "2.0",
			ID:      uint64(i + 1),
			Method:  "getTransaction",
			Params:  []interface{}{sig, transactionOpts()},
		}
	}
	body, err := json.Marshal(reqs)
	if err != nil {
		return fmt.Errorf("marshal batch request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, respBody, err := c.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if attempt == maxAttempts {
				break
			}
			if err := sleepCtx(ctx, time.Duration(attempt)*c.batchTransportBackoff); err != nil {
				return err
			}
			continue
		}

		switch {
		case status == http.StatusOK:
			// fall through to decode
		case status == http.StatusTooManyRequests:
			if attempt == maxAttempts {
				return &RateLimitError{Attempts: attempt}
			}
			if err := sleepCtx(ctx, time.Duration(attempt)*c.batchRateLimitBackoff); err != nil {
				return err
			}
			continue
		case batchUnsupportedStatus[status]:
			c.batchUnsupported.Store(true)
			if c.onBatchFallback != nil {
				c.onBatchFallback()
			}
			return c.fetchSequential(ctx, chunk, results)
		default:
			return &RPCError{Message: fmt.Sprintf("unexpected HTTP status %d", status)}
		}

		var items []rpcResponse
		if err := json.Unmarshal(respBody, &items); err != nil {
			return &RPCError{Message: "unexpected batch response format", Err: err}
		}
		for _, sig := range chunk {
			results[sig] = nil
		}
		for i, item := range items {
			if i >= len(chunk) {
				break
			}
			if item.Error != nil {
				return &RPCError{Code: item.Error.Code, Message: item.Error.Message}
			}
			if len(item.Result) == 0 || bytes.Equal(item.Result, []byte("null")) {
				continue
			}
			var tx TransactionResult
			if err := json.Unmarshal(item.Result, &tx); err != nil {
				return &RPCError{Message: "unmarshal batch result", Err: err}
			}
			results[chunk[i]] = &tx
		}
		return nil
	}

	return &RPCError{
		Message: fmt.Sprintf("batch request failed after %d attempts", maxAttempts),
		Err:     lastErr,
	}
}

// fetchSequential retrieves the chunk one signature at a time through the
// single-call retry policy, pacing calls so the fallback itself does not
// trip rate limits.
func (c *Client) fetchSequential(ctx context.Context, chunk []string, results map[string]*TransactionResult) error {
	for i, sig := range chunk {
		if i > 0 {
			if err := sleepCtx(ctx, c.sequentialDelay); err != nil {
				return err
			}
		}
		tx, err := c.GetTransaction(ctx, sig)
		if err != nil {
			return err
		}
		results[sig] = tx
	}
	return nil
}
