package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient(endpoint string) *Client {
	return NewClient(endpoint,
		WithBackoff(time.Millisecond, time.Millisecond),
		WithSequentialDelay(time.Millisecond),
	)
}

func txResultJSON(fee uint64, accountKeys []string) map[string]interface{} {
	keys := make([]interface{}, len(accountKeys))
	for i, k := range accountKeys {
		keys[i] = k
	}
	return map[string]interface{}{
		"slot":      int64(1000),
		"blockTime": int64(1700000000),
		"meta":      map[string]interface{}{"fee": fee},
		"transaction": map[string]interface{}{
			"message": map[string]interface{}{
				"accountKeys":  keys,
				"instructions": []interface{}{},
			},
		},
	}
}

func TestClient_GetSignaturesForAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "getSignaturesForAddress" {
			t.Errorf("expected method getSignaturesForAddress, got %s", req.Method)
		}
		if len(req.Params) != 2 {
			t.Errorf("expected 2 params, got %d", len(req.Params))
		}

		blockTime := int64(1700000000)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{"signature": "sig1", "slot": int64(100), "blockTime": blockTime},
				{"signature": "sig2", "slot": int64(101), "blockTime": nil},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	sigs, err := client.GetSignaturesForAddress(context.Background(), "testaddr", 10)
	if err != nil {
		t.Fatalf("GetSignaturesForAddress: %v", err)
	}

	if len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(sigs))
	}
	if sigs[0].Signature != "sig1" {
		t.Errorf("expected sig1, got %s", sigs[0].Signature)
	}
	if sigs[0].BlockTime == nil || *sigs[0].BlockTime != 1700000000 {
		t.Errorf("expected blockTime 1700000000")
	}
	if sigs[1].BlockTime != nil {
		t.Errorf("expected nil blockTime for sig2")
	}
}

func TestClient_GetTransaction_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  nil,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "pruned")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx != nil {
		t.Errorf("expected nil for missing transaction, got %+v", tx)
	}
}

func TestClient_RateLimitExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	_, err := client.GetSignaturesForAddress(context.Background(), "testaddr", 10)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var rateLimit *RateLimitError
	if !errors.As(err, &rateLimit) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rateLimit.Attempts != 4 {
		t.Errorf("expected 4 attempts in error, got %d", rateLimit.Attempts)
	}
	if attempts.Load() != 4 {
		t.Errorf("expected exactly 4 attempts, got %d", attempts.Load())
	}
}

func TestClient_RateLimitRecovers(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  []map[string]interface{}{{"signature": "sig1", "slot": int64(1)}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	sigs, err := client.GetSignaturesForAddress(context.Background(), "testaddr", 10)
	if err != nil {
		t.Fatalf("GetSignaturesForAddress: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signature, got %d", len(sigs))
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestClient_ProtocolErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32602, "message": "Invalid params"},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	_, err := client.GetSignaturesForAddress(context.Background(), "testaddr", 10)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != -32602 {
		t.Errorf("expected code -32602, got %d", rpcErr.Code)
	}
	if attempts.Load() != 1 {
		t.Errorf("protocol errors must not be retried, got %d attempts", attempts.Load())
	}
}

func TestClient_GetTransactions_Batch(t *testing.T) {
	var batchRequests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqs []rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			t.Fatalf("decode batch request: %v", err)
		}
		batchRequests.Add(1)

		items := make([]map[string]interface{}, len(reqs))
		for i, req := range reqs {
			if req.Method != "getTransaction" {
				t.Errorf("expected method getTransaction, got %s", req.Method)
			}
			sig := req.Params[0].(string)
			var result interface{}
			if sig != "missing" {
				result = txResultJSON(5000, []string{"wallet", "other"})
			}
			items[i] = map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(items)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	sigs := []string{"sig1", "missing", "sig3"}
	results, err := client.GetTransactions(context.Background(), sigs)
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(results))
	}
	if results["sig1"] == nil || results["sig1"].Meta.Fee != 5000 {
		t.Errorf("expected sig1 with fee 5000, got %+v", results["sig1"])
	}
	if results["missing"] != nil {
		t.Errorf("expected nil for missing transaction")
	}
	if batchRequests.Load() != 1 {
		t.Errorf("expected 1 batched request for 3 signatures, got %d", batchRequests.Load())
	}
}

func TestClient_GetTransactions_SplitsIntoGroups(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqs []rpcRequest
		json.NewDecoder(r.Body).Decode(&reqs)
		batchSizes = append(batchSizes, len(reqs))

		items := make([]map[string]interface{}, len(reqs))
		for i, req := range reqs {
			items[i] = map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": txResultJSON(1, nil)}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(items)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	sigs := make([]string, 30)
	for i := range sigs {
		sigs[i] = fmt.Sprintf("sig%02d", i)
	}

	results, err := client.GetTransactions(context.Background(), sigs)
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(results) != 30 {
		t.Fatalf("expected 30 entries, got %d", len(results))
	}
	expected := []int{12, 12, 6}
	if len(batchSizes) != len(expected) {
		t.Fatalf("expected %d groups, got %v", len(expected), batchSizes)
	}
	for i, size := range expected {
		if batchSizes[i] != size {
			t.Errorf("group %d: expected size %d, got %d", i, size, batchSizes[i])
		}
	}
}

func TestClient_BatchUnsupportedFallsBackSequential(t *testing.T) {
	var batchAttempts, singleCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if body[0] == '[' {
			batchAttempts.Add(1)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		singleCalls.Add(1)
		var req rpcRequest
		json.Unmarshal(body, &req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  txResultJSON(100, nil),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	sigs := make([]string, 15)
	for i := range sigs {
		sigs[i] = fmt.Sprintf("sig%02d", i)
	}

	results, err := client.GetTransactions(context.Background(), sigs)
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(results) != 15 {
		t.Fatalf("expected 15 entries, got %d", len(results))
	}
	for _, sig := range sigs {
		if results[sig] == nil {
			t.Errorf("expected result for %s", sig)
		}
	}

	// The first rejection is permanent: the second group goes straight to
	// sequential without probing batch support again.
	if batchAttempts.Load() != 1 {
		t.Errorf("expected 1 batch attempt, got %d", batchAttempts.Load())
	}
	if singleCalls.Load() != 15 {
		t.Errorf("expected 15 single calls, got %d", singleCalls.Load())
	}
}

func TestClient_BatchRateLimitExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	_, err := client.GetTransactions(context.Background(), []string{"sig1", "sig2"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var rateLimit *RateLimitError
	if !errors.As(err, &rateLimit) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if attempts.Load() != 4 {
		t.Errorf("expected exactly 4 attempts, got %d", attempts.Load())
	}
}

func TestClient_Observers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if body[0] == '[' {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req rpcRequest
		json.Unmarshal(body, &req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  txResultJSON(100, nil),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	var fallbacks atomic.Int32
	var observed []string
	client := NewClient(server.URL,
		WithBackoff(time.Millisecond, time.Millisecond),
		WithSequentialDelay(time.Millisecond),
		WithCallObserver(func(method string, _ time.Duration) { observed = append(observed, method) }),
		WithBatchFallbackHook(func() { fallbacks.Add(1) }),
	)

	if _, err := client.GetTransactions(context.Background(), []string{"sig1", "sig2"}); err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}

	if fallbacks.Load() != 1 {
		t.Errorf("expected 1 fallback notification, got %d", fallbacks.Load())
	}
	want := []string{"getTransaction", "getTransaction", "getTransactionBatch"}
	if len(observed) != len(want) {
		t.Fatalf("expected %v observed calls, got %v", want, observed)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], observed[i])
		}
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetSignaturesForAddress(ctx, "testaddr", 10)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

