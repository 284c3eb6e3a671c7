package solana

import "fmt"

// RPCError is a non-retryable protocol error reported by the RPC endpoint,
// or a transport failure that survived the full retry budget.
type RPCError struct {
	Code    int    // JSON-RPC error code, 0 for transport failures
	Message string
	Err     error // underlying transport error, if any
}

func (e *RPCError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solana rpc: %s: %v", e.Message, e.Err)
	}
	if e.Code != 0 {
		return fmt.Sprintf("solana rpc error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("solana rpc: %s", e.Message)
}

func (e *RPCError) Unwrap() error { return e.Err }

// RateLimitError is returned when the endpoint kept responding 429 through
// the whole retry budget. Callers can treat it as "retry later, or switch
// to a private endpoint", distinct from a generic RPC failure.
type RateLimitError struct {
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("solana rpc rate limited after %d attempts", e.Attempts)
}
