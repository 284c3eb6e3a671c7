package solana

import (
	"context"
	"encoding/json"
)

// RPC defines the ledger operations consumed by the wallet report engine.
type RPC interface {
	// GetSignaturesForAddress retrieves recent signatures for an address,
	// newest first as returned by the node.
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error)

	// GetTransactions retrieves full transaction records for the given
	// signatures. The result map has one entry per requested signature; a
	// nil value means the transaction is unavailable (pruned or too old).
	GetTransactions(ctx context.Context, signatures []string) (map[string]*TransactionResult, error)
}

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string `json:"signature"`
	Slot      int64  `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
}

// TransactionResult is a getTransaction record in jsonParsed encoding.
type TransactionResult struct {
	Slot        int64                `json:"slot"`
	BlockTime   *int64               `json:"blockTime"`
	Meta        *TransactionMeta     `json:"meta"`
	Transaction *TransactionEnvelope `json:"transaction"`
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Fee uint64      `json:"fee"`
	Err interface{} `json:"err"`
}

// TransactionEnvelope wraps the transaction message.
type TransactionEnvelope struct {
	Message *TransactionMessage `json:"message"`
}

// TransactionMessage contains account keys and instructions.
type TransactionMessage struct {
	AccountKeys  []AccountKey  `json:"accountKeys"`
	Instructions []Instruction `json:"instructions"`
}

// AccountKey is one entry of message.accountKeys. Depending on node version
// and encoding it arrives either as a plain base58 string or as an object
// with a "pubkey" field.
type AccountKey struct {
	Pubkey string
}

func (k *AccountKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		k.Pubkey = s
		return nil
	}
	var obj struct {
		Pubkey string `json:"pubkey"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	k.Pubkey = obj.Pubkey
	return nil
}

// Instruction is one message instruction. Parsed is only populated for
// programs the node could decode; it is kept raw here and interpreted by the
// transaction parser.
type Instruction struct {
	Program   string          `json:"program"`
	ProgramID string          `json:"programId"`
	Parsed    json.RawMessage `json:"parsed"`
}
