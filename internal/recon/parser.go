package recon

import (
	"encoding/json"

	"wallet-recon/internal/solana"
)

// ParsedTransaction is the normalized view of one transaction record that
// the aggregator folds over.
type ParsedTransaction struct {
	FeeLamports  uint64
	AccountKeys  []string
	Instructions []ParsedInstruction
}

// ParsedInstruction is one decoded instruction. Transfer is set only for
// transfer instructions carrying an amount; instructions without one still
// count toward program usage.
type ParsedInstruction struct {
	Program  string // human-readable program name when available, else program id
	Type     string
	Transfer *TransferDetail
}

// TransferDetail holds the directional fields of a transfer instruction.
type TransferDetail struct {
	Source      string
	Destination string
	Lamports    uint64
}

// parsedPayload mirrors the jsonParsed instruction body. The node emits it
// only for programs it can decode; anything else is skipped.
type parsedPayload struct {
	Type string `json:"type"`
	Info struct {
		Source      string  `json:"source"`
		Destination string  `json:"destination"`
		Lamports    *uint64 `json:"lamports"`
	} `json:"info"`
}

// ParseTransaction extracts fee, account keys and instructions from a raw
// transaction record. Pure function, no I/O.
func ParseTransaction(tx *solana.TransactionResult) ParsedTransaction {
	var out ParsedTransaction
	if tx == nil {
		return out
	}
	if tx.Meta != nil {
		out.FeeLamports = tx.Meta.Fee
	}

	var msg *solana.TransactionMessage
	if tx.Transaction != nil {
		msg = tx.Transaction.Message
	}
	if msg == nil {
		return out
	}

	for _, key := range msg.AccountKeys {
		if key.Pubkey != "" {
			out.AccountKeys = append(out.AccountKeys, key.Pubkey)
		}
	}

	for _, ix := range msg.Instructions {
		pi := ParsedInstruction{Program: ix.Program}
		if pi.Program == "" {
			pi.Program = ix.ProgramID
		}

		if len(ix.Parsed) > 0 {
			var payload parsedPayload
			if err := json.Unmarshal(ix.Parsed, &payload); err == nil {
				pi.Type = payload.Type
				if payload.Type == "transfer" && payload.Info.Lamports != nil {
					pi.Transfer = &TransferDetail{
						Source:      payload.Info.Source,
						Destination: payload.Info.Destination,
						Lamports:    *payload.Info.Lamports,
					}
				}
			}
		}

		out.Instructions = append(out.Instructions, pi)
	}

	return out
}
