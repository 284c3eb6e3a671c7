package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateAddress checks that s is a well-formed Solana address: base58
// text decoding to exactly 32 bytes. Off-curve keys (PDAs) are accepted,
// since they are valid transaction participants.
func ValidateAddress(s string) error {
	if len(s) < 32 || len(s) > 44 {
		return fmt.Errorf("address length %d outside 32..44", len(s))
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("address decodes to %d bytes, want 32", len(decoded))
	}
	return nil
}

// IsOnCurve reports whether the address is a valid ed25519 curve point.
// Wallet keypairs are on-curve; program derived addresses are not.
func IsOnCurve(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
