package solana

import "testing"

func TestValidateAddress(t *testing.T) {
	cases := []struct {
		name    string
		address string
		valid   bool
	}{
		{"system program", "11111111111111111111111111111111", true},
		{"token program", "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", true},
		{"empty", "", false},
		{"too short", "abc", false},
		{"too long", "1111111111111111111111111111111111111111111111111", false},
		{"invalid base58 characters", "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", false},
		{"valid base58 but decodes to 33 bytes", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAddress(tc.address)
			if tc.valid && err != nil {
				t.Errorf("expected %q to be valid, got %v", tc.address, err)
			}
			if !tc.valid && err == nil {
				t.Errorf("expected %q to be rejected", tc.address)
			}
		})
	}
}

func TestIsOnCurve_MalformedInput(t *testing.T) {
	if IsOnCurve("not-base58-0OIl") {
		t.Error("malformed base58 must not be on curve")
	}
	if IsOnCurve("") {
		t.Error("empty string must not be on curve")
	}
}
