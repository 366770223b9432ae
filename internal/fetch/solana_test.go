package fetch

import "testing"

func TestValidateSolanaAddress(t *testing.T) {
	// Wrapped SOL mint, a well-known valid address
	if err := ValidateSolanaAddress("So11111111111111111111111111111111111111112"); err != nil {
		t.Errorf("valid address rejected: %v", err)
	}

	cases := []struct {
		name string
		addr string
	}{
		{"empty", ""},
		{"invalid base58 chars", "0OIl+/="},
		{"too short", "abc"},
		{"too long", "So11111111111111111111111111111111111111112So11111111111111111111111111111111111111112"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateSolanaAddress(tc.addr); err == nil {
				t.Errorf("expected error for %q", tc.addr)
			}
		})
	}
}

func TestIsOnCurve(t *testing.T) {
	// The system program id decodes to 32 zero bytes, a valid point encoding
	if !IsOnCurve("11111111111111111111111111111111") {
		t.Error("system program id should be on curve")
	}
	if IsOnCurve("not-an-address") {
		t.Error("malformed address should not be on curve")
	}
}
