package fetch

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// solanaAddressLen is the byte length of an ed25519 public key.
const solanaAddressLen = 32

// ValidateSolanaAddress checks that addr is a base58-encoded 32-byte key.
// Pool addresses are program-derived and usually off-curve, so no curve
// membership is required here.
func ValidateSolanaAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode address %q: %w", addr, err)
	}
	if len(raw) != solanaAddressLen {
		return fmt.Errorf("address %q: expected %d bytes, got %d", addr, solanaAddressLen, len(raw))
	}
	return nil
}

// IsOnCurve reports whether the address decodes to a point on the ed25519
// curve. Wallet keys are on-curve; PDAs are not.
func IsOnCurve(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != solanaAddressLen {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
