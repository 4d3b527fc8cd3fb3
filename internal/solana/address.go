package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateWalletAddress checks that an address is a base58-encoded 32-byte
// ed25519 public key lying on the curve. Wallet addresses are on-curve;
// program derived addresses are not and are rejected here to catch operators
// accidentally watching a token account instead of its owner.
func ValidateWalletAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("decode address %q: %w", address, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("address %q: expected 32 bytes, got %d", address, len(raw))
	}
	if !isOnCurve(raw) {
		return fmt.Errorf("address %q is off-curve (a PDA, not a wallet)", address)
	}
	return nil
}

// ValidateMintAddress checks base58 shape only; mints may be off-curve.
func ValidateMintAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("decode mint %q: %w", address, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("mint %q: expected 32 bytes, got %d", address, len(raw))
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
