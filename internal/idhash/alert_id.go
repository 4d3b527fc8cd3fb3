package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-wallet-sentinel/internal/domain"
)

// ComputeAlertID computes a deterministic alert_id using SHA256.
// Formula: SHA256(kind|mint|wallet|tx_signature|window)
// Returns hex-encoded hash (64 characters).
//
// The window component is the UTC calendar day for coordinated-buy alerts
// and empty for swap alerts, whose identity is already fixed by the
// triggering signature.
func ComputeAlertID(
	kind domain.AlertKind,
	mint string,
	wallet string,
	txSignature string,
	window string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		string(kind),
		mint,
		wallet,
		txSignature,
		window,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
