package idhash

import (
	"testing"

	"solana-wallet-sentinel/internal/domain"
)

func TestComputeAlertID(t *testing.T) {
	tests := []struct {
		name      string
		kind      domain.AlertKind
		mint      string
		wallet    string
		signature string
		window    string
	}{
		{
			name:      "large swap",
			kind:      domain.AlertKindLargeSwap,
			mint:      "MintABC",
			wallet:    "Wallet123",
			signature: "Sig456",
		},
		{
			name:   "coordinated buy",
			kind:   domain.AlertKindCoordinatedBuy,
			mint:   "MintABC",
			window: "2025-11-03",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeAlertID(tt.kind, tt.mint, tt.wallet, tt.signature, tt.window)
			if len(got) != 64 {
				t.Errorf("expected 64-char hash, got %d", len(got))
			}
			again := ComputeAlertID(tt.kind, tt.mint, tt.wallet, tt.signature, tt.window)
			if got != again {
				t.Error("hash must be deterministic")
			}
		})
	}
}

func TestComputeAlertID_Distinct(t *testing.T) {
	a := ComputeAlertID(domain.AlertKindCoordinatedBuy, "MintA", "", "", "2025-11-03")
	b := ComputeAlertID(domain.AlertKindCoordinatedBuy, "MintA", "", "", "2025-11-04")
	if a == b {
		t.Error("different windows must produce different IDs")
	}

	c := ComputeAlertID(domain.AlertKindLargeSwap, "MintA", "W", "S1", "")
	d := ComputeAlertID(domain.AlertKindLargeSwap, "MintA", "W", "S2", "")
	if c == d {
		t.Error("different signatures must produce different IDs")
	}
}
