package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"solana-wallet-sentinel/internal/domain"
	"solana-wallet-sentinel/internal/storage"
)

func testAlert(id string, createdAt int64) *domain.AlertRecord {
	return &domain.AlertRecord{
		AlertID:   id,
		Kind:      domain.AlertKindLargeSwap,
		Mint:      "mint123",
		Wallet:    "wallet123",
		Signature: "sig123",
		ValueUSD:  3200,
		Message:   "LARGE SWAP: test",
		CreatedAt: createdAt,
	}
}

func TestAlertStore_InsertAndGet(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	rec := testAlert("abc123", 1704067200000)
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.AlertID != rec.AlertID {
		t.Errorf("AlertID mismatch: got %s, want %s", got.AlertID, rec.AlertID)
	}
	if got.Kind != rec.Kind {
		t.Errorf("Kind mismatch: got %s, want %s", got.Kind, rec.Kind)
	}

	// Returned copy must not alias store state.
	got.Message = "mutated"
	again, _ := store.GetByID(ctx, "abc123")
	if again.Message != rec.Message {
		t.Error("store leaked internal state")
	}
}

func TestAlertStore_DuplicateKey(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	rec := testAlert("abc123", 1704067200000)
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if err := store.Insert(ctx, rec); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestAlertStore_GetRecent(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := testAlert(fmt.Sprintf("alert-%d", i), int64(1704067200000+i))
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	recent, err := store.GetRecent(ctx, 3)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(recent))
	}
	if recent[0].AlertID != "alert-4" || recent[2].AlertID != "alert-2" {
		t.Errorf("expected newest-first order, got %s..%s", recent[0].AlertID, recent[2].AlertID)
	}

	if _, err := store.GetRecent(ctx, 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero limit, got %v", err)
	}
}

func TestAlertStore_GetByMint(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	a := testAlert("a", 1)
	b := testAlert("b", 2)
	c := testAlert("c", 3)
	c.Mint = "other"
	for _, rec := range []*domain.AlertRecord{a, b, c} {
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByMint(ctx, "mint123")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(got))
	}
	if got[0].AlertID != "b" {
		t.Errorf("expected newest first, got %s", got[0].AlertID)
	}
}

func TestAlertStore_ConcurrentInsert(t *testing.T) {
	store := NewAlertStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := testAlert(fmt.Sprintf("alert-%d", i), int64(i))
			if err := store.Insert(ctx, rec); err != nil {
				t.Errorf("Insert %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	all, err := store.GetRecent(ctx, 100)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(all) != 16 {
		t.Errorf("expected 16 alerts, got %d", len(all))
	}
}
