package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

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
		ValueUSD:  3200.50,
		Message:   "LARGE SWAP: test",
		CreatedAt: createdAt,
	}
}

func TestAlertStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	rec := testAlert("abc123", 1704067200000)
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetByID(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, rec.AlertID, got.AlertID)
	require.Equal(t, rec.Kind, got.Kind)
	require.Equal(t, rec.Mint, got.Mint)
	require.Equal(t, rec.Wallet, got.Wallet)
	require.Equal(t, rec.Signature, got.Signature)
	require.InDelta(t, rec.ValueUSD, got.ValueUSD, 1e-9)
	require.Equal(t, rec.Message, got.Message)
	require.Equal(t, rec.CreatedAt, got.CreatedAt)
}

func TestAlertStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	rec := testAlert("abc123", 1704067200000)
	require.NoError(t, store.Insert(ctx, rec))
	require.ErrorIs(t, store.Insert(ctx, rec), storage.ErrDuplicateKey)
}

func TestAlertStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	_, err := store.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAlertStore_GetRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := testAlert(fmt.Sprintf("alert-%d", i), int64(1704067200000+i))
		require.NoError(t, store.Insert(ctx, rec))
	}

	recent, err := store.GetRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	require.Equal(t, "alert-4", recent[0].AlertID)
	require.Equal(t, "alert-2", recent[2].AlertID)

	_, err = store.GetRecent(ctx, 0)
	require.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestAlertStore_GetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	a := testAlert("a", 1)
	b := testAlert("b", 2)
	c := testAlert("c", 3)
	c.Mint = "other"
	c.Kind = domain.AlertKindCoordinatedBuy
	for _, rec := range []*domain.AlertRecord{a, b, c} {
		require.NoError(t, store.Insert(ctx, rec))
	}

	got, err := store.GetByMint(ctx, "mint123")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].AlertID)

	other, err := store.GetByMint(ctx, "other")
	require.NoError(t, err)
	require.Len(t, other, 1)
	require.Equal(t, domain.AlertKindCoordinatedBuy, other[0].Kind)
}
