package storage

import (
	"context"

	"solana-wallet-sentinel/internal/domain"
)

// AlertStore provides access to the alert journal. The journal is an
// operator audit trail: the pipeline writes to it and never reads it, so
// all detection state stays in process memory.
type AlertStore interface {
	// Insert adds a new alert. Returns ErrDuplicateKey if alert_id exists.
	Insert(ctx context.Context, rec *domain.AlertRecord) error

	// GetByID retrieves an alert by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, alertID string) (*domain.AlertRecord, error)

	// GetRecent retrieves up to limit alerts, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.AlertRecord, error)

	// GetByMint retrieves all alerts for a mint, newest first.
	GetByMint(ctx context.Context, mint string) ([]*domain.AlertRecord, error)
}
