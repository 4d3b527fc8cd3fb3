package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-wallet-sentinel/internal/domain"
	"solana-wallet-sentinel/internal/storage"
)

// AlertStore implements storage.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *Pool
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(pool *Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

// Insert adds a new alert. Returns ErrDuplicateKey if alert_id exists.
func (s *AlertStore) Insert(ctx context.Context, rec *domain.AlertRecord) error {
	if rec == nil || rec.AlertID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO alerts (
			alert_id, kind, mint, wallet, tx_signature, value_usd, message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		rec.AlertID,
		string(rec.Kind),
		rec.Mint,
		rec.Wallet,
		rec.Signature,
		rec.ValueUSD,
		rec.Message,
		rec.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by its ID. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(ctx context.Context, alertID string) (*domain.AlertRecord, error) {
	query := `
		SELECT alert_id, kind, mint, wallet, tx_signature, value_usd, message, created_at
		FROM alerts
		WHERE alert_id = $1
	`

	row := s.pool.QueryRow(ctx, query, alertID)
	rec, err := scanAlert(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get alert by id: %w", err)
	}
	return rec, nil
}

// GetRecent retrieves up to limit alerts, newest first.
func (s *AlertStore) GetRecent(ctx context.Context, limit int) ([]*domain.AlertRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT alert_id, kind, mint, wallet, tx_signature, value_usd, message, created_at
		FROM alerts
		ORDER BY created_at DESC, alert_id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetByMint retrieves all alerts for a mint, newest first.
func (s *AlertStore) GetByMint(ctx context.Context, mint string) ([]*domain.AlertRecord, error) {
	query := `
		SELECT alert_id, kind, mint, wallet, tx_signature, value_usd, message, created_at
		FROM alerts
		WHERE mint = $1
		ORDER BY created_at DESC, alert_id DESC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get alerts by mint: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// scanAlert scans a single alert row.
func scanAlert(row pgx.Row) (*domain.AlertRecord, error) {
	var rec domain.AlertRecord
	var kind string
	if err := row.Scan(
		&rec.AlertID,
		&kind,
		&rec.Mint,
		&rec.Wallet,
		&rec.Signature,
		&rec.ValueUSD,
		&rec.Message,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Kind = domain.AlertKind(kind)
	return &rec, nil
}

// scanAlerts scans all alert rows.
func scanAlerts(rows pgx.Rows) ([]*domain.AlertRecord, error) {
	var result []*domain.AlertRecord
	for rows.Next() {
		rec, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return result, nil
}
