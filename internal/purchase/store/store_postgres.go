package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"domainvault/internal/platform/postgres"
	"domainvault/internal/purchase/models"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
	txcontext "domainvault/pkg/platform/tx"
)

// PostgresStore persists purchase records. order_id is the primary key, so a
// repeated order id is rejected by the database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `order_id, user_id, domain, sld, tld, years, status, expiration_date,
	price, registrant, raw_response, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, r *models.PurchaseRecord) error {
	registrant, err := json.Marshal(r.Registrant)
	if err != nil {
		return fmt.Errorf("marshal registrant: %w", err)
	}
	query := `
		INSERT INTO purchase_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		r.OrderID, uuid.UUID(r.UserID), r.Domain, r.SLD, r.TLD, r.Years, string(r.Status), r.ExpirationDate,
		r.Price.Cents(), registrant, r.RawResponse, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert purchase record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByOrderID(ctx context.Context, orderID string) (*models.PurchaseRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM purchase_records WHERE order_id = $1`
	r, err := scanRecord(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find purchase record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.PurchaseRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM purchase_records WHERE user_id = $1 ORDER BY created_at DESC, order_id`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list purchase records: %w", err)
	}
	defer rows.Close()

	out := make([]*models.PurchaseRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateStatus is a conditional update on the current status. When no row
// matches, a follow-up read tells ErrNotFound from ErrConflict.
func (s *PostgresStore) UpdateStatus(ctx context.Context, orderID string, from, to models.RecordStatus, expiration *time.Time, now time.Time) (*models.PurchaseRecord, error) {
	if !from.CanTransitionTo(to) {
		return nil, sentinel.ErrInvalidState
	}
	query := `
		UPDATE purchase_records
		SET status = $3, expiration_date = COALESCE($4, expiration_date), updated_at = $5
		WHERE order_id = $1 AND status = $2
		RETURNING ` + recordColumns
	r, err := scanRecord(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, orderID, string(from), string(to), expiration, now))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update purchase status: %w", err)
	}
	if _, err := s.FindByOrderID(ctx, orderID); err != nil {
		return nil, err
	}
	return nil, sentinel.ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.PurchaseRecord, error) {
	var (
		r          models.PurchaseRecord
		userID     uuid.UUID
		status     string
		expiration sql.NullTime
		price      int64
		registrant []byte
	)
	if err := row.Scan(&r.OrderID, &userID, &r.Domain, &r.SLD, &r.TLD, &r.Years, &status, &expiration,
		&price, &registrant, &r.RawResponse, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.UserID = id.UserID(userID)
	r.Status = models.RecordStatus(status)
	r.Price = id.Money(price)
	if expiration.Valid {
		t := expiration.Time
		r.ExpirationDate = &t
	}
	if err := json.Unmarshal(registrant, &r.Registrant); err != nil {
		return nil, fmt.Errorf("unmarshal registrant: %w", err)
	}
	return &r, nil
}
