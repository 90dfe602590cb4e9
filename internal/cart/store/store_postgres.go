package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"domainvault/internal/cart/models"
	"domainvault/internal/platform/postgres"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
	txcontext "domainvault/pkg/platform/tx"
)

// PostgresStore persists cart items. The partial unique index on
// (user_id, domain) WHERE status = 'active' enforces one active item per domain.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const itemColumns = `id, user_id, domain, sld, tld, available_at_check, registration_price,
	renewal_price, total_price, years, registrar_item_ref, status, order_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(item.ID), uuid.UUID(item.UserID), item.Domain, item.SLD, item.TLD, item.AvailableAtCheck,
		item.RegistrationPrice.Cents(), item.RenewalPrice.Cents(), item.TotalPrice.Cents(), item.Years,
		item.RegistrarItemRef, string(item.Status), item.OrderID, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindForUser(ctx context.Context, userID id.UserID, itemID id.CartItemID) (*models.CartItem, error) {
	query := `SELECT ` + itemColumns + ` FROM cart_items WHERE id = $1 AND user_id = $2`
	item, err := scanItem(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(itemID), uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find cart item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListActive(ctx context.Context, userID id.UserID) ([]*models.CartItem, error) {
	query := `SELECT ` + itemColumns + ` FROM cart_items
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at, domain`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()
	var out []*models.CartItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateYears(ctx context.Context, userID id.UserID, itemID id.CartItemID, years int, total id.Money, now time.Time) (*models.CartItem, error) {
	query := `
		UPDATE cart_items SET years = $3, total_price = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2 AND status = 'active'
		RETURNING ` + itemColumns
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(itemID), uuid.UUID(userID), years, total.Cents(), now)
	return s.activeResult(ctx, userID, itemID, row, "update cart item")
}

func (s *PostgresStore) Transition(ctx context.Context, userID id.UserID, itemID id.CartItemID, status models.ItemStatus, orderID *string, now time.Time) (*models.CartItem, error) {
	query := `
		UPDATE cart_items SET status = $3, order_id = COALESCE($4, order_id), updated_at = $5
		WHERE id = $1 AND user_id = $2 AND status = 'active'
		RETURNING ` + itemColumns
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(itemID), uuid.UUID(userID), string(status), orderID, now)
	return s.activeResult(ctx, userID, itemID, row, "transition cart item")
}

func (s *PostgresStore) RemoveAll(ctx context.Context, userID id.UserID, now time.Time) (int, error) {
	query := `UPDATE cart_items SET status = 'removed', updated_at = $2 WHERE user_id = $1 AND status = 'active'`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, uuid.UUID(userID), now)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear cart rows affected: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) ExpireBefore(ctx context.Context, cutoff, now time.Time) ([]id.CartItemID, error) {
	query := `
		WITH expired AS (
			UPDATE cart_items SET status = 'expired', updated_at = $2
			WHERE status = 'active' AND created_at < $1
			RETURNING id, created_at, domain
		)
		SELECT COALESCE(array_agg(id::text ORDER BY created_at, domain), '{}') FROM expired`
	var raw []string
	if err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, cutoff, now).Scan(pq.Array(&raw)); err != nil {
		return nil, fmt.Errorf("expire cart items: %w", err)
	}
	ids := make([]id.CartItemID, 0, len(raw))
	for _, r := range raw {
		itemID, err := id.ParseCartItemID(r)
		if err != nil {
			return nil, fmt.Errorf("parse expired cart item id: %w", err)
		}
		ids = append(ids, itemID)
	}
	return ids, nil
}

// activeResult turns a zero-row conditional update into NotFound or Conflict.
func (s *PostgresStore) activeResult(ctx context.Context, userID id.UserID, itemID id.CartItemID, row *sql.Row, op string) (*models.CartItem, error) {
	item, err := scanItem(row)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.FindForUser(ctx, userID, itemID); err != nil {
		return nil, err
	}
	return nil, sentinel.ErrConflict
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*models.CartItem, error) {
	var (
		item              models.CartItem
		itemID, userID    uuid.UUID
		reg, renew, total int64
		status            string
		orderID           sql.NullString
	)
	if err := row.Scan(&itemID, &userID, &item.Domain, &item.SLD, &item.TLD, &item.AvailableAtCheck,
		&reg, &renew, &total, &item.Years, &item.RegistrarItemRef, &status, &orderID,
		&item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.ID = id.CartItemID(itemID)
	item.UserID = id.UserID(userID)
	item.RegistrationPrice = id.Money(reg)
	item.RenewalPrice = id.Money(renew)
	item.TotalPrice = id.Money(total)
	item.Status = models.ItemStatus(status)
	if orderID.Valid {
		o := orderID.String
		item.OrderID = &o
	}
	return &item, nil
}
