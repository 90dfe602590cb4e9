package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domainvault/internal/cart/models"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
)

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

var itemColumnNames = []string{"id", "user_id", "domain", "sld", "tld", "available_at_check", "registration_price",
	"renewal_price", "total_price", "years", "registrar_item_ref", "status", "order_id", "created_at", "updated_at"}

func TestPostgresCreateDuplicateActive(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	item := &models.CartItem{
		ID: id.CartItemID(uuid.New()), UserID: id.UserID(uuid.New()), Domain: "acme.com", SLD: "acme", TLD: "com",
		Years: 1, Status: models.ItemActive, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectExec(`(?s)INSERT INTO cart_items`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.Create(context.Background(), item)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransitionConflictVersusNotFound(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := id.UserID(uuid.New())
	itemID := id.CartItemID(uuid.New())

	mock.ExpectQuery(`(?s)UPDATE cart_items SET status = \$3.*status = 'active'.*RETURNING`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`(?s)SELECT .* FROM cart_items WHERE id = \$1 AND user_id = \$2`).
		WillReturnRows(sqlmock.NewRows(itemColumnNames).AddRow(
			itemID.String(), userID.String(), "acme.com", "acme", "com", true, int64(1000), int64(1200), int64(1000), int64(1), "", "purchased", "77", now, now))

	_, err := store.Transition(context.Background(), userID, itemID, models.ItemRemoved, nil, now)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	mock.ExpectQuery(`(?s)UPDATE cart_items SET status = \$3`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`(?s)SELECT .* FROM cart_items WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

	_, err = store.Transition(context.Background(), userID, itemID, models.ItemRemoved, nil, now)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExpireBefore(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(`(?s)WITH expired AS \(\s*UPDATE cart_items SET status = 'expired'.*array_agg`).
		WithArgs(now.Add(-time.Hour), now).
		WillReturnRows(sqlmock.NewRows([]string{"ids"}).AddRow("{" + a.String() + "," + b.String() + "}"))

	ids, err := store.ExpireBefore(context.Background(), now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, []id.CartItemID{id.CartItemID(a), id.CartItemID(b)}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
