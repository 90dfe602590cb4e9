package reconcile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "domainvault/pkg/domain"
	txcontext "domainvault/pkg/platform/tx"
)

// PostgresLedger stores entries in reconciliation_entries. Inserts are
// idempotent on id so redelivered Kafka records are harmless.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Record(ctx context.Context, e Entry) error {
	registrant, err := json.Marshal(e.Registrant)
	if err != nil {
		return fmt.Errorf("marshal registrant: %w", err)
	}
	query := `
		INSERT INTO reconciliation_entries
			(id, outcome, reason, order_id, user_id, domain, years, price, registrant, raw_response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = txcontext.Exec(ctx, l.db).ExecContext(ctx, query,
		e.ID, string(e.Outcome), e.Reason, e.OrderID, uuid.UUID(e.UserID), e.Domain, e.Years,
		e.Price.Cents(), registrant, e.RawResponse, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reconciliation entry: %w", err)
	}
	return nil
}

func (l *PostgresLedger) List(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT id, outcome, reason, order_id, user_id, domain, years, price, registrant, raw_response, created_at
		FROM reconciliation_entries ORDER BY created_at DESC`
	rows, err := txcontext.Exec(ctx, l.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reconciliation entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			outcome    string
			userID     uuid.UUID
			price      int64
			registrant []byte
		)
		if err := rows.Scan(&e.ID, &outcome, &e.Reason, &e.OrderID, &userID, &e.Domain, &e.Years,
			&price, &registrant, &e.RawResponse, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reconciliation entry: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.UserID = id.UserID(userID)
		e.Price = id.Money(price)
		if err := json.Unmarshal(registrant, &e.Registrant); err != nil {
			return nil, fmt.Errorf("unmarshal registrant: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
