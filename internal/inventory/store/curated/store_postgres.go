package curated

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"domainvault/internal/inventory/models"
	"domainvault/internal/platform/postgres"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
	txcontext "domainvault/pkg/platform/tx"
)

// PostgresStore persists curated domains. Every state transition is one
// conditional UPDATE ... RETURNING; zero rows means the CAS lost.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const domainColumns = `name, personas, domain_price, email_price, status, reserved_until,
	reserved_by, owner_user_id, forwarding_target, purchased_at, created_at, updated_at`

// effectivelyAvailable matches rows that are available or whose hold lapsed at $now.
const effectivelyAvailable = `(status = 'available' OR (status = 'reserved' AND reserved_until <= %s))`

func (s *PostgresStore) Create(ctx context.Context, d *models.CuratedDomain) error {
	personas, err := json.Marshal(d.Personas)
	if err != nil {
		return fmt.Errorf("marshal personas: %w", err)
	}
	query := `
		INSERT INTO curated_domains (name, personas, domain_price, email_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		d.Name, personas, d.DomainPrice.Cents(), d.EmailPrice.Cents(), string(d.Status), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert curated domain: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.CuratedDomain, error) {
	query := `SELECT ` + domainColumns + ` FROM curated_domains WHERE name = $1`
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, models.NormalizeName(name))
	d, err := scanDomain(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find curated domain: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListAvailable(ctx context.Context, now time.Time, search string) ([]*models.CuratedDomain, error) {
	query := `SELECT ` + domainColumns + ` FROM curated_domains
		WHERE ` + fmt.Sprintf(effectivelyAvailable, "$1") + `
		AND ($2 = '' OR strpos(name, $2) > 0)
		ORDER BY name`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, now, strings.ToLower(strings.TrimSpace(search)))
	if err != nil {
		return nil, fmt.Errorf("list available curated domains: %w", err)
	}
	return collectDomains(rows)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.UserID) ([]*models.CuratedDomain, error) {
	query := `SELECT ` + domainColumns + ` FROM curated_domains
		WHERE status = 'purchased' AND owner_user_id = $1
		ORDER BY name`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(owner))
	if err != nil {
		return nil, fmt.Errorf("list owned curated domains: %w", err)
	}
	return collectDomains(rows)
}

func (s *PostgresStore) Reserve(ctx context.Context, name string, userID id.UserID, now, until time.Time) (*models.CuratedDomain, error) {
	query := `
		UPDATE curated_domains
		SET status = 'reserved', reserved_by = $2, reserved_until = $3, updated_at = $4
		WHERE name = $1 AND ` + fmt.Sprintf(effectivelyAvailable, "$4") + `
		RETURNING ` + domainColumns
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query,
		models.NormalizeName(name), uuid.UUID(userID), until, now)
	return s.casResult(ctx, name, row, "reserve")
}

func (s *PostgresStore) Release(ctx context.Context, name string, holder *id.UserID, now time.Time) (*models.CuratedDomain, error) {
	var holderArg any
	if holder != nil {
		holderArg = uuid.UUID(*holder)
	}
	// RETURNING sees the new row, so the previous holder is captured in a CTE.
	query := `
		WITH prev AS (
			SELECT name, reserved_by, reserved_until FROM curated_domains
			WHERE name = $1 AND status = 'reserved' AND ($2::uuid IS NULL OR reserved_by = $2::uuid)
			FOR UPDATE
		)
		UPDATE curated_domains c
		SET status = 'available', reserved_by = NULL, reserved_until = NULL, updated_at = $3
		FROM prev
		WHERE c.name = prev.name
		RETURNING c.name, c.personas, c.domain_price, c.email_price, 'reserved', prev.reserved_until,
			prev.reserved_by, c.owner_user_id, c.forwarding_target, c.purchased_at, c.created_at, c.updated_at`
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, models.NormalizeName(name), holderArg, now)
	return s.casResult(ctx, name, row, "release")
}

func (s *PostgresStore) MarkPurchased(ctx context.Context, cmd models.PurchaseCommand) (*models.CuratedDomain, error) {
	var owner any
	if cmd.OwnerUserID != nil {
		owner = uuid.UUID(*cmd.OwnerUserID)
	}
	var forwarding any
	if cmd.ForwardingTarget != nil {
		forwarding = *cmd.ForwardingTarget
	}
	query := `
		UPDATE curated_domains
		SET status = 'purchased', reserved_by = NULL, reserved_until = NULL,
			owner_user_id = $3, forwarding_target = $4, purchased_at = $5, updated_at = $5
		WHERE name = $1 AND (
			` + fmt.Sprintf(effectivelyAvailable, "$5") + `
			OR (status = 'reserved' AND reserved_by = $2 AND reserved_until > $5)
		)
		RETURNING ` + domainColumns
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query,
		models.NormalizeName(cmd.Name), uuid.UUID(cmd.Buyer), owner, forwarding, cmd.Now)
	return s.casResult(ctx, cmd.Name, row, "mark purchased")
}

func (s *PostgresStore) ReleaseExpired(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		UPDATE curated_domains
		SET status = 'available', reserved_by = NULL, reserved_until = NULL, updated_at = $1
		WHERE status = 'reserved' AND reserved_until <= $1
		RETURNING name`
	// Collected into one array so the sweep reports a single consistent batch.
	wrapped := `WITH released AS (` + query + `) SELECT COALESCE(array_agg(name ORDER BY name), '{}') FROM released`
	var names []string
	if err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, wrapped, now).Scan(pq.Array(&names)); err != nil {
		return nil, fmt.Errorf("release expired holds: %w", err)
	}
	return names, nil
}

// casResult turns a conditional update's row into a domain or a sentinel.
// No row means either the name is unknown or the guard rejected the transition.
func (s *PostgresStore) casResult(ctx context.Context, name string, row *sql.Row, op string) (*models.CuratedDomain, error) {
	d, err := scanDomain(row)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s curated domain: %w", op, err)
	}
	if _, findErr := s.FindByName(ctx, name); findErr != nil {
		return nil, findErr
	}
	return nil, sentinel.ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDomain(row rowScanner) (*models.CuratedDomain, error) {
	var (
		d                          models.CuratedDomain
		personas                   []byte
		domainPrice, emailPrice    int64
		status                     string
		reservedUntil, purchasedAt sql.NullTime
		reservedBy, owner          uuid.NullUUID
		forwarding                 sql.NullString
	)
	if err := row.Scan(&d.Name, &personas, &domainPrice, &emailPrice, &status, &reservedUntil,
		&reservedBy, &owner, &forwarding, &purchasedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if len(personas) > 0 {
		if err := json.Unmarshal(personas, &d.Personas); err != nil {
			return nil, fmt.Errorf("unmarshal personas: %w", err)
		}
	}
	d.DomainPrice = id.Money(domainPrice)
	d.EmailPrice = id.Money(emailPrice)
	d.Status = models.Status(status)
	if reservedUntil.Valid {
		t := reservedUntil.Time
		d.ReservedUntil = &t
	}
	if purchasedAt.Valid {
		t := purchasedAt.Time
		d.PurchasedAt = &t
	}
	if reservedBy.Valid {
		u := id.UserID(reservedBy.UUID)
		d.ReservedBy = &u
	}
	if owner.Valid {
		u := id.UserID(owner.UUID)
		d.OwnerUserID = &u
	}
	if forwarding.Valid {
		f := forwarding.String
		d.ForwardingTarget = &f
	}
	return &d, nil
}

func collectDomains(rows *sql.Rows) ([]*models.CuratedDomain, error) {
	defer rows.Close()
	out := make([]*models.CuratedDomain, 0)
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan curated domain: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curated domains: %w", err)
	}
	return out, nil
}
