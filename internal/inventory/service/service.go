package service

import (
	"context"
	"log/slog"
	"time"

	"domainvault/internal/inventory/metrics"
	"domainvault/internal/inventory/models"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/audit"
	"domainvault/pkg/requestcontext"
)

const (
	DefaultReservationTTL = 10 * time.Minute
	DefaultMaxTTL         = time.Hour
)

// Store is the curated domain persistence contract. Reserve, Release,
// MarkPurchased and ReleaseExpired are atomic conditional transitions and
// return sentinel.ErrConflict when the guard rejects them.
type Store interface {
	FindByName(ctx context.Context, name string) (*models.CuratedDomain, error)
	ListAvailable(ctx context.Context, now time.Time, search string) ([]*models.CuratedDomain, error)
	ListByOwner(ctx context.Context, owner id.UserID) ([]*models.CuratedDomain, error)
	Reserve(ctx context.Context, name string, userID id.UserID, now, until time.Time) (*models.CuratedDomain, error)
	Release(ctx context.Context, name string, holder *id.UserID, now time.Time) (*models.CuratedDomain, error)
	ReleaseExpired(ctx context.Context, now time.Time) ([]string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type options struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	defaultTTL     time.Duration
	maxTTL         time.Duration
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(o *options) {
		o.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTTLBounds overrides the default and maximum hold duration.
func WithTTLBounds(defaultTTL, maxTTL time.Duration) Option {
	return func(o *options) {
		if defaultTTL > 0 {
			o.defaultTTL = defaultTTL
		}
		if maxTTL > 0 {
			o.maxTTL = maxTTL
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{defaultTTL: DefaultReservationTTL, maxTTL: DefaultMaxTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// logAudit writes an audit log line and, when configured, emits the matching event.
func logAudit(ctx context.Context, o options, event audit.AuditEvent, userID id.UserID, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit", "user_id", userID)
	if o.logger != nil {
		o.logger.InfoContext(ctx, string(event), args...)
	}
	if o.auditPublisher == nil {
		return
	}
	if err := o.auditPublisher.Emit(ctx, audit.FromAttributes(event, userID, attributes)); err != nil && o.logger != nil {
		o.logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"error", err,
		)
	}
}
