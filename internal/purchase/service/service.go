// Package service turns a buyer's intent into a registrar-backed or
// inventory-backed purchase and records the outcome.
package service

import (
	"context"
	"log/slog"
	"time"

	inventorymodels "domainvault/internal/inventory/models"
	"domainvault/internal/purchase/metrics"
	"domainvault/internal/purchase/models"
	"domainvault/internal/purchase/reconcile"
	"domainvault/internal/registrar"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/audit"
	"domainvault/pkg/platform/tx"
	"domainvault/pkg/requestcontext"
)

// CuratedStore is the part of the curated inventory the purchase path needs.
// MarkPurchased is the conditional transition and returns sentinel.ErrConflict
// when the domain is neither available nor held by the buyer.
type CuratedStore interface {
	FindByName(ctx context.Context, name string) (*inventorymodels.CuratedDomain, error)
	MarkPurchased(ctx context.Context, cmd inventorymodels.PurchaseCommand) (*inventorymodels.CuratedDomain, error)
}

// RecordStore persists one record per registrar order id. Create returns
// sentinel.ErrAlreadyUsed for a repeated order id.
type RecordStore interface {
	Create(ctx context.Context, r *models.PurchaseRecord) error
	FindByOrderID(ctx context.Context, orderID string) (*models.PurchaseRecord, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.PurchaseRecord, error)
	UpdateStatus(ctx context.Context, orderID string, from, to models.RecordStatus, expiration *time.Time, now time.Time) (*models.PurchaseRecord, error)
}

// Registrar is the live gateway. The purchase path never reads through a cache.
type Registrar interface {
	CheckAvailability(ctx context.Context, sld, tld string) (*registrar.CheckResult, error)
	GetPricing(ctx context.Context, sld, tld string, years int) (*registrar.Pricing, error)
	Purchase(ctx context.Context, req registrar.PurchaseRequest) (*registrar.PurchaseResult, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	curated   CuratedStore
	records   RecordStore
	registrar Registrar
	queue     reconcile.Queue
	ledger    reconcile.Ledger
	tx        tx.Runner

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTxRunner runs the record write in a database transaction.
func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

// WithLedger exposes reconciliation entries to admins through ListReconciliation.
func WithLedger(ledger reconcile.Ledger) Option {
	return func(s *Service) {
		s.ledger = ledger
	}
}

func New(curated CuratedStore, records RecordStore, reg Registrar, queue reconcile.Queue, opts ...Option) *Service {
	s := &Service{
		curated:   curated,
		records:   records,
		registrar: reg,
		queue:     queue,
		tx:        tx.NopRunner{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) incPurchase(kind, outcome string) {
	if s.metrics != nil {
		s.metrics.IncPurchase(kind, outcome)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, userID id.UserID, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit", "user_id", userID)
	s.logger.InfoContext(ctx, string(event), args...)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.FromAttributes(event, userID, attributes)); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"error", err,
		)
	}
}
