// Package service implements the domain cart: priced intents to buy
// arbitrary domains, checked out item by item.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"domainvault/internal/cart/metrics"
	"domainvault/internal/cart/models"
	purchasemodels "domainvault/internal/purchase/models"
	"domainvault/internal/registrar"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	"domainvault/pkg/platform/audit"
	"domainvault/pkg/platform/sentinel"
	"domainvault/pkg/requestcontext"
)

const DefaultItemTTL = 30 * 24 * time.Hour

type Store interface {
	Create(ctx context.Context, item *models.CartItem) error
	FindForUser(ctx context.Context, userID id.UserID, itemID id.CartItemID) (*models.CartItem, error)
	ListActive(ctx context.Context, userID id.UserID) ([]*models.CartItem, error)
	UpdateYears(ctx context.Context, userID id.UserID, itemID id.CartItemID, years int, total id.Money, now time.Time) (*models.CartItem, error)
	Transition(ctx context.Context, userID id.UserID, itemID id.CartItemID, status models.ItemStatus, orderID *string, now time.Time) (*models.CartItem, error)
	RemoveAll(ctx context.Context, userID id.UserID, now time.Time) (int, error)
	ExpireBefore(ctx context.Context, cutoff, now time.Time) ([]id.CartItemID, error)
}

// Lookup supplies the advisory availability and pricing snapshot.
type Lookup interface {
	Check(ctx context.Context, domain string) (*registrar.CheckResult, error)
	Pricing(ctx context.Context, domain string, years int) (*registrar.Pricing, error)
}

// Purchaser buys one arbitrary domain.
type Purchaser interface {
	PurchaseArbitraryDomain(ctx context.Context, actor id.Actor, req purchasemodels.ArbitraryPurchaseRequest) (*purchasemodels.PurchaseRecord, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	lookup         Lookup
	purchaser      Purchaser
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	itemTTL        time.Duration
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

// WithItemTTL sets how long an active item lives before ExpireStale retires it.
func WithItemTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.itemTTL = ttl
		}
	}
}

func New(store Store, lookup Lookup, purchaser Purchaser, opts ...Option) *Service {
	s := &Service{
		store:     store,
		lookup:    lookup,
		purchaser: purchaser,
		logger:    slog.Default(),
		itemTTL:   DefaultItemTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddItem snapshots availability and pricing for domain and adds it to the
// cart. An unavailable domain is still added; the flag is advisory.
func (s *Service) AddItem(ctx context.Context, userID id.UserID, domain string, years int) (*models.CartItem, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user id required")
	}
	req := models.AddItemRequest{Domain: domain, Years: years}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	check, err := s.lookup.Check(ctx, req.Domain)
	if err != nil {
		return nil, err
	}
	pricing, err := s.lookup.Pricing(ctx, check.SLD+"."+check.TLD, req.Years)
	if err != nil {
		return nil, err
	}

	item := models.NewCartItem(userID, check, pricing, req.Years, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, item); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, item.Domain+" is already in the cart")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add cart item")
	}

	if s.metrics != nil {
		s.metrics.IncAdded()
	}
	s.logAudit(ctx, audit.EventCartItemAdded, userID,
		"item_id", item.ID,
		"domain", item.Domain,
		"available_at_check", item.AvailableAtCheck,
	)
	return item, nil
}

// UpdateItem changes the term; the total is RegistrationPrice x years.
func (s *Service) UpdateItem(ctx context.Context, userID id.UserID, itemID id.CartItemID, years int) (*models.CartItem, error) {
	req := models.UpdateItemRequest{Years: years}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	item, err := s.store.FindForUser(ctx, userID, itemID)
	if err != nil {
		return nil, s.translate(err, "update cart item")
	}
	updated, err := s.store.UpdateYears(ctx, userID, itemID, years, item.WithYears(years), requestcontext.Now(ctx))
	if err != nil {
		return nil, s.translate(err, "update cart item")
	}
	return updated, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID id.UserID, itemID id.CartItemID) error {
	item, err := s.store.Transition(ctx, userID, itemID, models.ItemRemoved, nil, requestcontext.Now(ctx))
	if err != nil {
		return s.translate(err, "remove cart item")
	}
	s.logAudit(ctx, audit.EventCartItemRemoved, userID,
		"item_id", item.ID,
		"domain", item.Domain,
	)
	return nil
}

// Clear removes every active item and reports how many were removed.
func (s *Service) Clear(ctx context.Context, userID id.UserID) (int, error) {
	n, err := s.store.RemoveAll(ctx, userID, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear cart")
	}
	s.logAudit(ctx, audit.EventCartCleared, userID, "removed", n)
	return n, nil
}

func (s *Service) List(ctx context.Context, userID id.UserID) ([]*models.CartItem, error) {
	items, err := s.store.ListActive(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cart")
	}
	return items, nil
}

// PurchaseAll checks out each active item independently. A failure leaves
// that item active and does not stop the others.
func (s *Service) PurchaseAll(ctx context.Context, actor id.Actor, registrant purchasemodels.ContactSnapshot) (*models.CheckoutResult, error) {
	items, err := s.List(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	result := &models.CheckoutResult{Purchased: []models.ItemOutcome{}, Failed: []models.ItemOutcome{}}
	for _, item := range items {
		outcome := models.ItemOutcome{ItemID: item.ID, Domain: item.Domain}
		record, err := s.purchaser.PurchaseArbitraryDomain(ctx, actor, purchasemodels.ArbitraryPurchaseRequest{
			Domain:     item.Domain,
			SLD:        item.SLD,
			TLD:        item.TLD,
			Years:      item.Years,
			Registrant: registrant,
		})
		if err != nil {
			outcome.Error = string(dErrors.CodeOf(err))
			result.Failed = append(result.Failed, outcome)
			s.incCheckout("failed")
			s.logger.WarnContext(ctx, "cart item purchase failed",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", actor.UserID,
				"item_id", item.ID,
				"domain", item.Domain,
				"error", err,
			)
			continue
		}

		outcome.OrderID = record.OrderID
		orderID := record.OrderID
		if _, err := s.store.Transition(ctx, actor.UserID, item.ID, models.ItemPurchased, &orderID, requestcontext.Now(ctx)); err != nil {
			// The purchase itself stands; only the cart row is stale.
			s.logger.ErrorContext(ctx, "failed to mark cart item purchased",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", actor.UserID,
				"item_id", item.ID,
				"order_id", orderID,
				"error", err,
			)
		}
		result.Purchased = append(result.Purchased, outcome)
		s.incCheckout("purchased")
	}
	return result, nil
}

// ExpireStale retires active items older than the item TTL.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	ids, err := s.store.ExpireBefore(ctx, now.Add(-s.itemTTL), now)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		if s.metrics != nil {
			s.metrics.AddExpired(len(ids))
		}
		s.logger.InfoContext(ctx, "expired stale cart items", "count", len(ids))
	}
	return len(ids), nil
}

func (s *Service) translate(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "cart item not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "cart item is no longer active")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+op)
	}
}

func (s *Service) incCheckout(outcome string) {
	if s.metrics != nil {
		s.metrics.IncCheckout(outcome)
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
