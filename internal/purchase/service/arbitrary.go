package service

import (
	"context"
	"errors"

	"domainvault/internal/purchase/models"
	"domainvault/internal/purchase/reconcile"
	"domainvault/internal/registrar"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	"domainvault/pkg/platform/audit"
	"domainvault/pkg/requestcontext"
)

const kindArbitrary = "arbitrary"

// PurchaseArbitraryDomain registers a domain through the registrar and writes
// one pending record keyed by the registrar's order id.
//
// Once the registrar has accepted an order the purchase cannot be undone
// here. A missing order id or a failed record write therefore returns
// CodeReconciliationRequired and queues an entry for an operator. A purchase
// call that times out or is cancelled after sending is reported as
// CodeRegistrar and also queued, since the order may exist.
func (s *Service) PurchaseArbitraryDomain(ctx context.Context, actor id.Actor, req models.ArbitraryPurchaseRequest) (*models.PurchaseRecord, error) {
	if actor.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user id required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	check, err := s.registrar.CheckAvailability(ctx, req.SLD, req.TLD)
	if err != nil {
		s.incPurchase(kindArbitrary, "registrar_error")
		return nil, s.registrarError(ctx, actor, req, "check", err)
	}
	if !check.Available {
		s.incPurchase(kindArbitrary, "not_available")
		return nil, dErrors.New(dErrors.CodeDomainNotAvailable, req.Domain+" is not available for registration")
	}
	pricing, err := s.registrar.GetPricing(ctx, req.SLD, req.TLD, req.Years)
	if err != nil {
		s.incPurchase(kindArbitrary, "registrar_error")
		return nil, s.registrarError(ctx, actor, req, "pricing", err)
	}

	result, err := s.registrar.Purchase(ctx, registrar.PurchaseRequest{
		SLD:     req.SLD,
		TLD:     req.TLD,
		Years:   req.Years,
		Contact: req.Registrant.RegistrarContact(),
	})
	if err != nil {
		if registrar.IsAmbiguous(err) {
			reason := reconcile.ReasonRegistrarTimeout
			if registrar.CategoryOf(err) == registrar.CategoryCanceled {
				reason = reconcile.ReasonCallerCanceled
			}
			s.incPurchase(kindArbitrary, string(registrar.CategoryOf(err)))
			entry := s.newEntry(ctx, reconcile.OutcomeUnknown, reason, actor, req, pricing.Total)
			s.enqueue(ctx, entry, err)
		} else {
			s.incPurchase(kindArbitrary, "registrar_error")
		}
		s.logAudit(ctx, audit.EventDomainPurchaseFailed, actor.UserID,
			"domain", req.Domain,
			"decision", "failed",
			"reason", string(registrar.CategoryOf(err)),
		)
		return nil, s.registrarError(ctx, actor, req, "purchase", err)
	}

	if result.OrderID == "" {
		s.incPurchase(kindArbitrary, "reconciliation_required")
		entry := s.newEntry(ctx, reconcile.OutcomeCommitted, reconcile.ReasonEmptyOrderID, actor, req, pricing.Total)
		entry.RawResponse = result.RawResponse
		return nil, s.reconciliationRequired(ctx, entry, errors.New("registrar returned an empty order id"))
	}

	now := requestcontext.Now(ctx)
	record := &models.PurchaseRecord{
		OrderID:     result.OrderID,
		UserID:      actor.UserID,
		Domain:      req.Domain,
		SLD:         req.SLD,
		TLD:         req.TLD,
		Years:       req.Years,
		Status:      models.RecordPending,
		Price:       pricing.Total,
		Registrant:  req.Registrant,
		RawResponse: result.RawResponse,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.records.Create(ctx, record)
	})
	if err != nil {
		s.incPurchase(kindArbitrary, "reconciliation_required")
		entry := s.newEntry(ctx, reconcile.OutcomeCommitted, reconcile.ReasonRecordWriteFailed, actor, req, pricing.Total)
		entry.OrderID = result.OrderID
		entry.RawResponse = result.RawResponse
		return nil, s.reconciliationRequired(ctx, entry, err)
	}

	s.incPurchase(kindArbitrary, "purchased")
	s.logAudit(ctx, audit.EventDomainPurchased, actor.UserID,
		"domain", record.Domain,
		"order_id", record.OrderID,
		"decision", "purchased",
	)
	return record, nil
}

func (s *Service) newEntry(ctx context.Context, outcome reconcile.Outcome, reason string, actor id.Actor, req models.ArbitraryPurchaseRequest, price id.Money) reconcile.Entry {
	entry := reconcile.NewEntry(outcome, reason, requestcontext.Now(ctx))
	entry.UserID = actor.UserID
	entry.Domain = req.Domain
	entry.Years = req.Years
	entry.Price = price
	entry.Registrant = req.Registrant
	return entry
}

// reconciliationRequired logs the full context an operator needs to settle
// the order by hand, queues the entry and returns the opaque error.
func (s *Service) reconciliationRequired(ctx context.Context, entry reconcile.Entry, cause error) error {
	s.logger.ErrorContext(ctx, "CRITICAL: registrar purchase succeeded but was not recorded",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", entry.UserID,
		"domain", entry.Domain,
		"order_id", entry.OrderID,
		"years", entry.Years,
		"reason", entry.Reason,
		"raw_response", entry.RawResponse,
		"error", cause,
	)
	s.enqueue(ctx, entry, cause)
	s.logAudit(ctx, audit.EventReconciliationNeeded, entry.UserID,
		"domain", entry.Domain,
		"order_id", entry.OrderID,
		"decision", "reconciliation_required",
		"reason", entry.Reason,
	)
	return dErrors.Wrap(cause, dErrors.CodeReconciliationRequired, "purchase requires manual reconciliation")
}

// enqueue runs detached from ctx: the entry must be written even when the
// caller has already gone away.
func (s *Service) enqueue(ctx context.Context, entry reconcile.Entry, cause error) {
	ctx = context.WithoutCancel(ctx)
	if s.metrics != nil {
		s.metrics.IncReconciliation(string(entry.Outcome))
	}
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(ctx, entry); err != nil {
		// The log line above and this one are then the only trace of the order.
		s.logger.ErrorContext(ctx, "CRITICAL: failed to enqueue reconciliation entry",
			"request_id", requestcontext.RequestID(ctx),
			"entry_id", entry.ID,
			"outcome", string(entry.Outcome),
			"user_id", entry.UserID,
			"domain", entry.Domain,
			"order_id", entry.OrderID,
			"cause", cause,
			"error", err,
		)
	}
}

// registrarError logs the registrar detail and returns an opaque
// CodeRegistrar. The category, timeout included, is only visible in the log.
func (s *Service) registrarError(ctx context.Context, actor id.Actor, req models.ArbitraryPurchaseRequest, op string, err error) error {
	code, raw := registrar.Detail(err)
	s.logger.ErrorContext(ctx, "registrar call failed",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", actor.UserID,
		"domain", req.Domain,
		"operation", op,
		"category", string(registrar.CategoryOf(err)),
		"registrar_code", code,
		"raw_response", raw,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeRegistrar, "registrar request failed")
}
