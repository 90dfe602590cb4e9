package service

import (
	"context"
	"errors"
	"time"

	"domainvault/internal/purchase/models"
	"domainvault/internal/purchase/reconcile"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	"domainvault/pkg/platform/audit"
	"domainvault/pkg/platform/sentinel"
	"domainvault/pkg/requestcontext"
)

// ListPurchases returns the caller's purchase records, newest first.
func (s *Service) ListPurchases(ctx context.Context, userID id.UserID) ([]*models.PurchaseRecord, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user id required")
	}
	records, err := s.records.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list purchases")
	}
	return records, nil
}

// UpdateRecordStatus advances a record after an operator has confirmed the
// registrar side. It never contacts the registrar.
func (s *Service) UpdateRecordStatus(ctx context.Context, actor id.Actor, orderID string, status models.RecordStatus, expiration *time.Time) (*models.PurchaseRecord, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin role required")
	}
	if orderID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "order id is required")
	}
	current, err := s.records.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "purchase record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load purchase record")
	}
	updated, err := s.records.UpdateStatus(ctx, orderID, current.Status, status, expiration, requestcontext.Now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "cannot move purchase from "+string(current.Status)+" to "+string(status))
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "purchase record changed concurrently")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "purchase record not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update purchase record")
		}
	}

	s.logAudit(ctx, audit.EventPurchaseStatusUpdated, updated.UserID,
		"order_id", updated.OrderID,
		"domain", updated.Domain,
		"decision", string(updated.Status),
		"actor_id", actor.UserID.String(),
		"previous_status", string(current.Status),
	)
	return updated, nil
}

// ListReconciliation returns queued reconciliation entries for admins.
func (s *Service) ListReconciliation(ctx context.Context, actor id.Actor) ([]reconcile.Entry, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin role required")
	}
	if s.ledger == nil {
		return []reconcile.Entry{}, nil
	}
	entries, err := s.ledger.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reconciliation entries")
	}
	if entries == nil {
		entries = []reconcile.Entry{}
	}
	return entries, nil
}
