package service

import (
	"context"
	"errors"

	inventorymodels "domainvault/internal/inventory/models"
	"domainvault/internal/purchase/models"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	"domainvault/pkg/platform/audit"
	"domainvault/pkg/platform/sentinel"
	"domainvault/pkg/requestcontext"
)

const kindCurated = "curated"

// PurchaseCuratedDomain buys a curated domain together with a subset of its
// personas. The domain must be effectively available or held by the caller.
// An admin purchase leaves the domain without an owner.
func (s *Service) PurchaseCuratedDomain(ctx context.Context, actor id.Actor, name string, selectedEmails []string, forwarding *string) (*models.CuratedPurchaseResult, error) {
	name = inventorymodels.NormalizeName(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	if actor.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user id required")
	}
	now := requestcontext.Now(ctx)

	d, err := s.curated.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "curated domain not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load curated domain")
	}
	if !d.CanPurchase(actor.UserID, now) {
		s.incPurchase(kindCurated, "not_reserved")
		return nil, dErrors.New(dErrors.CodeNotReservedByCaller, name+" is not reserved by the caller")
	}
	personas, err := d.SelectPersonas(selectedEmails)
	if err != nil {
		s.incPurchase(kindCurated, "invalid_selection")
		return nil, err
	}

	var owner *id.UserID
	if !actor.IsAdmin() {
		buyer := actor.UserID
		owner = &buyer
	}
	purchased, err := s.curated.MarkPurchased(ctx, inventorymodels.PurchaseCommand{
		Name:             name,
		Buyer:            actor.UserID,
		OwnerUserID:      owner,
		ForwardingTarget: forwarding,
		Now:              now,
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			s.incPurchase(kindCurated, "not_reserved")
			return nil, dErrors.New(dErrors.CodeNotReservedByCaller, name+" is not reserved by the caller")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "curated domain not found")
		default:
			s.incPurchase(kindCurated, "error")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purchase curated domain")
		}
	}

	s.incPurchase(kindCurated, "purchased")
	emails := make([]string, 0, len(personas))
	for _, p := range personas {
		emails = append(emails, p.Email)
	}
	attributes := []any{"domain", purchased.Name, "decision", "purchased", "emails", emails}
	if actor.IsAdmin() {
		attributes = append(attributes, "actor_id", actor.UserID.String(), "reason", "admin_purchase")
	}
	s.logAudit(ctx, audit.EventCuratedPurchased, actor.UserID, attributes...)

	return &models.CuratedPurchaseResult{
		Domain:   inventorymodels.ToResponse(purchased, now),
		Personas: personas,
	}, nil
}
