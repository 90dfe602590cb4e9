package service

import (
	"context"
	"errors"
	"strings"

	"domainvault/internal/inventory/models"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	"domainvault/pkg/platform/sentinel"
	"domainvault/pkg/requestcontext"
)

// Registry answers read-only questions about the curated inventory.
type Registry struct {
	domains Store
	opts    options
}

func NewRegistry(domains Store, opts ...Option) *Registry {
	return &Registry{domains: domains, opts: buildOptions(opts)}
}

// ListAvailable returns domains that are available now, including those whose
// hold has lapsed, filtered by a case-insensitive substring of the name.
func (r *Registry) ListAvailable(ctx context.Context, search string) ([]*models.CuratedDomain, error) {
	domains, err := r.domains.ListAvailable(ctx, requestcontext.Now(ctx), strings.TrimSpace(search))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list curated domains")
	}
	return domains, nil
}

// GetEmailsForDomain returns the personas of a domain whatever its status.
// An unknown domain yields an empty list.
func (r *Registry) GetEmailsForDomain(ctx context.Context, name string) ([]models.Persona, error) {
	d, err := r.domains.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return []models.Persona{}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load curated domain")
	}
	if d.Personas == nil {
		return []models.Persona{}, nil
	}
	return d.Personas, nil
}

// ListOwned returns the curated domains purchased by userID.
func (r *Registry) ListOwned(ctx context.Context, userID id.UserID) ([]*models.CuratedDomain, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user id required")
	}
	domains, err := r.domains.ListByOwner(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list owned domains")
	}
	return domains, nil
}
