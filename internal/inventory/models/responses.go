package models

import (
	"time"

	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
)

// CuratedDomainResponse is the public view of a curated domain.
// Holder identity is never exposed to other users.
type CuratedDomainResponse struct {
	Name             string     `json:"name"`
	Status           Status     `json:"status"`
	DomainPrice      id.Money   `json:"domain_price"`
	EmailPrice       id.Money   `json:"email_price"`
	Personas         []Persona  `json:"personas"`
	ForwardingTarget *string    `json:"forwarding_target,omitempty"`
	PurchasedAt      *time.Time `json:"purchased_at,omitempty"`
}

// ToResponse renders d as seen at now: an expired hold is reported as available.
func ToResponse(d *CuratedDomain, now time.Time) CuratedDomainResponse {
	status := d.Status
	if d.HoldExpired(now) {
		status = StatusAvailable
	}
	personas := d.Personas
	if personas == nil {
		personas = []Persona{}
	}
	return CuratedDomainResponse{
		Name:             d.Name,
		Status:           status,
		DomainPrice:      d.DomainPrice,
		EmailPrice:       d.EmailPrice,
		Personas:         personas,
		ForwardingTarget: d.ForwardingTarget,
		PurchasedAt:      d.PurchasedAt,
	}
}

type ListResponse struct {
	Domains []CuratedDomainResponse `json:"domains"`
}

type EmailsResponse struct {
	Domain   string    `json:"domain"`
	Personas []Persona `json:"personas"`
}

type ReserveRequest struct {
	TTLSeconds int `json:"ttl_seconds"`
}

// Validate rejects negative TTLs; zero means the configured default.
func (r *ReserveRequest) Validate() error {
	if r.TTLSeconds < 0 {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds cannot be negative")
	}
	return nil
}

func (r *ReserveRequest) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}
