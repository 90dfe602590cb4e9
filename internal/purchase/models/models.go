package models

import (
	"strings"
	"time"

	"domainvault/internal/inventory/models"
	"domainvault/internal/registrar"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
)

// RecordStatus is the registrar-side lifecycle of a purchased domain.
type RecordStatus string

const (
	RecordPending RecordStatus = "pending"
	RecordActive  RecordStatus = "active"
	RecordFailed  RecordStatus = "failed"
	RecordExpired RecordStatus = "expired"
)

func (s RecordStatus) IsValid() bool {
	switch s {
	case RecordPending, RecordActive, RecordFailed, RecordExpired:
		return true
	}
	return false
}

// CanTransitionTo encodes pending -> active|failed and active -> expired.
func (s RecordStatus) CanTransitionTo(next RecordStatus) bool {
	switch s {
	case RecordPending:
		return next == RecordActive || next == RecordFailed
	case RecordActive:
		return next == RecordExpired
	}
	return false
}

// ContactSnapshot is the registrant as submitted at purchase time. It is
// copied into the record and never linked to a live contact.
type ContactSnapshot struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Organization string `json:"organization,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

func (c *ContactSnapshot) Validate() error {
	required := []struct{ field, value string }{
		{"first_name", c.FirstName},
		{"last_name", c.LastName},
		{"email", c.Email},
		{"phone", c.Phone},
		{"address1", c.Address1},
		{"city", c.City},
		{"postal_code", c.PostalCode},
		{"country", c.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return dErrors.New(dErrors.CodeValidation, "registrant "+r.field+" is required")
		}
	}
	if !strings.Contains(c.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "registrant email is invalid")
	}
	if len(strings.TrimSpace(c.Country)) != 2 {
		return dErrors.New(dErrors.CodeValidation, "registrant country must be a two-letter code")
	}
	c.Country = strings.ToUpper(strings.TrimSpace(c.Country))
	return nil
}

// RegistrarContact converts the snapshot to the gateway's contact.
func (c ContactSnapshot) RegistrarContact() registrar.Contact {
	return registrar.Contact{
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Organization: c.Organization,
		Email:        c.Email,
		Phone:        c.Phone,
		Address1:     c.Address1,
		Address2:     c.Address2,
		City:         c.City,
		State:        c.State,
		PostalCode:   c.PostalCode,
		Country:      c.Country,
	}
}

// PurchaseRecord is written once per registrar order id.
type PurchaseRecord struct {
	OrderID        string          `json:"order_id"`
	UserID         id.UserID       `json:"user_id"`
	Domain         string          `json:"domain"`
	SLD            string          `json:"sld"`
	TLD            string          `json:"tld"`
	Years          int             `json:"years"`
	Status         RecordStatus    `json:"status"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty"`
	Price          id.Money        `json:"price"`
	Registrant     ContactSnapshot `json:"registrant"`
	RawResponse    string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ArbitraryPurchaseRequest buys a registrar-backed domain. Domain may be given
// whole or as sld/tld; Validate fills SLD and TLD.
type ArbitraryPurchaseRequest struct {
	Domain     string          `json:"domain,omitempty"`
	SLD        string          `json:"sld,omitempty"`
	TLD        string          `json:"tld,omitempty"`
	Years      int             `json:"years"`
	Registrant ContactSnapshot `json:"registrant"`
}

func (r *ArbitraryPurchaseRequest) Validate() error {
	raw := r.Domain
	if raw == "" {
		if r.SLD == "" || r.TLD == "" {
			return dErrors.New(dErrors.CodeValidation, "domain or sld and tld are required")
		}
		raw = r.SLD + "." + r.TLD
	}
	pair, err := registrar.ParseDomain(raw)
	if err != nil {
		return err
	}
	r.SLD, r.TLD, r.Domain = pair.SLD, pair.TLD, pair.String()
	if r.Years == 0 {
		r.Years = 1
	}
	if r.Years < 1 || r.Years > 10 {
		return dErrors.New(dErrors.CodeValidation, "years must be between 1 and 10")
	}
	return r.Registrant.Validate()
}

// CuratedPurchaseRequest is the body of a curated purchase.
type CuratedPurchaseRequest struct {
	SelectedEmails   []string `json:"selected_emails"`
	ForwardingTarget *string  `json:"forwarding_target,omitempty"`
}

func (r *CuratedPurchaseRequest) Validate() error {
	if r.ForwardingTarget != nil {
		t := strings.TrimSpace(*r.ForwardingTarget)
		if t == "" {
			r.ForwardingTarget = nil
		} else {
			r.ForwardingTarget = &t
		}
	}
	return nil
}

// CuratedPurchaseResult is the purchased domain plus the personas the buyer chose.
type CuratedPurchaseResult struct {
	Domain   models.CuratedDomainResponse `json:"domain"`
	Personas []models.Persona             `json:"personas"`
}

// UpdateStatusRequest is the admin reconciliation body.
type UpdateStatusRequest struct {
	Status         RecordStatus `json:"status"`
	ExpirationDate *time.Time   `json:"expiration_date,omitempty"`
}

func (r *UpdateStatusRequest) Validate() error {
	if !r.Status.IsValid() || r.Status == RecordPending {
		return dErrors.New(dErrors.CodeValidation, "status must be active, failed or expired")
	}
	return nil
}

type PurchaseListResponse struct {
	Purchases []*PurchaseRecord `json:"purchases"`
}
