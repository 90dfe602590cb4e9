package models

import (
	"strings"
	"time"

	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
)

// Status is the lifecycle state of a curated domain.
// available -> reserved -> purchased; reserved -> available on release or expiry.
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusPurchased Status = "purchased"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusPurchased:
		return true
	}
	return false
}

// Persona is a pre-provisioned mailbox bundled with a curated domain.
type Persona struct {
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Provider    string   `json:"provider"`
	Price       id.Money `json:"price"`
}

// CuratedDomain is a pre-warmed domain from the managed inventory. Rows are never deleted.
type CuratedDomain struct {
	Name             string
	Personas         []Persona
	DomainPrice      id.Money
	EmailPrice       id.Money
	Status           Status
	ReservedUntil    *time.Time
	ReservedBy       *id.UserID
	OwnerUserID      *id.UserID
	ForwardingTarget *string
	PurchasedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewCuratedDomain builds an available domain. Names are stored lower-case.
func NewCuratedDomain(name string, personas []Persona, domainPrice, emailPrice id.Money, now time.Time) (*CuratedDomain, error) {
	name = NormalizeName(name)
	if name == "" || !strings.Contains(name, ".") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "curated domain name must be a fully qualified domain")
	}
	if domainPrice < 0 || emailPrice < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "prices cannot be negative")
	}
	seen := make(map[string]struct{}, len(personas))
	for _, p := range personas {
		key := strings.ToLower(p.Email)
		if key == "" {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "persona email is required")
		}
		if _, dup := seen[key]; dup {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "duplicate persona email "+p.Email)
		}
		seen[key] = struct{}{}
	}
	return &CuratedDomain{
		Name:        name,
		Personas:    personas,
		DomainPrice: domainPrice,
		EmailPrice:  emailPrice,
		Status:      StatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// HoldExpired reports whether a reserved domain's hold has lapsed at now.
func (d *CuratedDomain) HoldExpired(now time.Time) bool {
	return d.Status == StatusReserved && (d.ReservedUntil == nil || !d.ReservedUntil.After(now))
}

// EffectivelyAvailable treats an expired hold as available.
func (d *CuratedDomain) EffectivelyAvailable(now time.Time) bool {
	return d.Status == StatusAvailable || d.HoldExpired(now)
}

// HeldBy reports whether userID holds a live reservation at now.
func (d *CuratedDomain) HeldBy(userID id.UserID, now time.Time) bool {
	return d.Status == StatusReserved && !d.HoldExpired(now) &&
		d.ReservedBy != nil && *d.ReservedBy == userID
}

// CanPurchase is true when the domain is effectively available or held by the buyer.
func (d *CuratedDomain) CanPurchase(buyer id.UserID, now time.Time) bool {
	return d.EffectivelyAvailable(now) || d.HeldBy(buyer, now)
}

// SelectPersonas returns the personas matching emails, in request order.
// Any unknown email fails the whole selection.
func (d *CuratedDomain) SelectPersonas(emails []string) ([]Persona, error) {
	byEmail := make(map[string]Persona, len(d.Personas))
	for _, p := range d.Personas {
		byEmail[strings.ToLower(p.Email)] = p
	}
	selected := make([]Persona, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		key := strings.ToLower(strings.TrimSpace(e))
		p, ok := byEmail[key]
		if !ok {
			return nil, dErrors.New(dErrors.CodeInvalidSelection, "email "+e+" is not offered with "+d.Name)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		selected = append(selected, p)
	}
	return selected, nil
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (d *CuratedDomain) Clone() *CuratedDomain {
	c := *d
	c.Personas = append([]Persona(nil), d.Personas...)
	if d.ReservedUntil != nil {
		t := *d.ReservedUntil
		c.ReservedUntil = &t
	}
	if d.ReservedBy != nil {
		u := *d.ReservedBy
		c.ReservedBy = &u
	}
	if d.OwnerUserID != nil {
		u := *d.OwnerUserID
		c.OwnerUserID = &u
	}
	if d.ForwardingTarget != nil {
		f := *d.ForwardingTarget
		c.ForwardingTarget = &f
	}
	if d.PurchasedAt != nil {
		t := *d.PurchasedAt
		c.PurchasedAt = &t
	}
	return &c
}

// ReservationToken is returned to the caller that won a hold.
type ReservationToken struct {
	Domain        string    `json:"domain"`
	ReservedBy    id.UserID `json:"reserved_by"`
	ReservedUntil time.Time `json:"reserved_until"`
}

// PurchaseCommand carries the fields written by the purchase CAS.
// OwnerUserID is nil when an admin buys on behalf of the platform.
type PurchaseCommand struct {
	Name             string
	Buyer            id.UserID
	OwnerUserID      *id.UserID
	ForwardingTarget *string
	Now              time.Time
}
