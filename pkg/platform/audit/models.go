package audit

import (
	"context"
	"time"

	"domainvault/pkg/attrs"
	id "domainvault/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers ownership changes and money movement.
	// Examples: curated purchases, registrar purchases, reconciliation.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events worth alerting on.
	// Examples: admin overrides, reconciliation required.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity such as holds and cart edits.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        id.EventID
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	// ActorID tracks who performed the action when different from UserID,
	// e.g. an admin releasing another user's hold.
	ActorID   string
	Subject   string // domain name, order id or cart item id
	Action    string
	Decision  string // outcome: succeeded, failed, unknown
	Reason    string
	RequestID string
	ClientIP  string
	UserAgent string
}

type AuditEvent string

const (
	// Reservation events
	EventDomainReserved    AuditEvent = "domain_reserved"
	EventDomainReleased    AuditEvent = "domain_released"
	EventReservationsSwept AuditEvent = "reservations_swept"

	// Purchase events
	EventCuratedPurchased      AuditEvent = "curated_domain_purchased"
	EventDomainPurchased       AuditEvent = "domain_purchased"
	EventDomainPurchaseFailed  AuditEvent = "domain_purchase_failed"
	EventReconciliationNeeded  AuditEvent = "reconciliation_required"
	EventPurchaseStatusUpdated AuditEvent = "purchase_status_updated"

	// Cart events
	EventCartItemAdded    AuditEvent = "cart_item_added"
	EventCartItemRemoved  AuditEvent = "cart_item_removed"
	EventCartCleared      AuditEvent = "cart_cleared"
	EventCartItemsExpired AuditEvent = "cart_items_expired"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCuratedPurchased:      CategoryCompliance,
	EventDomainPurchased:       CategoryCompliance,
	EventDomainPurchaseFailed:  CategoryCompliance,
	EventPurchaseStatusUpdated: CategoryCompliance,

	EventReconciliationNeeded: CategorySecurity,

	EventDomainReserved:    CategoryOperations,
	EventDomainReleased:    CategoryOperations,
	EventReservationsSwept: CategoryOperations,
	EventCartItemAdded:     CategoryOperations,
	EventCartItemRemoved:   CategoryOperations,
	EventCartCleared:       CategoryOperations,
	EventCartItemsExpired:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Events are never deleted.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// FromAttributes builds an event from slog-style attributes used for the
// matching audit log line. The subject is the first of domain, order_id or item_id.
func FromAttributes(event AuditEvent, userID id.UserID, attributes []any) Event {
	return Event{
		Category: event.Category(),
		UserID:   userID,
		ActorID:  attrs.ExtractString(attributes, "actor_id"),
		Subject:  attrs.ExtractFirst(attributes, "domain", "order_id", "item_id"),
		Action:   string(event),
		Decision: attrs.ExtractString(attributes, "decision"),
		Reason:   attrs.ExtractString(attributes, "reason"),
	}
}
