// Package reconcile records purchases whose registrar outcome and internal
// state may disagree, so an operator can settle them.
package reconcile

import (
	"time"

	"github.com/google/uuid"

	"domainvault/internal/purchase/models"
	id "domainvault/pkg/domain"
)

// Outcome says what is known about the registrar side.
type Outcome string

const (
	// OutcomeCommitted: the registrar accepted the order but the record was not written.
	OutcomeCommitted Outcome = "committed"
	// OutcomeUnknown: the answer never arrived; the order may or may not exist.
	OutcomeUnknown Outcome = "unknown"
)

const (
	ReasonRecordWriteFailed = "record_write_failed"
	ReasonEmptyOrderID      = "empty_order_id"
	ReasonRegistrarTimeout  = "registrar_timeout"
	ReasonCallerCanceled    = "caller_canceled"
)

type Entry struct {
	ID          uuid.UUID              `json:"id"`
	Outcome     Outcome                `json:"outcome"`
	Reason      string                 `json:"reason"`
	OrderID     string                 `json:"order_id,omitempty"`
	UserID      id.UserID              `json:"user_id"`
	Domain      string                 `json:"domain"`
	Years       int                    `json:"years"`
	Price       id.Money               `json:"price"`
	Registrant  models.ContactSnapshot `json:"registrant"`
	RawResponse string                 `json:"raw_response,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

func NewEntry(outcome Outcome, reason string, now time.Time) Entry {
	return Entry{ID: uuid.New(), Outcome: outcome, Reason: reason, CreatedAt: now}
}
