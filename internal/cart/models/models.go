package models

import (
	"time"

	"github.com/google/uuid"

	purchasemodels "domainvault/internal/purchase/models"
	"domainvault/internal/registrar"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
)

type ItemStatus string

const (
	ItemActive    ItemStatus = "active"
	ItemPurchased ItemStatus = "purchased"
	ItemRemoved   ItemStatus = "removed"
	ItemExpired   ItemStatus = "expired"
)

const (
	MinYears = 1
	MaxYears = 10
)

// CartItem is a priced intent to buy an arbitrary domain. The availability
// and prices are a snapshot taken when the item was added and are advisory.
type CartItem struct {
	ID                id.CartItemID `json:"id"`
	UserID            id.UserID     `json:"user_id"`
	Domain            string        `json:"domain"`
	SLD               string        `json:"sld"`
	TLD               string        `json:"tld"`
	AvailableAtCheck  bool          `json:"available_at_check"`
	RegistrationPrice id.Money      `json:"registration_price"`
	RenewalPrice      id.Money      `json:"renewal_price"`
	TotalPrice        id.Money      `json:"total_price"`
	Years             int           `json:"years"`
	RegistrarItemRef  string        `json:"registrar_item_ref,omitempty"`
	Status            ItemStatus    `json:"status"`
	OrderID           *string       `json:"order_id,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// NewCartItem builds an active item from a live lookup snapshot.
func NewCartItem(userID id.UserID, check *registrar.CheckResult, pricing *registrar.Pricing, years int, now time.Time) *CartItem {
	return &CartItem{
		ID:                id.CartItemID(uuid.New()),
		UserID:            userID,
		Domain:            check.SLD + "." + check.TLD,
		SLD:               check.SLD,
		TLD:               check.TLD,
		AvailableAtCheck:  check.Available,
		RegistrationPrice: pricing.RegistrationPrice,
		RenewalPrice:      pricing.RenewalPrice,
		TotalPrice:        pricing.RegistrationPrice.Times(years),
		Years:             years,
		Status:            ItemActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// WithYears returns the total for a new term length.
func (i *CartItem) WithYears(years int) id.Money {
	return i.RegistrationPrice.Times(years)
}

func (i *CartItem) Clone() *CartItem {
	c := *i
	if i.OrderID != nil {
		o := *i.OrderID
		c.OrderID = &o
	}
	return &c
}

func validateYears(years int) error {
	if years < MinYears || years > MaxYears {
		return dErrors.New(dErrors.CodeValidation, "years must be between 1 and 10")
	}
	return nil
}

type AddItemRequest struct {
	Domain string `json:"domain"`
	Years  int    `json:"years"`
}

func (r *AddItemRequest) Validate() error {
	if r.Domain == "" {
		return dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	if r.Years == 0 {
		r.Years = MinYears
	}
	return validateYears(r.Years)
}

type UpdateItemRequest struct {
	Years int `json:"years"`
}

func (r *UpdateItemRequest) Validate() error {
	return validateYears(r.Years)
}

type PurchaseAllRequest struct {
	Registrant purchasemodels.ContactSnapshot `json:"registrant"`
}

func (r *PurchaseAllRequest) Validate() error {
	return r.Registrant.Validate()
}

type CartResponse struct {
	Items []*CartItem `json:"items"`
	Total id.Money    `json:"total"`
}

func NewCartResponse(items []*CartItem) CartResponse {
	var total id.Money
	for _, i := range items {
		total += i.TotalPrice
	}
	if items == nil {
		items = []*CartItem{}
	}
	return CartResponse{Items: items, Total: total}
}

// ItemOutcome reports what happened to one item during checkout.
type ItemOutcome struct {
	ItemID  id.CartItemID `json:"item_id"`
	Domain  string        `json:"domain"`
	OrderID string        `json:"order_id,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// CheckoutResult lists purchased and failed items. Failed items stay active.
type CheckoutResult struct {
	Purchased []ItemOutcome `json:"purchased"`
	Failed    []ItemOutcome `json:"failed"`
}
