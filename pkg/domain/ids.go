// Package domain holds identifier and value types shared across features.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "domainvault/pkg/domain-errors"
)

// UserID identifies a user issued by the upstream identity layer.
type UserID uuid.UUID

// CartItemID identifies a cart line item.
type CartItemID uuid.UUID

// EventID identifies an audit event.
type EventID uuid.UUID

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id CartItemID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CartItemID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id CartItemID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CartItemID) UnmarshalText(b []byte) error {
	parsed, err := ParseCartItemID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseUserID validates and converts a user id received at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

// ParseCartItemID validates and converts a cart item id from a request path.
func ParseCartItemID(s string) (CartItemID, error) {
	u, err := parseUUID(s, "cart item ID")
	return CartItemID(u), err
}

const maxIDLength = 64

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return u, nil
}
