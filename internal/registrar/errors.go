package registrar

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the normalized registrar failure taxonomy.
type Category string

const (
	// CategoryRejected means the registrar answered with ErrCount > 0.
	CategoryRejected Category = "rejected"

	// CategoryTimeout means no answer arrived within the call timeout. The
	// request may have been processed, so a purchase outcome is unknown.
	CategoryTimeout Category = "timeout"

	// CategoryCanceled means the caller gave up after the request was sent.
	// Like a timeout, a purchase outcome is unknown.
	CategoryCanceled Category = "canceled"

	// CategoryUnavailable means the request was not processed: transport
	// failure, 5xx, or the circuit is open.
	CategoryUnavailable Category = "unavailable"

	// CategoryBadResponse means the registrar answered with something we cannot parse.
	CategoryBadResponse Category = "bad_response"
)

// Error wraps a registrar failure with its category, the registrar's own
// code and text when it answered, and the raw body for the logs.
type Error struct {
	Category   Category
	Command    string
	Code       string
	Messages   []string
	Raw        string
	Underlying error
}

func (e *Error) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.Code != "" {
		msg = "code " + e.Code + ": " + msg
	}
	if e.Underlying != nil {
		if msg == "" {
			return fmt.Sprintf("registrar %s [%s]: %v", e.Command, e.Category, e.Underlying)
		}
		return fmt.Sprintf("registrar %s [%s]: %s: %v", e.Command, e.Category, msg, e.Underlying)
	}
	return fmt.Sprintf("registrar %s [%s]: %s", e.Command, e.Category, msg)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category Category, command string, underlying error, messages ...string) *Error {
	return &Error{Category: category, Command: command, Messages: messages, Underlying: underlying}
}

// CategoryOf extracts the category, or "" when err is not a registrar error.
func CategoryOf(err error) Category {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}

// IsTimeout reports whether err is a registrar timeout.
func IsTimeout(err error) bool {
	return CategoryOf(err) == CategoryTimeout
}

// IsAmbiguous reports whether the registrar may have acted on a request whose
// answer never arrived: a timeout or a caller cancellation after sending.
func IsAmbiguous(err error) bool {
	c := CategoryOf(err)
	return c == CategoryTimeout || c == CategoryCanceled
}

// Detail returns the registrar's code and raw body carried by err, if any.
func Detail(err error) (code, raw string) {
	var re *Error
	if errors.As(err, &re) {
		return re.Code, re.Raw
	}
	return "", ""
}

// IsRejected reports whether the registrar explicitly refused the request.
func IsRejected(err error) bool {
	return CategoryOf(err) == CategoryRejected
}
