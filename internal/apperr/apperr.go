// Package apperr is the typed error taxonomy shared by the dispatch core and its transports.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindRideAlreadyTaken  Kind = "RIDE_ALREADY_TAKEN"
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindFraudSuspension   Kind = "FRAUD_SUSPENSION"
	KindAccountBlocked    Kind = "ACCOUNT_BLOCKED"
	KindDuplicateUser     Kind = "DUPLICATE_USER"
	KindForbidden         Kind = "FORBIDDEN"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindMaintenance       Kind = "MAINTENANCE"
	KindConfiguration     Kind = "CONFIGURATION"
)

// Error carries a kind, a human readable message and details a UI can render.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// With adds a detail and returns e for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func Validation(msg string) *Error { return New(KindValidation, msg) }

func NotFound(entity, id string) *Error {
	return Newf(KindNotFound, "%s %s not found", entity, id).With("entity", entity).With("id", id)
}

func InvalidTransition(from, to string) *Error {
	return Newf(KindInvalidTransition, "cannot move ride from %s to %s", from, to).
		With("from", from).With("to", to)
}

func RideAlreadyTaken(rideID string) *Error {
	return Newf(KindRideAlreadyTaken, "ride %s has already been taken", rideID).With("ride_id", rideID)
}

func InsufficientFunds(requested, balance float64) *Error {
	return Newf(KindInsufficientFunds, "withdrawal of %.2f exceeds wallet balance of %.2f", requested, balance).
		With("requested", requested).
		With("balance", balance).
		With("deficit", requested-balance)
}

func FraudSuspension(reason string) *Error {
	return New(KindFraudSuspension, "account suspended: "+reason).With("reason", reason)
}

func AccountBlocked(status, reason string) *Error {
	e := Newf(KindAccountBlocked, "account is %s", status).With("status", status)
	if reason != "" {
		e.Message += ": " + reason
		e.With("reason", reason)
	}
	return e
}

func IPBlocked(ip string) *Error {
	return New(KindAccountBlocked, "requests from this address are blocked").With("ip", ip)
}

func DuplicateUser(field, value string) *Error {
	return Newf(KindDuplicateUser, "%s %s is already registered", field, value).
		With("field", field).With("value", value)
}

func Forbidden(msg string) *Error { return New(KindForbidden, msg) }

func Configuration(msg string) *Error { return New(KindConfiguration, msg) }
