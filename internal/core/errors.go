package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger wraps exactly one of them.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error carries the kind plus the offending entity or field so callers can
// render a specific message.
type Error struct {
	Kind   error
	Entity string // "account", "budget", "household", or a field name
	ID     string
	Reason string
}

func (e *Error) Error() string {
	switch {
	case e.ID != "" && e.Reason != "":
		return fmt.Sprintf("%s %s %q: %s", e.Kind, e.Entity, e.ID, e.Reason)
	case e.ID != "":
		return fmt.Sprintf("%s %q %s", e.Entity, e.ID, e.Kind)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Reason)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Entity)
	}
}

func (e *Error) Unwrap() error { return e.Kind }

// NotFound reports an unknown id.
func NotFound(entity, id string) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id}
}

// Forbidden reports that userID is not a member of householdID.
func Forbidden(userID, householdID string) error {
	return &Error{
		Kind:   ErrForbidden,
		Entity: "household",
		ID:     householdID,
		Reason: fmt.Sprintf("user %q is not a member", userID),
	}
}

// InvalidArgument reports a rejected input field.
func InvalidArgument(field, reason string) error {
	return &Error{Kind: ErrInvalidArgument, Entity: field, Reason: reason}
}
