package domain

import "errors"

// Kind is a stable, machine-readable error identifier.
// Callers translate kinds into user-facing text.
type Kind string

const (
	KindSelfReference      Kind = "SELF_REFERENCE"
	KindSponsorNotFound    Kind = "SPONSOR_NOT_FOUND"
	KindCycleDetected      Kind = "CYCLE_DETECTED"
	KindMemberNotFound     Kind = "MEMBER_NOT_FOUND"
	KindInvalidCode        Kind = "INVALID_CODE"
	KindEmailTaken         Kind = "EMAIL_TAKEN"
	KindForbidden          Kind = "FORBIDDEN"
	KindHasChildren        Kind = "HAS_CHILDREN"
	KindInvalidStatus      Kind = "INVALID_STATUS"
	KindInvalidRole        Kind = "INVALID_ROLE"
	KindInvalidAmount      Kind = "INVALID_AMOUNT"
	KindTreeNotEmpty       Kind = "TREE_NOT_EMPTY"
	KindCodeExhausted      Kind = "CODE_EXHAUSTED"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindSponsorInactive    Kind = "SPONSOR_INACTIVE"
	KindBookingConflict    Kind = "BOOKING_CONFLICT"
)

// Error carries a Kind
type Error struct {
	Kind Kind
}

func (e *Error) Error() string {
	return string(e.Kind)
}

// Validation errors
var (
	ErrSelfReference   = &Error{Kind: KindSelfReference}
	ErrSponsorNotFound = &Error{Kind: KindSponsorNotFound}
	ErrCycleDetected   = &Error{Kind: KindCycleDetected}
	ErrInvalidCode     = &Error{Kind: KindInvalidCode}
	ErrEmailTaken      = &Error{Kind: KindEmailTaken}
	ErrHasChildren     = &Error{Kind: KindHasChildren}
	ErrInvalidStatus   = &Error{Kind: KindInvalidStatus}
	ErrInvalidRole     = &Error{Kind: KindInvalidRole}
	ErrInvalidAmount   = &Error{Kind: KindInvalidAmount}
	ErrTreeNotEmpty    = &Error{Kind: KindTreeNotEmpty}
	ErrSponsorInactive = &Error{Kind: KindSponsorInactive}
	ErrBookingConflict = &Error{Kind: KindBookingConflict}
)

// Access / lookup errors
var (
	ErrMemberNotFound     = &Error{Kind: KindMemberNotFound}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
)

// ErrCodeExhausted is fatal: no unique invite code could be generated
var ErrCodeExhausted = &Error{Kind: KindCodeExhausted}

// KindOf returns the Kind of err, or "" for untyped (store-level) errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
