package sip

import "github.com/nksip/sipcore/internal/errorutil"

// Common errors.
const (
	ErrInvalidArgument = errorutil.ErrInvalidArgument
)

// Transaction errors.
const (
	ErrTransactionNotFound Error = "transaction not found"
)

// Transport errors.
const (
	// ErrNoTransport is returned when no transport is resolved for a send.
	ErrNoTransport Error = "no transport resolved"
)

// ErrTooManyHops is the reason text the Request Validator's 483 reply
// carries (§4.2). The corresponding 420/421 replies carry the offending
// extension token itself rather than a fixed reason, so they have no
// matching constant here.
const ErrTooManyHops Error = "too many hops"

// Error represents a SIP error.
// See [errorutil.Error].
type Error = errorutil.Error

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}
