package errors

import "errors"

// Domain errors surfaced by the ticket lifecycle, payment reconciliation
// and admin operations. Handlers map these to HTTP status codes.
var (
	ErrInvalidNumber      = errors.New("ticket number must be two digits")
	ErrNotFound           = errors.New("record not found")
	ErrNotAvailable       = errors.New("ticket is no longer available")
	ErrMissingBuyerFields = errors.New("buyer name and phone are required")
	ErrAccessDenied       = errors.New("access denied")
	ErrAlreadyFinalized   = errors.New("drawing is already finalized")
	ErrInvalidSignature   = errors.New("notification signature is invalid")
	ErrGatewayUnavailable = errors.New("payment gateway request failed")
)
