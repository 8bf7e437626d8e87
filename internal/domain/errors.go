package domain

import "errors"

// Failure taxonomy shared by every component. Handlers map these onto HTTP
// status codes; repositories and services never swallow them.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrCartExpired       = errors.New("cart expired")
	ErrUnavailable       = errors.New("variant unavailable")
	ErrCrossVendor       = errors.New("variant belongs to a different vendor")
	ErrIllegalTransition = errors.New("illegal fulfillment transition")
	ErrConflict          = errors.New("conflicting resource")
	ErrCheckoutBlocked   = errors.New("checkout blocked by validation errors")
)
