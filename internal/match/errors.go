package match

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("this match is no longer available")
	ErrAuthorization     = errors.New("not allowed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")

	// ErrMatchesDisabled is returned by creation while the platform toggle is off.
	ErrMatchesDisabled = errors.New("matches are currently disabled")
)
