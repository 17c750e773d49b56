package domain

import "errors"

// Sentinel errors for domain-level error handling.
// StatusOf maps these to the status values returned to callers.
var (
	// Admission errors: reported synchronously, no state mutated.
	ErrAlreadyExists        = errors.New("already_exists")
	ErrNotFound             = errors.New("user_not_found")
	ErrWrongPassword        = errors.New("wrong_password")
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
	ErrMarketNotFound       = errors.New("market_not_found")
	ErrMarketExists         = errors.New("market_exists")
	ErrInvalidOrder         = errors.New("invalid_order")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrAmountOverflow       = errors.New("amount_overflow")
	ErrNoLiquidity          = errors.New("no_liquidity")

	// ErrEscrowViolation is a consistency fault: a settlement or release
	// that cannot be applied against the escrow taken at admission.
	ErrEscrowViolation = errors.New("escrow_violation")

	// ErrInternal is what callers see for consistency faults.
	ErrInternal = errors.New("internal_error")

	// ErrStopped is returned for requests to an actor that has shut down.
	ErrStopped = errors.New("actor_stopped")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
