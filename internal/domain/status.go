package domain

import (
	"context"
	"errors"
)

// Status is the terminal outcome of a core command, as reported to callers.
type Status string

const (
	StatusOk                   Status = "Ok"
	StatusCreated              Status = "Created"
	StatusAuthenticated        Status = "Authenticated"
	StatusAlreadyExists        Status = "AlreadyExists"
	StatusWrongPassword        Status = "WrongPassword"
	StatusInsufficientFunds    Status = "InsufficientFunds"
	StatusInsufficientHoldings Status = "InsufficientHoldings"
	StatusMarketNotFound       Status = "MarketNotFound"
	StatusUserNotFound         Status = "UserNotFound"
	StatusInvalidOrder         Status = "InvalidOrder"
	StatusNoLiquidity          Status = "NoLiquidity"
	StatusInternalError        Status = "InternalError"
)

// StatusOf classifies err. A nil error is StatusOk. Anything that is not a
// known admission error, including transport faults such as a stopped actor
// or an expired context, is StatusInternalError.
func StatusOf(err error) Status {
	var verr *ValidationError
	switch {
	case err == nil:
		return StatusOk
	case errors.Is(err, ErrEscrowViolation),
		errors.Is(err, ErrInternal),
		errors.Is(err, ErrStopped),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		// Faults may wrap an admission error as their cause.
		return StatusInternalError
	case errors.Is(err, ErrAlreadyExists):
		return StatusAlreadyExists
	case errors.Is(err, ErrWrongPassword):
		return StatusWrongPassword
	case errors.Is(err, ErrNotFound):
		return StatusUserNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return StatusInsufficientFunds
	case errors.Is(err, ErrInsufficientHoldings):
		return StatusInsufficientHoldings
	case errors.Is(err, ErrMarketNotFound):
		return StatusMarketNotFound
	case errors.Is(err, ErrNoLiquidity):
		return StatusNoLiquidity
	case errors.Is(err, ErrInvalidOrder),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrAmountOverflow),
		errors.As(err, &verr):
		return StatusInvalidOrder
	}
	return StatusInternalError
}
