// Package service validates caller requests and turns them into core
// commands. It never holds venue state of its own.
package service

import (
	"context"
	"regexp"
	"time"

	"github.com/efreitasn/minivenue/internal/domain"
)

var emailRegex = regexp.MustCompile(`^[^@\s]{1,64}@[^@\s]{1,255}$`)

// Ledger is the account surface the services use. *ledger.Ledger
// satisfies it.
type Ledger interface {
	Signup(ctx context.Context, email, password string) error
	Signin(ctx context.Context, email, password string) error
	Deposit(ctx context.Context, email string, deltaBalance, deltaHoldings int64) (domain.Account, error)
	CheckExists(ctx context.Context, email string) (bool, error)
	Account(ctx context.Context, email string) (domain.Account, error)
}

// AccountService handles signup, signin, funding and balance queries.
type AccountService struct {
	ledger  Ledger
	timeout time.Duration
}

// NewAccountService creates an AccountService. Each request waits at most
// timeout for the ledger's reply.
func NewAccountService(ledger Ledger, timeout time.Duration) *AccountService {
	return &AccountService{ledger: ledger, timeout: timeout}
}

// Signup creates an account.
func (s *AccountService) Signup(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.ledger.Signup(ctx, email, password)
}

// Signin checks credentials.
func (s *AccountService) Signin(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.ledger.Signin(ctx, email, password)
}

// OnRamp deposits quote balance and base holdings into an account and
// returns the updated account.
func (s *AccountService) OnRamp(ctx context.Context, email string, balance, holdings int64) (domain.Account, error) {
	if !emailRegex.MatchString(email) {
		return domain.Account{}, &domain.ValidationError{Message: "user_email must be a valid email address"}
	}
	if balance < 0 || holdings < 0 {
		return domain.Account{}, &domain.ValidationError{Message: "balance and holdings must be >= 0"}
	}
	if balance == 0 && holdings == 0 {
		return domain.Account{}, &domain.ValidationError{Message: "balance or holdings must be > 0"}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.ledger.Deposit(ctx, email, balance, holdings)
}

// Account returns the account's balances.
func (s *AccountService) Account(ctx context.Context, email string) (domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.ledger.Account(ctx, email)
}

func validateCredentials(email, password string) error {
	if !emailRegex.MatchString(email) {
		return &domain.ValidationError{Message: "email must be a valid email address"}
	}
	if password == "" {
		return &domain.ValidationError{Message: "password is required"}
	}
	return nil
}
