package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/efreitasn/minivenue/internal/domain"
)

// Totals sums every account on the ledger.
type Totals struct {
	Accounts         int
	Balance          int64
	Holdings         int64
	ReservedBalance  int64
	ReservedHoldings int64
}

type signupCmd struct {
	Email        string
	PasswordHash []byte
}

func (signupCmd) Name() string { return "signup" }

func (c signupCmd) Apply(_ context.Context, l *state) (struct{}, error) {
	now := l.now()
	err := l.accounts.Create(&domain.Account{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return struct{}{}, err
	}
	l.logger.Info("account created", slog.String("email", c.Email))
	return struct{}{}, nil
}

type credentialsCmd struct {
	Email string
}

func (credentialsCmd) Name() string { return "signin" }

func (c credentialsCmd) Apply(_ context.Context, l *state) ([]byte, error) {
	a, err := l.accounts.Get(c.Email)
	if err != nil {
		return nil, err
	}
	hash := make([]byte, len(a.PasswordHash))
	copy(hash, a.PasswordHash)
	return hash, nil
}

type depositCmd struct {
	Email         string
	DeltaBalance  int64
	DeltaHoldings int64
}

func (depositCmd) Name() string { return "deposit" }

func (c depositCmd) Apply(_ context.Context, l *state) (domain.Account, error) {
	a, err := l.accounts.Get(c.Email)
	if err != nil {
		return domain.Account{}, err
	}
	if err := a.Deposit(c.DeltaBalance, c.DeltaHoldings); err != nil {
		return domain.Account{}, err
	}
	a.UpdatedAt = l.now()
	l.logger.Info("deposit",
		slog.String("email", c.Email),
		slog.Int64("delta_balance", c.DeltaBalance),
		slog.Int64("delta_holdings", c.DeltaHoldings),
		slog.Int64("balance", a.Balance),
		slog.Int64("holdings", a.Holdings),
	)
	return snapshot(a), nil
}

type checkExistsCmd struct {
	Email string
}

func (checkExistsCmd) Name() string { return "check_exists" }

func (c checkExistsCmd) Apply(_ context.Context, l *state) (bool, error) {
	return l.accounts.Exists(c.Email), nil
}

type accountCmd struct {
	Email string
}

func (accountCmd) Name() string { return "account" }

func (c accountCmd) Apply(_ context.Context, l *state) (domain.Account, error) {
	a, err := l.accounts.Get(c.Email)
	if err != nil {
		return domain.Account{}, err
	}
	return snapshot(a), nil
}

type reserveCmd struct {
	Email string
	Side  domain.Side
	Qty   int64
	Price int64
}

func (reserveCmd) Name() string { return "reserve" }

func (c reserveCmd) Apply(_ context.Context, l *state) (struct{}, error) {
	a, err := l.accounts.Get(c.Email)
	if err != nil {
		return struct{}{}, err
	}
	if err := a.Reserve(c.Side, c.Qty, c.Price); err != nil {
		return struct{}{}, err
	}
	a.UpdatedAt = l.now()
	l.logger.Debug("reserved",
		slog.String("email", c.Email),
		slog.String("side", c.Side.String()),
		slog.Int64("qty", c.Qty),
		slog.Int64("price", c.Price),
	)
	return struct{}{}, nil
}

type releaseCmd struct {
	Email string
	Side  domain.Side
	Qty   int64
	Price int64
}

func (releaseCmd) Name() string { return "release" }

func (c releaseCmd) Apply(_ context.Context, l *state) (struct{}, error) {
	a, err := l.accounts.Get(c.Email)
	if err != nil {
		err = fmt.Errorf("%w: release for unknown account %s", domain.ErrEscrowViolation, c.Email)
		l.escrowFault("release", err)
		return struct{}{}, err
	}
	if err := a.Release(c.Side, c.Qty, c.Price); err != nil {
		l.escrowFault("release", err)
		return struct{}{}, err
	}
	a.UpdatedAt = l.now()
	return struct{}{}, nil
}

type settleCmd struct {
	Settlements []domain.Settlement
}

func (settleCmd) Name() string { return "settle" }

// apply runs every settlement against scratch copies of the accounts
// involved and commits the copies only if all of them succeed.
func (c settleCmd) Apply(_ context.Context, l *state) (struct{}, error) {
	scratch := make(map[string]*domain.Account)
	load := func(email string) (*domain.Account, error) {
		if a, ok := scratch[email]; ok {
			return a, nil
		}
		a, err := l.accounts.Get(email)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown account %s", domain.ErrEscrowViolation, email)
		}
		cp := *a
		scratch[email] = &cp
		return &cp, nil
	}

	for i, s := range c.Settlements {
		if err := c.settleOne(s, load); err != nil {
			if !errors.Is(err, domain.ErrEscrowViolation) {
				err = fmt.Errorf("%w: %w", domain.ErrEscrowViolation, err)
			}
			err = fmt.Errorf("settlement %d of %d: %w", i+1, len(c.Settlements), err)
			l.escrowFault("settle", err)
			return struct{}{}, err
		}
	}

	now := l.now()
	for _, a := range scratch {
		a.UpdatedAt = now
		l.accounts.Put(a)
	}
	return struct{}{}, nil
}

func (settleCmd) settleOne(s domain.Settlement, load func(string) (*domain.Account, error)) error {
	if s.Qty <= 0 || s.Price <= 0 || s.BuyerReservedPrice < s.Price {
		return fmt.Errorf("%w: malformed settlement qty=%d price=%d reserved_price=%d",
			domain.ErrEscrowViolation, s.Qty, s.Price, s.BuyerReservedPrice)
	}
	buyer, err := load(s.Buyer)
	if err != nil {
		return err
	}
	if err := buyer.SettleBuy(s.Qty, s.Price, s.BuyerReservedPrice); err != nil {
		return err
	}
	seller, err := load(s.Seller)
	if err != nil {
		return err
	}
	return seller.SettleSell(s.Qty, s.Price)
}

type auditCmd struct{}

func (auditCmd) Name() string { return "audit" }

func (auditCmd) Apply(_ context.Context, l *state) (Totals, error) {
	var (
		totals Totals
		first  error
	)
	l.accounts.Each(func(a *domain.Account) bool {
		totals.Accounts++
		totals.Balance += a.Balance
		totals.Holdings += a.Holdings
		totals.ReservedBalance += a.ReservedBalance
		totals.ReservedHoldings += a.ReservedHoldings
		if err := a.Check(); err != nil && first == nil {
			first = err
		}
		return true
	})
	return totals, first
}

// escrowFault records a consistency fault. These are never retried.
func (l *state) escrowFault(op string, err error) {
	l.metrics.EscrowFaults.Inc()
	l.logger.Error("escrow violation",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

// snapshot copies an account for use outside the ledger goroutine.
func snapshot(a *domain.Account) domain.Account {
	cp := *a
	cp.PasswordHash = nil
	return cp
}
