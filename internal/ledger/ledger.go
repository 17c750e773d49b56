// Package ledger owns every account on the venue. All reads and writes
// go through a single goroutine that processes commands strictly in
// arrival order; this is the system's only consistency boundary for money.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/efreitasn/minivenue/internal/actor"
	"github.com/efreitasn/minivenue/internal/domain"
	"github.com/efreitasn/minivenue/internal/metrics"
	"github.com/efreitasn/minivenue/internal/store"
)

const (
	defaultMailboxSize = 256
	actorLabel         = "ledger"
)

// Options configures a Ledger. Zero values select defaults.
type Options struct {
	MailboxSize  int
	PasswordCost int
	Now          func() time.Time
}

// state is owned by the ledger goroutine.
type state struct {
	accounts *store.AccountStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Ledger is the account actor. Create it with New and drive it with Run.
type Ledger struct {
	st      *state
	mailbox *actor.Mailbox[*state]
	logger  *slog.Logger
	cost    int
}

// New creates a ledger with no accounts. Commands sent before Run is
// called are queued in the mailbox.
func New(logger *slog.Logger, m *metrics.Metrics, opts Options) *Ledger {
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = defaultMailboxSize
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	logger = logger.With(slog.String("component", actorLabel))

	mailbox := actor.NewMailbox[*state](opts.MailboxSize, actor.Hooks{
		Handled: func(name string, err error) {
			m.LedgerCommands.WithLabelValues(name, string(domain.StatusOf(err))).Inc()
		},
		Depth: func(n int) {
			m.MailboxDepth.WithLabelValues(actorLabel).Set(float64(n))
		},
	})
	return &Ledger{
		st: &state{
			accounts: store.NewAccountStore(),
			logger:   logger,
			metrics:  m,
			now:      opts.Now,
		},
		mailbox: mailbox,
		logger:  logger,
		cost:    opts.PasswordCost,
	}
}

// Run processes commands until ctx is cancelled. It must be called once.
// Requests still queued when Run returns resolve with domain.ErrStopped.
func (l *Ledger) Run(ctx context.Context) error {
	l.logger.Info("ledger started")
	l.mailbox.Serve(ctx, l.st)
	l.logger.Info("ledger stopped")
	return nil
}

// Done is closed once Run has returned.
func (l *Ledger) Done() <-chan struct{} {
	return l.mailbox.Done()
}

// Signup creates an account with zero balance and holdings.
// The password is hashed on the caller's goroutine.
func (l *Ledger) Signup(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return &domain.ValidationError{Message: "password must be at most 72 bytes"}
		}
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = actor.Call[*state, struct{}](ctx, l.mailbox, signupCmd{Email: email, PasswordHash: hash})
	return err
}

// Signin checks the credentials of an existing account. The stored hash
// is fetched from the ledger and compared on the caller's goroutine.
func (l *Ledger) Signin(ctx context.Context, email, password string) error {
	hash, err := actor.Call[*state, []byte](ctx, l.mailbox, credentialsCmd{Email: email})
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return domain.ErrWrongPassword
	}
	return nil
}

// Deposit credits external funding and returns the updated account.
func (l *Ledger) Deposit(ctx context.Context, email string, deltaBalance, deltaHoldings int64) (domain.Account, error) {
	return actor.Call[*state, domain.Account](ctx, l.mailbox, depositCmd{
		Email:         email,
		DeltaBalance:  deltaBalance,
		DeltaHoldings: deltaHoldings,
	})
}

// CheckExists reports whether an account exists.
func (l *Ledger) CheckExists(ctx context.Context, email string) (bool, error) {
	return actor.Call[*state, bool](ctx, l.mailbox, checkExistsCmd{Email: email})
}

// Account returns a copy of the account, without its password hash.
func (l *Ledger) Account(ctx context.Context, email string) (domain.Account, error) {
	return actor.Call[*state, domain.Account](ctx, l.mailbox, accountCmd{Email: email})
}

// Reserve escrows the funds an order needs: qty × price quote units for a
// bid, qty base units for an ask.
func (l *Ledger) Reserve(ctx context.Context, email string, side domain.Side, qty, price int64) error {
	_, err := actor.Call[*state, struct{}](ctx, l.mailbox, reserveCmd{Email: email, Side: side, Qty: qty, Price: price})
	return err
}

// Settle applies a batch of settlements atomically: either every one is
// applied or, on an escrow violation, none is.
func (l *Ledger) Settle(ctx context.Context, settlements ...domain.Settlement) error {
	if len(settlements) == 0 {
		return nil
	}
	batch := make([]domain.Settlement, len(settlements))
	copy(batch, settlements)
	_, err := actor.Call[*state, struct{}](ctx, l.mailbox, settleCmd{Settlements: batch})
	return err
}

// Release returns escrow taken by Reserve.
func (l *Ledger) Release(ctx context.Context, email string, side domain.Side, qty, price int64) error {
	_, err := actor.Call[*state, struct{}](ctx, l.mailbox, releaseCmd{Email: email, Side: side, Qty: qty, Price: price})
	return err
}

// Audit sums every account and verifies the escrow invariants.
func (l *Ledger) Audit(ctx context.Context) (Totals, error) {
	return actor.Call[*state, Totals](ctx, l.mailbox, auditCmd{})
}
