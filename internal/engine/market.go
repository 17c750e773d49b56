package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/minivenue/internal/actor"
	"github.com/efreitasn/minivenue/internal/domain"
	"github.com/efreitasn/minivenue/internal/metrics"
	"github.com/efreitasn/minivenue/internal/store"
)

const (
	defaultMailboxSize = 256
	defaultTapeSize    = 1024
)

// Escrow is the ledger surface a market needs. *ledger.Ledger satisfies it.
type Escrow interface {
	Reserve(ctx context.Context, email string, side domain.Side, qty, price int64) error
	Settle(ctx context.Context, settlements ...domain.Settlement) error
	Release(ctx context.Context, email string, side domain.Side, qty, price int64) error
}

// MarketOptions configures a Market. Zero values select defaults.
type MarketOptions struct {
	MailboxSize int
	TapeSize    int
	Now         func() time.Time
}

func (o MarketOptions) withDefaults() MarketOptions {
	if o.MailboxSize <= 0 {
		o.MailboxSize = defaultMailboxSize
	}
	if o.TapeSize <= 0 {
		o.TapeSize = defaultTapeSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Execution is the outcome of an admitted order.
type Execution struct {
	OrderID uint64
	Fills   []domain.Trade
	// Remaining is the quantity left resting on the book (limit orders).
	Remaining int64
	// Unfilled is the quantity whose escrow was released (market orders).
	Unfilled int64
}

// FilledQty sums the quantity of every fill.
func (e Execution) FilledQty() int64 {
	var total int64
	for _, t := range e.Fills {
		total += t.Qty
	}
	return total
}

// market is the state owned by a market goroutine.
type market struct {
	id     uint64
	label  string
	book   *orderBook
	tape   *store.TradeTape
	escrow Escrow

	nextOrderID uint64
	nextSeq     uint64

	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Market is the actor owning one market's order book. All matching for
// the market happens on its goroutine, in mailbox arrival order.
type Market struct {
	id      uint64
	st      *market
	mailbox *actor.Mailbox[*market]
	logger  *slog.Logger
}

// NewMarket creates a market with an empty book. Requests are queued until
// Run is called.
func NewMarket(id uint64, escrow Escrow, logger *slog.Logger, m *metrics.Metrics, opts MarketOptions) *Market {
	opts = opts.withDefaults()
	if m == nil {
		m = metrics.NewUnregistered()
	}
	label := strconv.FormatUint(id, 10)
	logger = logger.With(slog.String("component", "market"), slog.Uint64("market_id", id))

	mailbox := actor.NewMailbox[*market](opts.MailboxSize, actor.Hooks{
		Handled: func(name string, err error) {
			if name == kindLimit || name == kindMarket {
				m.Orders.WithLabelValues(label, name, string(domain.StatusOf(err))).Inc()
			}
		},
		Depth: func(n int) {
			m.MailboxDepth.WithLabelValues("market_" + label).Set(float64(n))
		},
	})
	return &Market{
		id: id,
		st: &market{
			id:          id,
			label:       label,
			book:        newOrderBook(),
			tape:        store.NewTradeTape(opts.TapeSize),
			escrow:      escrow,
			nextOrderID: 1,
			nextSeq:     1,
			logger:      logger,
			metrics:     m,
			now:         opts.Now,
		},
		mailbox: mailbox,
		logger:  logger,
	}
}

// ID returns the market id.
func (m *Market) ID() uint64 {
	return m.id
}

// Run processes requests until ctx is cancelled. A request already being
// handled runs to completion, ledger calls included, before Run returns.
func (m *Market) Run(ctx context.Context) error {
	m.logger.Info("market started")
	m.mailbox.Serve(ctx, m.st)
	m.logger.Info("market stopped")
	return nil
}

// Done is closed once Run has returned.
func (m *Market) Done() <-chan struct{} {
	return m.mailbox.Done()
}

// PlaceLimit admits a limit order: its full quantity is reserved at price,
// it matches against the opposite side while prices cross, and any
// remainder rests on the book.
func (m *Market) PlaceLimit(ctx context.Context, owner string, side domain.Side, qty, price int64) (Execution, error) {
	return actor.Call[*market, Execution](ctx, m.mailbox, placeLimitCmd{
		Owner: owner,
		Side:  side,
		Qty:   qty,
		Price: price,
	})
}

// PlaceMarket admits a market order. It matches immediately, never beyond
// bound when one is given, and never rests: the unfilled part is released.
func (m *Market) PlaceMarket(ctx context.Context, owner string, side domain.Side, qty int64, bound *int64) (Execution, error) {
	cmd := placeMarketCmd{Owner: owner, Side: side, Qty: qty}
	if bound != nil {
		b := *bound
		cmd.Bound = &b
	}
	return actor.Call[*market, Execution](ctx, m.mailbox, cmd)
}

// Book returns the aggregated depth, at most depth levels per side.
// A depth <= 0 returns every level.
func (m *Market) Book(ctx context.Context, depth int) (domain.Depth, error) {
	return actor.Call[*market, domain.Depth](ctx, m.mailbox, bookCmd{Depth: depth})
}

// Trades returns up to limit of the most recent trades, oldest first.
func (m *Market) Trades(ctx context.Context, limit int) ([]domain.Trade, error) {
	return actor.Call[*market, []domain.Trade](ctx, m.mailbox, tradesCmd{Limit: limit})
}

// admit assigns the next order id and sequence.
func (s *market) admit(owner string, side domain.Side, kind domain.OrderKind, qty int64) *domain.Order {
	o := &domain.Order{
		ID:           s.nextOrderID,
		Owner:        owner,
		Side:         side,
		Kind:         kind,
		OriginalQty:  qty,
		RemainingQty: qty,
		Sequence:     s.nextSeq,
		CreatedAt:    s.now(),
	}
	s.nextOrderID++
	s.nextSeq++
	return o
}

// execute settles the planned fills for incoming in one ledger call and,
// only if that succeeds, applies them to the book. reservedPrice is the
// per-unit price at which an incoming bid's escrow was taken.
func (s *market) execute(ctx context.Context, incoming *domain.Order, fills []fill, reservedPrice int64) ([]domain.Trade, error) {
	if len(fills) == 0 {
		return nil, nil
	}
	settlements := make([]domain.Settlement, len(fills))
	for i, f := range fills {
		st := domain.Settlement{Qty: f.qty, Price: f.price}
		if incoming.Side == domain.SideBid {
			st.Buyer, st.Seller = incoming.Owner, f.resting.Owner
			st.BuyerReservedPrice = reservedPrice
		} else {
			st.Buyer, st.Seller = f.resting.Owner, incoming.Owner
			// A resting bid's escrow was taken at its own limit price,
			// which is the trade price.
			st.BuyerReservedPrice = f.price
		}
		settlements[i] = st
	}
	if err := s.escrow.Settle(ctx, settlements...); err != nil {
		s.logger.Error("settlement failed",
			slog.Uint64("order_id", incoming.ID),
			slog.String("owner", incoming.Owner),
			slog.Int("fills", len(fills)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: settle order %d: %w", domain.ErrInternal, incoming.ID, err)
	}

	s.book.apply(incoming.Side, fills)
	incoming.RemainingQty -= sumQty(fills)

	executedAt := s.now()
	trades := make([]domain.Trade, len(fills))
	for i, f := range fills {
		tr := domain.Trade{
			TradeID:    uuid.New().String(),
			MarketID:   s.id,
			Buyer:      settlements[i].Buyer,
			Seller:     settlements[i].Seller,
			Qty:        f.qty,
			Price:      f.price,
			Sequence:   s.nextSeq,
			ExecutedAt: executedAt,
		}
		if incoming.Side == domain.SideBid {
			tr.BuyOrderID, tr.SellOrderID = incoming.ID, f.resting.ID
		} else {
			tr.BuyOrderID, tr.SellOrderID = f.resting.ID, incoming.ID
		}
		s.nextSeq++
		s.tape.Append(tr)
		trades[i] = tr
	}
	s.metrics.Trades.WithLabelValues(s.label).Add(float64(len(trades)))
	s.metrics.TradedVolume.WithLabelValues(s.label).Add(float64(sumQty(fills)))
	return trades, nil
}

// releaseAfterFault returns an incoming order's escrow after its settlement
// was rejected. Only an escrow violation proves the ledger left every account
// untouched. Any other failure leaves the outcome unknown, so the
// reservation stays put for the audit to surface.
func (s *market) releaseAfterFault(ctx context.Context, o *domain.Order, price int64, cause error) {
	if !errors.Is(cause, domain.ErrEscrowViolation) {
		s.logger.Error("settlement outcome unknown, escrow kept",
			slog.Uint64("order_id", o.ID),
			slog.String("owner", o.Owner),
			slog.String("error", cause.Error()),
		)
		return
	}
	if err := s.escrow.Release(ctx, o.Owner, o.Side, o.OriginalQty, price); err != nil {
		s.logger.Error("release after failed settlement",
			slog.Uint64("order_id", o.ID),
			slog.String("owner", o.Owner),
			slog.String("error", err.Error()),
		)
	}
}

func sumQty(fills []fill) int64 {
	var total int64
	for _, f := range fills {
		total += f.qty
	}
	return total
}
