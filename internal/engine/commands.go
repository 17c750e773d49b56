package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/efreitasn/minivenue/internal/domain"
)

const (
	kindLimit  = "limit"
	kindMarket = "market"
)

// ledgerContext detaches in-command ledger calls from the market's run
// context. A command that has started reserving must see every ledger reply,
// or the book and the ledger could disagree after a shutdown.
func ledgerContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// crosses reports whether an incoming order of side s with the given limit
// accepts a resting order at price.
func crosses(s domain.Side, limit, price int64) bool {
	if s == domain.SideBid {
		return price <= limit
	}
	return price >= limit
}

type placeLimitCmd struct {
	Owner string
	Side  domain.Side
	Qty   int64
	Price int64
}

func (placeLimitCmd) Name() string { return kindLimit }

func (c placeLimitCmd) Apply(ctx context.Context, s *market) (Execution, error) {
	if !c.Side.Valid() || c.Qty <= 0 || c.Price <= 0 {
		return Execution{}, domain.ErrInvalidOrder
	}
	ctx = ledgerContext(ctx)
	// Every fill settles at most qty × price quote units.
	if _, err := domain.Notional(c.Qty, c.Price); err != nil {
		return Execution{}, err
	}
	if err := s.escrow.Reserve(ctx, c.Owner, c.Side, c.Qty, c.Price); err != nil {
		return Execution{}, err
	}

	o := s.admit(c.Owner, c.Side, domain.Limit{Price: c.Price}, c.Qty)
	fills := s.book.plan(c.Side, c.Qty, func(price int64) bool {
		return crosses(c.Side, c.Price, price)
	})
	trades, err := s.execute(ctx, o, fills, c.Price)
	if err != nil {
		s.releaseAfterFault(ctx, o, c.Price, err)
		return Execution{}, err
	}
	if o.RemainingQty > 0 {
		s.book.side(c.Side).rest(o, c.Price)
	}

	s.logger.Debug("limit order processed",
		slog.Uint64("order_id", o.ID),
		slog.String("owner", o.Owner),
		slog.String("side", o.Side.String()),
		slog.Int64("qty", o.OriginalQty),
		slog.Int64("price", c.Price),
		slog.Int("fills", len(trades)),
		slog.Int64("resting", o.RemainingQty),
	)
	return Execution{OrderID: o.ID, Fills: trades, Remaining: o.RemainingQty}, nil
}

type placeMarketCmd struct {
	Owner string
	Side  domain.Side
	Qty   int64
	Bound *int64
}

func (placeMarketCmd) Name() string { return kindMarket }

func (c placeMarketCmd) Apply(ctx context.Context, s *market) (Execution, error) {
	if !c.Side.Valid() || c.Qty <= 0 || (c.Bound != nil && *c.Bound <= 0) {
		return Execution{}, domain.ErrInvalidOrder
	}
	// A bounded order against an empty book reserves, fills nothing and
	// releases everything.
	if _, ok := s.book.side(c.Side.Opposite()).best(); !ok && c.Bound == nil {
		return Execution{}, domain.ErrNoLiquidity
	}
	ctx = ledgerContext(ctx)

	// A bid reserves at its bound. Without one, the bound is the worst
	// price the order would reach against the current book.
	var price int64
	accept := func(int64) bool { return true }
	switch {
	case c.Bound != nil:
		price = *c.Bound
		accept = func(p int64) bool { return crosses(c.Side, price, p) }
	case c.Side == domain.SideBid:
		price, _ = s.book.sweepPrice(c.Side, c.Qty)
		accept = func(p int64) bool { return crosses(c.Side, price, p) }
	}

	if err := s.escrow.Reserve(ctx, c.Owner, c.Side, c.Qty, price); err != nil {
		return Execution{}, err
	}

	o := s.admit(c.Owner, c.Side, domain.Market{PriceBound: c.Bound}, c.Qty)
	fills := s.book.plan(c.Side, c.Qty, accept)
	trades, err := s.execute(ctx, o, fills, price)
	if err != nil {
		s.releaseAfterFault(ctx, o, price, err)
		return Execution{}, err
	}

	exec := Execution{OrderID: o.ID, Fills: trades, Unfilled: o.RemainingQty}
	if o.RemainingQty > 0 {
		if err := s.escrow.Release(ctx, o.Owner, o.Side, o.RemainingQty, price); err != nil {
			s.logger.Error("release of unfilled market order failed",
				slog.Uint64("order_id", o.ID),
				slog.String("owner", o.Owner),
				slog.Int64("unfilled", o.RemainingQty),
				slog.String("error", err.Error()),
			)
			return exec, fmt.Errorf("%w: release order %d: %w", domain.ErrInternal, o.ID, err)
		}
		o.RemainingQty = 0
	}

	s.logger.Debug("market order processed",
		slog.Uint64("order_id", o.ID),
		slog.String("owner", o.Owner),
		slog.String("side", o.Side.String()),
		slog.Int64("qty", o.OriginalQty),
		slog.Int("fills", len(trades)),
		slog.Int64("unfilled", exec.Unfilled),
	)
	return exec, nil
}

type bookCmd struct {
	Depth int
}

func (bookCmd) Name() string { return "book" }

func (c bookCmd) Apply(_ context.Context, s *market) (domain.Depth, error) {
	bids, asks := s.book.depth(c.Depth)
	return domain.Depth{MarketID: s.id, Bids: bids, Asks: asks}, nil
}

type tradesCmd struct {
	Limit int
}

func (tradesCmd) Name() string { return "trades" }

func (c tradesCmd) Apply(_ context.Context, s *market) ([]domain.Trade, error) {
	return s.tape.Recent(c.Limit), nil
}
