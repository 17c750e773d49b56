package engine

import (
	"github.com/google/btree"

	"github.com/efreitasn/minivenue/internal/domain"
)

// priceLevel is the FIFO queue of resting orders at one price.
type priceLevel struct {
	price  int64
	orders []*domain.Order
}

func (l *priceLevel) quantity() int64 {
	var total int64
	for _, o := range l.orders {
		total += o.RemainingQty
	}
	return total
}

// bidLess orders the bid side by price descending, so Min() is the best bid.
func bidLess(a, b *priceLevel) bool {
	return a.price > b.price
}

// askLess orders the ask side by price ascending, so Min() is the best ask.
func askLess(a, b *priceLevel) bool {
	return a.price < b.price
}

// bookSide indexes the price levels of one side in priority order.
type bookSide struct {
	levels *btree.BTreeG[*priceLevel]
	orders int
}

// orderBook holds the bid and ask sides of a single market. It is not safe
// for concurrent use; the owning market goroutine is its only user.
type orderBook struct {
	bids *bookSide
	asks *bookSide
}

func newOrderBook() *orderBook {
	const degree = 32
	return &orderBook{
		bids: &bookSide{levels: btree.NewG[*priceLevel](degree, bidLess)},
		asks: &bookSide{levels: btree.NewG[*priceLevel](degree, askLess)},
	}
}

func (b *orderBook) side(s domain.Side) *bookSide {
	if s == domain.SideBid {
		return b.bids
	}
	return b.asks
}

// best returns the most aggressive level of a side.
func (s *bookSide) best() (*priceLevel, bool) {
	return s.levels.Min()
}

// rest appends o to the back of its price level's queue.
func (s *bookSide) rest(o *domain.Order, price int64) {
	lvl, ok := s.levels.Get(&priceLevel{price: price})
	if !ok {
		lvl = &priceLevel{price: price}
		s.levels.ReplaceOrInsert(lvl)
	}
	lvl.orders = append(lvl.orders, o)
	s.orders++
}

// top aggregates at most n levels, best first. n <= 0 means all levels.
func (s *bookSide) top(n int) []domain.Level {
	levels := make([]domain.Level, 0, s.levels.Len())
	s.levels.Ascend(func(lvl *priceLevel) bool {
		if n > 0 && len(levels) >= n {
			return false
		}
		levels = append(levels, domain.Level{
			Price:    lvl.price,
			Quantity: lvl.quantity(),
			Orders:   len(lvl.orders),
		})
		return true
	})
	return levels
}

// fill is one planned execution against a resting order.
type fill struct {
	resting *domain.Order
	qty     int64
	price   int64
}

// plan walks the side opposite to an incoming order of side s and returns
// the fills that would consume up to qty, in priority order, stopping at
// the first level whose price accept rejects. The book is not modified.
func (b *orderBook) plan(s domain.Side, qty int64, accept func(price int64) bool) []fill {
	var fills []fill
	remaining := qty
	b.side(s.Opposite()).levels.Ascend(func(lvl *priceLevel) bool {
		if !accept(lvl.price) {
			return false
		}
		for _, o := range lvl.orders {
			if remaining == 0 {
				break
			}
			n := min(remaining, o.RemainingQty)
			fills = append(fills, fill{resting: o, qty: n, price: lvl.price})
			remaining -= n
		}
		return remaining > 0
	})
	return fills
}

// apply consumes fills produced by plan for an incoming order of side s.
// Fills must be applied in the order plan returned them and with no other
// mutation of the book in between.
func (b *orderBook) apply(s domain.Side, fills []fill) {
	opp := b.side(s.Opposite())
	for _, f := range fills {
		lvl, ok := opp.best()
		if !ok || lvl.price != f.price || lvl.orders[0] != f.resting {
			panic("engine: fill does not match the head of the book")
		}
		f.resting.RemainingQty -= f.qty
		if f.resting.RemainingQty > 0 {
			continue
		}
		lvl.orders[0] = nil
		lvl.orders = lvl.orders[1:]
		opp.orders--
		if len(lvl.orders) == 0 {
			opp.levels.Delete(lvl)
		}
	}
}

// sweepPrice returns the worst price an incoming order of side s for qty
// would reach when walking the opposite side: the price of the level that
// completes qty, or of the last level when the side is too thin.
func (b *orderBook) sweepPrice(s domain.Side, qty int64) (int64, bool) {
	var (
		price     int64
		found     bool
		remaining = qty
	)
	b.side(s.Opposite()).levels.Ascend(func(lvl *priceLevel) bool {
		price, found = lvl.price, true
		remaining -= lvl.quantity()
		return remaining > 0
	})
	return price, found
}

// depth snapshots the book. Levels are copies.
func (b *orderBook) depth(n int) (bids, asks []domain.Level) {
	return b.bids.top(n), b.asks.top(n)
}

// crossed reports whether the best bid meets or exceeds the best ask.
func (b *orderBook) crossed() bool {
	bid, okBid := b.bids.best()
	ask, okAsk := b.asks.best()
	return okBid && okAsk && bid.price >= ask.price
}
