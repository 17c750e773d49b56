package domain

import (
	"fmt"
	"time"
)

// Side indicates whether an order is a bid (buy) or ask (sell).
type Side uint8

const (
	SideBid Side = iota + 1
	SideAsk
)

// ParseSide accepts "bid"/"buy" and "ask"/"sell".
func ParseSide(s string) (Side, error) {
	switch s {
	case "bid", "buy":
		return SideBid, nil
	case "ask", "sell":
		return SideAsk, nil
	}
	return 0, &ValidationError{Message: fmt.Sprintf("side must be 'bid' or 'ask', got %q", s)}
}

// Opposite returns the side an order of this side matches against.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// Valid reports whether s is one of the two defined sides.
func (s Side) Valid() bool {
	return s == SideBid || s == SideAsk
}

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

// OrderKind is either Limit or Market. The interface is sealed so that
// a limit order always carries a price and a market order never does.
type OrderKind interface {
	isOrderKind()
	fmt.Stringer
}

// Limit rests any unmatched remainder at Price.
type Limit struct {
	Price int64
}

// Market matches immediately and never rests. PriceBound, when set, is
// the worst price the order accepts: a ceiling for bids, a floor for asks.
type Market struct {
	PriceBound *int64
}

func (Limit) isOrderKind()  {}
func (Market) isOrderKind() {}

func (Limit) String() string  { return "limit" }
func (Market) String() string { return "market" }

// Order is an order admitted into a market book.
type Order struct {
	ID           uint64
	Owner        string
	Side         Side
	Kind         OrderKind
	OriginalQty  int64
	RemainingQty int64
	Sequence     uint64
	CreatedAt    time.Time
}

// LimitPrice returns the order's limit price, or false for market orders.
func (o *Order) LimitPrice() (int64, bool) {
	switch k := o.Kind.(type) {
	case Limit:
		return k.Price, true
	case Market:
		return 0, false
	}
	return 0, false
}

// FilledQty is the quantity matched so far.
func (o *Order) FilledQty() int64 {
	return o.OriginalQty - o.RemainingQty
}

// Level is one aggregated price level of a book side.
type Level struct {
	Price    int64
	Quantity int64
	Orders   int
}

// Depth is a read-only snapshot of a market's book. Bids are ordered by
// price descending, asks by price ascending.
type Depth struct {
	MarketID uint64
	Bids     []Level
	Asks     []Level
}

// BestBid returns the highest bid level, if any.
func (d Depth) BestBid() (Level, bool) {
	if len(d.Bids) == 0 {
		return Level{}, false
	}
	return d.Bids[0], true
}

// BestAsk returns the lowest ask level, if any.
func (d Depth) BestAsk() (Level, bool) {
	if len(d.Asks) == 0 {
		return Level{}, false
	}
	return d.Asks[0], true
}

// Crossed reports whether the best bid is at or above the best ask.
func (d Depth) Crossed() bool {
	bid, okBid := d.BestBid()
	ask, okAsk := d.BestAsk()
	return okBid && okAsk && bid.Price >= ask.Price
}
