package domain

import "time"

// Trade represents a matched execution between a bid and an ask order.
// Trades are never mutated after creation.
type Trade struct {
	TradeID     string
	MarketID    uint64
	Buyer       string
	Seller      string
	BuyOrderID  uint64
	SellOrderID uint64
	Qty         int64
	Price       int64 // the resting order's price
	Sequence    uint64
	ExecutedAt  time.Time
}

// Settlement is the ledger's view of a trade. BuyerReservedPrice is the
// per-unit price at which the buyer's escrow was taken; it can be above
// Price when the bid traded against a cheaper resting ask.
type Settlement struct {
	Buyer              string
	Seller             string
	Qty                int64
	Price              int64
	BuyerReservedPrice int64
}
