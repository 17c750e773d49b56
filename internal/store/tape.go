package store

import "github.com/efreitasn/minivenue/internal/domain"

// TradeTape keeps the most recent trades of one market, oldest first.
// Once full, each append evicts the oldest trade. It is not safe for
// concurrent use: the owning market goroutine is its only user.
type TradeTape struct {
	trades []domain.Trade
	start  int
	size   int
	total  uint64
}

// NewTradeTape creates a tape holding at most capacity trades.
func NewTradeTape(capacity int) *TradeTape {
	if capacity < 1 {
		capacity = 1
	}
	return &TradeTape{trades: make([]domain.Trade, capacity)}
}

// Append records a trade.
func (t *TradeTape) Append(tr domain.Trade) {
	capacity := len(t.trades)
	if t.size < capacity {
		t.trades[(t.start+t.size)%capacity] = tr
		t.size++
	} else {
		t.trades[t.start] = tr
		t.start = (t.start + 1) % capacity
	}
	t.total++
}

// Recent returns up to limit of the newest trades in chronological order.
// A limit <= 0 returns everything retained. The result is a copy.
func (t *TradeTape) Recent(limit int) []domain.Trade {
	n := t.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Trade, n)
	capacity := len(t.trades)
	first := t.start + t.size - n
	for i := 0; i < n; i++ {
		out[i] = t.trades[(first+i)%capacity]
	}
	return out
}

// Last returns the newest trade, if any.
func (t *TradeTape) Last() (domain.Trade, bool) {
	if t.size == 0 {
		return domain.Trade{}, false
	}
	return t.trades[(t.start+t.size-1)%len(t.trades)], true
}

// Total is the number of trades ever appended, including evicted ones.
func (t *TradeTape) Total() uint64 {
	return t.total
}
