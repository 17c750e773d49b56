package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/efreitasn/minivenue/internal/domain"
	"github.com/efreitasn/minivenue/internal/ledger"
)

var propertyUsers = []string{"u0@x.io", "u1@x.io", "u2@x.io"}

// startPropertyVenue funds every property user with the same balances.
func startPropertyVenue(t *rapid.T, ctx context.Context) (*ledger.Ledger, *Market) {
	l := startLedger(ctx)
	m := startMarket(ctx, l)
	for _, u := range propertyUsers {
		if err := l.Signup(ctx, u, "pw"); err != nil {
			t.Fatalf("Signup: %v", err)
		}
		if _, err := l.Deposit(ctx, u, 5000, 100); err != nil {
			t.Fatalf("Deposit: %v", err)
		}
	}
	return l, m
}

// checkEscrowMatchesBook verifies that the ledger's reservations are
// exactly what the resting orders need: qty × price for bids and qty for
// asks.
func checkEscrowMatchesBook(t *rapid.T, l *ledger.Ledger, d domain.Depth) {
	var wantBalance, wantHoldings int64
	for _, lvl := range d.Bids {
		wantBalance += lvl.Quantity * lvl.Price
	}
	for _, lvl := range d.Asks {
		wantHoldings += lvl.Quantity
	}
	totals, err := l.Audit(context.Background())
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if totals.ReservedBalance != wantBalance || totals.ReservedHoldings != wantHoldings {
		t.Fatalf("reserved = %d/%d, book needs %d/%d",
			totals.ReservedBalance, totals.ReservedHoldings, wantBalance, wantHoldings)
	}
}

type orderAction struct {
	owner  string
	side   domain.Side
	market bool
	qty    int64
	price  int64
}

func (a orderAction) String() string {
	kind := "limit"
	if a.market {
		kind = "market"
	}
	return fmt.Sprintf("%s %s %s %d@%d", a.owner, kind, a.side, a.qty, a.price)
}

func drawAction(t *rapid.T, label string) orderAction {
	return orderAction{
		owner:  rapid.SampledFrom(propertyUsers).Draw(t, label+"_owner"),
		side:   rapid.SampledFrom([]domain.Side{domain.SideBid, domain.SideAsk}).Draw(t, label+"_side"),
		market: rapid.Float64Range(0, 1).Draw(t, label+"_market") < 0.2,
		qty:    rapid.Int64Range(1, 20).Draw(t, label+"_qty"),
		price:  rapid.Int64Range(90, 110).Draw(t, label+"_price"),
	}
}

func (a orderAction) place(ctx context.Context, m *Market) (Execution, error) {
	if a.market {
		return m.PlaceMarket(ctx, a.owner, a.side, a.qty, nil)
	}
	return m.PlaceLimit(ctx, a.owner, a.side, a.qty, a.price)
}

func admissionError(err error) bool {
	return errors.Is(err, domain.ErrInsufficientFunds) ||
		errors.Is(err, domain.ErrInsufficientHoldings) ||
		errors.Is(err, domain.ErrNoLiquidity)
}

// Random order flow never leaves the book crossed, keeps escrow equal to
// what the book needs, and conserves total balance and holdings.
func TestProperty_OrderFlowInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		l, m := startPropertyVenue(t, ctx)

		start, err := l.Audit(ctx)
		if err != nil {
			t.Fatalf("audit: %v", err)
		}

		n := rapid.IntRange(1, 40).Draw(t, "n")
		for i := 0; i < n; i++ {
			action := drawAction(t, fmt.Sprintf("order%d", i))
			exec, err := action.place(ctx, m)
			if err != nil && !admissionError(err) {
				t.Fatalf("%s: %v", action, err)
			}
			if err == nil && action.market && exec.Remaining != 0 {
				t.Fatalf("%s: market order left %d resting", action, exec.Remaining)
			}
			if err == nil && exec.FilledQty()+exec.Remaining+exec.Unfilled != action.qty {
				t.Fatalf("%s: filled %d + remaining %d + unfilled %d != qty",
					action, exec.FilledQty(), exec.Remaining, exec.Unfilled)
			}

			d, err := m.Book(ctx, 0)
			if err != nil {
				t.Fatalf("book: %v", err)
			}
			if d.Crossed() {
				t.Fatalf("%s: book crossed: %+v", action, d)
			}
			checkEscrowMatchesBook(t, l, d)
		}

		end, err := l.Audit(ctx)
		if err != nil {
			t.Fatalf("audit: %v", err)
		}
		if end.Balance != start.Balance || end.Holdings != start.Holdings {
			t.Fatalf("totals moved: %+v -> %+v", start, end)
		}
	})
}

// Every trade moves qty × price from buyer to seller and qty the other way.
func TestProperty_TradeSettlesExactly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		l, m := startPropertyVenue(t, ctx)

		askPrice := rapid.Int64Range(1, 100).Draw(t, "askPrice")
		bidPrice := askPrice + rapid.Int64Range(0, 20).Draw(t, "premium")
		askQty := rapid.Int64Range(1, 50).Draw(t, "askQty")
		bidQty := rapid.Int64Range(1, 40).Draw(t, "bidQty")
		seller, buyer := propertyUsers[0], propertyUsers[1]

		if _, err := m.PlaceLimit(ctx, seller, domain.SideAsk, askQty, askPrice); err != nil {
			t.Fatalf("ask: %v", err)
		}
		before := map[string]domain.Account{}
		for _, u := range []string{seller, buyer} {
			before[u], _ = l.Account(ctx, u)
		}

		exec, err := m.PlaceLimit(ctx, buyer, domain.SideBid, bidQty, bidPrice)
		if err != nil {
			t.Fatalf("bid: %v", err)
		}
		qty := min(askQty, bidQty)
		if exec.FilledQty() != qty {
			t.Fatalf("filled %d, want %d", exec.FilledQty(), qty)
		}
		for _, tr := range exec.Fills {
			if tr.Price != askPrice {
				t.Fatalf("trade price %d, want resting price %d", tr.Price, askPrice)
			}
		}

		s, _ := l.Account(ctx, seller)
		b, _ := l.Account(ctx, buyer)
		if s.Balance-before[seller].Balance != qty*askPrice {
			t.Fatalf("seller balance moved %d, want %d", s.Balance-before[seller].Balance, qty*askPrice)
		}
		if before[buyer].Balance-b.Balance != qty*askPrice {
			t.Fatalf("buyer balance moved %d, want %d", before[buyer].Balance-b.Balance, qty*askPrice)
		}
		if before[seller].Holdings-s.Holdings != qty || b.Holdings-before[buyer].Holdings != qty {
			t.Fatalf("holdings moved %d/%d, want %d", before[seller].Holdings-s.Holdings, b.Holdings-before[buyer].Holdings, qty)
		}
		if want := (bidQty - qty) * bidPrice; b.ReservedBalance != want {
			t.Fatalf("buyer reserved %d, want %d", b.ReservedBalance, want)
		}
	})
}
