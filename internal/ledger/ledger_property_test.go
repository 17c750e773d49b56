package ledger

import (
	"context"
	"testing"

	"pgregory.net/rapid"

	"github.com/efreitasn/minivenue/internal/domain"
)

// Random Reserve/Settle/Release sequences across a few accounts never
// leave any account with balance < reserved_balance or holdings <
// reserved_holdings, and never create or destroy value.
func TestProperty_LedgerEscrowInvariant(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	users := []string{"u0@x.io", "u1@x.io", "u2@x.io"}
	for _, u := range users {
		fund(t, l, u, 0, 0)
	}

	rapid.Check(t, func(t *rapid.T) {
		// Each run tops up the accounts; totals are tracked relative to
		// the audit taken right after.
		for _, u := range users {
			dBal := rapid.Int64Range(0, 10_000).Draw(t, "deposit_balance")
			dHold := rapid.Int64Range(0, 100).Draw(t, "deposit_holdings")
			if _, err := l.Deposit(ctx, u, dBal, dHold); err != nil {
				t.Fatalf("Deposit: %v", err)
			}
		}
		start, err := l.Audit(ctx)
		if err != nil {
			t.Fatalf("Audit: %v", err)
		}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			buyer := rapid.SampledFrom(users).Draw(t, "buyer")
			seller := rapid.SampledFrom(users).Draw(t, "seller")
			side := rapid.SampledFrom([]domain.Side{domain.SideBid, domain.SideAsk}).Draw(t, "side")
			qty := rapid.Int64Range(1, 20).Draw(t, "qty")
			price := rapid.Int64Range(1, 100).Draw(t, "price")

			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				_ = l.Reserve(ctx, buyer, side, qty, price)
			case 1:
				_ = l.Release(ctx, buyer, side, qty, price)
			case 2:
				_ = l.Settle(ctx, domain.Settlement{
					Buyer: buyer, Seller: seller, Qty: qty, Price: price, BuyerReservedPrice: price,
				})
			}

			totals, err := l.Audit(ctx)
			if err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
			if totals.Balance != start.Balance || totals.Holdings != start.Holdings {
				t.Fatalf("step %d: value not conserved: start %+v, now %+v", i, start, totals)
			}
		}
	})
}
