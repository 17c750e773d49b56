package store

import (
	"testing"

	"github.com/efreitasn/minivenue/internal/domain"
)

func newTestTrade(seq uint64) domain.Trade {
	return domain.Trade{
		TradeID:  "t",
		MarketID: 1,
		Qty:      1,
		Price:    100,
		Sequence: seq,
	}
}

func TestTradeTape_Empty(t *testing.T) {
	tape := NewTradeTape(4)

	got := tape.Recent(10)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected non-nil empty slice, got %v", got)
	}
	if _, ok := tape.Last(); ok {
		t.Fatal("Last() on empty tape should report false")
	}
}

func TestTradeTape_RecentChronological(t *testing.T) {
	tape := NewTradeTape(4)
	for i := uint64(1); i <= 3; i++ {
		tape.Append(newTestTrade(i))
	}

	got := tape.Recent(2)
	if len(got) != 2 || got[0].Sequence != 2 || got[1].Sequence != 3 {
		t.Fatalf("Recent(2) = %+v, want sequences [2 3]", got)
	}
	if all := tape.Recent(0); len(all) != 3 {
		t.Fatalf("Recent(0) returned %d trades, want 3", len(all))
	}
}

func TestTradeTape_EvictsOldest(t *testing.T) {
	tape := NewTradeTape(3)
	for i := uint64(1); i <= 5; i++ {
		tape.Append(newTestTrade(i))
	}

	got := tape.Recent(0)
	want := []uint64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %d trades, want %d", len(got), len(want))
	}
	for i, tr := range got {
		if tr.Sequence != want[i] {
			t.Errorf("trade %d sequence = %d, want %d", i, tr.Sequence, want[i])
		}
	}
	if last, _ := tape.Last(); last.Sequence != 5 {
		t.Errorf("Last().Sequence = %d, want 5", last.Sequence)
	}
	if tape.Total() != 5 {
		t.Errorf("Total() = %d, want 5", tape.Total())
	}
}

func TestTradeTape_RecentIsCopy(t *testing.T) {
	tape := NewTradeTape(2)
	tape.Append(newTestTrade(1))

	got := tape.Recent(0)
	got[0].Qty = 999

	again := tape.Recent(0)
	if again[0].Qty != 1 {
		t.Fatal("mutating Recent() result changed the tape")
	}
}
