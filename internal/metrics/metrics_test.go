package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Orders.WithLabelValues("1", "limit", "Ok").Inc()
	m.Trades.WithLabelValues("1").Add(2)
	m.EscrowFaults.Inc()

	if got := testutil.ToFloat64(m.Trades.WithLabelValues("1")); got != 2 {
		t.Errorf("trades = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EscrowFaults); got != 1 {
		t.Errorf("escrow faults = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic registering collectors twice")
		}
	}()
	New(reg)
}
