// Package metrics holds the Prometheus collectors shared by the ledger and
// the market actors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the venue's collectors. All fields are safe for
// concurrent use.
type Metrics struct {
	LedgerCommands *prometheus.CounterVec
	Orders         *prometheus.CounterVec
	Trades         *prometheus.CounterVec
	TradedVolume   *prometheus.CounterVec
	MailboxDepth   *prometheus.GaugeVec
	EscrowFaults   prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LedgerCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "ledger",
			Name:      "commands_total",
			Help:      "Ledger commands processed, by command and status.",
		}, []string{"command", "status"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "market",
			Name:      "orders_total",
			Help:      "Orders processed, by market, kind and status.",
		}, []string{"market", "kind", "status"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "market",
			Name:      "trades_total",
			Help:      "Trades executed, by market.",
		}, []string{"market"}),
		TradedVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue",
			Subsystem: "market",
			Name:      "traded_quantity_total",
			Help:      "Base quantity traded, by market.",
		}, []string{"market"}),
		MailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "venue",
			Name:      "mailbox_depth",
			Help:      "Commands queued in an actor mailbox.",
		}, []string{"actor"}),
		EscrowFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "venue",
			Name:      "escrow_faults_total",
			Help:      "Settlements or releases rejected by the escrow invariant.",
		}),
	}
	reg.MustRegister(
		m.LedgerCommands,
		m.Orders,
		m.Trades,
		m.TradedVolume,
		m.MailboxDepth,
		m.EscrowFaults,
	)
	return m
}

// NewUnregistered returns collectors registered on a private registry.
// Useful for tests and for actors built without a metrics endpoint.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
