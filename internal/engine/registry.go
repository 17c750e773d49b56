package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/minivenue/internal/domain"
	"github.com/efreitasn/minivenue/internal/metrics"
)

// Registry is a thread-safe map of market id → Market. It also owns the
// markets' lifecycle: Run drives every market, including those opened
// while it is running.
type Registry struct {
	escrow  Escrow
	logger  *slog.Logger
	metrics *metrics.Metrics
	opts    MarketOptions

	mu      sync.RWMutex
	markets map[uint64]*Market
	group   *errgroup.Group
	runCtx  context.Context
	stopped bool
}

// NewRegistry creates an empty registry whose markets settle through escrow.
func NewRegistry(escrow Escrow, logger *slog.Logger, m *metrics.Metrics, opts MarketOptions) *Registry {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Registry{
		escrow:  escrow,
		logger:  logger,
		metrics: m,
		opts:    opts,
		markets: make(map[uint64]*Market),
	}
}

// Open creates the market with the given id. If the registry is running
// the market starts immediately.
func (r *Registry) Open(id uint64) (*Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil, domain.ErrStopped
	}
	if _, ok := r.markets[id]; ok {
		return nil, domain.ErrMarketExists
	}
	m := NewMarket(id, r.escrow, r.logger, r.metrics, r.opts)
	r.markets[id] = m
	if r.group != nil {
		ctx := r.runCtx
		r.group.Go(func() error { return m.Run(ctx) })
	}
	return m, nil
}

// Get returns the market with the given id.
func (r *Registry) Get(id uint64) (*Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[id]
	if !ok {
		return nil, domain.ErrMarketNotFound
	}
	return m, nil
}

// IDs returns the ids of every open market in ascending order.
func (r *Registry) IDs() []uint64 {
	r.mu.RLock()
	ids := make([]uint64, 0, len(r.markets))
	for id := range r.markets {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Run drives every market until ctx is cancelled and returns once all of
// them have stopped. It must be called once.
func (r *Registry) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	r.mu.Lock()
	r.group, r.runCtx = g, gctx
	for _, m := range r.markets {
		g.Go(func() error { return m.Run(gctx) })
	}
	r.mu.Unlock()

	// Holds the group open so Open can add markets until shutdown.
	g.Go(func() error {
		<-gctx.Done()
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		return nil
	})
	return g.Wait()
}
