package service

import (
	"context"
	"time"

	"github.com/efreitasn/minivenue/internal/domain"
	"github.com/efreitasn/minivenue/internal/engine"
)

// Markets looks up running markets. *engine.Registry satisfies it.
type Markets interface {
	Get(id uint64) (*engine.Market, error)
	IDs() []uint64
}

// LimitOrderRequest represents the input for a limit order.
type LimitOrderRequest struct {
	MarketID  uint64
	UserEmail string
	Side      string
	Qty       int64
	Price     int64
}

// MarketOrderRequest represents the input for a market order. PriceBound
// is optional.
type MarketOrderRequest struct {
	MarketID   uint64
	UserEmail  string
	Side       string
	Qty        int64
	PriceBound *int64
}

// OrderService admits orders and serves book and trade queries. Every
// request must name an existing user.
type OrderService struct {
	ledger  Ledger
	markets Markets
	timeout time.Duration
}

// NewOrderService creates an OrderService. Each request waits at most
// timeout for its replies.
func NewOrderService(ledger Ledger, markets Markets, timeout time.Duration) *OrderService {
	return &OrderService{ledger: ledger, markets: markets, timeout: timeout}
}

// PlaceLimit validates and submits a limit order.
func (s *OrderService) PlaceLimit(ctx context.Context, req LimitOrderRequest) (engine.Execution, error) {
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		return engine.Execution{}, err
	}
	if req.Qty <= 0 {
		return engine.Execution{}, &domain.ValidationError{Message: "qty must be a positive integer"}
	}
	if req.Price <= 0 {
		return engine.Execution{}, &domain.ValidationError{Message: "price must be a positive integer"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	m, err := s.market(ctx, req.UserEmail, req.MarketID)
	if err != nil {
		return engine.Execution{}, err
	}
	return m.PlaceLimit(ctx, req.UserEmail, side, req.Qty, req.Price)
}

// PlaceMarket validates and submits a market order.
func (s *OrderService) PlaceMarket(ctx context.Context, req MarketOrderRequest) (engine.Execution, error) {
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		return engine.Execution{}, err
	}
	if req.Qty <= 0 {
		return engine.Execution{}, &domain.ValidationError{Message: "qty must be a positive integer"}
	}
	if req.PriceBound != nil && *req.PriceBound <= 0 {
		return engine.Execution{}, &domain.ValidationError{Message: "price_bound must be a positive integer"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	m, err := s.market(ctx, req.UserEmail, req.MarketID)
	if err != nil {
		return engine.Execution{}, err
	}
	return m.PlaceMarket(ctx, req.UserEmail, side, req.Qty, req.PriceBound)
}

// Book returns up to depth aggregated levels per side.
func (s *OrderService) Book(ctx context.Context, userEmail string, marketID uint64, depth int) (domain.Depth, error) {
	if depth < 0 {
		return domain.Depth{}, &domain.ValidationError{Message: "depth must be >= 0"}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	m, err := s.market(ctx, userEmail, marketID)
	if err != nil {
		return domain.Depth{}, err
	}
	return m.Book(ctx, depth)
}

// Trades returns up to limit of a market's most recent trades.
func (s *OrderService) Trades(ctx context.Context, marketID uint64, limit int) ([]domain.Trade, error) {
	if limit < 0 {
		return nil, &domain.ValidationError{Message: "limit must be >= 0"}
	}
	m, err := s.markets.Get(marketID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return m.Trades(ctx, limit)
}

// MarketIDs lists the open markets.
func (s *OrderService) MarketIDs() []uint64 {
	return s.markets.IDs()
}

// market checks that the user exists and resolves the market.
func (s *OrderService) market(ctx context.Context, userEmail string, marketID uint64) (*engine.Market, error) {
	ok, err := s.ledger.CheckExists(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.markets.Get(marketID)
}
