package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/minivenue/internal/domain"
	"github.com/efreitasn/minivenue/internal/service"
)

// MarketHandler handles HTTP requests for market endpoints.
type MarketHandler struct {
	orderSvc *service.OrderService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(orderSvc *service.OrderService) *MarketHandler {
	return &MarketHandler{orderSvc: orderSvc}
}

// limitOrderRequest is the JSON request body for
// POST /markets/{market_id}/orders/limit.
type limitOrderRequest struct {
	UserEmail string `json:"user_email"`
	Side      string `json:"side"`
	Qty       int64  `json:"qty"`
	Price     int64  `json:"price"`
}

// marketOrderRequest is the JSON request body for
// POST /markets/{market_id}/orders/market. PriceBound is optional.
type marketOrderRequest struct {
	UserEmail  string `json:"user_email"`
	Side       string `json:"side"`
	Qty        int64  `json:"qty"`
	PriceBound *int64 `json:"price_bound"`
}

// limitOrderResponse is the JSON response for limit orders.
type limitOrderResponse struct {
	Status       string          `json:"status"`
	OrderID      uint64          `json:"order_id"`
	MarketID     uint64          `json:"market_id"`
	FilledQty    int64           `json:"filled_qty"`
	RemainingQty int64           `json:"remaining_qty"`
	Fills        []tradeResponse `json:"fills"`
}

// marketOrderResponse is the JSON response for market orders. Market orders
// never rest, so the unmatched part is reported as unfilled.
type marketOrderResponse struct {
	Status      string          `json:"status"`
	OrderID     uint64          `json:"order_id"`
	MarketID    uint64          `json:"market_id"`
	FilledQty   int64           `json:"filled_qty"`
	UnfilledQty int64           `json:"unfilled_qty"`
	Fills       []tradeResponse `json:"fills"`
}

// tradeResponse is a single trade in order and trade responses.
type tradeResponse struct {
	TradeID     string `json:"trade_id"`
	MarketID    uint64 `json:"market_id"`
	Buyer       string `json:"buyer"`
	Seller      string `json:"seller"`
	BuyOrderID  uint64 `json:"buy_order_id"`
	SellOrderID uint64 `json:"sell_order_id"`
	Qty         int64  `json:"qty"`
	Price       int64  `json:"price"`
	Sequence    uint64 `json:"sequence"`
	ExecutedAt  string `json:"executed_at"`
}

// bookLevelResponse is a single aggregated price level.
type bookLevelResponse struct {
	Price  int64 `json:"price"`
	Qty    int64 `json:"qty"`
	Orders int   `json:"orders"`
}

// bookResponse is the JSON response for GET /markets/{market_id}/book.
type bookResponse struct {
	MarketID uint64              `json:"market_id"`
	Bids     []bookLevelResponse `json:"bids"`
	Asks     []bookLevelResponse `json:"asks"`
}

// tradesResponse is the JSON response for GET /markets/{market_id}/trades.
type tradesResponse struct {
	MarketID uint64          `json:"market_id"`
	Trades   []tradeResponse `json:"trades"`
}

// marketsResponse is the JSON response for GET /markets.
type marketsResponse struct {
	Markets []uint64 `json:"markets"`
}

// PlaceLimit handles POST /markets/{market_id}/orders/limit.
func (h *MarketHandler) PlaceLimit(w http.ResponseWriter, r *http.Request) {
	marketID, ok := parseMarketID(w, r)
	if !ok {
		return
	}

	var req limitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	exec, err := h.orderSvc.PlaceLimit(r.Context(), service.LimitOrderRequest{
		MarketID:  marketID,
		UserEmail: req.UserEmail,
		Side:      req.Side,
		Qty:       req.Qty,
		Price:     req.Price,
	})
	if err != nil {
		writeStatusError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, limitOrderResponse{
		Status:       string(domain.StatusOk),
		OrderID:      exec.OrderID,
		MarketID:     marketID,
		FilledQty:    exec.FilledQty(),
		RemainingQty: exec.Remaining,
		Fills:        buildTradeResponses(exec.Fills),
	})
}

// PlaceMarket handles POST /markets/{market_id}/orders/market.
func (h *MarketHandler) PlaceMarket(w http.ResponseWriter, r *http.Request) {
	marketID, ok := parseMarketID(w, r)
	if !ok {
		return
	}

	var req marketOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	exec, err := h.orderSvc.PlaceMarket(r.Context(), service.MarketOrderRequest{
		MarketID:   marketID,
		UserEmail:  req.UserEmail,
		Side:       req.Side,
		Qty:        req.Qty,
		PriceBound: req.PriceBound,
	})
	if err != nil {
		writeStatusError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, marketOrderResponse{
		Status:      string(domain.StatusOk),
		OrderID:     exec.OrderID,
		MarketID:    marketID,
		FilledQty:   exec.FilledQty(),
		UnfilledQty: exec.Unfilled,
		Fills:       buildTradeResponses(exec.Fills),
	})
}

// GetBook handles GET /markets/{market_id}/book.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	marketID, ok := parseMarketID(w, r)
	if !ok {
		return
	}

	// depth=0 or absent returns the whole book.
	depth, ok := parseIntQuery(w, r, "depth")
	if !ok {
		return
	}

	book, err := h.orderSvc.Book(r.Context(), r.URL.Query().Get("user_email"), marketID, depth)
	if err != nil {
		writeStatusError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, bookResponse{
		MarketID: book.MarketID,
		Bids:     buildLevelResponses(book.Bids),
		Asks:     buildLevelResponses(book.Asks),
	})
}

// GetTrades handles GET /markets/{market_id}/trades.
func (h *MarketHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	marketID, ok := parseMarketID(w, r)
	if !ok {
		return
	}

	limit, ok := parseIntQuery(w, r, "limit")
	if !ok {
		return
	}

	trades, err := h.orderSvc.Trades(r.Context(), marketID, limit)
	if err != nil {
		writeStatusError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, tradesResponse{
		MarketID: marketID,
		Trades:   buildTradeResponses(trades),
	})
}

// ListMarkets handles GET /markets.
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, marketsResponse{Markets: h.orderSvc.MarketIDs()})
}

// parseMarketID reads the market_id path parameter, writing a 400 on failure.
func parseMarketID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "market_id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "market_id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

// parseIntQuery reads an optional integer query parameter; absent means 0.
func parseIntQuery(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		writeBadRequest(w, key+" must be a valid integer")
		return 0, false
	}
	return n, true
}

// buildTradeResponses converts domain trades to response trades.
func buildTradeResponses(trades []domain.Trade) []tradeResponse {
	result := make([]tradeResponse, len(trades))
	for i, t := range trades {
		result[i] = tradeResponse{
			TradeID:     t.TradeID,
			MarketID:    t.MarketID,
			Buyer:       t.Buyer,
			Seller:      t.Seller,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Qty:         t.Qty,
			Price:       t.Price,
			Sequence:    t.Sequence,
			ExecutedAt:  t.ExecutedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	return result
}

func buildLevelResponses(levels []domain.Level) []bookLevelResponse {
	result := make([]bookLevelResponse, len(levels))
	for i, l := range levels {
		result[i] = bookLevelResponse{Price: l.Price, Qty: l.Quantity, Orders: l.Orders}
	}
	return result
}
