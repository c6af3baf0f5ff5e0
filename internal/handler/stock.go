package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/efreitasn/stockmarket/internal/domain"
	"github.com/efreitasn/stockmarket/internal/service"
)

const defaultBookDepth = 10

// StockHandler handles HTTP requests for stock, listing and trade endpoints.
type StockHandler struct {
	stockSvc *service.StockService
	logger   *slog.Logger
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(stockSvc *service.StockService, logger *slog.Logger) *StockHandler {
	return &StockHandler{stockSvc: stockSvc, logger: logger}
}

type stockResponse struct {
	StockID         int64   `json:"stock_id"`
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	LastTradedPrice string  `json:"last_traded_price"`
	LastChecked     *string `json:"last_checked"`
}

type tradeResponse struct {
	TradeID   int64  `json:"trade_id"`
	StockID   int64  `json:"stock_id"`
	SellerID  int64  `json:"seller_id"`
	BuyerID   int64  `json:"buyer_id"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity"`
	TradeDate string `json:"trade_date"`
}

// bookLevelResponse is a single aggregated price level in the book.
type bookLevelResponse struct {
	Price         string `json:"price"`
	TotalQuantity int64  `json:"total_quantity"`
	OrderCount    int    `json:"order_count"`
}

// bookResponse is the JSON response for GET /stocks/{stock_id}/book.
type bookResponse struct {
	StockID    int64               `json:"stock_id"`
	Symbol     string              `json:"symbol"`
	Bids       []bookLevelResponse `json:"bids"`
	Offers     []bookLevelResponse `json:"offers"`
	Spread     *string             `json:"spread"`
	SnapshotAt string              `json:"snapshot_at"`
}

// List handles GET /stocks.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.stockSvc.ListStocks(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := make([]stockResponse, len(stocks))
	for i, s := range stocks {
		resp[i] = buildStockResponse(s)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /stocks/{stock_id}.
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	stockID, ok := pathID(w, r, "stock_id")
	if !ok {
		return
	}
	stock, err := h.stockSvc.GetStock(r.Context(), stockID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildStockResponse(stock))
}

// ListBids handles GET /stocks/{stock_id}/bids.
func (h *StockHandler) ListBids(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, domain.OrderSideBid)
}

// ListOffers handles GET /stocks/{stock_id}/offers.
func (h *StockHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, domain.OrderSideOffer)
}

func (h *StockHandler) listOrders(w http.ResponseWriter, r *http.Request, side domain.OrderSide) {
	stockID, ok := pathID(w, r, "stock_id")
	if !ok {
		return
	}
	orders, err := h.stockSvc.ListOrders(r.Context(), stockID, side)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponses(orders))
}

// ListTrades handles GET /stocks/{stock_id}/trades.
func (h *StockHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	stockID, ok := pathID(w, r, "stock_id")
	if !ok {
		return
	}
	h.listTrades(w, r, stockID)
}

// ListAllTrades handles GET /trades.
func (h *StockHandler) ListAllTrades(w http.ResponseWriter, r *http.Request) {
	h.listTrades(w, r, 0)
}

func (h *StockHandler) listTrades(w http.ResponseWriter, r *http.Request, stockID int64) {
	trades, err := h.stockSvc.ListTrades(r.Context(), stockID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	resp := make([]tradeResponse, len(trades))
	for i, t := range trades {
		resp[i] = tradeResponse{
			TradeID:   t.TradeID,
			StockID:   t.StockID,
			SellerID:  t.SellerID,
			BuyerID:   t.BuyerID,
			Price:     domain.FormatCents(t.Price),
			Quantity:  t.Quantity,
			TradeDate: formatTime(t.TradeDate),
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetBook handles GET /stocks/{stock_id}/book?depth=N.
func (h *StockHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	stockID, ok := pathID(w, r, "stock_id")
	if !ok {
		return
	}

	depth := defaultBookDepth
	if v := r.URL.Query().Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "depth must be an integer")
			return
		}
		depth = d
	}

	book, err := h.stockSvc.GetBook(r.Context(), stockID, depth)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := bookResponse{
		StockID:    book.Stock.StockID,
		Symbol:     book.Stock.Symbol,
		Bids:       buildLevels(book.Bids),
		Offers:     buildLevels(book.Offers),
		SnapshotAt: formatTime(book.SnapshotAt),
	}
	if book.Spread != nil {
		s := domain.FormatCents(*book.Spread)
		resp.Spread = &s
	}
	WriteJSON(w, http.StatusOK, resp)
}

func buildLevels(levels []service.BookPriceLevel) []bookLevelResponse {
	result := make([]bookLevelResponse, len(levels))
	for i, l := range levels {
		result[i] = bookLevelResponse{
			Price:         domain.FormatCents(l.Price),
			TotalQuantity: l.TotalQuantity,
			OrderCount:    l.OrderCount,
		}
	}
	return result
}

func buildStockResponse(s *domain.Stock) stockResponse {
	resp := stockResponse{
		StockID:         s.StockID,
		Symbol:          s.Symbol,
		Name:            s.Name,
		LastTradedPrice: domain.FormatCents(s.LastTradedPrice),
	}
	if !s.LastChecked.IsZero() {
		c := formatTime(s.LastChecked)
		resp.LastChecked = &c
	}
	return resp
}
