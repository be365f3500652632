package inventory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// Reader is the read surface used by Handler.
type Reader interface {
	GetStock(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error)
	GetActiveDispatchWarehouse(ctx context.Context) (int64, error)
	GetStockCard(ctx context.Context, warehouseID, productID int64, limit int) ([]StockCardEntry, error)
}

// Handler exposes read-only inventory endpoints.
type Handler struct {
	logger *slog.Logger
	repo   Reader
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, repo Reader) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock", h.stock)
	r.Get("/stock-card", h.stockCard)
	r.Get("/dispatch-warehouse", h.dispatchWarehouse)
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	warehouseID, productID, ok := parsePair(w, r)
	if !ok {
		return
	}
	qty, err := h.repo.GetStock(r.Context(), warehouseID, productID)
	if err != nil {
		h.logger.Error("get stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, Balance{WarehouseID: warehouseID, ProductID: productID, Qty: qty})
}

func (h *Handler) stockCard(w http.ResponseWriter, r *http.Request) {
	warehouseID, productID, ok := parsePair(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cards, err := h.repo.GetStockCard(r.Context(), warehouseID, productID, limit)
	if err != nil {
		h.logger.Error("get stock card", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": cards})
}

func (h *Handler) dispatchWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := h.repo.GetActiveDispatchWarehouse(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoDispatchWarehouse) || errors.Is(err, ErrMultipleDispatchWarehouses) {
			httpx.Problem(w, http.StatusNotFound, "Not Configured", err.Error())
			return
		}
		h.logger.Error("get dispatch warehouse", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"warehouse_id": id})
}

func parsePair(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	warehouseID, err1 := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	productID, err2 := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err1 != nil || err2 != nil || warehouseID <= 0 || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "warehouse_id and product_id are required")
		return 0, 0, false
	}
	return warehouseID, productID, true
}
