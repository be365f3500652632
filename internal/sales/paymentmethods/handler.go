package paymentmethods

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// Lister lists the methods offered at the register.
type Lister interface {
	ListActive(ctx context.Context) ([]Method, error)
}

// Invalidator drops a cached method after an admin change.
type Invalidator interface {
	Invalidate(ctx context.Context, id int64) error
}

// Handler exposes payment method endpoints.
type Handler struct {
	logger *slog.Logger
	list   Lister
	cache  Invalidator
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, list Lister, cache Invalidator) *Handler {
	return &Handler{logger: logger, list: list, cache: cache}
}

// MountRoutes registers the routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.index)
	r.Delete("/{id}/cache", h.invalidate)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	methods, err := h.list.ListActive(r.Context())
	if err != nil {
		h.logger.Error("list payment methods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if methods == nil {
		methods = []Method{}
	}
	httpx.JSON(w, http.StatusOK, methods)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "payment method id must be a positive integer")
		return
	}
	if err := h.cache.Invalidate(r.Context(), id); err != nil {
		h.logger.Error("invalidate payment method", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
