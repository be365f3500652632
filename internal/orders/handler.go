package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// IdempotencyHeader carries the client supplied replay key.
const IdempotencyHeader = "Idempotency-Key"

type orderService interface {
	Create(ctx context.Context, req CreateRequest, requestedBy int64, idempotencyKey string) (*Order, error)
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, req ListRequest) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id int64, next Status, actorID int64) (*Order, error)
}

// Handler manages order HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  orderService
	validate *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service orderService) *Handler {
	return &Handler{logger: logger, service: service, validate: httpx.NewValidator()}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Patch("/{id}/status", h.updateStatus)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.Create(r.Context(), req, actor, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.respond(w, "create order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, CreateResponse{ID: order.ID, Status: order.Status})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respond(w, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromQuery(r)
	req := ListRequest{Page: page, PerPage: perPage}
	if raw := r.URL.Query().Get("client_id"); raw != "" {
		clientID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "client_id must be numeric")
			return
		}
		req.ClientID = &clientID
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := Status(raw)
		req.Status = &status
	}
	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respond(w, "list orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       list,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.UpdateStatus(r.Context(), id, req.Status, actor)
	if err != nil {
		h.respond(w, "update order status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	var lineErr *LineError
	switch {
	case errors.As(err, &lineErr):
		httpx.RespondError(w, lineErr)
	case errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrDuplicate),
		errors.Is(err, httpx.ErrConflict), errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
