package sales

import (
	"context"
	"errors"
	"io"
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

type saleService interface {
	Settle(ctx context.Context, req SettleRequest, operatorID int64, idempotencyKey string) (*SettleResult, error)
	Get(ctx context.Context, id int64) (*Sale, error)
	ListByRegister(ctx context.Context, registerID int64) ([]Sale, error)
	Void(ctx context.Context, id, actorID int64, reason string) (*Sale, error)
	Ticket(ctx context.Context, id int64) (TicketView, error)
	VerifyTicket(ctx context.Context, id int64, code string) (bool, error)
}

// Handler manages sale endpoints.
type Handler struct {
	logger   *slog.Logger
	service  saleService
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service saleService) *Handler {
	return &Handler{logger: logger, service: service, validate: httpx.NewValidator()}
}

// MountRoutes registers sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.settle)
	r.Get("/", h.listByRegister)
	r.Get("/{id}", h.show)
	r.Patch("/{id}/void", h.void)
	r.Get("/{id}/ticket", h.ticket)
	r.Get("/{id}/ticket/verify", h.verifyTicket)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req SettleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Settle(r.Context(), req, actor, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.respond(w, "settle sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) listByRegister(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("registerId")
	registerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || registerID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "registerId must be a positive integer")
		return
	}
	list, err := h.service.ListByRegister(r.Context(), registerID)
	if err != nil {
		h.respond(w, "list sales", err)
		return
	}
	if list == nil {
		list = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respond(w, "get sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req VoidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.Void(r.Context(), id, actor, req.Reason)
	if err != nil {
		h.respond(w, "void sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) ticket(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Ticket(r.Context(), id)
	if err != nil {
		h.respond(w, "sale ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) verifyTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	valid, err := h.service.VerifyTicket(r.Context(), id, r.URL.Query().Get("code"))
	if err != nil {
		h.respond(w, "verify ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	var rejected *SettlementError
	switch {
	case errors.As(err, &rejected):
		httpx.RespondError(w, rejected)
	case errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrDuplicate):
		httpx.RespondError(w, err)
	case errors.Is(err, ErrAlreadyVoided):
		httpx.WriteProblem(w, httpx.ProblemDetail{
			Title:  "Already Voided",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
			Kind:   "AlreadyVoided",
		})
	case errors.Is(err, ErrTicketFormat):
		h.logger.Error(op, slog.Any("error", err))
		httpx.WriteProblem(w, httpx.ProblemDetail{
			Title:  "Ticket Unavailable",
			Status: http.StatusInternalServerError,
			Kind:   "TicketFormattingFailed",
		})
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
