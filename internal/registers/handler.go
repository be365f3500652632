package registers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler exposes register session endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.open)
	r.Get("/{id}", h.get)
	r.Post("/{id}/close", h.close)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req OpenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.service.Open(r.Context(), actor, req)
	if err != nil {
		h.respond(w, "open register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, session)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "register id must be numeric")
		return
	}
	session, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respond(w, "get register", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "register id must be numeric")
		return
	}
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	session, err := h.service.Close(r.Context(), id, actor)
	if err != nil {
		h.respond(w, "close register", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrConflict), errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
