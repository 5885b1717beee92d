package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/astromeet/astromeet/internal/matching/shared"
	"github.com/astromeet/astromeet/internal/platform/httpx"
	internalShared "github.com/astromeet/astromeet/internal/shared"
)

type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := internalShared.UserIDFromContext(r.Context())
	if userID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing user identity")
		return
	}
	var periodID int64
	if raw := r.URL.Query().Get("period_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "period_id must be a positive integer")
			return
		}
		periodID = parsed
	}
	view, err := h.service.GetStatus(r.Context(), userID, periodID)
	if err != nil {
		h.respondError(w, "status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "apply", h.service.Apply)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "cancel", h.service.Cancel)
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request, name string, call func(context.Context, int64, int64) (ActionResponse, error)) {
	userID := internalShared.UserIDFromContext(r.Context())
	if userID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing user identity")
		return
	}
	var req ActionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "period_id is required")
		return
	}
	resp, err := call(r.Context(), userID, req.PeriodID)
	if err != nil {
		h.respondError(w, name, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNoActiveRound):
		httpx.Problem(w, http.StatusNotFound, "No Active Round", err.Error())
	case errors.Is(err, shared.ErrPhaseNotOpen):
		httpx.Problem(w, http.StatusConflict, "Window Not Open", err.Error())
	case errors.Is(err, shared.ErrAlreadyApplied):
		httpx.Problem(w, http.StatusConflict, "Already Applied", err.Error())
	case errors.Is(err, shared.ErrNoActiveApplication):
		httpx.Problem(w, http.StatusConflict, "No Active Application", err.Error())
	case errors.Is(err, shared.ErrCooldownActive):
		httpx.Problem(w, http.StatusTooManyRequests, "Cooldown Active", err.Error())
	case errors.Is(err, shared.ErrInsufficientStars):
		httpx.Problem(w, http.StatusPaymentRequired, "Insufficient Stars", err.Error())
	case errors.Is(err, shared.ErrPairingNotYetRun):
		httpx.Problem(w, http.StatusConflict, "Pairing Not Run", err.Error())
	case errors.Is(err, shared.ErrInvalidPeriod):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Round", err.Error())
	case errors.Is(err, shared.ErrTransient):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Temporarily Unavailable", "please retry")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
