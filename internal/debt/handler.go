package debt

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/authctx"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

// Handler exposes the debt and operation endpoints.
type Handler struct {
	svc      *Service
	validate *utilities.Validator
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, validate *utilities.Validator, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, validate: validate, logger: logger}
}

type CreateDebtRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type CreateSingleDebtRequest struct {
	UserName string `json:"userName" validate:"required,max=120"`
}

type ConnectUserRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type CreateOperationRequest struct {
	DebtsID       string          `json:"debtsId" validate:"required"`
	MoneyAmount   decimal.Decimal `json:"moneyAmount"`
	MoneyReceiver string          `json:"moneyReceiver" validate:"required"`
	Description   string          `json:"description" validate:"max=70"`
	Date          *time.Time      `json:"date"`
}

// List handles GET /debts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	views, err := h.svc.List(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, views)
}

// Get handles GET /debts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Get(r.Context(), actor, r.PathValue("id"))
	h.respond(w, r, view, err)
}

// CreateMultiple handles PUT /debts.
func (h *Handler) CreateMultiple(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateDebtRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.svc.CreateMultipleDebt(r.Context(), actor, req.UserID)
	h.respond(w, r, view, err)
}

func (h *Handler) AcceptCreation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	view, err := h.svc.AcceptDebtCreation(r.Context(), actor, r.PathValue("id"))
	h.respond(w, r, view, err)
}

func (h *Handler) DeclineCreation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	err := h.svc.DeclineDebtCreation(r.Context(), actor, id)
	h.respond(w, r, nil, err)
}

// CreateSingle handles PUT /debts/single.
func (h *Handler) CreateSingle(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateSingleDebtRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.svc.CreateSingleDebt(r.Context(), actor, req.UserName)
	h.respond(w, r, view, err)
}

// Delete handles DELETE /debts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	err := h.svc.DeleteDebt(r.Context(), actor, r.PathValue("id"))
	h.respond(w, r, nil, err)
}

// AcceptUserDeleted handles POST /debts/single/{id}/i_love_lsd.
func (h *Handler) AcceptUserDeleted(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	view, err := h.svc.AcceptUserDeletedStatus(r.Context(), actor, r.PathValue("id"))
	h.respond(w, r, view, err)
}

func (h *Handler) ConnectUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req ConnectUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.svc.ConnectUserToSingleDebt(r.Context(), actor, r.PathValue("id"), req.UserID)
	h.respond(w, r, view, err)
}

func (h *Handler) AcceptConnection(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	view, err := h.svc.AcceptUserConnection(r.Context(), actor, r.PathValue("id"))
	h.respond(w, r, view, err)
}

func (h *Handler) DeclineConnection(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	view, err := h.svc.DeclineUserConnection(r.Context(), actor, r.PathValue("id"))
	h.respond(w, r, view, err)
}

// respond writes view, or {"id": ...} for transitions that leave nothing to
// show, or the mapped error.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, view *DebtView, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if view == nil {
		utilities.WriteJSON(w, http.StatusOK, map[string]string{"id": r.PathValue("id")})
		return
	}
	utilities.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var de *Error
	if errors.As(err, &de) {
		h.logger.Debugw("debt request rejected", "path", r.URL.Path, "err", err)
		utilities.WriteError(w, http.StatusBadRequest, de.Error())
		return
	}
	h.logger.Errorw("debt request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	utilities.WriteError(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := authctx.UserID(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := utilities.DecodeJSON(r, v); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	if fields := h.validate.Struct(v); fields != nil {
		utilities.WriteValidationError(w, fields)
		return false
	}
	return true
}
