package user

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/authctx"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

// Handler exposes HTTP endpoints for reading users.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Me returns the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := authctx.UserID(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utilities.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h.logger.Errorw("load current user failed", "user_id", id, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, u)
}

// Search handles GET /users?name=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	id, ok := authctx.UserID(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utilities.WriteValidationError(w, map[string]string{"limit": "limit must be a number"})
			return
		}
		limit = n
	}
	users, err := h.svc.Search(r.Context(), id, q.Get("name"), limit)
	if err != nil {
		h.logger.Errorw("user search failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, users)
}
