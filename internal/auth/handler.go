package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-debts-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

type Handler struct {
	tokens   *TokenService
	users    *user.UserService
	validate *utilities.Validator
	logger   *zap.SugaredLogger
}

func NewHandler(tokens *TokenService, users *user.UserService, validate *utilities.Validator, logger *zap.SugaredLogger) *Handler {
	return &Handler{tokens: tokens, users: users, validate: validate, logger: logger}
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type RevokeRequest struct {
	Token string `json:"token" validate:"required"`
}

// SessionResponse is the body of sign-up and login.
type SessionResponse struct {
	*TokenPair
	User *entity.User `json:"user"`
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.users.SignupUser(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			utilities.WriteError(w, http.StatusBadRequest, "User with this email already exists")
			return
		}
		h.logger.Warnw("signup failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.writeSession(w, r, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.users.AuthenticatePassword(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debugw("login failed", "err", err)
		switch {
		case errors.Is(err, user.ErrBadCredentials):
			utilities.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, user.ErrLocked):
			utilities.WriteError(w, http.StatusForbidden, "account locked")
		case errors.Is(err, user.ErrDisabled):
			utilities.WriteError(w, http.StatusForbidden, "account disabled")
		default:
			utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	h.writeSession(w, r, http.StatusOK, u)
}

// Token rotates a refresh token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	pair, err := h.tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			utilities.WriteError(w, http.StatusUnauthorized, "invalid_grant")
			return
		}
		h.logger.Errorw("refresh failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, pair)
}

// Revoke always answers 200, like RFC 7009, even for unknown tokens.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.tokens.Revoke(r.Context(), req.Token); err != nil {
		h.logger.Warnw("revoke failed", "err", err)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, status int, u *entity.User) {
	pair, err := h.tokens.Issue(r.Context(), u.ID)
	if err != nil {
		h.logger.Errorw("issue tokens failed", "user_id", u.ID, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utilities.WriteJSON(w, status, SessionResponse{TokenPair: pair, User: u})
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
