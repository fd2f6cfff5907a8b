package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/user"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/utilities"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/validation"
)

// Handler exposes /login and /register.
type Handler struct {
	users  *user.UserService
	tokens *TokenService
	logger *zap.SugaredLogger
}

func NewHandler(users *user.UserService, tokens *TokenService, logger *zap.SugaredLogger) *Handler {
	return &Handler{users: users, tokens: tokens, logger: logger}
}

// LoginRequest login payload.
type LoginRequest struct {
	Username *string `json:"username" validate:"required,min=1"`
	Password *string `json:"password" validate:"required,min=1"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

var errBadCredentials = apierror.Credentials("Invalid username/password")

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validation.Decode(r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		apierror.Write(w, h.logger, err)
		return
	}
	username := user.NormalizeUsername(*req.Username)
	ok, err := h.users.Authenticate(r.Context(), username, *req.Password)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.logger.Debugw("login for unknown user", "username", username)
			apierror.Write(w, h.logger, errBadCredentials)
			return
		}
		apierror.Write(w, h.logger, err)
		return
	}
	if !ok {
		h.logger.Debugw("login password mismatch", "username", username)
		apierror.Write(w, h.logger, errBadCredentials)
		return
	}
	h.users.UpdateLoginTimestamp(r.Context(), username)

	token, err := h.tokens.Issue(username)
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterInput
	if err := validation.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		apierror.Write(w, h.logger, err)
		return
	}
	u, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.logger.Debugw("register failed", "err", err)
		apierror.Write(w, h.logger, err)
		return
	}
	token, err := h.tokens.Issue(u.Username)
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("user registered", "username", u.Username)
	utilities.WriteJSON(w, http.StatusCreated, tokenResponse{Token: token})
}
