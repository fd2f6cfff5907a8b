package user

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/utilities"
)

// Handler exposes the /users endpoints. Authentication and same-user checks
// are applied by the router.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.All(r.Context())
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), r.PathValue("username"))
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handler) MessagesTo(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.MessagesTo(r.Context(), r.PathValue("username"))
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"user_messages": msgs})
}

func (h *Handler) MessagesFrom(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.MessagesFrom(r.Context(), r.PathValue("username"))
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"user_messages": msgs})
}
