package message

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/internal/auth"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/utilities"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/validation"
)

// Handler exposes the /messages endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Get serves the message already loaded by RequireParticipant.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := FromContext(r.Context())
	if !ok {
		id, err := ParseID(r.PathValue("id"))
		if err != nil {
			apierror.Write(w, h.logger, err)
			return
		}
		if d, err = h.svc.Get(r.Context(), id); err != nil {
			apierror.Write(w, h.logger, err)
			return
		}
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"message": d})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	from, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		apierror.Write(w, h.logger, apierror.Authentication("Unauthorized"))
		return
	}
	var in CreateInput
	if err := validation.DecodeJSON(r, &in); err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	m, err := h.svc.Create(r.Context(), from, in)
	if err != nil {
		h.logger.Debugw("send message failed", "from", from, "err", err)
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, map[string]any{"message": m})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r.PathValue("id"))
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	rc, err := h.svc.MarkRead(r.Context(), id)
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"message": rc})
}
