package book

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/apierror"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/utilities"
	"github.com/ovaphlow/pitchfork/service-bookpost-go-stdlib/pkg/validation"
)

// Handler exposes the /books endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.List(r.Context())
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetByIsbn(r.Context(), r.PathValue("isbn"))
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"book": b})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := validation.DecodeJSON(r, &in); err != nil {
		h.logger.Debugw("invalid book payload", "err", err)
		apierror.Write(w, h.logger, err)
		return
	}
	b, err := h.svc.Create(r.Context(), in)
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, map[string]any{"book": b})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := validation.DecodeJSON(r, &in); err != nil {
		h.logger.Debugw("invalid book payload", "err", err)
		apierror.Write(w, h.logger, err)
		return
	}
	b, err := h.svc.Update(r.Context(), r.PathValue("isbn"), in)
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"book": b})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("isbn")); err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]string{"message": "Book deleted"})
}
