// internal/policy/handler.go
package policy

import (
	"encoding/json"
	"net/http"

	"libralend/internal/auth"
	"libralend/internal/httpx"
	"libralend/internal/liberr"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httpx.WriteError(w, liberr.Wrap(liberr.KindInvalidInput, err, "decode policy update"))
		return
	}

	p, err := h.service.Set(r.Context(), auth.FromContext(r.Context()), update)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}
