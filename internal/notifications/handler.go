// internal/notifications/handler.go
package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "invalid user ID"))
		return
	}
	actor := auth.FromContext(r.Context())
	if actor.UserID != userID && !actor.IsLibrarian() {
		httpx.WriteError(w, liberr.New(liberr.KindUnauthorized, "cannot read another member's notifications"))
		return
	}

	var typ *Type
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, ok := ParseType(raw)
		if !ok {
			httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "unknown notification type %q", raw))
			return
		}
		typ = &t
	}

	items, err := h.service.List(r.Context(), userID, typ)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}
