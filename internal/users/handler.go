// internal/users/handler.go
package users

import (
	"encoding/json"
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

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireAdmin(auth.FromContext(r.Context())); err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Role     Role   `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, liberr.Wrap(liberr.KindInvalidInput, err, "decode user"))
		return
	}
	if req.Role == "" {
		req.Role = RoleMember
	}

	u, err := h.service.Register(r.Context(), req.FullName, req.Email, req.Role)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireLibrarian(auth.FromContext(r.Context())); err != nil {
		httpx.WriteError(w, err)
		return
	}
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "invalid user ID"))
		return
	}
	actor := auth.FromContext(r.Context())
	if actor.UserID != id && !actor.IsLibrarian() {
		httpx.WriteError(w, liberr.New(liberr.KindUnauthorized, "cannot read another member's profile"))
		return
	}

	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireAdmin(auth.FromContext(r.Context())); err != nil {
		httpx.WriteError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "invalid user ID"))
		return
	}

	var req struct {
		Role Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, liberr.Wrap(liberr.KindInvalidInput, err, "decode role update"))
		return
	}

	u, err := h.service.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}
