// internal/fines/handler.go
package fines

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

func (h *Handler) HandleListUserFines(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "invalid user ID"))
		return
	}

	unpaidOnly := r.URL.Query().Get("unpaid") == "true"
	list, err := h.service.ListUserFines(r.Context(), auth.FromContext(r.Context()), userID, unpaidOnly)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleListUnpaid(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUnpaid(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	fineID, err := uuid.Parse(chi.URLParam(r, "fineID"))
	if err != nil {
		httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "invalid fine ID"))
		return
	}

	fine, err := h.service.MarkPaid(r.Context(), auth.FromContext(r.Context()), fineID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, fine)
}

func (h *Handler) HandleDeclareLost(w http.ResponseWriter, r *http.Request) {
	issueID, err := uuid.Parse(chi.URLParam(r, "issueID"))
	if err != nil {
		httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "invalid issue ID"))
		return
	}

	var req struct {
		BookPrice float64 `json:"book_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, liberr.Wrap(liberr.KindInvalidInput, err, "decode lost-book request"))
		return
	}

	fine, err := h.service.AssessLostBook(r.Context(), auth.FromContext(r.Context()), issueID, req.BookPrice)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, fine)
}

func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireLibrarian(auth.FromContext(r.Context())); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.service.SweepOverdue(r.Context()); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
