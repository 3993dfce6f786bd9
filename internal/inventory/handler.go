// internal/inventory/handler.go
package inventory

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

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		books, err := h.service.Search(r.Context(), q)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, books)
		return
	}

	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, books)
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireLibrarian(auth.FromContext(r.Context())); err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req struct {
		ISBN        string `json:"isbn"`
		Title       string `json:"title"`
		Author      string `json:"author"`
		TotalCopies int    `json:"total_copies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, liberr.Wrap(liberr.KindInvalidInput, err, "decode book"))
		return
	}

	book, err := h.service.AddBook(r.Context(), req.ISBN, req.Title, req.Author, req.TotalCopies)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, book)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "invalid book ID"))
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireLibrarian(auth.FromContext(r.Context())); err != nil {
		httpx.WriteError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "invalid book ID"))
		return
	}

	var req struct {
		BookUpdate
		CopyDelta *int `json:"copy_delta,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, liberr.Wrap(liberr.KindInvalidInput, err, "decode book update"))
		return
	}

	book, err := h.service.UpdateBook(r.Context(), id, req.BookUpdate)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if req.CopyDelta != nil {
		book, err = h.service.AdjustTotalCopies(r.Context(), id, *req.CopyDelta)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireAdmin(auth.FromContext(r.Context())); err != nil {
		httpx.WriteError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "invalid book ID"))
		return
	}

	if err := h.service.RemoveBook(r.Context(), id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
