// internal/lending/handler.go
package lending

import (
	"encoding/json"
	"net/http"
	"time"

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

func (h *Handler) HandleRequestIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uuid.UUID `json:"user_id"`
		BookID uuid.UUID `json:"book_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, liberr.Wrap(liberr.KindInvalidInput, err, "decode issue request"))
		return
	}

	actor := auth.FromContext(r.Context())
	if req.UserID == uuid.Nil {
		req.UserID = actor.UserID
	}
	issue, err := h.service.RequestIssue(r.Context(), actor, req.UserID, req.BookID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, issue)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.issueID(w, r)
	if !ok {
		return
	}
	issue, err := h.service.GetIssue(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, issue)
}

func (h *Handler) HandleActions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.issueID(w, r)
	if !ok {
		return
	}
	actions, err := h.service.Actions(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

// HandleTransition serves the per-action POST endpoints; the chi route
// binds each action name to this handler.
func (h *Handler) HandleTransition(action Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.issueID(w, r)
		if !ok {
			return
		}
		actor := auth.FromContext(r.Context())

		var issue *Issue
		var err error
		switch action {
		case ActionApprove:
			issue, err = h.service.Approve(r.Context(), actor, id)
		case ActionReject:
			issue, err = h.service.Reject(r.Context(), actor, id)
		case ActionRequestReturn:
			issue, err = h.service.RequestReturn(r.Context(), actor, id)
		case ActionCancelReturn:
			issue, err = h.service.CancelReturn(r.Context(), actor, id)
		case ActionConfirmReturn:
			issue, err = h.service.ConfirmReturn(r.Context(), actor, id)
		case ActionRenew:
			issue, err = h.service.Renew(r.Context(), actor, id)
		default:
			err = liberr.New(liberr.KindInvalidInput, "unknown action %q", action)
		}
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, issue)
	}
}

func (h *Handler) HandleListUserIssues(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "invalid user ID"))
		return
	}

	actor := auth.FromContext(r.Context())
	var issues []*Issue
	if r.URL.Query().Get("active") == "true" {
		issues, err = h.service.ListUserActive(r.Context(), actor, userID)
	} else {
		issues, err = h.service.ListUserIssues(r.Context(), actor, userID)
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, issues)
}

func (h *Handler) HandleListOverdue(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireLibrarian(auth.FromContext(r.Context())); err != nil {
		httpx.WriteError(w, err)
		return
	}
	issues, err := h.service.ListOverdue(r.Context(), time.Now().UTC())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, issues)
}

func (h *Handler) issueID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "issueID"))
	if err != nil {
		httpx.WriteError(w, liberr.New(liberr.KindInvalidInput, "invalid issue ID"))
		return uuid.Nil, false
	}
	return id, true
}
