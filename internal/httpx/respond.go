// internal/httpx/respond.go

// Package httpx holds the response helpers shared by all handlers.
package httpx

import (
	"encoding/json"
	"net/http"

	"libralend/internal/liberr"
)

// errorBody is the wire shape of every failure response.
type errorBody struct {
	Kind    liberr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps err's kind onto an HTTP status and writes the structured
// error body. Unclassified errors surface as a generic internal failure so
// store details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	kind := liberr.KindOf(err)
	msg := err.Error()
	if kind == liberr.KindInternal {
		msg = "internal inconsistency"
	}
	WriteJSON(w, liberr.HTTPStatus(kind), errorBody{Kind: kind, Message: msg})
}
