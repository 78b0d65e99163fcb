package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/poiesic/lorebase/chat"
	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/ingest"
	"github.com/poiesic/lorebase/storage"
)

// Result is the JSON envelope of every non-streaming response.
type Result struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeResult(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Result{Code: http.StatusOK, Message: "success", Data: data})
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, Result{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes. Unclassified
// errors are internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, chat.ErrForeignConversation):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrForeignKnowledgeBase),
		errors.Is(err, ingest.ErrForeignKnowledgeBase):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrEmptyQuery),
		errors.Is(err, chat.ErrBaseConflict),
		errors.Is(err, core.ErrInvalidDocument),
		errors.Is(err, core.ErrInvalidConversation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
