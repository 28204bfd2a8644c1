// Package response holds the JSON envelope every handler writes through.
// Errors carry a stable machine code; free-form detail never includes
// secrets or matcher internals.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// JSON writes body as a JSON response with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(r.Context(), "encode response", "error", err)
	}
}

// Error writes a structured error envelope. code is a stable machine-readable
// token; msg is safe for end users.
func Error(w http.ResponseWriter, r *http.Request, status int, code, msg string, details any) {
	JSON(w, r, status, errorBody{Error: errorDetail{
		Code:      code,
		Message:   msg,
		Details:   details,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}
