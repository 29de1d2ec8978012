// Package shared holds the JSON envelope helpers used by every handler so
// error bodies stay consistent across the API.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "caretrack/pkg/domain-errors"
)

// WriteJSON encodes v with the given status. Encoding failures are ignored;
// the status line has already been committed.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the JSON error envelope. Message is always display-ready.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError translates a domain error into the JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), ErrorBody{
		Error:   string(code),
		Message: dErrors.MessageOf(err),
	})
}
