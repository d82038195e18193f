// Package shared centralizes JSON responses and domain error translation so
// every handler speaks the same envelope.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "sigede/pkg/domain-errors"
)

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps a domain error to its HTTP status and a safe message.
// Internal detail never leaks to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": dErrors.UserMessage(code),
	})
}
