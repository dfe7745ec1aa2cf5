// Package respond writes JSON responses for the HTTP handlers.
package respond

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wb-go/wbf/zlog"
)

// ErrorBody is the payload of every failed request.
type ErrorBody struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to encode response")
	}
}

// OK writes v with status 200.
func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Fail writes an error body stamped with the current time.
func Fail(w http.ResponseWriter, status int, err error) {
	JSON(w, status, ErrorBody{Error: err.Error(), Timestamp: time.Now().UTC()})
}
