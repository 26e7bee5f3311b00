package core

import (
	"net/http"
	"time"

	"github.com/joeydtaylor/steeze-sentinel/pkg/codec"
)

func writeJSON(w http.ResponseWriter, payload []byte, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if len(payload) > 0 {
		_, _ = w.Write(payload)
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

// apiError is the body of guard rejections.
type apiError struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Path       string `json:"path"`
	Timestamp  string `json:"timestamp"`
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, message string) {
	body, err := codec.JSONStrict.Marshal(apiError{
		Error:      http.StatusText(status),
		Message:    message,
		StatusCode: status,
		Path:       r.URL.Path,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		body = nil
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, body, status)
}
