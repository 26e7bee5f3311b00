package core

import (
	"context"
	"net/http"
	"time"
)

// withTimeout bounds the application handler's context. The handler is
// expected to honor ctx; the response itself is not cut off.
func withTimeout(next http.HandlerFunc, d time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}
