package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/middleware"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/auth"
)

// Collect records request counters and latency once the response is done.
// Labels come from the session gate's verdict, so Collect must run after it.
func Collect(ca *auth.Middleware) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSkipPath(r) {
				next.ServeHTTP(w, r)
				return
			}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() { observe(ca, r, ww.Status(), time.Since(start)) }()
			next.ServeHTTP(ww, r)
		})
	}
}

func observe(ca *auth.Middleware, r *http.Request, status int, took time.Duration) {
	role := ""
	if ca != nil {
		role = ca.GetUser(r.Context()).Role.Name
	}
	code := strconv.Itoa(status)

	totalHttpRequestsFromRole.WithLabelValues(role).Inc()
	totalHttpRequestsBySession.WithLabelValues(auth.StateFromContext(r.Context()).String()).Inc()
	// route pattern after the handler ran; see SetPathNormalizer
	totalHttpRequestsToUri.WithLabelValues(code, normalizePath(r), r.Method).Inc()
	totalHttpRequests.WithLabelValues(code, r.Method).Inc()
	responseTime.Observe(took.Seconds())
}
