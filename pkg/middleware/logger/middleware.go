package logger

import (
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/headers"
	"go.uber.org/zap"
)

// Middleware writes one access-log entry per request after the response
// is complete. ca may be nil, in which case every request logs anonymous.
func (m *Middleware) Middleware(ca *auth.Middleware) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimd.NewWrapResponseWriter(w, r.ProtoMajor)
			body := captureBody(r)
			start := time.Now()

			defer func() {
				fields := append(identityFields(ca, r),
					zap.String("dateTime", start.UTC().Format(time.RFC1123)),
					zap.String("requestId", chimd.GetReqID(r.Context())),
					zap.String("httpScheme", scheme(r)),
					zap.String("httpProto", r.Proto),
					zap.String("httpMethod", r.Method),
					zap.String("remoteAddr", r.RemoteAddr),
					zap.String("uri", r.URL.Path),
					zap.Duration("lat", time.Since(start)),
					zap.Int("responseSize", ww.BytesWritten()),
					zap.Int("status", ww.Status()),
				)
				if body != nil {
					fields = append(fields, zap.ByteString("requestData", body))
				}
				accessLogger().Info("", fields...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func identityFields(ca *auth.Middleware, r *http.Request) []zap.Field {
	ctx := r.Context()
	_, hasNonce := headers.NonceFromContext(ctx)
	var u auth.User
	isAuth := false
	if ca != nil {
		u = ca.GetUser(ctx)
		isAuth = ca.IsAuthenticated(ctx)
	}
	return []zap.Field{
		zap.Bool("isAuthenticated", isAuth),
		zap.String("sessionState", auth.StateFromContext(ctx).String()),
		zap.String("username", u.Username),
		zap.String("role", u.Role.Name),
		zap.String("authenticationProvider", u.AuthenticationSource.Provider),
		zap.Bool("cspNonce", hasNonce),
	}
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
