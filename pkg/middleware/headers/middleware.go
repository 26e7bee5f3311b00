package headers

import (
	"net/http"
	"strconv"
	"strings"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"go.uber.org/zap"
)

// ConfigSource yields the headers configuration for the current request.
// Implementations may swap the value between requests (hot reload).
type ConfigSource interface {
	Headers() manifest.SecurityHeaders
}

// Static is a ConfigSource that never changes.
type Static manifest.SecurityHeaders

func (s Static) Headers() manifest.SecurityHeaders { return manifest.SecurityHeaders(s) }

// Middleware stamps the CSP and hardening headers onto every response.
type Middleware struct {
	src    ConfigSource
	nonces NonceSource
	log    *zap.Logger
}

func New(src ConfigSource, nonces NonceSource, log *zap.Logger) *Middleware {
	if nonces == nil {
		nonces = RandomNonceSource{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Middleware{src: src, nonces: nonces, log: log}
}

func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// one snapshot per request
			cfg := m.src.Headers()
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			nonce, err := m.nonces.Generate()
			if err != nil {
				m.log.Error("csp nonce generation failed",
					zap.String("requestId", chimd.GetReqID(r.Context())),
					zap.Error(err),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			if cfg.RemoveServerHeader {
				w.Header().Del("Server")
				w = &serverStripWriter{ResponseWriter: w}
			}
			Apply(w.Header(), cfg, nonce, isSecure(r, cfg))

			next.ServeHTTP(w, r.WithContext(withNonce(r.Context(), nonce)))
		})
	}
}

// Apply writes the hardening headers and the CSP for nonce into h.
func Apply(h http.Header, cfg manifest.SecurityHeaders, nonce Nonce, secure bool) {
	set := func(name, value string) {
		if value != "" {
			h.Set(name, value)
		}
	}
	set("X-Frame-Options", cfg.XFrameOptions)
	set("X-Content-Type-Options", cfg.XContentTypeOptions)
	set("Referrer-Policy", cfg.ReferrerPolicy)
	set("Cross-Origin-Opener-Policy", cfg.CrossOriginOpenerPolicy)
	set("Cross-Origin-Resource-Policy", cfg.CrossOriginResourcePolicy)
	set("Cross-Origin-Embedder-Policy", cfg.CrossOriginEmbedderPolicy)
	set("Permissions-Policy", cfg.PermissionsPolicy)

	if cfg.EnableHsts && secure {
		h.Set("Strict-Transport-Security", hstsValue(cfg))
	}
	h.Set("Content-Security-Policy", Build(cfg, nonce).String())
}

func hstsValue(cfg manifest.SecurityHeaders) string {
	v := "max-age=" + strconv.Itoa(cfg.HstsMaxAge)
	if cfg.HstsIncludeSubDomains {
		v += "; includeSubDomains"
	}
	if cfg.HstsPreload {
		v += "; preload"
	}
	return v
}

func isSecure(r *http.Request, cfg manifest.SecurityHeaders) bool {
	if r.TLS != nil {
		return true
	}
	if cfg.TrustForwardedProto {
		// first hop wins when a proxy chain appends values
		proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
		return strings.EqualFold(strings.TrimSpace(proto), "https")
	}
	return false
}
