package core

import (
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	manifest "github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	hmetrics "github.com/joeydtaylor/steeze-sentinel/pkg/middleware/metrics"
	httpx "github.com/joeydtaylor/steeze-sentinel/pkg/transport/httpx"
)

// BuildRouter assembles the request pipeline in its fixed order:
// request id, recoverer, heartbeat, security headers, session gate, access
// log, metrics, then the sentinel's own endpoints and the guarded app.
func BuildRouter(cfg manifest.Config, d BuildDeps) http.Handler {
	r := d.Router
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))

	if d.Headers != nil {
		r.Use(d.Headers.Middleware())
	}
	if d.Auth != nil {
		r.Use(d.Auth.Middleware())
	}
	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware(d.Auth))
	}
	// label by route pattern; the app catch-all collapses to "/*"
	hmetrics.SetPathNormalizer(httpx.RoutePattern)
	r.Use(hmetrics.Collect(d.Auth))

	if d.Metrics != nil {
		r.Get("/metrics", d.Metrics)
	}
	if d.Auth != nil && cfg.Session.LogoutPath != "" {
		r.Get(cfg.Session.LogoutPath, d.Auth.LogoutHandler())
	}

	app := d.App
	if app == nil {
		app = http.NotFoundHandler()
	}
	h := app.ServeHTTP
	if cfg.Server.UpstreamTimeoutMS > 0 {
		h = withTimeout(h, time.Duration(cfg.Server.UpstreamTimeoutMS)*time.Millisecond)
	}
	h = withGuard(h, d.Auth, cfg.EffectiveGuards())
	r.Mount("/", http.HandlerFunc(h))

	return r.Mux()
}
