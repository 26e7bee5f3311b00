package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joeydtaylor/steeze-sentinel/pkg/core"
	"github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/headers"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-sentinel/pkg/report"
	"github.com/joeydtaylor/steeze-sentinel/pkg/transport/httpx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ---------- Options ----------

type Options struct {
	Service       string // for logs and Sentry release only
	ConfigEnv     string // e.g. SENTINEL_CONFIG
	DefaultConfig string // e.g. "sentinel.toml"
	ConfigPath    string // wins over ConfigEnv when set (CLI flag)
	ListenEnv     string // SERVER_LISTEN_ADDRESS
	DefaultListen string
	TLSCertEnv    string // SSL_SERVER_CERTIFICATE
	TLSKeyEnv     string // SSL_SERVER_KEY
}

type Option func(*Options)

func WithService(s string) Option       { return func(o *Options) { o.Service = s } }
func WithConfigEnv(k string) Option     { return func(o *Options) { o.ConfigEnv = k } }
func WithConfigPath(path string) Option { return func(o *Options) { o.ConfigPath = path } }
func WithListenEnv(k string) Option     { return func(o *Options) { o.ListenEnv = k } }
func WithDefaultListen(a string) Option { return func(o *Options) { o.DefaultListen = a } }
func WithTLSCertKeyEnv(cert, key string) Option {
	return func(o *Options) { o.TLSCertEnv, o.TLSKeyEnv = cert, key }
}

func DefaultOptions() Options {
	return Options{
		Service:       "sentinel",
		ConfigEnv:     "SENTINEL_CONFIG",
		DefaultConfig: "sentinel.toml",
		ListenEnv:     "SERVER_LISTEN_ADDRESS",
		DefaultListen: ":4000",
		TLSCertEnv:    "SSL_SERVER_CERTIFICATE",
		TLSKeyEnv:     "SSL_SERVER_KEY",
	}
}

// ResolveConfigPath returns the explicit path, else the env var, else the default.
func (o Options) ResolveConfigPath() string {
	if o.ConfigPath != "" {
		return o.ConfigPath
	}
	return envOr(o.ConfigEnv, o.DefaultConfig)
}

// Module returns the complete Fx option set. Hosts supply their application
// handler as an http.Handler named "upstream"; without one every guarded
// path answers 404.
func Module(opts ...Option) fx.Option {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return fx.Options(
		fx.Supply(o),

		// Config snapshot
		fx.Provide(provideSource),
		fx.Provide(func(s *core.Source) manifest.Config { return s.Current() }),
		fx.Provide(fx.Annotate(
			func(s *core.Source) *core.Source { return s },
			fx.As(new(headers.ConfigSource)),
		)),

		// Middleware modules
		headers.Module,
		auth.Module,
		logger.Module,
		metrics.Module,

		// Router impl
		fx.Provide(httpx.NewChi),

		fx.Provide(fx.Annotate(provideRouter, fx.ResultTags(`name:"app"`))),
		fx.Invoke(registerHooks),
	)
}

// ---------- Config ----------

// provideSource also initialises Sentry so a config failure is reported.
func provideSource(o Options, log *zap.Logger) *core.Source {
	if err := report.Setup(o.Service); err != nil {
		log.Warn("sentry disabled", zap.Error(err))
	}
	path := o.ResolveConfigPath()
	src, err := core.NewSource(path, log.Named("config"))
	if err != nil {
		report.Fatal(err, map[string]string{"path": path, "service": o.Service})
		log.Fatal("config load failed", zap.Error(err), zap.String("path", path))
	}
	return src
}

// ---------- Router ----------

type routerDeps struct {
	fx.In

	Config   manifest.Config
	Headers  *headers.Middleware
	AuthMW   *auth.Middleware
	LogMW    *logger.Middleware
	Metrics  http.Handler `name:"metrics"`
	Upstream http.Handler `name:"upstream" optional:"true"`
	R        httpx.Router
}

func provideRouter(d routerDeps) http.Handler {
	return core.BuildRouter(d.Config, core.BuildDeps{
		Headers: d.Headers,
		Auth:    d.AuthMW,
		LogMW:   d.LogMW,
		Metrics: d.Metrics,
		Router:  d.R,
		App:     d.Upstream,
	})
}

// ---------- Lifecycle ----------

type serverDeps struct {
	fx.In
	Opts   Options
	Logger *zap.Logger
	Source *core.Source
	App    http.Handler `name:"app"`
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	addr := envOr(d.Opts.ListenEnv, d.Opts.DefaultListen)
	cert := os.Getenv(d.Opts.TLSCertEnv)
	key := os.Getenv(d.Opts.TLSKeyEnv)

	srv := &http.Server{
		Addr:         addr,
		Handler:      d.App,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		TLSConfig:    &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}
	useTLS := fileExists(cert) && fileExists(key)

	watchCtx, stopWatch := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := d.Source.Watch(watchCtx); err != nil {
				// serving with the boot snapshot is still correct
				d.Logger.Warn("config hot reload unavailable", zap.Error(err))
			}

			if useTLS {
				d.Logger.Info("server starting (TLS)",
					zap.String("service", d.Opts.Service),
					zap.String("addr", addr),
					zap.String("cert", cert),
				)
				go func() {
					if err := srv.ListenAndServeTLS(cert, key); err != nil && !errors.Is(err, http.ErrServerClosed) {
						report.Fatal(err, map[string]string{"service": d.Opts.Service})
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			} else {
				d.Logger.Info("server starting (PLAINTEXT)",
					zap.String("service", d.Opts.Service),
					zap.String("addr", addr),
				)
				go func() {
					srv.TLSConfig = nil
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						report.Fatal(err, map[string]string{"service": d.Opts.Service})
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", d.Opts.Service))
			stopWatch()
			err := srv.Shutdown(ctx)
			if cerr := d.Source.Close(); cerr != nil && err == nil {
				err = cerr
			}
			report.Flush()
			return err
		},
	})
}

// ---------- tiny helpers ----------

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
