package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ProvideStore picks the session backend named by [session] store. The Redis
// client is pinged at startup and closed on shutdown.
func ProvideStore(lc fx.Lifecycle, cfg manifest.Config, log *zap.Logger) (Store, error) {
	switch cfg.Session.Store {
	case manifest.StoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return client.Close() },
		})
		log.Info("session store: redis", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
		return NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.Session.TTL()), nil
	case manifest.StoreMemory, "":
		log.Info("session store: memory")
		return NewMemoryStore(cfg.Session.TTL()), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

func ProvideExchanger(cfg manifest.Config, log *zap.Logger) *OIDCExchanger {
	return NewOIDCExchanger(cfg.Provider, nil, log.Named("oidc"))
}

func ProvideCoordinator(store Store, ex *OIDCExchanger, cfg manifest.Config, log *zap.Logger) *Coordinator {
	return NewCoordinator(store, ex, CoordinatorOptions{
		Skew:    cfg.Session.ExpirySkew(),
		Timeout: cfg.Session.RefreshTimeout(),
	}, log.Named("refresh"))
}

func ProvideAuthentication(store Store, coord *Coordinator, ex *OIDCExchanger, cfg manifest.Config, log *zap.Logger) *Middleware {
	return New(store, coord, cfg.Session, Options{Revoker: ex}, log.Named("session"))
}

var Module = fx.Options(
	fx.Provide(
		ProvideStore,
		ProvideExchanger,
		ProvideCoordinator,
		ProvideAuthentication,
	),
)
