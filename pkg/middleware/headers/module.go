package headers

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ProvideMiddleware wires the header emitter with a crypto/rand nonce source.
func ProvideMiddleware(src ConfigSource, log *zap.Logger) *Middleware {
	return New(src, RandomNonceSource{}, log.Named("headers"))
}

var Module = fx.Options(
	fx.Provide(ProvideMiddleware),
)
