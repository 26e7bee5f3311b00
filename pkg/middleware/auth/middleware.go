package auth

import (
	"time"

	"github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"go.uber.org/zap"
)

// Middleware is the session gate. It resolves the session cookie into a
// credential, keeps the access token fresh and exposes the identity to
// downstream handlers through the request context.
type Middleware struct {
	store   Store
	coord   *Coordinator
	revoker Revoker // optional; used by the logout handler
	session manifest.Session
	skew    time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// Options carries the optional collaborators of New.
type Options struct {
	Revoker Revoker
	Now     func() time.Time
}

func New(store Store, coord *Coordinator, session manifest.Session, opts Options, log *zap.Logger) *Middleware {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Middleware{
		store:   store,
		coord:   coord,
		revoker: opts.Revoker,
		session: session,
		skew:    session.ExpirySkew(),
		now:     opts.Now,
		log:     log,
	}
}

// Store exposes the backing session store to the host (login flows).
func (m *Middleware) Store() Store { return m.store }
