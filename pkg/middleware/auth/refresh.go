package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeydtaylor/steeze-sentinel/pkg/report"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	outcomeRefreshed = "refreshed"
	outcomeSkipped   = "skipped" // already fresh when the slot ran
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
	outcomeTimeout   = "timeout"
	outcomePanic     = "panic"
)

// CoordinatorOptions tunes a Coordinator. Zero values pick the defaults.
type CoordinatorOptions struct {
	Skew    time.Duration    // same margin the gate classifies with
	Timeout time.Duration    // upper bound on one exchange; default 10s
	Now     func() time.Time // clock; default time.Now
}

// Coordinator performs at most one refresh exchange per session at a time.
// Concurrent callers for the same session share the in-flight result.
type Coordinator struct {
	store     Store
	exchanger Exchanger
	skew      time.Duration
	timeout   time.Duration
	now       func() time.Time
	log       *zap.Logger

	group singleflight.Group
}

func NewCoordinator(store Store, ex Exchanger, opts CoordinatorOptions, log *zap.Logger) *Coordinator {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Skew < 0 {
		opts.Skew = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		store:     store,
		exchanger: ex,
		skew:      opts.Skew,
		timeout:   opts.Timeout,
		now:       opts.Now,
		log:       log,
	}
}

// Refresh returns a fresh credential for sessionID, running the exchange if
// no other caller is already doing so. If ctx ends first the caller gets
// ErrRefreshAbandoned while the exchange carries on for everyone else.
func (c *Coordinator) Refresh(ctx context.Context, sessionID string) (Credential, error) {
	if sessionID == "" {
		return Credential{}, ErrSessionNotFound
	}
	// the slot outlives any single caller
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(sessionID, func() (any, error) {
		return c.run(detached, sessionID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		return res.Val.(Credential), nil
	case <-ctx.Done():
		return Credential{}, fmt.Errorf("%w: %v", ErrRefreshAbandoned, ctx.Err())
	}
}

// Forget drops the slot for sessionID so the next Refresh starts a new one.
func (c *Coordinator) Forget(sessionID string) {
	c.group.Forget(sessionID)
}

// run is the body of one slot. Once the session record has been read, any
// failure discards it before the slot resolves, so a caller that read the
// expired credential earlier finds nothing left to exchange.
func (c *Coordinator) run(parent context.Context, sessionID string) (cred Credential, err error) {
	start := time.Now()
	outcome := outcomeFailed
	discard := false
	defer func() {
		if r := recover(); r != nil {
			outcome = outcomePanic
			err = fmt.Errorf("refresh panicked: %v", r)
			c.log.Error("refresh slot recovered from panic",
				zap.String("session", redactID(sessionID)),
				zap.Any("panic", r),
			)
			report.Error(err, map[string]string{"component": "session-refresh"})
		}
		if err != nil && discard {
			c.discard(parent, sessionID, err)
		}
		refreshTotal.WithLabelValues(outcome).Inc()
		refreshSeconds.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	cur, ok, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return Credential{}, fmt.Errorf("refresh: %w: %w", ErrStoreUnavailable, err)
	}
	if !ok || !cur.Authenticated() {
		return Credential{}, ErrSessionNotFound
	}
	discard = true
	// a slot that finished just before this one may have refreshed already
	if Classify(cur, c.now(), c.skew) != Expired {
		outcome = outcomeSkipped
		return cur, nil
	}
	if cur.RefreshToken == "" {
		return Credential{}, ErrNoRefreshToken
	}

	tok, err := c.exchanger.Exchange(ctx, cur.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			outcome = outcomeTimeout
			return Credential{}, fmt.Errorf("refresh: exchange exceeded %s: %w", c.timeout, err)
		case errors.Is(err, ErrRefreshRejected):
			outcome = outcomeRejected
		}
		return Credential{}, fmt.Errorf("refresh: %w", err)
	}

	next := cur
	next.AccessToken = tok.AccessToken
	next.ExpiresAt = tok.ExpiresAt
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	if tok.IDToken != "" {
		next.IDToken = tok.IDToken
	}
	if err := c.store.Put(ctx, sessionID, next); err != nil {
		return Credential{}, fmt.Errorf("refresh: persist: %w", err)
	}
	next.SessionID = sessionID

	outcome = outcomeRefreshed
	c.log.Info("session credential refreshed",
		zap.String("session", redactID(sessionID)),
		zap.String("username", next.User.Username),
		zap.Time("expiresAt", next.ExpiresAt),
	)
	return next, nil
}

// discard clears the session after a failed refresh. It gets its own
// deadline because the exchange context may already have expired.
func (c *Coordinator) discard(parent context.Context, sessionID string, cause error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()
	c.log.Info("session invalidated after failed refresh",
		zap.String("session", redactID(sessionID)),
		zap.Error(cause),
	)
	if err := c.store.Clear(ctx, sessionID); err != nil {
		c.log.Error("session clear failed", zap.String("session", redactID(sessionID)), zap.Error(err))
	}
}
