package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// State is where one request ended up in the session gate.
type State int

const (
	Unauthenticated State = iota
	AuthenticatedFresh
	AuthenticatedRefreshing // refresh outstanding; the caller stopped waiting
	AuthenticatedRefreshed
	SessionInvalidated
)

func (s State) String() string {
	switch s {
	case AuthenticatedFresh:
		return "authenticated-fresh"
	case AuthenticatedRefreshing:
		return "authenticated-refreshing"
	case AuthenticatedRefreshed:
		return "authenticated-refreshed"
	case SessionInvalidated:
		return "session-invalidated"
	default:
		return "unauthenticated"
	}
}

// Authenticated reports whether the request proceeds with an identity.
func (s State) Authenticated() bool {
	return s == AuthenticatedFresh || s == AuthenticatedRefreshed
}

// Outcome is the gate decision for one request.
type Outcome struct {
	State      State
	Credential Credential // set for the authenticated states
	Err        error      // cause for SessionInvalidated, abandonment, or a store read failure
}

// Evaluate runs the session state machine for sessionID. It never returns an
// error to the caller: every failure maps onto a state.
func (m *Middleware) Evaluate(ctx context.Context, sessionID string) Outcome {
	if sessionID == "" {
		return Outcome{State: Unauthenticated}
	}

	cred, ok, err := m.store.Get(ctx, sessionID)
	if err != nil {
		// a store outage must not log everyone out
		m.log.Warn("session store read failed", zap.String("session", redactID(sessionID)), zap.Error(err))
		return Outcome{State: Unauthenticated, Err: err}
	}
	if !ok || !cred.Authenticated() {
		return Outcome{State: Unauthenticated}
	}
	cred.SessionID = sessionID

	if Classify(cred, m.now(), m.skew) != Expired {
		return Outcome{State: AuthenticatedFresh, Credential: cred}
	}

	next, err := m.coord.Refresh(ctx, sessionID)
	switch {
	case err == nil:
		return Outcome{State: AuthenticatedRefreshed, Credential: next}
	case errors.Is(err, ErrRefreshAbandoned):
		return Outcome{State: AuthenticatedRefreshing, Err: err}
	case errors.Is(err, ErrStoreUnavailable):
		m.log.Warn("session store read failed", zap.String("session", redactID(sessionID)), zap.Error(err))
		return Outcome{State: Unauthenticated, Err: err}
	}
	// the coordinator has already discarded the record
	m.log.Debug("refresh failed",
		zap.String("session", redactID(sessionID)),
		zap.String("username", cred.User.Username),
		zap.Error(err),
	)
	return Outcome{State: SessionInvalidated, Err: err}
}
