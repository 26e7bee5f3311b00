package auth

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const revokeTimeout = 5 * time.Second

// LogoutHandler ends the local session only: the refresh token is revoked at
// the provider (best effort), the record and its refresh slot are dropped and
// the cookie is expired. The provider's own SSO session is left alone.
func (m *Middleware) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sid := m.sessionID(r); sid != "" {
			m.endSession(r.Context(), sid)
		}
		m.expireCookie(w)
		http.Redirect(w, r, m.session.LogoutRedirect, http.StatusFound)
	}
}

func (m *Middleware) endSession(ctx context.Context, sid string) {
	ctx = context.WithoutCancel(ctx)
	cred, ok, err := m.store.Get(ctx, sid)
	if err != nil {
		m.log.Warn("logout: session store read failed", zap.String("session", redactID(sid)), zap.Error(err))
	}
	if ok && m.revoker != nil && cred.RefreshToken != "" {
		rctx, cancel := context.WithTimeout(ctx, revokeTimeout)
		if err := m.revoker.Revoke(rctx, cred.RefreshToken, "refresh_token"); err != nil {
			m.log.Warn("logout: refresh token revocation failed",
				zap.String("session", redactID(sid)),
				zap.Error(err),
			)
		}
		cancel()
	}
	if err := m.store.Clear(ctx, sid); err != nil {
		m.log.Error("logout: session clear failed", zap.String("session", redactID(sid)), zap.Error(err))
	}
	if m.coord != nil {
		m.coord.Forget(sid)
	}
	m.log.Info("session ended",
		zap.String("session", redactID(sid)),
		zap.String("username", cred.User.Username),
	)
}
