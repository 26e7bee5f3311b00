package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := m.Evaluate(r.Context(), m.sessionID(r))
			gateTotal.WithLabelValues(out.State.String()).Inc()

			ctx := context.WithValue(r.Context(), stateCtxKey, out.State)
			if out.State.Authenticated() {
				ctx = context.WithValue(ctx, userCtxKey, out.Credential.User)
				ctx = context.WithValue(ctx, credCtxKey, out.Credential)
			}
			if out.State == SessionInvalidated {
				m.expireCookie(w)
			}

			// never redirect or fail here; downstream decides what anonymous users see
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *Middleware) sessionID(r *http.Request) string {
	c, err := r.Cookie(m.session.CookieName)
	if err != nil || c == nil {
		return ""
	}
	return c.Value
}

// Establish persists a credential for a freshly logged-in user and sets the
// session cookie. A new session id is minted when c carries none.
func (m *Middleware) Establish(ctx context.Context, w http.ResponseWriter, c Credential) (Credential, error) {
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
	if err := m.store.Put(ctx, c.SessionID, c); err != nil {
		return Credential{}, err
	}
	http.SetCookie(w, m.cookie(c.SessionID, int(m.session.TTL().Seconds())))
	m.log.Info("session established",
		zap.String("session", redactID(c.SessionID)),
		zap.String("username", c.User.Username),
	)
	return c, nil
}

func (m *Middleware) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

func (m *Middleware) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.session.CookieName,
		Value:    value,
		Path:     m.session.CookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.session.CookieSecure,
		SameSite: m.session.SameSite(),
	}
}
