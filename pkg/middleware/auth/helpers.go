package auth

import "context"

type contextKey struct{ name string }

var (
	userCtxKey  = &contextKey{"user"}
	credCtxKey  = &contextKey{"credential"}
	stateCtxKey = &contextKey{"session-state"}
)

func (m *Middleware) GetUser(ctx context.Context) User {
	if user, ok := ctx.Value(userCtxKey).(User); ok {
		return user
	}
	return User{}
}

func (m *Middleware) IsRole(ctx context.Context, role Role) bool {
	if u, ok := ctx.Value(userCtxKey).(User); ok {
		return u.Role.Name == role.Name || (m.session.AdminRole != "" && u.Role.Name == m.session.AdminRole)
	}
	return false
}

func (m *Middleware) IsAdmin(ctx context.Context) bool {
	if u, ok := ctx.Value(userCtxKey).(User); ok && m.session.AdminRole != "" {
		return u.Role.Name == m.session.AdminRole
	}
	return false
}

func (m *Middleware) IsUser(ctx context.Context, username string) bool {
	if u, ok := ctx.Value(userCtxKey).(User); ok {
		return u.Username == username || (m.session.AdminRole != "" && u.Role.Name == m.session.AdminRole)
	}
	return false
}

func (m *Middleware) IsAuthenticated(ctx context.Context) bool {
	u, ok := ctx.Value(userCtxKey).(User)
	return ok && u.Username != ""
}

// StateFromContext returns the gate state recorded for the request, or
// Unauthenticated when the gate did not run.
func StateFromContext(ctx context.Context) State {
	if s, ok := ctx.Value(stateCtxKey).(State); ok {
		return s
	}
	return Unauthenticated
}

// CredentialFromContext returns the session credential of an authenticated
// request.
func CredentialFromContext(ctx context.Context) (Credential, bool) {
	c, ok := ctx.Value(credCtxKey).(Credential)
	return c, ok
}

// AccessToken returns the current (possibly just refreshed) access token for
// calls the application makes on the user's behalf.
func AccessToken(ctx context.Context) string {
	if c, ok := CredentialFromContext(ctx); ok {
		return c.AccessToken
	}
	return ""
}
