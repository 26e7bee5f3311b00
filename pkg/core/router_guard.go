package core

import (
	"net/http"

	manifest "github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"github.com/joeydtaylor/steeze-sentinel/pkg/middleware/auth"
)

// withGuard applies the first guard whose prefix matches the request path.
// Anonymous callers get a JSON 401 instead of a login redirect; API clients
// handle re-authentication themselves.
func withGuard(next http.HandlerFunc, a *auth.Middleware, guards []manifest.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := matchGuard(guards, r.URL.Path)
		if !ok || !g.Restricts() {
			next(w, r)
			return
		}

		// If no auth middleware wired, nothing can satisfy a guard
		if a == nil || !a.IsAuthenticated(r.Context()) {
			writeAPIError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		if len(g.Users) > 0 {
			u := a.GetUser(r.Context()).Username
			for _, x := range g.Users {
				if u == x {
					next(w, r)
					return
				}
			}
			if len(g.Roles) == 0 {
				writeAPIError(w, r, http.StatusForbidden, "user not permitted")
				return
			}
		}
		if len(g.Roles) > 0 {
			if a.IsAdmin(r.Context()) {
				next(w, r)
				return
			}
			for _, x := range g.Roles {
				if a.IsRole(r.Context(), auth.Role{Name: x}) {
					next(w, r)
					return
				}
			}
			writeAPIError(w, r, http.StatusForbidden, "role not permitted")
			return
		}
		next(w, r)
	}
}

func matchGuard(guards []manifest.Guard, path string) (manifest.Guard, bool) {
	for _, g := range guards {
		if g.Matches(path) {
			return g, true
		}
	}
	return manifest.Guard{}, false
}
