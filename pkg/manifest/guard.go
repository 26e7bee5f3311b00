package manifest

import (
	"errors"
	"path"
	"strings"
)

// Guard protects every path under Prefix. RequireAuth alone yields a JSON
// 401 for anonymous callers; Users and Roles additionally restrict who may
// pass (403 otherwise). The session admin role satisfies any Roles list.
type Guard struct {
	Prefix      string   `toml:"prefix"`
	Roles       []string `toml:"roles"`
	Users       []string `toml:"users"`
	RequireAuth bool     `toml:"require_auth"`
}

// Restricts reports whether the guard needs an identity at all.
func (g Guard) Restricts() bool {
	return g.RequireAuth || len(g.Users) > 0 || len(g.Roles) > 0
}

// Matches reports whether p is Prefix itself or below it.
func (g Guard) Matches(p string) bool {
	if g.Prefix == "/" {
		return true
	}
	return p == g.Prefix || strings.HasPrefix(p, g.Prefix+"/")
}

func (g *Guard) normalize() error {
	g.Prefix = strings.TrimSpace(g.Prefix)
	if g.Prefix == "" {
		return errors.New("prefix is required")
	}
	if !strings.HasPrefix(g.Prefix, "/") {
		g.Prefix = "/" + g.Prefix
	}
	if g.Prefix != "/" {
		g.Prefix = path.Clean(g.Prefix)
	}
	g.Roles = compact(g.Roles)
	g.Users = compact(g.Users)
	return nil
}

// EffectiveGuards returns the configured [[guard]] entries followed by one
// require-auth guard per [session] api_route_prefixes entry. The first
// matching guard wins.
func (c Config) EffectiveGuards() []Guard {
	out := make([]Guard, 0, len(c.Guards)+len(c.Session.APIRoutePrefixes))
	out = append(out, c.Guards...)
	for _, p := range c.Session.APIRoutePrefixes {
		g := Guard{Prefix: p, RequireAuth: true}
		if g.normalize() == nil {
			out = append(out, g)
		}
	}
	return out
}
