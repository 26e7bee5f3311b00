package manifest

import (
	"net/http"
	"strings"
	"time"
)

type StoreType string

const (
	StoreMemory StoreType = "memory"
	StoreRedis  StoreType = "redis"
)

// Session configures the session cookie, the credential store and the
// refresh behaviour of the session gate.
type Session struct {
	CookieName     string `toml:"cookie_name"`
	CookiePath     string `toml:"cookie_path"`
	CookieSecure   bool   `toml:"cookie_secure"`
	CookieSameSite string `toml:"cookie_same_site"` // "Strict" | "Lax" | "None"

	Store      StoreType `toml:"store"`
	TTLSeconds int       `toml:"session_ttl_seconds"` // store-side lifetime of a session record

	// Forward-looking margin: a credential counts as expired this many
	// seconds before its literal expiry instant. Default 0.
	ExpirySkewSeconds int `toml:"expiry_skew_seconds"`
	RefreshTimeoutMS  int `toml:"refresh_timeout_ms"` // upper bound on one refresh exchange

	APIRoutePrefixes []string `toml:"api_route_prefixes"` // unauthenticated requests here get a JSON 401
	LogoutPath       string   `toml:"logout_path"`
	LogoutRedirect   string   `toml:"logout_redirect"`
	AdminRole        string   `toml:"admin_role"` // role name that satisfies every IsRole check
}

func DefaultSession() Session {
	return Session{
		CookieName:       "sentinel_session",
		CookiePath:       "/",
		CookieSecure:     true,
		CookieSameSite:   "Strict",
		Store:            StoreMemory,
		TTLSeconds:       8 * 60 * 60,
		RefreshTimeoutMS: 10000,
		LogoutPath:       "/bff/account/logout-app-only",
		LogoutRedirect:   "/",
	}
}

func (s Session) ExpirySkew() time.Duration {
	if s.ExpirySkewSeconds <= 0 {
		return 0
	}
	return time.Duration(s.ExpirySkewSeconds) * time.Second
}

func (s Session) RefreshTimeout() time.Duration {
	if s.RefreshTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.RefreshTimeoutMS) * time.Millisecond
}

func (s Session) TTL() time.Duration {
	if s.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(s.TTLSeconds) * time.Second
}

// SameSite maps the configured mode; anything unknown is Strict.
func (s Session) SameSite() http.SameSite {
	switch strings.ToLower(s.CookieSameSite) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

func (s *Session) normalize() {
	s.CookieName = strings.TrimSpace(s.CookieName)
	if s.CookiePath == "" {
		s.CookiePath = "/"
	}
	s.Store = StoreType(strings.ToLower(strings.TrimSpace(string(s.Store))))
	if s.Store == "" {
		s.Store = StoreMemory
	}
	s.APIRoutePrefixes = compact(s.APIRoutePrefixes)
	if s.LogoutRedirect == "" {
		s.LogoutRedirect = "/"
	}
}
