package manifest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks a normalized config. Missing optional values are never an
// error; they simply contribute nothing.
func (c *Config) Validate() error {
	if err := c.Headers.validate(); err != nil {
		return fmt.Errorf("headers: %w", err)
	}
	if err := c.Session.validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if c.Session.Store == StoreRedis && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis: addr required when session.store = \"redis\"")
	}
	if c.Provider.Issuer != "" {
		if _, err := url.ParseRequestURI(c.Provider.Issuer); err != nil {
			return fmt.Errorf("provider: issuer: %w", err)
		}
		if strings.TrimSpace(c.Provider.ClientID) == "" {
			return errors.New("provider: client_id required when issuer is set")
		}
	}
	for i, g := range c.Guards {
		if g.Prefix == "" {
			return fmt.Errorf("guard %d: prefix is required", i)
		}
		if !g.Restricts() {
			return fmt.Errorf("guard %d (%s): needs require_auth, users or roles", i, g.Prefix)
		}
	}
	if c.Server.UpstreamTimeoutMS < 0 {
		return errors.New("server: upstream_timeout_ms must be >= 0")
	}
	return nil
}

func (h *SecurityHeaders) validate() error {
	if h.HstsMaxAge < 0 {
		return errors.New("hsts_max_age must be >= 0")
	}
	seen := make(map[string]struct{}, len(h.CustomCspDirectives))
	for i, d := range h.CustomCspDirectives {
		if strings.ContainsAny(d.Name, " ;,") {
			return fmt.Errorf("csp_directive %d: invalid name %q", i, d.Name)
		}
		if strings.Contains(d.Value, ";") {
			return fmt.Errorf("csp_directive %d (%s): value must not contain ';'", i, d.Name)
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("csp_directive %d: duplicate directive %q", i, d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

func (s *Session) validate() error {
	if s.CookieName == "" {
		return errors.New("cookie_name required")
	}
	switch s.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown store %q", s.Store)
	}
	if s.ExpirySkewSeconds < 0 {
		return errors.New("expiry_skew_seconds must be >= 0")
	}
	if s.RefreshTimeoutMS < 0 {
		return errors.New("refresh_timeout_ms must be >= 0")
	}
	if s.LogoutPath != "" && !strings.HasPrefix(s.LogoutPath, "/") {
		return fmt.Errorf("logout_path %q must start with '/'", s.LogoutPath)
	}
	if !isLocalPath(s.LogoutRedirect) {
		return fmt.Errorf("logout_redirect %q must be a local path", s.LogoutRedirect)
	}
	for _, p := range s.APIRoutePrefixes {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("api_route_prefixes: %q must start with '/'", p)
		}
	}
	return nil
}

// isLocalPath rejects absolute and protocol-relative redirect targets.
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
