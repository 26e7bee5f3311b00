package manifest

import (
	"net/url"
	"strings"
)

// Config is the top-level sentinel.toml document.
type Config struct {
	Server   Server          `toml:"server"`
	Headers  SecurityHeaders `toml:"headers"`
	Session  Session         `toml:"session"`
	Provider Provider        `toml:"provider"`
	Redis    Redis           `toml:"redis"`
	Guards   []Guard         `toml:"guard"`
}

/* ===========================
   Server
   =========================== */

type Server struct {
	PublicURL         string   `toml:"public_url"`          // externally visible origin, e.g. https://app.example.com
	UpstreamTimeoutMS int      `toml:"upstream_timeout_ms"` // 0 = no deadline on the application handler
	LogBodyPaths      []string `toml:"log_body_paths"`      // JSON request bodies on these paths reach the access log
}

/* ===========================
   Identity provider
   =========================== */

type Provider struct {
	Issuer        string   `toml:"issuer"`         // e.g. https://idp.example.com/realms/main
	TokenURL      string   `toml:"token_url"`      // default: {issuer}/protocol/openid-connect/token
	RevocationURL string   `toml:"revocation_url"` // default: {issuer}/protocol/openid-connect/revoke
	ClientID      string   `toml:"client_id"`
	ClientSecret  string   `toml:"client_secret"`
	Scopes        []string `toml:"scopes"`
	TimeoutMS     int      `toml:"timeout_ms"` // http client timeout; default 8000
}

/* ===========================
   Redis (session store backend)
   =========================== */

type Redis struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"` // default "sentinel:session:"
}

// Default returns a Config carrying the built-in defaults. Decoding a TOML
// document on top of it only overrides the keys the document sets.
func Default() Config {
	return Config{
		Headers: DefaultSecurityHeaders(),
		Session: DefaultSession(),
		Provider: Provider{
			TimeoutMS: 8000,
		},
		Redis: Redis{
			Addr:      "localhost:6379",
			KeyPrefix: "sentinel:session:",
		},
	}
}

// Normalize fills derived values: the identity-provider origin and the
// frontend origin used by the CSP fall back to the provider issuer and the
// public URL when not set explicitly.
func (c *Config) Normalize() {
	c.Provider.Issuer = strings.TrimRight(strings.TrimSpace(c.Provider.Issuer), "/")
	if c.Provider.Issuer != "" {
		if c.Provider.TokenURL == "" {
			c.Provider.TokenURL = c.Provider.Issuer + "/protocol/openid-connect/token"
		}
		if c.Provider.RevocationURL == "" {
			c.Provider.RevocationURL = c.Provider.Issuer + "/protocol/openid-connect/revoke"
		}
	}
	if c.Provider.TimeoutMS <= 0 {
		c.Provider.TimeoutMS = 8000
	}

	c.Server.PublicURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicURL), "/")
	if strings.TrimSpace(c.Headers.IdpHost) == "" {
		c.Headers.IdpHost = originOf(c.Provider.Issuer)
	}
	if strings.TrimSpace(c.Headers.FrontendURL) == "" {
		c.Headers.FrontendURL = c.Server.PublicURL
	}
	c.Headers.normalize()
	c.Session.normalize()
	for i := range c.Guards {
		_ = c.Guards[i].normalize() // Validate reports the empty prefix
	}

	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "sentinel:session:"
	}
}

// originOf reduces an absolute URL to scheme://host[:port].
func originOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
