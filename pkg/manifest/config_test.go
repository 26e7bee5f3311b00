package manifest

import (
	"strings"
	"testing"
)

func TestNormalizeDerivesOrigins(t *testing.T) {
	c := Default()
	c.Provider.Issuer = "https://idp.example.com/realms/main/"
	c.Provider.ClientID = "sentinel"
	c.Server.PublicURL = "https://app.example.com/"
	c.Normalize()

	if c.Headers.IdpHost != "https://idp.example.com" {
		t.Fatalf("idp host = %q", c.Headers.IdpHost)
	}
	if c.Headers.FrontendURL != "https://app.example.com" {
		t.Fatalf("frontend url = %q", c.Headers.FrontendURL)
	}
	if c.Provider.TokenURL != "https://idp.example.com/realms/main/protocol/openid-connect/token" {
		t.Fatalf("token url = %q", c.Provider.TokenURL)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestNormalizeKeepsExplicitOrigins(t *testing.T) {
	c := Default()
	c.Provider.Issuer = "https://idp.example.com/realms/main"
	c.Headers.IdpHost = "https://login.example.com"
	c.Headers.FrontendURL = "http://localhost:5173"
	c.Server.PublicURL = "https://app.example.com"
	c.Normalize()

	if c.Headers.IdpHost != "https://login.example.com" || c.Headers.FrontendURL != "http://localhost:5173" {
		t.Fatalf("explicit origins overwritten: %q %q", c.Headers.IdpHost, c.Headers.FrontendURL)
	}
}

func TestNormalizeDropsEmptyContributions(t *testing.T) {
	c := Default()
	c.Headers.AllowedScriptSources = []string{" ", "https://cdn.example.com", ""}
	c.Headers.CustomCspDirectives = []Directive{
		{Name: " Worker-Src ", Value: "'self' blob:"},
		{Name: "img-src", Value: "   "},
	}
	c.Normalize()

	if got := c.Headers.AllowedScriptSources; len(got) != 1 || got[0] != "https://cdn.example.com" {
		t.Fatalf("script sources = %v", got)
	}
	if len(c.Headers.CustomCspDirectives) != 1 {
		t.Fatalf("overrides = %+v", c.Headers.CustomCspDirectives)
	}
	if v, ok := c.Headers.Override("worker-src"); !ok || v != "'self' blob:" {
		t.Fatalf("worker-src override = %q %v", v, ok)
	}
	if _, ok := c.Headers.Override("img-src"); ok {
		t.Fatal("empty override must not be kept")
	}
}

func TestValidateRejectsDuplicateDirective(t *testing.T) {
	c := Default()
	c.Headers.CustomCspDirectives = []Directive{
		{Name: "script-src", Value: "'self'"},
		{Name: "SCRIPT-SRC", Value: "'none'"},
	}
	c.Normalize()
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestValidateSession(t *testing.T) {
	cases := map[string]func(*Config){
		"no cookie":         func(c *Config) { c.Session.CookieName = "" },
		"bad store":         func(c *Config) { c.Session.Store = "postgres" },
		"negative skew":     func(c *Config) { c.Session.ExpirySkewSeconds = -1 },
		"external redirect": func(c *Config) { c.Session.LogoutRedirect = "//evil.example.com" },
		"redis no addr": func(c *Config) {
			c.Session.Store = StoreRedis
			c.Redis.Addr = " "
		},
		"issuer no client": func(c *Config) { c.Provider.Issuer = "https://idp.example.com" },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mut(&c)
			c.Normalize()
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSessionDurations(t *testing.T) {
	s := DefaultSession()
	if s.ExpirySkew() != 0 {
		t.Fatalf("default skew = %v", s.ExpirySkew())
	}
	if s.RefreshTimeout().Seconds() != 10 {
		t.Fatalf("default refresh timeout = %v", s.RefreshTimeout())
	}
	s.ExpirySkewSeconds = 30
	if s.ExpirySkew().Seconds() != 30 {
		t.Fatalf("skew = %v", s.ExpirySkew())
	}
}
