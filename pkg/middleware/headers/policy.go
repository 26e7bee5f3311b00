package headers

import (
	"strings"

	"github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
)

// Directive is one named CSP clause.
type Directive struct {
	Name  string
	Value string
}

func (d Directive) String() string { return d.Name + " " + d.Value }

// Policy is an ordered directive list with unique names.
type Policy []Directive

// String renders the header value.
func (p Policy) String() string {
	parts := make([]string, len(p))
	for i, d := range p {
		parts[i] = d.String()
	}
	return strings.Join(parts, "; ")
}

// Get returns the value of the named directive.
func (p Policy) Get(name string) (string, bool) {
	for _, d := range p {
		if d.Name == name {
			return d.Value, true
		}
	}
	return "", false
}

// Build computes the CSP for one response. Built-in directives come first in
// a fixed order and are skipped when an override of the same name exists;
// overrides follow in declaration order.
func Build(cfg manifest.SecurityHeaders, nonce Nonce) Policy {
	overridden := make(map[string]struct{}, len(cfg.CustomCspDirectives))
	for _, d := range cfg.CustomCspDirectives {
		overridden[d.Name] = struct{}{}
	}

	p := make(Policy, 0, 10+len(cfg.CustomCspDirectives))
	add := func(name string, values ...string) {
		if _, ok := overridden[name]; ok {
			return
		}
		p = append(p, Directive{Name: name, Value: joinSources(values...)})
	}

	add("default-src", "'self'")
	add("object-src", "'none'")
	add("base-uri", "'self'")
	add("frame-ancestors", "'none'")

	img := []string{"'self'"}
	if cfg.AllowDataImages {
		img = append(img, "data:")
	}
	if cfg.AllowBlobImages {
		img = append(img, "blob:")
	}
	add("img-src", append(img, cfg.AllowedImageSources...)...)

	add("font-src", append([]string{"'self'"}, cfg.AllowedFontSources...)...)
	add("form-action", "'self'", cfg.IdpHost)

	script := append([]string{"'nonce-" + string(nonce) + "'", "'strict-dynamic'"}, cfg.AllowedScriptSources...)
	add("script-src", append(script, cfg.FrontendURL)...)

	// 'unsafe-inline' stays unconditional: SPA frontends inject inline styles.
	style := append([]string{"'self'", "'unsafe-inline'"}, cfg.AllowedStyleSources...)
	add("style-src", append(style, cfg.FrontendURL)...)

	connect := append([]string{"'self'"}, cfg.AllowedConnectSources...)
	connect = append(connect, cfg.IdpHost, cfg.FrontendURL)
	if ws := websocketOrigin(cfg.FrontendURL); ws != cfg.FrontendURL {
		connect = append(connect, ws)
	}
	add("connect-src", connect...)

	for _, d := range cfg.CustomCspDirectives {
		p = append(p, Directive{Name: d.Name, Value: d.Value})
	}
	return p
}

// websocketOrigin rewrites http(s) to ws(s) for dev-server live reload.
func websocketOrigin(origin string) string {
	switch {
	case strings.HasPrefix(origin, "https://"):
		return "wss://" + strings.TrimPrefix(origin, "https://")
	case strings.HasPrefix(origin, "http://"):
		return "ws://" + strings.TrimPrefix(origin, "http://")
	}
	return origin
}

func joinSources(values ...string) string {
	var b strings.Builder
	for _, v := range values {
		if v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(v)
	}
	return b.String()
}
