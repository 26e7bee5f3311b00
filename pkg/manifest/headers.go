package manifest

import "strings"

// Directive is a CSP directive override declared in [[headers.csp_directive]].
// Declaration order is preserved; it is the order overrides are emitted in.
type Directive struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// SecurityHeaders configures the per-request hardening headers and CSP.
type SecurityHeaders struct {
	Enabled            bool `toml:"enabled"`
	RemoveServerHeader bool `toml:"remove_server_header"`

	// Single-value headers; empty = omit.
	XFrameOptions             string `toml:"x_frame_options"`
	XContentTypeOptions       string `toml:"x_content_type_options"`
	ReferrerPolicy            string `toml:"referrer_policy"`
	CrossOriginOpenerPolicy   string `toml:"cross_origin_opener_policy"`
	CrossOriginResourcePolicy string `toml:"cross_origin_resource_policy"`
	CrossOriginEmbedderPolicy string `toml:"cross_origin_embedder_policy"`
	PermissionsPolicy         string `toml:"permissions_policy"`

	EnableHsts            bool `toml:"enable_hsts"`
	HstsMaxAge            int  `toml:"hsts_max_age"` // seconds
	HstsIncludeSubDomains bool `toml:"hsts_include_subdomains"`
	HstsPreload           bool `toml:"hsts_preload"`
	TrustForwardedProto   bool `toml:"trust_forwarded_proto"` // treat X-Forwarded-Proto: https as secure transport

	AllowDataImages bool `toml:"allow_data_images"`
	AllowBlobImages bool `toml:"allow_blob_images"`

	AllowedImageSources   []string `toml:"allowed_image_sources"`
	AllowedFontSources    []string `toml:"allowed_font_sources"`
	AllowedScriptSources  []string `toml:"allowed_script_sources"`
	AllowedStyleSources   []string `toml:"allowed_style_sources"`
	AllowedConnectSources []string `toml:"allowed_connect_sources"`

	IdpHost     string `toml:"idp_host"`
	FrontendURL string `toml:"frontend_url"`

	CustomCspDirectives []Directive `toml:"csp_directive"`
}

func DefaultSecurityHeaders() SecurityHeaders {
	return SecurityHeaders{
		Enabled:                   true,
		RemoveServerHeader:        true,
		XFrameOptions:             "DENY",
		XContentTypeOptions:       "nosniff",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		PermissionsPolicy:         "camera=(), microphone=(), geolocation=()",
		EnableHsts:                true,
		HstsMaxAge:                31536000,
		HstsIncludeSubDomains:     true,
		AllowDataImages:           true,
	}
}

// Override returns the literal value configured for directive name, if any.
func (h SecurityHeaders) Override(name string) (string, bool) {
	for _, d := range h.CustomCspDirectives {
		if d.Name == name {
			return d.Value, true
		}
	}
	return "", false
}

// normalize trims origins and override entries. Blank origins and overrides
// with an empty value make no contribution and are dropped.
func (h *SecurityHeaders) normalize() {
	h.AllowedImageSources = compact(h.AllowedImageSources)
	h.AllowedFontSources = compact(h.AllowedFontSources)
	h.AllowedScriptSources = compact(h.AllowedScriptSources)
	h.AllowedStyleSources = compact(h.AllowedStyleSources)
	h.AllowedConnectSources = compact(h.AllowedConnectSources)
	h.IdpHost = strings.TrimRight(strings.TrimSpace(h.IdpHost), "/")
	h.FrontendURL = strings.TrimRight(strings.TrimSpace(h.FrontendURL), "/")

	out := h.CustomCspDirectives[:0:0]
	for _, d := range h.CustomCspDirectives {
		d.Name = strings.ToLower(strings.TrimSpace(d.Name))
		d.Value = strings.TrimSpace(d.Value)
		if d.Name == "" || d.Value == "" {
			continue
		}
		out = append(out, d)
	}
	h.CustomCspDirectives = out
}

func compact(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
