package auth

import "time"

type Role struct {
	Name string `json:"name"`
}

type AuthenticationSource struct {
	Provider string `json:"provider"`
}

type User struct {
	Username             string               `json:"username"`
	AuthenticationSource AuthenticationSource `json:"authenticationSource"`
	Role                 Role                 `json:"role"`
}

// Credential is the server-side record behind a session cookie. It is
// created by the host at login, mutated only by the refresh coordinator and
// destroyed on logout or when a refresh fails.
type Credential struct {
	SessionID    string    `json:"sessionId"`
	User         User      `json:"user"`
	AccessToken  string    `json:"accessToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	IDToken      string    `json:"idToken,omitempty"` // kept as a revocation hint
}

// Authenticated reports whether the record carries a user identity.
func (c Credential) Authenticated() bool { return c.User.Username != "" }

// Token is the result of one refresh exchange with the identity provider.
type Token struct {
	AccessToken  string
	RefreshToken string // empty when the provider does not rotate
	IDToken      string
	ExpiresAt    time.Time // zero when the provider did not say
}
