package auth

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoRefreshToken   = errors.New("session has no refresh token")
	ErrRefreshRejected  = errors.New("refresh rejected by identity provider")
	ErrRefreshAbandoned = errors.New("refresh abandoned by caller")
	ErrNoTokenEndpoint  = errors.New("no token endpoint configured")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// ProviderError is a non-2xx answer from the token or revocation endpoint.
type ProviderError struct {
	Status      int
	Code        string // OAuth2 "error"
	Description string // OAuth2 "error_description"
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("identity provider status %d", e.Status)
	}
	if e.Description == "" {
		return fmt.Sprintf("identity provider status %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("identity provider status %d: %s (%s)", e.Status, e.Code, e.Description)
}

// Unwrap maps grant failures onto ErrRefreshRejected so callers can tell a
// dead refresh token from a transient provider outage.
func (e *ProviderError) Unwrap() error {
	switch {
	case e.Code == "invalid_grant", e.Code == "invalid_client", e.Code == "unauthorized_client":
		return ErrRefreshRejected
	case e.Status == 401:
		return ErrRefreshRejected
	}
	return nil
}
