package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joeydtaylor/steeze-sentinel/pkg/codec"
	"github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"go.uber.org/zap"
)

const maxProviderBody = 1 << 20

// Exchanger trades a refresh token for a new access token.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (Token, error)
}

// Revoker invalidates a token at the identity provider (RFC 7009).
type Revoker interface {
	Revoke(ctx context.Context, token, hint string) error
}

// OIDCExchanger speaks the OAuth2 refresh_token grant and token revocation
// against an OpenID Connect provider.
type OIDCExchanger struct {
	client        HTTPDoer
	tokenURL      string
	revocationURL string
	clientID      string
	clientSecret  string
	scopes        []string
	now           func() time.Time
	log           *zap.Logger
}

func NewOIDCExchanger(p manifest.Provider, client HTTPDoer, log *zap.Logger) *OIDCExchanger {
	if client == nil {
		client = newHTTPClient(time.Duration(p.TimeoutMS) * time.Millisecond)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OIDCExchanger{
		client:        client,
		tokenURL:      p.TokenURL,
		revocationURL: p.RevocationURL,
		clientID:      p.ClientID,
		clientSecret:  p.ClientSecret,
		scopes:        p.Scopes,
		now:           time.Now,
		log:           log,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	Scope        string `json:"scope"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *OIDCExchanger) Exchange(ctx context.Context, refreshToken string) (Token, error) {
	if e.tokenURL == "" {
		return Token{}, ErrNoTokenEndpoint
	}
	if refreshToken == "" {
		return Token{}, ErrNoRefreshToken
	}

	form := e.clientForm()
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if len(e.scopes) > 0 {
		form.Set("scope", strings.Join(e.scopes, " "))
	}

	xid := uuid.NewString()
	start := e.now()
	body, status, err := e.post(ctx, e.tokenURL, form, xid)
	if err != nil {
		e.log.Warn("refresh exchange failed",
			zap.String("exchangeId", xid),
			zap.Duration("elapsed", e.now().Sub(start)),
			zap.Error(err),
		)
		return Token{}, fmt.Errorf("token endpoint: %w", err)
	}
	if status != http.StatusOK {
		perr := providerError(status, body)
		e.log.Warn("refresh exchange rejected",
			zap.String("exchangeId", xid),
			zap.Int("status", status),
			zap.String("error", perr.Code),
		)
		return Token{}, perr
	}

	var tr tokenResponse
	if err := codec.JSONLenient.Unmarshal(body, &tr); err != nil {
		return Token{}, fmt.Errorf("token endpoint: %w", err)
	}
	if tr.AccessToken == "" {
		return Token{}, fmt.Errorf("token endpoint: response carries no access_token")
	}

	tok := Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		IDToken:      tr.IDToken,
	}
	switch {
	case tr.ExpiresIn > 0:
		tok.ExpiresAt = start.Add(time.Duration(tr.ExpiresIn) * time.Second)
	default:
		tok.ExpiresAt = accessTokenExpiry(tr.AccessToken)
	}

	e.log.Info("refresh exchange completed",
		zap.String("exchangeId", xid),
		zap.Duration("elapsed", e.now().Sub(start)),
		zap.Time("expiresAt", tok.ExpiresAt),
		zap.Bool("rotated", tr.RefreshToken != "" && tr.RefreshToken != refreshToken),
	)
	return tok, nil
}

// Revoke is best effort from the caller's point of view; a missing
// revocation endpoint is not an error.
func (e *OIDCExchanger) Revoke(ctx context.Context, token, hint string) error {
	if e.revocationURL == "" || token == "" {
		return nil
	}
	form := e.clientForm()
	form.Set("token", token)
	if hint != "" {
		form.Set("token_type_hint", hint)
	}
	body, status, err := e.post(ctx, e.revocationURL, form, uuid.NewString())
	if err != nil {
		return fmt.Errorf("revocation endpoint: %w", err)
	}
	if status < 200 || status > 299 {
		return providerError(status, body)
	}
	return nil
}

func (e *OIDCExchanger) clientForm() url.Values {
	form := url.Values{}
	form.Set("client_id", e.clientID)
	if e.clientSecret != "" {
		form.Set("client_secret", e.clientSecret)
	}
	return form
}

func (e *OIDCExchanger) post(ctx context.Context, endpoint string, form url.Values, xid string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", xid)

	res, err := e.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxProviderBody))
	if err != nil {
		return nil, res.StatusCode, err
	}
	return body, res.StatusCode, nil
}

func providerError(status int, body []byte) *ProviderError {
	perr := &ProviderError{Status: status}
	var er errorResponse
	if codec.JSONLenient.Unmarshal(body, &er) == nil {
		perr.Code = er.Error
		perr.Description = er.ErrorDescription
	}
	return perr
}

// accessTokenExpiry reads the exp claim of a JWT access token without
// verifying it. The token came straight from the provider over TLS and is
// only used to schedule the next refresh. Opaque tokens yield zero.
func accessTokenExpiry(raw string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
