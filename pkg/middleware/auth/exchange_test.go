package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"go.uber.org/zap"
)

type providerStub struct {
	status int
	body   string
	form   url.Values
	ctype  string
}

func (p *providerStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	p.form, _ = url.ParseQuery(string(raw))
	p.ctype = r.Header.Get("Content-Type")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(p.status)
	_, _ = io.WriteString(w, p.body)
}

func newTestExchanger(t *testing.T, stub *providerStub) *OIDCExchanger {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	e := NewOIDCExchanger(manifest.Provider{
		TokenURL:      srv.URL + "/token",
		RevocationURL: srv.URL + "/revoke",
		ClientID:      "sentinel",
		ClientSecret:  "s3cret",
		Scopes:        []string{"openid", "offline_access"},
	}, srv.Client(), zap.NewNop())
	e.now = fixedClock
	return e
}

func TestExchangeExpiresIn(t *testing.T) {
	stub := &providerStub{status: 200, body: `{"access_token":"at-2","token_type":"Bearer","expires_in":300,"refresh_token":"rt-2","not-before-policy":0}`}
	e := newTestExchanger(t, stub)

	tok, err := e.Exchange(context.Background(), "rt-1")
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "at-2" || tok.RefreshToken != "rt-2" {
		t.Fatalf("token = %+v", tok)
	}
	if !tok.ExpiresAt.Equal(t0.Add(300 * time.Second)) {
		t.Fatalf("expires at %v", tok.ExpiresAt)
	}

	want := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": "rt-1",
		"client_id":     "sentinel",
		"client_secret": "s3cret",
		"scope":         "openid offline_access",
	}
	for k, v := range want {
		if got := stub.form.Get(k); got != v {
			t.Errorf("form %s = %q, want %q", k, got, v)
		}
	}
	if stub.ctype != "application/x-www-form-urlencoded" {
		t.Fatalf("content type = %q", stub.ctype)
	}
}

func TestExchangeFallsBackToJWTExpiry(t *testing.T) {
	exp := t0.Add(15 * time.Minute)
	at, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ada",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatal(err)
	}
	e := newTestExchanger(t, &providerStub{status: 200, body: `{"access_token":"` + at + `"}`})

	tok, err := e.Exchange(context.Background(), "rt-1")
	if err != nil {
		t.Fatal(err)
	}
	if !tok.ExpiresAt.Equal(exp) {
		t.Fatalf("expires at %v, want %v", tok.ExpiresAt, exp)
	}
}

func TestExchangeOpaqueTokenHasUnknownExpiry(t *testing.T) {
	e := newTestExchanger(t, &providerStub{status: 200, body: `{"access_token":"opaque"}`})
	tok, err := e.Exchange(context.Background(), "rt-1")
	if err != nil {
		t.Fatal(err)
	}
	if !tok.ExpiresAt.IsZero() {
		t.Fatalf("expires at %v", tok.ExpiresAt)
	}
}

func TestExchangeInvalidGrant(t *testing.T) {
	e := newTestExchanger(t, &providerStub{status: 400, body: `{"error":"invalid_grant","error_description":"Token is not active"}`})
	_, err := e.Exchange(context.Background(), "rt-1")
	if !errors.Is(err, ErrRefreshRejected) {
		t.Fatalf("err = %v", err)
	}
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Status != 400 || perr.Description != "Token is not active" {
		t.Fatalf("provider error = %+v", perr)
	}
}

func TestExchangeProviderOutageIsNotRejection(t *testing.T) {
	e := newTestExchanger(t, &providerStub{status: 503, body: `upstream unavailable`})
	_, err := e.Exchange(context.Background(), "rt-1")
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Status != 503 {
		t.Fatalf("err = %v", err)
	}
	if errors.Is(err, ErrRefreshRejected) {
		t.Fatal("outage reported as rejection")
	}
}

func TestExchangeRequiresAccessToken(t *testing.T) {
	e := newTestExchanger(t, &providerStub{status: 200, body: `{"token_type":"Bearer"}`})
	if _, err := e.Exchange(context.Background(), "rt-1"); err == nil {
		t.Fatal("expected error for missing access_token")
	}
}

func TestExchangeWithoutEndpoint(t *testing.T) {
	e := NewOIDCExchanger(manifest.Provider{}, nil, nil)
	if _, err := e.Exchange(context.Background(), "rt-1"); !errors.Is(err, ErrNoTokenEndpoint) {
		t.Fatalf("err = %v", err)
	}
	if err := e.Revoke(context.Background(), "rt-1", "refresh_token"); err != nil {
		t.Fatalf("revoke without endpoint: %v", err)
	}
}

func TestRevoke(t *testing.T) {
	stub := &providerStub{status: 200}
	e := newTestExchanger(t, stub)
	if err := e.Revoke(context.Background(), "rt-1", "refresh_token"); err != nil {
		t.Fatal(err)
	}
	if stub.form.Get("token") != "rt-1" || stub.form.Get("token_type_hint") != "refresh_token" || stub.form.Get("client_id") != "sentinel" {
		t.Fatalf("form = %v", stub.form)
	}

	stub.status = 400
	stub.body = `{"error":"unsupported_token_type"}`
	var perr *ProviderError
	if err := e.Revoke(context.Background(), "rt-1", ""); !errors.As(err, &perr) || perr.Code != "unsupported_token_type" {
		t.Fatalf("err = %v", err)
	}
}
