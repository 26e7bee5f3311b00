package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return t0 }

type exchangeFunc func(ctx context.Context, refreshToken string) (Token, error)

func (f exchangeFunc) Exchange(ctx context.Context, refreshToken string) (Token, error) {
	return f(ctx, refreshToken)
}

// gatedExchanger blocks every exchange until release is closed and signals
// entered on the first call.
type gatedExchanger struct {
	mu       sync.Mutex
	calls    int
	entered  chan struct{}
	release  chan struct{}
	once     sync.Once
	tok      Token
	err      error
	lastCtxE error
}

func newGatedExchanger(tok Token, err error) *gatedExchanger {
	return &gatedExchanger{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		tok:     tok,
		err:     err,
	}
}

func (g *gatedExchanger) Exchange(ctx context.Context, _ string) (Token, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.once.Do(func() { close(g.entered) })
	<-g.release
	g.mu.Lock()
	g.lastCtxE = ctx.Err()
	g.mu.Unlock()
	return g.tok, g.err
}

func (g *gatedExchanger) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type revokeCall struct {
	token, hint string
}

type fakeRevoker struct {
	mu    sync.Mutex
	calls []revokeCall
	err   error
}

func (f *fakeRevoker) Revoke(_ context.Context, token, hint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, revokeCall{token, hint})
	return f.err
}

var errStoreDown = errors.New("store down")

// brokenStore fails selected operations and delegates the rest.
type brokenStore struct {
	Store
	failGet, failPut bool
	clears           int
}

func (b *brokenStore) Get(ctx context.Context, id string) (Credential, bool, error) {
	if b.failGet {
		return Credential{}, false, errStoreDown
	}
	return b.Store.Get(ctx, id)
}

func (b *brokenStore) Put(ctx context.Context, id string, c Credential) error {
	if b.failPut {
		return errStoreDown
	}
	return b.Store.Put(ctx, id, c)
}

func (b *brokenStore) Clear(ctx context.Context, id string) error {
	b.clears++
	return b.Store.Clear(ctx, id)
}

func expiredCredential() Credential {
	return Credential{
		User:         User{Username: "ada", Role: Role{Name: "engineer"}, AuthenticationSource: AuthenticationSource{Provider: "oidc"}},
		AccessToken:  "at-1",
		ExpiresAt:    t0.Add(-time.Minute),
		RefreshToken: "rt-1",
	}
}

func freshToken() Token {
	return Token{AccessToken: "at-2", RefreshToken: "rt-2", ExpiresAt: t0.Add(time.Hour)}
}
