package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	"go.uber.org/zap"
)

func newTestCoordinator(store Store, ex Exchanger, timeout time.Duration) *Coordinator {
	return NewCoordinator(store, ex, CoordinatorOptions{Timeout: timeout, Now: fixedClock}, zap.NewNop())
}

func seed(t *testing.T, store Store, id string, c Credential) {
	t.Helper()
	if err := store.Put(context.Background(), id, c); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestRefreshCollapsesConcurrentCallers(t *testing.T) {
	store := NewMemoryStore(0)
	seed(t, store, "s1", expiredCredential())
	ex := newGatedExchanger(freshToken(), nil)
	c := newTestCoordinator(store, ex, time.Second)

	const n = 25
	var wg sync.WaitGroup
	results := make([]Credential, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Refresh(context.Background(), "s1")
		}(i)
	}
	<-ex.entered
	close(ex.release)
	wg.Wait()

	if got := ex.Calls(); got != 1 {
		t.Fatalf("exchange calls = %d, want 1", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].AccessToken != "at-2" {
			t.Fatalf("caller %d got %q", i, results[i].AccessToken)
		}
	}
	stored, ok, _ := store.Get(context.Background(), "s1")
	if !ok || stored.AccessToken != "at-2" || stored.RefreshToken != "rt-2" || !stored.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("stored = %+v", stored)
	}
	if stored.User.Username != "ada" {
		t.Fatalf("identity lost: %+v", stored.User)
	}
}

func TestRefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	store := NewMemoryStore(0)
	seed(t, store, "s1", expiredCredential())
	ex := exchangeFunc(func(context.Context, string) (Token, error) {
		return Token{AccessToken: "at-2", ExpiresAt: t0.Add(time.Hour)}, nil
	})
	got, err := newTestCoordinator(store, ex, time.Second).Refresh(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.RefreshToken != "rt-1" {
		t.Fatalf("refresh token = %q", got.RefreshToken)
	}
}

func TestRefreshSkipsExchangeWhenAlreadyFresh(t *testing.T) {
	store := NewMemoryStore(0)
	cred := expiredCredential()
	cred.ExpiresAt = t0.Add(time.Hour)
	seed(t, store, "s1", cred)
	var calls atomic.Int32
	ex := exchangeFunc(func(context.Context, string) (Token, error) {
		calls.Add(1)
		return Token{}, errors.New("must not be called")
	})
	got, err := newTestCoordinator(store, ex, time.Second).Refresh(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 0 || got.AccessToken != "at-1" {
		t.Fatalf("calls=%d got=%+v", calls.Load(), got)
	}
}

func TestRefreshFailureReachesEveryWaiter(t *testing.T) {
	store := NewMemoryStore(0)
	seed(t, store, "s1", expiredCredential())
	ex := newGatedExchanger(Token{}, &ProviderError{Status: 400, Code: "invalid_grant"})
	c := newTestCoordinator(store, ex, time.Second)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Refresh(context.Background(), "s1")
		}(i)
	}
	<-ex.entered
	close(ex.release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, ErrRefreshRejected) {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if ex.Calls() != 1 {
		t.Fatalf("exchange calls = %d, want 1", ex.Calls())
	}
	if _, ok, _ := store.Get(context.Background(), "s1"); ok {
		t.Fatal("session survived a rejected refresh")
	}
}

// holdClearStore blocks the first Clear until release is closed.
type holdClearStore struct {
	Store
	clearing chan struct{}
	release  chan struct{}
	once     sync.Once
}

func (s *holdClearStore) Clear(ctx context.Context, id string) error {
	s.once.Do(func() { close(s.clearing) })
	<-s.release
	return s.Store.Clear(ctx, id)
}

func TestRefreshFailureDiscardsBeforeLaterCallers(t *testing.T) {
	mem := NewMemoryStore(0)
	seed(t, mem, "s1", expiredCredential())
	store := &holdClearStore{Store: mem, clearing: make(chan struct{}), release: make(chan struct{})}
	var calls atomic.Int32
	ex := exchangeFunc(func(context.Context, string) (Token, error) {
		calls.Add(1)
		return Token{}, &ProviderError{Status: 400, Code: "invalid_grant"}
	})
	m := New(store, newTestCoordinator(store, ex, time.Second), manifest.DefaultSession(), Options{Now: fixedClock}, zap.NewNop())

	first := make(chan Outcome, 1)
	go func() { first <- m.Evaluate(context.Background(), "s1") }()
	<-store.clearing

	// the record is still readable while the failing slot discards it
	second := make(chan Outcome, 1)
	go func() { second <- m.Evaluate(context.Background(), "s1") }()
	time.Sleep(20 * time.Millisecond)
	close(store.release)

	a, b := <-first, <-second
	if a.State != SessionInvalidated || b.State != SessionInvalidated {
		t.Fatalf("states = %s, %s", a.State, b.State)
	}
	if c := m.Evaluate(context.Background(), "s1"); c.State != Unauthenticated {
		t.Fatalf("late caller state = %s", c.State)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("exchange calls = %d, want 1", got)
	}
	if _, ok, _ := mem.Get(context.Background(), "s1"); ok {
		t.Fatal("session survived")
	}
}

func TestRefreshPreconditions(t *testing.T) {
	store := NewMemoryStore(0)
	noRT := expiredCredential()
	noRT.RefreshToken = ""
	seed(t, store, "no-rt", noRT)
	ex := exchangeFunc(func(context.Context, string) (Token, error) { return freshToken(), nil })
	c := newTestCoordinator(store, ex, time.Second)

	if _, err := c.Refresh(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("missing session: %v", err)
	}
	if _, err := c.Refresh(context.Background(), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("empty id: %v", err)
	}
	if _, err := c.Refresh(context.Background(), "no-rt"); !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("no refresh token: %v", err)
	}
	if _, ok, _ := store.Get(context.Background(), "no-rt"); ok {
		t.Fatal("unrefreshable session kept")
	}
}

func TestRefreshStoreReadErrorKeepsSession(t *testing.T) {
	mem := NewMemoryStore(0)
	seed(t, mem, "s1", expiredCredential())
	store := &brokenStore{Store: mem, failGet: true}
	ex := exchangeFunc(func(context.Context, string) (Token, error) { return freshToken(), nil })

	_, err := newTestCoordinator(store, ex, time.Second).Refresh(context.Background(), "s1")
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, errStoreDown) {
		t.Fatalf("err = %v", err)
	}
	if store.clears != 0 {
		t.Fatal("store outage discarded the session")
	}
}

func TestRefreshAbandonedCallerDoesNotCancelExchange(t *testing.T) {
	store := NewMemoryStore(0)
	seed(t, store, "s1", expiredCredential())
	ex := newGatedExchanger(freshToken(), nil)
	c := newTestCoordinator(store, ex, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-ex.entered
		cancel()
	}()
	_, err := c.Refresh(ctx, "s1")
	if !errors.Is(err, ErrRefreshAbandoned) {
		t.Fatalf("err = %v", err)
	}

	close(ex.release)
	got, err := c.Refresh(context.Background(), "s1")
	if err != nil {
		t.Fatalf("follow-up refresh: %v", err)
	}
	if got.AccessToken != "at-2" {
		t.Fatalf("access token = %q", got.AccessToken)
	}
	if ex.Calls() != 1 {
		t.Fatalf("exchange calls = %d", ex.Calls())
	}
	ex.mu.Lock()
	ctxErr := ex.lastCtxE
	ex.mu.Unlock()
	if ctxErr != nil {
		t.Fatalf("exchange context was cancelled: %v", ctxErr)
	}
}

func TestRefreshTimeoutIsFailure(t *testing.T) {
	store := NewMemoryStore(0)
	seed(t, store, "s1", expiredCredential())
	ex := exchangeFunc(func(ctx context.Context, _ string) (Token, error) {
		<-ctx.Done()
		return Token{}, ctx.Err()
	})
	_, err := newTestCoordinator(store, ex, 20*time.Millisecond).Refresh(context.Background(), "s1")
	if err == nil || errors.Is(err, ErrRefreshAbandoned) {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestRefreshSlotReleasedAfterPanic(t *testing.T) {
	store := NewMemoryStore(0)
	seed(t, store, "s1", expiredCredential())
	var calls atomic.Int32
	ex := exchangeFunc(func(context.Context, string) (Token, error) {
		if calls.Add(1) == 1 {
			panic("provider client blew up")
		}
		return freshToken(), nil
	})
	c := newTestCoordinator(store, ex, time.Second)

	_, err := c.Refresh(context.Background(), "s1")
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("err = %v", err)
	}
	if _, ok, _ := store.Get(context.Background(), "s1"); ok {
		t.Fatal("session survived a panicked refresh")
	}
	seed(t, store, "s1", expiredCredential())
	got, err := c.Refresh(context.Background(), "s1")
	if err != nil {
		t.Fatalf("slot not released: %v", err)
	}
	if got.AccessToken != "at-2" {
		t.Fatalf("access token = %q", got.AccessToken)
	}
}

func TestRefreshPersistFailure(t *testing.T) {
	mem := NewMemoryStore(0)
	seed(t, mem, "s1", expiredCredential())
	store := &brokenStore{Store: mem, failPut: true}
	ex := exchangeFunc(func(context.Context, string) (Token, error) { return freshToken(), nil })

	_, err := newTestCoordinator(store, ex, time.Second).Refresh(context.Background(), "s1")
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("err = %v", err)
	}
}
