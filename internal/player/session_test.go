package player

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/aerox/internal/repositories"
	"github.com/desertthunder/aerox/internal/services"
	"github.com/desertthunder/aerox/internal/shared"
	tu "github.com/desertthunder/aerox/internal/testing"
)

// fakeExchanger hands out one token per code.
type fakeExchanger struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (f *fakeExchanger) AuthURL(_ context.Context, state string) (string, error) {
	return "https://accounts.example.com/authorize?state=" + state, nil
}

func (f *fakeExchanger) Exchange(_ context.Context, code string) (*services.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return &services.TokenResponse{AccessToken: "token-" + code, ExpiresIn: 3600}, nil
}

// fakeAPI counts calls per path and answers 401 once unauthorized is set.
type fakeAPI struct {
	mu           sync.Mutex
	hits         map[string]int
	unauthorized bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	unauthorized := f.unauthorized
	f.mu.Unlock()

	if unauthorized {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch r.URL.Path {
	case "/me":
		_, _ = w.Write([]byte(`{"id":"u1","display_name":"Listener"}`))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeAPI) setUnauthorized() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unauthorized = true
}

func newTestSession(t *testing.T, exchanger services.Exchanger) (*Session, *fakeAPI, *repositories.TokenRepository) {
	t.Helper()

	storage := repositories.NewTokenRepository(repositories.NewKeyValueRepository(tu.NewTestDatabase(t)))

	api := &fakeAPI{hits: map[string]int{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := shared.DefaultConfig()
	cfg.Player.PollIntervalMS = 10
	cfg.Player.ReconcileDelayMS = 10

	s := NewSession(SessionOpts{
		Player:     cfg.Player,
		Storage:    storage,
		Exchanger:  exchanger,
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		Logger:     discardLogger(),
	})
	t.Cleanup(s.Close)
	return s, api, storage
}

func TestSessionLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and persists the exchanged token", func(t *testing.T) {
		ex := &fakeExchanger{}
		s, _, storage := newTestSession(t, ex)

		if err := s.Login(ctx, "abc"); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if token, ok := s.Tokens.Get(); !ok || token != "token-abc" {
			t.Errorf("unexpected token %q", token)
		}
		if stored, _ := storage.Load(ctx); stored != "token-abc" {
			t.Errorf("expected persisted token, got %q", stored)
		}
	})

	t.Run("a code is exchanged once", func(t *testing.T) {
		ex := &fakeExchanger{}
		s, _, _ := newTestSession(t, ex)

		_ = s.Login(ctx, "abc")
		if err := s.Login(ctx, "abc"); !errors.Is(err, shared.ErrCodeConsumed) {
			t.Errorf("expected ErrCodeConsumed, got %v", err)
		}
		if len(ex.codes) != 1 {
			t.Errorf("expected a single exchange, got %v", ex.codes)
		}
	})

	t.Run("exchange failure leaves the session signed out", func(t *testing.T) {
		ex := &fakeExchanger{err: &services.ExchangeError{Status: 400, Message: "Token exchange failed"}}
		s, _, _ := newTestSession(t, ex)

		if err := s.Login(ctx, "abc"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if s.Authenticated() {
			t.Error("session should not be authenticated")
		}
	})

	t.Run("requires an exchanger", func(t *testing.T) {
		s, _, _ := newTestSession(t, nil)
		if err := s.Login(ctx, "abc"); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestSessionInit(t *testing.T) {
	ctx := context.Background()

	t.Run("valid stored token", func(t *testing.T) {
		s, api, storage := newTestSession(t, nil)
		_ = storage.Save(ctx, "saved")

		ok, err := s.Init(ctx)
		if err != nil || !ok {
			t.Fatalf("Init() = %v, %v", ok, err)
		}
		if api.count("/me") != 1 {
			t.Error("stored token should be validated with a profile fetch")
		}
	})

	t.Run("rejected stored token is purged", func(t *testing.T) {
		s, api, storage := newTestSession(t, nil)
		_ = storage.Save(ctx, "expired")
		api.setUnauthorized()

		ok, err := s.Init(ctx)
		if ok || !errors.Is(err, shared.ErrUnauthorized) {
			t.Fatalf("Init() = %v, %v", ok, err)
		}
		if stored, _ := storage.Load(ctx); stored != "" {
			t.Errorf("stored token should be removed, got %q", stored)
		}
	})
}

func TestSessionUnauthorized(t *testing.T) {
	ctx := context.Background()
	s, api, storage := newTestSession(t, &fakeExchanger{})

	if err := s.Login(ctx, "abc"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, time.Second, func() bool { return api.count("/me/player") >= 1 })

	api.setUnauthorized()
	if !waitFor(t, time.Second, func() bool { return !s.Authenticated() }) {
		t.Fatal("401 should clear the token")
	}
	if stored, _ := storage.Load(ctx); stored != "" {
		t.Errorf("401 should purge the persisted token, got %q", stored)
	}
	if !waitFor(t, time.Second, func() bool { return !s.Poller.Running() }) {
		t.Fatal("poller should stop after a 401")
	}

	before := api.count("/me/player")
	time.Sleep(50 * time.Millisecond)
	if after := api.count("/me/player"); after != before {
		t.Errorf("no call may be made with the stale token: %d -> %d", before, after)
	}

	if err := s.Dispatcher.ToggleShuffle(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated after 401, got %v", err)
	}
	if api.count("/me/player/shuffle") != 0 {
		t.Error("commands must not reach the API without a token")
	}
}

func TestSessionLogout(t *testing.T) {
	ctx := context.Background()
	s, api, storage := newTestSession(t, &fakeExchanger{})

	_ = s.Login(ctx, "abc")
	_ = s.Start(ctx)
	s.Queue.Enqueue(testTrack("a", "A"))

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if s.Authenticated() || s.Poller.Running() {
		t.Error("logout should clear the token and stop polling")
	}
	if stored, _ := storage.Load(ctx); stored != "" {
		t.Errorf("logout should purge the persisted token, got %q", stored)
	}
	if s.Queue.Len() != 0 {
		t.Error("logout should empty the local queue")
	}

	before := api.count("/me/player")
	time.Sleep(40 * time.Millisecond)
	if api.count("/me/player") != before {
		t.Error("no polling after logout")
	}
}
