package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/aerox/internal/shared"
)

func TestTokenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Set persists and Get returns the token", func(t *testing.T) {
		storage := &memoryStorage{}
		store := NewTokenStore(storage, discardLogger())

		if _, ok := store.Get(); ok {
			t.Fatal("new store should hold no token")
		}
		if err := store.Set(ctx, "abc"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if token, ok := store.Get(); !ok || token != "abc" {
			t.Errorf("Get() = %q, %v", token, ok)
		}
		if storage.stored() != "abc" {
			t.Errorf("expected token persisted, got %q", storage.stored())
		}
	})

	t.Run("Set failure keeps previous state", func(t *testing.T) {
		storage := &memoryStorage{saveErr: errors.New("disk full")}
		store := NewTokenStore(storage, discardLogger())

		if err := store.Set(ctx, "abc"); err == nil {
			t.Fatal("expected error")
		}
		if _, ok := store.Get(); ok {
			t.Error("token must not be held when persisting failed")
		}
	})

	t.Run("Clear always purges storage", func(t *testing.T) {
		storage := &memoryStorage{token: "stale"}
		store := NewTokenStore(storage, discardLogger())

		if err := store.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if storage.stored() != "" || storage.deletes != 1 {
			t.Errorf("expected storage purged once, token=%q deletes=%d", storage.stored(), storage.deletes)
		}
	})

	t.Run("Init without stored token", func(t *testing.T) {
		store := NewTokenStore(&memoryStorage{}, discardLogger())
		validated := false

		ok, err := store.Init(ctx, func(context.Context) error {
			validated = true
			return nil
		})
		if err != nil || ok {
			t.Errorf("Init() = %v, %v", ok, err)
		}
		if validated {
			t.Error("nothing to validate without a stored token")
		}
	})

	t.Run("Init trusts a token that validates", func(t *testing.T) {
		store := NewTokenStore(&memoryStorage{token: "good"}, discardLogger())

		var seen string
		ok, err := store.Init(ctx, func(context.Context) error {
			seen, _ = store.Get()
			return nil
		})
		if err != nil || !ok {
			t.Fatalf("Init() = %v, %v", ok, err)
		}
		if seen != "good" {
			t.Errorf("validation should run with the stored token, got %q", seen)
		}
	})

	t.Run("Init clears a token that fails validation", func(t *testing.T) {
		storage := &memoryStorage{token: "expired"}
		store := NewTokenStore(storage, discardLogger())

		ok, err := store.Init(ctx, func(context.Context) error { return shared.ErrUnauthorized })
		if ok {
			t.Error("expected unauthenticated")
		}
		if !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected validation error, got %v", err)
		}
		if _, held := store.Get(); held {
			t.Error("token should be cleared")
		}
		if storage.stored() != "" {
			t.Error("stored token should be purged so it is never revalidated")
		}
	})

	t.Run("Subscribe reports presence changes", func(t *testing.T) {
		store := NewTokenStore(nil, discardLogger())
		presence, unsubscribe := store.Subscribe()
		defer unsubscribe()

		_ = store.Set(ctx, "a")
		if got := receive(t, presence); !got {
			t.Error("expected presence true after Set")
		}

		_ = store.Set(ctx, "b")
		select {
		case v := <-presence:
			t.Errorf("replacing a token should not notify, got %v", v)
		default:
		}

		_ = store.Clear(ctx)
		if got := receive(t, presence); got {
			t.Error("expected presence false after Clear")
		}
	})

	t.Run("slow subscribers see the latest presence", func(t *testing.T) {
		store := NewTokenStore(nil, discardLogger())
		presence, unsubscribe := store.Subscribe()
		defer unsubscribe()

		_ = store.Set(ctx, "a")
		_ = store.Clear(ctx)

		if got := receive(t, presence); got {
			t.Error("expected only the latest presence (false)")
		}
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		store := NewTokenStore(nil, discardLogger())
		presence, unsubscribe := store.Subscribe()
		unsubscribe()
		unsubscribe()

		_ = store.Set(ctx, "a")
		select {
		case <-presence:
			t.Error("unsubscribed channel should not receive")
		default:
		}
	})
}

func receive(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for presence")
		return false
	}
}
