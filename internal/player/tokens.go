package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// TokenStorage persists the bearer token across runs.
//
// [repositories.TokenRepository] is the SQLite implementation.
type TokenStorage interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// TokenStore owns the single bearer token.
//
// The token exists from a successful authorization until [TokenStore.Clear], which the gateway calls on a 401.
// Presence changes are broadcast to subscribers so timers can be torn down as soon as the token is gone.
type TokenStore struct {
	mu      sync.RWMutex
	token   string
	storage TokenStorage
	subs    map[chan bool]struct{}
	logger  *log.Logger
}

// NewTokenStore creates an empty [TokenStore]. A nil storage keeps the token in memory only.
func NewTokenStore(storage TokenStorage, logger *log.Logger) *TokenStore {
	return &TokenStore{
		storage: storage,
		subs:    make(map[chan bool]struct{}),
		logger:  orDefault(logger),
	}
}

// Init loads the persisted token and validates it before trusting it.
//
// validate is a lightweight authorized call, normally the current-user profile. Any validation
// failure clears the token (and its persisted copy) and is returned alongside ok=false.
func (s *TokenStore) Init(ctx context.Context, validate func(ctx context.Context) error) (bool, error) {
	if s.storage == nil {
		_, ok := s.Get()
		return ok, nil
	}

	token, err := s.storage.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load token: %w", err)
	}
	if token == "" {
		return false, nil
	}

	s.swap(token)
	if validate == nil {
		return true, nil
	}

	if err := validate(ctx); err != nil {
		s.logger.Warn("stored token rejected", "error", err)
		if clearErr := s.Clear(ctx); clearErr != nil {
			s.logger.Error("failed to purge stored token", "error", clearErr)
		}
		return false, err
	}
	return true, nil
}

// Get returns the current token. ok is false when no token is held.
func (s *TokenStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Set stores and persists token.
func (s *TokenStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}
	if s.storage != nil {
		if err := s.storage.Save(ctx, token); err != nil {
			return fmt.Errorf("failed to persist token: %w", err)
		}
	}
	s.swap(token)
	return nil
}

// Clear drops the token and always purges persisted storage, even when nothing is held in memory.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.swap("")
	if s.storage == nil {
		return nil
	}
	if err := s.storage.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Subscribe returns a channel that receives token presence on every change, and a function that
// releases it. Only the latest presence is kept when the subscriber falls behind.
func (s *TokenStore) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
		})
	}
}

// swap replaces the in-memory token and notifies subscribers when presence flips.
func (s *TokenStore) swap(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := s.token != ""
	s.token = token
	now := token != ""
	if was == now {
		return
	}

	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- now
	}
}
