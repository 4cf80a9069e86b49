package player

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aerox/internal/services"
	"github.com/desertthunder/aerox/internal/shared"
)

// SessionOpts configures a [Session].
type SessionOpts struct {
	Player     shared.PlayerConfig
	Storage    TokenStorage
	Exchanger  services.Exchanger
	HTTPClient *http.Client
	BaseURL    string // defaults to [services.SpotifyBaseURL]
	Notifier   Notifier
	Logger     *log.Logger
}

// Session wires the player core together: one token store, one gateway, one snapshot.
type Session struct {
	Tokens     *TokenStore
	Gateway    *services.Gateway
	Client     *services.SpotifyClient
	Poller     *Poller
	Dispatcher *Dispatcher
	Queue      *Queue
	Searcher   *Searcher

	exchanger services.Exchanger
	logger    *log.Logger

	mu        sync.Mutex
	lastCode  string
	unwatch   func()
	watchDone chan struct{}
	closeOnce sync.Once
}

// NewSession builds every component of the player core.
func NewSession(opts SessionOpts) *Session {
	if opts.BaseURL == "" {
		opts.BaseURL = services.SpotifyBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	tokens := NewTokenStore(opts.Storage, shared.WithLogger(opts.Logger, "component", "tokens"))
	gateway := services.NewGateway(services.GatewayOpts{
		BaseURL:           opts.BaseURL,
		HTTPClient:        opts.HTTPClient,
		Tokens:            tokens,
		RequestsPerSecond: opts.Player.RequestsPerSecond,
		Logger:            opts.Logger,
	})
	client := services.NewSpotifyClient(gateway)
	queue := NewQueue()
	poller := NewPoller(client, tokens, opts.Player.PollInterval(), shared.WithLogger(opts.Logger, "component", "poller"))

	s := &Session{
		Tokens:  tokens,
		Gateway: gateway,
		Client:  client,
		Poller:  poller,
		Queue:   queue,
		Dispatcher: NewDispatcher(DispatcherOpts{
			Player:         client,
			Poller:         poller,
			Queue:          queue,
			Notifier:       opts.Notifier,
			ReconcileDelay: opts.Player.ReconcileDelay(),
			Logger:         shared.WithLogger(opts.Logger, "component", "dispatcher"),
		}),
		Searcher: NewSearcher(SearcherOpts{
			Client:    client,
			Debounce:  opts.Player.SearchDebounce(),
			MaxLength: opts.Player.SearchMaxLength,
			Limit:     opts.Player.SearchLimit,
			Logger:    shared.WithLogger(opts.Logger, "component", "search"),
		}),
		exchanger: opts.Exchanger,
		logger:    opts.Logger,
		watchDone: make(chan struct{}),
	}

	presence, unwatch := tokens.Subscribe()
	s.unwatch = unwatch
	go s.watch(presence)
	return s
}

// watch tears scheduled work down whenever the token disappears.
func (s *Session) watch(presence <-chan bool) {
	for {
		select {
		case <-s.watchDone:
			return
		case present := <-presence:
			if !present {
				s.Dispatcher.CancelPending()
				s.Searcher.Cancel()
			}
		}
	}
}

// Init restores the persisted token, validating it with a profile fetch.
func (s *Session) Init(ctx context.Context) (bool, error) {
	return s.Tokens.Init(ctx, func(ctx context.Context) error {
		_, err := s.Client.CurrentUser(ctx)
		return err
	})
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	_, ok := s.Tokens.Get()
	return ok
}

// AuthURL returns the authorization page URL for state.
func (s *Session) AuthURL(ctx context.Context, state string) (string, error) {
	if s.exchanger == nil {
		return "", fmt.Errorf("%w: no exchanger configured", shared.ErrMissingConfig)
	}
	return s.exchanger.AuthURL(ctx, state)
}

// Login exchanges a one-time authorization code and stores the resulting token. The same code is
// never exchanged twice.
func (s *Session) Login(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}
	if s.exchanger == nil {
		return fmt.Errorf("%w: no exchanger configured", shared.ErrMissingConfig)
	}

	s.mu.Lock()
	if code == s.lastCode {
		s.mu.Unlock()
		return shared.ErrCodeConsumed
	}
	s.lastCode = code
	s.mu.Unlock()

	token, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		return err
	}
	return s.StoreToken(ctx, token.AccessToken)
}

// StoreToken saves an access token obtained elsewhere, such as by the callback server.
func (s *Session) StoreToken(ctx context.Context, token string) error {
	if err := s.Tokens.Set(ctx, token); err != nil {
		return err
	}
	s.logger.Info("signed in")
	return nil
}

// Start begins polling. It fails with [shared.ErrNotAuthenticated] without a token.
func (s *Session) Start(ctx context.Context) error {
	return s.Poller.Start(ctx)
}

// Logout clears the token and its persisted copy and stops all scheduled work.
func (s *Session) Logout(ctx context.Context) error {
	s.Poller.Stop()
	s.Dispatcher.CancelPending()
	s.Searcher.Cancel()
	s.Dispatcher.ClearContext()
	s.Queue.Clear()
	if err := s.Tokens.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("signed out")
	return nil
}

// Close stops every timer owned by the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Poller.Stop()
		s.Dispatcher.Close()
		s.Searcher.Close()
		s.unwatch()
		close(s.watchDone)
	})
}

func orDefault(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}
