package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aerox/internal/player"
	"github.com/desertthunder/aerox/internal/repositories"
	"github.com/desertthunder/aerox/internal/services"
	"github.com/desertthunder/aerox/internal/shared"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(string) error

	mu      sync.Mutex
	session *player.Session
	tokens  *repositories.TokenRepository
	db      *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Session     *player.Session // built lazily from Config when nil
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		session:     opts.Session,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playerCommand, libraryCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger. It must be called before the session is opened.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Session returns the player session, opening the token database on first use.
func (r *Runner) Session(ctx context.Context) (*player.Session, error) {
	return r.openSession(ctx, player.NotifierFunc(r.notify))
}

func (r *Runner) openSession(ctx context.Context, notifier player.Notifier) (*player.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return r.session, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var exchanger services.Exchanger
	if err := r.config.Validate(); err != nil {
		r.logger.Debug("login unavailable", "error", err)
	} else if ex, err := services.NewExchanger(r.config, r.httpClient); err != nil {
		r.logger.Warn("failed to configure token exchange", "error", err)
	} else {
		exchanger = ex
	}

	tokens := repositories.NewTokenRepository(repositories.NewKeyValueRepository(db))
	s := player.NewSession(player.SessionOpts{
		Player:     r.config.Player,
		Storage:    tokens,
		Exchanger:  exchanger,
		HTTPClient: r.httpClient,
		Notifier:   notifier,
		Logger:     r.logger,
	})

	if _, err := s.Init(ctx); err != nil {
		r.logger.Warn("stored session is no longer valid", "error", err)
	}

	r.session = s
	r.tokens = tokens
	r.db = db
	return s, nil
}

// authed returns the session, failing when nobody is signed in.
func (r *Runner) authed(ctx context.Context) (*player.Session, error) {
	s, err := r.Session(ctx)
	if err != nil {
		return nil, err
	}
	if !s.Authenticated() {
		return nil, fmt.Errorf("%w: run `aerox auth login` first", shared.ErrNotAuthenticated)
	}
	return s, nil
}

// Close stops the session's timers and closes the database.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		r.session.Close()
	}
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

func (r *Runner) notify(n player.Notification) {
	c := color.New(color.FgCyan)
	if n.Level == player.LevelError {
		c = color.New(color.FgRed, color.Bold)
	}
	c.Fprint(r.output, n.Title)
	if n.Message != "" {
		fmt.Fprintf(r.output, ": %s", n.Message)
	}
	fmt.Fprintln(r.output)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// parseID accepts a bare id, a spotify:<kind>:<id> URI or an open.spotify.com/<kind>/<id> link.
func parseID(kind, s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "spotify:"+kind+":"); ok {
		return rest
	}
	if i := strings.Index(s, "open.spotify.com/"+kind+"/"); i >= 0 {
		id := s[i+len("open.spotify.com/"+kind+"/"):]
		if j := strings.IndexAny(id, "?#/"); j >= 0 {
			id = id[:j]
		}
		return id
	}
	return s
}
