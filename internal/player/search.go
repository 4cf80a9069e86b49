package player

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aerox/internal/models"
	"github.com/desertthunder/aerox/internal/shared"
)

const (
	DefaultSearchDebounce  = 500 * time.Millisecond
	DefaultSearchMaxLength = 200
	DefaultSearchLimit     = 20
)

// TrackSearcher runs catalog searches. [services.SpotifyClient] implements it.
type TrackSearcher interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)
}

// SearchResult is the outcome of one debounced query. An empty Query with no tracks means the
// results were cleared.
type SearchResult struct {
	Query  string
	Tracks []models.Track
	Err    error
}

// SearcherOpts configures a [Searcher].
type SearcherOpts struct {
	Client    TrackSearcher
	Debounce  time.Duration
	MaxLength int
	Limit     int
	Logger    *log.Logger
}

// Searcher debounces track searches.
//
// Queries are validated before anything is scheduled. Only the last query submitted within the
// debounce window is sent, and a response that arrives after a newer submission is discarded.
type Searcher struct {
	client    TrackSearcher
	debounce  time.Duration
	maxLength int
	limit     int
	logger    *log.Logger

	mu       sync.Mutex
	seq      uint64
	timer    *time.Timer
	inflight context.CancelFunc
	closed   bool
	results  chan SearchResult
}

// NewSearcher creates a [Searcher].
func NewSearcher(opts SearcherOpts) *Searcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultSearchDebounce
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultSearchMaxLength
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}
	return &Searcher{
		client:    opts.Client,
		debounce:  opts.Debounce,
		maxLength: opts.MaxLength,
		limit:     opts.Limit,
		logger:    orDefault(opts.Logger),
		results:   make(chan SearchResult, 1),
	}
}

// Validate trims query and checks its length.
func (s *Searcher) Validate(query string) (string, error) {
	q := strings.TrimSpace(query)
	if n := utf8.RuneCountInString(q); n > s.maxLength {
		return "", fmt.Errorf("%w: %d characters, at most %d allowed", shared.ErrQueryTooLong, n, s.maxLength)
	}
	return q, nil
}

// Submit schedules query after the debounce window, replacing any query still waiting.
//
// An invalid query is rejected without touching the network and cancels whatever was pending. An empty
// query clears the results immediately.
func (s *Searcher) Submit(query string) error {
	q, err := s.Validate(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.seq++
	s.stopLocked()

	if err != nil {
		return err
	}
	if q == "" {
		s.publishLocked(SearchResult{Tracks: []models.Track{}})
		return nil
	}

	seq := s.seq
	s.timer = time.AfterFunc(s.debounce, func() { s.run(seq, q) })
	return nil
}

func (s *Searcher) run(seq uint64, query string) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.inflight = cancel
	s.timer = nil
	s.mu.Unlock()
	defer cancel()

	s.logger.Debug("searching", "query", query)
	tracks, err := s.client.SearchTracks(ctx, query, s.limit)
	if err != nil {
		s.logger.Warn("search failed", "query", query, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq {
		s.logger.Debug("discarding stale search results", "query", query)
		return
	}
	s.inflight = nil
	if tracks == nil {
		tracks = []models.Track{}
	}
	s.publishLocked(SearchResult{Query: query, Tracks: tracks, Err: err})
}

// Results delivers the latest search outcome.
func (s *Searcher) Results() <-chan SearchResult {
	return s.results
}

// Cancel drops any pending or in-flight query.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.stopLocked()
}

// Close cancels pending work. Submit is a no-op afterwards.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.seq++
	s.stopLocked()
}

func (s *Searcher) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
}

func (s *Searcher) publishLocked(r SearchResult) {
	select {
	case <-s.results:
	default:
	}
	select {
	case s.results <- r:
	default:
	}
}
