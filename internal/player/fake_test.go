package player

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aerox/internal/models"
	"github.com/desertthunder/aerox/internal/services"
	"github.com/desertthunder/aerox/internal/shared"
)

var _ services.Player = (*fakePlayer)(nil)

// fakePlayer is a scripted stand-in for the remote player.
type fakePlayer struct {
	mu sync.Mutex

	calls  []string
	errs   map[string]error
	during func(method string)

	snapshot      *models.Snapshot
	playbackErr   error
	playbackCalls int
	liked         map[string]bool
	likedErr      error

	played       []string
	contextPlays []*services.PlaybackOffset

	searches     []string
	searchResult []models.Track
	searchDelay  time.Duration
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{errs: map[string]error{}, liked: map[string]bool{}}
}

func (f *fakePlayer) record(method string) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	err := f.errs[method]
	hook := f.during
	f.mu.Unlock()

	if hook != nil {
		hook(method)
	}
	return err
}

func (f *fakePlayer) failOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

func (f *fakePlayer) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakePlayer) setSnapshot(s *models.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = s
}

func (f *fakePlayer) polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playbackCalls
}

func (f *fakePlayer) CurrentPlayback(ctx context.Context) (*models.Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playbackCalls++
	if f.playbackErr != nil {
		return nil, false, f.playbackErr
	}
	if f.snapshot == nil {
		return nil, false, nil
	}
	snap := *f.snapshot
	return &snap, true, nil
}

func (f *fakePlayer) IsLiked(ctx context.Context, trackID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.likedErr != nil {
		return false, f.likedErr
	}
	return f.liked[trackID], nil
}

func (f *fakePlayer) Play(ctx context.Context, opts *services.PlayOptions) error {
	return f.record("play")
}

func (f *fakePlayer) PlayTrack(ctx context.Context, track models.Track) error {
	if err := f.record("play_track"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, track.ID)
	return nil
}

func (f *fakePlayer) PlayInContext(ctx context.Context, playlist models.Playlist, offset *services.PlaybackOffset) error {
	if err := f.record("play_context"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, playlist.ID)
	f.contextPlays = append(f.contextPlays, offset)
	return nil
}

func (f *fakePlayer) Pause(ctx context.Context) error    { return f.record("pause") }
func (f *fakePlayer) Next(ctx context.Context) error     { return f.record("next") }
func (f *fakePlayer) Previous(ctx context.Context) error { return f.record("previous") }

func (f *fakePlayer) Seek(ctx context.Context, positionMS int) error { return f.record("seek") }
func (f *fakePlayer) Volume(ctx context.Context, percent int) error  { return f.record("volume") }
func (f *fakePlayer) Shuffle(ctx context.Context, on bool) error     { return f.record("shuffle") }

func (f *fakePlayer) Repeat(ctx context.Context, mode models.RepeatMode) error {
	return f.record("repeat")
}

func (f *fakePlayer) Like(ctx context.Context, trackID string) error {
	if err := f.record("like"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liked[trackID] = true
	return nil
}

func (f *fakePlayer) Unlike(ctx context.Context, trackID string) error {
	if err := f.record("unlike"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.liked, trackID)
	return nil
}

func (f *fakePlayer) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	f.mu.Lock()
	f.searches = append(f.searches, query)
	delay, result := f.searchDelay, f.searchResult
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return result, nil
}

func (f *fakePlayer) searchLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

// memoryStorage is an in-memory [TokenStorage].
type memoryStorage struct {
	mu      sync.Mutex
	token   string
	deletes int
	saveErr error
}

func (m *memoryStorage) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memoryStorage) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	return nil
}

func (m *memoryStorage) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.deletes++
	return nil
}

func (m *memoryStorage) stored() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// recordingNotifier keeps every notification.
type recordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

func discardLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

func signedInTokens(t *testing.T) *TokenStore {
	t.Helper()
	tokens := NewTokenStore(nil, discardLogger())
	if err := tokens.Set(context.Background(), "token"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	return tokens
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func testTrack(id, name string) models.Track {
	return models.NormalizeTrack(models.Track{ID: id, Name: name})
}
