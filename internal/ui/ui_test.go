package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/aerox/internal/models"
	"github.com/desertthunder/aerox/internal/player"
	"github.com/desertthunder/aerox/internal/shared"
	tu "github.com/desertthunder/aerox/internal/testing"
)

type selection struct {
	track models.Track
	opts  player.SelectOpts
}

type fakeController struct {
	mu       sync.Mutex
	calls    []string
	seeks    []int
	volumes  []int
	selected []selection
	context  *models.Playlist
	err      error
}

func (f *fakeController) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeController) TogglePlay(context.Context) error    { return f.record("toggle") }
func (f *fakeController) Next(context.Context) error          { return f.record("next") }
func (f *fakeController) Previous(context.Context) error      { return f.record("previous") }
func (f *fakeController) ToggleShuffle(context.Context) error { return f.record("shuffle") }
func (f *fakeController) CycleRepeat(context.Context) error   { return f.record("repeat") }
func (f *fakeController) ToggleLike(context.Context) error    { return f.record("like") }

func (f *fakeController) Seek(_ context.Context, ms int) error {
	f.mu.Lock()
	f.seeks = append(f.seeks, ms)
	f.mu.Unlock()
	return f.record("seek")
}

func (f *fakeController) Volume(_ context.Context, pct int) error {
	f.mu.Lock()
	f.volumes = append(f.volumes, pct)
	f.mu.Unlock()
	return f.record("volume")
}

func (f *fakeController) SelectTrack(_ context.Context, t models.Track, opts player.SelectOpts) error {
	f.mu.Lock()
	f.selected = append(f.selected, selection{t, opts})
	f.mu.Unlock()
	return f.record("select")
}

func (f *fakeController) SetContext(p *models.Playlist) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.context = p
}

type fakeFeed struct {
	snapshot models.Snapshot
	updates  chan models.Snapshot
}

func (f *fakeFeed) Snapshot() models.Snapshot         { return f.snapshot }
func (f *fakeFeed) Updates() <-chan models.Snapshot { return f.updates }

type fakeSearch struct {
	queries []string
	err     error
	results chan player.SearchResult
}

func (f *fakeSearch) Submit(q string) error {
	f.queries = append(f.queries, q)
	return f.err
}

func (f *fakeSearch) Results() <-chan player.SearchResult { return f.results }

type fakeLibrary struct {
	recent    []models.Track
	playlists []models.Playlist
	tracks    map[string][]models.Track
	album     *models.AlbumDetails
	devices   []models.Device
}

func (f *fakeLibrary) CurrentUser(context.Context) (*models.User, error) {
	return &models.User{ID: "u1"}, nil
}

func (f *fakeLibrary) RecentlyPlayed(context.Context, int) ([]models.Track, error) {
	return f.recent, nil
}

func (f *fakeLibrary) Playlists(context.Context, int) ([]models.Playlist, error) {
	return f.playlists, nil
}

func (f *fakeLibrary) PlaylistTracks(_ context.Context, id string) ([]models.Track, error) {
	return f.tracks[id], nil
}

func (f *fakeLibrary) Album(context.Context, string) (*models.AlbumDetails, error) {
	return f.album, nil
}

func (f *fakeLibrary) SearchTracks(context.Context, string, int) ([]models.Track, error) {
	return nil, nil
}

func (f *fakeLibrary) Devices(context.Context) ([]models.Device, error) {
	return f.devices, nil
}

type fixture struct {
	model  *Model
	ctrl   *fakeController
	feed   *fakeFeed
	search *fakeSearch
	lib    *fakeLibrary
	queue  *player.Queue
	notes  chan player.Notification
}

func track(id, name string, durationMS int) models.Track {
	return models.NormalizeTrack(models.Track{
		ID:         id,
		Name:       name,
		Artists:    []models.Artist{{Name: "Artist " + id}},
		Album:      models.Album{ID: "al-" + id, Name: "Album " + id},
		DurationMS: durationMS,
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctrl:   &fakeController{},
		feed:   &fakeFeed{updates: make(chan models.Snapshot, 1)},
		search: &fakeSearch{results: make(chan player.SearchResult, 1)},
		lib: &fakeLibrary{
			recent:    []models.Track{track("r1", "Recent One", 200000), track("r2", "Recent Two", 200000)},
			playlists: []models.Playlist{{ID: "pl1", Name: "Road Trip", TrackCount: 2}},
			tracks:    map[string][]models.Track{"pl1": {track("p1", "First", 100000), track("p2", "Second", 100000)}},
		},
		queue: player.NewQueue(),
		notes: make(chan player.Notification, 1),
	}
	f.model = NewModel(context.Background(), Options{
		Controller:    f.ctrl,
		Library:       f.lib,
		Playback:      f.feed,
		Search:        f.search,
		Queue:         f.queue,
		Notifications: f.notes,
		Config:        shared.DefaultConfig().Player,
		Logger:        tu.DiscardLogger(),
	})
	return f
}

// send delivers msg and returns the command Update produced.
func (f *fixture) send(msg tea.Msg) tea.Cmd {
	_, cmd := f.model.Update(msg)
	return cmd
}

// exec runs cmd and feeds its message back into the model.
func (f *fixture) exec(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if msg := cmd(); msg != nil {
		f.send(msg)
	}
}

func (f *fixture) press(t *testing.T, k tea.KeyMsg) {
	t.Helper()
	if cmd := f.send(k); cmd != nil {
		f.exec(t, cmd)
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	space    = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	enter    = tea.KeyMsg{Type: tea.KeyEnter}
	esc      = tea.KeyMsg{Type: tea.KeyEsc}
	tab      = tea.KeyMsg{Type: tea.KeyTab}
	shiftTab = tea.KeyMsg{Type: tea.KeyShiftTab}
	down     = tea.KeyMsg{Type: tea.KeyDown}
	left     = tea.KeyMsg{Type: tea.KeyLeft}
	right    = tea.KeyMsg{Type: tea.KeyRight}
)

func playing(tr models.Track, progress int) models.Snapshot {
	return models.Snapshot{Track: &tr, IsPlaying: true, ProgressMS: progress, Repeat: models.RepeatOff}
}

func TestPlaybackKeys(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want string
	}{
		{"space toggles playback", space, "toggle"},
		{"n skips", runes("n"), "next"},
		{"p goes back", runes("p"), "previous"},
		{"s toggles shuffle", runes("s"), "shuffle"},
		{"r cycles repeat", runes("r"), "repeat"},
		{"l toggles like", runes("l"), "like"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.press(t, tt.key)
			if len(f.ctrl.calls) != 1 || f.ctrl.calls[0] != tt.want {
				t.Errorf("expected %s, got %v", tt.want, f.ctrl.calls)
			}
		})
	}

	t.Run("volume steps and clamps", func(t *testing.T) {
		f := newFixture(t)
		f.send(devicesLoadedMsg{devices: []models.Device{{ID: "d1", Active: true, Volume: 95}}})

		f.press(t, runes("+"))
		f.press(t, runes("-"))
		if got := f.ctrl.volumes; len(got) != 2 || got[0] != 100 || got[1] != 90 {
			t.Errorf("unexpected volumes %v", got)
		}
	})

	t.Run("seek moves ten seconds within the track", func(t *testing.T) {
		f := newFixture(t)
		f.send(snapshotMsg(playing(track("t1", "Song", 180000), 175000)))

		f.press(t, right)
		f.press(t, left)
		f.press(t, left)
		if got := f.ctrl.seeks; len(got) != 3 || got[0] != 180000 || got[1] != 170000 || got[2] != 160000 {
			t.Errorf("unexpected seeks %v", got)
		}

		f.send(snapshotMsg(playing(track("t1", "Song", 180000), 4000)))
		f.press(t, left)
		if got := f.ctrl.seeks[len(f.ctrl.seeks)-1]; got != 0 {
			t.Errorf("seek should clamp at 0, got %d", got)
		}
	})

	t.Run("seek without a track does nothing", func(t *testing.T) {
		f := newFixture(t)
		if cmd := f.send(right); cmd != nil {
			t.Error("expected no command")
		}
	})

	t.Run("signed out commands surface a hint", func(t *testing.T) {
		f := newFixture(t)
		f.ctrl.err = shared.ErrNotAuthenticated
		f.press(t, space)
		if !strings.Contains(f.model.View(), "aerox auth login") {
			t.Error("expected a sign in hint")
		}
	})
}

func TestClock(t *testing.T) {
	t.Run("advances while playing and stops at the end", func(t *testing.T) {
		f := newFixture(t)
		f.send(snapshotMsg(playing(track("t1", "Song", 10500), 9000)))

		if cmd := f.send(clockMsg(time.Now())); cmd == nil {
			t.Error("clock should reschedule itself")
		}
		if f.model.progress != 10000 {
			t.Errorf("expected 10000, got %d", f.model.progress)
		}
		f.send(clockMsg(time.Now()))
		if f.model.progress != 10500 {
			t.Errorf("progress should stop at the duration, got %d", f.model.progress)
		}
	})

	t.Run("paused playback does not advance", func(t *testing.T) {
		f := newFixture(t)
		s := playing(track("t1", "Song", 10000), 3000)
		s.IsPlaying = false
		f.send(snapshotMsg(s))
		f.send(clockMsg(time.Now()))
		if f.model.progress != 3000 {
			t.Errorf("expected 3000, got %d", f.model.progress)
		}
	})

	t.Run("a snapshot resets local progress", func(t *testing.T) {
		f := newFixture(t)
		f.send(snapshotMsg(playing(track("t1", "Song", 100000), 1000)))
		f.send(clockMsg(time.Now()))
		f.send(snapshotMsg(playing(track("t1", "Song", 100000), 50000)))
		if f.model.progress != 50000 {
			t.Errorf("expected remote progress, got %d", f.model.progress)
		}
	})

	t.Run("notifications expire", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now()
		f.send(notificationMsg{Level: player.LevelError, Title: "Playback Error", Message: "Make sure Spotify is active on a device", At: now})

		if !strings.Contains(f.model.View(), "Playback Error") {
			t.Error("notification should be shown")
		}
		f.send(clockMsg(now.Add(notificationTTL + time.Second)))
		if strings.Contains(f.model.View(), "Playback Error") {
			t.Error("notification should expire")
		}
	})
}

func TestViews(t *testing.T) {
	t.Run("tab cycles through the top level views", func(t *testing.T) {
		f := newFixture(t)
		want := []ViewState{RecentView, PlaylistsView, SearchView, QueueView, NowPlayingView}
		for _, v := range want {
			f.send(tab)
			if f.model.view != v {
				t.Fatalf("expected %s, got %s", v, f.model.view)
			}
		}
		f.send(shiftTab)
		if f.model.view != QueueView {
			t.Errorf("shift+tab should go back to Queue, got %s", f.model.view)
		}
	})

	t.Run("entering recent loads it", func(t *testing.T) {
		f := newFixture(t)
		f.exec(t, f.send(tab))
		if len(f.model.recent.Items()) != 2 {
			t.Errorf("expected recent tracks, got %d", len(f.model.recent.Items()))
		}
	})

	t.Run("esc returns from a playlist to the playlists", func(t *testing.T) {
		f := newFixture(t)
		f.send(playlistsLoadedMsg{playlists: f.lib.playlists})
		f.send(tab)
		f.send(tab)
		f.press(t, enter)
		if f.model.view != PlaylistTracksView {
			t.Fatalf("expected playlist tracks, got %s", f.model.view)
		}
		f.send(esc)
		if f.model.view != PlaylistsView {
			t.Errorf("expected playlists, got %s", f.model.view)
		}
	})

	t.Run("o opens the album of the selected track", func(t *testing.T) {
		f := newFixture(t)
		f.lib.album = &models.AlbumDetails{Album: models.Album{ID: "al-r1", Name: "Album r1"}, Tracks: []models.Track{track("a1", "Opener", 1000)}}
		f.exec(t, f.send(tab))
		f.press(t, runes("o"))
		if f.model.view != AlbumView || len(f.model.album.Items()) != 1 {
			t.Fatalf("expected album view, got %s", f.model.view)
		}
		f.send(esc)
		if f.model.view != RecentView {
			t.Errorf("esc should return to recent, got %s", f.model.view)
		}
	})
}

func TestSelection(t *testing.T) {
	t.Run("playlist selection keeps the playlist context", func(t *testing.T) {
		f := newFixture(t)
		f.send(playlistsLoadedMsg{playlists: f.lib.playlists})
		f.send(tab)
		f.send(tab)
		f.press(t, enter)
		f.send(down)
		f.press(t, enter)

		if len(f.ctrl.selected) != 1 {
			t.Fatalf("expected one selection, got %v", f.ctrl.selected)
		}
		sel := f.ctrl.selected[0]
		if sel.track.ID != "p2" || sel.opts.ClearContext {
			t.Errorf("unexpected selection %+v", sel)
		}
		if f.ctrl.context == nil || f.ctrl.context.ID != "pl1" {
			t.Errorf("playlist context should be set, got %v", f.ctrl.context)
		}
	})

	t.Run("recent selection clears the context", func(t *testing.T) {
		f := newFixture(t)
		f.exec(t, f.send(tab))
		f.press(t, enter)
		if len(f.ctrl.selected) != 1 || !f.ctrl.selected[0].opts.ClearContext || f.ctrl.selected[0].track.ID != "r1" {
			t.Errorf("unexpected selection %+v", f.ctrl.selected)
		}
	})

	t.Run("search submits every edit and plays without context", func(t *testing.T) {
		f := newFixture(t)
		f.send(runes("/"))
		if f.model.view != SearchView || !f.model.input.Focused() {
			t.Fatal("slash should focus the search input")
		}
		for _, r := range "foo" {
			f.send(runes(string(r)))
		}
		if strings.Join(f.search.queries, ",") != "f,fo,foo" {
			t.Errorf("unexpected submissions %v", f.search.queries)
		}

		f.send(searchResultMsg{Query: "fo", Tracks: []models.Track{track("stale", "Stale", 1000)}})
		if len(f.model.results.Items()) != 0 {
			t.Error("results for an older query must be ignored")
		}
		f.send(searchResultMsg{Query: "foo", Tracks: []models.Track{track("s1", "Foo", 1000)}})

		f.send(enter)
		if f.model.input.Focused() {
			t.Fatal("enter should leave the input")
		}
		f.press(t, enter)
		if len(f.ctrl.selected) != 1 || f.ctrl.selected[0].track.ID != "s1" || !f.ctrl.selected[0].opts.ClearContext {
			t.Errorf("unexpected selection %+v", f.ctrl.selected)
		}
	})

	t.Run("invalid search shows the error", func(t *testing.T) {
		f := newFixture(t)
		f.search.err = shared.ErrQueryTooLong
		f.send(runes("/"))
		f.send(runes("x"))
		if !strings.Contains(f.model.View(), shared.ErrQueryTooLong.Error()) {
			t.Error("expected validation error in view")
		}
	})
}

func TestQueueKeys(t *testing.T) {
	t.Run("a enqueues and x removes", func(t *testing.T) {
		f := newFixture(t)
		f.exec(t, f.send(tab))
		f.send(runes("a"))
		f.send(down)
		f.send(runes("a"))
		if f.queue.Len() != 2 {
			t.Fatalf("expected 2 queued, got %d", f.queue.Len())
		}

		f.send(tab)
		f.send(tab)
		f.send(tab)
		if f.model.view != QueueView {
			t.Fatalf("expected queue view, got %s", f.model.view)
		}
		f.send(runes("x"))
		items := f.queue.Items()
		if len(items) != 1 || items[0].ID != "r2" {
			t.Errorf("unexpected queue %v", items)
		}
	})

	t.Run("enter on a queued track plays it and removes it", func(t *testing.T) {
		f := newFixture(t)
		f.queue.Enqueue(track("q1", "Queued", 1000))
		f.send(shiftTab)
		f.press(t, enter)
		if f.queue.Len() != 0 {
			t.Error("played entry should leave the queue")
		}
		if len(f.ctrl.selected) != 1 || f.ctrl.selected[0].track.ID != "q1" || !f.ctrl.selected[0].opts.ClearContext {
			t.Errorf("unexpected selection %+v", f.ctrl.selected)
		}
	})
}

func TestListeners(t *testing.T) {
	t.Run("snapshot listener converts updates", func(t *testing.T) {
		f := newFixture(t)
		f.feed.updates <- playing(track("t9", "Nine", 1000), 0)

		msg := f.model.listenSnapshots()()
		s, ok := msg.(snapshotMsg)
		if !ok || s.Track.ID != "t9" {
			t.Errorf("unexpected message %#v", msg)
		}
	})

	t.Run("listeners stop with the context", func(t *testing.T) {
		f := newFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		f.model.ctx = ctx
		cancel()
		if msg := f.model.listenNotifications()(); msg != nil {
			t.Errorf("expected nil after cancel, got %#v", msg)
		}
	})

	t.Run("command errors are reported as messages", func(t *testing.T) {
		f := newFixture(t)
		f.ctrl.err = errors.New("boom")
		msg := f.send(runes("n"))()
		if done, ok := msg.(commandDoneMsg); !ok || done.err == nil {
			t.Errorf("unexpected message %#v", msg)
		}
	})
}

func TestNowPlayingView(t *testing.T) {
	f := newFixture(t)
	if !strings.Contains(f.model.View(), "Nothing playing") {
		t.Error("empty snapshot should prompt for a device")
	}

	s := playing(track("t1", "Song", 180000), 61000)
	s.Shuffle = true
	s.Repeat = models.RepeatContext
	f.send(snapshotMsg(s))

	view := f.model.View()
	for _, want := range []string{"Song", "Artist t1", "1:01 / 3:00", "repeat context", "volume 50%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}
