package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/aerox/internal/models"
	"github.com/desertthunder/aerox/internal/player"
	"github.com/desertthunder/aerox/internal/services"
	"github.com/desertthunder/aerox/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	NowPlayingView ViewState = iota
	RecentView
	PlaylistsView
	PlaylistTracksView
	AlbumView
	SearchView
	QueueView
)

func (v ViewState) String() string {
	switch v {
	case NowPlayingView:
		return "Now Playing"
	case RecentView:
		return "Recent"
	case PlaylistsView:
		return "Playlists"
	case PlaylistTracksView:
		return "Playlist"
	case AlbumView:
		return "Album"
	case SearchView:
		return "Search"
	case QueueView:
		return "Queue"
	default:
		return "Unknown"
	}
}

// tabOrder lists the views reachable with tab. The playlist and album views are drill-downs.
var tabOrder = []ViewState{NowPlayingView, RecentView, PlaylistsView, SearchView, QueueView}

const (
	seekStepMS      = 10_000
	volumeStep      = 10
	notificationTTL = 4 * time.Second
	chromeHeight    = 7
)

// Controller issues playback commands. [player.Dispatcher] implements it.
type Controller interface {
	TogglePlay(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	ToggleShuffle(ctx context.Context) error
	CycleRepeat(ctx context.Context) error
	ToggleLike(ctx context.Context) error
	Seek(ctx context.Context, positionMS int) error
	Volume(ctx context.Context, percent int) error
	SelectTrack(ctx context.Context, track models.Track, opts player.SelectOpts) error
	SetContext(playlist *models.Playlist)
}

// SnapshotFeed exposes the shared playback snapshot. [player.Poller] implements it.
type SnapshotFeed interface {
	Snapshot() models.Snapshot
	Updates() <-chan models.Snapshot
}

// TrackSearch is the debounced search. [player.Searcher] implements it.
type TrackSearch interface {
	Submit(query string) error
	Results() <-chan player.SearchResult
}

// Options holds the model's collaborators.
type Options struct {
	Controller    Controller
	Library       services.Library
	Playback      SnapshotFeed
	Search        TrackSearch
	Queue         *player.Queue
	Notifications <-chan player.Notification
	Config        shared.PlayerConfig
	Logger        *log.Logger
}

// SessionOptions builds [Options] from a running session.
func SessionOptions(s *player.Session, notes <-chan player.Notification, cfg shared.PlayerConfig, logger *log.Logger) Options {
	return Options{
		Controller:    s.Dispatcher,
		Library:       s.Client,
		Playback:      s.Poller,
		Search:        s.Searcher,
		Queue:         s.Queue,
		Notifications: notes,
		Config:        cfg,
		Logger:        logger,
	}
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	opts   Options
	logger *log.Logger

	view   ViewState
	parent ViewState // tab the current view belongs to
	prev   ViewState // where esc returns from a drill-down
	width  int
	height int

	snapshot models.Snapshot
	progress int
	volume   int

	recent         list.Model
	playlists      list.Model
	playlistTracks list.Model
	album          list.Model
	results        list.Model
	queue          list.Model
	input          textinput.Model

	openPlaylist *models.Playlist
	searchErr    error
	searching    bool

	note   *player.Notification
	status string
	help   help.Model
	keys   keyMap
}

// NewModel creates a TUI model. ctx bounds every command the model runs.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Queue == nil {
		opts.Queue = player.NewQueue()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	input := textinput.New()
	input.Placeholder = "Search tracks"
	input.Prompt = "/ "
	if opts.Config.SearchMaxLength > 0 {
		input.CharLimit = opts.Config.SearchMaxLength
	}

	width, height := 80, 24
	m := &Model{
		ctx:            ctx,
		opts:           opts,
		logger:         opts.Logger,
		view:           NowPlayingView,
		width:          width,
		height:         height,
		volume:         50,
		recent:         newList("Recently Played", nil, width, height-chromeHeight),
		playlists:      newList("Playlists", nil, width, height-chromeHeight),
		playlistTracks: newList("Playlist", nil, width, height-chromeHeight),
		album:          newList("Album", nil, width, height-chromeHeight),
		results:        newList("Results", nil, width, height-chromeHeight-2),
		queue:          newList("Queue", nil, width, height-chromeHeight),
		input:          input,
		help:           help.New(),
		keys:           newKeyMap(),
	}
	if opts.Playback != nil {
		m.setSnapshot(opts.Playback.Snapshot())
	}
	return m
}

// Init starts the clock, the channel listeners and the initial library loads.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tick(),
		m.listenSnapshots(),
		m.listenNotifications(),
		m.listenResults(),
		m.loadDevices(),
		m.loadRecent(),
		m.loadPlaylists(),
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case clockMsg:
		m.advance(time.Time(msg))
		return m, tick()

	case snapshotMsg:
		m.setSnapshot(models.Snapshot(msg))
		return m, m.listenSnapshots()

	case notificationMsg:
		n := player.Notification(msg)
		m.note = &n
		return m, m.listenNotifications()

	case searchResultMsg:
		m.applySearch(player.SearchResult(msg))
		return m, m.listenResults()

	case recentLoadedMsg:
		if msg.err != nil {
			m.fail("Could not load recently played", msg.err)
			return m, nil
		}
		m.recent.SetItems(trackItems(msg.tracks, time.Now()))
		return m, nil

	case playlistsLoadedMsg:
		if msg.err != nil {
			m.fail("Could not load playlists", msg.err)
			return m, nil
		}
		m.playlists.SetItems(playlistItems(msg.playlists))
		return m, nil

	case playlistTracksLoadedMsg:
		if msg.err != nil {
			m.fail("Could not load playlist", msg.err)
			return m, nil
		}
		pl := msg.playlist
		m.openPlaylist = &pl
		m.playlistTracks.Title = pl.Name
		m.playlistTracks.SetItems(trackItems(msg.tracks, time.Time{}))
		m.playlistTracks.ResetSelected()
		m.drill(PlaylistTracksView)
		return m, nil

	case albumLoadedMsg:
		if msg.err != nil {
			m.fail("Could not load album", msg.err)
			return m, nil
		}
		m.album.Title = msg.album.Name
		m.album.SetItems(trackItems(msg.album.Tracks, time.Time{}))
		m.album.ResetSelected()
		m.drill(AlbumView)
		return m, nil

	case devicesLoadedMsg:
		if msg.err != nil {
			m.logger.Debug("device lookup failed", "error", msg.err)
			return m, nil
		}
		for _, d := range msg.devices {
			if d.Active {
				m.volume = d.Volume
			}
		}
		return m, nil

	case commandDoneMsg:
		m.refreshQueue()
		if msg.err != nil {
			m.logger.Debug("command failed", "command", msg.name, "error", msg.err)
			if errors.Is(msg.err, shared.ErrNotAuthenticated) || errors.Is(msg.err, shared.ErrUnauthorized) {
				m.status = styles.err.Render("Signed out. Run `aerox auth login` to sign in again.")
			}
		}
		return m, nil
	}

	return m.updateList(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input.Focused() {
		return m.handleSearchInput(msg)
	}

	c := m.opts.Controller
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.nextView):
		return m, m.cycle(1)
	case key.Matches(msg, m.keys.prevView):
		return m, m.cycle(-1)
	case key.Matches(msg, m.keys.back):
		m.back()
		return m, nil
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.playPause):
		return m, m.run("play", c.TogglePlay)
	case key.Matches(msg, m.keys.next):
		return m, m.run("next", c.Next)
	case key.Matches(msg, m.keys.prev):
		return m, m.run("previous", c.Previous)
	case key.Matches(msg, m.keys.shuffle):
		return m, m.run("shuffle", c.ToggleShuffle)
	case key.Matches(msg, m.keys.repeat):
		return m, m.run("repeat", c.CycleRepeat)
	case key.Matches(msg, m.keys.like):
		return m, m.run("like", c.ToggleLike)
	case key.Matches(msg, m.keys.volUp):
		return m, m.changeVolume(volumeStep)
	case key.Matches(msg, m.keys.volDown):
		return m, m.changeVolume(-volumeStep)
	case key.Matches(msg, m.keys.seekBack):
		return m, m.seek(-seekStepMS)
	case key.Matches(msg, m.keys.seekFwd):
		return m, m.seek(seekStepMS)
	case key.Matches(msg, m.keys.search):
		m.enter(SearchView)
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.enter):
		return m, m.selectItem()
	case key.Matches(msg, m.keys.enqueue):
		if t, ok := m.selectedTrack(); ok && m.view != QueueView {
			m.opts.Queue.Enqueue(t)
			m.refreshQueue()
			m.status = styles.ok.Render(fmt.Sprintf("Added %s to queue", t.Name))
		}
		return m, nil
	case key.Matches(msg, m.keys.dequeue):
		if m.view == QueueView {
			if _, err := m.opts.Queue.Dequeue(m.queue.Index()); err == nil {
				m.refreshQueue()
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.album):
		if t, ok := m.selectedTrack(); ok && t.Album.ID != "" {
			return m, m.loadAlbum(t.Album.ID)
		}
		return m, nil
	}

	return m.updateList(msg)
}

func (m *Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc, tea.KeyEnter, tea.KeyTab:
		m.input.Blur()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.submitSearch()
	}
	return m, cmd
}

func (m *Model) submitSearch() {
	if m.opts.Search == nil {
		return
	}
	query := m.input.Value()
	err := m.opts.Search.Submit(query)
	m.searchErr = err
	m.searching = err == nil && strings.TrimSpace(query) != ""
}

func (m *Model) applySearch(r player.SearchResult) {
	if r.Query != strings.TrimSpace(m.input.Value()) {
		return
	}
	m.searching = false
	if r.Err != nil {
		m.searchErr = r.Err
		return
	}
	m.searchErr = nil
	m.results.SetItems(trackItems(r.Tracks, time.Time{}))
	m.results.ResetSelected()
}

// selectItem plays the highlighted entry. Playlist tracks keep the playlist as context; every
// other view clears it.
func (m *Model) selectItem() tea.Cmd {
	c := m.opts.Controller
	switch m.view {
	case PlaylistsView:
		if item, ok := m.playlists.SelectedItem().(playlistItem); ok {
			return m.loadPlaylistTracks(item.playlist)
		}
	case PlaylistTracksView:
		item, ok := m.playlistTracks.SelectedItem().(trackItem)
		if !ok || m.openPlaylist == nil {
			return nil
		}
		c.SetContext(m.openPlaylist)
		return m.run("select", func(ctx context.Context) error {
			return c.SelectTrack(ctx, item.track, player.SelectOpts{})
		})
	case QueueView:
		t, err := m.opts.Queue.Dequeue(m.queue.Index())
		if err != nil {
			return nil
		}
		m.refreshQueue()
		return m.run("select", func(ctx context.Context) error {
			return c.SelectTrack(ctx, t, player.SelectOpts{ClearContext: true})
		})
	case RecentView, AlbumView, SearchView:
		t, ok := m.selectedTrack()
		if !ok {
			return nil
		}
		return m.run("select", func(ctx context.Context) error {
			return c.SelectTrack(ctx, t, player.SelectOpts{ClearContext: true})
		})
	}
	return nil
}

func (m *Model) selectedTrack() (models.Track, bool) {
	if m.view == NowPlayingView && m.snapshot.Track != nil {
		return *m.snapshot.Track, true
	}
	l := m.activeList()
	if l == nil {
		return models.Track{}, false
	}
	item, ok := l.SelectedItem().(trackItem)
	return item.track, ok
}

func (m *Model) activeList() *list.Model {
	switch m.view {
	case RecentView:
		return &m.recent
	case PlaylistsView:
		return &m.playlists
	case PlaylistTracksView:
		return &m.playlistTracks
	case AlbumView:
		return &m.album
	case SearchView:
		return &m.results
	case QueueView:
		return &m.queue
	default:
		return nil
	}
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	l := m.activeList()
	if l == nil {
		return m, nil
	}
	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	return m, cmd
}

// cycle moves along tabOrder. Drill-down views continue from their parent.
func (m *Model) cycle(step int) tea.Cmd {
	idx := 0
	for i, v := range tabOrder {
		if v == m.parent {
			idx = i
		}
	}
	next := tabOrder[(idx+step+len(tabOrder))%len(tabOrder)]
	m.enter(next)

	switch next {
	case RecentView:
		return m.loadRecent()
	case PlaylistsView:
		if len(m.playlists.Items()) == 0 {
			return m.loadPlaylists()
		}
	case QueueView:
		m.refreshQueue()
	}
	return nil
}

func (m *Model) enter(view ViewState) {
	m.view, m.parent, m.prev = view, view, view
	m.status = ""
}

// drill opens a detail view without leaving the current tab.
func (m *Model) drill(view ViewState) {
	if m.view != view {
		m.prev = m.view
	}
	m.view = view
	m.status = ""
}

func (m *Model) back() {
	switch m.view {
	case PlaylistTracksView, AlbumView:
		m.view = m.prev
		if m.view == AlbumView {
			m.view = m.parent
		}
		m.prev = m.parent
	default:
		m.enter(NowPlayingView)
	}
}

func (m *Model) refreshQueue() {
	m.queue.SetItems(trackItems(m.opts.Queue.Items(), time.Time{}))
}

func (m *Model) setSnapshot(s models.Snapshot) {
	m.snapshot = s
	m.progress = s.ProgressMS
}

// advance moves displayed progress forward one second while playing and expires notifications.
func (m *Model) advance(now time.Time) {
	if m.snapshot.IsPlaying && m.snapshot.Track != nil {
		m.progress = min(m.progress+1000, m.snapshot.Track.DurationMS)
	}
	if m.note != nil && now.Sub(m.note.At) > notificationTTL {
		m.note = nil
	}
}

func (m *Model) seek(delta int) tea.Cmd {
	if m.snapshot.Track == nil {
		return nil
	}
	pos := min(max(m.progress+delta, 0), m.snapshot.Track.DurationMS)
	m.progress = pos
	return m.run("seek", func(ctx context.Context) error {
		return m.opts.Controller.Seek(ctx, pos)
	})
}

func (m *Model) changeVolume(delta int) tea.Cmd {
	m.volume = min(max(m.volume+delta, 0), 100)
	v := m.volume
	return m.run("volume", func(ctx context.Context) error {
		return m.opts.Controller.Volume(ctx, v)
	})
}

func (m *Model) fail(what string, err error) {
	m.logger.Error(strings.ToLower(what), "error", err)
	m.status = styles.err.Render(fmt.Sprintf("%s: %v", what, err))
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	h := max(height-chromeHeight, 3)
	for _, l := range []*list.Model{&m.recent, &m.playlists, &m.playlistTracks, &m.album, &m.queue} {
		l.SetSize(width, h)
	}
	m.results.SetSize(width, max(h-2, 3))
	m.input.Width = max(width-4, 10)
	m.help.Width = width
}

func (m *Model) run(name string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return commandDoneMsg{name: name, err: fn(ctx)}
	}
}

func (m *Model) listenSnapshots() tea.Cmd {
	if m.opts.Playback == nil {
		return nil
	}
	return listen(m.ctx, m.opts.Playback.Updates(), func(s models.Snapshot) tea.Msg { return snapshotMsg(s) })
}

func (m *Model) listenNotifications() tea.Cmd {
	return listen(m.ctx, m.opts.Notifications, func(n player.Notification) tea.Msg { return notificationMsg(n) })
}

func (m *Model) listenResults() tea.Cmd {
	if m.opts.Search == nil {
		return nil
	}
	return listen(m.ctx, m.opts.Search.Results(), func(r player.SearchResult) tea.Msg { return searchResultMsg(r) })
}

func (m *Model) loadRecent() tea.Cmd {
	lib, limit := m.opts.Library, m.opts.Config.RecentLimit
	if lib == nil {
		return nil
	}
	return func() tea.Msg {
		tracks, err := lib.RecentlyPlayed(m.ctx, limit)
		return recentLoadedMsg{tracks: tracks, err: err}
	}
}

func (m *Model) loadPlaylists() tea.Cmd {
	lib, limit := m.opts.Library, m.opts.Config.PlaylistLimit
	if lib == nil {
		return nil
	}
	return func() tea.Msg {
		playlists, err := lib.Playlists(m.ctx, limit)
		return playlistsLoadedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) loadPlaylistTracks(pl models.Playlist) tea.Cmd {
	lib := m.opts.Library
	return func() tea.Msg {
		tracks, err := lib.PlaylistTracks(m.ctx, pl.ID)
		return playlistTracksLoadedMsg{playlist: pl, tracks: tracks, err: err}
	}
}

func (m *Model) loadAlbum(id string) tea.Cmd {
	lib := m.opts.Library
	return func() tea.Msg {
		album, err := lib.Album(m.ctx, id)
		return albumLoadedMsg{album: album, err: err}
	}
}

func (m *Model) loadDevices() tea.Cmd {
	lib := m.opts.Library
	if lib == nil {
		return nil
	}
	return func() tea.Msg {
		devices, err := lib.Devices(m.ctx)
		return devicesLoadedMsg{devices: devices, err: err}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case NowPlayingView:
		body = m.renderNowPlaying()
	case SearchView:
		body = m.renderSearch()
	default:
		if l := m.activeList(); l != nil {
			body = m.renderList(l)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabs(), body, m.renderFooter())
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(tabOrder))
	for i, v := range tabOrder {
		if v == m.parent {
			tabs[i] = styles.active.Render(v.String())
		} else {
			tabs[i] = styles.tab.Render(v.String())
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n"
}

func (m *Model) renderNowPlaying() string {
	s := m.snapshot
	if s.Track == nil {
		return styles.warn.Render("Nothing playing. Make sure Spotify is active on a device.")
	}

	state := "▶"
	if !s.IsPlaying {
		state = "⏸"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", state, styles.track.Render(s.Track.Name))
	fmt.Fprintf(&b, "  %s\n", s.Track.ArtistNames())
	if s.Track.Album.Name != "" {
		fmt.Fprintf(&b, "  %s\n", styles.help.Render(s.Track.Album.Name))
	}
	b.WriteString("\n")

	barWidth := max(min(m.width-20, 60), 10)
	fmt.Fprintf(&b, "  %s %s / %s\n\n", progressBar(m.progress, s.Track.DurationMS, barWidth),
		models.FormatDuration(m.progress), models.FormatDuration(s.Track.DurationMS))

	liked := "♡"
	if s.Liked {
		liked = styles.ok.Render("♥")
	}
	shuffle := "off"
	if s.Shuffle {
		shuffle = styles.ok.Render("on")
	}
	fmt.Fprintf(&b, "  shuffle %s · repeat %s · %s · volume %d%%\n", shuffle, s.Repeat, liked, m.volume)
	if n := m.opts.Queue.Len(); n > 0 {
		fmt.Fprintf(&b, "  %d queued\n", n)
	}
	return b.String()
}

func (m *Model) renderSearch() string {
	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n")
	switch {
	case m.searchErr != nil:
		b.WriteString(styles.err.Render(m.searchErr.Error()))
	case m.searching:
		b.WriteString(styles.help.Render("Searching..."))
	}
	b.WriteString("\n")
	b.WriteString(m.results.View())
	return b.String()
}

func (m *Model) renderList(l *list.Model) string {
	if len(l.Items()) == 0 {
		empty := "Nothing here yet."
		if m.view == QueueView {
			empty = "Queue is empty. Press a on a track to add it."
		}
		return styles.title.Render(l.Title) + "\n" + styles.help.Render(empty)
	}
	return l.View()
}

func (m *Model) renderFooter() string {
	var lines []string
	if m.note != nil {
		style := styles.ok
		if m.note.Level == player.LevelError {
			style = styles.err
		}
		line := style.Render(m.note.Title)
		if m.note.Message != "" {
			line += " " + m.note.Message
		}
		lines = append(lines, line)
	}
	if m.status != "" {
		lines = append(lines, m.status)
	}
	lines = append(lines, m.help.View(m.keys))
	return "\n" + strings.Join(lines, "\n")
}
