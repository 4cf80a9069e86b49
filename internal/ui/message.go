package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/aerox/internal/models"
	"github.com/desertthunder/aerox/internal/player"
)

type snapshotMsg models.Snapshot

type notificationMsg player.Notification

type searchResultMsg player.SearchResult

type clockMsg time.Time

type recentLoadedMsg struct {
	tracks []models.Track
	err    error
}

type playlistsLoadedMsg struct {
	playlists []models.Playlist
	err       error
}

type playlistTracksLoadedMsg struct {
	playlist models.Playlist
	tracks   []models.Track
	err      error
}

type albumLoadedMsg struct {
	album *models.AlbumDetails
	err   error
}

type devicesLoadedMsg struct {
	devices []models.Device
	err     error
}

// commandDoneMsg reports the outcome of a playback command.
type commandDoneMsg struct {
	name string
	err  error
}

// tick schedules the next local clock advance.
func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

// listen waits for the next value on ch, converting it with wrap. It returns nil once ctx is done
// or ch is closed.
func listen[T any](ctx context.Context, ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-ch:
			if !ok {
				return nil
			}
			return wrap(v)
		}
	}
}
