package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/aerox/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Owner != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Owner)
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item]. now is set for recently played
// entries so the description can say how long ago they played.
type trackItem struct {
	track models.Track
	now   time.Time
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string {
	if i.track.TrackNumber != nil {
		return fmt.Sprintf("%d. %s", *i.track.TrackNumber, i.track.Name)
	}
	return i.track.Name
}

func (i trackItem) Description() string {
	desc := i.track.ArtistNames()
	if i.track.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Name)
	}
	desc = fmt.Sprintf("%s • %s", desc, models.FormatDuration(i.track.DurationMS))
	if i.track.PlayedAt != nil && !i.now.IsZero() {
		desc = fmt.Sprintf("%s • %s", desc, models.FormatTimeAgo(*i.track.PlayedAt, i.now))
	}
	return desc
}

func trackItems(tracks []models.Track, now time.Time) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t, now: now}
	}
	return items
}

func playlistItems(playlists []models.Playlist) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{playlist: p}
	}
	return items
}

func newList(title string, items []list.Item, width, height int) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}
