// package models defines the data model for the aerox player client
package models

import (
	"fmt"
	"strings"
	"time"
)

// Image is a cover or avatar image reference.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Artist is the subset of an artist carried on a track.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album is the parent album of a [Track].
type Album struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Images      []Image `json:"images"`
	ReleaseDate string  `json:"release_date"`
}

// Track is an immutable, normalized track.
//
// Artists and Album.Images are never nil once passed through [NormalizeTrack].
type Track struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Artists     []Artist   `json:"artists"`
	Album       Album      `json:"album"`
	DurationMS  int        `json:"duration_ms"`
	TrackNumber *int       `json:"track_number,omitempty"`
	PlayedAt    *time.Time `json:"played_at,omitempty"`
}

// NormalizeTrack fills absent list fields with empty lists.
func NormalizeTrack(t Track) Track {
	if t.Artists == nil {
		t.Artists = []Artist{}
	}
	if t.Album.Images == nil {
		t.Album.Images = []Image{}
	}
	return t
}

// ArtistNames joins the track's artist names with ", ".
func (t Track) ArtistNames() string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// URI returns the spotify:track URI used by play requests.
func (t Track) URI() string {
	return "spotify:track:" + t.ID
}

// RepeatMode is the remote player's repeat state.
type RepeatMode string

const (
	RepeatOff     RepeatMode = "off"
	RepeatContext RepeatMode = "context"
	RepeatTrack   RepeatMode = "track"
)

// Next cycles off -> context -> track -> off. Unknown values restart at off.
func (r RepeatMode) Next() RepeatMode {
	switch r {
	case RepeatOff:
		return RepeatContext
	case RepeatContext:
		return RepeatTrack
	default:
		return RepeatOff
	}
}

// ParseRepeatMode validates a repeat mode name.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch m := RepeatMode(strings.ToLower(strings.TrimSpace(s))); m {
	case RepeatOff, RepeatContext, RepeatTrack:
		return m, nil
	default:
		return "", fmt.Errorf("invalid repeat mode %q: want off, context or track", s)
	}
}

// Snapshot is the complete picture of current playback.
//
// Snapshots are values and are replaced wholesale, never merged.
type Snapshot struct {
	Track      *Track     `json:"track"`
	IsPlaying  bool       `json:"is_playing"`
	ProgressMS int        `json:"progress_ms"`
	Shuffle    bool       `json:"shuffle"`
	Repeat     RepeatMode `json:"repeat"`
	Liked      bool       `json:"liked"`
}

// Equal reports whether two snapshots carry the same playback state.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.IsPlaying != o.IsPlaying || s.ProgressMS != o.ProgressMS || s.Shuffle != o.Shuffle ||
		s.Repeat != o.Repeat || s.Liked != o.Liked {
		return false
	}
	if s.Track == nil || o.Track == nil {
		return s.Track == o.Track
	}
	return s.Track.ID == o.Track.ID
}

// Playlist is a user playlist summary.
type Playlist struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Images     []Image `json:"images"`
	TrackCount int     `json:"track_count"`
	Owner      string  `json:"owner"`
}

// URI returns the spotify:playlist URI used as a playback context.
func (p Playlist) URI() string {
	return "spotify:playlist:" + p.ID
}

// AlbumDetails is an album with its normalized tracks.
type AlbumDetails struct {
	Album
	Artists     []Artist `json:"artists"`
	TotalTracks int      `json:"total_tracks"`
	Tracks      []Track  `json:"tracks"`
}

// User is the authenticated user's profile.
type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Images      []Image `json:"images"`
}

// Device is a Spotify Connect device.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Active     bool   `json:"active"`
	Volume     int    `json:"volume"`
	Restricted bool   `json:"restricted"`
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatTimeAgo renders how long before now t was, at minute, hour or day granularity.
func FormatTimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}
