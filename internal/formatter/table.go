package formatter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/desertthunder/aerox/internal/models"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	bold    = color.New(color.Bold)
	total   = color.New(color.FgGreen, color.Bold)
)

func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(header)
	return t
}

// Tracks renders a numbered track table. When now is non-zero a "Played" column shows how long
// ago each track was played.
func Tracks(w io.Writer, title string, tracks []models.Track, now time.Time) {
	if title != "" {
		heading.Fprintf(w, "\n%s\n\n", title)
	}

	header := table.Row{"#", "Title", "Artists", "Album", "Length"}
	if !now.IsZero() {
		header = append(header, "Played")
	}
	t := newTable(w, header)

	for i, tr := range tracks {
		n := i + 1
		if tr.TrackNumber != nil {
			n = *tr.TrackNumber
		}
		row := table.Row{n, bold.Sprint(tr.Name), tr.ArtistNames(), tr.Album.Name, models.FormatDuration(tr.DurationMS)}
		if !now.IsZero() {
			played := ""
			if tr.PlayedAt != nil {
				played = models.FormatTimeAgo(*tr.PlayedAt, now)
			}
			row = append(row, played)
		}
		t.AppendRow(row)
	}
	t.Render()
	total.Fprintf(w, "Total tracks: %d\n", len(tracks))
}

// Playlists renders the user's playlists.
func Playlists(w io.Writer, playlists []models.Playlist) {
	heading.Fprint(w, "\nPlaylists\n\n")

	t := newTable(w, table.Row{"#", "Name", "Tracks", "Owner", "Playlist ID"})
	for i, p := range playlists {
		t.AppendRow(table.Row{i + 1, bold.Sprint(p.Name), p.TrackCount, p.Owner, color.HiBlackString(p.ID)})
	}
	t.Render()
	total.Fprintf(w, "Total playlists: %d\n", len(playlists))
}

// Devices renders Spotify Connect devices, marking the active one.
func Devices(w io.Writer, devices []models.Device) {
	heading.Fprint(w, "\nAvailable Spotify Connect Devices\n\n")

	t := newTable(w, table.Row{"#", "Name", "Type", "Volume", "Status", "Device ID"})
	for i, d := range devices {
		status := "Inactive"
		if d.Active {
			status = color.GreenString("● Active")
		}
		t.AppendRow(table.Row{i + 1, bold.Sprint(d.Name), d.Type, fmt.Sprintf("%d%%", d.Volume), status, color.HiBlackString(d.ID)})
	}
	t.Render()
	total.Fprintf(w, "Total devices: %d\n", len(devices))
}

// Album renders album details followed by its tracks.
func Album(w io.Writer, album *models.AlbumDetails) {
	artists := make([]string, len(album.Artists))
	for i, a := range album.Artists {
		artists[i] = a.Name
	}
	title := album.Name
	if len(artists) > 0 {
		title += " by " + strings.Join(artists, ", ")
	}
	if album.ReleaseDate != "" {
		title += " (" + album.ReleaseDate + ")"
	}
	Tracks(w, title, album.Tracks, time.Time{})
}

// NowPlaying prints the playback snapshot. A nil snapshot means nothing is playing.
func NowPlaying(w io.Writer, s *models.Snapshot) {
	if s == nil || s.Track == nil {
		color.New(color.FgYellow).Fprintln(w, "Nothing playing. Make sure Spotify is active on a device.")
		return
	}

	state := color.GreenString("▶ Playing")
	if !s.IsPlaying {
		state = color.YellowString("⏸ Paused")
	}
	fmt.Fprintf(w, "%s  %s\n", state, bold.Sprint(s.Track.Name))
	fmt.Fprintf(w, "   %s\n", s.Track.ArtistNames())
	if s.Track.Album.Name != "" {
		fmt.Fprintf(w, "   %s\n", color.HiBlackString(s.Track.Album.Name))
	}
	fmt.Fprintf(w, "   %s / %s\n", models.FormatDuration(s.ProgressMS), models.FormatDuration(s.Track.DurationMS))
	fmt.Fprintf(w, "   shuffle: %s  repeat: %s  liked: %s\n", onOff(s.Shuffle), s.Repeat, onOff(s.Liked))
}

func onOff(b bool) string {
	if b {
		return color.GreenString("on")
	}
	return "off"
}
