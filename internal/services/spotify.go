// Spotify Web API client built on the [Gateway].
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/aerox/internal/models"
	"github.com/desertthunder/aerox/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// SpotifyBaseURL is the Spotify Web API root.
const SpotifyBaseURL = "https://api.spotify.com/v1"

// PlayOptions is the body of a play request.
type PlayOptions = spotify.PlayOptions

// PlaybackOffset picks where playback starts within a context.
type PlaybackOffset = spotify.PlaybackOffset

// TrackOffset starts a context at track, wherever it sits in the remote listing.
func TrackOffset(track models.Track) *PlaybackOffset {
	return &PlaybackOffset{URI: spotify.URI(track.URI())}
}

// PositionOffset starts a context at a zero-based position of the remote listing.
func PositionOffset(position int) *PlaybackOffset {
	return &PlaybackOffset{Position: &position}
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album as embedded in a track.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyTrack represents a Spotify track. Album is absent on album track listings.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       *SpotifyAlbum   `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	TrackNumber *int            `json:"track_number"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Images      []SpotifyImage `json:"images"`
}

type spotifyPlayback struct {
	IsPlaying    bool          `json:"is_playing"`
	ProgressMS   *int          `json:"progress_ms"`
	ShuffleState bool          `json:"shuffle_state"`
	RepeatState  string        `json:"repeat_state"`
	Item         *SpotifyTrack `json:"item"`
}

type spotifyPlayHistory struct {
	Items []struct {
		Track    SpotifyTrack `json:"track"`
		PlayedAt time.Time    `json:"played_at"`
	} `json:"items"`
}

type spotifyPlaylistTracks struct {
	Items []struct {
		Track *SpotifyTrack `json:"track"`
	} `json:"items"`
	Next *string `json:"next"`
}

type spotifyAlbumDetails struct {
	SpotifyAlbum
	Artists     []SpotifyArtist `json:"artists"`
	TotalTracks int             `json:"total_tracks"`
	Tracks      struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifySearch struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyClient exposes the Spotify endpoints the player uses.
//
// Every track it returns has been passed through [models.NormalizeTrack].
type SpotifyClient struct {
	gw *Gateway
}

// NewSpotifyClient creates a [SpotifyClient] on top of gw.
func NewSpotifyClient(gw *Gateway) *SpotifyClient {
	return &SpotifyClient{gw: gw}
}

// CurrentUser retrieves the current authenticated user's profile.
func (c *SpotifyClient) CurrentUser(ctx context.Context) (*models.User, error) {
	var user SpotifyUser
	if err := c.gw.Do(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &models.User{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Images:      toImages(user.Images),
	}, nil
}

// CurrentPlayback fetches the remote player state.
//
// found is false on 204 No Content and when the player reports no current item.
func (c *SpotifyClient) CurrentPlayback(ctx context.Context) (snapshot *models.Snapshot, found bool, err error) {
	resp, err := c.gw.Request(ctx, http.MethodGet, "/me/player", nil)
	if err != nil {
		return nil, false, err
	}
	if resp.NoContent() {
		return nil, false, nil
	}

	var state spotifyPlayback
	if err := resp.Decode(&state); err != nil {
		return nil, false, err
	}
	if state.Item == nil {
		return nil, false, nil
	}

	track := toTrack(*state.Item, nil)
	repeat, err := models.ParseRepeatMode(state.RepeatState)
	if err != nil {
		repeat = models.RepeatOff
	}
	progress := 0
	if state.ProgressMS != nil {
		progress = *state.ProgressMS
	}

	return &models.Snapshot{
		Track:      &track,
		IsPlaying:  state.IsPlaying,
		ProgressMS: progress,
		Shuffle:    state.ShuffleState,
		Repeat:     repeat,
	}, true, nil
}

// Play starts or resumes playback. A nil opts resumes the current context.
func (c *SpotifyClient) Play(ctx context.Context, opts *PlayOptions) error {
	path := "/me/player/play"
	if opts != nil && opts.DeviceID != nil {
		path += "?device_id=" + url.QueryEscape(string(*opts.DeviceID))
	}
	var body any
	if opts != nil {
		body = opts
	}
	return c.gw.Do(ctx, http.MethodPut, path, body, nil)
}

// PlayTrack plays a single track with no context.
func (c *SpotifyClient) PlayTrack(ctx context.Context, track models.Track) error {
	return c.Play(ctx, &spotify.PlayOptions{URIs: []spotify.URI{spotify.URI(track.URI())}})
}

// PlayInContext plays the playlist starting at offset so remote "next" continues through it. A nil
// offset starts at the top.
func (c *SpotifyClient) PlayInContext(ctx context.Context, playlist models.Playlist, offset *PlaybackOffset) error {
	contextURI := spotify.URI(playlist.URI())
	return c.Play(ctx, &spotify.PlayOptions{
		PlaybackContext: &contextURI,
		PlaybackOffset:  offset,
	})
}

// Pause pauses playback.
func (c *SpotifyClient) Pause(ctx context.Context) error {
	return c.gw.Do(ctx, http.MethodPut, "/me/player/pause", nil, nil)
}

// Next skips to the next track in the remote context.
func (c *SpotifyClient) Next(ctx context.Context) error {
	return c.gw.Do(ctx, http.MethodPost, "/me/player/next", nil, nil)
}

// Previous skips to the previous track in the remote context.
func (c *SpotifyClient) Previous(ctx context.Context) error {
	return c.gw.Do(ctx, http.MethodPost, "/me/player/previous", nil, nil)
}

// Seek moves playback to positionMS.
func (c *SpotifyClient) Seek(ctx context.Context, positionMS int) error {
	if positionMS < 0 {
		positionMS = 0
	}
	return c.gw.Do(ctx, http.MethodPut, fmt.Sprintf("/me/player/seek?position_ms=%d", positionMS), nil, nil)
}

// Volume sets the device volume, clamped to 0..100.
func (c *SpotifyClient) Volume(ctx context.Context, percent int) error {
	percent = max(0, min(100, percent))
	return c.gw.Do(ctx, http.MethodPut, fmt.Sprintf("/me/player/volume?volume_percent=%d", percent), nil, nil)
}

// Shuffle sets the shuffle state.
func (c *SpotifyClient) Shuffle(ctx context.Context, on bool) error {
	return c.gw.Do(ctx, http.MethodPut, fmt.Sprintf("/me/player/shuffle?state=%t", on), nil, nil)
}

// Repeat sets the repeat mode.
func (c *SpotifyClient) Repeat(ctx context.Context, mode models.RepeatMode) error {
	return c.gw.Do(ctx, http.MethodPut, "/me/player/repeat?state="+url.QueryEscape(string(mode)), nil, nil)
}

// IsLiked reports whether trackID is in the user's saved tracks.
func (c *SpotifyClient) IsLiked(ctx context.Context, trackID string) (bool, error) {
	var contains []bool
	if err := c.gw.Do(ctx, http.MethodGet, "/me/tracks/contains?ids="+url.QueryEscape(trackID), nil, &contains); err != nil {
		return false, err
	}
	return len(contains) > 0 && contains[0], nil
}

// Like saves trackID to the user's library.
func (c *SpotifyClient) Like(ctx context.Context, trackID string) error {
	return c.gw.Do(ctx, http.MethodPut, "/me/tracks?ids="+url.QueryEscape(trackID), nil, nil)
}

// Unlike removes trackID from the user's library.
func (c *SpotifyClient) Unlike(ctx context.Context, trackID string) error {
	return c.gw.Do(ctx, http.MethodDelete, "/me/tracks?ids="+url.QueryEscape(trackID), nil, nil)
}

// RecentlyPlayed returns the first page of the user's play history, newest first.
func (c *SpotifyClient) RecentlyPlayed(ctx context.Context, limit int) ([]models.Track, error) {
	var history spotifyPlayHistory
	path := fmt.Sprintf("/me/player/recently-played?limit=%d", clampLimit(limit, 20))
	if err := c.gw.Do(ctx, http.MethodGet, path, nil, &history); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(history.Items))
	for _, item := range history.Items {
		track := toTrack(item.Track, nil)
		playedAt := item.PlayedAt
		track.PlayedAt = &playedAt
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// Playlists returns the first page of the current user's playlists.
func (c *SpotifyClient) Playlists(ctx context.Context, limit int) ([]models.Playlist, error) {
	var page spotify.SimplePlaylistPage
	path := fmt.Sprintf("/me/playlists?limit=%d", clampLimit(limit, 50))
	if err := c.gw.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(page.Playlists))
	for _, p := range page.Playlists {
		images := make([]models.Image, 0, len(p.Images))
		for _, img := range p.Images {
			images = append(images, models.Image{URL: img.URL, Width: int(img.Width), Height: int(img.Height)})
		}
		playlists = append(playlists, models.Playlist{
			ID:         string(p.ID),
			Name:       p.Name,
			Images:     images,
			TrackCount: int(p.Tracks.Total),
			Owner:      p.Owner.DisplayName,
		})
	}
	return playlists, nil
}

// PlaylistTracks returns every track of a playlist, following pagination. Null entries
// (removed or local-only tracks) are dropped.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	tracks := []models.Track{}
	next := fmt.Sprintf("/playlists/%s/tracks?limit=100", url.PathEscape(playlistID))
	for next != "" {
		var page spotifyPlaylistTracks
		if err := c.gw.Do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" {
				continue
			}
			tracks = append(tracks, toTrack(*item.Track, nil))
		}

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return tracks, nil
}

// Album returns album details with tracks normalized against the parent album.
func (c *SpotifyClient) Album(ctx context.Context, albumID string) (*models.AlbumDetails, error) {
	if albumID == "" {
		return nil, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	var album spotifyAlbumDetails
	if err := c.gw.Do(ctx, http.MethodGet, "/albums/"+url.PathEscape(albumID), nil, &album); err != nil {
		return nil, err
	}

	parent := toAlbum(&album.SpotifyAlbum)
	tracks := make([]models.Track, 0, len(album.Tracks.Items))
	for _, t := range album.Tracks.Items {
		tracks = append(tracks, toTrack(t, &album.SpotifyAlbum))
	}

	return &models.AlbumDetails{
		Album:       parent,
		Artists:     toArtists(album.Artists),
		TotalTracks: album.TotalTracks,
		Tracks:      tracks,
	}, nil
}

// SearchTracks searches the catalog for tracks. The caller validates and debounces query.
func (c *SpotifyClient) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", fmt.Sprint(clampLimit(limit, 20)))

	var result spotifySearch
	if err := c.gw.Do(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &result); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(result.Tracks.Items))
	for _, t := range result.Tracks.Items {
		tracks = append(tracks, toTrack(t, nil))
	}
	return tracks, nil
}

// Devices lists the user's Spotify Connect devices.
func (c *SpotifyClient) Devices(ctx context.Context) ([]models.Device, error) {
	var result struct {
		Devices []spotify.PlayerDevice `json:"devices"`
	}
	if err := c.gw.Do(ctx, http.MethodGet, "/me/player/devices", nil, &result); err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(result.Devices))
	for _, d := range result.Devices {
		devices = append(devices, models.Device{
			ID:         string(d.ID),
			Name:       d.Name,
			Type:       d.Type,
			Active:     d.Active,
			Volume:     int(d.Volume),
			Restricted: d.Restricted,
		})
	}
	return devices, nil
}

// toTrack converts a wire track. parent overrides the embedded album, for album listings.
func toTrack(t SpotifyTrack, parent *SpotifyAlbum) models.Track {
	album := t.Album
	if parent != nil {
		album = parent
	}
	return models.NormalizeTrack(models.Track{
		ID:          t.ID,
		Name:        t.Name,
		Artists:     toArtists(t.Artists),
		Album:       toAlbum(album),
		DurationMS:  t.DurationMS,
		TrackNumber: t.TrackNumber,
	})
}

func toAlbum(a *SpotifyAlbum) models.Album {
	if a == nil {
		return models.Album{Images: []models.Image{}}
	}
	return models.Album{
		ID:          a.ID,
		Name:        a.Name,
		ReleaseDate: a.ReleaseDate,
		Images:      toImages(a.Images),
	}
}

func toArtists(in []SpotifyArtist) []models.Artist {
	out := make([]models.Artist, 0, len(in))
	for _, a := range in {
		out = append(out, models.Artist{ID: a.ID, Name: strings.TrimSpace(a.Name)})
	}
	return out
}

func toImages(in []SpotifyImage) []models.Image {
	out := make([]models.Image, 0, len(in))
	for _, img := range in {
		out = append(out, models.Image{URL: img.URL, Width: img.Width, Height: img.Height})
	}
	return out
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, 50)
}
