// package services defines the remote API surface used by the player
package services

import (
	"context"

	"github.com/desertthunder/aerox/internal/models"
)

var (
	_ Player  = (*SpotifyClient)(nil)
	_ Library = (*SpotifyClient)(nil)
)

// Player defines the remote playback operations the player core drives.
type Player interface {
	// CurrentPlayback returns the remote snapshot; found is false when there is nothing to report.
	CurrentPlayback(ctx context.Context) (snapshot *models.Snapshot, found bool, err error)
	// IsLiked reports whether the track is in the user's saved tracks.
	IsLiked(ctx context.Context, trackID string) (bool, error)

	Play(ctx context.Context, opts *PlayOptions) error
	PlayTrack(ctx context.Context, track models.Track) error
	PlayInContext(ctx context.Context, playlist models.Playlist, offset *PlaybackOffset) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMS int) error
	Volume(ctx context.Context, percent int) error
	Shuffle(ctx context.Context, on bool) error
	Repeat(ctx context.Context, mode models.RepeatMode) error
	Like(ctx context.Context, trackID string) error
	Unlike(ctx context.Context, trackID string) error
}

// Library defines read-only catalog queries.
type Library interface {
	CurrentUser(ctx context.Context) (*models.User, error)
	RecentlyPlayed(ctx context.Context, limit int) ([]models.Track, error)
	Playlists(ctx context.Context, limit int) ([]models.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)
	Album(ctx context.Context, albumID string) (*models.AlbumDetails, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)
	Devices(ctx context.Context) ([]models.Device, error)
}
