package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/aerox/internal/formatter"
	"github.com/desertthunder/aerox/internal/models"
	"github.com/desertthunder/aerox/internal/player"
	"github.com/desertthunder/aerox/internal/shared"
	"github.com/urfave/cli/v3"
)

// LibraryRecent lists recently played tracks.
func (r *Runner) LibraryRecent(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	tracks, err := s.Client.RecentlyPlayed(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	formatter.Tracks(r.output, "Recently Played", tracks, time.Now())
	return nil
}

// LibraryPlaylists lists the user's playlists.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	playlists, err := s.Client.Playlists(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}
	if len(playlists) == 0 {
		r.writePlain("No playlists found.\n")
		return nil
	}
	formatter.Playlists(r.output, playlists)
	return nil
}

// LibraryPlaylist prints a playlist's tracks or exports them to disk.
func (r *Runner) LibraryPlaylist(ctx context.Context, cmd *cli.Command) error {
	id := parseID("playlist", cmd.Args().First())
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	format := strings.ToLower(cmd.String("export"))
	switch format {
	case "", "csv", "md", "markdown", "txt", "text":
	default:
		return fmt.Errorf("%w: unknown export format %q (use csv, md or txt)", shared.ErrInvalidArgument, format)
	}

	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	tracks, err := s.Client.PlaylistTracks(ctx, id)
	if err != nil {
		return err
	}
	export := &formatter.PlaylistExport{Playlist: r.lookupPlaylist(ctx, s, id), Tracks: tracks}

	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, cmd.String("output"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d tracks to %s and %s\n", len(tracks), result.TracksFile, result.MetadataFile)
		return nil
	case "md", "markdown":
		result, err := formatter.WriteMarkdownExport(export, cmd.String("output"), r.httpClient)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), result.Directory)
		return nil
	case "txt", "text":
		path, err := formatter.WriteTextExport(export, cmd.String("output"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), path)
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(export, cmd.Bool("pretty"))
	}
	formatter.Tracks(r.output, export.Playlist.Name, tracks, time.Time{})
	return nil
}

// lookupPlaylist finds playlist metadata among the user's playlists, falling back to the bare id.
func (r *Runner) lookupPlaylist(ctx context.Context, s *player.Session, id string) models.Playlist {
	fallback := models.Playlist{ID: id, Name: id, Images: []models.Image{}}
	playlists, err := s.Client.Playlists(ctx, 50)
	if err != nil {
		r.logger.Debug("playlist metadata unavailable", "id", id, "error", err)
		return fallback
	}
	for _, p := range playlists {
		if p.ID == id {
			return p
		}
	}
	return fallback
}

// LibraryAlbum prints an album with its tracks.
func (r *Runner) LibraryAlbum(ctx context.Context, cmd *cli.Command) error {
	id := parseID("album", cmd.Args().First())
	if id == "" {
		return fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	album, err := s.Client.Album(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(album, cmd.Bool("pretty"))
	}
	formatter.Album(r.output, album)
	return nil
}

// LibrarySearch searches the catalog for tracks.
func (r *Runner) LibrarySearch(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	query, err := s.Searcher.Validate(strings.Join(cmd.Args().Slice(), " "))
	if err != nil {
		return err
	}
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	tracks, err := s.Client.SearchTracks(ctx, query, cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	if len(tracks) == 0 {
		r.writePlain("No tracks found for %q.\n", query)
		return nil
	}
	formatter.Tracks(r.output, fmt.Sprintf("Results for %q", query), tracks, time.Time{})
	return nil
}
