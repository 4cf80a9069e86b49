// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// setupCommand handles config and database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml from the built-in template",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing config file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles sign in and out.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with Spotify in the browser",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening it",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: 2 * time.Minute,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored access token",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show who is signed in",
				Flags:  outputFlags(),
				Action: r.AuthStatus,
			},
		},
	}
}

// playerCommand controls playback on the active device.
func playerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "player",
		Aliases: []string{"p"},
		Usage:   "Control playback on the active Spotify device",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show what is playing",
				Flags:  outputFlags(),
				Action: r.PlayerStatus,
			},
			{
				Name:      "play",
				Usage:     "Resume playback, or play a track or playlist",
				ArgsUsage: "[track id, URI or link]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Playlist id, URI or link to play",
					},
					&cli.IntFlag{
						Name:  "position",
						Usage: "Zero-based position within --playlist",
					},
				},
				Action: r.PlayerPlay,
			},
			{
				Name:   "pause",
				Usage:  "Pause playback",
				Action: r.PlayerPause,
			},
			{
				Name:   "toggle",
				Usage:  "Toggle between play and pause",
				Action: r.PlayerToggle,
			},
			{
				Name:    "next",
				Aliases: []string{"skip"},
				Usage:   "Skip to the next track",
				Action:  r.PlayerNext,
			},
			{
				Name:    "prev",
				Aliases: []string{"previous"},
				Usage:   "Go back to the previous track",
				Action:  r.PlayerPrevious,
			},
			{
				Name:      "seek",
				Usage:     "Seek to a position in the current track",
				ArgsUsage: "<seconds>",
				Action:    r.PlayerSeek,
			},
			{
				Name:      "volume",
				Usage:     "Set the device volume",
				ArgsUsage: "<0-100>",
				Action:    r.PlayerVolume,
			},
			{
				Name:      "shuffle",
				Usage:     "Set or toggle shuffle",
				ArgsUsage: "[on|off]",
				Action:    r.PlayerShuffle,
			},
			{
				Name:      "repeat",
				Usage:     "Set or cycle the repeat mode",
				ArgsUsage: "[off|context|track]",
				Action:    r.PlayerRepeat,
			},
			{
				Name:  "like",
				Usage: "Save the current track to your library",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "remove",
						Usage: "Remove the current track from your library instead",
					},
				},
				Action: r.PlayerLike,
			},
			{
				Name:   "devices",
				Usage:  "List Spotify Connect devices",
				Flags:  outputFlags(),
				Action: r.PlayerDevices,
			},
		},
	}
}

// libraryCommand browses the user's library and the catalog.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Browse your library and search the catalog",
		Commands: []*cli.Command{
			{
				Name:  "recent",
				Usage: "List recently played tracks",
				Flags: append(outputFlags(), &cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum number of tracks",
					Value: r.config.Player.RecentLimit,
				}),
				Action: r.LibraryRecent,
			},
			{
				Name:  "playlists",
				Usage: "List your playlists",
				Flags: append(outputFlags(), &cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum number of playlists",
					Value: r.config.Player.PlaylistLimit,
				}),
				Action: r.LibraryPlaylists,
			},
			{
				Name:      "playlist",
				Usage:     "Show or export a playlist's tracks",
				ArgsUsage: "<playlist id, URI or link>",
				Flags: append(outputFlags(),
					&cli.StringFlag{
						Name:  "export",
						Usage: "Export format: csv, md or txt",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Export file or directory (defaults to the playlist id)",
					},
				),
				Action: r.LibraryPlaylist,
			},
			{
				Name:      "album",
				Usage:     "Show an album's tracks",
				ArgsUsage: "<album id, URI or link>",
				Flags:     outputFlags(),
				Action:    r.LibraryAlbum,
			},
			{
				Name:      "search",
				Usage:     "Search for tracks",
				ArgsUsage: "<query>",
				Flags: append(outputFlags(), &cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum number of results",
					Value: r.config.Player.SearchLimit,
				}),
				Action: r.LibrarySearch,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive player",
		Action:  r.TUI,
	}
}
