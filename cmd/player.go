package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/aerox/internal/formatter"
	"github.com/desertthunder/aerox/internal/models"
	"github.com/desertthunder/aerox/internal/player"
	"github.com/desertthunder/aerox/internal/services"
	"github.com/desertthunder/aerox/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlayerStatus prints the current playback snapshot.
func (r *Runner) PlayerStatus(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	snap, err := r.currentSnapshot(ctx, s)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if snap.Track == nil {
			return r.writeJSON(nil, false)
		}
		return r.writeJSON(snap, cmd.Bool("pretty"))
	}
	formatter.NowPlaying(r.output, &snap)
	return nil
}

// PlayerPlay resumes playback, or starts a track or a playlist.
func (r *Runner) PlayerPlay(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	trackID := parseID("track", cmd.Args().First())
	playlistID := parseID("playlist", cmd.String("playlist"))

	switch {
	case playlistID != "":
		playlist := models.Playlist{ID: playlistID}
		if err := s.Client.PlayInContext(ctx, playlist, services.PositionOffset(cmd.Int("position"))); err != nil {
			return err
		}
		s.Dispatcher.SetContext(&playlist)
	case trackID != "":
		if err := s.Dispatcher.SelectTrack(ctx, models.Track{ID: trackID}, player.SelectOpts{ClearContext: true}); err != nil {
			return err
		}
	default:
		if err := s.Client.Play(ctx, nil); err != nil {
			return err
		}
	}
	r.writePlain("▶ Playing\n")
	return nil
}

// PlayerPause pauses playback.
func (r *Runner) PlayerPause(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	if err := s.Client.Pause(ctx); err != nil {
		return err
	}
	r.writePlain("⏸ Paused\n")
	return nil
}

// PlayerToggle flips play/pause based on the remote state.
func (r *Runner) PlayerToggle(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	if _, err := r.currentSnapshot(ctx, s); err != nil {
		return err
	}
	if err := s.Dispatcher.TogglePlay(ctx); err != nil {
		return err
	}
	if s.Poller.Snapshot().IsPlaying {
		r.writePlain("▶ Playing\n")
	} else {
		r.writePlain("⏸ Paused\n")
	}
	return nil
}

// PlayerNext skips forward.
func (r *Runner) PlayerNext(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	if err := s.Dispatcher.Next(ctx); err != nil {
		return err
	}
	r.writePlain("⏭ Skipped\n")
	return nil
}

// PlayerPrevious goes back one track.
func (r *Runner) PlayerPrevious(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	if err := s.Dispatcher.Previous(ctx); err != nil {
		return err
	}
	r.writePlain("⏮ Previous\n")
	return nil
}

// PlayerSeek jumps to a position given in seconds.
func (r *Runner) PlayerSeek(ctx context.Context, cmd *cli.Command) error {
	seconds, err := intArg(cmd, "seconds")
	if err != nil {
		return err
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	seconds = max(seconds, 0)
	if err := s.Client.Seek(ctx, seconds*1000); err != nil {
		return err
	}
	r.writePlain("→ %s\n", models.FormatDuration(seconds*1000))
	return nil
}

// PlayerVolume sets the device volume.
func (r *Runner) PlayerVolume(ctx context.Context, cmd *cli.Command) error {
	percent, err := intArg(cmd, "volume")
	if err != nil {
		return err
	}
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume must be between 0 and 100", shared.ErrInvalidArgument)
	}
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	if err := s.Client.Volume(ctx, percent); err != nil {
		return err
	}
	r.writePlain("Volume %d%%\n", percent)
	return nil
}

// PlayerShuffle sets shuffle explicitly, or toggles it when no state is given.
func (r *Runner) PlayerShuffle(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	var on bool
	switch arg := strings.ToLower(cmd.Args().First()); arg {
	case "on", "true":
		on = true
		err = s.Client.Shuffle(ctx, true)
	case "off", "false":
		err = s.Client.Shuffle(ctx, false)
	case "":
		if _, err := r.currentSnapshot(ctx, s); err != nil {
			return err
		}
		err = s.Dispatcher.ToggleShuffle(ctx)
		on = s.Poller.Snapshot().Shuffle
	default:
		return fmt.Errorf("%w: shuffle expects on or off, got %q", shared.ErrInvalidArgument, arg)
	}
	if err != nil {
		return err
	}
	r.writePlain("Shuffle %s\n", onOff(on))
	return nil
}

// PlayerRepeat sets the repeat mode, or cycles it when no mode is given.
func (r *Runner) PlayerRepeat(ctx context.Context, cmd *cli.Command) error {
	var mode models.RepeatMode
	if arg := cmd.Args().First(); arg != "" {
		m, err := models.ParseRepeatMode(arg)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		mode = m
	}

	s, err := r.authed(ctx)
	if err != nil {
		return err
	}

	if mode != "" {
		err = s.Client.Repeat(ctx, mode)
	} else {
		if _, err := r.currentSnapshot(ctx, s); err != nil {
			return err
		}
		err = s.Dispatcher.CycleRepeat(ctx)
		mode = s.Poller.Snapshot().Repeat
	}
	if err != nil {
		return err
	}
	r.writePlain("Repeat %s\n", mode)
	return nil
}

// PlayerLike saves or removes the current track.
func (r *Runner) PlayerLike(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	snap, err := r.currentSnapshot(ctx, s)
	if err != nil {
		return err
	}
	if snap.Track == nil {
		return fmt.Errorf("%w: nothing is playing", shared.ErrInvalidInput)
	}

	if cmd.Bool("remove") {
		if err := s.Client.Unlike(ctx, snap.Track.ID); err != nil {
			return err
		}
		r.writePlain("♡ Removed %s\n", snap.Track.Name)
		return nil
	}
	if err := s.Client.Like(ctx, snap.Track.ID); err != nil {
		return err
	}
	r.writePlain("♥ Saved %s\n", snap.Track.Name)
	return nil
}

// PlayerDevices lists Spotify Connect devices.
func (r *Runner) PlayerDevices(ctx context.Context, cmd *cli.Command) error {
	s, err := r.authed(ctx)
	if err != nil {
		return err
	}
	devices, err := s.Client.Devices(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(devices, cmd.Bool("pretty"))
	}
	if len(devices) == 0 {
		r.writePlain("No devices found. Open Spotify on a device first.\n")
		return nil
	}
	formatter.Devices(r.output, devices)
	return nil
}

// currentSnapshot runs one poll so the session's snapshot reflects the remote player.
func (r *Runner) currentSnapshot(ctx context.Context, s *player.Session) (models.Snapshot, error) {
	if err := s.Poller.Poll(ctx); err != nil {
		return models.Snapshot{}, err
	}
	return s.Poller.Snapshot(), nil
}

func intArg(cmd *cli.Command, name string) (int, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", shared.ErrInvalidArgument, name, arg)
	}
	return n, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
