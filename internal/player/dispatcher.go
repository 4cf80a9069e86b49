package player

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aerox/internal/models"
	"github.com/desertthunder/aerox/internal/services"
	"github.com/desertthunder/aerox/internal/shared"
)

// DefaultReconcileDelay is how long after a successful command the snapshot is re-polled.
const DefaultReconcileDelay = 500 * time.Millisecond

// DispatcherOpts configures a [Dispatcher].
type DispatcherOpts struct {
	Player         services.Player
	Poller         *Poller
	Queue          *Queue
	Notifier       Notifier
	ReconcileDelay time.Duration
	Logger         *log.Logger
}

// SelectOpts controls how an explicitly chosen track is played.
type SelectOpts struct {
	// ClearContext drops the active playlist context and plays the track alone.
	ClearContext bool
}

// Dispatcher turns user gestures into remote commands.
//
// Toggles are applied to the local snapshot first and reverted if the remote call fails. Successful
// commands schedule a fire-once reconciliation poll; those timers belong to the dispatcher and are
// cancelled by [Dispatcher.CancelPending] and [Dispatcher.Close].
type Dispatcher struct {
	player   services.Player
	poller   *Poller
	queue    *Queue
	notifier Notifier
	delay    time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	active  *models.Playlist
	timers  map[*time.Timer]struct{}
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

// NewDispatcher creates a [Dispatcher]. A nil Notifier discards notifications.
func NewDispatcher(opts DispatcherOpts) *Dispatcher {
	if opts.ReconcileDelay <= 0 {
		opts.ReconcileDelay = DefaultReconcileDelay
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(Notification) {})
	}
	if opts.Queue == nil {
		opts.Queue = NewQueue()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		player:   opts.Player,
		poller:   opts.Poller,
		queue:    opts.Queue,
		notifier: opts.Notifier,
		delay:    opts.ReconcileDelay,
		logger:   orDefault(opts.Logger),
		timers:   make(map[*time.Timer]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Optimistic applies a local change, issues the remote call, and applies revert if the call fails.
// On success a reconciliation poll is scheduled.
func (d *Dispatcher) Optimistic(ctx context.Context, apply func(*models.Snapshot), call func(context.Context) error, revert func(*models.Snapshot)) error {
	d.poller.Update(apply)
	if err := call(ctx); err != nil {
		d.poller.Update(revert)
		return err
	}
	d.scheduleReconcile()
	return nil
}

// TogglePlay pauses when playing and resumes otherwise. Failure reverts and notifies.
func (d *Dispatcher) TogglePlay(ctx context.Context) error {
	playing := d.poller.Snapshot().IsPlaying
	err := d.Optimistic(ctx,
		func(s *models.Snapshot) { s.IsPlaying = !playing },
		func(ctx context.Context) error {
			if playing {
				return d.player.Pause(ctx)
			}
			return d.player.Play(ctx, nil)
		},
		func(s *models.Snapshot) { s.IsPlaying = playing },
	)
	if err != nil {
		err = classify(err)
		d.logger.Warn("play/pause failed", "error", err)
		if !signedOut(err) {
			d.notifier.Notify(playbackError(err))
		}
	}
	return err
}

// ToggleShuffle flips shuffle. Failure reverts silently.
func (d *Dispatcher) ToggleShuffle(ctx context.Context) error {
	prev := d.poller.Snapshot().Shuffle
	err := d.Optimistic(ctx,
		func(s *models.Snapshot) { s.Shuffle = !prev },
		func(ctx context.Context) error { return d.player.Shuffle(ctx, !prev) },
		func(s *models.Snapshot) { s.Shuffle = prev },
	)
	if err != nil {
		d.logger.Warn("shuffle toggle failed", "error", err)
	}
	return err
}

// CycleRepeat advances repeat off, context, track, off. Failure reverts silently.
func (d *Dispatcher) CycleRepeat(ctx context.Context) error {
	prev := d.poller.Snapshot().Repeat
	next := prev.Next()
	err := d.Optimistic(ctx,
		func(s *models.Snapshot) { s.Repeat = next },
		func(ctx context.Context) error { return d.player.Repeat(ctx, next) },
		func(s *models.Snapshot) { s.Repeat = prev },
	)
	if err != nil {
		d.logger.Warn("repeat cycle failed", "error", err)
	}
	return err
}

// ToggleLike saves or removes the current track. Failure reverts silently.
func (d *Dispatcher) ToggleLike(ctx context.Context) error {
	snap := d.poller.Snapshot()
	if snap.Track == nil {
		return fmt.Errorf("%w: nothing is playing", shared.ErrInvalidInput)
	}

	id, prev := snap.Track.ID, snap.Liked
	err := d.Optimistic(ctx,
		func(s *models.Snapshot) { s.Liked = !prev },
		func(ctx context.Context) error {
			if prev {
				return d.player.Unlike(ctx, id)
			}
			return d.player.Like(ctx, id)
		},
		func(s *models.Snapshot) { s.Liked = prev },
	)
	if err != nil {
		d.logger.Warn("like toggle failed", "track", id, "error", err)
	}
	return err
}

// Next skips forward in the remote context. When that fails the first queued track is dequeued and
// played; with an empty queue the failure is reported as [shared.ErrNoContext].
func (d *Dispatcher) Next(ctx context.Context) error {
	err := d.player.Next(ctx)
	if err == nil {
		d.scheduleReconcile()
		return nil
	}
	if signedOut(err) {
		return err
	}
	d.logger.Warn("remote next failed, trying local queue", "error", err)

	if _, ok := d.queue.PeekFirst(); !ok {
		err = fmt.Errorf("%w: %w", shared.ErrNoContext, err)
		d.notifier.Notify(skipError(err))
		return err
	}

	track, derr := d.queue.Dequeue(0)
	if derr != nil {
		d.notifier.Notify(skipError(derr))
		return derr
	}
	d.notifier.Notify(queuedNotice(track.Name + " - " + track.ArtistNames()))
	return d.SelectTrack(ctx, track, SelectOpts{ClearContext: true})
}

// Previous skips back in the remote context. Failure notifies, there is no local fallback.
func (d *Dispatcher) Previous(ctx context.Context) error {
	if err := d.player.Previous(ctx); err != nil {
		err = classify(err)
		d.logger.Warn("previous failed", "error", err)
		if !signedOut(err) {
			d.notifier.Notify(previousError(err))
		}
		return err
	}
	d.scheduleReconcile()
	return nil
}

// Seek moves playback to positionMS. Failures are logged only.
func (d *Dispatcher) Seek(ctx context.Context, positionMS int) error {
	err := d.player.Seek(ctx, positionMS)
	if err != nil {
		d.logger.Warn("seek failed", "position_ms", positionMS, "error", err)
	}
	return err
}

// Volume sets the device volume. Failures are logged only.
func (d *Dispatcher) Volume(ctx context.Context, percent int) error {
	err := d.player.Volume(ctx, percent)
	if err != nil {
		d.logger.Warn("volume change failed", "percent", percent, "error", err)
	}
	return err
}

// SelectTrack plays track. With an active playlist context and no ClearContext the play request is
// scoped to the playlist with an offset naming track, so remote "next" keeps walking it.
func (d *Dispatcher) SelectTrack(ctx context.Context, track models.Track, opts SelectOpts) error {
	if track.ID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	if opts.ClearContext {
		d.ClearContext()
	}

	var err error
	if playlist := d.Context(); playlist != nil {
		err = d.player.PlayInContext(ctx, *playlist, services.TrackOffset(track))
	} else {
		err = d.player.PlayTrack(ctx, track)
	}

	if err != nil {
		err = classify(err)
		d.logger.Warn("track selection failed", "track", track.ID, "error", err)
		if !signedOut(err) {
			d.notifier.Notify(playbackError(err))
		}
		return err
	}

	d.scheduleReconcile()
	return nil
}

// SetContext marks playlist as the active playback context.
func (d *Dispatcher) SetContext(playlist *models.Playlist) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if playlist == nil {
		d.active = nil
		return
	}
	p := *playlist
	d.active = &p
}

// ClearContext drops the active playback context.
func (d *Dispatcher) ClearContext() {
	d.SetContext(nil)
}

// Context returns the active playlist context, nil when none.
func (d *Dispatcher) Context() *models.Playlist {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil
	}
	p := *d.active
	return &p
}

// Queue returns the local queue consulted by [Dispatcher.Next].
func (d *Dispatcher) Queue() *Queue {
	return d.queue
}

// scheduleReconcile arms a fire-once poll after the reconcile delay.
func (d *Dispatcher) scheduleReconcile() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	var timer *time.Timer
	d.pending.Add(1)
	timer = time.AfterFunc(d.delay, func() {
		defer d.pending.Done()

		d.mu.Lock()
		_, live := d.timers[timer]
		delete(d.timers, timer)
		ctx := d.ctx
		d.mu.Unlock()

		if !live {
			return
		}
		if err := d.poller.Poll(ctx); err != nil {
			d.logger.Debug("reconcile poll failed", "error", err)
		}
	})
	d.timers[timer] = struct{}{}
}

// CancelPending stops every scheduled reconciliation poll.
func (d *Dispatcher) CancelPending() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopTimers()
}

// stopTimers must be called with mu held.
func (d *Dispatcher) stopTimers() {
	for timer := range d.timers {
		if timer.Stop() {
			d.pending.Done()
		}
		delete(d.timers, timer)
	}
}

// Close cancels pending timers and any reconcile poll in flight. The dispatcher schedules nothing after Close.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.stopTimers()
	d.cancel()
	d.mu.Unlock()

	d.pending.Wait()
}

// signedOut reports whether err means the token is gone; the session surfaces that itself.
func signedOut(err error) bool {
	return errors.Is(err, shared.ErrUnauthorized) || errors.Is(err, shared.ErrNotAuthenticated)
}

// classify marks a 404 from a player endpoint as [shared.ErrNoActiveDevice].
func classify(err error) error {
	if shared.StatusOf(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %w", shared.ErrNoActiveDevice, err)
	}
	return err
}
