package player

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aerox/internal/models"
	"github.com/desertthunder/aerox/internal/shared"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 3 * time.Second

// SnapshotSource fetches remote playback state. [services.SpotifyClient] implements it.
type SnapshotSource interface {
	CurrentPlayback(ctx context.Context) (*models.Snapshot, bool, error)
	IsLiked(ctx context.Context, trackID string) (bool, error)
}

// Poller keeps the local playback [models.Snapshot] in sync with the remote player.
//
// It ticks on a fixed interval only while the [TokenStore] holds a token and stops itself as soon as the
// token is cleared. A tick that finds the previous one still in flight is skipped. Every successful
// poll replaces the snapshot wholesale; optimistic writes from the [Dispatcher] and reconciliation
// polls race with it under a last-write-wins policy.
type Poller struct {
	source   SnapshotSource
	tokens   *TokenStore
	interval time.Duration
	logger   *log.Logger

	mu       sync.RWMutex
	snapshot models.Snapshot
	updates  chan models.Snapshot

	inflight atomic.Bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a stopped [Poller].
func NewPoller(source SnapshotSource, tokens *TokenStore, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		source:   source,
		tokens:   tokens,
		interval: interval,
		logger:   orDefault(logger),
		updates:  make(chan models.Snapshot, 1),
	}
}

// Start begins polling immediately and then on every interval until ctx is done, [Poller.Stop] is
// called, or the token is cleared. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.running() {
		return nil
	}

	presence, unsubscribe := p.tokens.Subscribe()
	if _, ok := p.tokens.Get(); !ok {
		unsubscribe()
		return shared.ErrNotAuthenticated
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done

	go func() {
		defer close(done)
		defer unsubscribe()
		defer cancel()
		p.run(runCtx, presence)
	}()

	p.logger.Debug("poller started", "interval", p.interval)
	return nil
}

// Stop tears the polling timer down and waits for an in-flight tick to finish.
func (p *Poller) Stop() {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel, p.done = nil, nil
	p.logger.Debug("poller stopped")
}

// Running reports whether the polling loop is active.
func (p *Poller) Running() bool {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	return p.running()
}

func (p *Poller) running() bool {
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Poller) run(ctx context.Context, presence <-chan bool) {
	var wg sync.WaitGroup
	defer wg.Wait()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	tick := func() {
		if !p.inflight.CompareAndSwap(false, true) {
			p.logger.Debug("skipping tick, previous poll still running")
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.inflight.Store(false)
			_ = p.Poll(ctx)
		}()
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case present := <-presence:
			if !present {
				p.logger.Info("token cleared, polling stopped")
				return
			}
		case <-ticker.C:
			if _, ok := p.tokens.Get(); !ok {
				return
			}
			tick()
		}
	}
}

// Poll performs a single fetch and applies it.
//
// A 204 or a response without a track leaves the snapshot unchanged. A track-bearing response is
// merged with the liked check and replaces the snapshot. Failures are logged, returned, and leave the
// previous snapshot in place. No request is made without a token.
func (p *Poller) Poll(ctx context.Context) error {
	if _, ok := p.tokens.Get(); !ok {
		return shared.ErrNotAuthenticated
	}

	snap, found, err := p.source.CurrentPlayback(ctx)
	if err != nil {
		p.logger.Warn("playback poll failed", "error", err)
		return err
	}
	if !found || snap == nil {
		p.logger.Debug("no playback to report")
		return nil
	}

	if snap.Track != nil {
		liked, err := p.source.IsLiked(ctx, snap.Track.ID)
		if err != nil {
			p.logger.Warn("liked check failed", "track", snap.Track.ID, "error", err)
			liked = p.likedFor(snap.Track.ID)
		}
		snap.Liked = liked
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.Set(*snap)
	return nil
}

// likedFor keeps the previous liked flag when the track is unchanged.
func (p *Poller) likedFor(trackID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot.Track != nil && p.snapshot.Track.ID == trackID && p.snapshot.Liked
}

// Snapshot returns the current snapshot.
func (p *Poller) Snapshot() models.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Set replaces the snapshot and publishes it.
func (p *Poller) Set(snap models.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot = snap
	p.publish(snap)
}

// Update applies fn to a copy of the snapshot, stores the result, and returns the previous value.
// The read and the write happen under one lock so a concurrent poll cannot interleave.
func (p *Poller) Update(fn func(s *models.Snapshot)) models.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.snapshot
	next := prev
	fn(&next)
	p.snapshot = next
	p.publish(next)
	return prev
}

// Updates delivers the latest snapshot after every write. Slow readers only see the newest value.
func (p *Poller) Updates() <-chan models.Snapshot {
	return p.updates
}

// publish must be called with mu held.
func (p *Poller) publish(snap models.Snapshot) {
	select {
	case <-p.updates:
	default:
	}
	select {
	case p.updates <- snap:
	default:
	}
}
