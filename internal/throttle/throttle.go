// Package throttle serializes and paces outbound calls to upstream HTTP
// sources behind a single shared FIFO gate.
package throttle

import (
	"context"
	"errors"
	"sync"
	"time"

	"solana-wallet-sentinel/internal/observability"
)

// ErrUpstreamTimeout is returned when a released call exceeds the per-call
// timeout. The gate advances regardless.
var ErrUpstreamTimeout = errors.New("upstream call timed out")

// Default configuration values.
const (
	DefaultMinSpacing  = 1 * time.Second
	DefaultCallTimeout = 2 * time.Second
	defaultQueueSize   = 256
)

// Gate is a global FIFO throttle shared by every upstream caller.
// Submissions are queued and released strictly in submission order by a
// single pacer goroutine, with a minimum spacing between releases and an
// optional rolling per-minute quota.
type Gate struct {
	minSpacing  time.Duration
	callTimeout time.Duration
	perMinute   int // 0 disables the rolling quota

	queue     chan *ticket
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type ticket struct {
	ctx      context.Context
	released chan struct{}
}

// Option configures a Gate.
type Option func(*Gate)

// WithMinSpacing sets the minimum interval between two released calls.
func WithMinSpacing(d time.Duration) Option {
	return func(g *Gate) {
		g.minSpacing = d
	}
}

// WithCallTimeout sets the per-call timeout applied to released calls.
func WithCallTimeout(d time.Duration) Option {
	return func(g *Gate) {
		g.callTimeout = d
	}
}

// WithPerMinuteQuota caps releases within any rolling 60s window.
func WithPerMinuteQuota(n int) Option {
	return func(g *Gate) {
		g.perMinute = n
	}
}

// NewGate creates a throttle gate and starts its pacer.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		minSpacing:  DefaultMinSpacing,
		callTimeout: DefaultCallTimeout,
		queue:       make(chan *ticket, defaultQueueSize),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.wg.Add(1)
	go g.pace()

	return g
}

// Close stops the pacer. Queued callers are released without pacing so
// nothing blocks forever during shutdown.
func (g *Gate) Close() {
	g.closeOnce.Do(func() {
		close(g.done)
	})
	g.wg.Wait()
}

// Do queues the caller, waits for its release and then runs fn under the
// per-call timeout. A timed-out fn returns ErrUpstreamTimeout; its outcome
// never delays later callers.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t := &ticket{ctx: ctx, released: make(chan struct{})}
	enqueued := time.Now()

	select {
	case g.queue <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-g.done:
		return errors.New("throttle gate closed")
	}

	select {
	case <-t.released:
		observability.DefaultMetrics.ThrottleWait.Observe(time.Since(enqueued).Seconds())
	case <-ctx.Done():
		// The pacer will observe the cancelled context and skip the slot.
		return ctx.Err()
	}

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- fn(callCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return ErrUpstreamTimeout
		}
		return callCtx.Err()
	}
}

// pace drains the queue in order, enforcing spacing and quota per release.
func (g *Gate) pace() {
	defer g.wg.Done()

	var lastRelease time.Time
	var releases []time.Time // release times within the rolling minute

	for {
		var t *ticket
		select {
		case t = <-g.queue:
		case <-g.done:
			g.drain()
			return
		}

		// Abandoned callers consume no pacing slot.
		select {
		case <-t.ctx.Done():
			continue
		default:
		}

		if wait := nextWait(lastRelease, releases, g.minSpacing, g.perMinute); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-g.done:
				timer.Stop()
				close(t.released)
				g.drain()
				return
			}
		}

		now := time.Now()
		lastRelease = now
		if g.perMinute > 0 {
			releases = trimWindow(append(releases, now), now)
		}
		close(t.released)
	}
}

// drain releases everything still queued, without pacing.
func (g *Gate) drain() {
	for {
		select {
		case t := <-g.queue:
			close(t.released)
		default:
			return
		}
	}
}

// nextWait computes how long the pacer must sleep before the next release.
func nextWait(lastRelease time.Time, releases []time.Time, minSpacing time.Duration, perMinute int) time.Duration {
	now := time.Now()
	wait := time.Duration(0)

	if !lastRelease.IsZero() {
		if since := now.Sub(lastRelease); since < minSpacing {
			wait = minSpacing - since
		}
	}

	if perMinute > 0 {
		trimmed := trimWindow(releases, now)
		if len(trimmed) >= perMinute {
			if quotaWait := trimmed[0].Sub(now.Add(-time.Minute)); quotaWait > wait {
				wait = quotaWait
			}
		}
	}

	return wait
}

// trimWindow drops release timestamps older than the rolling minute.
func trimWindow(releases []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-time.Minute)
	trimmed := releases[:0]
	for _, t := range releases {
		if t.After(cutoff) {
			trimmed = append(trimmed, t)
		}
	}
	return trimmed
}
