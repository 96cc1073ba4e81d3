package mirror

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/blueprintdash/blueprintdash/internal/poller"
	"github.com/blueprintdash/blueprintdash/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
)

var errClosed = errors.New("mirror: subscription closed")

// Source hands out poller subscriptions.
type Source interface {
	Subscribe() *poller.Subscription
}

// Sink receives every successful collection.
type Sink interface {
	Replace(bps []types.Blueprint)
}

// HealthSetter is told whether the mirror currently holds fresh data.
type HealthSetter interface {
	SetServing(serving bool)
}

// Mirror copies a poller's output into a Sink.
type Mirror struct {
	src    Source
	sink   Sink
	health HealthSetter

	after func(time.Duration) <-chan time.Time // injectable for tests
}

// New creates a Mirror. health may be nil.
func New(src Source, sink Sink, health HealthSetter) *Mirror {
	return &Mirror{
		src:    src,
		sink:   sink,
		health: health,
		after:  time.After,
	}
}

// Run subscribes and mirrors until ctx is cancelled, re-subscribing with
// backoff after every terminal failure.
func (m *Mirror) Run(ctx context.Context) {
	bo := newBackoff()

	for {
		if ctx.Err() != nil {
			return
		}

		err := m.consume(ctx, m.src.Subscribe(), bo)
		if ctx.Err() != nil {
			return
		}
		m.setServing(false)

		wait := bo.next()
		slog.Warn("mirror: subscription ended, will re-subscribe",
			"err", err,
			"retry_in", wait)
		select {
		case <-ctx.Done():
			return
		case <-m.after(wait):
		}
	}
}

// consume drains sub until it fails, closes, or ctx is cancelled.
func (m *Mirror) consume(ctx context.Context, sub *poller.Subscription, bo *backoff) error {
	for {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
			return ctx.Err()
		case u, ok := <-sub.C:
			if !ok {
				return errClosed
			}
			if u.Err != nil {
				return u.Err
			}
			m.sink.Replace(u.Blueprints)
			m.setServing(true)
			bo.reset()
			slog.Debug("mirror: collection stored", "tick", u.Tick, "count", len(u.Blueprints))
		}
	}
}

func (m *Mirror) setServing(serving bool) {
	if m.health != nil {
		m.health.SetServing(serving)
	}
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
