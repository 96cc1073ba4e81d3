package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/blueprintdash/blueprintdash/internal/metrics"
	"github.com/blueprintdash/blueprintdash/pkg/types"
)

// DefaultLogTag tags fetch failures in the log.
const DefaultLogTag = "poller.blueprints"

// Update is one delivery on a Subscription. Exactly one of Blueprints and Err
// is meaningful; an Update with a non-nil Err is the last one before the
// channel closes.
type Update struct {
	// Blueprints is shared by every subscriber of the tick; treat it as
	// read-only.
	Blueprints []types.Blueprint
	Err        error

	// Tick counts from 0 for each run of the loop.
	Tick uint64
	At   time.Time
}

// Subscription is one attached consumer. C buffers a single Update; an
// unread Update is replaced by a newer one.
type Subscription struct {
	C <-chan Update

	ch chan Update
	p  *Poller
}

// Unsubscribe detaches s and closes C. Detaching the last subscription stops
// the loop and cancels any in-flight fetch. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.p.unsubscribe(s)
}

// Status is a point-in-time view of the poller.
type Status struct {
	Running     bool
	Subscribers int
	LastSuccess time.Time
	LastError   string
	LastErrorAt time.Time
}

// ticker is the subset of *time.Ticker the loop uses.
type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) ticker { return realTicker{time.NewTicker(d)} }

// Option configures a Poller.
type Option func(*Poller)

// WithReporter sets the Reporter that receives fetch failures.
func WithReporter(r Reporter) Option {
	return func(p *Poller) { p.reporter = r }
}

// WithLogTag sets the tag attached to logged fetch failures.
func WithLogTag(tag string) Option {
	return func(p *Poller) { p.tag = tag }
}

// Poller runs the shared fetch loop. It is safe for concurrent use.
type Poller struct {
	fetcher   Fetcher
	interval  time.Duration
	reporter  Reporter
	tag       string
	newTicker func(time.Duration) ticker
	now       func() time.Time

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	gen    uint64             // incremented on every loop start
	stop   context.CancelFunc // nil while no loop is running
	status Status
}

// New returns a Poller that calls f once per interval while subscribed.
func New(f Fetcher, interval time.Duration, opts ...Option) *Poller {
	p := &Poller{
		fetcher:   f,
		interval:  interval,
		reporter:  discardReporter{},
		tag:       DefaultLogTag,
		newTicker: newRealTicker,
		now:       time.Now,
		subs:      make(map[*Subscription]struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Subscribe attaches a new consumer, starting the loop if it is idle.
func (p *Poller) Subscribe() *Subscription {
	ch := make(chan Update, 1)
	s := &Subscription{C: ch, ch: ch, p: p}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs[s] = struct{}{}
	if p.stop == nil {
		p.startLocked()
	}
	metrics.SetSubscribers(len(p.subs))
	return s
}

// Status returns the current loop state.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.status
	st.Running = p.stop != nil
	st.Subscribers = len(p.subs)
	return st
}

// Close detaches every subscription and stops the loop. Subscribe may be
// called again afterwards.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for s := range p.subs {
		close(s.ch)
		delete(p.subs, s)
	}
	p.stopLocked()
	metrics.SetSubscribers(0)
}

func (p *Poller) unsubscribe(s *Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subs[s]; !ok {
		return
	}
	delete(p.subs, s)
	close(s.ch)
	if len(p.subs) == 0 {
		p.stopLocked()
	}
	metrics.SetSubscribers(len(p.subs))
}

func (p *Poller) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	p.gen++
	p.stop = cancel
	metrics.SetRunning(true)
	slog.Debug("poller: started", "tag", p.tag, "interval", p.interval)
	go p.run(ctx, p.gen)
}

func (p *Poller) stopLocked() {
	if p.stop == nil {
		return
	}
	p.stop()
	p.stop = nil
	metrics.SetRunning(false)
	slog.Debug("poller: stopped", "tag", p.tag)
}

// currentLocked reports whether gen identifies the running loop.
func (p *Poller) currentLocked(gen uint64) bool {
	return p.stop != nil && p.gen == gen
}

type fetchResult struct {
	tick uint64
	bps  []types.Blueprint
	err  error
	took time.Duration
}

// run is the loop body for one generation. It returns when ctx is cancelled
// or a fetch fails.
func (p *Poller) run(ctx context.Context, gen uint64) {
	t := p.newTicker(p.interval)
	defer t.Stop()

	results := make(chan fetchResult)
	cancelFetch := context.CancelFunc(func() {})
	defer func() { cancelFetch() }()

	var (
		next    uint64 // tick number of the next launch
		current uint64 // tick number of the in-flight fetch
		busy    bool
	)

	launch := func() {
		if busy {
			cancelFetch()
			metrics.RecordTick(metrics.TickSuperseded, 0)
			slog.Debug("poller: tick superseded in-flight fetch", "tag", p.tag, "tick", current)
		}
		fctx, cancel := context.WithCancel(ctx)
		cancelFetch = cancel
		current, busy = next, true
		next++

		go func(n uint64) {
			start := p.now()
			bps, err := p.fetcher.Fetch(fctx)
			r := fetchResult{tick: n, bps: bps, err: err, took: p.now().Sub(start)}
			select {
			case results <- r:
			case <-ctx.Done():
			}
		}(current)
	}

	launch() // tick 0 fires without waiting for the ticker

	for {
		select {
		case <-ctx.Done():
			return

		case <-t.C():
			launch()

		case r := <-results:
			if !busy || r.tick != current {
				continue // superseded
			}
			busy = false
			cancelFetch()

			if r.err != nil {
				metrics.RecordTick(metrics.TickError, r.took)
				p.fail(gen, r)
				return
			}
			metrics.RecordTick(metrics.TickOK, r.took)
			metrics.SetBlueprints(r.bps)
			p.publish(gen, Update{Blueprints: r.bps, Tick: r.tick, At: p.now()})
		}
	}
}

// publish offers u to every attached subscription.
func (p *Poller) publish(gen uint64, u Update) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.currentLocked(gen) {
		return
	}
	p.status.LastSuccess = u.At
	for s := range p.subs {
		offer(s.ch, u)
	}
}

// fail detaches every subscription, stops the loop, reports the error once
// and then delivers it to the detached subscriptions.
func (p *Poller) fail(gen uint64, r fetchResult) {
	p.mu.Lock()
	if !p.currentLocked(gen) {
		p.mu.Unlock()
		return
	}
	detached := make([]*Subscription, 0, len(p.subs))
	for s := range p.subs {
		detached = append(detached, s)
		delete(p.subs, s)
	}
	p.stopLocked()
	now := p.now()
	p.status.LastError = r.err.Error()
	p.status.LastErrorAt = now
	metrics.SetSubscribers(0)
	p.mu.Unlock()

	HandleError(p.tag, r.err, p.reporter)

	u := Update{Err: r.err, Tick: r.tick, At: now}
	for _, s := range detached {
		offer(s.ch, u)
		close(s.ch)
	}
}

// offer delivers u without blocking, replacing an unread Update.
func offer(ch chan Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- u:
	default:
	}
}
