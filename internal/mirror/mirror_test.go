package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blueprintdash/blueprintdash/internal/poller"
	"github.com/blueprintdash/blueprintdash/internal/store"
	"github.com/blueprintdash/blueprintdash/pkg/types"
)

// healthLog records every SetServing call.
type healthLog struct {
	mu  sync.Mutex
	log []bool
}

func (h *healthLog) SetServing(s bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log = append(h.log, s)
}

func (h *healthLog) Calls() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.log...)
}

// scriptedFetcher returns results[i] on the i-th call and blocks afterwards.
type scriptedFetcher struct {
	mu      sync.Mutex
	calls   int
	results []error
}

func (f *scriptedFetcher) Fetch(ctx context.Context) ([]types.Blueprint, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.mu.Unlock()

	if i >= len(f.results) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.results[i]; err != nil {
		return nil, err
	}
	return []types.Blueprint{{ID: "bp-1", Name: "web"}}, nil
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMirror_StoresCollection(t *testing.T) {
	p := poller.New(&scriptedFetcher{results: []error{nil}}, time.Hour)
	st := store.New(time.Minute)
	h := &healthLog{}
	m := New(p, st, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	eventually(t, "store populated", func() bool { return st.Count() == 1 })
	if _, ok := st.Get("bp-1"); !ok {
		t.Error("Get(bp-1): not found")
	}
	eventually(t, "serving", func() bool {
		c := h.Calls()
		return len(c) > 0 && c[len(c)-1]
	})

	cancel()
	<-done
	eventually(t, "poller idle", func() bool { return !p.Status().Running })
}

func TestMirror_ResubscribesAfterFailure(t *testing.T) {
	f := &scriptedFetcher{results: []error{errors.New("down"), nil}}
	p := poller.New(f, time.Hour)
	st := store.New(time.Minute)
	h := &healthLog{}
	m := New(p, st, h)

	var mu sync.Mutex
	var waits []time.Duration
	m.after = func(d time.Duration) <-chan time.Time {
		mu.Lock()
		waits = append(waits, d)
		mu.Unlock()
		c := make(chan time.Time, 1)
		c <- time.Now()
		return c
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	eventually(t, "store populated after retry", func() bool { return st.Count() == 1 })
	if n := f.Calls(); n < 2 {
		t.Errorf("fetch calls: got %d, want >= 2", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(waits) != 1 {
		t.Fatalf("backoff waits: got %d, want 1", len(waits))
	}
	if waits[0] < 750*time.Millisecond || waits[0] > 1250*time.Millisecond {
		t.Errorf("first wait: got %v, want 1s ±25%%", waits[0])
	}

	calls := h.Calls()
	if len(calls) < 2 || calls[0] || !calls[len(calls)-1] {
		t.Errorf("health calls: got %v, want NOT_SERVING then SERVING", calls)
	}
}

func TestMirror_NilHealth(t *testing.T) {
	p := poller.New(&scriptedFetcher{results: []error{nil}}, time.Hour)
	st := store.New(time.Minute)
	m := New(p, st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	eventually(t, "store populated", func() bool { return st.Count() == 1 })
}

func TestBackoff_Resets(t *testing.T) {
	b := newBackoff()
	if first := b.next(); first > 2*time.Second {
		t.Errorf("first backoff too large: %v", first)
	}
	for i := 0; i < 10; i++ {
		b.next()
	}
	b.reset()
	if after := b.next(); after > 2*time.Second {
		t.Errorf("backoff after reset too large: %v", after)
	}
}

func TestBackoff_NeverExceedsMax(t *testing.T) {
	b := newBackoff()
	for i := 0; i < 50; i++ {
		// With jitter, max is backoffMax * 1.25.
		if d := b.next(); d > backoffMax*5/4 {
			t.Errorf("backoff[%d] = %v, exceeds 1.25×max", i, d)
		}
	}
}
