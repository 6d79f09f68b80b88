package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Flight coalesces concurrent cache misses. While a producer for a
// key is in flight every additional caller joins it and receives the
// same settlement, value or error, and the producer runs exactly
// once. The key leaves the pending table before settlement is
// delivered, so a caller arriving afterwards starts a fresh flight.
// One Flight is shared process-wide; keys are full cache keys, which
// keeps deduplication global across façades.
type Flight struct {
	group singleflight.Group
}

// NewFlight creates an empty pending table.
func NewFlight() *Flight {
	return &Flight{}
}

// Do executes fn once per key across concurrent callers. shared
// reports whether the result was delivered to more than one caller.
//
// A caller whose context ends while waiting gets its context error;
// the flight itself is not cancelled and still settles every joined
// peer. The producer therefore runs on a context detached from the
// triggering caller, keeping its values for tracing.
func (f *Flight) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error) {
	ch := f.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Forget drops any in-flight registration for key so the next caller
// starts a fresh producer.
func (f *Flight) Forget(key string) {
	f.group.Forget(key)
}

// Reset drops every pending flight. Intended for test isolation between
// cases; must not race with in-flight producers.
func (f *Flight) Reset() {
	f.group = singleflight.Group{}
}
