package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jshsmth/glitch-markets-sub000/internal/platform/observability"
)

type fakeProvider struct {
	name  string
	calls int32
	fn    func(ctx context.Context) error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Warmup(ctx context.Context) error {
	atomic.AddInt32(&p.calls, 1)
	if p.fn != nil {
		return p.fn(ctx)
	}
	return nil
}

func newTestWarmer(config WarmupConfig) *Warmer {
	return NewWarmer(observability.NewLogger("error", "text"), config)
}

// TestWarmerRunsAllProviders verifies every registered provider warms once
func TestWarmerRunsAllProviders(t *testing.T) {
	w := newTestWarmer(DefaultWarmupConfig())

	providers := []*fakeProvider{
		{name: "markets"},
		{name: "leagues"},
		{name: "series"},
	}
	for _, p := range providers {
		w.RegisterProvider(p)
	}

	results := w.Warmup(context.Background())

	if results.HasErrors() {
		t.Errorf("Expected clean warmup, got %d errors", results.Errors)
	}
	if len(results.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results.Results))
	}
	for i, p := range providers {
		if got := atomic.LoadInt32(&p.calls); got != 1 {
			t.Errorf("Provider %s: expected 1 warmup call, got %d", p.name, got)
		}
		if results.Results[i].Provider != p.name {
			t.Errorf("Expected result %d for %s, got %s", i, p.name, results.Results[i].Provider)
		}
	}

	t.Log("✓ All providers warmed exactly once")
}

// TestWarmerContinuesOnError verifies one failure does not stop the rest
func TestWarmerContinuesOnError(t *testing.T) {
	w := newTestWarmer(WarmupConfig{
		Timeout:         5 * time.Second,
		Concurrency:     1,
		ContinueOnError: true,
	})

	boom := errors.New("upstream unavailable")
	ok1 := &fakeProvider{name: "markets"}
	bad := &fakeProvider{name: "events", fn: func(ctx context.Context) error { return boom }}
	ok2 := &fakeProvider{name: "series"}
	w.RegisterProvider(ok1)
	w.RegisterProvider(bad)
	w.RegisterProvider(ok2)

	results := w.Warmup(context.Background())

	if results.Errors != 1 {
		t.Errorf("Expected 1 error, got %d", results.Errors)
	}
	if !errors.Is(results.Results[1].Err, boom) {
		t.Errorf("Expected provider error, got %v", results.Results[1].Err)
	}
	if got := atomic.LoadInt32(&ok2.calls); got != 1 {
		t.Errorf("Expected provider after the failure to run, got %d calls", got)
	}

	t.Log("✓ Warmup continued past a failing provider")
}

// TestWarmerStopsOnError verifies remaining providers are skipped when
// ContinueOnError is off
func TestWarmerStopsOnError(t *testing.T) {
	w := newTestWarmer(WarmupConfig{
		Timeout:         5 * time.Second,
		Concurrency:     1,
		ContinueOnError: false,
	})

	boom := errors.New("upstream unavailable")
	first := &fakeProvider{name: "markets"}
	bad := &fakeProvider{name: "events", fn: func(ctx context.Context) error { return boom }}
	skipped := &fakeProvider{name: "series"}
	w.RegisterProvider(first)
	w.RegisterProvider(bad)
	w.RegisterProvider(skipped)

	results := w.Warmup(context.Background())

	if got := atomic.LoadInt32(&skipped.calls); got != 0 {
		t.Errorf("Expected provider after the failure to be skipped, got %d calls", got)
	}
	if !errors.Is(results.Results[1].Err, boom) {
		t.Errorf("Expected provider error, got %v", results.Results[1].Err)
	}
	if !errors.Is(results.Results[2].Err, context.Canceled) {
		t.Errorf("Expected skipped provider to report cancellation, got %v", results.Results[2].Err)
	}
	if results.Errors != 2 {
		t.Errorf("Expected 2 errors (failed + skipped), got %d", results.Errors)
	}

	t.Log("✓ Failure halted the remaining providers")
}

// TestWarmerTimeout verifies the run is bounded by the configured timeout
func TestWarmerTimeout(t *testing.T) {
	w := newTestWarmer(WarmupConfig{
		Timeout:         30 * time.Millisecond,
		Concurrency:     2,
		ContinueOnError: true,
	})

	slow := &fakeProvider{name: "slow", fn: func(ctx context.Context) error {
		select {
		case <-time.After(500 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}}
	w.RegisterProvider(slow)

	start := time.Now()
	results := w.Warmup(context.Background())

	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("Expected warmup bounded by timeout, took %v", elapsed)
	}
	if !errors.Is(results.Results[0].Err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", results.Results[0].Err)
	}

	t.Log("✓ Timeout bounded the warmup run")
}

// TestWarmerNoProviders verifies an empty warmer is a no-op
func TestWarmerNoProviders(t *testing.T) {
	w := newTestWarmer(DefaultWarmupConfig())

	results := w.Warmup(context.Background())

	if len(results.Results) != 0 {
		t.Errorf("Expected no results, got %d", len(results.Results))
	}
	if results.HasErrors() {
		t.Errorf("Expected no errors, got %d", results.Errors)
	}

	t.Log("✓ Empty warmer completes immediately")
}
