package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestFlightExecutesProducerOnce verifies N concurrent callers share one producer
func TestFlightExecutesProducerOnce(t *testing.T) {
	f := NewFlight()
	var calls int32

	producer := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return "payload", nil
	}

	const callers = 10
	results := make([]any, callers)
	errs := make([]error, callers)
	shared := make([]bool, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], shared[i], errs[i] = f.Do(context.Background(), "markets:{}", producer)
		}(i)
	}

	done := make(chan bool)
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Coalesced callers timed out")
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected producer to run once, ran %d times", got)
	}
	sharedCount := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("Caller %d got error: %v", i, errs[i])
		}
		if results[i] != "payload" {
			t.Errorf("Caller %d got %v", i, results[i])
		}
		if shared[i] {
			sharedCount++
		}
	}
	if sharedCount == 0 {
		t.Error("Expected at least one caller to report a shared result")
	}

	t.Log("✓ Producer executed exactly once for concurrent callers")
}

// TestFlightErrorSettlesAllCallers verifies failures propagate to every caller
func TestFlightErrorSettlesAllCallers(t *testing.T) {
	f := NewFlight()
	var calls int32
	producerErr := errors.New("upstream exploded")

	producer := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(30 * time.Millisecond)
		return nil, producerErr
	}

	const callers = 5
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.Do(context.Background(), "events:{}", producer)
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected producer to run once, ran %d times", got)
	}
	for i, err := range errs {
		if !errors.Is(err, producerErr) {
			t.Errorf("Caller %d: expected producer error, got %v", i, err)
		}
	}

	t.Log("✓ Same error delivered to every joined caller")
}

// TestFlightKeyFreeAfterSettlement verifies a fresh flight after completion
func TestFlightKeyFreeAfterSettlement(t *testing.T) {
	f := NewFlight()
	var calls int32

	producer := func(ctx context.Context) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	first, _, err := f.Do(context.Background(), "series:{}", producer)
	if err != nil {
		t.Fatalf("First flight failed: %v", err)
	}
	second, _, err := f.Do(context.Background(), "series:{}", producer)
	if err != nil {
		t.Fatalf("Second flight failed: %v", err)
	}

	if first == second {
		t.Error("Expected a fresh producer run after settlement")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 producer runs, got %d", got)
	}

	t.Log("✓ Key eligible for a fresh flight immediately after settlement")
}

// TestFlightKeysAreIndependent verifies no cross-key coalescing
func TestFlightKeysAreIndependent(t *testing.T) {
	f := NewFlight()
	var calls int32

	producer := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return nil, nil
	}

	var wg sync.WaitGroup
	for _, key := range []string{`markets:{"limit":10}`, `markets:{"limit":20}`} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, _, _ = f.Do(context.Background(), key, producer)
		}(key)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected one producer per key, got %d total", got)
	}

	t.Log("✓ Distinct keys coalesce independently")
}

// TestFlightAbandonedCallerDoesNotCancelFlight verifies settlement survives
// an abandoning caller
func TestFlightAbandonedCallerDoesNotCancelFlight(t *testing.T) {
	f := NewFlight()
	var calls int32

	producer := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-time.After(80 * time.Millisecond):
			return "late payload", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	shortCtx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var abandonedErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, abandonedErr = f.Do(shortCtx, "markets:slug:{}", producer)
	}()

	// Join the same flight with a patient caller once it is registered
	for atomic.LoadInt32(&calls) == 0 {
		time.Sleep(time.Millisecond)
	}
	val, _, err := f.Do(context.Background(), "markets:slug:{}", producer)
	wg.Wait()

	if !errors.Is(abandonedErr, context.DeadlineExceeded) {
		t.Errorf("Abandoning caller: expected DeadlineExceeded, got %v", abandonedErr)
	}
	if err != nil {
		t.Errorf("Patient caller: expected settlement, got %v", err)
	}
	if val != "late payload" {
		t.Errorf("Patient caller: expected late payload, got %v", val)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected a single shared producer, got %d", got)
	}

	t.Log("✓ Abandoning caller gets its context error; peers still settle")
}

// TestFlightForget verifies Forget starts a fresh producer
func TestFlightForget(t *testing.T) {
	f := NewFlight()
	var calls int32
	release := make(chan struct{})

	producer := func(ctx context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			<-release
		}
		return n, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, _ = f.Do(context.Background(), "comments:{}", producer)
	}()

	// Wait for the first producer to be registered
	for atomic.LoadInt32(&calls) == 0 {
		time.Sleep(time.Millisecond)
	}

	f.Forget("comments:{}")

	val, _, err := f.Do(context.Background(), "comments:{}", producer)
	close(release)
	wg.Wait()

	if err != nil {
		t.Fatalf("Post-forget flight failed: %v", err)
	}
	if val != int32(2) {
		t.Errorf("Expected a fresh producer after Forget, got run %v", val)
	}

	t.Log("✓ Forget detaches the pending flight")
}
