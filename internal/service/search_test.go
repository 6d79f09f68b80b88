package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const searchPayload = `{
	"markets": [
		{"id": "m1", "question": "Will BTC close above 100k?", "active": true, "volume": 1500},
		{"id": "m2", "question": "BTC ETF approval?", "closed": true, "volume": 9000}
	],
	"events": [
		{"id": "e1", "title": "BTC halving week", "active": true, "volume": 400},
		{"id": "e2", "title": "BTC conference", "closed": true, "volume": 800}
	],
	"tags": [
		{"id": "t1", "label": "crypto", "slug": "crypto"}
	]
}`

func TestSearch_FiltersBothBuckets(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/public-search" {
			t.Errorf("Expected /public-search, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "btc" {
			t.Errorf("Expected q=btc, got %q", got)
		}
		w.Write([]byte(searchPayload))
	}))
	defer server.Close()

	svc := NewSearchService(newTestRegistry(t, server.URL))
	ctx := context.Background()

	active := true
	result, err := svc.Search(ctx, SearchFilters{Q: "btc", Active: &active})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result == nil {
		t.Fatal("Expected a search result")
	}

	if len(result.Markets) != 1 || result.Markets[0].ID != "m1" {
		t.Errorf("Expected only the active market, got %+v", result.Markets)
	}
	if len(result.Events) != 1 || result.Events[0].ID != "e1" {
		t.Errorf("Expected only the active event, got %+v", result.Events)
	}
	// Tags carry no lifecycle flags and pass through untouched
	if len(result.Tags) != 1 || result.Tags[0].Label != "crypto" {
		t.Errorf("Expected tags to pass through, got %+v", result.Tags)
	}
}

func TestSearch_SortsBucketsIndependently(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPayload))
	}))
	defer server.Close()

	svc := NewSearchService(newTestRegistry(t, server.URL))

	result, err := svc.Search(context.Background(), SearchFilters{Q: "btc", SortBy: SortVolume})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if result.Markets[0].ID != "m2" || result.Markets[1].ID != "m1" {
		t.Errorf("Expected markets sorted by volume descending, got %+v", result.Markets)
	}
	if result.Events[0].ID != "e2" || result.Events[1].ID != "e1" {
		t.Errorf("Expected events sorted by volume descending, got %+v", result.Events)
	}
}

func TestSearch_CachesByQuery(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(searchPayload))
	}))
	defer server.Close()

	svc := NewSearchService(newTestRegistry(t, server.URL))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Search(ctx, SearchFilters{Q: "btc"}); err != nil {
			t.Fatalf("Search failed: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected repeated query to hit cache, got %d calls", got)
	}

	if _, err := svc.Search(ctx, SearchFilters{Q: "eth"}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected new query to miss, got %d calls", got)
	}
}

func TestSearch_RequiresQuery(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	svc := NewSearchService(newTestRegistry(t, server.URL))

	if _, err := svc.Search(context.Background(), SearchFilters{}); err == nil {
		t.Fatal("Expected validation error for empty query")
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("Expected no upstream call, got %d", got)
	}
}

func TestSearch_NoCoalescingWhenCacheDisabled(t *testing.T) {
	var calls int32
	start := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(searchPayload))
	}))
	defer server.Close()

	reg := newTestRegistry(t, server.URL)
	reg.cacheEnabled = false
	svc := NewSearchService(reg)
	ctx := context.Background()

	const n = 4
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := svc.Search(ctx, SearchFilters{Q: "btc"}); err != nil {
				t.Errorf("Search failed: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	// With caching off every caller owns its fetch; sharing a settlement
	// would hand one caller's buckets to the rest.
	if got := atomic.LoadInt32(&calls); got != n {
		t.Errorf("Expected %d independent fetches, got %d", n, got)
	}
}
