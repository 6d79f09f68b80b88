package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jshsmth/glitch-markets-sub000/internal/platform/cache"
	"github.com/jshsmth/glitch-markets-sub000/internal/platform/observability"
	"github.com/jshsmth/glitch-markets-sub000/internal/platform/resilience"
	"github.com/jshsmth/glitch-markets-sub000/internal/service"
	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

const marketsPayload = `[
	{"id": "m1", "question": "Will BTC close above 100k?", "slug": "btc-100k", "active": true, "volume": "1500.5"},
	{"id": "m2", "question": "Will ETH flip BTC?", "slug": "eth-flip", "active": true, "volume": 900}
]`

type gateway struct {
	api   *httptest.Server
	calls int32
}

// newTestGateway stands up the full stack: gateway server in front of
// a stubbed upstream, with retries and rate limiting neutralized.
func newTestGateway(t *testing.T, handler http.HandlerFunc) *gateway {
	t.Helper()

	g := &gateway{}

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&g.calls, 1)
		handler(w, r)
	}))
	t.Cleanup(up.Close)

	logger := observability.NewLogger("error", "text")

	client, err := upstream.New(upstream.Config{
		BaseURL:        up.URL,
		RateLimitRPM:   60000,
		RateLimitBurst: 100,
		Retry: resilience.RetryConfig{
			MaxAttempts: 1,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
		},
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("Failed to create upstream client: %v", err)
	}

	store := cache.NewMemoryCache(100)
	t.Cleanup(func() { store.Close() })

	registry := service.NewRegistry(service.RegistryConfig{
		Cache:        store,
		Flights:      cache.NewFlight(),
		Client:       client,
		Logger:       logger,
		CacheEnabled: true,
	})

	server := NewServer(ServerConfig{
		Registry:       registry,
		Logger:         logger,
		ServiceName:    "markets-gateway",
		ServiceVersion: "test",
	})

	g.api = httptest.NewServer(server.Handler())
	t.Cleanup(g.api.Close)

	return g
}

func (g *gateway) get(t *testing.T, path string, headers ...string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, g.api.URL+path, nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return resp, body
}

func (g *gateway) upstreamCalls() int32 {
	return atomic.LoadInt32(&g.calls)
}

func TestServer_Markets(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("Expected upstream path /markets, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("Expected limit=10 forwarded upstream, got %q", got)
		}
		w.Write([]byte(marketsPayload))
	})

	resp, body := g.get(t, "/markets?limit=10")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected a generated request id header")
	}

	var envelope struct {
		Data  []upstream.Market `json:"data"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if envelope.Count != 2 || len(envelope.Data) != 2 {
		t.Errorf("Expected 2 markets, got count=%d len=%d", envelope.Count, len(envelope.Data))
	}
	if envelope.Data[0].ID != "m1" {
		t.Errorf("Expected first market m1, got %s", envelope.Data[0].ID)
	}
}

func TestServer_PropagatesRequestID(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(marketsPayload))
	})

	resp, _ := g.get(t, "/markets", "X-Request-ID", "req-42")

	if got := resp.Header.Get("X-Request-ID"); got != "req-42" {
		t.Errorf("Expected caller request id to round-trip, got %q", got)
	}
}

func TestServer_CachesAcrossRequests(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(marketsPayload))
	})

	for i := 0; i < 3; i++ {
		resp, _ := g.get(t, "/markets?limit=10")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, resp.StatusCode)
		}
	}

	if got := g.upstreamCalls(); got != 1 {
		t.Errorf("Expected 1 upstream call across requests, got %d", got)
	}
}

func TestServer_NoCacheDirectiveBypasses(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(marketsPayload))
	})

	g.get(t, "/markets")
	g.get(t, "/markets", "Cache-Control", "no-cache")

	if got := g.upstreamCalls(); got != 2 {
		t.Errorf("Expected no-cache request to reach upstream, got %d calls", got)
	}
}

func TestServer_MarketByID_NotFound(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "not found"}`))
	})

	resp, body := g.get(t, "/markets/ghost")

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if errResp.Error != "market not found" || errResp.Status != http.StatusNotFound {
		t.Errorf("Unexpected error body: %+v", errResp)
	}
}

func TestServer_ValidationErrorsReturn400(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(marketsPayload))
	})

	tests := []struct {
		name string
		path string
	}{
		{"unknown sort field", "/markets?sort_by=price"},
		{"limit out of range", "/markets?limit=9999"},
		{"malformed limit", "/markets?limit=abc"},
		{"malformed bool", "/markets?active=maybe"},
		{"search without query", "/search"},
		{"bad comment parent", "/comments?parent_entity_type=user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := g.get(t, tt.path)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", resp.StatusCode)
			}
		})
	}

	if got := g.upstreamCalls(); got != 0 {
		t.Errorf("Expected no upstream traffic for invalid requests, got %d calls", got)
	}
}

func TestServer_UpstreamFailureReturns502(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`upstream down`))
	})

	resp, body := g.get(t, "/markets")

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", resp.StatusCode)
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if errResp.UpstreamStatus != http.StatusServiceUnavailable {
		t.Errorf("Expected upstream status 503 noted, got %d", errResp.UpstreamStatus)
	}
}

func TestServer_Search(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public-search" {
			t.Errorf("Expected /public-search, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"markets": [{"id": "m1", "question": "BTC?", "active": true}], "events": [], "tags": []}`))
	})

	resp, body := g.get(t, "/search?q=btc")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}

	var result upstream.SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if len(result.Markets) != 1 || result.Markets[0].ID != "m1" {
		t.Errorf("Unexpected search result: %+v", result)
	}
}

func TestServer_BuilderVolume(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/builders/volume/0xabc" {
			t.Errorf("Expected /builders/volume/0xabc, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("period"); got != "7d" {
			t.Errorf("Expected period=7d, got %q", got)
		}
		w.Write([]byte(`{"address": "0xabc", "period": "7d", "volume": 1234.5, "trades": 42}`))
	})

	resp, body := g.get(t, "/builders/volume/0xabc?period=7d")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}

	var volume upstream.BuilderVolume
	if err := json.Unmarshal(body, &volume); err != nil {
		t.Fatalf("Failed to decode volume: %v", err)
	}
	if volume.Address != "0xabc" || volume.Trades != 42 {
		t.Errorf("Unexpected volume payload: %+v", volume)
	}
}

func TestServer_EmptyListsSerializeAsArrays(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, body := g.get(t, "/events?q=nothing-matches-this")

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Count int             `json:"count"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if string(envelope.Data) != "[]" {
		t.Errorf("Expected data to be [], got %s", envelope.Data)
	}
}

func TestServer_Healthz(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(marketsPayload))
	})

	resp, body := g.get(t, "/healthz")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var health map[string]string
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("Failed to decode health body: %v", err)
	}
	if health["status"] != "healthy" || health["service"] != "markets-gateway" {
		t.Errorf("Unexpected health body: %v", health)
	}

	if got := g.upstreamCalls(); got != 0 {
		t.Errorf("Expected liveness to skip upstream, got %d calls", got)
	}
}

func TestServer_Readyz(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(marketsPayload))
	})

	// Prime one successful upstream round trip
	g.get(t, "/markets")

	resp, body := g.get(t, "/readyz")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}

	var ready readyResponse
	if err := json.Unmarshal(body, &ready); err != nil {
		t.Fatalf("Failed to decode readiness body: %v", err)
	}
	if ready.Status != "ready" {
		t.Errorf("Expected ready, got %q", ready.Status)
	}
	if ready.Upstream.Provider != "core-api" || ready.Upstream.CircuitState != "closed" {
		t.Errorf("Unexpected upstream snapshot: %+v", ready.Upstream)
	}
	if ready.CacheEntries != 1 {
		t.Errorf("Expected 1 cache entry after priming, got %d", ready.CacheEntries)
	}
	if ready.Upstream.LastSuccess == "" {
		t.Error("Expected a last success timestamp")
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(marketsPayload))
	})

	resp, err := http.Post(g.api.URL+"/markets", "application/json", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}
