// Package service implements the read-through façades of the gateway.
// Every entity family (markets, events, series, comments, search,
// sports, builders) is served by one façade backed by a shared cache
// store, a shared flight table, and a shared upstream client, all held
// by a Registry that is constructed explicitly in main and in tests.
package service

import (
	"context"
	"time"

	"github.com/jshsmth/glitch-markets-sub000/internal/platform/cache"
	"github.com/jshsmth/glitch-markets-sub000/internal/platform/observability"
	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

// Cache namespaces, one per operation family. Keys are always built
// through cache.BuildKey so namespaces and parameters never collide.
const (
	nsMarkets       = "markets"
	nsMarketByID    = "markets:id"
	nsMarketBySlug  = "markets:slug"
	nsMarketSearch  = "markets:search"
	nsEvents        = "events"
	nsEventByID     = "events:id"
	nsEventBySlug   = "events:slug"
	nsEventSearch   = "events:search"
	nsSeries        = "series"
	nsSeriesByID    = "series:id"
	nsComments      = "comments"
	nsSearch        = "search"
	nsTeams         = "sports:teams"
	nsLeagues       = "sports:leagues"
	nsLeaderboard   = "builders:leaderboard"
	nsBuilderVolume = "builders:volume"
)

// TTLConfig carries the per-namespace cache lifetimes.
type TTLConfig struct {
	Markets     time.Duration
	Events      time.Duration
	Series      time.Duration
	Comments    time.Duration
	Search      time.Duration
	Teams       time.Duration
	Leagues     time.Duration
	Leaderboard time.Duration
	Volume      time.Duration
}

func (c *TTLConfig) applyDefaults() {
	def := func(d *time.Duration, fallback time.Duration) {
		if *d <= 0 {
			*d = fallback
		}
	}
	def(&c.Markets, time.Minute)
	def(&c.Events, time.Minute)
	def(&c.Series, time.Minute)
	def(&c.Comments, time.Minute)
	def(&c.Search, time.Minute)
	def(&c.Teams, time.Minute)
	def(&c.Leagues, 5*time.Minute)
	def(&c.Leaderboard, 5*time.Minute)
	def(&c.Volume, 10*time.Minute)
}

// Registry holds the one store, one flight table, and one upstream
// client shared by every façade.
type Registry struct {
	cache   cache.Cache
	flights *cache.Flight
	client  *upstream.Client
	logger  *observability.Logger
	metrics *observability.Metrics

	cacheEnabled bool
	ttl          TTLConfig
}

// RegistryConfig holds registry construction parameters. Client is
// required; everything else has a working default.
type RegistryConfig struct {
	Cache        cache.Cache
	Flights      *cache.Flight
	Client       *upstream.Client
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	CacheEnabled bool
	TTL          TTLConfig
}

// NewRegistry creates a registry with defaults applied.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemoryCache(cache.DefaultCapacity)
	}
	if cfg.Flights == nil {
		cfg.Flights = cache.NewFlight()
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger("info", "json")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetrics(nil)
	}
	cfg.TTL.applyDefaults()

	return &Registry{
		cache:        cfg.Cache,
		flights:      cfg.Flights,
		client:       cfg.Client,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		cacheEnabled: cfg.CacheEnabled,
		ttl:          cfg.TTL,
	}
}

// Reset clears the store and the pending flight table. Test hook for
// isolation between cases; must not race with in-flight producers.
func (r *Registry) Reset() {
	_ = r.cache.Clear(context.Background())
	r.flights.Reset()
}

// CacheEnabled reports whether the caching layer is globally on.
func (r *Registry) CacheEnabled() bool {
	return r.cacheEnabled
}

// Client exposes the shared upstream client for health reporting.
func (r *Registry) Client() *upstream.Client {
	return r.client
}

// CacheLen reports the number of live entries in the shared store.
func (r *Registry) CacheLen() int {
	return r.cache.Len()
}
