package service

import (
	"context"
	"fmt"

	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

// MarketService serves market lookups through the shared cache.
type MarketService struct {
	reg *Registry
}

// NewMarketService creates the market façade.
func NewMarketService(reg *Registry) *MarketService {
	return &MarketService{reg: reg}
}

// Markets returns the market list matching filters. Q, SortBy and Order
// are applied after the fetch; the cache stores the processed slice.
func (s *MarketService) Markets(ctx context.Context, filters MarketFilters, opts ...FetchOption) ([]upstream.Market, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	return fetchCollection(ctx, s.reg, nsMarkets, filters, s.reg.ttl.Markets,
		func(ctx context.Context) ([]upstream.Market, error) {
			return s.reg.client.Markets(ctx, filters.Query())
		},
		func(items []upstream.Market) []upstream.Market {
			items = matchText(items, filters.Q, marketText)
			sortItems(items, filters.SortBy, filters.Order, marketSort)
			return items
		},
		opts...)
}

// MarketByID returns one market, or (nil, nil) when the id is unknown.
func (s *MarketService) MarketByID(ctx context.Context, id string, opts ...FetchOption) (*upstream.Market, error) {
	if err := validateKey("id", id); err != nil {
		return nil, err
	}

	return fetchEntity(ctx, s.reg, nsMarketByID, idParams{ID: id}, s.reg.ttl.Markets,
		func(ctx context.Context) (*upstream.Market, error) {
			return s.reg.client.MarketByID(ctx, id)
		},
		opts...)
}

// MarketBySlug returns one market by its URL slug, or (nil, nil) when
// the slug is unknown.
func (s *MarketService) MarketBySlug(ctx context.Context, slug string, opts ...FetchOption) (*upstream.Market, error) {
	if err := validateKey("slug", slug); err != nil {
		return nil, err
	}

	return fetchEntity(ctx, s.reg, nsMarketBySlug, slugParams{Slug: slug}, s.reg.ttl.Markets,
		func(ctx context.Context) (*upstream.Market, error) {
			return s.reg.client.MarketBySlug(ctx, slug)
		},
		opts...)
}

// SearchMarkets runs the public search and returns the market bucket.
// The upstream search only understands the query itself, so predicate
// filters and ordering are applied client-side.
func (s *MarketService) SearchMarkets(ctx context.Context, filters SearchFilters, opts ...FetchOption) ([]upstream.Market, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	return fetchCollection(ctx, s.reg, nsMarketSearch, filters, s.reg.ttl.Search,
		func(ctx context.Context) ([]upstream.Market, error) {
			res, err := s.reg.client.Search(ctx, filters.Query())
			if err != nil {
				return nil, err
			}
			return res.Markets, nil
		},
		func(items []upstream.Market) []upstream.Market {
			items = applyPredicates(items, filters.predicates(), marketFlags)
			sortItems(items, filters.SortBy, filters.Order, marketSort)
			return items
		},
		opts...)
}

// Name implements cache.WarmupProvider.
func (s *MarketService) Name() string { return "markets" }

// Warmup pre-populates the default market list so the first page load
// after boot is served from cache.
func (s *MarketService) Warmup(ctx context.Context) error {
	active := true
	if _, err := s.Markets(ctx, MarketFilters{Limit: 100, Active: &active}); err != nil {
		return fmt.Errorf("failed to warm market list: %w", err)
	}
	return nil
}
