package service

import (
	"context"

	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

// SearchService serves the global public search through the shared
// cache.
type SearchService struct {
	reg *Registry
}

// NewSearchService creates the search façade.
func NewSearchService(reg *Registry) *SearchService {
	return &SearchService{reg: reg}
}

// Search runs the global public search across markets, events and tags.
// Predicate filters and ordering apply to the market and event buckets
// client-side; tags pass through untouched. When the cache layer is
// globally off this path skips coalescing as well, so every call runs
// its own upstream search.
func (s *SearchService) Search(ctx context.Context, filters SearchFilters, opts ...FetchOption) (*upstream.SearchResult, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	if !s.reg.cacheEnabled {
		opts = append(opts, WithoutCoalescing())
	}

	return fetchEntity(ctx, s.reg, nsSearch, filters, s.reg.ttl.Search,
		func(ctx context.Context) (*upstream.SearchResult, error) {
			res, err := s.reg.client.Search(ctx, filters.Query())
			if err != nil {
				return nil, err
			}

			p := filters.predicates()
			res.Markets = applyPredicates(res.Markets, p, marketFlags)
			res.Events = applyPredicates(res.Events, p, eventFlags)
			sortItems(res.Markets, filters.SortBy, filters.Order, marketSort)
			sortItems(res.Events, filters.SortBy, filters.Order, eventSort)

			return res, nil
		},
		opts...)
}
