package service

import (
	"context"

	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

// SeriesService serves series lookups through the shared cache.
type SeriesService struct {
	reg *Registry
}

// NewSeriesService creates the series façade.
func NewSeriesService(reg *Registry) *SeriesService {
	return &SeriesService{reg: reg}
}

// Series returns the series list matching filters.
func (s *SeriesService) Series(ctx context.Context, filters SeriesFilters, opts ...FetchOption) ([]upstream.Series, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	return fetchCollection(ctx, s.reg, nsSeries, filters, s.reg.ttl.Series,
		func(ctx context.Context) ([]upstream.Series, error) {
			return s.reg.client.SeriesList(ctx, filters.Query())
		},
		func(items []upstream.Series) []upstream.Series {
			items = matchText(items, filters.Q, seriesText)
			sortItems(items, filters.SortBy, filters.Order, seriesSort)
			return items
		},
		opts...)
}

// SeriesByID returns one series, or (nil, nil) when the id is unknown.
func (s *SeriesService) SeriesByID(ctx context.Context, id string, opts ...FetchOption) (*upstream.Series, error) {
	if err := validateKey("id", id); err != nil {
		return nil, err
	}

	return fetchEntity(ctx, s.reg, nsSeriesByID, idParams{ID: id}, s.reg.ttl.Series,
		func(ctx context.Context) (*upstream.Series, error) {
			return s.reg.client.SeriesByID(ctx, id)
		},
		opts...)
}
