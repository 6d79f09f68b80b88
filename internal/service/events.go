package service

import (
	"context"

	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

// EventService serves event lookups through the shared cache.
type EventService struct {
	reg *Registry
}

// NewEventService creates the event façade.
func NewEventService(reg *Registry) *EventService {
	return &EventService{reg: reg}
}

// Events returns the event list matching filters.
func (s *EventService) Events(ctx context.Context, filters EventFilters, opts ...FetchOption) ([]upstream.Event, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	return fetchCollection(ctx, s.reg, nsEvents, filters, s.reg.ttl.Events,
		func(ctx context.Context) ([]upstream.Event, error) {
			return s.reg.client.Events(ctx, filters.Query())
		},
		func(items []upstream.Event) []upstream.Event {
			items = matchText(items, filters.Q, eventText)
			sortItems(items, filters.SortBy, filters.Order, eventSort)
			return items
		},
		opts...)
}

// EventByID returns one event, or (nil, nil) when the id is unknown.
func (s *EventService) EventByID(ctx context.Context, id string, opts ...FetchOption) (*upstream.Event, error) {
	if err := validateKey("id", id); err != nil {
		return nil, err
	}

	return fetchEntity(ctx, s.reg, nsEventByID, idParams{ID: id}, s.reg.ttl.Events,
		func(ctx context.Context) (*upstream.Event, error) {
			return s.reg.client.EventByID(ctx, id)
		},
		opts...)
}

// EventBySlug returns one event by its URL slug, or (nil, nil) when the
// slug is unknown.
func (s *EventService) EventBySlug(ctx context.Context, slug string, opts ...FetchOption) (*upstream.Event, error) {
	if err := validateKey("slug", slug); err != nil {
		return nil, err
	}

	return fetchEntity(ctx, s.reg, nsEventBySlug, slugParams{Slug: slug}, s.reg.ttl.Events,
		func(ctx context.Context) (*upstream.Event, error) {
			return s.reg.client.EventBySlug(ctx, slug)
		},
		opts...)
}

// SearchEvents runs the public search and returns the event bucket,
// with predicate filters and ordering applied client-side.
func (s *EventService) SearchEvents(ctx context.Context, filters SearchFilters, opts ...FetchOption) ([]upstream.Event, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	return fetchCollection(ctx, s.reg, nsEventSearch, filters, s.reg.ttl.Search,
		func(ctx context.Context) ([]upstream.Event, error) {
			res, err := s.reg.client.Search(ctx, filters.Query())
			if err != nil {
				return nil, err
			}
			return res.Events, nil
		},
		func(items []upstream.Event) []upstream.Event {
			items = applyPredicates(items, filters.predicates(), eventFlags)
			sortItems(items, filters.SortBy, filters.Order, eventSort)
			return items
		},
		opts...)
}
