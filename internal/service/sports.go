package service

import (
	"context"
	"fmt"

	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

// SportsService serves sports reference data through the shared cache.
type SportsService struct {
	reg *Registry
}

// NewSportsService creates the sports façade.
func NewSportsService(reg *Registry) *SportsService {
	return &SportsService{reg: reg}
}

// Teams returns sports teams matching filters. Q is matched client-side
// against team names.
func (s *SportsService) Teams(ctx context.Context, filters TeamFilters, opts ...FetchOption) ([]upstream.Team, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	return fetchCollection(ctx, s.reg, nsTeams, filters, s.reg.ttl.Teams,
		func(ctx context.Context) ([]upstream.Team, error) {
			return s.reg.client.Teams(ctx, filters.Query())
		},
		func(items []upstream.Team) []upstream.Team {
			return matchText(items, filters.Q, teamText)
		},
		opts...)
}

// Leagues returns the supported sports leagues.
func (s *SportsService) Leagues(ctx context.Context, opts ...FetchOption) ([]upstream.League, error) {
	return fetchCollection(ctx, s.reg, nsLeagues, nil, s.reg.ttl.Leagues,
		func(ctx context.Context) ([]upstream.League, error) {
			return s.reg.client.Leagues(ctx)
		},
		nil,
		opts...)
}

// Name implements cache.WarmupProvider.
func (s *SportsService) Name() string { return "sports" }

// Warmup pre-populates the league list, the most stable and most widely
// shared reference payload.
func (s *SportsService) Warmup(ctx context.Context) error {
	if _, err := s.Leagues(ctx); err != nil {
		return fmt.Errorf("failed to warm league list: %w", err)
	}
	return nil
}
