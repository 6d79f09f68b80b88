package service

import (
	"context"

	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

// BuilderService serves builder analytics from the data host through
// the shared cache.
type BuilderService struct {
	reg *Registry
}

// NewBuilderService creates the builder façade.
func NewBuilderService(reg *Registry) *BuilderService {
	return &BuilderService{reg: reg}
}

// Leaderboard returns the builder leaderboard for the requested period,
// in upstream rank order.
func (s *BuilderService) Leaderboard(ctx context.Context, filters LeaderboardFilters, opts ...FetchOption) ([]upstream.BuilderStanding, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	return fetchCollection(ctx, s.reg, nsLeaderboard, filters, s.reg.ttl.Leaderboard,
		func(ctx context.Context) ([]upstream.BuilderStanding, error) {
			return s.reg.client.BuilderLeaderboard(ctx, filters.Query())
		},
		nil,
		opts...)
}

type volumeParams struct {
	Address string `json:"address"`
	Period  string `json:"period,omitempty"`
}

// Volume returns the aggregate volume for one builder address, or
// (nil, nil) when the address has no recorded activity.
func (s *BuilderService) Volume(ctx context.Context, address string, filters VolumeFilters, opts ...FetchOption) (*upstream.BuilderVolume, error) {
	if err := validateKey("address", address); err != nil {
		return nil, err
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	params := volumeParams{Address: address, Period: filters.Period}

	return fetchEntity(ctx, s.reg, nsBuilderVolume, params, s.reg.ttl.Volume,
		func(ctx context.Context) (*upstream.BuilderVolume, error) {
			return s.reg.client.BuilderVolume(ctx, address, filters.Query())
		},
		opts...)
}
