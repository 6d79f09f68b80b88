package service

import (
	"context"

	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

// CommentService serves comment lookups through the shared cache.
type CommentService struct {
	reg *Registry
}

// NewCommentService creates the comment façade.
func NewCommentService(reg *Registry) *CommentService {
	return &CommentService{reg: reg}
}

// Comments returns comments matching filters, in upstream order.
func (s *CommentService) Comments(ctx context.Context, filters CommentFilters, opts ...FetchOption) ([]upstream.Comment, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	return fetchCollection(ctx, s.reg, nsComments, filters, s.reg.ttl.Comments,
		func(ctx context.Context) ([]upstream.Comment, error) {
			return s.reg.client.Comments(ctx, filters.Query())
		},
		nil,
		opts...)
}
