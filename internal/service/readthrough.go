package service

import (
	"context"
	"time"

	"github.com/jshsmth/glitch-markets-sub000/internal/platform/cache"
	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

// idParams and slugParams are the canonical key parameters of the
// by-id and by-slug lookups.
type idParams struct {
	ID string `json:"id"`
}

type slugParams struct {
	Slug string `json:"slug"`
}

// FetchOption adjusts one call on the generic read-through path.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	bypassCache    bool
	skipCoalescing bool
}

// WithBypassCache skips both the cache read and the cache write for one
// call; the upstream result is returned directly.
func WithBypassCache() FetchOption {
	return func(o *fetchOptions) { o.bypassCache = true }
}

// WithoutCoalescing opts one call out of flight sharing so it always
// runs its own producer.
func WithoutCoalescing() FetchOption {
	return func(o *fetchOptions) { o.skipCoalescing = true }
}

func (r *Registry) newFetchOptions(opts []FetchOption) fetchOptions {
	o := fetchOptions{bypassCache: !r.cacheEnabled}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// fetchCollection is the read-through path for list-shaped operations.
// The producer fetches upstream, applies post, and performs the cache
// write, so the write happens exactly once per flight no matter how
// many callers joined it. A producer error settles every joined caller
// with that same error and caches nothing.
func fetchCollection[T any](ctx context.Context, r *Registry, namespace string, params any, ttl time.Duration, fetch func(context.Context) ([]T, error), post func([]T) []T, opts ...FetchOption) ([]T, error) {
	o := r.newFetchOptions(opts)
	key := cache.BuildKey(namespace, params)

	if o.bypassCache {
		r.metrics.RecordCacheBypass(ctx, namespace)
	} else {
		if v, err := r.cache.Get(ctx, key); err == nil {
			if items, ok := v.([]T); ok {
				r.metrics.RecordCacheHit(ctx, namespace)
				return items, nil
			}
		}
		r.metrics.RecordCacheMiss(ctx, namespace)
	}

	producer := func(ctx context.Context) (any, error) {
		items, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if post != nil {
			items = post(items)
		}
		if !o.bypassCache {
			r.writeCache(ctx, namespace, key, items, ttl)
		}
		return items, nil
	}

	v, shared, err := r.settle(ctx, o, key, producer)
	if err != nil {
		return nil, err
	}
	if shared {
		r.metrics.RecordFlightShared(ctx, namespace)
	}

	items, _ := v.([]T)
	return items, nil
}

// fetchEntity is the read-through path for single-entity operations.
// An upstream 404 resolves to (nil, nil) after settlement; the absence
// is never cached, so a later call re-fetches.
func fetchEntity[T any](ctx context.Context, r *Registry, namespace string, params any, ttl time.Duration, fetch func(context.Context) (*T, error), opts ...FetchOption) (*T, error) {
	o := r.newFetchOptions(opts)
	key := cache.BuildKey(namespace, params)

	if o.bypassCache {
		r.metrics.RecordCacheBypass(ctx, namespace)
	} else {
		if v, err := r.cache.Get(ctx, key); err == nil {
			if ent, ok := v.(*T); ok {
				r.metrics.RecordCacheHit(ctx, namespace)
				return ent, nil
			}
		}
		r.metrics.RecordCacheMiss(ctx, namespace)
	}

	producer := func(ctx context.Context) (any, error) {
		ent, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if !o.bypassCache {
			r.writeCache(ctx, namespace, key, ent, ttl)
		}
		return ent, nil
	}

	v, shared, err := r.settle(ctx, o, key, producer)
	if err != nil {
		if upstream.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if shared {
		r.metrics.RecordFlightShared(ctx, namespace)
	}

	ent, _ := v.(*T)
	return ent, nil
}

// settle runs the producer, coalesced on key unless the call opted out.
func (r *Registry) settle(ctx context.Context, o fetchOptions, key string, producer func(context.Context) (any, error)) (any, bool, error) {
	if o.skipCoalescing {
		v, err := producer(ctx)
		return v, false, err
	}
	return r.flights.Do(ctx, key, producer)
}

func (r *Registry) writeCache(ctx context.Context, namespace, key string, value any, ttl time.Duration) {
	if err := r.cache.Set(ctx, key, value, ttl); err != nil {
		r.logger.Warn("cache write failed",
			"namespace", namespace,
			"error", err,
		)
		return
	}
	r.metrics.SetCacheSize(ctx, r.cache.Len())
}
