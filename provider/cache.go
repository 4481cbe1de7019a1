package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CacheOptions configures a CachedProvider.
type CacheOptions struct {
	// TTL bounds how long a cached result stays valid.
	TTL time.Duration
	// MaxCost is the total cost budget of the underlying cache.
	MaxCost int64
	// NumCounters sizes the admission frequency sketch.
	NumCounters int64
}

// CachedProvider is a read-through result cache around an idempotent
// provider. Repeated invocations with identical arguments within the TTL are
// served from memory instead of hitting the upstream capability.
//
// Only wrap providers whose Invoke is safe to replay from a cache (search,
// read-only data lookups). Never wrap side-effecting capabilities: a cached
// trade execution is a bug, not an optimization.
type CachedProvider struct {
	inner Provider
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps inner with a TTL-bounded result cache.
func NewCachedProvider(inner Provider, optFns ...func(o *CacheOptions)) (*CachedProvider, error) {
	opts := CacheOptions{
		TTL:         5 * time.Minute,
		MaxCost:     1 << 24, // 16 MiB of cached results
		NumCounters: 1e5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: opts.NumCounters,
		MaxCost:     opts.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &CachedProvider{inner: inner, cache: cache, ttl: opts.TTL}, nil
}

// Name returns the wrapped provider's name.
func (p *CachedProvider) Name() string { return p.inner.Name() }

// Description returns the wrapped provider's description.
func (p *CachedProvider) Description() string { return p.inner.Description() }

// Parameters returns the wrapped provider's parameter schema.
func (p *CachedProvider) Parameters() map[string]any { return p.inner.Parameters() }

// Invoke serves from cache on a hit, otherwise delegates and stores the
// result. Errors are never cached.
func (p *CachedProvider) Invoke(ctx context.Context, args map[string]any) (any, error) {
	key, ok := p.cacheKey(args)
	if ok {
		if cached, hit := p.cache.Get(key); hit {
			return cached, nil
		}
	}

	result, err := p.inner.Invoke(ctx, args)
	if err != nil {
		return nil, err
	}

	if ok {
		cost := int64(1)
		if data, merr := json.Marshal(result); merr == nil {
			cost = int64(len(data))
		}
		p.cache.SetWithTTL(key, result, cost, p.ttl)
	}

	return result, nil
}

// Wait blocks until buffered cache writes are applied. Intended for tests.
func (p *CachedProvider) Wait() { p.cache.Wait() }

// cacheKey canonicalizes args into a stable key. encoding/json sorts map
// keys, so equal argument maps produce equal keys.
func (p *CachedProvider) cacheKey(args map[string]any) (string, bool) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", false // unencodable args bypass the cache
	}
	return p.inner.Name() + ":" + string(data), true
}
