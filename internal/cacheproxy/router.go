package cacheproxy

import (
	"context"
	"time"

	"github.com/Maksimka7878/gorod/internal/cache"
)

// Partition policies, matching the storefront's shell configuration.
const (
	ImagesMaxEntries = 100
	ImagesMaxAge     = 30 * 24 * time.Hour

	FontsMaxEntries = 30
	FontsMaxAge     = 365 * 24 * time.Hour

	APIMaxEntries = 50
	APIMaxAge     = 24 * time.Hour
)

// Router classifies every outgoing request and applies the matching
// caching policy. Unmatched requests pass straight through to the
// upstream, uncached.
type Router struct {
	classifier *Classifier
	upstream   Upstream
	partitions map[string]*cache.Partition
	strategies map[PolicyName]Strategy
}

// NewRouter builds the router with the standard partitions over the given
// store.
func NewRouter(classifier *Classifier, upstream Upstream, store cache.Store, networkTimeout time.Duration) *Router {
	return &Router{
		classifier: classifier,
		upstream:   upstream,
		partitions: map[string]*cache.Partition{
			PartitionImages: cache.NewPartition(store, PartitionImages, ImagesMaxEntries, ImagesMaxAge),
			PartitionFonts:  cache.NewPartition(store, PartitionFonts, FontsMaxEntries, FontsMaxAge),
			PartitionAPI:    cache.NewPartition(store, PartitionAPI, APIMaxEntries, APIMaxAge),
			PartitionStatic: cache.NewPartition(store, PartitionStatic, 0, 0),
		},
		strategies: map[PolicyName]Strategy{
			PolicyCacheFirst:           &CacheFirst{Upstream: upstream},
			PolicyStaleWhileRevalidate: &StaleWhileRevalidate{Upstream: upstream},
			PolicyNetworkFirst:         &NetworkFirst{Upstream: upstream, Timeout: networkTimeout},
		},
	}
}

// Handle routes one request. Classified requests go through their policy;
// everything else is fetched directly.
func (r *Router) Handle(ctx context.Context, req *Request) (*Response, error) {
	route, ok := r.classifier.Classify(req)
	if !ok {
		return r.upstream.Do(ctx, req)
	}
	return r.strategies[route.Policy].Handle(ctx, req, r.partitions[route.Partition])
}

// Partition exposes a partition by name (diagnostics, tests).
func (r *Router) Partition(name string) *cache.Partition {
	return r.partitions[name]
}
