package cacheproxy

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Maksimka7878/gorod/internal/cache"
)

const precachePrefix = "precache-"

// ShellSource lists and serves the application shell's static assets, so
// the shell can load with no network at all once precached.
type ShellSource interface {
	Manifest(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, name string) (*cache.Entry, error)
}

// PrecacheName returns the partition name for a shell version.
func PrecacheName(version string) string {
	return precachePrefix + version
}

// Precache loads every manifest asset into the versioned shell partition.
// Individual asset failures are logged and skipped; the shell stays
// partially usable rather than failing installation outright.
func Precache(ctx context.Context, store cache.Store, source ShellSource, version string) (int, error) {
	assets, err := source.Manifest(ctx)
	if err != nil {
		return 0, fmt.Errorf("read shell manifest: %w", err)
	}

	partition := cache.NewPartition(store, PrecacheName(version), 0, 0)
	cached := 0
	for _, asset := range assets {
		entry, err := source.Fetch(ctx, asset)
		if err != nil {
			log.Printf("[CacheRouter] Failed to precache %s: %v", asset, err)
			continue
		}
		partition.Put(asset, entry)
		cached++
	}

	log.Printf("[CacheRouter] Precached %d/%d shell assets (version %s)", cached, len(assets), version)
	return cached, nil
}

// CleanupOutdated removes shell partitions belonging to superseded
// versions, keeping only the current one.
func CleanupOutdated(store cache.Store, currentVersion string) []string {
	keep := PrecacheName(currentVersion)
	var removed []string
	for _, name := range cache.PartitionNames(store) {
		if strings.HasPrefix(name, precachePrefix) && name != keep {
			cache.DestroyPartition(store, name)
			removed = append(removed, name)
		}
	}
	if len(removed) > 0 {
		log.Printf("[CacheRouter] Removed outdated shell caches: %v", removed)
	}
	return removed
}

// PrecachedShell serves a request from the current shell partition, used
// when the device is fully offline.
func PrecachedShell(store cache.Store, version, asset string) (*cache.Entry, bool) {
	partition := cache.NewPartition(store, PrecacheName(version), 0, 0)
	return partition.Get(asset)
}
