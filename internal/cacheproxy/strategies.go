package cacheproxy

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Maksimka7878/gorod/internal/cache"
)

// DefaultNetworkTimeout bounds the network-first policy's wait before it
// falls back to cache. The in-flight fetch is not cancelled beyond this
// context deadline; its eventual completion is simply abandoned.
const DefaultNetworkTimeout = 10 * time.Second

func cacheable(resp *Response) bool {
	return resp != nil && (resp.Status == 0 || resp.Status == 200)
}

func entryFromResponse(resp *Response) *cache.Entry {
	return &cache.Entry{
		Status: resp.Status,
		Header: resp.Header,
		Body:   resp.Body,
	}
}

func responseFromEntry(entry *cache.Entry) *Response {
	return &Response{
		Status:    entry.Status,
		Header:    entry.Header,
		Body:      entry.Body,
		FromCache: true,
	}
}

// Strategy applies one caching policy to a classified request.
type Strategy interface {
	Handle(ctx context.Context, req *Request, partition *cache.Partition) (*Response, error)
}

// CacheFirst serves from cache when present, otherwise fetches and caches
// a successful response.
type CacheFirst struct {
	Upstream Upstream
}

func (s *CacheFirst) Handle(ctx context.Context, req *Request, partition *cache.Partition) (*Response, error) {
	if entry, ok := partition.Get(req.URL); ok {
		return responseFromEntry(entry), nil
	}

	resp, err := s.Upstream.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("cache-first fetch %s: %w", req.URL, err)
	}
	if cacheable(resp) {
		partition.Put(req.URL, entryFromResponse(resp))
	}
	return resp, nil
}

// StaleWhileRevalidate serves the cached copy immediately while a
// background refetch refreshes the partition. The first-ever request for a
// URL falls through to the network.
type StaleWhileRevalidate struct {
	Upstream Upstream

	// revalidated signals test code when a background refresh lands.
	revalidated chan string
}

func (s *StaleWhileRevalidate) Handle(ctx context.Context, req *Request, partition *cache.Partition) (*Response, error) {
	if entry, ok := partition.Get(req.URL); ok {
		go s.revalidate(req, partition)
		return responseFromEntry(entry), nil
	}

	resp, err := s.Upstream.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("stale-while-revalidate fetch %s: %w", req.URL, err)
	}
	if cacheable(resp) {
		partition.Put(req.URL, entryFromResponse(resp))
	}
	return resp, nil
}

func (s *StaleWhileRevalidate) revalidate(req *Request, partition *cache.Partition) {
	// Detached from the caller: a navigation away abandons nothing here.
	resp, err := s.Upstream.Do(context.Background(), req)
	if err != nil {
		log.Printf("[CacheRouter] Revalidation of %s failed: %v", req.URL, err)
		return
	}
	if cacheable(resp) {
		partition.Put(req.URL, entryFromResponse(resp))
	}
	if s.revalidated != nil {
		select {
		case s.revalidated <- req.URL:
		default:
		}
	}
}

// NetworkFirst attempts the network within a timeout and falls back to the
// most recent cached copy. With nothing cached, the network error is the
// one failure this subsystem propagates to the requester.
type NetworkFirst struct {
	Upstream Upstream
	Timeout  time.Duration
}

func (s *NetworkFirst) Handle(ctx context.Context, req *Request, partition *cache.Partition) (*Response, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultNetworkTimeout
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.Upstream.Do(fetchCtx, req)
	if err == nil {
		if cacheable(resp) {
			partition.Put(req.URL, entryFromResponse(resp))
		}
		return resp, nil
	}

	if entry, ok := partition.Get(req.URL); ok {
		log.Printf("[CacheRouter] Network failed for %s, serving cached copy: %v", req.URL, err)
		return responseFromEntry(entry), nil
	}
	return nil, fmt.Errorf("network-first fetch %s with empty cache: %w", req.URL, err)
}
