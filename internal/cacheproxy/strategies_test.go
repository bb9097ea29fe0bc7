package cacheproxy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Maksimka7878/gorod/internal/cache"
)

// fakeUpstream is a scriptable network: per-URL responses, failures and
// optional delays, with a call counter.
type fakeUpstream struct {
	mu        sync.Mutex
	responses map[string]*Response
	failures  map[string]error
	delay     time.Duration
	calls     map[string]int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		responses: make(map[string]*Response),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *fakeUpstream) Do(ctx context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.calls[req.URL]++
	delay := f.delay
	failure := f.failures[req.URL]
	resp := f.responses[req.URL]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}
	if resp == nil {
		return &Response{Status: 404}, nil
	}
	return resp, nil
}

func (f *fakeUpstream) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func testPartition(name string) *cache.Partition {
	return cache.NewPartition(cache.NewMemoryStore(), name, 0, 0)
}

func TestCacheFirstServesFromCacheWithoutNetwork(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.responses["/img/a.png"] = &Response{Status: 200, Body: []byte("bytes")}
	strategy := &CacheFirst{Upstream: upstream}
	partition := testPartition(PartitionImages)

	first, err := strategy.Handle(context.Background(), &Request{URL: "/img/a.png"}, partition)
	if err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if first.FromCache {
		t.Error("first fetch served from cache, want network")
	}

	second, err := strategy.Handle(context.Background(), &Request{URL: "/img/a.png"}, partition)
	if err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	if !second.FromCache {
		t.Error("second fetch hit the network, want cache")
	}
	if got := upstream.callCount("/img/a.png"); got != 1 {
		t.Errorf("network calls = %d, want 1", got)
	}
}

func TestCacheFirstDoesNotCacheFailures(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.responses["/img/missing.png"] = &Response{Status: 404}
	strategy := &CacheFirst{Upstream: upstream}
	partition := testPartition(PartitionImages)

	strategy.Handle(context.Background(), &Request{URL: "/img/missing.png"}, partition)
	strategy.Handle(context.Background(), &Request{URL: "/img/missing.png"}, partition)

	if got := upstream.callCount("/img/missing.png"); got != 2 {
		t.Errorf("network calls = %d, want 2 (404 must not be cached)", got)
	}
}

func TestCacheFirstCachesOpaqueResponses(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.responses["https://cdn.example/img.png"] = &Response{Status: 0, Body: []byte("opaque")}
	strategy := &CacheFirst{Upstream: upstream}
	partition := testPartition(PartitionImages)

	strategy.Handle(context.Background(), &Request{URL: "https://cdn.example/img.png"}, partition)
	resp, err := strategy.Handle(context.Background(), &Request{URL: "https://cdn.example/img.png"}, partition)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !resp.FromCache {
		t.Error("opaque response was not cached")
	}
}

func TestStaleWhileRevalidateFirstRequestGoesToNetwork(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.responses["/assets/app.js"] = &Response{Status: 200, Body: []byte("v1")}
	strategy := &StaleWhileRevalidate{Upstream: upstream}
	partition := testPartition(PartitionStatic)

	resp, err := strategy.Handle(context.Background(), &Request{URL: "/assets/app.js"}, partition)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if resp.FromCache || string(resp.Body) != "v1" {
		t.Errorf("resp = %+v, want fresh v1 from network", resp)
	}
}

func TestStaleWhileRevalidateServesStaleAndRefreshes(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.responses["/assets/app.js"] = &Response{Status: 200, Body: []byte("v1")}
	strategy := &StaleWhileRevalidate{Upstream: upstream, revalidated: make(chan string, 1)}
	partition := testPartition(PartitionStatic)

	strategy.Handle(context.Background(), &Request{URL: "/assets/app.js"}, partition)

	// The deployed asset changes.
	upstream.mu.Lock()
	upstream.responses["/assets/app.js"] = &Response{Status: 200, Body: []byte("v2")}
	upstream.mu.Unlock()

	resp, err := strategy.Handle(context.Background(), &Request{URL: "/assets/app.js"}, partition)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !resp.FromCache || string(resp.Body) != "v1" {
		t.Errorf("resp = %q fromCache=%v, want stale v1 from cache", resp.Body, resp.FromCache)
	}

	select {
	case <-strategy.revalidated:
	case <-time.After(2 * time.Second):
		t.Fatal("background revalidation never completed")
	}

	entry, ok := partition.Get("/assets/app.js")
	if !ok || string(entry.Body) != "v2" {
		t.Errorf("cache after revalidation = %q, want v2", entry.Body)
	}
}

func TestNetworkFirstFallsBackToCacheOnTimeout(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.responses["/api/products"] = &Response{Status: 200, Body: []byte("fresh")}
	strategy := &NetworkFirst{Upstream: upstream, Timeout: 50 * time.Millisecond}
	partition := testPartition(PartitionAPI)

	// Seed the cache with a fast first call.
	if _, err := strategy.Handle(context.Background(), &Request{URL: "/api/products"}, partition); err != nil {
		t.Fatalf("seed fetch failed: %v", err)
	}

	// Network slows past the timeout window.
	upstream.mu.Lock()
	upstream.delay = 500 * time.Millisecond
	upstream.mu.Unlock()

	resp, err := strategy.Handle(context.Background(), &Request{URL: "/api/products"}, partition)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !resp.FromCache || string(resp.Body) != "fresh" {
		t.Errorf("resp = %q fromCache=%v, want cached copy", resp.Body, resp.FromCache)
	}
}

func TestNetworkFirstPropagatesErrorWithEmptyCache(t *testing.T) {
	upstream := newFakeUpstream()
	netErr := errors.New("connection refused")
	upstream.failures["/api/cart"] = netErr
	strategy := &NetworkFirst{Upstream: upstream}
	partition := testPartition(PartitionAPI)

	_, err := strategy.Handle(context.Background(), &Request{URL: "/api/cart"}, partition)
	if err == nil {
		t.Fatal("expected error with failing network and empty cache")
	}
	if !errors.Is(err, netErr) {
		t.Errorf("error = %v, want wrapped %v", err, netErr)
	}
}

func TestRouterPassThroughSkipsPartitions(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.responses["https://shop.example/checkout"] = &Response{Status: 200, Body: []byte("page")}
	router := NewRouter(defaultClassifier(), upstream, cache.NewMemoryStore(), 0)

	resp, err := router.Handle(context.Background(), &Request{URL: "https://shop.example/checkout"})
	if err != nil {
		t.Fatalf("pass-through failed: %v", err)
	}
	if resp.FromCache {
		t.Error("pass-through response marked cached")
	}

	// A second call goes back to the network: nothing was cached.
	router.Handle(context.Background(), &Request{URL: "https://shop.example/checkout"})
	if got := upstream.callCount("https://shop.example/checkout"); got != 2 {
		t.Errorf("network calls = %d, want 2", got)
	}
}

func TestRouterRoutesImageThroughCacheFirst(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.responses["https://shop.example/covers/a.png"] = &Response{Status: 200, Body: []byte("img")}
	router := NewRouter(defaultClassifier(), upstream, cache.NewMemoryStore(), 0)

	router.Handle(context.Background(), &Request{URL: "https://shop.example/covers/a.png"})
	resp, err := router.Handle(context.Background(), &Request{URL: "https://shop.example/covers/a.png"})
	if err != nil {
		t.Fatalf("routed fetch failed: %v", err)
	}
	if !resp.FromCache {
		t.Error("second image fetch not served from cache")
	}
	if got := router.Partition(PartitionImages).Count(); got != 1 {
		t.Errorf("images partition count = %d, want 1", got)
	}
}
