package cacheproxy

import (
	"context"
	"net/url"
	"strings"
)

// Destination hints mirror what the requesting context knows about how the
// response will be used. When a hint is absent the classifier falls back to
// the URL extension.
const (
	DestinationImage  = "image"
	DestinationScript = "script"
	DestinationStyle  = "style"
	DestinationFont   = "font"
)

// Request is an outgoing fetch as seen by the router.
type Request struct {
	Method      string
	URL         string
	Destination string
	Header      map[string][]string
}

// Response is the routed result. Status 0 marks an opaque cross-origin
// response whose real status is hidden from the caller.
type Response struct {
	Status int
	Header map[string][]string
	Body   []byte
	// FromCache reports whether the body was served from a partition.
	FromCache bool
}

// Upstream performs the actual network fetch for a request.
type Upstream interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

func (r *Request) parsedURL() *url.URL {
	u, err := url.Parse(r.URL)
	if err != nil {
		return &url.URL{Path: r.URL}
	}
	return u
}

func (r *Request) extension() string {
	path := r.parsedURL().Path
	if i := strings.LastIndex(path, "."); i >= 0 {
		return strings.ToLower(path[i:])
	}
	return ""
}
