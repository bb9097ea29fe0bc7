package cacheproxy

import (
	"os"
	"strings"
)

// Partition names and their policies.
const (
	PartitionImages = "images"
	PartitionFonts  = "fonts"
	PartitionAPI    = "api"
	PartitionStatic = "static"
)

// PolicyName identifies a caching strategy.
type PolicyName string

const (
	PolicyCacheFirst           PolicyName = "cache-first"
	PolicyStaleWhileRevalidate PolicyName = "stale-while-revalidate"
	PolicyNetworkFirst         PolicyName = "network-first"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".svg": true, ".ico": true, ".avif": true,
}

var scriptExtensions = map[string]bool{
	".js": true, ".mjs": true,
}

var styleExtensions = map[string]bool{
	".css": true,
}

// Classifier assigns a policy and partition to a request. Precedence is
// fixed: images, then font origins, then scripts and styles, then the
// API path. A request that is both an image and under the API prefix is
// still an image, and a stylesheet served from a font origin lands in
// the fonts partition.
type Classifier struct {
	fontOrigins []string
	apiPrefix   string
}

// Route is a classification result.
type Route struct {
	Policy    PolicyName
	Partition string
}

func NewClassifier(fontOrigins []string, apiPrefix string) *Classifier {
	return &Classifier{fontOrigins: fontOrigins, apiPrefix: apiPrefix}
}

// LoadClassifierFromEnv reads CACHE_FONT_ORIGINS (comma separated) and
// CACHE_API_PREFIX, falling back to the storefront defaults.
func LoadClassifierFromEnv() *Classifier {
	origins := []string{"https://fonts.googleapis.com", "https://fonts.gstatic.com"}
	if raw := os.Getenv("CACHE_FONT_ORIGINS"); raw != "" {
		origins = nil
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	prefix := os.Getenv("CACHE_API_PREFIX")
	if prefix == "" {
		prefix = "/api"
	}
	return NewClassifier(origins, prefix)
}

// Classify returns the route for a request, or ok=false for pass-through.
func (c *Classifier) Classify(req *Request) (Route, bool) {
	if c.isImage(req) {
		return Route{Policy: PolicyCacheFirst, Partition: PartitionImages}, true
	}

	u := req.parsedURL()
	origin := u.Scheme + "://" + u.Host
	for _, fontOrigin := range c.fontOrigins {
		if origin == fontOrigin {
			return Route{Policy: PolicyStaleWhileRevalidate, Partition: PartitionFonts}, true
		}
	}

	if c.isScriptOrStyle(req) {
		return Route{Policy: PolicyStaleWhileRevalidate, Partition: PartitionStatic}, true
	}

	if strings.HasPrefix(u.Path, c.apiPrefix) {
		return Route{Policy: PolicyNetworkFirst, Partition: PartitionAPI}, true
	}

	return Route{}, false
}

func (c *Classifier) isImage(req *Request) bool {
	if req.Destination == DestinationImage {
		return true
	}
	return imageExtensions[req.extension()]
}

func (c *Classifier) isScriptOrStyle(req *Request) bool {
	if req.Destination == DestinationScript || req.Destination == DestinationStyle {
		return true
	}
	return scriptExtensions[req.extension()] || styleExtensions[req.extension()]
}
