package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Maksimka7878/gorod/internal/cacheproxy"
	"github.com/Maksimka7878/gorod/internal/httpx"
)

type ProxyHandler struct {
	router *cacheproxy.Router
}

func NewProxyHandler(router *cacheproxy.Router) *ProxyHandler {
	return &ProxyHandler{router: router}
}

// Fetch routes one request through the caching policies. Page contexts
// send the target URL and an optional destination hint; the response comes
// back with X-From-Cache marking cache hits.
// GET /proxy?url=<absolute-url>&destination=<hint>
func (h *ProxyHandler) Fetch(c *fiber.Ctx) error {
	target := c.Query("url")
	if target == "" {
		return httpx.BadRequest(c, "missing_url", "url query parameter is required")
	}

	req := &cacheproxy.Request{
		Method:      fiber.MethodGet,
		URL:         target,
		Destination: c.Query("destination"),
		Header:      map[string][]string{},
	}
	if accept := c.Get(fiber.HeaderAccept); accept != "" {
		req.Header["Accept"] = []string{accept}
	}

	resp, err := h.router.Handle(c.Context(), req)
	if err != nil {
		log.Printf("Proxy fetch failed for %s: %v", target, err)
		return httpx.BadGateway(c, "fetch_failed", "Upstream fetch failed")
	}

	for key, values := range resp.Header {
		for _, value := range values {
			c.Response().Header.Add(key, value)
		}
	}
	if resp.FromCache {
		c.Set("X-From-Cache", "1")
	}

	// Opaque responses surface as 200 with the body hidden upstream.
	status := resp.Status
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).Send(resp.Body)
}
