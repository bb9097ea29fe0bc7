package handlers

import (
	"encoding/json"
	"log"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/Maksimka7878/gorod/internal/worker"
)

type WebSocketHandler struct {
	hub *worker.Hub
}

func NewWebSocketHandler(hub *worker.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// GetHub returns the hub instance (useful for sending messages from other handlers)
func (h *WebSocketHandler) GetHub() *worker.Hub {
	return h.hub
}

// clientFrame is what attached page contexts send upstream.
type clientFrame struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// HandleWebSocket attaches a page context to the hub. The context reports
// its ID and current URL on connect and sends navigate/click frames while
// attached.
func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	contextID := c.Query("context_id")
	if contextID == "" {
		contextID = uuid.NewString()
	}
	currentURL := c.Query("url", "/")

	// Check if client supports gzip compression (via query param or header)
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	h.hub.Register(contextID, currentURL, c, supportsGzip)
	defer h.hub.Unregister(contextID)

	log.Printf("Context %s attached via WebSocket", contextID)

	for {
		_, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Printf("Error reading frame from context %s: %v", contextID, err)
			break
		}

		var frame clientFrame
		if err := json.Unmarshal(messageBytes, &frame); err != nil {
			log.Printf("Invalid frame from context %s: %v", contextID, err)
			continue
		}

		switch frame.Type {
		case "navigate":
			h.hub.UpdateURL(contextID, frame.URL)
		case "click":
			if err := worker.HandleNotificationClick(h.hub, frame.URL); err != nil {
				log.Printf("Click from context %s not handled: %v", contextID, err)
			}
		default:
			log.Printf("Unknown frame type %q from context %s", frame.Type, contextID)
		}
	}

	log.Printf("Context %s detached from WebSocket", contextID)
}
