package worker

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/Maksimka7878/gorod/internal/models"
)

// ClientConn is the subset of the websocket connection the hub uses.
// *websocket.Conn satisfies it.
type ClientConn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// ClientMessage is the envelope the hub writes to attached page contexts.
type ClientMessage struct {
	Type         string                      `json:"type"`
	Notification *models.NotificationRequest `json:"notification,omitempty"`
	URL          string                      `json:"url,omitempty"`
	Version      string                      `json:"version,omitempty"`
}

// Message types written to clients.
const (
	MessageNotification    = "notification"
	MessageFocus           = "focus"
	MessageOpenWindow      = "open-window"
	MessageClaim           = "claim"
	MessageUpdateAvailable = "update-available"
)

// ClientConnection wraps an attached page context with metadata
type ClientConnection struct {
	Conn         ClientConn
	ContextID    string
	URL          string
	LastPong     time.Time
	SupportsGzip bool
	PingTicker   *time.Ticker
	CloseChan    chan struct{}
}

// Hub manages all attached page contexts. Each context connects once and
// reports its current URL; the hub fans notifications and lifecycle
// messages out to all of them.
type Hub struct {
	clients      map[string]*ClientConnection
	clientsMux   sync.RWMutex
	pingInterval time.Duration
	pongTimeout  time.Duration
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	hub := &Hub{
		clients:      make(map[string]*ClientConnection),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}

	go hub.connectionHealthChecker()

	return hub
}

// Register adds a page context with health monitoring
func (h *Hub) Register(contextID, url string, conn ClientConn, supportsGzip bool) {
	clientConn := &ClientConnection{
		Conn:         conn,
		ContextID:    contextID,
		URL:          url,
		LastPong:     time.Now(),
		SupportsGzip: supportsGzip,
		PingTicker:   time.NewTicker(h.pingInterval),
		CloseChan:    make(chan struct{}),
	}

	conn.SetPongHandler(func(appData string) error {
		h.clientsMux.Lock()
		if client, exists := h.clients[contextID]; exists {
			client.LastPong = time.Now()
		}
		h.clientsMux.Unlock()
		return nil
	})

	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	h.clientsMux.Lock()
	// A context reconnecting under the same ID replaces its old entry;
	// shut the old ping routine down so its write failures can't tear
	// down the new connection.
	if old, exists := h.clients[contextID]; exists {
		if old.PingTicker != nil {
			old.PingTicker.Stop()
		}
		close(old.CloseChan)
	}
	h.clients[contextID] = clientConn
	count := len(h.clients)
	h.clientsMux.Unlock()

	go h.pingRoutine(clientConn)

	log.Printf("Context %s attached to hub at %s (total: %d, gzip: %v)", contextID, url, count, supportsGzip)
}

// Unregister removes a page context
func (h *Hub) Unregister(contextID string) {
	h.clientsMux.Lock()
	if client, exists := h.clients[contextID]; exists {
		if client.PingTicker != nil {
			client.PingTicker.Stop()
		}
		close(client.CloseChan)
	}
	delete(h.clients, contextID)
	count := len(h.clients)
	h.clientsMux.Unlock()
	log.Printf("Context %s detached from hub (total: %d)", contextID, count)
}

// UpdateURL records a navigation inside an attached context.
func (h *Hub) UpdateURL(contextID, url string) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	if client, exists := h.clients[contextID]; exists {
		client.URL = url
	}
}

// IsAttached checks if a context is connected
func (h *Hub) IsAttached(contextID string) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	_, exists := h.clients[contextID]
	return exists
}

// Count returns the number of attached contexts
func (h *Hub) Count() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

// Contexts returns the IDs of currently attached contexts
func (h *Hub) Contexts() []string {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for contextID := range h.clients {
		ids = append(ids, contextID)
	}
	return ids
}

// Notify fans a notification out to every attached context.
func (h *Hub) Notify(req models.NotificationRequest) {
	h.broadcast(ClientMessage{Type: MessageNotification, Notification: &req})
}

// FocusOrOpen implements the notification click contract: focus the
// context whose current URL equals the target, otherwise instruct one
// context to open a new window at that URL. With nothing attached there
// is nobody to act, so the click is reported lost.
func (h *Hub) FocusOrOpen(url string) error {
	h.clientsMux.RLock()
	var match *ClientConnection
	var any *ClientConnection
	for _, client := range h.clients {
		if any == nil {
			any = client
		}
		if client.URL == url {
			match = client
			break
		}
	}
	h.clientsMux.RUnlock()

	if match != nil {
		return h.sendTo(match, ClientMessage{Type: MessageFocus, URL: url})
	}
	if any != nil {
		return h.sendTo(any, ClientMessage{Type: MessageOpenWindow, URL: url})
	}
	return fmt.Errorf("no attached contexts to handle click for %s", url)
}

// Claim tells every attached context that the given version now controls
// them. Sent on activation so clients switch over without reconnecting.
func (h *Hub) Claim(version string) {
	h.broadcast(ClientMessage{Type: MessageClaim, Version: version})
}

// UpdateAvailable tells every attached context that a new version is
// installed and waiting.
func (h *Hub) UpdateAvailable(version string) {
	h.broadcast(ClientMessage{Type: MessageUpdateAvailable, Version: version})
}

// sendTo writes one message to one context with optional compression.
func (h *Hub) sendTo(client *ClientConnection, msg ClientMessage) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message for context %s: %v", client.ContextID, err)
		return err
	}

	// Compress if supported and beneficial (> 512 bytes)
	finalData := jsonData
	frameType := websocket.TextMessage
	if client.SupportsGzip && len(jsonData) > 512 {
		compressed, err := compressData(jsonData)
		if err == nil && len(compressed) < len(jsonData) {
			finalData = compressed
			frameType = websocket.BinaryMessage
		}
	}

	if err := client.Conn.WriteMessage(frameType, finalData); err != nil {
		log.Printf("Error sending to context %s: %v", client.ContextID, err)
		h.Unregister(client.ContextID)
		return err
	}
	return nil
}

// broadcast sends a message to all attached contexts
func (h *Hub) broadcast(msg ClientMessage) {
	h.clientsMux.RLock()
	clients := make([]*ClientConnection, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clientsMux.RUnlock()

	for _, client := range clients {
		h.sendTo(client, msg)
	}
}

// pingRoutine sends periodic ping messages to keep connection alive
func (h *Hub) pingRoutine(client *ClientConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ping routine recovered from panic for context %s: %v", client.ContextID, r)
		}
	}()

	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			h.clientsMux.RLock()
			_, exists := h.clients[client.ContextID]
			h.clientsMux.RUnlock()

			if !exists {
				return
			}

			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("Ping failed for context %s: %v", client.ContextID, err)
				h.Unregister(client.ContextID)
				return
			}
		}
	}
}

// connectionHealthChecker monitors connection health and removes dead connections
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.clientsMux.RLock()
		deadConnections := make([]string, 0)
		now := time.Now()

		for contextID, client := range h.clients {
			if now.Sub(client.LastPong) > h.pongTimeout {
				deadConnections = append(deadConnections, contextID)
			}
		}
		h.clientsMux.RUnlock()

		for _, contextID := range deadConnections {
			log.Printf("Removing dead connection for context %s (no pong received)", contextID)
			h.Unregister(contextID)
		}
	}
}

// compressData compresses data using gzip
func compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	if _, err := gzipWriter.Write(data); err != nil {
		return nil, err
	}

	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
