package bus

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Maksimka7878/gorod/internal/models"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ChannelName is the well-known broadcast channel shared by all page
// contexts and the worker. Any process opening this channel joins the same
// broadcast domain.
const ChannelName = "store-broadcast"

// Handler receives a delivered broadcast message.
type Handler func(message models.BroadcastMessage)

// Subscription identifies a registered handler. Unsubscribe is idempotent:
// calling it more than once is a safe no-op.
type Subscription struct {
	bus     *Bus
	msgType string
	id      uint64
	once    sync.Once
}

// Unsubscribe removes the handler. Safe to call multiple times.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s.msgType, s.id)
	})
}

// Bus fans broadcast messages out to every other live context. Delivery is
// best-effort and unordered across senders; a context that is not listening
// at send time misses the message permanently.
type Bus struct {
	origin    string
	transport Transport

	mu       sync.RWMutex
	handlers map[string]map[uint64]Handler
	nextID   uint64
	closed   bool

	wg sync.WaitGroup
}

// New creates a bus over the given transport. A nil transport means the
// channel capability is absent: sends are silently dropped and no handler
// ever fires.
func New(transport Transport) *Bus {
	b := &Bus{
		origin:    uuid.NewString(),
		transport: transport,
		handlers:  make(map[string]map[uint64]Handler),
	}

	if transport == nil {
		log.Println("[Broadcast] Channel not supported, sends will be dropped")
		return b
	}

	b.wg.Add(1)
	go b.dispatchLoop(transport.Receive())
	return b
}

// Origin returns this context's sender ID.
func (b *Bus) Origin() string {
	return b.origin
}

// IsSupported reports whether the underlying transport is available.
func (b *Bus) IsSupported() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.transport != nil && !b.closed
}

// Send stamps the message with the send time and this context's origin and
// publishes it. Send never blocks on receivers and never errors out to the
// caller; transport failures are logged and absorbed.
func (b *Bus) Send(message models.BroadcastMessage) {
	b.mu.RLock()
	transport := b.transport
	closed := b.closed
	b.mu.RUnlock()

	if transport == nil || closed {
		log.Println("[Broadcast] Channel not available, message dropped")
		return
	}

	message.Timestamp = time.Now().UnixMilli()
	message.Origin = b.origin

	data, err := msgpack.Marshal(&message)
	if err != nil {
		log.Printf("[Broadcast] Failed to encode message: %v", err)
		return
	}

	if err := transport.Publish(context.Background(), data); err != nil {
		log.Printf("[Broadcast] Failed to publish: %v", err)
		return
	}
	log.Printf("[Broadcast] Sent %s", message.Type)
}

// On registers a handler for a message type, or for models.BroadcastAll to
// receive every message. Multiple handlers per type are allowed and fire
// independently in undefined order.
func (b *Bus) On(msgType string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[msgType] == nil {
		b.handlers[msgType] = make(map[uint64]Handler)
	}
	b.nextID++
	id := b.nextID
	b.handlers[msgType][id] = handler

	return &Subscription{bus: b, msgType: msgType, id: id}
}

// Off removes a previously registered handler. Equivalent to calling the
// subscription's Unsubscribe.
func (b *Bus) Off(sub *Subscription) {
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (b *Bus) remove(msgType string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.handlers[msgType]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(b.handlers, msgType)
		}
	}
}

// Close releases the transport and clears all handlers. Send after Close
// is a logged no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	transport := b.transport
	b.transport = nil
	b.handlers = make(map[string]map[uint64]Handler)
	b.mu.Unlock()

	if transport != nil {
		if err := transport.Close(); err != nil {
			log.Printf("[Broadcast] Failed to close transport: %v", err)
		}
	}
	b.wg.Wait()
}

func (b *Bus) dispatchLoop(inbound <-chan []byte) {
	defer b.wg.Done()
	for data := range inbound {
		var message models.BroadcastMessage
		if err := msgpack.Unmarshal(data, &message); err != nil {
			log.Printf("[Broadcast] Message error: %v", err)
			continue
		}

		// A sender never hears its own broadcast.
		if message.Origin == b.origin {
			continue
		}

		log.Printf("[Broadcast] Received %s", message.Type)
		for _, handler := range b.snapshot(message.Type) {
			handler(message)
		}
		for _, handler := range b.snapshot(models.BroadcastAll) {
			handler(message)
		}
	}
}

func (b *Bus) snapshot(msgType string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	set := b.handlers[msgType]
	if len(set) == 0 {
		return nil
	}
	out := make([]Handler, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	return out
}
