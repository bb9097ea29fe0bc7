package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/Maksimka7878/gorod/internal/bus"
	"github.com/Maksimka7878/gorod/internal/models"
	"github.com/Maksimka7878/gorod/internal/validation"
)

// ControlMessage is the reserved envelope page contexts use to steer the
// worker, either over the bus or through the HTTP control endpoint.
type ControlMessage struct {
	Type string `json:"type"`
	// Message is relayed onto the bus verbatim for BROADCAST controls.
	Message *models.BroadcastMessage `json:"message,omitempty"`
}

// Control message types.
const (
	ControlSkipWaiting = models.BroadcastSkipWaiting
	ControlBroadcast   = "BROADCAST"
)

// Control connects the lifecycle to the broadcast bus: it listens for
// SKIP_WAITING from any context and announces lifecycle transitions so
// contexts without a hub connection still learn about them.
type Control struct {
	lifecycle *Lifecycle
	bus       *bus.Bus
	sub       *bus.Subscription
}

func NewControl(lifecycle *Lifecycle, b *bus.Bus) *Control {
	c := &Control{lifecycle: lifecycle, bus: b}
	if b != nil {
		c.sub = b.On(models.BroadcastSkipWaiting, func(models.BroadcastMessage) {
			c.SkipWaiting(context.Background())
		})
	}
	return c
}

// Install runs the lifecycle install and announces the outcome.
func (c *Control) Install(ctx context.Context) error {
	if err := c.lifecycle.Install(ctx); err != nil {
		return err
	}
	c.announce()
	return nil
}

// SkipWaiting promotes a waiting worker and announces the activation.
func (c *Control) SkipWaiting(ctx context.Context) error {
	before := c.lifecycle.State()
	if err := c.lifecycle.SkipWaiting(ctx); err != nil {
		return err
	}
	if before == models.RegistrationWaiting {
		c.announce()
	}
	return nil
}

// Handle processes a control message from either transport.
func (c *Control) Handle(ctx context.Context, data []byte) error {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode control message: %w", err)
	}

	switch msg.Type {
	case ControlSkipWaiting:
		return c.SkipWaiting(ctx)
	case ControlBroadcast:
		if msg.Message == nil {
			return fmt.Errorf("broadcast control without embedded message")
		}
		if !validation.ValidateBroadcastType(msg.Message.Type) {
			return fmt.Errorf("invalid broadcast type %q", msg.Message.Type)
		}
		if c.bus == nil {
			log.Println("[Worker] Broadcast control dropped, no channel")
			return nil
		}
		c.bus.Send(*msg.Message)
		return nil
	default:
		return fmt.Errorf("unknown control type %q", msg.Type)
	}
}

// Close detaches the bus listener.
func (c *Control) Close() {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
}

func (c *Control) announce() {
	if c.bus == nil {
		return
	}
	version := []byte(c.lifecycle.Version())
	switch c.lifecycle.State() {
	case models.RegistrationActive:
		c.bus.Send(models.BroadcastMessage{Type: models.BroadcastWorkerActivated, Payload: version})
	case models.RegistrationWaiting:
		c.bus.Send(models.BroadcastMessage{Type: models.BroadcastUpdateAvailable, Payload: version})
	}
}
