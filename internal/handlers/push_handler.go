package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Maksimka7878/gorod/internal/httpx"
	"github.com/Maksimka7878/gorod/internal/worker"
)

type PushHandler struct {
	hub       *worker.Hub
	lifecycle *worker.Lifecycle
}

func NewPushHandler(hub *worker.Hub, lifecycle *worker.Lifecycle) *PushHandler {
	return &PushHandler{
		hub:       hub,
		lifecycle: lifecycle,
	}
}

// ReceivePush accepts a push message and displays it on every attached
// context. Guarded by the push JWT middleware.
// POST /api/push
func (h *PushHandler) ReceivePush(c *fiber.Ctx) error {
	req, err := worker.HandlePush(h.hub, c.Body())
	if err != nil {
		return httpx.BadRequest(c, "invalid_push_payload", err.Error())
	}

	sender, _ := c.Locals("sender").(string)
	log.Printf("Push from %s delivered to %d contexts: %s", sender, h.hub.Count(), req.Title)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"delivered_to": h.hub.Count(),
		"title":        req.Title,
	})
}

// Subscribe records that a push subscription now exists for this device.
// POST /api/push/subscription
func (h *PushHandler) Subscribe(c *fiber.Ctx) error {
	h.lifecycle.SetPushSubscribed(true)
	return c.SendStatus(fiber.StatusNoContent)
}

// Unsubscribe drops the push subscription flag.
// DELETE /api/push/subscription
func (h *PushHandler) Unsubscribe(c *fiber.Ctx) error {
	h.lifecycle.SetPushSubscribed(false)
	return c.SendStatus(fiber.StatusNoContent)
}
