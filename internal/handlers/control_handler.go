package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Maksimka7878/gorod/internal/httpx"
	"github.com/Maksimka7878/gorod/internal/worker"
)

type ControlHandler struct {
	control   *worker.Control
	lifecycle *worker.Lifecycle
}

func NewControlHandler(control *worker.Control, lifecycle *worker.Lifecycle) *ControlHandler {
	return &ControlHandler{
		control:   control,
		lifecycle: lifecycle,
	}
}

// Control accepts a reserved-shape control message from any page context:
// SKIP_WAITING promotes a waiting version, BROADCAST relays the embedded
// message onto the bus.
// POST /api/control
func (h *ControlHandler) Control(c *fiber.Ctx) error {
	if err := h.control.Handle(c.Context(), c.Body()); err != nil {
		log.Printf("Control message rejected: %v", err)
		return httpx.BadRequest(c, "invalid_control", err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Version reports the worker's registration, re-read on every call so
// clients can poll it to detect a waiting update.
// GET /api/version
func (h *ControlHandler) Version(c *fiber.Ctx) error {
	return c.JSON(h.lifecycle.Registration())
}
