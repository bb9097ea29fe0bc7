package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Maksimka7878/gorod/internal/httpx"
	"github.com/Maksimka7878/gorod/internal/models"
	"github.com/Maksimka7878/gorod/internal/validation"
	"github.com/Maksimka7878/gorod/internal/worker"
)

type NotificationHandler struct {
	hub *worker.Hub
}

func NewNotificationHandler(hub *worker.Hub) *NotificationHandler {
	return &NotificationHandler{hub: hub}
}

// Show accepts a notification from a page context's dispatcher and fans it
// out to every attached context.
// POST /api/notifications
func (h *NotificationHandler) Show(c *fiber.Ctx) error {
	var req models.NotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_notification", "Invalid notification body")
	}
	if req.Title == "" {
		req.Title = models.DefaultNotificationTitle
	}
	req.Title = validation.NormalizeTitle(req.Title)
	if !validation.ValidateTitle(req.Title) || !validation.ValidateBody(req.Body) {
		return httpx.BadRequest(c, "invalid_notification", "Title or body out of bounds")
	}
	if req.URL != "" && !validation.ValidateTargetURL(req.URL) {
		return httpx.BadRequest(c, "invalid_target_url", "Target URL not allowed")
	}

	h.hub.Notify(req)
	log.Printf("Notification shown on %d contexts: %s", h.hub.Count(), req.Title)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"delivered_to": h.hub.Count(),
	})
}

// Click routes a notification click: focus the context already at the
// target URL, otherwise open a new window there.
// POST /api/notifications/click
func (h *NotificationHandler) Click(c *fiber.Ctx) error {
	var body struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&body); err != nil {
		return httpx.BadRequest(c, "invalid_click", "Invalid click body")
	}
	if body.URL != "" && !validation.ValidateTargetURL(body.URL) {
		return httpx.BadRequest(c, "invalid_target_url", "Target URL not allowed")
	}

	if err := worker.HandleNotificationClick(h.hub, body.URL); err != nil {
		return httpx.NotFound(c, "no_contexts", "No attached contexts to handle the click")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
