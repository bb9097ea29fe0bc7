package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Maksimka7878/gorod/internal/diagnostics"
	"github.com/Maksimka7878/gorod/internal/httpx"
)

type DiagnosticsHandler struct {
	reporter *diagnostics.Reporter
}

func NewDiagnosticsHandler(reporter *diagnostics.Reporter) *DiagnosticsHandler {
	return &DiagnosticsHandler{reporter: reporter}
}

// Snapshot returns the current health snapshot as JSON.
// GET /api/diagnostics
func (h *DiagnosticsHandler) Snapshot(c *fiber.Ctx) error {
	return c.JSON(h.reporter.Snapshot())
}

// Report renders the snapshot for humans.
// GET /api/diagnostics/report
func (h *DiagnosticsHandler) Report(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(diagnostics.Format(h.reporter.Snapshot()))
}

// CheckUpdate forces a version re-read and reports whether an update is
// waiting.
// POST /api/diagnostics/check-update
func (h *DiagnosticsHandler) CheckUpdate(c *fiber.Ctx) error {
	found, err := h.reporter.CheckForUpdate(c.Context())
	if err != nil {
		log.Printf("Update check failed: %v", err)
		return httpx.BadGateway(c, "update_check_failed", "Worker unreachable")
	}
	return c.JSON(fiber.Map{"update_available": found})
}

// ClearCaches wipes every cache partition. Destructive.
// DELETE /api/diagnostics/caches
func (h *DiagnosticsHandler) ClearCaches(c *fiber.Ctx) error {
	removed := h.reporter.ClearAllCaches()
	return c.JSON(fiber.Map{"removed": removed})
}
