package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Maksimka7878/gorod/internal/models"
	"github.com/gofiber/fiber/v2"
)

// WorkerSurface hands notifications to the background worker over its HTTP
// API. The worker fans them out to attached page contexts and owns the
// click contract.
type WorkerSurface struct {
	baseURL string
	timeout time.Duration
}

// NewWorkerSurface points at the worker's base URL, e.g.
// "http://127.0.0.1:8790".
func NewWorkerSurface(baseURL string) *WorkerSurface {
	return &WorkerSurface{baseURL: baseURL, timeout: 10 * time.Second}
}

// LoadWorkerSurfaceFromEnv builds a surface from WORKER_URL. Returns nil
// when the variable is unset: the worker capability is absent.
func LoadWorkerSurfaceFromEnv() *WorkerSurface {
	baseURL := os.Getenv("WORKER_URL")
	if baseURL == "" {
		return nil
	}
	return NewWorkerSurface(baseURL)
}

// Deliver posts the notification to the worker and waits for acceptance.
func (s *WorkerSurface) Deliver(ctx context.Context, req models.NotificationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	agent := fiber.AcquireAgent()
	defer fiber.ReleaseAgent(agent)

	request := agent.Request()
	request.Header.SetMethod(fiber.MethodPost)
	request.Header.SetContentType(fiber.MIMEApplicationJSON)
	request.SetRequestURI(s.baseURL + "/api/notifications")
	request.SetBody(body)

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}
	agent.Timeout(timeout)

	if err := agent.Parse(); err != nil {
		return fmt.Errorf("reach worker: %w", err)
	}
	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("reach worker: %w", errors.Join(errs...))
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("worker rejected notification: status %d", status)
	}
	return nil
}
