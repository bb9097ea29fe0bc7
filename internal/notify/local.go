package notify

import (
	"log"
	"sync"

	"github.com/Maksimka7878/gorod/internal/models"
)

// LocalNotification is an immediate, same-context notification. Clicking
// it brings the originating context to the foreground, navigates to the
// target URL if one was given, and closes the notification.
type LocalNotification struct {
	Request models.NotificationRequest

	page   PageContext
	mu     sync.Mutex
	closed bool
}

func newLocalNotification(req models.NotificationRequest, page PageContext) *LocalNotification {
	log.Printf("[Notification] Local: %s", req.Title)
	return &LocalNotification{Request: req, page: page}
}

// Click runs the notification click contract. A click on an already
// closed notification does nothing.
func (n *LocalNotification) Click() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	if n.page != nil {
		n.page.Focus()
		if n.Request.URL != "" {
			n.page.Navigate(n.Request.URL)
		}
	}
	n.Close()
}

// Close dismisses the notification.
func (n *LocalNotification) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
}

// Closed reports whether the notification was dismissed.
func (n *LocalNotification) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}
