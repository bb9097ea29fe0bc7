package notify

import (
	"context"
	"log"
	"sync"

	"github.com/Maksimka7878/gorod/internal/models"
	"github.com/Maksimka7878/gorod/internal/repository"
)

// Permission is the notification permission state. Once the platform
// decides denied, the state is terminal for the session: RequestPermission
// must not prompt again.
type Permission string

const (
	PermissionNotRequested Permission = "not-requested"
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
)

// Prompter asks the user for notification permission, standing in for the
// platform's permission dialog.
type Prompter interface {
	RequestPermission(ctx context.Context) (Permission, error)
}

// Surface delivers a notification for display. The production surface
// forwards to the background worker; tests substitute fakes.
type Surface interface {
	Deliver(ctx context.Context, req models.NotificationRequest) error
}

// PageContext exposes the hooks of the context that created a local
// notification: bringing itself to the foreground and navigating.
type PageContext interface {
	Focus()
	Navigate(url string)
}

// Dispatcher decides the delivery path for every notification request:
// deferred to the offline queue, dropped for lack of permission, or handed
// to the worker surface. One dispatcher is constructed per process and
// shared; tests build isolated instances.
type Dispatcher struct {
	queue    repository.QueueRepositoryInterface
	surface  Surface
	monitor  *Monitor
	prompter Prompter
	page     PageContext

	mu         sync.Mutex
	permission Permission

	unsubscribe func()
}

// NewDispatcher wires the dispatcher and registers the queue flush on
// every offline-to-online transition.
func NewDispatcher(
	queue repository.QueueRepositoryInterface,
	surface Surface,
	monitor *Monitor,
	prompter Prompter,
	page PageContext,
) *Dispatcher {
	d := &Dispatcher{
		queue:      queue,
		surface:    surface,
		monitor:    monitor,
		prompter:   prompter,
		page:       page,
		permission: PermissionNotRequested,
	}
	d.unsubscribe = monitor.Subscribe(func(online bool) {
		if online {
			d.FlushQueue(context.Background())
		}
	})
	return d
}

// IsSupported reports whether a delivery surface is configured.
func (d *Dispatcher) IsSupported() bool {
	return d.surface != nil
}

// GetPermission returns the current permission state.
func (d *Dispatcher) GetPermission() Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission
}

// RequestPermission resolves the permission state, prompting only when the
// state is still undecided. Denied is terminal; prompt failures resolve to
// denied. Never returns an error.
func (d *Dispatcher) RequestPermission(ctx context.Context) Permission {
	d.mu.Lock()
	current := d.permission
	d.mu.Unlock()

	switch current {
	case PermissionGranted:
		return PermissionGranted
	case PermissionDenied:
		return PermissionDenied
	}

	if !d.IsSupported() || d.prompter == nil {
		log.Println("[Notification] Not supported, permission denied")
		d.setPermission(PermissionDenied)
		return PermissionDenied
	}

	result, err := d.prompter.RequestPermission(ctx)
	if err != nil {
		log.Printf("[Notification] Permission request failed: %v", err)
		result = PermissionDenied
	}
	if result != PermissionGranted {
		result = PermissionDenied
	}
	d.setPermission(result)
	log.Printf("[Notification] Permission result: %s", result)
	return result
}

func (d *Dispatcher) setPermission(p Permission) {
	d.mu.Lock()
	d.permission = p
	d.mu.Unlock()
}

// Show delivers a notification, deferring to the offline queue when the
// device has no connectivity. A missing permission is a silent no-op, not
// an error. The returned error reports an actual delivery failure; it is
// already logged and the caller may ignore it.
func (d *Dispatcher) Show(ctx context.Context, req models.NotificationRequest) error {
	if !d.monitor.Online() {
		log.Println("[Notification] Offline, queuing notification")
		payload, err := req.EncodePayload()
		if err != nil {
			log.Printf("[Notification] Failed to encode for queue: %v", err)
			return nil
		}
		if id := d.queue.Add(models.QueueTypeNotification, payload); id == 0 {
			log.Println("[Notification] Queue unavailable, notification lost")
		}
		return nil
	}

	if d.GetPermission() != PermissionGranted {
		log.Println("[Notification] Permission not granted")
		return nil
	}

	return d.deliver(ctx, req)
}

func (d *Dispatcher) deliver(ctx context.Context, req models.NotificationRequest) error {
	if d.surface == nil {
		log.Println("[Notification] No delivery surface configured")
		return nil
	}
	if err := d.surface.Deliver(ctx, req); err != nil {
		log.Printf("[Notification] Failed to show %q: %v", req.Title, err)
		return err
	}
	log.Printf("[Notification] Shown: %s", req.Title)
	return nil
}

// ShowLocal displays an in-process notification immediately, bypassing the
// worker and the offline queue. Returns nil when permission is missing.
func (d *Dispatcher) ShowLocal(req models.NotificationRequest) *LocalNotification {
	if d.GetPermission() != PermissionGranted {
		return nil
	}
	return newLocalNotification(req, d.page)
}

// FlushQueue replays every queued notification in one pass. Successful
// deliveries are removed; failures stay queued with their retry counter
// bumped, to be retried on the next online transition. Items of other
// types belong to other consumers and are left untouched.
func (d *Dispatcher) FlushQueue(ctx context.Context) {
	if d.GetPermission() != PermissionGranted {
		log.Println("[Notification] Skipping queue flush, permission not granted")
		return
	}

	log.Println("[Notification] Back online, flushing queue")
	for _, item := range d.queue.GetByType(models.QueueTypeNotification) {
		req, err := models.DecodeNotificationPayload(item.Payload)
		if err != nil {
			log.Printf("[Notification] Dropping corrupt queue item %d: %v", item.ID, err)
			d.queue.Remove(item.ID)
			continue
		}

		if err := d.deliver(ctx, req); err != nil {
			d.queue.IncrementRetry(item.ID)
			continue
		}
		d.queue.Remove(item.ID)
	}
}

// Close detaches the dispatcher from the connectivity monitor.
func (d *Dispatcher) Close() {
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
}
