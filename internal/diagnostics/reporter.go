package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Maksimka7878/gorod/internal/capability"
	"github.com/Maksimka7878/gorod/internal/cache"
	"github.com/Maksimka7878/gorod/internal/models"
	"github.com/Maksimka7878/gorod/internal/notify"
	"github.com/Maksimka7878/gorod/internal/repository"
	"github.com/Maksimka7878/gorod/internal/worker"
)

// ConnectivitySource reports whether this context believes it is online.
type ConnectivitySource interface {
	Online() bool
}

// PermissionSource exposes the notification permission state.
type PermissionSource interface {
	GetPermission() notify.Permission
}

// VersionSource asks the running worker for its registration, forcing it
// to re-read its version.
type VersionSource interface {
	Version(ctx context.Context) (models.Registration, error)
}

// Reporter assembles point-in-time health snapshots of the offline
// subsystem. Every collaborator may be nil; absent ones show up as zero
// values in the snapshot rather than errors.
type Reporter struct {
	caps       capability.Set
	store      cache.Store
	queue      repository.QueueRepositoryInterface
	monitor    ConnectivitySource
	permission PermissionSource
	versions   VersionSource
	userAgent  string
	nowFunc    func() time.Time
}

func NewReporter(caps capability.Set, store cache.Store, queue repository.QueueRepositoryInterface,
	monitor ConnectivitySource, permission PermissionSource, versions VersionSource, userAgent string) *Reporter {
	return &Reporter{
		caps:       caps,
		store:      store,
		queue:      queue,
		monitor:    monitor,
		permission: permission,
		versions:   versions,
		userAgent:  userAgent,
		nowFunc:    time.Now,
	}
}

// Snapshot captures the current state. Never errors: anything unreachable
// reads as its zero value.
func (r *Reporter) Snapshot() models.Diagnostics {
	reg := worker.ReadRegistration(r.store)

	d := models.Diagnostics{
		StorageSupported:  r.caps.Storage,
		WorkerSupported:   r.caps.Worker,
		ChannelSupported:  r.caps.Channel,
		IsRegistered:      reg.State != models.RegistrationNone,
		RegistrationState: reg.State,
		Permission:        string(notify.PermissionNotRequested),
		PushSubscription:  reg.PushSubscribed,
		IsStandalone:      r.caps.Standalone,
		CacheNames:        cache.PartitionNames(r.store),
		UserAgent:         r.userAgent,
		Timestamp:         r.nowFunc(),
	}
	if r.permission != nil {
		d.Permission = string(r.permission.GetPermission())
	}
	if r.monitor != nil {
		d.IsOnline = r.monitor.Online()
	}
	if r.queue != nil {
		d.QueueDepth = r.queue.Count()
	}
	return d
}

// CheckForUpdate asks the worker to re-read its version and reports
// whether a new one is waiting. An absent worker means no update.
func (r *Reporter) CheckForUpdate(ctx context.Context) (bool, error) {
	if r.versions == nil {
		log.Println("[Diagnostics] Update check skipped, no worker")
		return false, nil
	}
	reg, err := r.versions.Version(ctx)
	if err != nil {
		return false, fmt.Errorf("check for update: %w", err)
	}
	return reg.WaitingVersion != "", nil
}

// ClearAllCaches destroys every registered cache partition. Destructive;
// returns how many partitions were removed.
func (r *Reporter) ClearAllCaches() int {
	names := cache.PartitionNames(r.store)
	for _, name := range names {
		cache.DestroyPartition(r.store, name)
	}
	if len(names) > 0 {
		log.Printf("[Diagnostics] Cleared %d cache partitions", len(names))
	}
	return len(names)
}

// Format renders a snapshot for humans, one line per check.
func Format(d models.Diagnostics) string {
	var b strings.Builder
	b.WriteString("=== Offline Subsystem Diagnostics ===\n")
	fmt.Fprintf(&b, "Durable storage:    %s\n", mark(d.StorageSupported))
	fmt.Fprintf(&b, "Broadcast channel:  %s\n", mark(d.ChannelSupported))
	fmt.Fprintf(&b, "Background worker:  %s\n", mark(d.WorkerSupported))
	fmt.Fprintf(&b, "Registered:         %s (%s)\n", mark(d.IsRegistered), d.RegistrationState)
	fmt.Fprintf(&b, "Notifications:      %s\n", d.Permission)
	fmt.Fprintf(&b, "Push subscription:  %s\n", mark(d.PushSubscription))
	fmt.Fprintf(&b, "Online:             %s\n", mark(d.IsOnline))
	fmt.Fprintf(&b, "Standalone:         %s\n", mark(d.IsStandalone))
	fmt.Fprintf(&b, "Queue depth:        %d\n", d.QueueDepth)
	if len(d.CacheNames) > 0 {
		fmt.Fprintf(&b, "Caches (%d):         %s\n", len(d.CacheNames), strings.Join(d.CacheNames, ", "))
	} else {
		b.WriteString("Caches (0)\n")
	}
	fmt.Fprintf(&b, "User agent:         %s\n", d.UserAgent)
	fmt.Fprintf(&b, "Captured:           %s\n", d.Timestamp.Format(time.RFC3339))
	return b.String()
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

// WorkerVersionClient reaches the worker's version endpoint over HTTP.
type WorkerVersionClient struct {
	baseURL string
	timeout time.Duration
}

func NewWorkerVersionClient(baseURL string) *WorkerVersionClient {
	return &WorkerVersionClient{baseURL: baseURL, timeout: 10 * time.Second}
}

// LoadVersionClientFromEnv builds a client from WORKER_URL, nil if unset.
func LoadVersionClientFromEnv() *WorkerVersionClient {
	baseURL := os.Getenv("WORKER_URL")
	if baseURL == "" {
		return nil
	}
	return NewWorkerVersionClient(baseURL)
}

// Version fetches the worker's current registration.
func (c *WorkerVersionClient) Version(ctx context.Context) (models.Registration, error) {
	agent := fiber.AcquireAgent()
	defer fiber.ReleaseAgent(agent)

	request := agent.Request()
	request.Header.SetMethod(fiber.MethodGet)
	request.SetRequestURI(c.baseURL + "/api/version")

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return models.Registration{}, context.DeadlineExceeded
	}
	agent.Timeout(timeout)

	if err := agent.Parse(); err != nil {
		return models.Registration{}, fmt.Errorf("reach worker: %w", err)
	}
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return models.Registration{}, fmt.Errorf("reach worker: %w", errors.Join(errs...))
	}
	if status != fiber.StatusOK {
		return models.Registration{}, fmt.Errorf("worker version endpoint: status %d", status)
	}

	var reg models.Registration
	if err := json.Unmarshal(body, &reg); err != nil {
		return models.Registration{}, fmt.Errorf("decode worker version: %w", err)
	}
	return reg, nil
}
