package diagnostics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Maksimka7878/gorod/internal/capability"
	"github.com/Maksimka7878/gorod/internal/cache"
	"github.com/Maksimka7878/gorod/internal/models"
	"github.com/Maksimka7878/gorod/internal/notify"
	"github.com/Maksimka7878/gorod/internal/worker"
)

// fakeQueue only needs Count for diagnostics.
type fakeQueue struct{ count int64 }

func (q *fakeQueue) Add(string, []byte) uint             { return 0 }
func (q *fakeQueue) GetAll() []models.QueueItem          { return nil }
func (q *fakeQueue) GetByType(string) []models.QueueItem { return nil }
func (q *fakeQueue) Remove(uint)                         {}
func (q *fakeQueue) Clear()                              {}
func (q *fakeQueue) Count() int64                        { return q.count }
func (q *fakeQueue) IncrementRetry(uint)                 {}
func (q *fakeQueue) GetExhausted(int) []models.QueueItem { return nil }

type fakeConnectivity struct{ online bool }

func (c *fakeConnectivity) Online() bool { return c.online }

type fakePermission struct{ state notify.Permission }

func (p *fakePermission) GetPermission() notify.Permission { return p.state }

type fakeVersions struct {
	reg models.Registration
	err error
}

func (v *fakeVersions) Version(context.Context) (models.Registration, error) {
	return v.reg, v.err
}

func TestSnapshotToleratesAbsentCollaborators(t *testing.T) {
	r := NewReporter(capability.Set{}, nil, nil, nil, nil, nil, "test-agent")

	d := r.Snapshot()

	if d.StorageSupported || d.ChannelSupported || d.WorkerSupported {
		t.Errorf("capabilities = %+v, want all false", d)
	}
	if d.IsRegistered || d.RegistrationState != models.RegistrationNone {
		t.Errorf("registration = %v/%s, want none", d.IsRegistered, d.RegistrationState)
	}
	if d.Permission != string(notify.PermissionNotRequested) {
		t.Errorf("permission = %q, want not-requested", d.Permission)
	}
	if d.QueueDepth != 0 || d.IsOnline || len(d.CacheNames) != 0 {
		t.Errorf("snapshot = %+v, want zero values", d)
	}
	if d.UserAgent != "test-agent" || d.Timestamp.IsZero() {
		t.Errorf("metadata missing: %+v", d)
	}
}

func TestSnapshotReadsSharedState(t *testing.T) {
	store := cache.NewMemoryStore()
	hub := worker.NewHub()
	l := worker.NewLifecycle("1.4.0", store, hub, nil)
	if err := l.Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	l.SetPushSubscribed(true)

	images := cache.NewPartition(store, "images", 100, 30*24*time.Hour)
	images.Put("/img/a.png", &cache.Entry{Status: 200, Body: []byte("a")})

	caps := capability.Set{Storage: true, Channel: true, Worker: true, Notifications: true}
	r := NewReporter(caps, store, &fakeQueue{count: 3},
		&fakeConnectivity{online: true}, &fakePermission{state: notify.PermissionGranted}, nil, "test-agent")

	d := r.Snapshot()

	if !d.IsRegistered || d.RegistrationState != models.RegistrationActive {
		t.Errorf("registration = %v/%s, want active", d.IsRegistered, d.RegistrationState)
	}
	if !d.PushSubscription {
		t.Error("push subscription not reflected")
	}
	if d.Permission != string(notify.PermissionGranted) {
		t.Errorf("permission = %q, want granted", d.Permission)
	}
	if d.QueueDepth != 3 || !d.IsOnline {
		t.Errorf("snapshot = %+v", d)
	}
	if !containsName(d.CacheNames, "images") {
		t.Errorf("cache names = %v, want images listed", d.CacheNames)
	}
}

func TestCheckForUpdate(t *testing.T) {
	r := NewReporter(capability.Set{}, nil, nil, nil, nil, nil, "")
	if found, err := r.CheckForUpdate(context.Background()); err != nil || found {
		t.Errorf("absent worker: found=%v err=%v, want false nil", found, err)
	}

	r = NewReporter(capability.Set{}, nil, nil, nil, nil,
		&fakeVersions{reg: models.Registration{Version: "1.0.0", WaitingVersion: "2.0.0"}}, "")
	if found, err := r.CheckForUpdate(context.Background()); err != nil || !found {
		t.Errorf("waiting version: found=%v err=%v, want true nil", found, err)
	}

	r = NewReporter(capability.Set{}, nil, nil, nil, nil,
		&fakeVersions{err: errors.New("connection refused")}, "")
	if _, err := r.CheckForUpdate(context.Background()); err == nil {
		t.Error("unreachable worker: want error")
	}
}

func TestClearAllCachesDestroysEverything(t *testing.T) {
	store := cache.NewMemoryStore()
	for _, name := range []string{"images", "fonts", "api"} {
		p := cache.NewPartition(store, name, 0, 0)
		p.Put("/x", &cache.Entry{Status: 200, Body: []byte("x")})
	}

	r := NewReporter(capability.Set{}, store, nil, nil, nil, nil, "")
	if got := r.ClearAllCaches(); got != 3 {
		t.Errorf("ClearAllCaches = %d, want 3", got)
	}
	if names := cache.PartitionNames(store); len(names) != 0 {
		t.Errorf("partitions after wipe = %v, want none", names)
	}
}

func TestFormatRendersChecks(t *testing.T) {
	d := models.Diagnostics{
		StorageSupported:  true,
		RegistrationState: models.RegistrationActive,
		IsRegistered:      true,
		Permission:        "granted",
		QueueDepth:        2,
		CacheNames:        []string{"images", "static"},
		UserAgent:         "test-agent",
		Timestamp:         time.Now(),
	}

	out := Format(d)

	for _, want := range []string{"✅", "❌", "granted", "images, static", "Queue depth:        2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format output missing %q:\n%s", want, out)
		}
	}
}

func containsName(names []string, want string) bool {
	for _, name := range names {
		if name == want {
			return true
		}
	}
	return false
}
