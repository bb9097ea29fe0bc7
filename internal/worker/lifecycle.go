package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Maksimka7878/gorod/internal/cache"
	"github.com/Maksimka7878/gorod/internal/cacheproxy"
	"github.com/Maksimka7878/gorod/internal/models"
)

// RegistrationKey is the shared record other contexts read to learn the
// worker's lifecycle state without talking to the worker directly.
const RegistrationKey = "worker:registration"

// Lifecycle drives one worker process through installing → waiting →
// active. A fresh install activates immediately; an install over a
// different active version parks in waiting until SkipWaiting or a
// restart of the old version's clients.
type Lifecycle struct {
	version string
	store   cache.Store
	hub     *Hub
	source  cacheproxy.ShellSource

	mu    sync.Mutex
	state models.RegistrationState
}

// NewLifecycle prepares a lifecycle for the given version. Nothing is
// installed until Install is called.
func NewLifecycle(version string, store cache.Store, hub *Hub, source cacheproxy.ShellSource) *Lifecycle {
	return &Lifecycle{
		version: version,
		store:   store,
		hub:     hub,
		source:  source,
		state:   models.RegistrationNone,
	}
}

// Version returns the version this lifecycle was built for.
func (l *Lifecycle) Version() string {
	return l.version
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() models.RegistrationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Install precaches the shell and either activates immediately (no other
// version active) or parks in waiting behind the currently active one.
func (l *Lifecycle) Install(ctx context.Context) error {
	l.mu.Lock()
	if l.state != models.RegistrationNone {
		state := l.state
		l.mu.Unlock()
		return fmt.Errorf("install from state %s", state)
	}
	l.state = models.RegistrationInstalling
	l.mu.Unlock()

	log.Printf("[Worker] Installing version %s", l.version)
	previous := ReadRegistration(l.store)

	// While another version is active it keeps owning the shared record.
	// Publishing "installing" here would stomp it for the whole precache
	// window, and a crash mid-install would lose the owner entirely.
	overActive := previous.State == models.RegistrationActive &&
		previous.Version != "" && previous.Version != l.version
	if !overActive {
		l.writeRegistration(previous)
	}

	if l.source != nil {
		count, err := cacheproxy.Precache(ctx, l.store, l.source, l.version)
		if err != nil {
			log.Printf("[Worker] Precache failed: %v", err)
		} else {
			log.Printf("[Worker] Precached %d shell assets for version %s", count, l.version)
		}
	}

	if overActive {
		l.mu.Lock()
		l.state = models.RegistrationWaiting
		l.mu.Unlock()
		l.writeRegistration(previous)
		log.Printf("[Worker] Version %s installed, waiting behind active %s", l.version, previous.Version)
		if l.hub != nil {
			l.hub.UpdateAvailable(l.version)
		}
		return nil
	}

	return l.Activate(ctx)
}

// SkipWaiting promotes a waiting worker straight to activation.
func (l *Lifecycle) SkipWaiting(ctx context.Context) error {
	l.mu.Lock()
	if l.state != models.RegistrationWaiting {
		state := l.state
		l.mu.Unlock()
		log.Printf("[Worker] SkipWaiting ignored in state %s", state)
		return nil
	}
	l.mu.Unlock()

	log.Printf("[Worker] Skipping waiting phase for version %s", l.version)
	return l.Activate(ctx)
}

// Activate takes control: drops partitions of superseded versions, writes
// the registration record and claims every attached context.
func (l *Lifecycle) Activate(_ context.Context) error {
	l.mu.Lock()
	switch l.state {
	case models.RegistrationInstalling, models.RegistrationWaiting:
	default:
		state := l.state
		l.mu.Unlock()
		return fmt.Errorf("activate from state %s", state)
	}
	l.state = models.RegistrationActive
	l.mu.Unlock()

	removed := cacheproxy.CleanupOutdated(l.store, l.version)
	if len(removed) > 0 {
		log.Printf("[Worker] Removed outdated precache partitions: %v", removed)
	}

	l.writeRegistration(ReadRegistration(l.store))
	log.Printf("[Worker] Version %s activated", l.version)

	if l.hub != nil {
		l.hub.Claim(l.version)
	}
	return nil
}

// SetPushSubscribed records whether a push subscription exists.
func (l *Lifecycle) SetPushSubscribed(subscribed bool) {
	l.writeRegistrationWith(func(reg *models.Registration) {
		reg.PushSubscribed = subscribed
	})
}

// Registration returns the record this lifecycle would publish.
func (l *Lifecycle) Registration() models.Registration {
	l.mu.Lock()
	state := l.state
	l.mu.Unlock()

	reg := ReadRegistration(l.store)
	switch state {
	case models.RegistrationWaiting:
		// The previously active version stays in charge; we only
		// advertise ourselves as waiting.
		reg.WaitingVersion = l.version
		if reg.State == "" {
			reg.State = models.RegistrationWaiting
		}
	case models.RegistrationNone:
		reg = models.Registration{State: models.RegistrationNone}
	default:
		reg.Version = l.version
		reg.State = state
		reg.WaitingVersion = ""
	}
	return reg
}

// writeRegistration publishes the current state, carrying over fields the
// lifecycle does not own from the previous record.
func (l *Lifecycle) writeRegistration(previous models.Registration) {
	l.mu.Lock()
	state := l.state
	l.mu.Unlock()

	reg := models.Registration{
		Version:        l.version,
		State:          state,
		PushSubscribed: previous.PushSubscribed,
		UpdatedAt:      time.Now(),
	}
	if state == models.RegistrationWaiting {
		// Keep the active version as the record owner.
		reg.Version = previous.Version
		reg.State = previous.State
		reg.WaitingVersion = l.version
	}
	l.publish(reg)
}

func (l *Lifecycle) writeRegistrationWith(mutate func(*models.Registration)) {
	reg := ReadRegistration(l.store)
	mutate(&reg)
	reg.UpdatedAt = time.Now()
	l.publish(reg)
}

func (l *Lifecycle) publish(reg models.Registration) {
	if l.store == nil {
		return
	}
	data, err := msgpack.Marshal(reg)
	if err != nil {
		log.Printf("[Worker] Failed to encode registration: %v", err)
		return
	}
	if err := l.store.Set(RegistrationKey, data, 0); err != nil {
		log.Printf("[Worker] Failed to write registration: %v", err)
	}
}

// ReadRegistration loads the shared registration record. Absent store or
// record yields the zero "none" registration, never an error.
func ReadRegistration(store cache.Store) models.Registration {
	none := models.Registration{State: models.RegistrationNone}
	if store == nil {
		return none
	}
	data, err := store.Get(RegistrationKey)
	if err != nil || len(data) == 0 {
		return none
	}
	var reg models.Registration
	if err := msgpack.Unmarshal(data, &reg); err != nil {
		log.Printf("[Worker] Corrupt registration record: %v", err)
		return none
	}
	return reg
}
