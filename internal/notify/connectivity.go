package notify

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Monitor tracks connectivity for one context and tells listeners about
// transitions. State changes come from SetOnline (explicit, e.g. a socket
// dropping) or from the optional active probe.
type Monitor struct {
	mu        sync.Mutex
	online    bool
	listeners map[uint64]func(online bool)
	nextID    uint64

	probe func() bool
	stop  chan struct{}
	once  sync.Once
}

// NewMonitor starts in the given state with the default HTTP probe unset.
func NewMonitor(online bool) *Monitor {
	return &Monitor{
		online:    online,
		listeners: make(map[uint64]func(bool)),
		stop:      make(chan struct{}),
	}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline updates the state and notifies listeners on a transition.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]func(bool), 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	if online {
		log.Println("[Connectivity] Back online")
	} else {
		log.Println("[Connectivity] Went offline")
	}
	for _, listener := range listeners {
		listener(online)
	}
}

// Subscribe registers a transition listener and returns an idempotent
// unsubscribe function.
func (m *Monitor) Subscribe(listener func(online bool)) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = listener
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// StartProbing polls the given URL and feeds the result into SetOnline.
// An empty URL disables probing.
func (m *Monitor) StartProbing(probeURL string, interval time.Duration) {
	if probeURL == "" {
		return
	}
	m.mu.Lock()
	if m.probe == nil {
		m.probe = func() bool { return probeReachable(probeURL) }
	}
	probe := m.probe
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.SetOnline(probe())
			}
		}
	}()
}

// SetProbe overrides the reachability check (used by tests).
func (m *Monitor) SetProbe(probe func() bool) {
	m.mu.Lock()
	m.probe = probe
	m.mu.Unlock()
}

// Close stops the probe loop. Listeners stay registered but no further
// probe-driven transitions fire.
func (m *Monitor) Close() {
	m.once.Do(func() { close(m.stop) })
}

func probeReachable(url string) bool {
	agent := fiber.AcquireAgent()
	defer fiber.ReleaseAgent(agent)

	request := agent.Request()
	request.Header.SetMethod(fiber.MethodHead)
	request.SetRequestURI(url)
	agent.Timeout(5 * time.Second)

	if err := agent.Parse(); err != nil {
		return false
	}
	status, _, errs := agent.Bytes()
	return len(errs) == 0 && status > 0
}
