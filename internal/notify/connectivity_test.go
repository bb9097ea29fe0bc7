package notify

import (
	"sync"
	"testing"
	"time"
)

func TestMonitorNotifiesOnTransitionOnly(t *testing.T) {
	m := NewMonitor(true)
	defer m.Close()

	var mu sync.Mutex
	var seen []bool
	m.Subscribe(func(online bool) {
		mu.Lock()
		seen = append(seen, online)
		mu.Unlock()
	})

	m.SetOnline(true) // no transition
	m.SetOnline(false)
	m.SetOnline(false) // no transition
	m.SetOnline(true)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != false || seen[1] != true {
		t.Errorf("transitions = %v, want [false true]", seen)
	}
}

func TestMonitorUnsubscribeIsIdempotent(t *testing.T) {
	m := NewMonitor(true)
	defer m.Close()

	calls := 0
	unsubscribe := m.Subscribe(func(bool) { calls++ })

	m.SetOnline(false)
	unsubscribe()
	unsubscribe()
	m.SetOnline(true)

	if calls != 1 {
		t.Errorf("listener calls = %d, want 1", calls)
	}
}

func TestMonitorProbeDrivesState(t *testing.T) {
	m := NewMonitor(true)
	defer m.Close()

	var mu sync.Mutex
	reachable := false
	m.SetProbe(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reachable
	})
	m.StartProbing("http://127.0.0.1:1/health", 5*time.Millisecond)

	waitForState(t, m, false)

	mu.Lock()
	reachable = true
	mu.Unlock()

	waitForState(t, m, true)
}

func waitForState(t *testing.T, m *Monitor, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Online() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("monitor never reached online=%v", want)
}
