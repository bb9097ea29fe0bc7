package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Maksimka7878/gorod/internal/models"
)

// loopbackDomain simulates a shared broadcast domain: every published
// envelope is delivered to every member, including the publisher, matching
// redis pub/sub semantics. The Bus origin filter is what must prevent
// self-delivery.
type loopbackDomain struct {
	mu      sync.Mutex
	members []*loopbackTransport
}

func (d *loopbackDomain) join() *loopbackTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &loopbackTransport{domain: d, inbound: make(chan []byte, 64)}
	d.members = append(d.members, t)
	return t
}

type loopbackTransport struct {
	domain  *loopbackDomain
	inbound chan []byte
	closed  bool
}

func (t *loopbackTransport) Publish(_ context.Context, data []byte) error {
	t.domain.mu.Lock()
	defer t.domain.mu.Unlock()
	for _, member := range t.domain.members {
		if !member.closed {
			member.inbound <- data
		}
	}
	return nil
}

func (t *loopbackTransport) Receive() <-chan []byte {
	return t.inbound
}

func (t *loopbackTransport) Close() error {
	t.domain.mu.Lock()
	defer t.domain.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.inbound)
	}
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestBusNoSelfDelivery(t *testing.T) {
	domain := &loopbackDomain{}
	contextA := New(domain.join())
	contextB := New(domain.join())
	defer contextA.Close()
	defer contextB.Close()

	var mu sync.Mutex
	var gotA, gotB int

	contextA.On(models.BroadcastCartUpdate, func(models.BroadcastMessage) {
		mu.Lock()
		gotA++
		mu.Unlock()
	})
	contextB.On(models.BroadcastCartUpdate, func(models.BroadcastMessage) {
		mu.Lock()
		gotB++
		mu.Unlock()
	})

	contextA.Send(models.BroadcastMessage{Type: models.BroadcastCartUpdate})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotB == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if gotA != 0 {
		t.Errorf("sender received its own broadcast %d times, want 0", gotA)
	}
}

func TestBusWildcardReceivesEverything(t *testing.T) {
	domain := &loopbackDomain{}
	sender := New(domain.join())
	receiver := New(domain.join())
	defer sender.Close()
	defer receiver.Close()

	var mu sync.Mutex
	var wildcard, typed []string

	receiver.On(models.BroadcastAll, func(m models.BroadcastMessage) {
		mu.Lock()
		wildcard = append(wildcard, m.Type)
		mu.Unlock()
	})
	receiver.On(models.BroadcastThemeChange, func(m models.BroadcastMessage) {
		mu.Lock()
		typed = append(typed, m.Type)
		mu.Unlock()
	})

	sender.Send(models.BroadcastMessage{Type: models.BroadcastThemeChange})
	sender.Send(models.BroadcastMessage{Type: models.BroadcastUserLogin})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(wildcard) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if len(typed) != 1 || typed[0] != models.BroadcastThemeChange {
		t.Errorf("typed handler calls = %v, want exactly one THEME_CHANGE", typed)
	}
}

func TestBusTimestampStampedBySender(t *testing.T) {
	domain := &loopbackDomain{}
	sender := New(domain.join())
	receiver := New(domain.join())
	defer sender.Close()
	defer receiver.Close()

	var mu sync.Mutex
	var received *models.BroadcastMessage

	receiver.On(models.BroadcastProductUpdate, func(m models.BroadcastMessage) {
		mu.Lock()
		received = &m
		mu.Unlock()
	})

	before := time.Now().UnixMilli()
	sender.Send(models.BroadcastMessage{Type: models.BroadcastProductUpdate})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received != nil
	})

	mu.Lock()
	defer mu.Unlock()
	if received.Timestamp < before {
		t.Errorf("Timestamp = %d, want >= %d", received.Timestamp, before)
	}
	if received.Origin != sender.Origin() {
		t.Errorf("Origin = %q, want sender origin %q", received.Origin, sender.Origin())
	}
}

func TestBusUnsubscribeIsIdempotent(t *testing.T) {
	domain := &loopbackDomain{}
	sender := New(domain.join())
	receiver := New(domain.join())
	defer sender.Close()
	defer receiver.Close()

	var mu sync.Mutex
	var calls int
	sub := receiver.On(models.BroadcastUserLogout, func(models.BroadcastMessage) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	// Second handler proves delivery still works after the first leaves.
	var witnessed int
	receiver.On(models.BroadcastUserLogout, func(models.BroadcastMessage) {
		mu.Lock()
		witnessed++
		mu.Unlock()
	})

	sub.Unsubscribe()
	sub.Unsubscribe()
	receiver.Off(sub)

	sender.Send(models.BroadcastMessage{Type: models.BroadcastUserLogout})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return witnessed == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("unsubscribed handler fired %d times, want 0", calls)
	}
}

func TestBusSendAfterCloseIsNoOp(t *testing.T) {
	domain := &loopbackDomain{}
	b := New(domain.join())
	b.Close()

	if b.IsSupported() {
		t.Error("IsSupported after Close = true, want false")
	}
	// Must not panic.
	b.Send(models.BroadcastMessage{Type: models.BroadcastCartUpdate})
	b.Close()
}

func TestBusWithoutTransportDropsSends(t *testing.T) {
	b := New(nil)
	defer b.Close()

	if b.IsSupported() {
		t.Error("IsSupported without transport = true, want false")
	}
	// Must not panic.
	b.Send(models.BroadcastMessage{Type: models.BroadcastCartUpdate})
}
