package repository

import (
	"path/filepath"
	"testing"

	"github.com/Maksimka7878/gorod/internal/models"
	"github.com/Maksimka7878/gorod/internal/testutil"
)

func newTestRepository(t *testing.T) (*QueueRepository, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "queue.db")
	return NewQueueRepository(NewDatabase(dsn)), dsn
}

func TestQueueAddAssignsIncreasingIDs(t *testing.T) {
	repo, _ := newTestRepository(t)

	var last uint
	for i := 0; i < 5; i++ {
		id := repo.Add(models.QueueTypeNotification, []byte("payload"))
		if id == 0 {
			t.Fatalf("Add returned 0, want a real id")
		}
		if id <= last {
			t.Errorf("id %d not greater than previous %d", id, last)
		}
		last = id
	}

	if got := repo.Count(); got != 5 {
		t.Errorf("Count = %d, want 5", got)
	}
}

func TestQueueDurabilityAcrossReopen(t *testing.T) {
	repo, dsn := newTestRepository(t)

	id1 := repo.Add("notification", []byte("first"))
	id2 := repo.Add("cart", []byte("second"))
	repo.Remove(id1)

	// Simulate a process restart: a fresh Database over the same file.
	reopened := NewQueueRepository(NewDatabase(dsn))

	items := reopened.GetAll()
	if len(items) != 1 {
		t.Fatalf("GetAll after reopen = %d items, want 1", len(items))
	}
	if items[0].ID != id2 || items[0].Type != "cart" || string(items[0].Payload) != "second" {
		t.Errorf("surviving item = %+v, want id=%d type=cart payload=second", items[0], id2)
	}
}

func TestQueueItemRemainsUntilRemoved(t *testing.T) {
	repo, _ := newTestRepository(t)

	seed := testutil.NewTestHelper(t).CreateTestQueueItem(0, "", nil)
	id := repo.Add(seed.Type, seed.Payload)

	// A failed replay only increments the counter; the item must stay.
	repo.IncrementRetry(id)
	repo.IncrementRetry(id)

	items := repo.GetAll()
	if len(items) != 1 {
		t.Fatalf("GetAll = %d items, want 1", len(items))
	}
	if items[0].Retries != 2 {
		t.Errorf("Retries = %d, want 2", items[0].Retries)
	}
	if items[0].Type != seed.Type || string(items[0].Payload) != string(seed.Payload) {
		t.Errorf("stored item = %+v, want type %q with original payload", items[0], seed.Type)
	}

	repo.Remove(id)
	if got := repo.Count(); got != 0 {
		t.Errorf("Count after Remove = %d, want 0", got)
	}
}

func TestQueueGetByTypeFilters(t *testing.T) {
	repo, _ := newTestRepository(t)

	repo.Add("notification", []byte("a"))
	repo.Add("cart", []byte("b"))
	repo.Add("notification", []byte("c"))

	notifications := repo.GetByType("notification")
	if len(notifications) != 2 {
		t.Fatalf("GetByType(notification) = %d items, want 2", len(notifications))
	}
	for _, item := range notifications {
		if item.Type != "notification" {
			t.Errorf("unexpected type %q in filtered view", item.Type)
		}
	}

	if got := len(repo.GetByType("unknown")); got != 0 {
		t.Errorf("GetByType(unknown) = %d items, want 0", got)
	}
}

func TestQueueRemoveAbsentIDIsNoOp(t *testing.T) {
	repo, _ := newTestRepository(t)

	repo.Add("notification", []byte("x"))
	repo.Remove(9999)

	if got := repo.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestQueueClear(t *testing.T) {
	repo, _ := newTestRepository(t)

	repo.Add("notification", []byte("a"))
	repo.Add("notification", []byte("b"))
	repo.Clear()

	if got := repo.Count(); got != 0 {
		t.Errorf("Count after Clear = %d, want 0", got)
	}
}

func TestQueueGetExhausted(t *testing.T) {
	repo, _ := newTestRepository(t)

	id := repo.Add("notification", []byte("tired"))
	repo.Add("notification", []byte("fresh"))
	for i := 0; i < 3; i++ {
		repo.IncrementRetry(id)
	}

	exhausted := repo.GetExhausted(3)
	if len(exhausted) != 1 || exhausted[0].ID != id {
		t.Errorf("GetExhausted(3) = %+v, want single item %d", exhausted, id)
	}
}

func TestQueueDegradesWhenStoreUnavailable(t *testing.T) {
	// A directory path cannot be opened as a SQLite file.
	repo := NewQueueRepository(NewDatabase(t.TempDir()))

	if id := repo.Add("notification", []byte("lost")); id != 0 {
		t.Errorf("Add on broken store = %d, want 0", id)
	}
	if items := repo.GetAll(); items != nil {
		t.Errorf("GetAll on broken store = %v, want nil", items)
	}
	if got := repo.Count(); got != 0 {
		t.Errorf("Count on broken store = %d, want 0", got)
	}
	// These must not panic.
	repo.Remove(1)
	repo.Clear()
	repo.IncrementRetry(1)
}
