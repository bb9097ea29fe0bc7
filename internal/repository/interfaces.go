package repository

import (
	"github.com/Maksimka7878/gorod/internal/models"
)

// QueueRepositoryInterface defines the contract for the persistent action
// queue. Implementations absorb storage failures: operations log and return
// zero values instead of propagating errors, so a broken store never
// crashes a caller.
type QueueRepositoryInterface interface {
	// Add appends a new item and returns its id, or 0 if the store is
	// unavailable. The caller must treat 0 as "item lost".
	Add(itemType string, payload []byte) uint
	GetAll() []models.QueueItem
	GetByType(itemType string) []models.QueueItem
	// Remove deletes by id; removing an absent id is a no-op.
	Remove(id uint)
	Clear()
	Count() int64
	// IncrementRetry bumps the advisory retry counter. Not atomic across
	// processes; a concurrent increment may be lost.
	IncrementRetry(id uint)
	// GetExhausted lists items whose retry counter reached max. The queue
	// itself never acts on the counter; this exists for external inspection.
	GetExhausted(max int) []models.QueueItem
}
