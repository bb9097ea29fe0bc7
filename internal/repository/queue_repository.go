package repository

import (
	"log"
	"time"

	"github.com/Maksimka7878/gorod/internal/models"
	"gorm.io/gorm"
)

// QueueRepository persists deferred actions in the device-local store.
// Every method opens the store lazily on first use and degrades to a no-op
// when the store cannot be opened.
type QueueRepository struct {
	database *Database
}

func NewQueueRepository(database *Database) *QueueRepository {
	return &QueueRepository{database: database}
}

func (r *QueueRepository) open(op string) *gorm.DB {
	db, err := r.database.Open()
	if err != nil {
		log.Printf("[OfflineQueue] %s failed, store unavailable: %v", op, err)
		return nil
	}
	return db
}

// Add appends a new item with a fresh timestamp and zero retries. Returns
// the assigned id, or 0 when the store is unavailable or the write fails.
func (r *QueueRepository) Add(itemType string, payload []byte) uint {
	db := r.open("add")
	if db == nil {
		return 0
	}

	item := &models.QueueItem{
		Type:      itemType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
		Retries:   0,
	}
	if err := db.Create(item).Error; err != nil {
		log.Printf("[OfflineQueue] Failed to add item: %v", err)
		return 0
	}
	log.Printf("[OfflineQueue] Added item %d (type=%s)", item.ID, itemType)
	return item.ID
}

// GetAll returns every stored item in insertion order.
func (r *QueueRepository) GetAll() []models.QueueItem {
	db := r.open("getAll")
	if db == nil {
		return nil
	}

	var items []models.QueueItem
	if err := db.Order("id ASC").Find(&items).Error; err != nil {
		log.Printf("[OfflineQueue] Failed to get items: %v", err)
		return nil
	}
	return items
}

// GetByType returns the stored items carrying the given type tag.
func (r *QueueRepository) GetByType(itemType string) []models.QueueItem {
	db := r.open("getByType")
	if db == nil {
		return nil
	}

	var items []models.QueueItem
	if err := db.Where("type = ?", itemType).Order("id ASC").Find(&items).Error; err != nil {
		log.Printf("[OfflineQueue] Failed to get items by type: %v", err)
		return nil
	}
	return items
}

// Remove deletes an item by id. Absent ids are a silent no-op.
func (r *QueueRepository) Remove(id uint) {
	db := r.open("remove")
	if db == nil {
		return
	}

	if err := db.Delete(&models.QueueItem{}, id).Error; err != nil {
		log.Printf("[OfflineQueue] Failed to remove item %d: %v", id, err)
		return
	}
	log.Printf("[OfflineQueue] Removed item %d", id)
}

// Clear deletes all items.
func (r *QueueRepository) Clear() {
	db := r.open("clear")
	if db == nil {
		return
	}

	if err := db.Where("1 = 1").Delete(&models.QueueItem{}).Error; err != nil {
		log.Printf("[OfflineQueue] Failed to clear: %v", err)
		return
	}
	log.Printf("[OfflineQueue] Cleared")
}

// Count returns the number of stored items, 0 when the store is down.
func (r *QueueRepository) Count() int64 {
	db := r.open("count")
	if db == nil {
		return 0
	}

	var count int64
	if err := db.Model(&models.QueueItem{}).Count(&count).Error; err != nil {
		log.Printf("[OfflineQueue] Failed to count: %v", err)
		return 0
	}
	return count
}

// IncrementRetry bumps the retry counter for an item. This is a plain
// read-modify-write; two contexts racing on the same id may lose one
// increment, which is acceptable for an advisory counter.
func (r *QueueRepository) IncrementRetry(id uint) {
	db := r.open("incrementRetry")
	if db == nil {
		return
	}

	var item models.QueueItem
	if err := db.First(&item, id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("[OfflineQueue] Failed to read item %d: %v", id, err)
		}
		return
	}
	item.Retries++
	if err := db.Save(&item).Error; err != nil {
		log.Printf("[OfflineQueue] Failed to increment retry for %d: %v", id, err)
	}
}

// GetExhausted lists items whose retry counter reached max. The queue never
// drops items on its own; callers decide what to do with these.
func (r *QueueRepository) GetExhausted(max int) []models.QueueItem {
	db := r.open("getExhausted")
	if db == nil {
		return nil
	}

	var items []models.QueueItem
	if err := db.Where("retries >= ?", max).Order("id ASC").Find(&items).Error; err != nil {
		log.Printf("[OfflineQueue] Failed to get exhausted items: %v", err)
		return nil
	}
	return items
}
