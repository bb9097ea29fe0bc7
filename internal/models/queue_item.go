package models

import (
	"time"
)

// Queue item types. The queue is shared between components; each consumer
// owns one type namespace and must leave other types untouched.
const (
	QueueTypeNotification = "notification"
)

// QueueItem represents a deferred action persisted while the device is
// offline. Items survive process restarts and are only removed after the
// owning consumer confirms a successful replay.
type QueueItem struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Type      string `gorm:"not null;index:idx_queue_type" json:"type"`
	Payload   []byte `gorm:"type:blob" json:"payload"`
	Timestamp int64  `gorm:"not null;index:idx_queue_timestamp" json:"timestamp"`

	// Delivery attempts so far. Advisory only: concurrent increments from
	// two contexts may lose an update, which is acceptable because no
	// consumer gates on an exact count.
	Retries int `gorm:"default:0" json:"retries"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QueueItem) TableName() string {
	return "queue_items"
}

// SchemaVersion tracks the queue store schema. A version bump must keep
// existing rows readable or migrate them.
type SchemaVersion struct {
	ID      uint `gorm:"primarykey"`
	Version int  `gorm:"not null"`
}

func (SchemaVersion) TableName() string {
	return "queue_schema_version"
}

// CurrentSchemaVersion is the schema shipped by this build.
const CurrentSchemaVersion = 1
