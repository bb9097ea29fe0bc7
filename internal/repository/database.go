package repository

import (
	"fmt"
	"os"
	"sync"

	"github.com/Maksimka7878/gorod/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is the device-local durable store backing the offline queue.
// Opening is lazy and idempotent: the first operation triggers the open,
// concurrent callers await the same in-flight attempt, and a failed open is
// remembered instead of retried on every call.
type Database struct {
	dsn string

	once sync.Once
	db   *gorm.DB
	err  error
}

// NewDatabase prepares a store for the given SQLite path without touching
// the filesystem yet.
func NewDatabase(dsn string) *Database {
	return &Database{dsn: dsn}
}

// LoadDatabaseFromEnv builds a store from QUEUE_DB_PATH, defaulting to a
// file next to the working directory.
func LoadDatabaseFromEnv() *Database {
	dsn := os.Getenv("QUEUE_DB_PATH")
	if dsn == "" {
		dsn = "offline-queue.db"
	}
	return NewDatabase(dsn)
}

// Open returns the shared gorm handle, performing the one-shot open and
// migration on first use.
func (d *Database) Open() (*gorm.DB, error) {
	d.once.Do(func() {
		db, err := gorm.Open(sqlite.Open(d.dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			d.err = fmt.Errorf("open queue store: %w", err)
			return
		}

		if err := db.AutoMigrate(&models.QueueItem{}, &models.SchemaVersion{}); err != nil {
			d.err = fmt.Errorf("migrate queue store: %w", err)
			return
		}

		if err := ensureSchemaVersion(db); err != nil {
			d.err = err
			return
		}

		d.db = db
	})
	return d.db, d.err
}

// ensureSchemaVersion records the schema version on first open. Version 1
// is the only shipped schema; a future bump must preserve existing rows.
func ensureSchemaVersion(db *gorm.DB) error {
	var row models.SchemaVersion
	err := db.First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return db.Create(&models.SchemaVersion{Version: models.CurrentSchemaVersion}).Error
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if row.Version > models.CurrentSchemaVersion {
		return fmt.Errorf("queue store schema version %d is newer than supported %d", row.Version, models.CurrentSchemaVersion)
	}
	return nil
}
