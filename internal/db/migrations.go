package db

import (
	"errors"

	"gorm.io/gorm"
)

// SyncSchema creates/updates tables and indexes from models. Table structure
// changes do not use versioned migrations.
func SyncSchema(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is required")
	}
	if err := db.AutoMigrate(
		&PmItem{},
		&SyncRecord{},
		&Conversation{},
		&Message{},
		&QueueItem{},
	); err != nil {
		return err
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_sync_records_type_started_at ON sync_records(sync_type, started_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_pm_items_status ON pm_items(status);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created_at ON messages(conversation_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_queue_status_order ON implementation_queue(status, queue_order);`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
