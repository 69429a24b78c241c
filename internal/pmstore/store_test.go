package pmstore

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"pmhub/server/internal/db"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "pmhub_test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func newTestItemStore(t *testing.T) *ItemStore {
	t.Helper()
	store, err := NewItemStore(openTestDB(t))
	if err != nil {
		t.Fatal(err)
	}
	return store
}
