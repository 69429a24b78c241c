package pmstore

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	dbmodel "pmhub/server/internal/db"
)

// ErrRecordTerminal means a terminal transition was attempted twice. Records
// that reached success or failed are immutable.
var ErrRecordTerminal = errors.New("sync record is already terminal")

type SyncStore struct {
	db *gorm.DB
}

func NewSyncStore(db *gorm.DB) (*SyncStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &SyncStore{db: db}, nil
}

// Begin appends a new in-progress record and returns its id.
func (s *SyncStore) Begin(syncType string) (int64, error) {
	row := dbmodel.SyncRecord{
		SyncType:  syncType,
		Status:    SyncStatusInProgress,
		StartedAt: time.Now().UTC().Unix(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// Complete marks an in-progress record as success and stamps completed_at.
func (s *SyncStore) Complete(id int64, itemCount int, metadata map[string]any) error {
	return s.finish(id, map[string]any{
		"status":       SyncStatusSuccess,
		"item_count":   itemCount,
		"metadata":     mustJSON(emptyMapIfNil(metadata)),
		"completed_at": time.Now().UTC().Unix(),
	})
}

// Fail marks an in-progress record as failed with the captured error text.
func (s *SyncStore) Fail(id int64, errMsg string, metadata map[string]any) error {
	return s.finish(id, map[string]any{
		"status":       SyncStatusFailed,
		"error":        errMsg,
		"metadata":     mustJSON(emptyMapIfNil(metadata)),
		"completed_at": time.Now().UTC().Unix(),
	})
}

func (s *SyncStore) finish(id int64, assignments map[string]any) error {
	res := s.db.Model(&dbmodel.SyncRecord{}).
		Where("id = ? AND status = ?", id, SyncStatusInProgress).
		Updates(assignments)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordTerminal
	}
	return nil
}

// GetLatest returns the most recent attempt by started_at, regardless of its
// terminal status, or nil if no sync has ever run.
func (s *SyncStore) GetLatest(syncType string) (*SyncRun, error) {
	return s.latest(s.db.Where("sync_type = ?", syncType))
}

// GetLatestSuccessful returns the most recent record that finished success.
func (s *SyncStore) GetLatestSuccessful(syncType string) (*SyncRun, error) {
	return s.latest(s.db.Where("sync_type = ? AND status = ?", syncType, SyncStatusSuccess))
}

func (s *SyncStore) latest(q *gorm.DB) (*SyncRun, error) {
	var row dbmodel.SyncRecord
	err := q.Order("started_at DESC, id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run := runFromRow(row)
	return &run, nil
}

// History returns up to limit records, most recent first.
func (s *SyncStore) History(syncType string, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []dbmodel.SyncRecord
	err := s.db.Where("sync_type = ?", syncType).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	runs := make([]SyncRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, runFromRow(row))
	}
	return runs, nil
}

func runFromRow(row dbmodel.SyncRecord) SyncRun {
	run := SyncRun{
		ID:          row.ID,
		SyncType:    row.SyncType,
		Status:      row.Status,
		ItemCount:   row.ItemCount,
		Error:       row.Error,
		StartedAt:   row.StartedAt,
		CompletedAt: row.CompletedAt,
	}
	_ = json.Unmarshal(row.Metadata, &run.Metadata)
	return run
}
