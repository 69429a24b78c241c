package pmstore

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	dbmodel "pmhub/server/internal/db"
)

const (
	QueueStatusQueued     = "queued"
	QueueStatusInProgress = "in-progress"
	QueueStatusCompleted  = "completed"
	QueueStatusBlocked    = "blocked"
)

var validQueueStatuses = map[string]struct{}{
	QueueStatusQueued:     {},
	QueueStatusInProgress: {},
	QueueStatusCompleted:  {},
	QueueStatusBlocked:    {},
}

var ErrWorkItemNotFound = errors.New("work item not found")

// WorkItem is a structured implementation-queue entry derived from a PM item.
type WorkItem struct {
	ID                  int64    `json:"id"`
	PmItemID            string   `json:"pm_item_id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Diagnosis           string   `json:"diagnosis"`
	Priority            string   `json:"priority"`
	EstimatedMinutes    int      `json:"estimated_minutes"`
	Dependencies        []string `json:"dependencies,omitempty"`
	QARequirements      string   `json:"qa_requirements"`
	ImplementationSteps []string `json:"implementation_steps"`
	Status              string   `json:"status"`
	QueueOrder          int      `json:"queue_order"`
	CreatedAt           int64    `json:"created_at"`
	UpdatedAt           int64    `json:"updated_at"`
	CompletedAt         int64    `json:"completed_at,omitempty"`
}

type QueueStore struct {
	db *gorm.DB
}

func NewQueueStore(db *gorm.DB) (*QueueStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &QueueStore{db: db}, nil
}

func (s *QueueStore) Enqueue(item WorkItem) (int64, error) {
	if item.PmItemID == "" {
		return 0, errors.New("pm item id is required")
	}
	if item.Priority == "" {
		item.Priority = PriorityMedium
	}
	if !ValidPriority(item.Priority) {
		return 0, errors.New("invalid priority: " + item.Priority)
	}
	now := time.Now().UTC().Unix()
	row := dbmodel.QueueItem{
		PmItemID:            item.PmItemID,
		Title:               item.Title,
		Description:         item.Description,
		Diagnosis:           item.Diagnosis,
		Priority:            item.Priority,
		EstimatedMinutes:    item.EstimatedMinutes,
		Dependencies:        mustJSON(emptyIfNil(item.Dependencies)),
		QARequirements:      item.QARequirements,
		ImplementationSteps: mustJSON(emptyIfNil(item.ImplementationSteps)),
		Status:              QueueStatusQueued,
		QueueOrder:          item.QueueOrder,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// List returns queue items in manual order, then insertion order.
func (s *QueueStore) List() ([]WorkItem, error) {
	var rows []dbmodel.QueueItem
	if err := s.db.Order("queue_order ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]WorkItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, workItemFromRow(row))
	}
	return out, nil
}

func (s *QueueStore) SetStatus(id int64, status string) error {
	if _, ok := validQueueStatuses[status]; !ok {
		return errors.New("invalid queue status: " + status)
	}
	now := time.Now().UTC().Unix()
	assignments := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	if status == QueueStatusCompleted {
		assignments["completed_at"] = now
	}
	res := s.db.Model(&dbmodel.QueueItem{}).Where("id = ?", id).Updates(assignments)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWorkItemNotFound
	}
	return nil
}

func (s *QueueStore) Reorder(id int64, order int) error {
	res := s.db.Model(&dbmodel.QueueItem{}).Where("id = ?", id).Updates(map[string]any{
		"queue_order": order,
		"updated_at":  time.Now().UTC().Unix(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWorkItemNotFound
	}
	return nil
}

func (s *QueueStore) Delete(id int64) error {
	res := s.db.Delete(&dbmodel.QueueItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrWorkItemNotFound
	}
	return nil
}

func workItemFromRow(row dbmodel.QueueItem) WorkItem {
	item := WorkItem{
		ID:               row.ID,
		PmItemID:         row.PmItemID,
		Title:            row.Title,
		Description:      row.Description,
		Diagnosis:        row.Diagnosis,
		Priority:         row.Priority,
		EstimatedMinutes: row.EstimatedMinutes,
		QARequirements:   row.QARequirements,
		Status:           row.Status,
		QueueOrder:       row.QueueOrder,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
		CompletedAt:      row.CompletedAt,
	}
	_ = json.Unmarshal(row.Dependencies, &item.Dependencies)
	_ = json.Unmarshal(row.ImplementationSteps, &item.ImplementationSteps)
	return item
}
