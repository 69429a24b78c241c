package pmstore

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbmodel "pmhub/server/internal/db"
)

var ErrNotFound = errors.New("pm item not found")

type ItemStore struct {
	db *gorm.DB
}

// NewItemStore uses a shared DB handle owned by the caller.
func NewItemStore(db *gorm.DB) (*ItemStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &ItemStore{db: db}, nil
}

// Upsert reconciles one descriptor into the item table, keyed by item_id.
// On conflict only the content-store-owned fields are updated; priority and
// ai_suggestions belong to other write paths and are left alone. github_path
// is in the update set: an item moving between status directories changes
// its path in the repository.
func (s *ItemStore) Upsert(d Descriptor) error {
	itemID := strings.TrimSpace(d.ItemID)
	if itemID == "" {
		return errors.New("descriptor item id is required")
	}
	now := time.Now().UTC().Unix()
	createdAt := d.CreatedAt
	if createdAt == 0 {
		createdAt = now
	}
	updatedAt := d.UpdatedAt
	if updatedAt == 0 {
		updatedAt = now
	}

	row := dbmodel.PmItem{
		ItemID:       itemID,
		Type:         d.Type,
		Title:        d.Title,
		Description:  d.Description,
		Status:       d.Status,
		Tags:         mustJSON(emptyIfNil(d.Tags)),
		Related:      mustJSON(emptyIfNil(d.Related)),
		GithubPath:   d.GithubPath,
		Metadata:     mustJSON(emptyMapIfNil(d.Metadata)),
		LastSyncedAt: now,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"title":          row.Title,
			"description":    row.Description,
			"status":         row.Status,
			"tags":           row.Tags,
			"related":        row.Related,
			"github_path":    row.GithubPath,
			"metadata":       row.Metadata,
			"updated_at":     row.UpdatedAt,
			"last_synced_at": now,
		}),
	}).Create(&row).Error
}

// Create inserts a brand-new item (quick capture / chat classification path).
func (s *ItemStore) Create(item Item) error {
	if strings.TrimSpace(item.ItemID) == "" {
		return errors.New("item id is required")
	}
	now := time.Now().UTC().Unix()
	if item.CreatedAt == 0 {
		item.CreatedAt = now
	}
	if item.UpdatedAt == 0 {
		item.UpdatedAt = now
	}
	row := dbmodel.PmItem{
		ItemID:      item.ItemID,
		Type:        item.Type,
		Title:       item.Title,
		Description: item.Description,
		Status:      item.Status,
		Priority:    item.Priority,
		Tags:        mustJSON(emptyIfNil(item.Tags)),
		Related:     mustJSON(emptyIfNil(item.Related)),
		GithubPath:  item.GithubPath,
		Metadata:    mustJSON(emptyMapIfNil(item.Metadata)),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	return s.db.Create(&row).Error
}

func (s *ItemStore) GetAll() ([]Item, error) {
	var rows []dbmodel.PmItem
	if err := s.db.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFromRow(row))
	}
	return items, nil
}

func (s *ItemStore) GetByItemID(itemID string) (*Item, error) {
	var row dbmodel.PmItem
	err := s.db.Where("item_id = ?", itemID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	item := itemFromRow(row)
	return &item, nil
}

// Update applies a partial user edit to an existing item.
func (s *ItemStore) Update(itemID string, upd ItemUpdate) error {
	assignments := map[string]any{
		"updated_at": time.Now().UTC().Unix(),
	}
	if upd.Title != nil {
		assignments["title"] = *upd.Title
	}
	if upd.Description != nil {
		assignments["description"] = *upd.Description
	}
	if upd.Status != nil {
		if !ValidStatus(*upd.Status) {
			return errors.New("invalid status: " + *upd.Status)
		}
		assignments["status"] = *upd.Status
	}
	if upd.Priority != nil {
		if !ValidPriority(*upd.Priority) {
			return errors.New("invalid priority: " + *upd.Priority)
		}
		assignments["priority"] = *upd.Priority
	}
	if upd.Tags != nil {
		assignments["tags"] = mustJSON(emptyIfNil(*upd.Tags))
	}
	if upd.Related != nil {
		assignments["related"] = mustJSON(emptyIfNil(*upd.Related))
	}
	res := s.db.Model(&dbmodel.PmItem{}).Where("item_id = ?", itemID).Updates(assignments)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAISuggestions stores the triage enrichment block without touching any
// content-store-owned field.
func (s *ItemStore) SetAISuggestions(itemID string, sg AISuggestions) error {
	res := s.db.Model(&dbmodel.PmItem{}).Where("item_id = ?", itemID).Updates(map[string]any{
		"ai_suggestions": mustJSON(sg),
		"updated_at":     time.Now().UTC().Unix(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ItemStore) Delete(itemID string) error {
	res := s.db.Where("item_id = ?", itemID).Delete(&dbmodel.PmItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func itemFromRow(row dbmodel.PmItem) Item {
	item := Item{
		ItemID:       row.ItemID,
		Type:         row.Type,
		Title:        row.Title,
		Description:  row.Description,
		Status:       row.Status,
		Priority:     row.Priority,
		GithubPath:   row.GithubPath,
		LastSyncedAt: row.LastSyncedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	_ = json.Unmarshal(row.Tags, &item.Tags)
	_ = json.Unmarshal(row.Related, &item.Related)
	_ = json.Unmarshal(row.Metadata, &item.Metadata)
	if len(row.AISuggestions) > 0 {
		var sg AISuggestions
		if err := json.Unmarshal(row.AISuggestions, &sg); err == nil {
			item.AISuggestions = &sg
		}
	}
	return item
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON(`null`)
	}
	return datatypes.JSON(b)
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyMapIfNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
