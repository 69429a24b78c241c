// Package sync pulls the full PM item set from the content store and
// reconciles it into the local item table, leaving one audit record per run.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pmhub/server/internal/github"
	"pmhub/server/internal/pmstore"
)

const SyncTypeFull = "full"

// ErrSyncInProgress is returned when a trigger fires while another run is
// still in flight. The rejected trigger leaves no sync record behind.
var ErrSyncInProgress = errors.New("sync already in progress")

type ContentStore interface {
	ListDirectory(ctx context.Context, path string) ([]github.Entry, error)
	GetFileContent(ctx context.Context, path string) (*github.File, error)
}

type ItemWriter interface {
	Upsert(d pmstore.Descriptor) error
}

type RecordLog interface {
	Begin(syncType string) (int64, error)
	Complete(id int64, itemCount int, metadata map[string]any) error
	Fail(id int64, errMsg string, metadata map[string]any) error
}

type Result struct {
	ItemCount int `json:"item_count"`
}

type SkippedItem struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type Orchestrator struct {
	store    ContentStore
	items    ItemWriter
	records  RecordLog
	basePath string
	logger   *slog.Logger
	notify   func(topic string, payload map[string]any)

	inFlight atomic.Bool
}

type Options struct {
	Store    ContentStore
	Items    ItemWriter
	Records  RecordLog
	BasePath string
	Logger   *slog.Logger
	Notify   func(topic string, payload map[string]any)
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, errors.New("content store is required")
	}
	if opts.Items == nil {
		return nil, errors.New("item writer is required")
	}
	if opts.Records == nil {
		return nil, errors.New("record log is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	basePath := strings.Trim(opts.BasePath, "/")
	if basePath == "" {
		basePath = "product-management"
	}
	return &Orchestrator{
		store:    opts.Store,
		items:    opts.Items,
		records:  opts.Records,
		basePath: basePath,
		logger:   logger,
		notify:   opts.Notify,
	}, nil
}

// category is one status bucket of the content store tree. Buckets are walked
// in a fixed order: feature lifecycle, then ideas, then bug states.
type category struct {
	path   string
	status string
}

func (o *Orchestrator) categories() []category {
	cats := make([]category, 0, 10)
	for _, status := range []string{
		pmstore.StatusInbox,
		pmstore.StatusBacklog,
		pmstore.StatusPlanned,
		pmstore.StatusInProgress,
		pmstore.StatusCompleted,
		pmstore.StatusArchived,
	} {
		cats = append(cats, category{path: o.basePath + "/features/" + status, status: status})
	}
	cats = append(cats, category{path: o.basePath + "/ideas/inbox", status: pmstore.StatusInbox})
	// Bug directories carry their own state names; they map onto the item
	// lifecycle on the way in.
	cats = append(cats,
		category{path: o.basePath + "/bugs/open", status: pmstore.StatusInbox},
		category{path: o.basePath + "/bugs/in-progress", status: pmstore.StatusInProgress},
		category{path: o.basePath + "/bugs/resolved", status: pmstore.StatusCompleted},
	)
	return cats
}

// RunFullSync performs one full reconciliation pass. At most one run is in
// flight at a time; a concurrent trigger gets ErrSyncInProgress.
func (o *Orchestrator) RunFullSync(ctx context.Context) (Result, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrSyncInProgress
	}
	defer o.inFlight.Store(false)

	runID := uuid.NewString()
	started := time.Now()
	recordID, err := o.records.Begin(SyncTypeFull)
	if err != nil {
		return Result{}, fmt.Errorf("create sync record: %w", err)
	}
	o.logger.Info("sync started", "run_id", runID, "record_id", recordID)

	count, skipped, walkErr := o.walk(ctx)
	metadata := map[string]any{
		"run_id":      runID,
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if len(skipped) > 0 {
		metadata["skipped"] = skipped
	}

	if walkErr != nil {
		if err := o.records.Fail(recordID, walkErr.Error(), metadata); err != nil {
			o.logger.Error("record sync failure", "run_id", runID, "error", err)
		}
		o.logger.Error("sync failed", "run_id", runID, "error", walkErr, "items_before_abort", count)
		return Result{}, walkErr
	}

	if err := o.records.Complete(recordID, count, metadata); err != nil {
		return Result{}, fmt.Errorf("close sync record: %w", err)
	}
	o.logger.Info("sync completed", "run_id", runID, "item_count", count, "skipped", len(skipped))
	if o.notify != nil {
		o.notify("sync.completed", map[string]any{"item_count": count, "skipped": len(skipped)})
	}
	return Result{ItemCount: count}, nil
}

// walk enumerates every category and reconciles each descriptor it finds.
// Parse failures skip the entry; listing, fetch, and storage failures abort.
func (o *Orchestrator) walk(ctx context.Context) (int, []SkippedItem, error) {
	count := 0
	var skipped []SkippedItem
	for _, cat := range o.categories() {
		entries, err := o.store.ListDirectory(ctx, cat.path)
		if err != nil {
			return count, skipped, fmt.Errorf("list %s: %w", cat.path, err)
		}
		for _, entry := range entries {
			if entry.Type != "dir" {
				continue
			}
			metaPath := entry.Path + "/metadata.json"
			file, err := o.store.GetFileContent(ctx, metaPath)
			if err != nil {
				return count, skipped, fmt.Errorf("fetch %s: %w", metaPath, err)
			}
			if file == nil {
				o.logger.Warn("descriptor missing", "path", metaPath)
				skipped = append(skipped, SkippedItem{Path: metaPath, Error: "metadata.json not found"})
				continue
			}
			desc, err := parseDescriptor(file.Content, cat.status, entry.Path)
			if err != nil {
				o.logger.Warn("descriptor skipped", "path", metaPath, "error", err)
				skipped = append(skipped, SkippedItem{Path: metaPath, Error: err.Error()})
				continue
			}
			if err := o.items.Upsert(desc); err != nil {
				return count, skipped, fmt.Errorf("upsert %s: %w", desc.ItemID, err)
			}
			count++
		}
	}
	return count, skipped, nil
}

// descriptorFile is the wire shape of a metadata.json descriptor.
type descriptorFile struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Related     []string       `json:"related"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

func parseDescriptor(content, status, githubPath string) (pmstore.Descriptor, error) {
	var raw descriptorFile
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return pmstore.Descriptor{}, fmt.Errorf("malformed descriptor: %w", err)
	}
	raw.ID = strings.TrimSpace(raw.ID)
	raw.Type = strings.ToUpper(strings.TrimSpace(raw.Type))
	if raw.ID == "" {
		return pmstore.Descriptor{}, errors.New("descriptor missing id")
	}
	if raw.Title == "" {
		return pmstore.Descriptor{}, errors.New("descriptor missing title")
	}
	if !pmstore.ValidType(raw.Type) {
		return pmstore.Descriptor{}, fmt.Errorf("unknown item type %q", raw.Type)
	}
	return pmstore.Descriptor{
		ItemID:      raw.ID,
		Type:        raw.Type,
		Title:       raw.Title,
		Description: raw.Description,
		Status:      status,
		Tags:        raw.Tags,
		Related:     raw.Related,
		GithubPath:  githubPath,
		Metadata:    raw.Metadata,
		CreatedAt:   parseTime(raw.CreatedAt),
		UpdatedAt:   parseTime(raw.UpdatedAt),
	}, nil
}

func parseTime(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Unix()
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC().Unix()
	}
	return 0
}
