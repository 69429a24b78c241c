package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"pmhub/server/internal/db"
	"pmhub/server/internal/github"
	"pmhub/server/internal/pmstore"
)

type fakeContentStore struct {
	mu       sync.Mutex
	listings map[string][]github.Entry
	files    map[string]*github.File
	failList map[string]error
	failFile map[string]error
	listed   []string
	entered  chan struct{}
	release  chan struct{}
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{
		listings: map[string][]github.Entry{},
		files:    map[string]*github.File{},
		failList: map[string]error{},
		failFile: map[string]error{},
	}
}

func (f *fakeContentStore) addItem(category, itemID, content string) {
	dir := "product-management/" + category
	path := dir + "/" + itemID
	f.listings[dir] = append(f.listings[dir], github.Entry{Name: itemID, Path: path, Type: "dir"})
	f.files[path+"/metadata.json"] = &github.File{Path: path + "/metadata.json", Content: content}
}

func (f *fakeContentStore) ListDirectory(_ context.Context, path string) ([]github.Entry, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		<-f.release
	}
	f.mu.Lock()
	f.listed = append(f.listed, path)
	f.mu.Unlock()
	if err := f.failList[path]; err != nil {
		return nil, err
	}
	return f.listings[path], nil
}

func (f *fakeContentStore) GetFileContent(_ context.Context, path string) (*github.File, error) {
	if err := f.failFile[path]; err != nil {
		return nil, err
	}
	return f.files[path], nil
}

type testEnv struct {
	store *fakeContentStore
	items *pmstore.ItemStore
	syncs *pmstore.SyncStore
	orch  *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "sync_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	items, err := pmstore.NewItemStore(gdb)
	if err != nil {
		t.Fatal(err)
	}
	syncs, err := pmstore.NewSyncStore(gdb)
	if err != nil {
		t.Fatal(err)
	}
	store := newFakeContentStore()
	orch, err := NewOrchestrator(Options{
		Store:    store,
		Items:    items,
		Records:  syncs,
		BasePath: "product-management",
	})
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{store: store, items: items, syncs: syncs, orch: orch}
}

func descriptorJSON(itemID, typ, title string) string {
	return fmt.Sprintf(`{"id":%q,"type":%q,"title":%q,"tags":["t"],"created_at":"2026-08-01T10:00:00Z","updated_at":"2026-08-02T10:00:00Z"}`, itemID, typ, title)
}

func TestRunFullSyncSeedsEmptyRepository(t *testing.T) {
	env := newTestEnv(t)
	env.store.addItem("features/planned", "T-FEAT-1", descriptorJSON("T-FEAT-1", "FEAT", "Add export"))

	res, err := env.orch.RunFullSync(context.Background())
	if err != nil {
		t.Fatalf("RunFullSync failed: %v", err)
	}
	if res.ItemCount != 1 {
		t.Errorf("ItemCount = %d, want 1", res.ItemCount)
	}

	item, err := env.items.GetByItemID("T-FEAT-1")
	if err != nil {
		t.Fatalf("item not stored: %v", err)
	}
	if item.Type != "FEAT" || item.Status != "planned" || item.Title != "Add export" {
		t.Errorf("item = %+v", item)
	}
	if item.GithubPath != "product-management/features/planned/T-FEAT-1" {
		t.Errorf("github path = %q", item.GithubPath)
	}

	run, err := env.syncs.GetLatest(SyncTypeFull)
	if err != nil {
		t.Fatal(err)
	}
	if run == nil || run.Status != pmstore.SyncStatusSuccess || run.ItemCount != 1 {
		t.Errorf("sync record = %+v", run)
	}
}

func TestRunFullSyncWalkOrder(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.orch.RunFullSync(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"product-management/features/inbox",
		"product-management/features/backlog",
		"product-management/features/planned",
		"product-management/features/in-progress",
		"product-management/features/completed",
		"product-management/features/archived",
		"product-management/ideas/inbox",
		"product-management/bugs/open",
		"product-management/bugs/in-progress",
		"product-management/bugs/resolved",
	}
	if len(env.store.listed) != len(want) {
		t.Fatalf("listed %d paths, want %d: %v", len(env.store.listed), len(want), env.store.listed)
	}
	for i, path := range want {
		if env.store.listed[i] != path {
			t.Errorf("walk[%d] = %q, want %q", i, env.store.listed[i], path)
		}
	}
}

func TestRunFullSyncBugStatusMapping(t *testing.T) {
	env := newTestEnv(t)
	env.store.addItem("bugs/open", "T-BUG-1", descriptorJSON("T-BUG-1", "BUG", "open bug"))
	env.store.addItem("bugs/resolved", "T-BUG-2", descriptorJSON("T-BUG-2", "BUG", "fixed bug"))

	if _, err := env.orch.RunFullSync(context.Background()); err != nil {
		t.Fatal(err)
	}

	open, err := env.items.GetByItemID("T-BUG-1")
	if err != nil {
		t.Fatal(err)
	}
	if open.Status != pmstore.StatusInbox {
		t.Errorf("open bug status = %q, want inbox", open.Status)
	}
	fixed, err := env.items.GetByItemID("T-BUG-2")
	if err != nil {
		t.Fatal(err)
	}
	if fixed.Status != pmstore.StatusCompleted {
		t.Errorf("resolved bug status = %q, want completed", fixed.Status)
	}
}

func TestRunFullSyncSkipsMalformedDescriptor(t *testing.T) {
	env := newTestEnv(t)
	env.store.addItem("features/inbox", "T-FEAT-1", descriptorJSON("T-FEAT-1", "FEAT", "good"))
	env.store.addItem("features/inbox", "T-FEAT-2", `{"id": "T-FEAT-2", "type":`)
	env.store.addItem("features/inbox", "T-FEAT-3", descriptorJSON("T-FEAT-3", "FEAT", "also good"))

	res, err := env.orch.RunFullSync(context.Background())
	if err != nil {
		t.Fatalf("one malformed descriptor must not fail the run: %v", err)
	}
	if res.ItemCount != 2 {
		t.Errorf("ItemCount = %d, want 2", res.ItemCount)
	}

	run, err := env.syncs.GetLatest(SyncTypeFull)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != pmstore.SyncStatusSuccess || run.ItemCount != 2 {
		t.Errorf("record = %+v", run)
	}
	skipped, ok := run.Metadata["skipped"].([]any)
	if !ok || len(skipped) != 1 {
		t.Fatalf("skipped diagnostics = %#v, want one entry", run.Metadata["skipped"])
	}
	if _, err := env.items.GetByItemID("T-FEAT-3"); err != nil {
		t.Errorf("well-formed sibling missing: %v", err)
	}
}

func TestRunFullSyncSkipsUnknownTypeAndMissingFields(t *testing.T) {
	env := newTestEnv(t)
	env.store.addItem("features/inbox", "T-1", descriptorJSON("T-1", "GADGET", "bad type"))
	env.store.addItem("features/inbox", "T-2", `{"type":"FEAT","title":"no id"}`)
	env.store.addItem("features/inbox", "T-3", `{"id":"T-3","type":"FEAT"}`)

	res, err := env.orch.RunFullSync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.ItemCount != 0 {
		t.Errorf("ItemCount = %d, want 0", res.ItemCount)
	}
	run, _ := env.syncs.GetLatest(SyncTypeFull)
	if skipped, ok := run.Metadata["skipped"].([]any); !ok || len(skipped) != 3 {
		t.Errorf("skipped = %#v, want 3 entries", run.Metadata["skipped"])
	}
}

func TestRunFullSyncAbortsOnListingFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.addItem("features/inbox", "T-FEAT-1", descriptorJSON("T-FEAT-1", "FEAT", "early"))
	env.store.failList["product-management/features/planned"] = errors.New("connection reset")

	_, err := env.orch.RunFullSync(context.Background())
	if err == nil {
		t.Fatal("expected infrastructure failure to abort the run")
	}

	// Items upserted before the abort stay put.
	if _, err := env.items.GetByItemID("T-FEAT-1"); err != nil {
		t.Errorf("pre-abort item rolled back: %v", err)
	}

	run, recErr := env.syncs.GetLatest(SyncTypeFull)
	if recErr != nil {
		t.Fatal(recErr)
	}
	if run.Status != pmstore.SyncStatusFailed {
		t.Errorf("record status = %q, want failed", run.Status)
	}
	if run.Error == "" {
		t.Error("failed record must carry the error message")
	}
	if run.CompletedAt == 0 {
		t.Error("failed record must stamp completed_at")
	}
}

func TestRunFullSyncRejectsConcurrentRun(t *testing.T) {
	env := newTestEnv(t)
	env.store.entered = make(chan struct{}, 1)
	env.store.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := env.orch.RunFullSync(context.Background())
		done <- err
	}()

	// Wait until the first run is parked inside the walk, then trigger again.
	<-env.store.entered
	if _, err := env.orch.RunFullSync(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("concurrent trigger: err = %v, want ErrSyncInProgress", err)
	}

	close(env.store.release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// After the first run finishes, triggers are accepted again.
	env.store.entered = nil
	if _, err := env.orch.RunFullSync(context.Background()); err != nil {
		t.Fatalf("run after release failed: %v", err)
	}
}

func TestRunFullSyncIdempotentAcrossRuns(t *testing.T) {
	env := newTestEnv(t)
	env.store.addItem("features/planned", "T-FEAT-1", descriptorJSON("T-FEAT-1", "FEAT", "Add export"))
	env.store.addItem("ideas/inbox", "T-IDEA-1", descriptorJSON("T-IDEA-1", "IDEA", "Dark mode"))

	for i := 0; i < 2; i++ {
		res, err := env.orch.RunFullSync(context.Background())
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		if res.ItemCount != 2 {
			t.Errorf("run %d ItemCount = %d, want 2", i, res.ItemCount)
		}
	}

	items, err := env.items.GetAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("got %d items after two runs, want 2", len(items))
	}

	runs, err := env.syncs.History(SyncTypeFull, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d sync records, want 2", len(runs))
	}
	for _, run := range runs {
		if run.Status != pmstore.SyncStatusSuccess || run.ItemCount != 2 {
			t.Errorf("record = %+v", run)
		}
	}
}

func TestRunFullSyncSkipsNonDirEntries(t *testing.T) {
	env := newTestEnv(t)
	dir := "product-management/features/inbox"
	env.store.listings[dir] = []github.Entry{
		{Name: "README.md", Path: dir + "/README.md", Type: "file"},
	}

	res, err := env.orch.RunFullSync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.ItemCount != 0 {
		t.Errorf("ItemCount = %d, want 0", res.ItemCount)
	}
}

func TestParseDescriptorTimestamps(t *testing.T) {
	desc, err := parseDescriptor(`{"id":"A","type":"feat","title":"x","created_at":"2026-08-01T10:00:00Z"}`, "inbox", "p")
	if err != nil {
		t.Fatal(err)
	}
	if desc.Type != "FEAT" {
		t.Errorf("type not normalized: %q", desc.Type)
	}
	if desc.CreatedAt == 0 {
		t.Error("created_at not parsed")
	}
	if desc.UpdatedAt != 0 {
		t.Errorf("absent updated_at should be 0, got %d", desc.UpdatedAt)
	}
}
