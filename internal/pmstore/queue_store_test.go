package pmstore

import (
	"errors"
	"testing"
)

func newTestQueueStore(t *testing.T) *QueueStore {
	t.Helper()
	store, err := NewQueueStore(openTestDB(t))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestEnqueueDefaults(t *testing.T) {
	store := newTestQueueStore(t)

	id, err := store.Enqueue(WorkItem{
		PmItemID:            "BUG-001",
		Title:               "Crash on save",
		Diagnosis:           "nil deref in exporter",
		ImplementationSteps: []string{"guard the pointer", "add regression test"},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if id == 0 {
		t.Fatal("enqueue returned zero id")
	}

	items, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	got := items[0]
	if got.Status != QueueStatusQueued {
		t.Fatalf("status = %q, want queued", got.Status)
	}
	if got.Priority != PriorityMedium {
		t.Fatalf("priority = %q, want medium default", got.Priority)
	}
	if len(got.ImplementationSteps) != 2 {
		t.Fatalf("steps = %v", got.ImplementationSteps)
	}
}

func TestEnqueueValidation(t *testing.T) {
	store := newTestQueueStore(t)

	if _, err := store.Enqueue(WorkItem{Title: "no item id"}); err == nil {
		t.Fatal("expected error without pm item id")
	}
	if _, err := store.Enqueue(WorkItem{PmItemID: "X", Priority: "urgent"}); err == nil {
		t.Fatal("expected error for invalid priority")
	}
}

func TestQueueListOrder(t *testing.T) {
	store := newTestQueueStore(t)

	first, err := store.Enqueue(WorkItem{PmItemID: "A", QueueOrder: 2})
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Enqueue(WorkItem{PmItemID: "B", QueueOrder: 1})
	if err != nil {
		t.Fatal(err)
	}

	items, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if items[0].ID != second || items[1].ID != first {
		t.Fatalf("manual order not respected: %+v", items)
	}

	if err := store.Reorder(first, 0); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	items, err = store.List()
	if err != nil {
		t.Fatal(err)
	}
	if items[0].ID != first {
		t.Fatalf("reorder not applied: %+v", items)
	}
}

func TestSetStatusStampsCompletion(t *testing.T) {
	store := newTestQueueStore(t)
	id, err := store.Enqueue(WorkItem{PmItemID: "FEAT-002"})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.SetStatus(id, QueueStatusInProgress); err != nil {
		t.Fatalf("set in-progress: %v", err)
	}
	items, _ := store.List()
	if items[0].CompletedAt != 0 {
		t.Fatalf("completed_at set early: %+v", items[0])
	}

	if err := store.SetStatus(id, QueueStatusCompleted); err != nil {
		t.Fatalf("set completed: %v", err)
	}
	items, _ = store.List()
	if items[0].Status != QueueStatusCompleted || items[0].CompletedAt == 0 {
		t.Fatalf("completion not stamped: %+v", items[0])
	}
}

func TestSetStatusValidation(t *testing.T) {
	store := newTestQueueStore(t)
	id, err := store.Enqueue(WorkItem{PmItemID: "FEAT-003"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SetStatus(id, "done"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if err := store.SetStatus(999, QueueStatusBlocked); !errors.Is(err, ErrWorkItemNotFound) {
		t.Fatalf("err = %v, want ErrWorkItemNotFound", err)
	}
}

func TestQueueDelete(t *testing.T) {
	store := newTestQueueStore(t)
	id, err := store.Enqueue(WorkItem{PmItemID: "TECH-001"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(id); !errors.Is(err, ErrWorkItemNotFound) {
		t.Fatalf("second delete err = %v, want ErrWorkItemNotFound", err)
	}
	items, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("queue not empty: %+v", items)
	}
}
