package today

import (
	"strings"
	"testing"
)

// Scenario: a work-item fragment with no checklist reference is linked to a
// sibling checklist fragment by exact title, and the raw checklist fragment
// is not emitted a second time.
func TestMergeLinksWorkItemToChecklistByTitle(t *testing.T) {
	tasks := []Record{
		{
			"id":    "t1",
			"title": "Essay",
			"checklistItems": []any{
				map[string]any{"id": "c1", "title": "Outline"},
			},
			"workItems": []any{
				map[string]any{"title": "outline", "status": "in_progress"},
			},
		},
	}

	items := MergeTasks(tasks, nil)

	if len(items) != 1 {
		t.Fatalf("expected exactly one item, got %d: %+v", len(items), items)
	}
	item := items[0]
	if item.ID != "c1" {
		t.Errorf("expected id c1, got %q", item.ID)
	}
	if item.Status != StatusInProgress {
		t.Errorf("expected in-progress, got %s", item.Status)
	}
	if item.ParentTitle != "Essay" {
		t.Errorf("expected parent title Essay, got %q", item.ParentTitle)
	}
}

func TestMergeAtomicTask(t *testing.T) {
	tasks := []Record{
		{"id": "t1", "title": "Reading", "status": "planned"},
	}

	items := MergeTasks(tasks, nil)

	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if items[0].ID != "t1" || items[0].Source != SourceTask {
		t.Errorf("unexpected item: %+v", items[0])
	}
}

func TestMergeHigherRankWinsPerChecklist(t *testing.T) {
	tasks := []Record{
		{
			"id":    "t1",
			"title": "Essay",
			"workItems": []any{
				map[string]any{"checklistItemId": "c1", "title": "Outline", "status": "done"},
				map[string]any{"checklistItemId": "c1", "title": "Outline", "status": "in_progress"},
			},
		},
	}

	items := MergeTasks(tasks, nil)

	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if items[0].Status != StatusInProgress {
		t.Errorf("expected in-progress winner, got %s", items[0].Status)
	}
}

func TestMergeChecklistNotEmittedTwice(t *testing.T) {
	// The same checklist entry arrives through a work-item fragment and as a
	// raw checklist fragment; only the scheduled representation survives.
	tasks := []Record{
		{
			"id":    "t1",
			"title": "Essay",
			"checklistItems": []any{
				map[string]any{"id": "c1", "title": "Outline", "status": "planned"},
				map[string]any{"id": "c2", "title": "Draft", "status": "planned"},
			},
			"workItems": []any{
				map[string]any{"checklistItemId": "C1", "title": "Outline", "status": "in_progress"},
			},
		},
	}

	items := MergeTasks(tasks, nil)

	if len(items) != 2 {
		t.Fatalf("expected two items, got %d: %+v", len(items), items)
	}
	byID := map[string]Item{}
	for _, item := range items {
		byID[strings.ToLower(item.ID)] = item
	}
	if byID["c1"].Status != StatusInProgress {
		t.Errorf("expected scheduled representation for c1, got %s", byID["c1"].Status)
	}
	if _, ok := byID["c2"]; !ok {
		t.Error("expected unscheduled checklist fragment c2 to be emitted")
	}
}

func TestMergeOutputIdentifiersUnique(t *testing.T) {
	// Inconsistent upstream ids let the same identifier slip through two
	// namespaces; the defensive pass still deduplicates.
	tasks := []Record{
		{
			"id": "t1",
			"workItems": []any{
				map[string]any{"workItemId": "X1", "status": "planned"},
			},
		},
		{
			"id": "t2",
			"checklistItems": []any{
				map[string]any{"id": "x1", "status": "in_progress"},
			},
		},
	}

	items := MergeTasks(tasks, nil)

	seen := map[string]bool{}
	for _, item := range items {
		key := strings.ToLower(item.ID)
		if seen[key] {
			t.Fatalf("duplicate identifier %q in output", item.ID)
		}
		seen[key] = true
	}
	if len(items) != 1 {
		t.Fatalf("expected one reconciled item, got %d", len(items))
	}
	if items[0].Status != StatusInProgress {
		t.Errorf("expected the higher-rank representation to survive, got %s", items[0].Status)
	}
}

func TestMergeRankDominanceAcrossTasks(t *testing.T) {
	tasks := []Record{
		{
			"id": "t1",
			"workItems": []any{
				map[string]any{"workItemId": "w1", "status": "done"},
			},
		},
		{
			"id": "t2",
			"workItems": []any{
				map[string]any{"workItemId": "w1", "status": "in_progress"},
			},
		},
	}

	items := MergeTasks(tasks, nil)

	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if items[0].Status != StatusInProgress {
		t.Errorf("expected in-progress to dominate, got %s", items[0].Status)
	}
}

func TestMergeEqualRankKeepsFirstSeen(t *testing.T) {
	tasks := []Record{
		{
			"id": "t1",
			"workItems": []any{
				map[string]any{"workItemId": "w1", "title": "first", "status": "planned"},
			},
		},
		{
			"id": "t2",
			"workItems": []any{
				map[string]any{"workItemId": "W1", "title": "second", "status": "planned"},
			},
		},
	}

	items := MergeTasks(tasks, nil)

	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if items[0].Title != "first" {
		t.Errorf("expected first-seen to survive the tie, got %q", items[0].Title)
	}
}

func TestMergeEmitsDuplicateDiagnostics(t *testing.T) {
	tasks := []Record{
		{
			"id": "t1",
			"workItems": []any{
				map[string]any{"workItemId": "w1", "status": "planned"},
				map[string]any{"workItemId": "w1", "status": "in_progress"},
			},
		},
	}

	var events []DuplicateEvent
	items := MergeTasks(tasks, func(event DuplicateEvent) {
		events = append(events, event)
	})

	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if len(events) == 0 {
		t.Fatal("expected at least one duplicate diagnostic")
	}
	for _, event := range events {
		if event.ID == "" {
			t.Error("diagnostic event is missing an id")
		}
		if event.Key == "" {
			t.Error("diagnostic event is missing its dedupe key")
		}
	}
}

func TestMergeEmptyInput(t *testing.T) {
	items := MergeTasks(nil, nil)
	if len(items) != 0 {
		t.Errorf("expected empty output, got %d items", len(items))
	}
}

func TestMergeTaskWithFragmentsIsNotEmittedAtomically(t *testing.T) {
	tasks := []Record{
		{
			"id": "t1",
			"checklistItems": []any{
				map[string]any{"id": "c1", "title": "Step"},
			},
		},
	}

	items := MergeTasks(tasks, nil)

	for _, item := range items {
		if item.ID == "t1" {
			t.Errorf("task with fragments must not appear as an atomic item: %+v", item)
		}
	}
	if len(items) != 1 || items[0].ID != "c1" {
		t.Fatalf("expected only the checklist child, got %+v", items)
	}
}

func TestMergeMixedSourcesAllEmitted(t *testing.T) {
	tasks := []Record{
		{
			"id": "t-a",
			"workItems": []any{
				map[string]any{"workItemId": "w1", "status": "planned"},
				map[string]any{"workItemId": "w2", "status": "planned"},
			},
		},
		{"id": "t-b", "status": "planned"},
	}

	items := MergeTasks(tasks, nil)

	if len(items) != 3 {
		t.Fatalf("expected three items, got %d: %+v", len(items), items)
	}
}
