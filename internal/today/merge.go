package today

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// DuplicateEvent reports one duplicate resolution during a merge pass.
// Duplicates are not errors; upstream data routinely surfaces the same
// logical item through two paths (a work-item fragment and a raw checklist
// fragment), and the pipeline keeps whichever representation has the higher
// status rank.
type DuplicateEvent struct {
	ID      string
	Key     string
	Kept    Item
	Dropped Item
}

// DiagnosticFunc receives duplicate-resolution events. A nil func disables
// reporting; the merge result is identical either way.
type DiagnosticFunc func(DuplicateEvent)

// MergeTasks reconciles the full fetched task list into a flat, deduplicated
// list of canonical items. For each task it links work-item fragments to
// checklist fragments (by id, or by exact title when the upstream record
// lost the id), keeps the highest-status-rank representation per checklist
// entry, emits unscheduled checklist fragments, and emits atomic tasks.
// Dedupe keys are namespaced (`work:`, `checklist:`, `task:`) so logically
// distinct entities sharing a raw identifier cannot collide; a final
// defensive pass guarantees no two output items share an identifier.
func MergeTasks(tasks []Record, diag DiagnosticFunc) []Item {
	report := func(key string, kept, dropped Item) {
		if diag != nil {
			diag(DuplicateEvent{ID: ulid.Make().String(), Key: key, Kept: kept, Dropped: dropped})
		}
	}

	out := make([]Item, 0, len(tasks))
	emitted := make(map[string]int)

	emit := func(key string, item Item) {
		if at, ok := emitted[key]; ok {
			if item.Status.Rank() > out[at].Status.Rank() {
				report(key, item, out[at])
				out[at] = item
			} else {
				report(key, out[at], item)
			}
			return
		}
		emitted[key] = len(out)
		out = append(out, item)
	}

	for _, task := range tasks {
		checklist := task.Fragments(checklistListKeys...)
		workItems := task.Fragments(workItemListKeys...)

		// Upstream sometimes links a work-item fragment to its checklist
		// parent only by title, not by id. First title wins on duplicates.
		titleToChecklistID := make(map[string]string, len(checklist))
		for _, fragment := range checklist {
			checklistID := fragment.StringField(checklistOwnIDKeys...)
			title := matchTitle(fragment.StringField(titleKeys...))
			if checklistID == "" || title == "" {
				continue
			}
			if _, ok := titleToChecklistID[title]; !ok {
				titleToChecklistID[title] = checklistID
			}
		}

		scheduled := make(map[string]bool)
		winners := make(map[string]Item)
		winnerOrder := make([]string, 0, len(workItems))

		for _, fragment := range workItems {
			if fragment.StringField(checklistRefKeys...) == "" {
				if checklistID, ok := titleToChecklistID[matchTitle(fragment.StringField(titleKeys...))]; ok {
					fragment = fragment.With("checklistItemId", checklistID)
				}
			}
			item := normalizeWorkItem(task, fragment)
			if item.Source == SourceChecklist {
				key := strings.ToLower(item.ChecklistItemID)
				scheduled[key] = true
				current, ok := winners[key]
				if !ok {
					winners[key] = item
					winnerOrder = append(winnerOrder, key)
					continue
				}
				if item.Status.Rank() > current.Status.Rank() {
					winners[key] = item
					report("checklist:"+key, item, current)
				} else {
					report("checklist:"+key, current, item)
				}
				continue
			}
			emit("work:"+strings.ToLower(item.ID), item)
		}

		for _, key := range winnerOrder {
			emit("checklist:"+key, winners[key])
		}

		for _, fragment := range checklist {
			item, ok := normalizeChecklist(task, fragment)
			if !ok {
				continue
			}
			key := strings.ToLower(item.ChecklistItemID)
			if scheduled[key] {
				// A work-item fragment already covers this checklist entry.
				continue
			}
			emit("checklist:"+key, item)
		}

		if len(workItems) == 0 && len(checklist) == 0 {
			if item, ok := normalizeTask(task); ok {
				emit("task:"+strings.ToLower(item.ID), item)
			}
		}
	}

	return dedupeByID(out, report)
}

// dedupeByID is the defensive final pass: regroup by canonical identifier,
// case-insensitively, keeping the highest status rank per group. Equal ranks
// keep the first seen, so output order stays stable.
func dedupeByID(items []Item, report func(key string, kept, dropped Item)) []Item {
	out := make([]Item, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		key := strings.ToLower(item.ID)
		at, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, item)
			continue
		}
		if item.Status.Rank() > out[at].Status.Rank() {
			report(key, item, out[at])
			out[at] = item
		} else {
			report(key, out[at], item)
		}
	}
	return out
}

func matchTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
