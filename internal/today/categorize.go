package today

import (
	"sort"
	"time"
)

// View is the categorized day view handed to UI clients.
type View struct {
	InProgress    []Item
	Planned       []Item
	Completed     []Item
	DoneCount     int
	ProgressValue float64
}

// Categorize partitions filtered items into in-progress, planned, and
// completed buckets with deterministic ordering. DoneCount counts items with
// status done (skipped items appear in Completed but do not count as done);
// ProgressValue is DoneCount over the total number of items.
func Categorize(items []Item) View {
	view := View{
		InProgress: []Item{},
		Planned:    []Item{},
		Completed:  []Item{},
	}

	for _, item := range items {
		switch item.Status {
		case StatusInProgress:
			view.InProgress = append(view.InProgress, item)
		case StatusPlanned:
			view.Planned = append(view.Planned, item)
		case StatusDone:
			view.DoneCount++
			view.Completed = append(view.Completed, item)
		case StatusSkipped:
			view.Completed = append(view.Completed, item)
		}
	}

	sort.SliceStable(view.InProgress, func(i, j int) bool {
		a, b := view.InProgress[i], view.InProgress[j]
		if less, decided := lessByPriority(a, b); decided {
			return less
		}
		less, _ := lessByTime(a.UpdatedAt, b.UpdatedAt, newestFirst)
		return less
	})

	sort.SliceStable(view.Planned, func(i, j int) bool {
		a, b := view.Planned[i], view.Planned[j]
		if less, decided := lessByPriority(a, b); decided {
			return less
		}
		if less, decided := lessByTime(a.Deadline, b.Deadline, earliestFirst); decided {
			return less
		}
		if less, decided := lessByTime(a.StartAt, b.StartAt, earliestFirst); decided {
			return less
		}
		less, _ := lessByTime(a.UpdatedAt, b.UpdatedAt, earliestFirst)
		return less
	})

	sort.SliceStable(view.Completed, func(i, j int) bool {
		less, _ := lessByTime(view.Completed[i].UpdatedAt, view.Completed[j].UpdatedAt, newestFirst)
		return less
	})

	if len(items) > 0 {
		view.ProgressValue = float64(view.DoneCount) / float64(len(items))
	}
	return view
}

// lessByPriority orders present priorities ascending and sorts absent
// priorities last. Undecided when both sides tie.
func lessByPriority(a, b Item) (less, decided bool) {
	if a.Priority == b.Priority {
		return false, false
	}
	if a.Priority == PriorityNone {
		return false, true
	}
	if b.Priority == PriorityNone {
		return true, true
	}
	return a.Priority < b.Priority, true
}

type timeOrder bool

const (
	earliestFirst timeOrder = true
	newestFirst   timeOrder = false
)

// lessByTime compares optional timestamps. A side with a value always sorts
// before a side without; both absent or equal is undecided so the next
// criterion applies.
func lessByTime(a, b *time.Time, order timeOrder) (less, decided bool) {
	switch {
	case a == nil && b == nil:
		return false, false
	case a == nil:
		return false, true
	case b == nil:
		return true, true
	case a.Equal(*b):
		return false, false
	}
	if order == earliestFirst {
		return a.Before(*b), true
	}
	return a.After(*b), true
}
