package today

import "time"

// Status is the canonical item state. Upstream spellings and numeric codes
// are folded into these four values by the field reader.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusSkipped    Status = "skipped"
)

// Rank orders statuses for duplicate resolution: when two representations of
// the same logical item collide, the more "active" one survives.
func (s Status) Rank() int {
	switch s {
	case StatusInProgress:
		return 3
	case StatusPlanned:
		return 2
	case StatusDone:
		return 1
	default:
		return 0
	}
}

// Priority is one of three ranked levels. Lower sorts first; PriorityNone
// means the field was absent upstream and sorts last.
type Priority int

const (
	PriorityNone   Priority = 0
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// Source tags where an item came from: a task-level record or a checklist
// child of a task.
type Source string

const (
	SourceTask      Source = "task"
	SourceChecklist Source = "checklist"
)

// Item is the canonical representation of one logical piece of work after
// all source variants have been merged. Optional timestamps are nil when the
// upstream value was absent or unparseable; PlannedMinutes and Priority use
// their zero value for absent.
type Item struct {
	ID              string
	Source          Source
	Title           string
	ParentTitle     string
	Status          Status
	Priority        Priority
	StartAt         *time.Time
	PlannedMinutes  int
	Deadline        *time.Time
	UpdatedAt       *time.Time
	TaskID          string
	ChecklistItemID string
}
