package today

import (
	"strings"
	"time"
)

// ScheduleEntry is a parsed calendar record from the schedule feed. At most
// one of the three foreign keys is guaranteed present upstream; the index
// registers the entry under every key it does carry.
type ScheduleEntry struct {
	ID              string
	Status          Status
	StartAt         *time.Time
	PlannedMinutes  int
	UpdatedAt       *time.Time
	WorkItemID      string
	TaskID          string
	ChecklistItemID string
}

var scheduleEntryIDKeys = []string{"id", "scheduleId", "schedule_id"}

// ParseScheduleEntry reads a raw schedule record through the field reader.
// An entry with no status is treated as planned.
func ParseScheduleEntry(record Record) ScheduleEntry {
	entry := ScheduleEntry{
		ID:              record.StringField(scheduleEntryIDKeys...),
		WorkItemID:      record.StringField(workItemRefKeys...),
		TaskID:          record.StringField(taskRefKeys...),
		ChecklistItemID: record.StringField(checklistRefKeys...),
	}
	entry.Status, _ = record.StatusField(statusKeys...)
	if start, ok := record.TimeField(startKeys...); ok {
		entry.StartAt = &start
	}
	if minutes, ok := record.NumberField(durationKeys...); ok && minutes > 0 {
		entry.PlannedMinutes = int(minutes)
	}
	if updated, ok := record.TimeField(updatedKeys...); ok {
		entry.UpdatedAt = &updated
	}
	return entry
}

// ScheduleIndex maps every lower-cased identifier a schedule entry references
// to one winning entry.
type ScheduleIndex map[string]*ScheduleEntry

// BuildScheduleIndex indexes schedule entries by all their foreign keys.
// Entries whose status is not in the filter are skipped entirely; with no
// filter given, only planned entries are indexed. Per-key collisions resolve
// independently: the newer last-updated timestamp wins, a side with a
// timestamp beats one without, and otherwise the earlier start time wins.
func BuildScheduleIndex(records []Record, statuses ...Status) ScheduleIndex {
	allowed := map[Status]bool{}
	if len(statuses) == 0 {
		allowed[StatusPlanned] = true
	}
	for _, status := range statuses {
		allowed[status] = true
	}

	index := make(ScheduleIndex)
	for _, record := range records {
		entry := ParseScheduleEntry(record)
		if !allowed[entry.Status] {
			continue
		}
		candidate := entry
		for _, key := range []string{entry.WorkItemID, entry.TaskID, entry.ChecklistItemID} {
			if key == "" {
				continue
			}
			lower := strings.ToLower(key)
			current, ok := index[lower]
			if !ok || scheduleWins(&candidate, current) {
				index[lower] = &candidate
			}
		}
	}
	return index
}

func scheduleWins(candidate, current *ScheduleEntry) bool {
	switch {
	case candidate.UpdatedAt != nil && current.UpdatedAt != nil:
		return candidate.UpdatedAt.After(*current.UpdatedAt)
	case candidate.UpdatedAt != nil:
		return true
	case current.UpdatedAt != nil:
		return false
	}
	if candidate.StartAt != nil && current.StartAt != nil {
		return candidate.StartAt.Before(*current.StartAt)
	}
	return candidate.StartAt != nil
}

// Find returns the schedule entry for an item, trying the item's own
// identifier, then its owning task id, then its checklist-item id. First hit
// wins; nil when nothing matches.
func (idx ScheduleIndex) Find(item Item) *ScheduleEntry {
	for _, key := range []string{item.ID, item.TaskID, item.ChecklistItemID} {
		if key == "" {
			continue
		}
		if entry, ok := idx[strings.ToLower(key)]; ok {
			return entry
		}
	}
	return nil
}

// AttachSchedules enriches items with schedule-derived start times and
// planned durations. Items without a matching entry, or whose entry has no
// start time, pass through unchanged. The input slice is never mutated.
func AttachSchedules(items []Item, idx ScheduleIndex) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		entry := idx.Find(item)
		if entry == nil || entry.StartAt == nil {
			out = append(out, item)
			continue
		}
		next := item
		start := *entry.StartAt
		next.StartAt = &start
		if entry.PlannedMinutes > 0 {
			next.PlannedMinutes = entry.PlannedMinutes
		}
		out = append(out, next)
	}
	return out
}
