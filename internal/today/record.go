// Package today implements the today-view reconciliation engine: it merges
// tasks, checklist fragments, and work-item fragments fetched from the task
// service into one deduplicated, day-scoped list of actionable items.
//
// Every stage is a pure function over immutable snapshots; nothing here does
// I/O or mutates its input, so the view can be recomputed on every request.
package today

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is a raw upstream JSON object. The task service exposes the same
// logical field under several historical spellings (camelCase, snake_case,
// renamed keys), so all access goes through the ordered-alias readers below
// instead of per-call-site lookups.
type Record map[string]any

// StringField returns the first non-blank string value under keys. Numeric
// identifiers are coerced to their decimal text form.
func (r Record) StringField(keys ...string) string {
	for _, key := range keys {
		value, ok := r[key]
		if !ok || value == nil {
			continue
		}
		if text := asString(value); text != "" {
			return text
		}
	}
	return ""
}

// NumberField returns the first numeric value under keys. Strings holding a
// number are accepted; anything else reports absent.
func (r Record) NumberField(keys ...string) (float64, bool) {
	for _, key := range keys {
		value, ok := r[key]
		if !ok || value == nil {
			continue
		}
		if number, ok := asNumber(value); ok {
			return number, true
		}
	}
	return 0, false
}

// StatusField reads the first present status value under keys. The bool
// reports whether any value was present at all; a present but unrecognized
// value resolves to StatusPlanned.
func (r Record) StatusField(keys ...string) (Status, bool) {
	for _, key := range keys {
		value, ok := r[key]
		if !ok || value == nil {
			continue
		}
		if text := asString(value); strings.TrimSpace(text) == "" {
			continue
		}
		return parseStatus(value), true
	}
	return StatusPlanned, false
}

// PriorityField reads the first present priority under keys. Unrecognized
// values report absent rather than guessing a level.
func (r Record) PriorityField(keys ...string) (Priority, bool) {
	for _, key := range keys {
		value, ok := r[key]
		if !ok || value == nil {
			continue
		}
		if priority, ok := parsePriority(value); ok {
			return priority, true
		}
	}
	return PriorityNone, false
}

// TimeField reads the first parseable timestamp under keys. Accepts RFC3339
// strings (with or without sub-second precision), "2006-01-02 15:04:05",
// date-only strings, and epoch seconds or milliseconds. Unparseable input
// reports absent.
func (r Record) TimeField(keys ...string) (time.Time, bool) {
	for _, key := range keys {
		value, ok := r[key]
		if !ok || value == nil {
			continue
		}
		if ts, ok := parseTimestamp(value); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Fragments returns the first embedded list of records under keys.
func (r Record) Fragments(keys ...string) []Record {
	for _, key := range keys {
		value, ok := r[key]
		if !ok || value == nil {
			continue
		}
		list, ok := value.([]any)
		if !ok {
			continue
		}
		records := make([]Record, 0, len(list))
		for _, element := range list {
			if object, ok := element.(map[string]any); ok {
				records = append(records, Record(object))
			}
		}
		return records
	}
	return nil
}

// With returns a copy of the record with one field replaced. The receiver is
// never mutated.
func (r Record) With(key string, value any) Record {
	clone := make(Record, len(r)+1)
	for k, v := range r {
		clone[k] = v
	}
	clone[key] = value
	return clone
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func parseStatus(value any) Status {
	if number, ok := asNumber(value); ok {
		switch int(number) {
		case 1:
			return StatusInProgress
		case 2:
			return StatusDone
		case 3:
			return StatusSkipped
		default:
			return StatusPlanned
		}
	}
	switch normalizeKeyword(asString(value)) {
	case "in-progress", "inprogress", "doing", "active", "started":
		return StatusInProgress
	case "done", "completed", "complete", "finished":
		return StatusDone
	case "skipped", "skip", "cancelled", "canceled":
		return StatusSkipped
	default:
		return StatusPlanned
	}
}

func parsePriority(value any) (Priority, bool) {
	if number, ok := asNumber(value); ok {
		switch int(number) {
		case 1:
			return PriorityHigh, true
		case 2:
			return PriorityMedium, true
		case 3:
			return PriorityLow, true
		default:
			return PriorityNone, false
		}
	}
	switch normalizeKeyword(asString(value)) {
	case "high", "urgent":
		return PriorityHigh, true
	case "medium", "normal":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	default:
		return PriorityNone, false
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(value any) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, text); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	case float64, int, int64, json.Number:
		number, ok := asNumber(v)
		if !ok || number <= 0 {
			return time.Time{}, false
		}
		// Epoch milliseconds past ~2001-09; anything smaller is seconds.
		if number >= 1e12 {
			return time.UnixMilli(int64(number)).UTC(), true
		}
		return time.Unix(int64(number), 0).UTC(), true
	}
	return time.Time{}, false
}

func normalizeKeyword(text string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(text)), "_", "-")
}
