package app

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"dayboard/api/internal/cache"
	"dayboard/api/internal/config"
	"dayboard/api/internal/today"
	"dayboard/api/internal/upstream"
)

type upstreamClient interface {
	FetchTasks(ctx context.Context, token, userID string) ([]today.Record, error)
	FetchScheduleEntries(ctx context.Context, token string, from, to time.Time) ([]today.Record, error)
}

type snapshotStore interface {
	SaveTasks(ctx context.Context, userID string, records []today.Record) error
	Tasks(ctx context.Context, userID string) ([]today.Record, error)
	SaveScheduleEntries(ctx context.Context, userID string, records []today.Record) error
	ScheduleEntries(ctx context.Context, userID string) ([]today.Record, error)
	Ping(ctx context.Context) error
}

// Service composes the upstream client, the snapshot cache, and the pure
// reconciliation pipeline. The view is recomputed from fresh snapshots on
// every request; nothing is memoized or persisted.
type Service struct {
	cfg       config.Config
	upstream  upstreamClient
	snapshots snapshotStore
	location  *time.Location
	now       func() time.Time
}

func New(cfg config.Config, client *upstream.Client, snapshots *cache.SnapshotStore) *Service {
	service := &Service{
		cfg:      cfg,
		upstream: client,
		location: loadLocation(cfg.TimeZone),
		now:      time.Now,
	}
	if snapshots != nil {
		service.snapshots = snapshots
	}
	return service
}

func loadLocation(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		return time.Local
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("config: unknown time zone %q, using local: %v", name, err)
		return time.Local
	}
	return location
}

// feedResult tracks where a feed's records came from so the client can show
// a staleness hint.
type feedResult struct {
	records []today.Record
	stale   bool
}

// TodayView fetches both feeds, reconciles them, and returns the categorized
// day view. A failed fetch falls back to the cached snapshot, then to an
// empty feed; the pipeline itself never fails.
func (s *Service) TodayView(ctx context.Context, token, userID string) (map[string]any, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "userId is required", nil)
	}

	tasks, err := s.loadTasks(ctx, token, userID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.loadScheduleEntries(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	items := today.MergeTasks(tasks.records, s.logDuplicate)
	index := today.BuildScheduleIndex(schedule.records)
	items = today.AttachSchedules(items, index)
	items = today.FilterToday(items, s.now().In(s.location))
	view := today.Categorize(items)

	return map[string]any{
		"inProgress":    itemPayloads(view.InProgress),
		"planned":       itemPayloads(view.Planned),
		"completed":     itemPayloads(view.Completed),
		"doneCount":     view.DoneCount,
		"progressValue": view.ProgressValue,
		"sources": map[string]any{
			"tasks":    map[string]any{"stale": tasks.stale},
			"schedule": map[string]any{"stale": schedule.stale},
		},
	}, nil
}

// ScheduleEntryLookup answers whether an item already has a calendar slot.
// The caller passes whichever identifiers it has; lookup order matches the
// augmenter (own id, task id, checklist-item id).
func (s *Service) ScheduleEntryLookup(ctx context.Context, token, userID, workItemID, taskID, checklistItemID string) (map[string]any, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "userId is required", nil)
	}
	probe := today.Item{
		ID:              firstNonBlank(workItemID, checklistItemID, taskID),
		TaskID:          strings.TrimSpace(taskID),
		ChecklistItemID: strings.TrimSpace(checklistItemID),
	}
	if probe.ID == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "at least one of workItemId, taskId, checklistItemId is required", nil)
	}

	schedule, err := s.loadScheduleEntries(ctx, token, userID)
	if err != nil {
		return nil, err
	}
	index := today.BuildScheduleIndex(schedule.records)
	entry := index.Find(probe)
	if entry == nil {
		return map[string]any{"entry": nil}, nil
	}
	return map[string]any{"entry": scheduleEntryPayload(entry)}, nil
}

func (s *Service) loadTasks(ctx context.Context, token, userID string) (feedResult, error) {
	records, err := s.upstream.FetchTasks(ctx, token, userID)
	if err == nil {
		if s.snapshots != nil {
			if saveErr := s.snapshots.SaveTasks(ctx, userID, records); saveErr != nil {
				log.Printf("cache: task snapshot save failed for user %s: %v", userID, saveErr)
			}
		}
		return feedResult{records: records}, nil
	}
	if isAuthError(err) {
		return feedResult{}, err
	}
	log.Printf("upstream: task fetch failed for user %s: %v", userID, err)
	if s.snapshots != nil {
		if cached, cacheErr := s.snapshots.Tasks(ctx, userID); cacheErr == nil {
			return feedResult{records: cached, stale: true}, nil
		} else if cacheErr != cache.ErrNoSnapshot {
			log.Printf("cache: task snapshot load failed for user %s: %v", userID, cacheErr)
		}
	}
	return feedResult{stale: true}, nil
}

func (s *Service) loadScheduleEntries(ctx context.Context, token, userID string) (feedResult, error) {
	from := startOfDay(s.now().In(s.location))
	to := from.AddDate(0, 0, s.cfg.ScheduleWindowDays)
	records, err := s.upstream.FetchScheduleEntries(ctx, token, from, to)
	if err == nil {
		if s.snapshots != nil {
			if saveErr := s.snapshots.SaveScheduleEntries(ctx, userID, records); saveErr != nil {
				log.Printf("cache: schedule snapshot save failed for user %s: %v", userID, saveErr)
			}
		}
		return feedResult{records: records}, nil
	}
	if isAuthError(err) {
		return feedResult{}, err
	}
	log.Printf("upstream: schedule fetch failed for user %s: %v", userID, err)
	if s.snapshots != nil {
		if cached, cacheErr := s.snapshots.ScheduleEntries(ctx, userID); cacheErr == nil {
			return feedResult{records: cached, stale: true}, nil
		} else if cacheErr != cache.ErrNoSnapshot {
			log.Printf("cache: schedule snapshot load failed for user %s: %v", userID, cacheErr)
		}
	}
	return feedResult{stale: true}, nil
}

func (s *Service) logDuplicate(event today.DuplicateEvent) {
	log.Printf(`{"event":"duplicate_resolved","id":"%s","key":"%s","kept":"%s","dropped":"%s"}`,
		event.ID, event.Key, event.Kept.ID, event.Dropped.ID)
}

// Ping checks the snapshot cache; with no cache configured there is nothing
// to probe and readiness is trivially true.
func (s *Service) Ping(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	return s.snapshots.Ping(ctx)
}

func isAuthError(err error) bool {
	if statusErr, ok := err.(*upstream.StatusError); ok {
		return statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func itemPayloads(items []today.Item) []map[string]any {
	payloads := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, itemPayload(item))
	}
	return payloads
}

func itemPayload(item today.Item) map[string]any {
	payload := map[string]any{
		"id":     item.ID,
		"source": string(item.Source),
		"title":  item.Title,
		"status": string(item.Status),
	}
	if item.ParentTitle != "" {
		payload["parentTitle"] = item.ParentTitle
	}
	if item.Priority != today.PriorityNone {
		payload["priority"] = int(item.Priority)
	}
	if item.StartAt != nil {
		payload["startAt"] = item.StartAt.Format(time.RFC3339)
	}
	if item.PlannedMinutes > 0 {
		payload["plannedMinutes"] = item.PlannedMinutes
	}
	if item.Deadline != nil {
		payload["deadline"] = item.Deadline.Format(time.RFC3339)
	}
	if item.UpdatedAt != nil {
		payload["updatedAt"] = item.UpdatedAt.Format(time.RFC3339)
	}
	if item.TaskID != "" {
		payload["taskId"] = item.TaskID
	}
	if item.ChecklistItemID != "" {
		payload["checklistItemId"] = item.ChecklistItemID
	}
	return payload
}

func scheduleEntryPayload(entry *today.ScheduleEntry) map[string]any {
	payload := map[string]any{
		"status": string(entry.Status),
	}
	if entry.ID != "" {
		payload["id"] = entry.ID
	}
	if entry.StartAt != nil {
		payload["startAt"] = entry.StartAt.Format(time.RFC3339)
	}
	if entry.PlannedMinutes > 0 {
		payload["plannedMinutes"] = entry.PlannedMinutes
	}
	if entry.UpdatedAt != nil {
		payload["updatedAt"] = entry.UpdatedAt.Format(time.RFC3339)
	}
	if entry.WorkItemID != "" {
		payload["workItemId"] = entry.WorkItemID
	}
	if entry.TaskID != "" {
		payload["taskId"] = entry.TaskID
	}
	if entry.ChecklistItemID != "" {
		payload["checklistItemId"] = entry.ChecklistItemID
	}
	return payload
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
