package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"dayboard/api/internal/cache"
	"dayboard/api/internal/config"
	"dayboard/api/internal/today"
	"dayboard/api/internal/upstream"
)

type fakeUpstream struct {
	fetchTasks           func(ctx context.Context, token, userID string) ([]today.Record, error)
	fetchScheduleEntries func(ctx context.Context, token string, from, to time.Time) ([]today.Record, error)
}

func (f *fakeUpstream) FetchTasks(ctx context.Context, token, userID string) ([]today.Record, error) {
	return f.fetchTasks(ctx, token, userID)
}

func (f *fakeUpstream) FetchScheduleEntries(ctx context.Context, token string, from, to time.Time) ([]today.Record, error) {
	return f.fetchScheduleEntries(ctx, token, from, to)
}

type fakeSnapshots struct {
	saveTasks           func(ctx context.Context, userID string, records []today.Record) error
	tasks               func(ctx context.Context, userID string) ([]today.Record, error)
	saveScheduleEntries func(ctx context.Context, userID string, records []today.Record) error
	scheduleEntries     func(ctx context.Context, userID string) ([]today.Record, error)
	ping                func(ctx context.Context) error
}

func (f *fakeSnapshots) SaveTasks(ctx context.Context, userID string, records []today.Record) error {
	if f.saveTasks == nil {
		return nil
	}
	return f.saveTasks(ctx, userID, records)
}

func (f *fakeSnapshots) Tasks(ctx context.Context, userID string) ([]today.Record, error) {
	if f.tasks == nil {
		return nil, cache.ErrNoSnapshot
	}
	return f.tasks(ctx, userID)
}

func (f *fakeSnapshots) SaveScheduleEntries(ctx context.Context, userID string, records []today.Record) error {
	if f.saveScheduleEntries == nil {
		return nil
	}
	return f.saveScheduleEntries(ctx, userID, records)
}

func (f *fakeSnapshots) ScheduleEntries(ctx context.Context, userID string) ([]today.Record, error) {
	if f.scheduleEntries == nil {
		return nil, cache.ErrNoSnapshot
	}
	return f.scheduleEntries(ctx, userID)
}

func (f *fakeSnapshots) Ping(ctx context.Context) error {
	if f.ping == nil {
		return nil
	}
	return f.ping(ctx)
}

func fixedNow() time.Time {
	return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
}

func newTestService(client upstreamClient, snapshots snapshotStore) *Service {
	return &Service{
		cfg:       config.Config{ScheduleWindowDays: 7},
		upstream:  client,
		snapshots: snapshots,
		location:  time.UTC,
		now:       fixedNow,
	}
}

func emptySchedule(ctx context.Context, token string, from, to time.Time) ([]today.Record, error) {
	return nil, nil
}

func TestTodayViewRequiresUserID(t *testing.T) {
	service := newTestService(&fakeUpstream{}, nil)

	_, err := service.TodayView(context.Background(), "token", "  ")

	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != http.StatusUnprocessableEntity || domainErr.Code != "VALIDATION_ERROR" {
		t.Errorf("unexpected error: %+v", domainErr)
	}
}

func TestTodayViewEndToEnd(t *testing.T) {
	client := &fakeUpstream{
		fetchTasks: func(ctx context.Context, token, userID string) ([]today.Record, error) {
			return []today.Record{
				{
					"id":    "t1",
					"title": "Essay",
					"checklistItems": []any{
						map[string]any{"id": "c1", "title": "Outline", "status": "in_progress"},
					},
				},
				{"id": "t2", "title": "Reading", "status": "planned"},
				{"id": "t3", "title": "Cleanup", "status": "done"},
			}, nil
		},
		fetchScheduleEntries: func(ctx context.Context, token string, from, to time.Time) ([]today.Record, error) {
			return []today.Record{
				{"id": "s1", "taskId": "t2", "startAt": "2025-01-15T09:00:00Z", "durationMinutes": 30, "status": "planned"},
			}, nil
		},
	}
	service := newTestService(client, nil)

	payload, err := service.TodayView(context.Background(), "token", "user-1")
	if err != nil {
		t.Fatalf("today view: %v", err)
	}

	inProgress := payload["inProgress"].([]map[string]any)
	planned := payload["planned"].([]map[string]any)
	completed := payload["completed"].([]map[string]any)

	if len(inProgress) != 1 || inProgress[0]["id"] != "c1" {
		t.Errorf("unexpected in-progress bucket: %+v", inProgress)
	}
	if inProgress[0]["parentTitle"] != "Essay" {
		t.Errorf("expected parent title on checklist item: %+v", inProgress[0])
	}
	if len(planned) != 1 || planned[0]["id"] != "t2" {
		t.Errorf("unexpected planned bucket: %+v", planned)
	}
	if planned[0]["startAt"] != "2025-01-15T09:00:00Z" {
		t.Errorf("expected schedule slot attached: %+v", planned[0])
	}
	if planned[0]["plannedMinutes"] != 30 {
		t.Errorf("expected planned minutes attached: %+v", planned[0])
	}
	if len(completed) != 1 || completed[0]["id"] != "t3" {
		t.Errorf("unexpected completed bucket: %+v", completed)
	}
	if payload["doneCount"] != 1 {
		t.Errorf("expected done count 1, got %v", payload["doneCount"])
	}

	sources := payload["sources"].(map[string]any)
	tasks := sources["tasks"].(map[string]any)
	if tasks["stale"] != false {
		t.Errorf("fresh fetch must not be marked stale: %+v", sources)
	}
}

func TestTodayViewFallsBackToSnapshot(t *testing.T) {
	client := &fakeUpstream{
		fetchTasks: func(ctx context.Context, token, userID string) ([]today.Record, error) {
			return nil, errors.New("connection refused")
		},
		fetchScheduleEntries: emptySchedule,
	}
	snapshots := &fakeSnapshots{
		tasks: func(ctx context.Context, userID string) ([]today.Record, error) {
			return []today.Record{{"id": "t1", "title": "Cached", "status": "planned"}}, nil
		},
	}
	service := newTestService(client, snapshots)

	payload, err := service.TodayView(context.Background(), "token", "user-1")
	if err != nil {
		t.Fatalf("today view: %v", err)
	}

	planned := payload["planned"].([]map[string]any)
	if len(planned) != 1 || planned[0]["title"] != "Cached" {
		t.Errorf("expected the cached feed, got %+v", planned)
	}
	sources := payload["sources"].(map[string]any)
	tasks := sources["tasks"].(map[string]any)
	if tasks["stale"] != true {
		t.Errorf("fallback must be marked stale: %+v", sources)
	}
}

func TestTodayViewDegradesToEmptyWithoutSnapshot(t *testing.T) {
	client := &fakeUpstream{
		fetchTasks: func(ctx context.Context, token, userID string) ([]today.Record, error) {
			return nil, errors.New("boom")
		},
		fetchScheduleEntries: emptySchedule,
	}
	service := newTestService(client, &fakeSnapshots{})

	payload, err := service.TodayView(context.Background(), "token", "user-1")
	if err != nil {
		t.Fatalf("today view: %v", err)
	}
	if len(payload["planned"].([]map[string]any)) != 0 {
		t.Errorf("expected an empty view, got %+v", payload)
	}
}

func TestTodayViewSurfacesAuthErrors(t *testing.T) {
	client := &fakeUpstream{
		fetchTasks: func(ctx context.Context, token, userID string) ([]today.Record, error) {
			return nil, &upstream.StatusError{StatusCode: http.StatusUnauthorized, Body: "expired"}
		},
		fetchScheduleEntries: emptySchedule,
	}
	snapshots := &fakeSnapshots{
		tasks: func(ctx context.Context, userID string) ([]today.Record, error) {
			t.Error("auth failures must not fall back to the cache")
			return nil, nil
		},
	}
	service := newTestService(client, snapshots)

	_, err := service.TodayView(context.Background(), "token", "user-1")

	var statusErr *upstream.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected the auth error to surface, got %v", err)
	}
}

func TestTodayViewSavesSnapshotOnSuccess(t *testing.T) {
	var savedTasks, savedSchedule bool
	client := &fakeUpstream{
		fetchTasks: func(ctx context.Context, token, userID string) ([]today.Record, error) {
			return []today.Record{{"id": "t1"}}, nil
		},
		fetchScheduleEntries: emptySchedule,
	}
	snapshots := &fakeSnapshots{
		saveTasks: func(ctx context.Context, userID string, records []today.Record) error {
			savedTasks = true
			return nil
		},
		saveScheduleEntries: func(ctx context.Context, userID string, records []today.Record) error {
			savedSchedule = true
			return nil
		},
	}
	service := newTestService(client, snapshots)

	if _, err := service.TodayView(context.Background(), "token", "user-1"); err != nil {
		t.Fatalf("today view: %v", err)
	}
	if !savedTasks || !savedSchedule {
		t.Errorf("expected both feeds snapshotted, tasks=%v schedule=%v", savedTasks, savedSchedule)
	}
}

func TestScheduleEntryLookupWindow(t *testing.T) {
	var gotFrom, gotTo time.Time
	client := &fakeUpstream{
		fetchScheduleEntries: func(ctx context.Context, token string, from, to time.Time) ([]today.Record, error) {
			gotFrom, gotTo = from, to
			return nil, nil
		},
	}
	service := newTestService(client, nil)

	if _, err := service.ScheduleEntryLookup(context.Background(), "token", "user-1", "w1", "", ""); err != nil {
		t.Fatalf("lookup: %v", err)
	}

	wantFrom := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	if !gotFrom.Equal(wantFrom) {
		t.Errorf("expected window from start of day, got %v", gotFrom)
	}
	if !gotTo.Equal(wantFrom.AddDate(0, 0, 7)) {
		t.Errorf("expected a 7-day window, got %v", gotTo)
	}
}

func TestScheduleEntryLookupFound(t *testing.T) {
	client := &fakeUpstream{
		fetchScheduleEntries: func(ctx context.Context, token string, from, to time.Time) ([]today.Record, error) {
			return []today.Record{
				{"id": "s1", "taskId": "t1", "startAt": "2025-01-15T09:00:00Z", "status": "planned"},
			}, nil
		},
	}
	service := newTestService(client, nil)

	payload, err := service.ScheduleEntryLookup(context.Background(), "token", "user-1", "", "t1", "")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	entry, ok := payload["entry"].(map[string]any)
	if !ok {
		t.Fatalf("expected an entry, got %+v", payload)
	}
	if entry["id"] != "s1" || entry["startAt"] != "2025-01-15T09:00:00Z" {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestScheduleEntryLookupMiss(t *testing.T) {
	client := &fakeUpstream{fetchScheduleEntries: emptySchedule}
	service := newTestService(client, nil)

	payload, err := service.ScheduleEntryLookup(context.Background(), "token", "user-1", "w-unknown", "", "")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if payload["entry"] != nil {
		t.Errorf("expected a nil entry, got %+v", payload)
	}
}

func TestScheduleEntryLookupRequiresAnIdentifier(t *testing.T) {
	service := newTestService(&fakeUpstream{}, nil)

	_, err := service.ScheduleEntryLookup(context.Background(), "token", "user-1", "", "", "")

	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestPingWithoutCache(t *testing.T) {
	service := newTestService(&fakeUpstream{}, nil)
	if err := service.Ping(context.Background()); err != nil {
		t.Errorf("readiness is trivially true without a cache, got %v", err)
	}
}
