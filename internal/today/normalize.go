package today

// Field alias sets, ordered by how recent the spelling is upstream. The task
// service has shipped camelCase, snake_case, and a few renamed keys over its
// history; the readers take the first present value.
var (
	titleKeys           = []string{"title", "name"}
	ownIDKeys           = []string{"id", "taskId", "task_id"}
	taskRefKeys         = []string{"taskId", "task_id"}
	workItemRefKeys     = []string{"workItemId", "work_item_id"}
	checklistRefKeys    = []string{"checklistItemId", "checklist_item_id", "itemId", "item_id"}
	checklistOwnIDKeys  = []string{"id", "checklistItemId", "checklist_item_id", "itemId", "item_id"}
	statusKeys          = []string{"status"}
	derivedStatusKeys   = []string{"derivedStatus", "derived_status", "aggregateStatus", "aggregate_status"}
	priorityKeys        = []string{"priority"}
	deadlineKeys        = []string{"deadline", "dueDate", "due_date", "dueAt", "due_at"}
	taskDeadlineKeys    = []string{"effectiveDeadline", "effective_deadline", "deadline", "dueDate", "due_date", "dueAt", "due_at"}
	startKeys           = []string{"startAt", "start_at", "startTime", "start_time", "startDate", "start_date"}
	durationKeys        = []string{"plannedMinutes", "planned_minutes", "plannedDuration", "planned_duration", "durationMinutes", "duration_minutes"}
	updatedKeys         = []string{"updatedAt", "updated_at", "modifiedAt", "modified_at", "lastModified", "last_modified"}
	checklistListKeys   = []string{"checklistItems", "checklist_items", "checklist", "items"}
	workItemListKeys    = []string{"workItems", "work_items", "schedule", "scheduleItems"}
)

// unknownID is the sentinel for a work-item fragment that resolved to no
// identifier at all. The defensive dedup pass still keeps at most one.
const unknownID = "(Unknown)"

// normalizeWorkItem folds a work-item fragment and its owning task into a
// canonical item. Work-item fragments are schedule-oriented records that may
// point at the task directly or at one of its checklist children; the merge
// pipeline synthesizes a missing checklist reference by title before calling
// this.
func normalizeWorkItem(task, fragment Record) Item {
	taskID := fragment.StringField(taskRefKeys...)
	if taskID == "" {
		taskID = task.StringField(ownIDKeys...)
	}
	checklistID := fragment.StringField(checklistRefKeys...)

	item := Item{
		Source:          SourceTask,
		TaskID:          taskID,
		ChecklistItemID: checklistID,
	}

	item.Status = cascadeStatus(task, fragment)
	if priority, ok := task.PriorityField(priorityKeys...); ok {
		item.Priority = priority
	} else if priority, ok := fragment.PriorityField(priorityKeys...); ok {
		item.Priority = priority
	}
	if deadline, ok := fragment.TimeField(deadlineKeys...); ok {
		item.Deadline = &deadline
	} else if deadline, ok := task.TimeField(taskDeadlineKeys...); ok {
		item.Deadline = &deadline
	}
	if start, ok := fragment.TimeField(startKeys...); ok {
		item.StartAt = &start
	}
	if minutes, ok := fragment.NumberField(durationKeys...); ok && minutes > 0 {
		item.PlannedMinutes = int(minutes)
	}
	if updated, ok := fragment.TimeField(updatedKeys...); ok {
		item.UpdatedAt = &updated
	} else if updated, ok := task.TimeField(updatedKeys...); ok {
		item.UpdatedAt = &updated
	}

	item.Title = fragment.StringField(titleKeys...)
	if item.Title == "" {
		item.Title = task.StringField(titleKeys...)
	}

	switch {
	case fragment.StringField(workItemRefKeys...) != "":
		item.ID = fragment.StringField(workItemRefKeys...)
	case fragment.StringField("id") != "":
		item.ID = fragment.StringField("id")
	case checklistID != "":
		item.ID = checklistID
	case taskID != "":
		item.ID = taskID
	default:
		item.ID = unknownID
	}

	if checklistID != "" {
		item.Source = SourceChecklist
		item.ParentTitle = task.StringField(titleKeys...)
	}
	return item
}

// normalizeChecklist folds a raw checklist fragment into a canonical item.
// Reports false when no checklist identifier can be resolved.
func normalizeChecklist(task, fragment Record) (Item, bool) {
	checklistID := fragment.StringField(checklistOwnIDKeys...)
	if checklistID == "" {
		return Item{}, false
	}

	item := Item{
		Source:          SourceChecklist,
		ParentTitle:     task.StringField(titleKeys...),
		TaskID:          task.StringField(ownIDKeys...),
		ChecklistItemID: checklistID,
	}

	if workItemID := fragment.StringField(workItemRefKeys...); workItemID != "" {
		item.ID = workItemID
	} else {
		item.ID = checklistID
	}

	item.Status = cascadeStatus(task, fragment)
	if priority, ok := task.PriorityField(priorityKeys...); ok {
		item.Priority = priority
	} else if priority, ok := fragment.PriorityField(priorityKeys...); ok {
		item.Priority = priority
	}
	if deadline, ok := fragment.TimeField(deadlineKeys...); ok {
		item.Deadline = &deadline
	} else if deadline, ok := task.TimeField(taskDeadlineKeys...); ok {
		item.Deadline = &deadline
	}
	if start, ok := fragment.TimeField(startKeys...); ok {
		item.StartAt = &start
	} else if start, ok := task.TimeField(startKeys...); ok {
		item.StartAt = &start
	}
	if minutes, ok := fragment.NumberField(durationKeys...); ok && minutes > 0 {
		item.PlannedMinutes = int(minutes)
	} else if minutes, ok := task.NumberField(durationKeys...); ok && minutes > 0 {
		item.PlannedMinutes = int(minutes)
	}
	if updated, ok := fragment.TimeField(updatedKeys...); ok {
		item.UpdatedAt = &updated
	} else if updated, ok := task.TimeField(updatedKeys...); ok {
		item.UpdatedAt = &updated
	}

	item.Title = fragment.StringField(titleKeys...)
	if item.Title == "" {
		item.Title = task.StringField(titleKeys...)
	}
	return item, true
}

// normalizeTask folds an atomic task (no fragments of either kind) into a
// canonical item. Reports false when the task has no identifier.
func normalizeTask(task Record) (Item, bool) {
	taskID := task.StringField(ownIDKeys...)
	if taskID == "" {
		return Item{}, false
	}

	item := Item{
		ID:     taskID,
		Source: SourceTask,
		Title:  task.StringField(titleKeys...),
		TaskID: taskID,
	}

	item.Status = cascadeStatus(task, nil)
	if priority, ok := task.PriorityField(priorityKeys...); ok {
		item.Priority = priority
	}
	if deadline, ok := task.TimeField(taskDeadlineKeys...); ok {
		item.Deadline = &deadline
	}
	if start, ok := task.TimeField(startKeys...); ok {
		item.StartAt = &start
	}
	if minutes, ok := task.NumberField(durationKeys...); ok && minutes > 0 {
		item.PlannedMinutes = int(minutes)
	}
	if updated, ok := task.TimeField(updatedKeys...); ok {
		item.UpdatedAt = &updated
	}
	return item, true
}

// cascadeStatus resolves status as: the task's pre-aggregated derived status,
// else the fragment's own status, else the task's raw status, else planned.
func cascadeStatus(task, fragment Record) Status {
	if status, ok := task.StatusField(derivedStatusKeys...); ok {
		return status
	}
	if fragment != nil {
		if status, ok := fragment.StatusField(statusKeys...); ok {
			return status
		}
	}
	status, _ := task.StatusField(statusKeys...)
	return status
}
