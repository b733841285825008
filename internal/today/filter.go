package today

import "time"

// FilterToday keeps the items that belong in the day view for the day
// containing now, evaluated in now's location:
//
//   - items with no start time are always surfaced so the user can act on
//     them (this also covers start times that failed to parse upstream);
//   - in-progress items are always surfaced regardless of when they were
//     scheduled;
//   - otherwise the start time must fall within [start of today, start of
//     tomorrow).
func FilterToday(items []Item, now time.Time) []Item {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.StartAt == nil || item.Status == StatusInProgress {
			out = append(out, item)
			continue
		}
		start := item.StartAt.In(now.Location())
		if !start.Before(dayStart) && start.Before(dayEnd) {
			out = append(out, item)
		}
	}
	return out
}
