package progress

import (
	"math"
	"time"

	"github.com/OpenCrew/crewflow/internal/config"
	"github.com/OpenCrew/crewflow/internal/workflow/model"
)

// ReminderCategory classifies an in-flight instance for the reminder
// scheduler.
type ReminderCategory string

const (
	// ReminderOverdue: the due date has passed.
	ReminderOverdue ReminderCategory = "overdue"
	// ReminderInactive: no recorded activity for longer than the inactivity
	// window.
	ReminderInactive ReminderCategory = "inactive"
	// ReminderDueSoon: the due date falls within the due-soon window.
	ReminderDueSoon ReminderCategory = "due_soon"
	// ReminderUpcoming: none of the above apply.
	ReminderUpcoming ReminderCategory = "upcoming"
)

// CalculateTimeSpent sums the durations of completed progress rows, in
// whole minutes. Rows that are not completed or lack either timestamp
// contribute nothing. The result does not depend on row order.
func CalculateTimeSpent(records []model.WorkflowProgress) int {
	var total time.Duration
	for i := range records {
		record := &records[i]
		if record.Status != model.ProgressStatusCompleted {
			continue
		}
		if record.StartedAt == nil || record.CompletedAt == nil {
			continue
		}
		elapsed := record.CompletedAt.Sub(*record.StartedAt)
		if elapsed < 0 {
			continue
		}
		total += elapsed
	}
	return int(total.Minutes())
}

// CompletionPercentage returns completed required items over the total as a
// rounded whole percentage. A workflow with no required items counts as
// fully complete.
func CompletionPercentage(completed, totalRequired int) int {
	if totalRequired <= 0 {
		return 100
	}
	if completed > totalRequired {
		completed = totalRequired
	}
	return int(math.Round(float64(completed) / float64(totalRequired) * 100))
}

// Tracker classifies instances for the reminder scheduler using the
// configured due-soon and inactivity windows.
type Tracker struct {
	dueSoonWindow    time.Duration
	inactivityWindow time.Duration
}

func NewTracker(cfg *config.ReminderConfig) *Tracker {
	return &Tracker{
		dueSoonWindow:    time.Duration(cfg.DueSoonHours) * time.Hour,
		inactivityWindow: time.Duration(cfg.InactiveDays) * 24 * time.Hour,
	}
}

// Classify buckets an instance into exactly one reminder category. Checks
// apply in priority order: overdue beats inactive beats due-soon. A zero
// lastActivity means nothing has been recorded yet and skips the
// inactivity check. A nil dueDate skips the deadline checks.
func (t *Tracker) Classify(dueDate *time.Time, lastActivity time.Time, now time.Time) ReminderCategory {
	if dueDate != nil && now.After(*dueDate) {
		return ReminderOverdue
	}
	if !lastActivity.IsZero() && now.Sub(lastActivity) > t.inactivityWindow {
		return ReminderInactive
	}
	if dueDate != nil && dueDate.Sub(now) <= t.dueSoonWindow {
		return ReminderDueSoon
	}
	return ReminderUpcoming
}

// LastActivity returns the most recent timestamp across an instance's
// progress rows, or the zero time when there are none.
func LastActivity(records []model.WorkflowProgress) time.Time {
	var latest time.Time
	for i := range records {
		record := &records[i]
		if record.CompletedAt != nil && record.CompletedAt.After(latest) {
			latest = *record.CompletedAt
		}
		if record.StartedAt != nil && record.StartedAt.After(latest) {
			latest = *record.StartedAt
		}
	}
	return latest
}
