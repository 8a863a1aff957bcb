package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/OpenCrew/crewflow/internal/progress"
	"github.com/OpenCrew/crewflow/internal/workflow/model"
)

// InstanceProgressSummary is the crew-facing view of how far along an
// instance is.
type InstanceProgressSummary struct {
	InstanceID        uuid.UUID                 `json:"instanceId"`
	Status            model.InstanceStatus      `json:"status"`
	CompletedItems    int                       `json:"completedItems"`
	RequiredItems     int                       `json:"requiredItems"`
	CompletionPercent int                       `json:"completionPercent"`
	TimeSpentMinutes  int                       `json:"timeSpentMinutes"`
	ReminderCategory  progress.ReminderCategory `json:"reminderCategory"`
	DueDate           *time.Time                `json:"dueDate,omitempty"`
	LastActivity      *time.Time                `json:"lastActivity,omitempty"`
}

// GetProgressSummary computes completion percentage over required items,
// total time spent and the reminder classification for one instance.
func (s *InstanceService) GetProgressSummary(ctx context.Context, instanceID uuid.UUID) (*InstanceProgressSummary, error) {
	instance, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	phases, err := s.repo.GetPhasesWithItemsByWorkflow(ctx, instance.WorkflowID)
	if err != nil {
		return nil, &StoreError{Op: "phase list", Err: err}
	}

	records, err := s.repo.GetProgressByInstance(ctx, instanceID)
	if err != nil {
		return nil, &StoreError{Op: "progress snapshot", Err: err}
	}

	byItem := itemProgressIndex(records)
	required := 0
	completed := 0
	for i := range phases {
		for j := range phases[i].Items {
			item := &phases[i].Items[j]
			if !item.Required {
				continue
			}
			required++
			if record, ok := byItem[item.ID]; ok && record.Status == model.ProgressStatusCompleted {
				completed++
			}
		}
	}

	summary := &InstanceProgressSummary{
		InstanceID:        instanceID,
		Status:            instance.Status,
		CompletedItems:    completed,
		RequiredItems:     required,
		CompletionPercent: progress.CompletionPercentage(completed, required),
		TimeSpentMinutes:  progress.CalculateTimeSpent(records),
		DueDate:           instance.DueDate,
	}

	if last := progress.LastActivity(records); !last.IsZero() {
		summary.LastActivity = &last
	}

	if s.tracker != nil && instance.Status != model.InstanceStatusCompleted {
		last := progress.LastActivity(records)
		summary.ReminderCategory = s.tracker.Classify(instance.DueDate, last, time.Now().UTC())
	}

	return summary, nil
}
