package model

import (
	"time"

	"github.com/google/uuid"
)

// InstanceStatus represents the status of one crew member's run-through of a workflow.
type InstanceStatus string

const (
	InstanceStatusNotStarted InstanceStatus = "not_started" // assigned, no phase started yet
	InstanceStatusInProgress InstanceStatus = "in_progress" // at least one phase started
	InstanceStatusCompleted  InstanceStatus = "completed"   // every required phase complete
)

// instanceStatusEdges encodes the allowed instance transitions.
// There is no edge out of completed.
var instanceStatusEdges = map[InstanceStatus][]InstanceStatus{
	InstanceStatusNotStarted: {InstanceStatusInProgress},
	InstanceStatusInProgress: {InstanceStatusCompleted},
	InstanceStatusCompleted:  {},
}

// CanTransitionTo reports whether an instance may move from its current status to target.
func (s InstanceStatus) CanTransitionTo(target InstanceStatus) bool {
	for _, next := range instanceStatusEdges[s] {
		if next == target {
			return true
		}
	}
	return false
}

// WorkflowInstance is one crew member's execution of a workflow template.
// The (workflow_id, user_id) pair is unique: repeating a workflow requires
// the previous instance to be cleaned up first.
type WorkflowInstance struct {
	BaseModel
	WorkflowID  uuid.UUID      `gorm:"type:uuid;column:workflow_id;not null;uniqueIndex:idx_instance_workflow_user" json:"workflowId"`
	UserID      uuid.UUID      `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_instance_workflow_user" json:"userId"`
	Status      InstanceStatus `gorm:"type:varchar(20);column:status;not null;default:'not_started'" json:"status"`
	StartedAt   *time.Time     `gorm:"type:timestamptz;column:started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time     `gorm:"type:timestamptz;column:completed_at" json:"completedAt,omitempty"`
	DueDate     *time.Time     `gorm:"type:timestamptz;column:due_date" json:"dueDate,omitempty"` // optional deadline used for reminder classification

	// Relationships
	Workflow *Workflow          `gorm:"foreignKey:WorkflowID;references:ID" json:"workflow,omitempty"`
	Progress []WorkflowProgress `gorm:"foreignKey:InstanceID;references:ID" json:"progress,omitempty"`
}

func (i *WorkflowInstance) TableName() string {
	return "workflow_instances"
}

// AssignWorkflowDTO is used to create an instance for a crew member.
type AssignWorkflowDTO struct {
	WorkflowID uuid.UUID  `json:"workflowId"`
	UserID     uuid.UUID  `json:"userId"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
}
