package notification

import (
	"time"

	"github.com/google/uuid"
)

// PhaseCompletedEvent is published when a crew member finishes a phase.
// The email dispatcher and admin dashboards subscribe to it.
type PhaseCompletedEvent struct {
	InstanceID  uuid.UUID `json:"instanceId"`
	WorkflowID  uuid.UUID `json:"workflowId"`
	PhaseID     uuid.UUID `json:"phaseId"`
	UserID      uuid.UUID `json:"userId"`
	PhaseName   string    `json:"phaseName"`
	CompletedAt time.Time `json:"completedAt"`
}

// WorkflowCompletedEvent is published when every required phase of an
// instance is complete. The certificate generator subscribes to it.
type WorkflowCompletedEvent struct {
	InstanceID   uuid.UUID `json:"instanceId"`
	WorkflowID   uuid.UUID `json:"workflowId"`
	UserID       uuid.UUID `json:"userId"`
	WorkflowSlug string    `json:"workflowSlug"`
	CompletedAt  time.Time `json:"completedAt"`
}
