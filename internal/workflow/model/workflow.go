package model

import (
	"encoding/json"
)

// WorkflowType classifies what an onboarding template is for.
type WorkflowType string

const (
	WorkflowTypeTraining   WorkflowType = "training"   // standalone training course
	WorkflowTypeOnboarding WorkflowType = "onboarding" // full crew onboarding flow
)

// KnownWorkflowTypes lists every recognized workflow type.
var KnownWorkflowTypes = []WorkflowType{WorkflowTypeTraining, WorkflowTypeOnboarding}

// WorkflowStatus represents the lifecycle status of a workflow template.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // being authored, not assignable
	WorkflowStatusActive   WorkflowStatus = "active"   // assignable to crew members
	WorkflowStatusArchived WorkflowStatus = "archived" // retired, kept for historical instances
)

// workflowStatusEdges encodes the allowed status transitions.
// Workflows are never hard-deleted; archiving is the terminal state.
var workflowStatusEdges = map[WorkflowStatus][]WorkflowStatus{
	WorkflowStatusDraft:    {WorkflowStatusActive},
	WorkflowStatusActive:   {WorkflowStatusArchived},
	WorkflowStatusArchived: {},
}

// CanTransitionTo reports whether a workflow may move from its current status to target.
func (s WorkflowStatus) CanTransitionTo(target WorkflowStatus) bool {
	for _, next := range workflowStatusEdges[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Workflow represents a named, versionable onboarding template composed of ordered phases.
type Workflow struct {
	BaseModel
	Name        string          `gorm:"type:varchar(255);column:name;not null" json:"name"`                      // Human-readable name of the workflow
	Slug        string          `gorm:"type:varchar(100);column:slug;not null;uniqueIndex" json:"slug"`          // URL-safe unique identifier
	Description string          `gorm:"type:text;column:description" json:"description"`                         // Optional description
	Type        WorkflowType    `gorm:"type:varchar(50);column:type;not null" json:"type"`                       // training or onboarding
	Status      WorkflowStatus  `gorm:"type:varchar(20);column:status;not null;default:'draft'" json:"status"`   // draft, active or archived
	Config      json.RawMessage `gorm:"type:jsonb;column:config;serializer:json" json:"config,omitempty"`        // Free-form workflow options
	Metadata    json.RawMessage `gorm:"type:jsonb;column:metadata;serializer:json" json:"metadata,omitempty"`    // Free-form administrative metadata

	// Relationships
	Phases []WorkflowPhase `gorm:"foreignKey:WorkflowID;references:ID" json:"phases,omitempty"`
}

func (w *Workflow) TableName() string {
	return "workflows"
}

// CreateWorkflowDTO is used to create a new workflow template.
type CreateWorkflowDTO struct {
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description,omitempty"`
	Type        WorkflowType    `json:"type"`
	Status      WorkflowStatus  `json:"status,omitempty"` // defaults to draft when empty
	Config      json.RawMessage `json:"config,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// UpdateWorkflowDTO is a partial update; nil fields are left unchanged.
type UpdateWorkflowDTO struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Status      *WorkflowStatus  `json:"status,omitempty"`
	Config      *json.RawMessage `json:"config,omitempty"`
	Metadata    *json.RawMessage `json:"metadata,omitempty"`
}

// WorkflowStatistics aggregates instance counts for a workflow by status.
type WorkflowStatistics struct {
	WorkflowID string `json:"workflowId"`
	NotStarted int64  `json:"notStarted"`
	InProgress int64  `json:"inProgress"`
	Completed  int64  `json:"completed"`
	Total      int64  `json:"total"`
}

// HealthStatus reports backing-store connectivity.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail"`
}
