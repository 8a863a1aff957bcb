package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProgressStatus represents the completion status of a progress record.
type ProgressStatus string

const (
	ProgressStatusInProgress ProgressStatus = "in_progress"
	ProgressStatusCompleted  ProgressStatus = "completed"
)

// WorkflowProgress records a crew member's interaction with a phase or an
// individual item. ItemID is nil for phase-level records. Rows are updated
// in place; they are only deleted on full instance cleanup.
type WorkflowProgress struct {
	BaseModel
	InstanceID  uuid.UUID      `gorm:"type:uuid;column:instance_id;not null;uniqueIndex:idx_progress_instance_item" json:"instanceId"`
	PhaseID     uuid.UUID      `gorm:"type:uuid;column:phase_id;not null" json:"phaseId"`
	ItemID      *uuid.UUID     `gorm:"type:uuid;column:item_id;uniqueIndex:idx_progress_instance_item" json:"itemId,omitempty"`
	Status      ProgressStatus `gorm:"type:varchar(20);column:status;not null" json:"status"`
	StartedAt   *time.Time     `gorm:"type:timestamptz;column:started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time     `gorm:"type:timestamptz;column:completed_at" json:"completedAt,omitempty"`
	Score       *float64       `gorm:"column:score" json:"score,omitempty"`                            // latest quiz score fraction, phase-level rows only
	ProofRef    *string        `gorm:"type:varchar(512);column:proof_ref" json:"proofRef,omitempty"` // signature or uploaded photo reference

	// Relationships
	Instance *WorkflowInstance `gorm:"foreignKey:InstanceID;references:ID" json:"-"`
}

func (p *WorkflowProgress) TableName() string {
	return "workflow_progress"
}

// IsPhaseLevel reports whether this record tracks a whole phase rather than one item.
func (p *WorkflowProgress) IsPhaseLevel() bool {
	return p.ItemID == nil
}

// QuizAttempt is one submission of a quiz phase. Every attempt is retained
// for audit; only the latest one decides phase completion.
type QuizAttempt struct {
	BaseModel
	InstanceID     uuid.UUID       `gorm:"type:uuid;column:instance_id;not null;index" json:"instanceId"`
	PhaseID        uuid.UUID       `gorm:"type:uuid;column:phase_id;not null;index" json:"phaseId"`
	Score          int             `gorm:"column:score;not null" json:"score"`                    // correct answers
	TotalQuestions int             `gorm:"column:total_questions;not null" json:"totalQuestions"` // question count
	Passed         bool            `gorm:"column:passed;not null" json:"passed"`
	Answers        json.RawMessage `gorm:"type:jsonb;column:answers;serializer:json" json:"answers,omitempty"`

	// Relationships
	Instance *WorkflowInstance `gorm:"foreignKey:InstanceID;references:ID" json:"-"`
}

func (a *QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// Fraction returns the attempt's score as a fraction of total questions.
func (a *QuizAttempt) Fraction() float64 {
	if a.TotalQuestions == 0 {
		return 0
	}
	return float64(a.Score) / float64(a.TotalQuestions)
}

// CompleteItemDTO is used to mark an item complete for an instance.
type CompleteItemDTO struct {
	ItemID   uuid.UUID `json:"itemId"`
	ProofRef *string   `json:"proofRef,omitempty"` // required when the item demands proof
}

// SubmitQuizDTO is one quiz submission for a phase.
type SubmitQuizDTO struct {
	PhaseID        uuid.UUID       `json:"phaseId"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"totalQuestions"`
	Answers        json.RawMessage `json:"answers,omitempty"`
}
