package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ItemType classifies an individual unit inside a phase.
type ItemType string

const (
	ItemTypeContent  ItemType = "content"  // rich text or document to read
	ItemTypeVideo    ItemType = "video"    // video to watch
	ItemTypeTraining ItemType = "training" // practical exercise to sign off
	ItemTypeQuiz     ItemType = "quiz"     // question set answered as a phase-level quiz attempt
)

// KnownItemTypes lists every recognized item type.
var KnownItemTypes = []ItemType{ItemTypeContent, ItemTypeVideo, ItemTypeTraining, ItemTypeQuiz}

// WorkflowPhaseItem is an individual content/training/quiz unit inside a phase.
// ItemNumber is unique within its phase and orders the items.
type WorkflowPhaseItem struct {
	BaseModel
	PhaseID       uuid.UUID       `gorm:"type:uuid;column:phase_id;not null;uniqueIndex:idx_phase_item_number" json:"phaseId"`
	ItemNumber    int             `gorm:"column:item_number;not null;uniqueIndex:idx_phase_item_number" json:"itemNumber"`
	Type          ItemType        `gorm:"type:varchar(20);column:type;not null" json:"type"`
	Title         string          `gorm:"type:varchar(255);column:title;not null" json:"title"`
	Content       json.RawMessage `gorm:"type:jsonb;column:content;serializer:json" json:"content,omitempty"` // rich text, video ref or question set
	Required      bool            `gorm:"column:required;not null;default:true" json:"required"`
	RequiresProof bool            `gorm:"column:requires_proof;not null;default:false" json:"requiresProof"` // instructor signature or photo needed on completion

	// Relationships
	Phase *WorkflowPhase `gorm:"foreignKey:PhaseID;references:ID" json:"-"`
}

func (i *WorkflowPhaseItem) TableName() string {
	return "workflow_phase_items"
}

// DemandsProof reports whether completing this item requires a signature or
// uploaded photo reference. Only training items can demand proof.
func (i *WorkflowPhaseItem) DemandsProof() bool {
	return i.Type == ItemTypeTraining && i.RequiresProof
}

// CreateWorkflowPhaseItemDTO is used to add an item to an existing phase.
type CreateWorkflowPhaseItemDTO struct {
	PhaseID       uuid.UUID       `json:"phaseId"`
	ItemNumber    int             `json:"itemNumber"`
	Type          ItemType        `json:"type"`
	Title         string          `json:"title"`
	Content       json.RawMessage `json:"content,omitempty"`
	Required      *bool           `json:"required,omitempty"` // defaults to true
	RequiresProof bool            `json:"requiresProof,omitempty"`
}
