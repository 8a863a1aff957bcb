package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PhaseType governs the completion rule applied to a phase.
type PhaseType string

const (
	PhaseTypeContent  PhaseType = "content"  // complete when every required item has been viewed
	PhaseTypeTraining PhaseType = "training" // content rules plus signature/photo proof where demanded
	PhaseTypeQuiz     PhaseType = "quiz"     // complete when the latest attempt reaches the passing score
	PhaseTypeMixed    PhaseType = "mixed"    // item-level dispatch across the above rules
)

// KnownPhaseTypes lists every recognized phase type.
var KnownPhaseTypes = []PhaseType{PhaseTypeContent, PhaseTypeTraining, PhaseTypeQuiz, PhaseTypeMixed}

// DefaultPassingScore is the quiz pass threshold applied when a quiz config does not set one.
const DefaultPassingScore = 0.8

// WorkflowPhase is an ordered step within a workflow template.
// PhaseNumber is unique and contiguous within its workflow.
type WorkflowPhase struct {
	BaseModel
	WorkflowID               uuid.UUID       `gorm:"type:uuid;column:workflow_id;not null;uniqueIndex:idx_workflow_phase_number" json:"workflowId"`
	PhaseNumber              int             `gorm:"column:phase_number;not null;uniqueIndex:idx_workflow_phase_number" json:"phaseNumber"`
	Name                     string          `gorm:"type:varchar(255);column:name;not null" json:"name"`
	Type                     PhaseType       `gorm:"type:varchar(20);column:type;not null" json:"type"`
	Config                   json.RawMessage `gorm:"type:jsonb;column:config;serializer:json" json:"config,omitempty"`
	Required                 bool            `gorm:"column:required;not null;default:true" json:"required"`
	EstimatedDurationMinutes int             `gorm:"column:estimated_duration_minutes" json:"estimatedDurationMinutes"`

	// Relationships
	Workflow *Workflow           `gorm:"foreignKey:WorkflowID;references:ID" json:"-"`
	Items    []WorkflowPhaseItem `gorm:"foreignKey:PhaseID;references:ID" json:"items,omitempty"`
}

func (p *WorkflowPhase) TableName() string {
	return "workflow_phases"
}

// PhaseConfig is the tagged union of per-type phase configuration.
// Modelling the jsonb config column this way keeps the completion-predicate
// dispatch exhaustive instead of poking at an untyped map.
type PhaseConfig interface {
	phaseConfig()
}

// ContentConfig configures a content phase.
type ContentConfig struct {
	IntroText string `json:"introText,omitempty"`
}

func (ContentConfig) phaseConfig() {}

// TrainingConfig configures a training phase.
type TrainingConfig struct {
	RequireInstructorSignoff bool `json:"requireInstructorSignoff,omitempty"`
}

func (TrainingConfig) phaseConfig() {}

// QuizConfig configures a quiz phase.
type QuizConfig struct {
	PassingScore float64 `json:"passingScore,omitempty"` // fraction in (0,1]; DefaultPassingScore when unset
}

func (QuizConfig) phaseConfig() {}

// EffectivePassingScore returns the configured threshold, falling back to the default.
func (c QuizConfig) EffectivePassingScore() float64 {
	if c.PassingScore > 0 {
		return c.PassingScore
	}
	return DefaultPassingScore
}

// MixedConfig configures a mixed phase. Completion rules are item-level, so
// there is nothing phase-wide to configure yet.
type MixedConfig struct{}

func (MixedConfig) phaseConfig() {}

// ParseConfig decodes the phase's raw config into the typed variant for its type.
// An empty config yields the zero value of the variant.
func (p *WorkflowPhase) ParseConfig() (PhaseConfig, error) {
	raw := p.Config
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	switch p.Type {
	case PhaseTypeContent:
		var cfg ContentConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("invalid content phase config: %w", err)
		}
		return cfg, nil
	case PhaseTypeTraining:
		var cfg TrainingConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("invalid training phase config: %w", err)
		}
		return cfg, nil
	case PhaseTypeQuiz:
		var cfg QuizConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("invalid quiz phase config: %w", err)
		}
		if cfg.PassingScore < 0 || cfg.PassingScore > 1 {
			return nil, fmt.Errorf("quiz passing score must be within (0,1], got %v", cfg.PassingScore)
		}
		return cfg, nil
	case PhaseTypeMixed:
		var cfg MixedConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("invalid mixed phase config: %w", err)
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("unknown phase type: %s", p.Type)
	}
}

// CreateWorkflowPhaseDTO is used to add a phase to an existing workflow.
type CreateWorkflowPhaseDTO struct {
	WorkflowID               uuid.UUID       `json:"workflowId"`
	PhaseNumber              int             `json:"phaseNumber"`
	Name                     string          `json:"name"`
	Type                     PhaseType       `json:"type"`
	Config                   json.RawMessage `json:"config,omitempty"`
	Required                 *bool           `json:"required,omitempty"` // defaults to true
	EstimatedDurationMinutes int             `json:"estimatedDurationMinutes,omitempty"`
}
