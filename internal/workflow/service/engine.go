package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCrew/crewflow/internal/workflow/model"
	"github.com/OpenCrew/crewflow/utils"
)

// WorkflowEngine defines, validates, retrieves and drives workflow templates.
// It owns the workflow/phase/item tables; instance-level progress lives in
// the InstanceService.
type WorkflowEngine struct {
	repo WorkflowRepository
}

// NewWorkflowEngine creates a new engine backed by the given repository.
func NewWorkflowEngine(repo WorkflowRepository) *WorkflowEngine {
	return &WorkflowEngine{repo: repo}
}

// ValidateWorkflowConfig checks a create request before any write.
// It requires a non-empty name, a non-empty slug and a recognized type.
func (e *WorkflowEngine) ValidateWorkflowConfig(dto *model.CreateWorkflowDTO) error {
	if dto == nil {
		return &ValidationError{Reason: "request cannot be nil"}
	}

	var bad []string
	if strings.TrimSpace(dto.Name) == "" {
		bad = append(bad, "name")
	}
	if strings.TrimSpace(dto.Slug) == "" {
		bad = append(bad, "slug")
	}
	if !isKnownWorkflowType(dto.Type) {
		bad = append(bad, "type")
	}
	if dto.Status != "" && dto.Status != model.WorkflowStatusDraft && dto.Status != model.WorkflowStatusActive {
		bad = append(bad, "status")
	}

	if len(bad) > 0 {
		return &ValidationError{Fields: bad, Reason: "missing or invalid workflow fields"}
	}
	return nil
}

// CreateWorkflow persists a new workflow in draft status unless the request
// overrides it. The slug must be unique.
func (e *WorkflowEngine) CreateWorkflow(ctx context.Context, dto *model.CreateWorkflowDTO) (*model.Workflow, error) {
	if err := e.ValidateWorkflowConfig(dto); err != nil {
		return nil, err
	}

	exists, err := e.repo.SlugExists(ctx, dto.Slug)
	if err != nil {
		return nil, &StoreError{Op: "workflow slug lookup", Err: err}
	}
	if exists {
		return nil, &ConflictError{Resource: "workflow slug", Ref: dto.Slug}
	}

	status := dto.Status
	if status == "" {
		status = model.WorkflowStatusDraft
	}

	workflow := &model.Workflow{
		Name:        dto.Name,
		Slug:        dto.Slug,
		Description: dto.Description,
		Type:        dto.Type,
		Status:      status,
		Config:      dto.Config,
		Metadata:    dto.Metadata,
	}

	if err := e.repo.CreateWorkflow(ctx, workflow); err != nil {
		return nil, &StoreError{Op: "workflow create", Err: err}
	}

	slog.Info("workflow created", "id", workflow.ID, "slug", workflow.Slug, "status", workflow.Status)
	return workflow, nil
}

// CreateWorkflowPhase inserts a phase under an existing workflow.
func (e *WorkflowEngine) CreateWorkflowPhase(ctx context.Context, dto *model.CreateWorkflowPhaseDTO) (*model.WorkflowPhase, error) {
	if dto == nil {
		return nil, &ValidationError{Reason: "request cannot be nil"}
	}

	var bad []string
	if strings.TrimSpace(dto.Name) == "" {
		bad = append(bad, "name")
	}
	if !isKnownPhaseType(dto.Type) {
		bad = append(bad, "type")
	}
	if dto.PhaseNumber < 1 {
		bad = append(bad, "phaseNumber")
	}
	if len(bad) > 0 {
		return nil, &ValidationError{Fields: bad, Reason: "missing or invalid phase fields"}
	}

	required := true
	if dto.Required != nil {
		required = *dto.Required
	}

	phase := &model.WorkflowPhase{
		WorkflowID:               dto.WorkflowID,
		PhaseNumber:              dto.PhaseNumber,
		Name:                     dto.Name,
		Type:                     dto.Type,
		Config:                   dto.Config,
		Required:                 required,
		EstimatedDurationMinutes: dto.EstimatedDurationMinutes,
	}

	// A quiz phase config must parse, and in particular carry a sane passing score.
	if _, err := phase.ParseConfig(); err != nil {
		return nil, &ValidationError{Fields: []string{"config"}, Reason: err.Error()}
	}

	if _, err := e.repo.GetWorkflowByID(ctx, dto.WorkflowID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "workflow", Ref: dto.WorkflowID.String()}
		}
		return nil, &StoreError{Op: "workflow lookup", Err: err}
	}

	taken, err := e.repo.PhaseNumberExists(ctx, dto.WorkflowID, dto.PhaseNumber)
	if err != nil {
		return nil, &StoreError{Op: "phase number lookup", Err: err}
	}
	if taken {
		return nil, &ConflictError{Resource: "phase number", Ref: fmt.Sprintf("%d", dto.PhaseNumber)}
	}

	if err := e.repo.CreatePhase(ctx, phase); err != nil {
		return nil, &StoreError{Op: "phase create", Err: err}
	}

	slog.Info("workflow phase created", "workflowId", phase.WorkflowID, "phaseNumber", phase.PhaseNumber, "type", phase.Type)
	return phase, nil
}

// CreateWorkflowPhaseItem inserts an item under an existing phase.
func (e *WorkflowEngine) CreateWorkflowPhaseItem(ctx context.Context, dto *model.CreateWorkflowPhaseItemDTO) (*model.WorkflowPhaseItem, error) {
	if dto == nil {
		return nil, &ValidationError{Reason: "request cannot be nil"}
	}

	var bad []string
	if strings.TrimSpace(dto.Title) == "" {
		bad = append(bad, "title")
	}
	if !isKnownItemType(dto.Type) {
		bad = append(bad, "type")
	}
	if dto.ItemNumber < 1 {
		bad = append(bad, "itemNumber")
	}
	if dto.RequiresProof && dto.Type != model.ItemTypeTraining {
		bad = append(bad, "requiresProof")
	}
	if len(bad) > 0 {
		return nil, &ValidationError{Fields: bad, Reason: "missing or invalid item fields"}
	}

	if _, err := e.repo.GetPhaseByID(ctx, dto.PhaseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "phase", Ref: dto.PhaseID.String()}
		}
		return nil, &StoreError{Op: "phase lookup", Err: err}
	}

	taken, err := e.repo.ItemNumberExists(ctx, dto.PhaseID, dto.ItemNumber)
	if err != nil {
		return nil, &StoreError{Op: "item number lookup", Err: err}
	}
	if taken {
		return nil, &ConflictError{Resource: "item number", Ref: fmt.Sprintf("%d", dto.ItemNumber)}
	}

	required := true
	if dto.Required != nil {
		required = *dto.Required
	}

	item := &model.WorkflowPhaseItem{
		PhaseID:       dto.PhaseID,
		ItemNumber:    dto.ItemNumber,
		Type:          dto.Type,
		Title:         dto.Title,
		Content:       dto.Content,
		Required:      required,
		RequiresProof: dto.RequiresProof,
	}

	if err := e.repo.CreateItem(ctx, item); err != nil {
		return nil, &StoreError{Op: "item create", Err: err}
	}

	return item, nil
}

// GetWorkflowBySlug returns the workflow with its phases and items, ordered
// by phase number then item number.
func (e *WorkflowEngine) GetWorkflowBySlug(ctx context.Context, slug string) (*model.Workflow, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, &ValidationError{Fields: []string{"slug"}, Reason: "slug cannot be empty"}
	}

	workflow, err := e.repo.GetWorkflowBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "workflow", Ref: slug}
		}
		return nil, &StoreError{Op: "workflow lookup", Err: err}
	}
	return workflow, nil
}

// GetWorkflows returns workflows ordered most-recently-created first,
// optionally filtered to active status. Offset and limit follow the shared
// pagination defaults when nil.
func (e *WorkflowEngine) GetWorkflows(ctx context.Context, activeOnly bool, offset, limit *int) ([]model.Workflow, error) {
	finalOffset, finalLimit := utils.GetPaginationParams(offset, limit)
	workflows, err := e.repo.ListWorkflows(ctx, activeOnly, finalOffset, finalLimit)
	if err != nil {
		return nil, &StoreError{Op: "workflow list", Err: err}
	}
	return workflows, nil
}

// UpdateWorkflow applies a partial update. Status changes are checked
// against the draft→active→archived transition table; illegal edges are
// rejected before anything is written.
func (e *WorkflowEngine) UpdateWorkflow(ctx context.Context, id uuid.UUID, patch *model.UpdateWorkflowDTO) (*model.Workflow, error) {
	if patch == nil {
		return nil, &ValidationError{Reason: "patch cannot be nil"}
	}

	workflow, err := e.repo.GetWorkflowByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "workflow", Ref: id.String()}
		}
		return nil, &StoreError{Op: "workflow lookup", Err: err}
	}

	if patch.Status != nil && *patch.Status != workflow.Status {
		if !workflow.Status.CanTransitionTo(*patch.Status) {
			return nil, &ValidationError{
				Fields: []string{"status"},
				Reason: fmt.Sprintf("cannot transition workflow from %s to %s", workflow.Status, *patch.Status),
			}
		}
		workflow.Status = *patch.Status
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, &ValidationError{Fields: []string{"name"}, Reason: "name cannot be empty"}
		}
		workflow.Name = *patch.Name
	}
	if patch.Description != nil {
		workflow.Description = *patch.Description
	}
	if patch.Config != nil {
		workflow.Config = *patch.Config
	}
	if patch.Metadata != nil {
		workflow.Metadata = *patch.Metadata
	}

	if err := e.repo.SaveWorkflow(ctx, workflow); err != nil {
		return nil, &StoreError{Op: "workflow update", Err: err}
	}

	slog.Info("workflow updated", "id", workflow.ID, "status", workflow.Status)
	return workflow, nil
}

// GetWorkflowStatistics aggregates instance counts by status for a workflow.
// Pure read, no side effects.
func (e *WorkflowEngine) GetWorkflowStatistics(ctx context.Context, workflowID uuid.UUID) (*model.WorkflowStatistics, error) {
	if _, err := e.repo.GetWorkflowByID(ctx, workflowID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "workflow", Ref: workflowID.String()}
		}
		return nil, &StoreError{Op: "workflow lookup", Err: err}
	}

	counts, err := e.repo.CountInstancesByStatus(ctx, workflowID)
	if err != nil {
		return nil, &StoreError{Op: "instance count", Err: err}
	}

	stats := &model.WorkflowStatistics{
		WorkflowID: workflowID.String(),
		NotStarted: counts[model.InstanceStatusNotStarted],
		InProgress: counts[model.InstanceStatusInProgress],
		Completed:  counts[model.InstanceStatusCompleted],
	}
	stats.Total = stats.NotStarted + stats.InProgress + stats.Completed
	return stats, nil
}

// HealthCheck verifies connectivity to the backing store.
func (e *WorkflowEngine) HealthCheck(ctx context.Context) model.HealthStatus {
	if err := e.repo.Ping(ctx); err != nil {
		return model.HealthStatus{Healthy: false, Detail: err.Error()}
	}
	return model.HealthStatus{Healthy: true, Detail: "ok"}
}

func isKnownWorkflowType(t model.WorkflowType) bool {
	for _, known := range model.KnownWorkflowTypes {
		if t == known {
			return true
		}
	}
	return false
}

func isKnownPhaseType(t model.PhaseType) bool {
	for _, known := range model.KnownPhaseTypes {
		if t == known {
			return true
		}
	}
	return false
}

func isKnownItemType(t model.ItemType) bool {
	for _, known := range model.KnownItemTypes {
		if t == known {
			return true
		}
	}
	return false
}
