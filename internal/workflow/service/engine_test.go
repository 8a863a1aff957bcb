package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/OpenCrew/crewflow/internal/workflow/model"
)

// MockWorkflowRepository is a mock implementation of WorkflowRepository
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) CreateWorkflow(ctx context.Context, workflow *model.Workflow) error {
	args := m.Called(ctx, workflow)
	return args.Error(0)
}

func (m *MockWorkflowRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockWorkflowRepository) GetWorkflowBySlug(ctx context.Context, slug string) (*model.Workflow, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*model.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListWorkflows(ctx context.Context, activeOnly bool, offset, limit int) ([]model.Workflow, error) {
	args := m.Called(ctx, activeOnly, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) SaveWorkflow(ctx context.Context, workflow *model.Workflow) error {
	args := m.Called(ctx, workflow)
	return args.Error(0)
}

func (m *MockWorkflowRepository) GetPhaseByID(ctx context.Context, id uuid.UUID) (*model.WorkflowPhase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowPhase), args.Error(1)
}

func (m *MockWorkflowRepository) PhaseNumberExists(ctx context.Context, workflowID uuid.UUID, phaseNumber int) (bool, error) {
	args := m.Called(ctx, workflowID, phaseNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockWorkflowRepository) CreatePhase(ctx context.Context, phase *model.WorkflowPhase) error {
	args := m.Called(ctx, phase)
	return args.Error(0)
}

func (m *MockWorkflowRepository) ItemNumberExists(ctx context.Context, phaseID uuid.UUID, itemNumber int) (bool, error) {
	args := m.Called(ctx, phaseID, itemNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockWorkflowRepository) CreateItem(ctx context.Context, item *model.WorkflowPhaseItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockWorkflowRepository) CountInstancesByStatus(ctx context.Context, workflowID uuid.UUID) (map[model.InstanceStatus]int64, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.InstanceStatus]int64), args.Error(1)
}

func (m *MockWorkflowRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestValidateWorkflowConfig(t *testing.T) {
	engine := NewWorkflowEngine(nil)

	tests := []struct {
		name    string
		dto     *model.CreateWorkflowDTO
		wantErr bool
		fields  []string
	}{
		{
			name: "valid onboarding workflow",
			dto: &model.CreateWorkflowDTO{
				Name: "Deck Crew Onboarding",
				Slug: "deck-crew-onboarding",
				Type: model.WorkflowTypeOnboarding,
			},
			wantErr: false,
		},
		{
			name: "valid training workflow with explicit active status",
			dto: &model.CreateWorkflowDTO{
				Name:   "Fire Safety",
				Slug:   "fire-safety",
				Type:   model.WorkflowTypeTraining,
				Status: model.WorkflowStatusActive,
			},
			wantErr: false,
		},
		{
			name:    "nil request",
			dto:     nil,
			wantErr: true,
		},
		{
			name: "missing name",
			dto: &model.CreateWorkflowDTO{
				Slug: "deck-crew-onboarding",
				Type: model.WorkflowTypeOnboarding,
			},
			wantErr: true,
			fields:  []string{"name"},
		},
		{
			name: "blank slug",
			dto: &model.CreateWorkflowDTO{
				Name: "Deck Crew Onboarding",
				Slug: "   ",
				Type: model.WorkflowTypeOnboarding,
			},
			wantErr: true,
			fields:  []string{"slug"},
		},
		{
			name: "unknown type",
			dto: &model.CreateWorkflowDTO{
				Name: "Deck Crew Onboarding",
				Slug: "deck-crew-onboarding",
				Type: "certification",
			},
			wantErr: true,
			fields:  []string{"type"},
		},
		{
			name: "archived is not a valid initial status",
			dto: &model.CreateWorkflowDTO{
				Name:   "Deck Crew Onboarding",
				Slug:   "deck-crew-onboarding",
				Type:   model.WorkflowTypeOnboarding,
				Status: model.WorkflowStatusArchived,
			},
			wantErr: true,
			fields:  []string{"status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.ValidateWorkflowConfig(tt.dto)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
			for _, field := range tt.fields {
				assert.Contains(t, validationErr.Fields, field)
			}
		})
	}
}

func TestCreateWorkflow_DefaultsToDraft(t *testing.T) {
	repo := new(MockWorkflowRepository)
	engine := NewWorkflowEngine(repo)

	repo.On("SlugExists", mock.Anything, "deck-crew-onboarding").Return(false, nil)
	repo.On("CreateWorkflow", mock.Anything, mock.AnythingOfType("*model.Workflow")).Return(nil)

	workflow, err := engine.CreateWorkflow(context.Background(), &model.CreateWorkflowDTO{
		Name: "Deck Crew Onboarding",
		Slug: "deck-crew-onboarding",
		Type: model.WorkflowTypeOnboarding,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.WorkflowStatusDraft, workflow.Status)
	repo.AssertExpectations(t)
}

func TestCreateWorkflow_SlugConflict(t *testing.T) {
	repo := new(MockWorkflowRepository)
	engine := NewWorkflowEngine(repo)

	repo.On("SlugExists", mock.Anything, "deck-crew-onboarding").Return(true, nil)

	_, err := engine.CreateWorkflow(context.Background(), &model.CreateWorkflowDTO{
		Name: "Deck Crew Onboarding",
		Slug: "deck-crew-onboarding",
		Type: model.WorkflowTypeOnboarding,
	})

	assert.Error(t, err)
	assert.True(t, IsConflict(err))
	repo.AssertNotCalled(t, "CreateWorkflow", mock.Anything, mock.Anything)
}

func TestUpdateWorkflow_StatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    model.WorkflowStatus
		to      model.WorkflowStatus
		allowed bool
	}{
		{"draft to active", model.WorkflowStatusDraft, model.WorkflowStatusActive, true},
		{"active to archived", model.WorkflowStatusActive, model.WorkflowStatusArchived, true},
		{"draft to archived", model.WorkflowStatusDraft, model.WorkflowStatusArchived, false},
		{"archived to active", model.WorkflowStatusArchived, model.WorkflowStatusActive, false},
		{"active to draft", model.WorkflowStatusActive, model.WorkflowStatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockWorkflowRepository)
			engine := NewWorkflowEngine(repo)

			existing := &model.Workflow{
				Name:   "Deck Crew Onboarding",
				Slug:   "deck-crew-onboarding",
				Type:   model.WorkflowTypeOnboarding,
				Status: tt.from,
			}
			existing.ID = uuid.New()

			repo.On("GetWorkflowByID", mock.Anything, existing.ID).Return(existing, nil)
			if tt.allowed {
				repo.On("SaveWorkflow", mock.Anything, mock.AnythingOfType("*model.Workflow")).Return(nil)
			}

			target := tt.to
			updated, err := engine.UpdateWorkflow(context.Background(), existing.ID, &model.UpdateWorkflowDTO{Status: &target})

			if tt.allowed {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, updated.Status)
			} else {
				assert.Error(t, err)
				assert.True(t, IsValidation(err))
				repo.AssertNotCalled(t, "SaveWorkflow", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCreateWorkflowPhase_RejectsBadQuizConfig(t *testing.T) {
	repo := new(MockWorkflowRepository)
	engine := NewWorkflowEngine(repo)

	workflowID := uuid.New()
	_, err := engine.CreateWorkflowPhase(context.Background(), &model.CreateWorkflowPhaseDTO{
		WorkflowID:  workflowID,
		PhaseNumber: 1,
		Name:        "Safety Quiz",
		Type:        model.PhaseTypeQuiz,
		Config:      []byte(`{"passingScore":1.5}`),
	})

	assert.Error(t, err)
	assert.True(t, IsValidation(err))
	repo.AssertNotCalled(t, "CreatePhase", mock.Anything, mock.Anything)
}

func TestCreateWorkflowPhase_DuplicateNumber(t *testing.T) {
	repo := new(MockWorkflowRepository)
	engine := NewWorkflowEngine(repo)

	workflowID := uuid.New()
	existing := &model.Workflow{Status: model.WorkflowStatusDraft}
	existing.ID = workflowID

	repo.On("GetWorkflowByID", mock.Anything, workflowID).Return(existing, nil)
	repo.On("PhaseNumberExists", mock.Anything, workflowID, 1).Return(true, nil)

	_, err := engine.CreateWorkflowPhase(context.Background(), &model.CreateWorkflowPhaseDTO{
		WorkflowID:  workflowID,
		PhaseNumber: 1,
		Name:        "Welcome Aboard",
		Type:        model.PhaseTypeContent,
	})

	assert.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestCreateWorkflowPhaseItem_ProofOnlyOnTrainingItems(t *testing.T) {
	repo := new(MockWorkflowRepository)
	engine := NewWorkflowEngine(repo)

	_, err := engine.CreateWorkflowPhaseItem(context.Background(), &model.CreateWorkflowPhaseItemDTO{
		PhaseID:       uuid.New(),
		ItemNumber:    1,
		Title:         "Watch the safety video",
		Type:          model.ItemTypeVideo,
		RequiresProof: true,
	})

	assert.Error(t, err)
	assert.True(t, IsValidation(err))
	repo.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything)
}

func TestGetWorkflowBySlug_NotFound(t *testing.T) {
	repo := new(MockWorkflowRepository)
	engine := NewWorkflowEngine(repo)

	repo.On("GetWorkflowBySlug", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

	_, err := engine.GetWorkflowBySlug(context.Background(), "missing")
	assert.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetWorkflows_AppliesPaginationDefaults(t *testing.T) {
	repo := new(MockWorkflowRepository)
	engine := NewWorkflowEngine(repo)

	repo.On("ListWorkflows", mock.Anything, true, 0, 20).Return([]model.Workflow{}, nil)

	_, err := engine.GetWorkflows(context.Background(), true, nil, nil)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestGetWorkflowStatistics(t *testing.T) {
	repo := new(MockWorkflowRepository)
	engine := NewWorkflowEngine(repo)

	workflowID := uuid.New()
	existing := &model.Workflow{Status: model.WorkflowStatusActive}
	existing.ID = workflowID

	repo.On("GetWorkflowByID", mock.Anything, workflowID).Return(existing, nil)
	repo.On("CountInstancesByStatus", mock.Anything, workflowID).Return(map[model.InstanceStatus]int64{
		model.InstanceStatusNotStarted: 3,
		model.InstanceStatusInProgress: 2,
		model.InstanceStatusCompleted:  5,
	}, nil)

	stats, err := engine.GetWorkflowStatistics(context.Background(), workflowID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.NotStarted)
	assert.Equal(t, int64(2), stats.InProgress)
	assert.Equal(t, int64(5), stats.Completed)
	assert.Equal(t, int64(10), stats.Total)
}
