package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/OpenCrew/crewflow/internal/notification"
	"github.com/OpenCrew/crewflow/internal/workflow/model"
)

// MockInstanceRepository is a mock implementation of InstanceRepository
type MockInstanceRepository struct {
	mock.Mock
}

func (m *MockInstanceRepository) CreateInstance(ctx context.Context, instance *model.WorkflowInstance) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

func (m *MockInstanceRepository) GetInstanceByID(ctx context.Context, id uuid.UUID) (*model.WorkflowInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowInstance), args.Error(1)
}

func (m *MockInstanceRepository) GetInstanceByWorkflowAndUser(ctx context.Context, workflowID, userID uuid.UUID) (*model.WorkflowInstance, error) {
	args := m.Called(ctx, workflowID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowInstance), args.Error(1)
}

func (m *MockInstanceRepository) SaveInstance(ctx context.Context, instance *model.WorkflowInstance) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

func (m *MockInstanceRepository) GetItemByID(ctx context.Context, id uuid.UUID) (*model.WorkflowPhaseItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowPhaseItem), args.Error(1)
}

func (m *MockInstanceRepository) GetPhaseWithItems(ctx context.Context, id uuid.UUID) (*model.WorkflowPhase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowPhase), args.Error(1)
}

func (m *MockInstanceRepository) GetPhasesWithItemsByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]model.WorkflowPhase, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WorkflowPhase), args.Error(1)
}

func (m *MockInstanceRepository) GetProgressByInstance(ctx context.Context, instanceID uuid.UUID) ([]model.WorkflowProgress, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WorkflowProgress), args.Error(1)
}

func (m *MockInstanceRepository) GetItemProgress(ctx context.Context, instanceID, itemID uuid.UUID) (*model.WorkflowProgress, error) {
	args := m.Called(ctx, instanceID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowProgress), args.Error(1)
}

func (m *MockInstanceRepository) GetPhaseProgress(ctx context.Context, instanceID, phaseID uuid.UUID) (*model.WorkflowProgress, error) {
	args := m.Called(ctx, instanceID, phaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowProgress), args.Error(1)
}

func (m *MockInstanceRepository) SaveProgress(ctx context.Context, progress *model.WorkflowProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *MockInstanceRepository) CreateQuizAttempt(ctx context.Context, attempt *model.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockInstanceRepository) GetQuizAttempts(ctx context.Context, instanceID, phaseID uuid.UUID) ([]model.QuizAttempt, error) {
	args := m.Called(ctx, instanceID, phaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.QuizAttempt), args.Error(1)
}

func (m *MockInstanceRepository) GetQuizAttemptsByInstance(ctx context.Context, instanceID uuid.UUID) ([]model.QuizAttempt, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.QuizAttempt), args.Error(1)
}

// MockNotifier is a mock implementation of CompletionNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PublishPhaseCompleted(ctx context.Context, event notification.PhaseCompletedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockNotifier) PublishWorkflowCompleted(ctx context.Context, event notification.WorkflowCompletedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func activeWorkflow() *model.Workflow {
	workflow := &model.Workflow{
		Name:   "Deck Crew Onboarding",
		Slug:   "deck-crew-onboarding",
		Type:   model.WorkflowTypeOnboarding,
		Status: model.WorkflowStatusActive,
	}
	workflow.ID = uuid.New()
	return workflow
}

func TestAssignWorkflow(t *testing.T) {
	repo := new(MockInstanceRepository)
	workflows := new(MockWorkflowRepository)
	svc := NewInstanceService(repo, workflows, nil, nil)

	workflow := activeWorkflow()
	userID := uuid.New()

	workflows.On("GetWorkflowByID", mock.Anything, workflow.ID).Return(workflow, nil)
	repo.On("GetInstanceByWorkflowAndUser", mock.Anything, workflow.ID, userID).Return(nil, nil)
	repo.On("CreateInstance", mock.Anything, mock.AnythingOfType("*model.WorkflowInstance")).Return(nil)

	instance, err := svc.AssignWorkflow(context.Background(), &model.AssignWorkflowDTO{
		WorkflowID: workflow.ID,
		UserID:     userID,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.InstanceStatusNotStarted, instance.Status)
	repo.AssertExpectations(t)
}

func TestAssignWorkflow_RejectsDraftWorkflow(t *testing.T) {
	repo := new(MockInstanceRepository)
	workflows := new(MockWorkflowRepository)
	svc := NewInstanceService(repo, workflows, nil, nil)

	workflow := activeWorkflow()
	workflow.Status = model.WorkflowStatusDraft

	workflows.On("GetWorkflowByID", mock.Anything, workflow.ID).Return(workflow, nil)

	_, err := svc.AssignWorkflow(context.Background(), &model.AssignWorkflowDTO{
		WorkflowID: workflow.ID,
		UserID:     uuid.New(),
	})

	assert.Error(t, err)
	assert.True(t, IsValidation(err))
	repo.AssertNotCalled(t, "CreateInstance", mock.Anything, mock.Anything)
}

func TestAssignWorkflow_DuplicateAssignment(t *testing.T) {
	repo := new(MockInstanceRepository)
	workflows := new(MockWorkflowRepository)
	svc := NewInstanceService(repo, workflows, nil, nil)

	workflow := activeWorkflow()
	userID := uuid.New()

	existing := &model.WorkflowInstance{WorkflowID: workflow.ID, UserID: userID, Status: model.InstanceStatusInProgress}
	existing.ID = uuid.New()

	workflows.On("GetWorkflowByID", mock.Anything, workflow.ID).Return(workflow, nil)
	repo.On("GetInstanceByWorkflowAndUser", mock.Anything, workflow.ID, userID).Return(existing, nil)

	_, err := svc.AssignWorkflow(context.Background(), &model.AssignWorkflowDTO{
		WorkflowID: workflow.ID,
		UserID:     userID,
	})

	assert.Error(t, err)
	assert.True(t, IsConflict(err))
	repo.AssertNotCalled(t, "CreateInstance", mock.Anything, mock.Anything)
}

func TestCompleteItem_ProofRequired(t *testing.T) {
	repo := new(MockInstanceRepository)
	workflows := new(MockWorkflowRepository)
	svc := NewInstanceService(repo, workflows, nil, nil)

	workflow := activeWorkflow()
	instance := &model.WorkflowInstance{WorkflowID: workflow.ID, UserID: uuid.New(), Status: model.InstanceStatusInProgress}
	instance.ID = uuid.New()

	item := newTestItem(model.ItemTypeTraining, true, true)
	phase := newTestPhase(model.PhaseTypeTraining, "", item)
	phase.WorkflowID = workflow.ID
	phaseItem := phase.Items[0]

	repo.On("GetInstanceByID", mock.Anything, instance.ID).Return(instance, nil)
	repo.On("GetItemByID", mock.Anything, phaseItem.ID).Return(&phaseItem, nil)
	repo.On("GetPhaseWithItems", mock.Anything, phase.ID).Return(phase, nil)

	_, err := svc.CompleteItem(context.Background(), instance.ID, &model.CompleteItemDTO{
		ItemID: phaseItem.ID,
	})

	assert.Error(t, err)
	assert.True(t, IsValidation(err))
	repo.AssertNotCalled(t, "SaveProgress", mock.Anything, mock.Anything)
}

func TestCompleteItem_CompletesPhaseAndWorkflow(t *testing.T) {
	repo := new(MockInstanceRepository)
	workflows := new(MockWorkflowRepository)
	notifier := new(MockNotifier)
	svc := NewInstanceService(repo, workflows, notifier, nil)

	workflow := activeWorkflow()
	userID := uuid.New()
	instance := &model.WorkflowInstance{WorkflowID: workflow.ID, UserID: userID, Status: model.InstanceStatusNotStarted, Workflow: workflow}
	instance.ID = uuid.New()

	item := newTestItem(model.ItemTypeContent, true, false)
	phase := newTestPhase(model.PhaseTypeContent, "", item)
	phase.WorkflowID = workflow.ID
	phaseItem := phase.Items[0]

	itemDone := completedProgress(instance.ID, phase.ID, phaseItem.ID, nil)

	repo.On("GetInstanceByID", mock.Anything, instance.ID).Return(instance, nil)
	repo.On("GetItemByID", mock.Anything, phaseItem.ID).Return(&phaseItem, nil)
	repo.On("GetPhaseWithItems", mock.Anything, phase.ID).Return(phase, nil)
	repo.On("GetItemProgress", mock.Anything, instance.ID, phaseItem.ID).Return(nil, nil)
	repo.On("SaveProgress", mock.Anything, mock.AnythingOfType("*model.WorkflowProgress")).Return(nil)
	repo.On("SaveInstance", mock.Anything, mock.AnythingOfType("*model.WorkflowInstance")).Return(nil)
	repo.On("GetProgressByInstance", mock.Anything, instance.ID).Return([]model.WorkflowProgress{itemDone}, nil)
	repo.On("GetQuizAttempts", mock.Anything, instance.ID, phase.ID).Return([]model.QuizAttempt{}, nil)
	repo.On("GetPhaseProgress", mock.Anything, instance.ID, phase.ID).Return(nil, nil)
	repo.On("GetPhasesWithItemsByWorkflow", mock.Anything, workflow.ID).Return([]model.WorkflowPhase{*phase}, nil)
	repo.On("GetQuizAttemptsByInstance", mock.Anything, instance.ID).Return([]model.QuizAttempt{}, nil)

	notifier.On("PublishPhaseCompleted", mock.Anything, mock.AnythingOfType("notification.PhaseCompletedEvent")).Return(nil)
	notifier.On("PublishWorkflowCompleted", mock.Anything, mock.AnythingOfType("notification.WorkflowCompletedEvent")).Return(nil)

	record, err := svc.CompleteItem(context.Background(), instance.ID, &model.CompleteItemDTO{
		ItemID: phaseItem.ID,
	})

	assert.NoError(t, err)
	assert.Equal(t, model.ProgressStatusCompleted, record.Status)
	assert.Equal(t, model.InstanceStatusCompleted, instance.Status)
	assert.NotNil(t, instance.CompletedAt)
	notifier.AssertExpectations(t)
}

func TestSubmitQuiz_RecordsPassAgainstConfiguredThreshold(t *testing.T) {
	repo := new(MockInstanceRepository)
	workflows := new(MockWorkflowRepository)
	svc := NewInstanceService(repo, workflows, nil, nil)

	workflow := activeWorkflow()
	instance := &model.WorkflowInstance{WorkflowID: workflow.ID, UserID: uuid.New(), Status: model.InstanceStatusInProgress, Workflow: workflow}
	instance.ID = uuid.New()

	phase := newTestPhase(model.PhaseTypeQuiz, `{"passingScore":0.6}`)
	phase.WorkflowID = workflow.ID

	attemptRow := model.QuizAttempt{InstanceID: instance.ID, PhaseID: phase.ID, Score: 7, TotalQuestions: 10, Passed: true}

	repo.On("GetInstanceByID", mock.Anything, instance.ID).Return(instance, nil)
	repo.On("GetPhaseWithItems", mock.Anything, phase.ID).Return(phase, nil)
	repo.On("CreateQuizAttempt", mock.Anything, mock.AnythingOfType("*model.QuizAttempt")).Return(nil)
	repo.On("GetPhaseProgress", mock.Anything, instance.ID, phase.ID).Return(nil, nil)
	repo.On("SaveProgress", mock.Anything, mock.AnythingOfType("*model.WorkflowProgress")).Return(nil)
	repo.On("SaveInstance", mock.Anything, mock.AnythingOfType("*model.WorkflowInstance")).Return(nil)
	repo.On("GetProgressByInstance", mock.Anything, instance.ID).Return([]model.WorkflowProgress{}, nil)
	repo.On("GetQuizAttempts", mock.Anything, instance.ID, phase.ID).Return([]model.QuizAttempt{attemptRow}, nil)
	repo.On("GetPhasesWithItemsByWorkflow", mock.Anything, workflow.ID).Return([]model.WorkflowPhase{*phase}, nil)
	repo.On("GetQuizAttemptsByInstance", mock.Anything, instance.ID).Return([]model.QuizAttempt{attemptRow}, nil)

	attempt, err := svc.SubmitQuiz(context.Background(), instance.ID, &model.SubmitQuizDTO{
		PhaseID:        phase.ID,
		Score:          7,
		TotalQuestions: 10,
	})

	assert.NoError(t, err)
	assert.True(t, attempt.Passed, "0.7 beats the configured 0.6 threshold")
}

func TestSubmitQuiz_RejectsNonPositiveTotal(t *testing.T) {
	repo := new(MockInstanceRepository)
	workflows := new(MockWorkflowRepository)
	svc := NewInstanceService(repo, workflows, nil, nil)

	_, err := svc.SubmitQuiz(context.Background(), uuid.New(), &model.SubmitQuizDTO{
		PhaseID:        uuid.New(),
		Score:          0,
		TotalQuestions: 0,
	})

	assert.Error(t, err)
	assert.True(t, IsValidation(err))
	repo.AssertNotCalled(t, "CreateQuizAttempt", mock.Anything, mock.Anything)
}

func TestSubmitQuiz_RejectsContentPhase(t *testing.T) {
	repo := new(MockInstanceRepository)
	workflows := new(MockWorkflowRepository)
	svc := NewInstanceService(repo, workflows, nil, nil)

	workflow := activeWorkflow()
	instance := &model.WorkflowInstance{WorkflowID: workflow.ID, UserID: uuid.New(), Status: model.InstanceStatusInProgress}
	instance.ID = uuid.New()

	phase := newTestPhase(model.PhaseTypeContent, "", newTestItem(model.ItemTypeContent, true, false))
	phase.WorkflowID = workflow.ID

	repo.On("GetInstanceByID", mock.Anything, instance.ID).Return(instance, nil)
	repo.On("GetPhaseWithItems", mock.Anything, phase.ID).Return(phase, nil)

	_, err := svc.SubmitQuiz(context.Background(), instance.ID, &model.SubmitQuizDTO{
		PhaseID:        phase.ID,
		Score:          5,
		TotalQuestions: 10,
	})

	assert.Error(t, err)
	assert.True(t, IsValidation(err))
	repo.AssertNotCalled(t, "CreateQuizAttempt", mock.Anything, mock.Anything)
}

func TestStartPhase_IsIdempotent(t *testing.T) {
	repo := new(MockInstanceRepository)
	workflows := new(MockWorkflowRepository)
	svc := NewInstanceService(repo, workflows, nil, nil)

	workflow := activeWorkflow()
	instance := &model.WorkflowInstance{WorkflowID: workflow.ID, UserID: uuid.New(), Status: model.InstanceStatusInProgress}
	instance.ID = uuid.New()

	phase := newTestPhase(model.PhaseTypeContent, "", newTestItem(model.ItemTypeContent, true, false))
	phase.WorkflowID = workflow.ID

	existing := &model.WorkflowProgress{
		InstanceID: instance.ID,
		PhaseID:    phase.ID,
		Status:     model.ProgressStatusInProgress,
	}
	existing.ID = uuid.New()

	repo.On("GetInstanceByID", mock.Anything, instance.ID).Return(instance, nil)
	repo.On("GetPhaseWithItems", mock.Anything, phase.ID).Return(phase, nil)
	repo.On("GetPhaseProgress", mock.Anything, instance.ID, phase.ID).Return(existing, nil)

	record, err := svc.StartPhase(context.Background(), instance.ID, phase.ID)

	assert.NoError(t, err)
	assert.Equal(t, existing.ID, record.ID)
	repo.AssertNotCalled(t, "SaveProgress", mock.Anything, mock.Anything)
}

func TestStartPhase_RejectsForeignPhase(t *testing.T) {
	repo := new(MockInstanceRepository)
	workflows := new(MockWorkflowRepository)
	svc := NewInstanceService(repo, workflows, nil, nil)

	workflow := activeWorkflow()
	instance := &model.WorkflowInstance{WorkflowID: workflow.ID, UserID: uuid.New(), Status: model.InstanceStatusNotStarted}
	instance.ID = uuid.New()

	// Phase belongs to a different workflow.
	phase := newTestPhase(model.PhaseTypeContent, "", newTestItem(model.ItemTypeContent, true, false))
	phase.WorkflowID = uuid.New()

	repo.On("GetInstanceByID", mock.Anything, instance.ID).Return(instance, nil)
	repo.On("GetPhaseWithItems", mock.Anything, phase.ID).Return(phase, nil)

	_, err := svc.StartPhase(context.Background(), instance.ID, phase.ID)

	assert.Error(t, err)
	assert.True(t, IsValidation(err))
}
