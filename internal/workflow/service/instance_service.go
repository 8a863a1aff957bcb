package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCrew/crewflow/internal/metrics"
	"github.com/OpenCrew/crewflow/internal/notification"
	"github.com/OpenCrew/crewflow/internal/progress"
	"github.com/OpenCrew/crewflow/internal/workflow/model"
)

// CompletionNotifier publishes completion events for the external email and
// certificate dispatchers. A nil notifier disables publishing.
type CompletionNotifier interface {
	PublishPhaseCompleted(ctx context.Context, event notification.PhaseCompletedEvent) error
	PublishWorkflowCompleted(ctx context.Context, event notification.WorkflowCompletedEvent) error
}

// InstanceService drives workflow instances: assignment, phase starts, item
// completion and quiz submission. It owns the instance state machine
// not_started → in_progress → completed.
type InstanceService struct {
	repo      InstanceRepository
	workflows WorkflowRepository
	notifier  CompletionNotifier
	tracker   *progress.Tracker
}

// NewInstanceService creates a new instance service. notifier may be nil.
func NewInstanceService(repo InstanceRepository, workflows WorkflowRepository, notifier CompletionNotifier, tracker *progress.Tracker) *InstanceService {
	return &InstanceService{repo: repo, workflows: workflows, notifier: notifier, tracker: tracker}
}

// AssignWorkflow creates an instance of a workflow for a crew member.
// Only active workflows are assignable, and each crew member gets at most
// one instance per workflow.
func (s *InstanceService) AssignWorkflow(ctx context.Context, dto *model.AssignWorkflowDTO) (*model.WorkflowInstance, error) {
	if dto == nil {
		return nil, &ValidationError{Reason: "request cannot be nil"}
	}

	var bad []string
	if dto.WorkflowID == uuid.Nil {
		bad = append(bad, "workflowId")
	}
	if dto.UserID == uuid.Nil {
		bad = append(bad, "userId")
	}
	if len(bad) > 0 {
		return nil, &ValidationError{Fields: bad, Reason: "missing required fields"}
	}

	workflow, err := s.workflows.GetWorkflowByID(ctx, dto.WorkflowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "workflow", Ref: dto.WorkflowID.String()}
		}
		return nil, &StoreError{Op: "workflow lookup", Err: err}
	}
	if workflow.Status != model.WorkflowStatusActive {
		return nil, &ValidationError{
			Fields: []string{"workflowId"},
			Reason: fmt.Sprintf("workflow %s is %s, only active workflows can be assigned", workflow.Slug, workflow.Status),
		}
	}

	existing, err := s.repo.GetInstanceByWorkflowAndUser(ctx, dto.WorkflowID, dto.UserID)
	if err != nil {
		return nil, &StoreError{Op: "instance lookup", Err: err}
	}
	if existing != nil {
		return nil, &ConflictError{Resource: "workflow instance", Ref: fmt.Sprintf("%s/%s", dto.WorkflowID, dto.UserID)}
	}

	instance := &model.WorkflowInstance{
		WorkflowID: dto.WorkflowID,
		UserID:     dto.UserID,
		Status:     model.InstanceStatusNotStarted,
		DueDate:    dto.DueDate,
	}

	if err := s.repo.CreateInstance(ctx, instance); err != nil {
		return nil, &StoreError{Op: "instance create", Err: err}
	}

	slog.Info("workflow assigned", "instanceId", instance.ID, "workflowId", dto.WorkflowID, "userId", dto.UserID)
	return instance, nil
}

// GetInstance returns an instance with its workflow and progress rows.
func (s *InstanceService) GetInstance(ctx context.Context, id uuid.UUID) (*model.WorkflowInstance, error) {
	instance, err := s.repo.GetInstanceByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "instance", Ref: id.String()}
		}
		return nil, &StoreError{Op: "instance lookup", Err: err}
	}
	return instance, nil
}

// StartPhase records that work on a phase has begun. The first phase start
// moves the instance from not_started to in_progress.
func (s *InstanceService) StartPhase(ctx context.Context, instanceID, phaseID uuid.UUID) (*model.WorkflowProgress, error) {
	instance, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Status == model.InstanceStatusCompleted {
		return nil, &ValidationError{Reason: "instance is already completed"}
	}

	phase, err := s.phaseInWorkflow(ctx, phaseID, instance.WorkflowID)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.GetPhaseProgress(ctx, instanceID, phaseID)
	if err != nil {
		return nil, &StoreError{Op: "phase progress lookup", Err: err}
	}
	if record != nil {
		// Starting an already-started phase is a no-op.
		return record, nil
	}

	now := time.Now().UTC()
	record = &model.WorkflowProgress{
		InstanceID: instanceID,
		PhaseID:    phase.ID,
		Status:     model.ProgressStatusInProgress,
		StartedAt:  &now,
	}
	if err := s.repo.SaveProgress(ctx, record); err != nil {
		return nil, &StoreError{Op: "phase progress save", Err: err}
	}

	if err := s.markInProgress(ctx, instance, now); err != nil {
		return nil, err
	}

	return record, nil
}

// CompleteItem marks an item complete for an instance. Items that demand a
// signature or photo require a non-empty proof reference. Completion of the
// item triggers phase and workflow completion evaluation.
func (s *InstanceService) CompleteItem(ctx context.Context, instanceID uuid.UUID, dto *model.CompleteItemDTO) (*model.WorkflowProgress, error) {
	if dto == nil || dto.ItemID == uuid.Nil {
		return nil, &ValidationError{Fields: []string{"itemId"}, Reason: "item id is required"}
	}

	instance, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Status == model.InstanceStatusCompleted {
		return nil, &ValidationError{Reason: "instance is already completed"}
	}

	item, err := s.repo.GetItemByID(ctx, dto.ItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "item", Ref: dto.ItemID.String()}
		}
		return nil, &StoreError{Op: "item lookup", Err: err}
	}

	phase, err := s.phaseInWorkflow(ctx, item.PhaseID, instance.WorkflowID)
	if err != nil {
		return nil, err
	}

	if item.DemandsProof() && (dto.ProofRef == nil || *dto.ProofRef == "") {
		return nil, &ValidationError{
			Fields: []string{"proofRef"},
			Reason: fmt.Sprintf("item %q requires an instructor signature or photo proof", item.Title),
		}
	}

	now := time.Now().UTC()
	record, err := s.repo.GetItemProgress(ctx, instanceID, dto.ItemID)
	if err != nil {
		return nil, &StoreError{Op: "item progress lookup", Err: err}
	}
	if record == nil {
		itemID := dto.ItemID
		record = &model.WorkflowProgress{
			InstanceID: instanceID,
			PhaseID:    item.PhaseID,
			ItemID:     &itemID,
			StartedAt:  &now,
		}
	}
	record.Status = model.ProgressStatusCompleted
	record.CompletedAt = &now
	if dto.ProofRef != nil {
		record.ProofRef = dto.ProofRef
	}
	if err := s.repo.SaveProgress(ctx, record); err != nil {
		return nil, &StoreError{Op: "item progress save", Err: err}
	}

	if err := s.markInProgress(ctx, instance, now); err != nil {
		return nil, err
	}

	if err := s.evaluateCompletion(ctx, instance, phase); err != nil {
		return nil, err
	}

	return record, nil
}

// SubmitQuiz records one quiz attempt for a phase. Every attempt is
// retained; the phase completes when the latest attempt reaches the passing
// score. Re-submission after failure is permitted indefinitely.
func (s *InstanceService) SubmitQuiz(ctx context.Context, instanceID uuid.UUID, dto *model.SubmitQuizDTO) (*model.QuizAttempt, error) {
	if dto == nil || dto.PhaseID == uuid.Nil {
		return nil, &ValidationError{Fields: []string{"phaseId"}, Reason: "phase id is required"}
	}
	if dto.TotalQuestions <= 0 {
		return nil, &ValidationError{Fields: []string{"totalQuestions"}, Reason: "total questions must be positive"}
	}
	if dto.Score < 0 || dto.Score > dto.TotalQuestions {
		return nil, &ValidationError{Fields: []string{"score"}, Reason: "score must be between 0 and total questions"}
	}

	instance, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Status == model.InstanceStatusCompleted {
		return nil, &ValidationError{Reason: "instance is already completed"}
	}

	phase, err := s.phaseInWorkflow(ctx, dto.PhaseID, instance.WorkflowID)
	if err != nil {
		return nil, err
	}
	if phase.Type != model.PhaseTypeQuiz && !hasQuizItems(phase.Items) {
		return nil, &ValidationError{
			Fields: []string{"phaseId"},
			Reason: fmt.Sprintf("phase %q does not accept quiz submissions", phase.Name),
		}
	}

	passingScore := model.DefaultPassingScore
	if cfg, err := phase.ParseConfig(); err == nil {
		if quizCfg, ok := cfg.(model.QuizConfig); ok {
			passingScore = quizCfg.EffectivePassingScore()
		}
	}

	fraction := float64(dto.Score) / float64(dto.TotalQuestions)
	attempt := &model.QuizAttempt{
		InstanceID:     instanceID,
		PhaseID:        phase.ID,
		Score:          dto.Score,
		TotalQuestions: dto.TotalQuestions,
		Passed:         fraction >= passingScore,
		Answers:        dto.Answers,
	}
	if err := s.repo.CreateQuizAttempt(ctx, attempt); err != nil {
		return nil, &StoreError{Op: "quiz attempt create", Err: err}
	}
	metrics.RecordQuizAttempt(attempt.Passed)

	now := time.Now().UTC()

	// Keep the latest score on the phase-level progress row.
	record, err := s.repo.GetPhaseProgress(ctx, instanceID, phase.ID)
	if err != nil {
		return nil, &StoreError{Op: "phase progress lookup", Err: err}
	}
	if record == nil {
		record = &model.WorkflowProgress{
			InstanceID: instanceID,
			PhaseID:    phase.ID,
			Status:     model.ProgressStatusInProgress,
			StartedAt:  &now,
		}
	}
	record.Score = &fraction
	if err := s.repo.SaveProgress(ctx, record); err != nil {
		return nil, &StoreError{Op: "phase progress save", Err: err}
	}

	if err := s.markInProgress(ctx, instance, now); err != nil {
		return nil, err
	}

	if err := s.evaluateCompletion(ctx, instance, phase); err != nil {
		return nil, err
	}

	slog.Info("quiz attempt recorded",
		"instanceId", instanceID,
		"phaseId", phase.ID,
		"score", dto.Score,
		"total", dto.TotalQuestions,
		"passed", attempt.Passed,
	)
	return attempt, nil
}

// phaseInWorkflow loads a phase with its items and checks it belongs to the
// instance's workflow.
func (s *InstanceService) phaseInWorkflow(ctx context.Context, phaseID, workflowID uuid.UUID) (*model.WorkflowPhase, error) {
	phase, err := s.repo.GetPhaseWithItems(ctx, phaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "phase", Ref: phaseID.String()}
		}
		return nil, &StoreError{Op: "phase lookup", Err: err}
	}
	if phase.WorkflowID != workflowID {
		return nil, &ValidationError{
			Fields: []string{"phaseId"},
			Reason: fmt.Sprintf("phase %s does not belong to workflow %s", phaseID, workflowID),
		}
	}
	return phase, nil
}

// markInProgress moves a not_started instance to in_progress.
func (s *InstanceService) markInProgress(ctx context.Context, instance *model.WorkflowInstance, now time.Time) error {
	if instance.Status != model.InstanceStatusNotStarted {
		return nil
	}
	if !instance.Status.CanTransitionTo(model.InstanceStatusInProgress) {
		return &ValidationError{Reason: fmt.Sprintf("cannot start instance in status %s", instance.Status)}
	}
	instance.Status = model.InstanceStatusInProgress
	instance.StartedAt = &now
	if err := s.repo.SaveInstance(ctx, instance); err != nil {
		return &StoreError{Op: "instance save", Err: err}
	}
	return nil
}

// evaluateCompletion re-evaluates phase and workflow completion from a
// fresh snapshot of progress rows and quiz attempts, applying the
// transitions and publishing completion events.
func (s *InstanceService) evaluateCompletion(ctx context.Context, instance *model.WorkflowInstance, phase *model.WorkflowPhase) error {
	progress, err := s.repo.GetProgressByInstance(ctx, instance.ID)
	if err != nil {
		return &StoreError{Op: "progress snapshot", Err: err}
	}
	attempts, err := s.repo.GetQuizAttempts(ctx, instance.ID, phase.ID)
	if err != nil {
		return &StoreError{Op: "quiz attempts snapshot", Err: err}
	}

	phaseRecord, err := s.repo.GetPhaseProgress(ctx, instance.ID, phase.ID)
	if err != nil {
		return &StoreError{Op: "phase progress lookup", Err: err}
	}

	now := time.Now().UTC()
	phaseAlreadyComplete := phaseRecord != nil && phaseRecord.Status == model.ProgressStatusCompleted

	if !phaseAlreadyComplete {
		complete, err := EvaluatePhaseCompletion(phase, progress, attempts)
		if err != nil {
			return &ValidationError{Reason: err.Error()}
		}
		if !complete {
			return nil
		}

		if phaseRecord == nil {
			phaseRecord = &model.WorkflowProgress{
				InstanceID: instance.ID,
				PhaseID:    phase.ID,
				StartedAt:  &now,
			}
		}
		phaseRecord.Status = model.ProgressStatusCompleted
		phaseRecord.CompletedAt = &now
		if err := s.repo.SaveProgress(ctx, phaseRecord); err != nil {
			return &StoreError{Op: "phase progress save", Err: err}
		}

		metrics.RecordPhaseCompletion(string(phase.Type))
		s.publishPhaseCompleted(ctx, instance, phase, now)

		// Refresh the snapshot so the workflow evaluation sees the
		// phase-level completion just written.
		progress, err = s.repo.GetProgressByInstance(ctx, instance.ID)
		if err != nil {
			return &StoreError{Op: "progress snapshot", Err: err}
		}
	}

	phases, err := s.repo.GetPhasesWithItemsByWorkflow(ctx, instance.WorkflowID)
	if err != nil {
		return &StoreError{Op: "phase list", Err: err}
	}
	allAttempts, err := s.repo.GetQuizAttemptsByInstance(ctx, instance.ID)
	if err != nil {
		return &StoreError{Op: "quiz attempts snapshot", Err: err}
	}
	attemptsByPhase := make(map[uuid.UUID][]model.QuizAttempt)
	for _, attempt := range allAttempts {
		attemptsByPhase[attempt.PhaseID] = append(attemptsByPhase[attempt.PhaseID], attempt)
	}

	workflowComplete, err := EvaluateInstanceCompletion(phases, progress, attemptsByPhase)
	if err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	if !workflowComplete || instance.Status == model.InstanceStatusCompleted {
		return nil
	}

	if !instance.Status.CanTransitionTo(model.InstanceStatusCompleted) {
		// A zero-required-phase workflow can evaluate complete before any
		// phase start; completion still requires the instance to have begun.
		return nil
	}
	instance.Status = model.InstanceStatusCompleted
	instance.CompletedAt = &now
	if err := s.repo.SaveInstance(ctx, instance); err != nil {
		return &StoreError{Op: "instance save", Err: err}
	}

	metrics.RecordWorkflowCompletion()
	slog.Info("workflow instance completed", "instanceId", instance.ID, "workflowId", instance.WorkflowID, "userId", instance.UserID)
	s.publishWorkflowCompleted(ctx, instance, now)
	return nil
}

func (s *InstanceService) publishPhaseCompleted(ctx context.Context, instance *model.WorkflowInstance, phase *model.WorkflowPhase, completedAt time.Time) {
	if s.notifier == nil {
		return
	}
	event := notification.PhaseCompletedEvent{
		InstanceID:  instance.ID,
		WorkflowID:  instance.WorkflowID,
		PhaseID:     phase.ID,
		UserID:      instance.UserID,
		PhaseName:   phase.Name,
		CompletedAt: completedAt,
	}
	if err := s.notifier.PublishPhaseCompleted(ctx, event); err != nil {
		// Notification failures never fail the progress write.
		slog.Warn("failed to publish phase completed event", "instanceId", instance.ID, "phaseId", phase.ID, "error", err)
	}
}

func (s *InstanceService) publishWorkflowCompleted(ctx context.Context, instance *model.WorkflowInstance, completedAt time.Time) {
	if s.notifier == nil {
		return
	}
	slug := ""
	if instance.Workflow != nil {
		slug = instance.Workflow.Slug
	}
	event := notification.WorkflowCompletedEvent{
		InstanceID:   instance.ID,
		WorkflowID:   instance.WorkflowID,
		UserID:       instance.UserID,
		WorkflowSlug: slug,
		CompletedAt:  completedAt,
	}
	if err := s.notifier.PublishWorkflowCompleted(ctx, event); err != nil {
		slog.Warn("failed to publish workflow completed event", "instanceId", instance.ID, "error", err)
	}
}
