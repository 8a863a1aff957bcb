package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenCrew/crewflow/internal/workflow/model"
)

// WorkflowRepository is the store surface the engine depends on. Services
// receive it via constructor injection so tests can substitute a mock.
type WorkflowRepository interface {
	CreateWorkflow(ctx context.Context, workflow *model.Workflow) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	GetWorkflowBySlug(ctx context.Context, slug string) (*model.Workflow, error)
	GetWorkflowByID(ctx context.Context, id uuid.UUID) (*model.Workflow, error)
	ListWorkflows(ctx context.Context, activeOnly bool, offset, limit int) ([]model.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *model.Workflow) error

	GetPhaseByID(ctx context.Context, id uuid.UUID) (*model.WorkflowPhase, error)
	PhaseNumberExists(ctx context.Context, workflowID uuid.UUID, phaseNumber int) (bool, error)
	CreatePhase(ctx context.Context, phase *model.WorkflowPhase) error
	ItemNumberExists(ctx context.Context, phaseID uuid.UUID, itemNumber int) (bool, error)
	CreateItem(ctx context.Context, item *model.WorkflowPhaseItem) error

	CountInstancesByStatus(ctx context.Context, workflowID uuid.UUID) (map[model.InstanceStatus]int64, error)
	Ping(ctx context.Context) error
}

// InstanceRepository is the store surface the instance service depends on.
type InstanceRepository interface {
	CreateInstance(ctx context.Context, instance *model.WorkflowInstance) error
	GetInstanceByID(ctx context.Context, id uuid.UUID) (*model.WorkflowInstance, error)
	GetInstanceByWorkflowAndUser(ctx context.Context, workflowID, userID uuid.UUID) (*model.WorkflowInstance, error)
	SaveInstance(ctx context.Context, instance *model.WorkflowInstance) error

	GetItemByID(ctx context.Context, id uuid.UUID) (*model.WorkflowPhaseItem, error)
	GetPhaseWithItems(ctx context.Context, id uuid.UUID) (*model.WorkflowPhase, error)
	GetPhasesWithItemsByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]model.WorkflowPhase, error)

	GetProgressByInstance(ctx context.Context, instanceID uuid.UUID) ([]model.WorkflowProgress, error)
	GetItemProgress(ctx context.Context, instanceID, itemID uuid.UUID) (*model.WorkflowProgress, error)
	GetPhaseProgress(ctx context.Context, instanceID, phaseID uuid.UUID) (*model.WorkflowProgress, error)
	SaveProgress(ctx context.Context, progress *model.WorkflowProgress) error

	CreateQuizAttempt(ctx context.Context, attempt *model.QuizAttempt) error
	GetQuizAttempts(ctx context.Context, instanceID, phaseID uuid.UUID) ([]model.QuizAttempt, error)
	GetQuizAttemptsByInstance(ctx context.Context, instanceID uuid.UUID) ([]model.QuizAttempt, error)
}

// GormRepository implements both repository interfaces over a gorm Postgres connection.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) CreateWorkflow(ctx context.Context, workflow *model.Workflow) error {
	return r.db.WithContext(ctx).Create(workflow).Error
}

func (r *GormRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Workflow{}).Where("slug = ?", slug).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepository) GetWorkflowBySlug(ctx context.Context, slug string) (*model.Workflow, error) {
	var workflow model.Workflow
	err := r.db.WithContext(ctx).
		Preload("Phases", func(db *gorm.DB) *gorm.DB { return db.Order("phase_number ASC") }).
		Preload("Phases.Items", func(db *gorm.DB) *gorm.DB { return db.Order("item_number ASC") }).
		First(&workflow, "slug = ?", slug).Error
	if err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (r *GormRepository) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*model.Workflow, error) {
	var workflow model.Workflow
	if err := r.db.WithContext(ctx).First(&workflow, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (r *GormRepository) ListWorkflows(ctx context.Context, activeOnly bool, offset, limit int) ([]model.Workflow, error) {
	query := r.db.WithContext(ctx).Model(&model.Workflow{}).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit)
	if activeOnly {
		query = query.Where("status = ?", model.WorkflowStatusActive)
	}

	var workflows []model.Workflow
	if err := query.Find(&workflows).Error; err != nil {
		return nil, err
	}
	return workflows, nil
}

func (r *GormRepository) SaveWorkflow(ctx context.Context, workflow *model.Workflow) error {
	return r.db.WithContext(ctx).Save(workflow).Error
}

func (r *GormRepository) GetPhaseByID(ctx context.Context, id uuid.UUID) (*model.WorkflowPhase, error) {
	var phase model.WorkflowPhase
	if err := r.db.WithContext(ctx).First(&phase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &phase, nil
}

func (r *GormRepository) PhaseNumberExists(ctx context.Context, workflowID uuid.UUID, phaseNumber int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WorkflowPhase{}).
		Where("workflow_id = ? AND phase_number = ?", workflowID, phaseNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepository) CreatePhase(ctx context.Context, phase *model.WorkflowPhase) error {
	return r.db.WithContext(ctx).Create(phase).Error
}

func (r *GormRepository) ItemNumberExists(ctx context.Context, phaseID uuid.UUID, itemNumber int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WorkflowPhaseItem{}).
		Where("phase_id = ? AND item_number = ?", phaseID, itemNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepository) CreateItem(ctx context.Context, item *model.WorkflowPhaseItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *GormRepository) CountInstancesByStatus(ctx context.Context, workflowID uuid.UUID) (map[model.InstanceStatus]int64, error) {
	type statusCount struct {
		Status model.InstanceStatus
		Count  int64
	}

	var rows []statusCount
	err := r.db.WithContext(ctx).Model(&model.WorkflowInstance{}).
		Select("status, count(*) as count").
		Where("workflow_id = ?", workflowID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.InstanceStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormRepository) CreateInstance(ctx context.Context, instance *model.WorkflowInstance) error {
	return r.db.WithContext(ctx).Create(instance).Error
}

func (r *GormRepository) GetInstanceByID(ctx context.Context, id uuid.UUID) (*model.WorkflowInstance, error) {
	var instance model.WorkflowInstance
	err := r.db.WithContext(ctx).
		Preload("Workflow").
		Preload("Progress").
		First(&instance, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

func (r *GormRepository) GetInstanceByWorkflowAndUser(ctx context.Context, workflowID, userID uuid.UUID) (*model.WorkflowInstance, error) {
	var instance model.WorkflowInstance
	err := r.db.WithContext(ctx).
		First(&instance, "workflow_id = ? AND user_id = ?", workflowID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

func (r *GormRepository) SaveInstance(ctx context.Context, instance *model.WorkflowInstance) error {
	return r.db.WithContext(ctx).Save(instance).Error
}

func (r *GormRepository) GetItemByID(ctx context.Context, id uuid.UUID) (*model.WorkflowPhaseItem, error) {
	var item model.WorkflowPhaseItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepository) GetPhaseWithItems(ctx context.Context, id uuid.UUID) (*model.WorkflowPhase, error) {
	var phase model.WorkflowPhase
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("item_number ASC") }).
		First(&phase, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &phase, nil
}

func (r *GormRepository) GetPhasesWithItemsByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]model.WorkflowPhase, error) {
	var phases []model.WorkflowPhase
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("item_number ASC") }).
		Where("workflow_id = ?", workflowID).
		Order("phase_number ASC").
		Find(&phases).Error
	if err != nil {
		return nil, err
	}
	return phases, nil
}

func (r *GormRepository) GetProgressByInstance(ctx context.Context, instanceID uuid.UUID) ([]model.WorkflowProgress, error) {
	var progress []model.WorkflowProgress
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Find(&progress).Error
	if err != nil {
		return nil, err
	}
	return progress, nil
}

func (r *GormRepository) GetItemProgress(ctx context.Context, instanceID, itemID uuid.UUID) (*model.WorkflowProgress, error) {
	var progress model.WorkflowProgress
	err := r.db.WithContext(ctx).
		First(&progress, "instance_id = ? AND item_id = ?", instanceID, itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &progress, nil
}

func (r *GormRepository) GetPhaseProgress(ctx context.Context, instanceID, phaseID uuid.UUID) (*model.WorkflowProgress, error) {
	var progress model.WorkflowProgress
	err := r.db.WithContext(ctx).
		First(&progress, "instance_id = ? AND phase_id = ? AND item_id IS NULL", instanceID, phaseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &progress, nil
}

func (r *GormRepository) SaveProgress(ctx context.Context, progress *model.WorkflowProgress) error {
	return r.db.WithContext(ctx).Save(progress).Error
}

func (r *GormRepository) CreateQuizAttempt(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *GormRepository) GetQuizAttempts(ctx context.Context, instanceID, phaseID uuid.UUID) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND phase_id = ?", instanceID, phaseID).
		Order("created_at ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *GormRepository) GetQuizAttemptsByInstance(ctx context.Context, instanceID uuid.UUID) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("created_at ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
