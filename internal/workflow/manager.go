package workflow

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/OpenCrew/crewflow/internal/progress"
	"github.com/OpenCrew/crewflow/internal/workflow/router"
	"github.com/OpenCrew/crewflow/internal/workflow/service"
)

// Manager wires the workflow services and routers together and exposes the
// HTTP handler surface the server mounts.
type Manager struct {
	engine          *service.WorkflowEngine
	instanceService *service.InstanceService
	workflowRouter  *router.WorkflowRouter
	instanceRouter  *router.InstanceRouter
}

// NewManager creates a manager backed by the given database connection.
// notifier publishes completion events and may be nil; tracker classifies
// instances for the reminder scheduler.
func NewManager(db *gorm.DB, notifier service.CompletionNotifier, tracker *progress.Tracker) *Manager {
	repo := service.NewGormRepository(db)

	engine := service.NewWorkflowEngine(repo)
	instanceService := service.NewInstanceService(repo, repo, notifier, tracker)

	m := &Manager{
		engine:          engine,
		instanceService: instanceService,
	}
	m.workflowRouter = router.NewWorkflowRouter(engine)
	m.instanceRouter = router.NewInstanceRouter(instanceService)

	return m
}

// Engine exposes the workflow engine for callers outside HTTP handlers.
func (m *Manager) Engine() *service.WorkflowEngine {
	return m.engine
}

// Instances exposes the instance service.
func (m *Manager) Instances() *service.InstanceService {
	return m.instanceService
}

// HTTP Handler delegation methods

// HandleCreateWorkflow handles POST /api/workflows
func (m *Manager) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	m.workflowRouter.HandleCreateWorkflow(w, r)
}

// HandleGetWorkflows handles GET /api/workflows
func (m *Manager) HandleGetWorkflows(w http.ResponseWriter, r *http.Request) {
	m.workflowRouter.HandleGetWorkflows(w, r)
}

// HandleGetWorkflow handles GET /api/workflows/{slug}
func (m *Manager) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	m.workflowRouter.HandleGetWorkflow(w, r)
}

// HandleUpdateWorkflow handles PATCH /api/workflows/{workflowID}
func (m *Manager) HandleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	m.workflowRouter.HandleUpdateWorkflow(w, r)
}

// HandleGetStatistics handles GET /api/workflows/{workflowID}/statistics
func (m *Manager) HandleGetStatistics(w http.ResponseWriter, r *http.Request) {
	m.workflowRouter.HandleGetStatistics(w, r)
}

// HandleCreatePhase handles POST /api/workflows/{workflowID}/phases
func (m *Manager) HandleCreatePhase(w http.ResponseWriter, r *http.Request) {
	m.workflowRouter.HandleCreatePhase(w, r)
}

// HandleCreateItem handles POST /api/phases/{phaseID}/items
func (m *Manager) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	m.workflowRouter.HandleCreateItem(w, r)
}

// HandleHealth handles GET /api/health
func (m *Manager) HandleHealth(w http.ResponseWriter, r *http.Request) {
	m.workflowRouter.HandleHealth(w, r)
}

// HandleAssignWorkflow handles POST /api/instances
func (m *Manager) HandleAssignWorkflow(w http.ResponseWriter, r *http.Request) {
	m.instanceRouter.HandleAssignWorkflow(w, r)
}

// HandleGetInstance handles GET /api/instances/{instanceID}
func (m *Manager) HandleGetInstance(w http.ResponseWriter, r *http.Request) {
	m.instanceRouter.HandleGetInstance(w, r)
}

// HandleGetProgress handles GET /api/instances/{instanceID}/progress
func (m *Manager) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	m.instanceRouter.HandleGetProgress(w, r)
}

// HandleStartPhase handles POST /api/instances/{instanceID}/phases/{phaseID}/start
func (m *Manager) HandleStartPhase(w http.ResponseWriter, r *http.Request) {
	m.instanceRouter.HandleStartPhase(w, r)
}

// HandleCompleteItem handles POST /api/instances/{instanceID}/items/complete
func (m *Manager) HandleCompleteItem(w http.ResponseWriter, r *http.Request) {
	m.instanceRouter.HandleCompleteItem(w, r)
}

// HandleSubmitQuiz handles POST /api/instances/{instanceID}/quiz
func (m *Manager) HandleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	m.instanceRouter.HandleSubmitQuiz(w, r)
}
