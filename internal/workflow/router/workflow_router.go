package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/OpenCrew/crewflow/internal/workflow/model"
	"github.com/OpenCrew/crewflow/internal/workflow/service"
)

type WorkflowRouter struct {
	engine *service.WorkflowEngine
}

func NewWorkflowRouter(engine *service.WorkflowEngine) *WorkflowRouter {
	return &WorkflowRouter{engine: engine}
}

// HandleCreateWorkflow handles POST /api/workflows requests
func (wr *WorkflowRouter) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var createReq model.CreateWorkflowDTO
	if err := json.NewDecoder(r.Body).Decode(&createReq); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	workflow, err := wr.engine.CreateWorkflow(r.Context(), &createReq)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, workflow)
}

// HandleGetWorkflows handles GET /api/workflows requests
// Optional Query Filters: active, offset, limit
func (wr *WorkflowRouter) HandleGetWorkflows(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	var offset, limit *int
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil {
			http.Error(w, "invalid 'offset' query parameter, must be an integer", http.StatusBadRequest)
			return
		}
		offset = &parsed
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			http.Error(w, "invalid 'limit' query parameter, must be an integer", http.StatusBadRequest)
			return
		}
		limit = &parsed
	}

	workflows, err := wr.engine.GetWorkflows(r.Context(), activeOnly, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, workflows)
}

// HandleGetWorkflow handles GET /api/workflows/{slug} requests
func (wr *WorkflowRouter) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		http.Error(w, "missing slug in path", http.StatusBadRequest)
		return
	}

	workflow, err := wr.engine.GetWorkflowBySlug(r.Context(), slug)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, workflow)
}

// HandleUpdateWorkflow handles PATCH /api/workflows/{workflowID} requests
func (wr *WorkflowRouter) HandleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := parseUUIDPath(w, r, "workflowID")
	if !ok {
		return
	}

	var patch model.UpdateWorkflowDTO
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	workflow, err := wr.engine.UpdateWorkflow(r.Context(), workflowID, &patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, workflow)
}

// HandleGetStatistics handles GET /api/workflows/{workflowID}/statistics requests
func (wr *WorkflowRouter) HandleGetStatistics(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := parseUUIDPath(w, r, "workflowID")
	if !ok {
		return
	}

	stats, err := wr.engine.GetWorkflowStatistics(r.Context(), workflowID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleCreatePhase handles POST /api/workflows/{workflowID}/phases requests
func (wr *WorkflowRouter) HandleCreatePhase(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := parseUUIDPath(w, r, "workflowID")
	if !ok {
		return
	}

	var createReq model.CreateWorkflowPhaseDTO
	if err := json.NewDecoder(r.Body).Decode(&createReq); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	createReq.WorkflowID = workflowID

	phase, err := wr.engine.CreateWorkflowPhase(r.Context(), &createReq)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, phase)
}

// HandleCreateItem handles POST /api/phases/{phaseID}/items requests
func (wr *WorkflowRouter) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	phaseID, ok := parseUUIDPath(w, r, "phaseID")
	if !ok {
		return
	}

	var createReq model.CreateWorkflowPhaseItemDTO
	if err := json.NewDecoder(r.Body).Decode(&createReq); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	createReq.PhaseID = phaseID

	item, err := wr.engine.CreateWorkflowPhaseItem(r.Context(), &createReq)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// HandleHealth handles GET /api/health requests
func (wr *WorkflowRouter) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := wr.engine.HealthCheck(r.Context())
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func parseUUIDPath(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := r.PathValue(name)
	if raw == "" {
		http.Error(w, fmt.Sprintf("missing %s in path", name), http.StatusBadRequest)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid %s: %v", name, err), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
