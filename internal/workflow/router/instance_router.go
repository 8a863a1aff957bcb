package router

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/OpenCrew/crewflow/internal/workflow/model"
	"github.com/OpenCrew/crewflow/internal/workflow/service"
)

type InstanceRouter struct {
	instances *service.InstanceService
}

func NewInstanceRouter(instances *service.InstanceService) *InstanceRouter {
	return &InstanceRouter{instances: instances}
}

// HandleAssignWorkflow handles POST /api/instances requests
func (ir *InstanceRouter) HandleAssignWorkflow(w http.ResponseWriter, r *http.Request) {
	var assignReq model.AssignWorkflowDTO
	if err := json.NewDecoder(r.Body).Decode(&assignReq); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	instance, err := ir.instances.AssignWorkflow(r.Context(), &assignReq)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, instance)
}

// HandleGetInstance handles GET /api/instances/{instanceID} requests
func (ir *InstanceRouter) HandleGetInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := parseUUIDPath(w, r, "instanceID")
	if !ok {
		return
	}

	instance, err := ir.instances.GetInstance(r.Context(), instanceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, instance)
}

// HandleGetProgress handles GET /api/instances/{instanceID}/progress requests
func (ir *InstanceRouter) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := parseUUIDPath(w, r, "instanceID")
	if !ok {
		return
	}

	summary, err := ir.instances.GetProgressSummary(r.Context(), instanceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// HandleStartPhase handles POST /api/instances/{instanceID}/phases/{phaseID}/start requests
func (ir *InstanceRouter) HandleStartPhase(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := parseUUIDPath(w, r, "instanceID")
	if !ok {
		return
	}
	phaseID, ok := parseUUIDPath(w, r, "phaseID")
	if !ok {
		return
	}

	record, err := ir.instances.StartPhase(r.Context(), instanceID, phaseID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// HandleCompleteItem handles POST /api/instances/{instanceID}/items/{itemID}/complete requests
func (ir *InstanceRouter) HandleCompleteItem(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := parseUUIDPath(w, r, "instanceID")
	if !ok {
		return
	}
	itemID, ok := parseUUIDPath(w, r, "itemID")
	if !ok {
		return
	}

	var completeReq model.CompleteItemDTO
	if err := json.NewDecoder(r.Body).Decode(&completeReq); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	completeReq.ItemID = itemID

	record, err := ir.instances.CompleteItem(r.Context(), instanceID, &completeReq)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// HandleSubmitQuiz handles POST /api/instances/{instanceID}/phases/{phaseID}/quiz requests
func (ir *InstanceRouter) HandleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := parseUUIDPath(w, r, "instanceID")
	if !ok {
		return
	}
	phaseID, ok := parseUUIDPath(w, r, "phaseID")
	if !ok {
		return
	}

	var quizReq model.SubmitQuizDTO
	if err := json.NewDecoder(r.Body).Decode(&quizReq); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	quizReq.PhaseID = phaseID

	attempt, err := ir.instances.SubmitQuiz(r.Context(), instanceID, &quizReq)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, attempt)
}
