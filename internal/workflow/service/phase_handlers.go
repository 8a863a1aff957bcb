package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/OpenCrew/crewflow/internal/workflow/model"
)

// Phase-type-specific completion predicates. These are pure functions over
// an already-fetched snapshot of progress rows and quiz attempts; the
// caller is responsible for fetching a consistent snapshot before reducing.

// EvaluatePhaseCompletion reports whether a phase is complete for one
// instance, dispatching on the phase type.
func EvaluatePhaseCompletion(phase *model.WorkflowPhase, progress []model.WorkflowProgress, attempts []model.QuizAttempt) (bool, error) {
	cfg, err := phase.ParseConfig()
	if err != nil {
		return false, fmt.Errorf("phase %s: %w", phase.ID, err)
	}

	byItem := itemProgressIndex(progress)

	switch cfg := cfg.(type) {
	case model.ContentConfig:
		return requiredItemsComplete(phase.Items, byItem, false), nil
	case model.TrainingConfig:
		return requiredItemsComplete(phase.Items, byItem, true), nil
	case model.QuizConfig:
		return latestAttemptPasses(attempts, cfg.EffectivePassingScore()), nil
	case model.MixedConfig:
		if !requiredItemsComplete(phase.Items, byItem, true) {
			return false, nil
		}
		// A mixed phase containing quiz items additionally requires a
		// passing latest attempt.
		if hasQuizItems(phase.Items) {
			quizCfg := model.QuizConfig{}
			return latestAttemptPasses(attempts, quizCfg.EffectivePassingScore()), nil
		}
		return true, nil
	default:
		return false, fmt.Errorf("phase %s: unhandled config type %T", phase.ID, cfg)
	}
}

// EvaluateInstanceCompletion reports whether every required phase of the
// workflow is complete. Non-required phases never block completion. A phase
// whose phase-level progress row is already completed stays complete: a quiz
// attempt failed after a pass never un-completes the phase.
func EvaluateInstanceCompletion(phases []model.WorkflowPhase, progress []model.WorkflowProgress, attemptsByPhase map[uuid.UUID][]model.QuizAttempt) (bool, error) {
	byPhase := phaseProgressIndex(progress)
	for i := range phases {
		phase := &phases[i]
		if !phase.Required {
			continue
		}
		if record, ok := byPhase[phase.ID]; ok && record.Status == model.ProgressStatusCompleted {
			continue
		}
		complete, err := EvaluatePhaseCompletion(phase, progress, attemptsByPhase[phase.ID])
		if err != nil {
			return false, err
		}
		if !complete {
			return false, nil
		}
	}
	return true, nil
}

// phaseProgressIndex maps phase IDs to their phase-level progress records.
func phaseProgressIndex(progress []model.WorkflowProgress) map[uuid.UUID]*model.WorkflowProgress {
	byPhase := make(map[uuid.UUID]*model.WorkflowProgress, len(progress))
	for i := range progress {
		if progress[i].IsPhaseLevel() {
			byPhase[progress[i].PhaseID] = &progress[i]
		}
	}
	return byPhase
}

// itemProgressIndex maps item IDs to their progress records, skipping
// phase-level rows.
func itemProgressIndex(progress []model.WorkflowProgress) map[uuid.UUID]*model.WorkflowProgress {
	byItem := make(map[uuid.UUID]*model.WorkflowProgress, len(progress))
	for i := range progress {
		if progress[i].ItemID != nil {
			byItem[*progress[i].ItemID] = &progress[i]
		}
	}
	return byItem
}

// requiredItemsComplete checks that every required item has a completed
// progress row. When enforceProof is set, items that demand a signature or
// photo must also carry a non-empty proof reference.
func requiredItemsComplete(items []model.WorkflowPhaseItem, byItem map[uuid.UUID]*model.WorkflowProgress, enforceProof bool) bool {
	for i := range items {
		item := &items[i]
		if !item.Required {
			continue
		}
		record, ok := byItem[item.ID]
		if !ok || record.Status != model.ProgressStatusCompleted {
			return false
		}
		if enforceProof && item.DemandsProof() {
			if record.ProofRef == nil || *record.ProofRef == "" {
				return false
			}
		}
	}
	return true
}

// latestAttemptPasses checks the most recent quiz attempt against the
// passing score. Earlier attempts are retained for audit but never decide
// completion, so a failed attempt after a pass does not un-complete the
// phase at the time the pass was recorded; only the newest attempt counts
// at evaluation time. Attempts must be ordered oldest first.
func latestAttemptPasses(attempts []model.QuizAttempt, passingScore float64) bool {
	if len(attempts) == 0 {
		return false
	}
	latest := attempts[len(attempts)-1]
	return latest.Fraction() >= passingScore
}

func hasQuizItems(items []model.WorkflowPhaseItem) bool {
	for i := range items {
		if items[i].Type == model.ItemTypeQuiz {
			return true
		}
	}
	return false
}
