package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/OpenCrew/crewflow/internal/auth"
	"github.com/OpenCrew/crewflow/internal/uploads"
	"github.com/OpenCrew/crewflow/internal/workflow/model"
)

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Workflow{},
		&model.WorkflowPhase{},
		&model.WorkflowPhaseItem{},
		&model.WorkflowInstance{},
		&model.WorkflowProgress{},
		&model.QuizAttempt{},
		&auth.User{},
		&auth.MagicLink{},
		&auth.Session{},
		&uploads.ProofFile{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
