package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/formaplan/trainer-booking/internal/models"
)

// TrainerRepository reads trainers and their software competencies.
type TrainerRepository struct {
	db *sqlx.DB
}

// NewTrainerRepository constructs a trainer repository.
func NewTrainerRepository(db *sqlx.DB) *TrainerRepository {
	return &TrainerRepository{db: db}
}

// ListBySoftware returns active trainers holding any competency for the software,
// whatever its level.
func (r *TrainerRepository) ListBySoftware(ctx context.Context, softwareID string) ([]models.Trainer, error) {
	const query = `SELECT DISTINCT t.id, t.display_name, t.avatar_url, t.active, t.created_at, t.updated_at
FROM trainers t
JOIN trainer_competencies c ON c.trainer_id = t.id
WHERE c.software_id = $1 AND t.active = TRUE
ORDER BY t.display_name ASC, t.id ASC`
	var trainers []models.Trainer
	if err := r.db.SelectContext(ctx, &trainers, query, softwareID); err != nil {
		return nil, fmt.Errorf("list trainers by software: %w", err)
	}
	return trainers, nil
}
