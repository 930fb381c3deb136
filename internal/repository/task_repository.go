package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// TaskRepository writes the appointment link onto tasks owned by the task engine.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs a task repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// SetAppointment points the task at its appointment event as of changedAt; an
// empty eventID clears the link. A link already written for a later change is
// kept and reported as not applied. sql.ErrNoRows is returned when the task
// does not exist.
func (r *TaskRepository) SetAppointment(ctx context.Context, taskID, eventID string, changedAt time.Time) (bool, error) {
	var link interface{}
	if eventID != "" {
		link = eventID
	}
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET appointment_event_id = $2, appointment_updated_at = $3
		WHERE id = $1 AND (appointment_updated_at IS NULL OR appointment_updated_at < $3)`, taskID, link, changedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("update task appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update task appointment rows: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, taskID); err != nil {
		return false, fmt.Errorf("check task exists: %w", err)
	}
	if !exists {
		return false, sql.ErrNoRows
	}
	return false, nil
}
