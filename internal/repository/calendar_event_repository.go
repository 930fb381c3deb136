package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/formaplan/trainer-booking/internal/models"
)

const calendarEventColumns = `id, trainer_id, start_at, end_at, task_id, project_id, software_id, location, kind, created_at, updated_at`

// CalendarEventRepository persists trainer calendar events.
type CalendarEventRepository struct {
	db *sqlx.DB
}

// NewCalendarEventRepository constructs a calendar event repository.
func NewCalendarEventRepository(db *sqlx.DB) *CalendarEventRepository {
	return &CalendarEventRepository{db: db}
}

func (r *CalendarEventRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListInRange returns events of the given trainers intersecting [filter.Start, filter.End).
func (r *CalendarEventRepository) ListInRange(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, error) {
	where := []string{"trainer_id = ANY($1)", "start_at < $2", "end_at > $3"}
	args := []interface{}{pq.Array(filter.TrainerIDs), filter.End, filter.Start}
	if len(filter.ExcludeIDs) > 0 {
		where = append(where, fmt.Sprintf("id <> ALL($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ExcludeIDs))
	}
	query := fmt.Sprintf(`SELECT %s FROM calendar_events WHERE %s ORDER BY start_at ASC, trainer_id ASC`, calendarEventColumns, strings.Join(where, " AND "))

	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return events, nil
}

// GetByID fetches an event; sql.ErrNoRows is returned untouched when absent.
func (r *CalendarEventRepository) GetByID(ctx context.Context, id string) (*models.CalendarEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events WHERE id = $1`, calendarEventColumns)
	var event models.CalendarEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get calendar event: %w", err)
	}
	return &event, nil
}

// FindActiveByTask returns the latest appointment event linked to the task.
func (r *CalendarEventRepository) FindActiveByTask(ctx context.Context, taskID string) (*models.CalendarEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events WHERE task_id = $1 AND kind = $2 ORDER BY start_at DESC LIMIT 1`, calendarEventColumns)
	var event models.CalendarEvent
	if err := r.db.GetContext(ctx, &event, query, taskID, models.EventKindQualificationAppointment); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find appointment by task: %w", err)
	}
	return &event, nil
}

// Create inserts an event unconditionally.
func (r *CalendarEventRepository) Create(ctx context.Context, exec sqlx.ExtContext, event *models.CalendarEvent) error {
	stampNew(event)
	query := fmt.Sprintf(`INSERT INTO calendar_events (%s)
VALUES (:id, :trainer_id, :start_at, :end_at, :task_id, :project_id, :software_id, :location, :kind, :created_at, :updated_at)`, calendarEventColumns)
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, event); err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}
	return nil
}

// CreateIfFree inserts the event only when no other event of the same trainer
// overlaps its interval. excludeID names an event ignored by that check.
// It reports false when an overlapping event blocked the insert.
func (r *CalendarEventRepository) CreateIfFree(ctx context.Context, exec sqlx.ExtContext, event *models.CalendarEvent, excludeID string) (bool, error) {
	stampNew(event)
	const query = `INSERT INTO calendar_events (id, trainer_id, start_at, end_at, task_id, project_id, software_id, location, kind, created_at, updated_at)
SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
WHERE NOT EXISTS (
    SELECT 1 FROM calendar_events
    WHERE trainer_id = $2 AND start_at < $4 AND end_at > $3 AND id <> $12
)`
	res, err := r.exec(exec).ExecContext(ctx, query,
		event.ID, event.TrainerID, event.Start, event.End,
		event.TaskID, event.ProjectID, event.SoftwareID, event.Location,
		event.Kind, event.CreatedAt, event.UpdatedAt, excludeID,
	)
	if err != nil {
		return false, fmt.Errorf("conditional insert calendar event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("conditional insert calendar event rows: %w", err)
	}
	return affected == 1, nil
}

// LockTrainer serialises writers on a trainer's calendar until the surrounding
// transaction ends. It has no effect outside a transaction.
func (r *CalendarEventRepository) LockTrainer(ctx context.Context, exec sqlx.ExtContext, trainerID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, trainerID); err != nil {
		return fmt.Errorf("lock trainer calendar: %w", err)
	}
	return nil
}

// Update rewrites an event; sql.ErrNoRows is returned when the id is unknown.
func (r *CalendarEventRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE calendar_events SET trainer_id = :trainer_id, start_at = :start_at, end_at = :end_at, task_id = :task_id,
project_id = :project_id, software_id = :software_id, location = :location, kind = :kind, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("update calendar event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update calendar event rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an event. Deleting an unknown id is not an error.
func (r *CalendarEventRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, "DELETE FROM calendar_events WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

func stampNew(event *models.CalendarEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
}
