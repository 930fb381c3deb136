package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/formaplan/trainer-booking/internal/models"
	"github.com/formaplan/trainer-booking/pkg/jobs"
)

// Background job types fanned out for every appointment change.
const (
	JobTypeTaskLink    = "appointment.task_link"
	JobTypeBookingFeed = "appointment.feed"
)

// Appointment operations carried by AppointmentChange.
const (
	OperationBook   = "book"
	OperationModify = "modify"
	OperationCancel = "cancel"
)

// AppointmentChange describes a committed booking, rebooking or cancellation.
type AppointmentChange struct {
	Operation       string
	TaskID          string
	ProjectID       string
	Event           *models.CalendarEvent
	PreviousEventID string
	At              time.Time
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// AppointmentNotifier publishes appointment changes to the background queue.
type AppointmentNotifier struct {
	queue    jobEnqueuer
	jobTypes []string
	logger   *zap.Logger
}

// NewAppointmentNotifier fans every change out to the given job types.
func NewAppointmentNotifier(queue jobEnqueuer, logger *zap.Logger, jobTypes ...string) *AppointmentNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentNotifier{queue: queue, jobTypes: jobTypes, logger: logger}
}

// AppointmentChanged enqueues the change. Failures are logged, never returned:
// the booking is already committed.
func (n *AppointmentNotifier) AppointmentChanged(ctx context.Context, change AppointmentChange) {
	if n == nil || n.queue == nil {
		return
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	for _, jobType := range n.jobTypes {
		if err := n.queue.Enqueue(jobs.Job{Type: jobType, Payload: change}); err != nil {
			n.logger.Warn("failed to enqueue appointment notification",
				zap.String("type", jobType),
				zap.String("task_id", change.TaskID),
				zap.Error(err),
			)
		}
	}
}

type taskLinker interface {
	SetAppointment(ctx context.Context, taskID, eventID string, changedAt time.Time) (bool, error)
}

// TaskLinkUpdater records the current appointment event on the task row.
type TaskLinkUpdater struct {
	tasks   taskLinker
	metrics *MetricsService
	logger  *zap.Logger
}

// NewTaskLinkUpdater constructs the job handler.
func NewTaskLinkUpdater(tasks taskLinker, metrics *MetricsService, logger *zap.Logger) *TaskLinkUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskLinkUpdater{tasks: tasks, metrics: metrics, logger: logger}
}

// Handle processes a JobTypeTaskLink job. Unknown tasks are skipped since the
// task engine owns that table. Jobs may run out of order across workers and
// retries, so a change older than the stored link is dropped.
func (u *TaskLinkUpdater) Handle(ctx context.Context, job jobs.Job) error {
	change, ok := job.Payload.(AppointmentChange)
	if !ok {
		return fmt.Errorf("unexpected task link payload %T", job.Payload)
	}
	if change.At.IsZero() {
		return fmt.Errorf("task link change for %s has no timestamp", change.TaskID)
	}
	eventID := ""
	if change.Operation != OperationCancel && change.Event != nil {
		eventID = change.Event.ID
	}
	applied, err := u.tasks.SetAppointment(ctx, change.TaskID, eventID, change.At)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		u.logger.Info("task not found, appointment link skipped", zap.String("task_id", change.TaskID))
		err = nil
	case err == nil && !applied:
		u.logger.Info("stale appointment link skipped",
			zap.String("task_id", change.TaskID),
			zap.String("operation", change.Operation),
			zap.Time("changed_at", change.At),
		)
	}
	u.metrics.RecordNotification(JobTypeTaskLink, err)
	return err
}
