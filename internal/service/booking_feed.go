package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/formaplan/trainer-booking/pkg/jobs"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// BookingFeed posts appointment changes to a Telegram chat watched by the planning team.
type BookingFeed struct {
	sender   messageSender
	chatID   int64
	location *time.Location
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewBookingFeed constructs the feed. Times are rendered in loc.
func NewBookingFeed(sender messageSender, chatID int64, loc *time.Location, metrics *MetricsService, logger *zap.Logger) *BookingFeed {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingFeed{sender: sender, chatID: chatID, location: loc, metrics: metrics, logger: logger}
}

// Handle processes a JobTypeBookingFeed job.
func (f *BookingFeed) Handle(ctx context.Context, job jobs.Job) error {
	change, ok := job.Payload.(AppointmentChange)
	if !ok {
		return fmt.Errorf("unexpected booking feed payload %T", job.Payload)
	}
	_, err := f.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    f.chatID,
		Text:      f.Format(change),
		ParseMode: tgmodels.ParseModeHTML,
	})
	f.metrics.RecordNotification(JobTypeBookingFeed, err)
	if err != nil {
		return fmt.Errorf("send booking feed message: %w", err)
	}
	return nil
}

// Format renders the change as a short HTML message.
func (f *BookingFeed) Format(change AppointmentChange) string {
	var b strings.Builder
	switch change.Operation {
	case OperationBook:
		b.WriteString("<b>Appointment booked</b>")
	case OperationModify:
		b.WriteString("<b>Appointment moved</b>")
	case OperationCancel:
		b.WriteString("<b>Appointment cancelled</b>")
	default:
		b.WriteString("<b>Appointment updated</b>")
	}
	fmt.Fprintf(&b, "\nTask: %s", html.EscapeString(change.TaskID))
	if change.ProjectID != "" {
		fmt.Fprintf(&b, "\nProject: %s", html.EscapeString(change.ProjectID))
	}
	if e := change.Event; e != nil && change.Operation != OperationCancel {
		start, end := e.Start.In(f.location), e.End.In(f.location)
		fmt.Fprintf(&b, "\nTrainer: %s", html.EscapeString(e.TrainerID))
		fmt.Fprintf(&b, "\nWhen: %s %s-%s", start.Format("Mon 02 Jan 2006"), start.Format("15:04"), end.Format("15:04"))
		if e.Location != nil && *e.Location != "" {
			fmt.Fprintf(&b, "\nWhere: %s", html.EscapeString(*e.Location))
		}
	}
	return b.String()
}
