package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
)

// Delivery sources used as metric labels.
const (
	deliverySourceSchedule  = "schedule_event"
	deliverySourceBroadcast = "broadcast"
	deliverySourceCourse    = "course_message"
	deliverySourceTeacher   = "teacher_message"
	deliverySourceAdmin     = "admin_query"
)

type audienceCourseRepository interface {
	EnrolledStudentAccountIDs(ctx context.Context, courseID string) ([]string, error)
	TeacherAccountID(ctx context.Context, courseID string) (string, error)
}

type audienceAccountRepository interface {
	AccountIDsByRoles(ctx context.Context, roles []models.Role) ([]string, error)
}

type notificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Broadcaster turns events and drafts into per-recipient notifications.
// Delivery is best-effort: one failed insert never stops the others and
// nothing here returns an error to the caller.
type Broadcaster struct {
	courses       audienceCourseRepository
	accounts      audienceAccountRepository
	notifications notificationWriter
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewBroadcaster wires the fan-out.
func NewBroadcaster(courses audienceCourseRepository, accounts audienceAccountRepository, notifications notificationWriter, metrics *MetricsService, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{courses: courses, accounts: accounts, notifications: notifications, metrics: metrics, logger: logger}
}

// OnScheduleEventCreated notifies the audience of a freshly created event
// when it is both active and flagged for notification. It returns how many
// notifications were created.
func (b *Broadcaster) OnScheduleEventCreated(ctx context.Context, event *models.ScheduleEvent) int {
	if event == nil || !event.Notify || !event.Active {
		return 0
	}
	return b.NotifyEvent(ctx, event)
}

// NotifyEvent fans the event out regardless of its flags. The event is
// already committed, so the fan-out ignores cancellation of ctx.
func (b *Broadcaster) NotifyEvent(ctx context.Context, event *models.ScheduleEvent) (notified int) {
	if event == nil {
		return 0
	}
	ctx = context.WithoutCancel(ctx)
	log := b.logger.With(zap.String("event_id", event.ID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("schedule fan-out panicked", zap.Any("panic", r))
		}
	}()

	recipients, err := b.Audience(ctx, event)
	if err != nil {
		log.Error("failed to resolve schedule audience", zap.Error(err))
		return 0
	}
	if len(recipients) == 0 {
		log.Info("schedule event has no audience")
		return 0
	}

	title, body := ScheduleMessage(event)
	report := b.Deliver(ctx, deliverySourceSchedule, recipients, models.NotificationDraft{
		Title:   title,
		Message: body,
		Type:    models.NotificationTypeSchedule,
	})
	log.Info("schedule fan-out finished",
		zap.Int("recipients", len(recipients)),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed))
	return report.Delivered
}

// Audience resolves the recipient accounts of an event: a course event
// reaches its enrolled students and its teacher, a public event reaches
// every student and teacher, anything else reaches nobody.
func (b *Broadcaster) Audience(ctx context.Context, event *models.ScheduleEvent) ([]string, error) {
	switch {
	case event.HasCourse():
		students, err := b.courses.EnrolledStudentAccountIDs(ctx, *event.CourseID)
		if err != nil {
			return nil, fmt.Errorf("course students: %w", err)
		}
		teacher, err := b.courses.TeacherAccountID(ctx, *event.CourseID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("course teacher: %w", err)
		}
		ids := students
		if teacher != "" {
			ids = append(ids, teacher)
		}
		return dedupe(ids), nil
	case event.Public:
		ids, err := b.accounts.AccountIDsByRoles(ctx, []models.Role{models.RoleStudent, models.RoleTeacher})
		if err != nil {
			return nil, fmt.Errorf("public audience: %w", err)
		}
		return dedupe(ids), nil
	default:
		return nil, nil
	}
}

// Deliver creates one notification per recipient and reports each outcome.
func (b *Broadcaster) Deliver(ctx context.Context, source string, recipients []string, draft models.NotificationDraft) dto.DeliveryReport {
	report := dto.DeliveryReport{Results: make([]dto.DeliveryResult, 0, len(recipients))}
	for _, accountID := range recipients {
		result := dto.DeliveryResult{AccountID: accountID}
		n := draft.For(accountID)
		if err := b.create(ctx, n); err != nil {
			b.logger.Warn("notification delivery failed",
				zap.String("source", source),
				zap.String("account_id", accountID),
				zap.Error(err))
			result.Error = "delivery failed"
			report.Failed++
		} else {
			result.OK = true
			result.NotificationID = n.ID
			report.Delivered++
		}
		report.Results = append(report.Results, result)
	}
	b.metrics.RecordDelivery(source, report.Delivered, report.Failed)
	return report
}

func (b *Broadcaster) create(ctx context.Context, n *models.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notification insert panicked: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.notifications.Create(ctx, n)
}

// ScheduleMessage renders the title and body of an event notification.
func ScheduleMessage(event *models.ScheduleEvent) (string, string) {
	title := "📅 Schedule: " + event.Title

	var body strings.Builder
	fmt.Fprintf(&body, "%s on %s", event.Title, event.Date.Format("2006-01-02"))
	if event.StartTime != nil && *event.StartTime != "" {
		body.WriteString(" at " + clockWithSeconds(*event.StartTime))
	}
	switch {
	case event.HasCourse() && event.CourseCode != nil && *event.CourseCode != "":
		fmt.Fprintf(&body, " (%s)", *event.CourseCode)
	case event.Public:
		body.WriteString(" (Public Event)")
	}
	return title, body.String()
}

func clockWithSeconds(clock string) string {
	if len(clock) == len("15:04") {
		return clock + ":00"
	}
	return clock
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
