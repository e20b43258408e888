package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/export"
)

// scheduleTitlePatterns select notifications produced by schedule fan-out.
var scheduleTitlePatterns = []string{"%schedule%", "%event%"}

type notificationRepository interface {
	ListByAccount(ctx context.Context, accountID string, limit int) ([]models.Notification, error)
	Counts(ctx context.Context, accountID string) (models.NotificationCounts, error)
	MarkRead(ctx context.Context, accountID, id string) (int64, error)
	MarkAllRead(ctx context.Context, accountID string) (int64, error)
	Delete(ctx context.Context, accountID, id string) (int64, error)
	ListByTitlePatterns(ctx context.Context, accountID string, patterns []string, limit int) ([]models.Notification, error)
	CountsByTitlePatterns(ctx context.Context, accountID string, patterns []string) (models.NotificationCounts, error)
}

type notificationDeliverer interface {
	Deliver(ctx context.Context, source string, recipients []string, draft models.NotificationDraft) dto.DeliveryReport
}

type recipientRepository interface {
	ExistingAccountIDs(ctx context.Context, ids []string) ([]string, error)
}

type courseRosterRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	EnrolledStudentAccountIDs(ctx context.Context, courseID string) ([]string, error)
}

type exportRenderer interface {
	Render(f export.Format, data export.Dataset, title string) ([]byte, error)
}

// NotificationConfig bounds listing sizes.
type NotificationConfig struct {
	ListLimit      int
	ListMax        int
	BroadcastLimit int
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// NotificationService serves the per-account inbox and direct sends.
type NotificationService struct {
	repo      notificationRepository
	deliverer notificationDeliverer
	accounts  recipientRepository
	courses   courseRosterRepository
	renderer  exportRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       NotificationConfig
	now       func() time.Time
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationRepository, deliverer notificationDeliverer, accounts recipientRepository, courses courseRosterRepository, renderer exportRenderer, validate *validator.Validate, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 10
	}
	if cfg.ListMax <= 0 {
		cfg.ListMax = 50
	}
	if cfg.ListMax < cfg.ListLimit {
		cfg.ListMax = cfg.ListLimit
	}
	if cfg.BroadcastLimit <= 0 {
		cfg.BroadcastLimit = 20
	}
	return &NotificationService{
		repo:      repo,
		deliverer: deliverer,
		accounts:  accounts,
		courses:   courses,
		renderer:  renderer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// List returns the newest notifications of an account with its counters.
func (s *NotificationService) List(ctx context.Context, accountID string, limit int) (*dto.NotificationList, error) {
	if limit <= 0 {
		limit = s.cfg.ListLimit
	}
	if limit > s.cfg.ListMax {
		limit = s.cfg.ListMax
	}
	items, err := s.repo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load notifications")
	}
	counts, err := s.repo.Counts(ctx, accountID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count notifications")
	}
	return &dto.NotificationList{
		Notifications: toNotificationItems(items),
		UnreadCount:   counts.Unread,
		TotalCount:    counts.Total,
	}, nil
}

// UnreadCount returns the unread badge value.
func (s *NotificationService) UnreadCount(ctx context.Context, accountID string) (*dto.UnreadCount, error) {
	counts, err := s.repo.Counts(ctx, accountID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count notifications")
	}
	return &dto.UnreadCount{UnreadCount: counts.Unread}, nil
}

// MarkRead flags one of the caller's notifications as read. Marking an
// already read notification succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, accountID, id string) error {
	affected, err := s.repo.MarkRead(ctx, accountID, id)
	if err != nil {
		return appErrors.Internal(err, "failed to mark notification read")
	}
	if affected == 0 {
		return appErrors.NotFound("notification not found")
	}
	return nil
}

// MarkAllRead flags every unread notification of the caller.
func (s *NotificationService) MarkAllRead(ctx context.Context, accountID string) (*dto.MarkAllReadResult, error) {
	affected, err := s.repo.MarkAllRead(ctx, accountID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to mark notifications read")
	}
	return &dto.MarkAllReadResult{Updated: affected}, nil
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, accountID, id string) error {
	affected, err := s.repo.Delete(ctx, accountID, id)
	if err != nil {
		return appErrors.Internal(err, "failed to delete notification")
	}
	if affected == 0 {
		return appErrors.NotFound("notification not found")
	}
	return nil
}

// ScheduleBroadcasts lists the schedule notifications the caller received.
func (s *NotificationService) ScheduleBroadcasts(ctx context.Context, actor *models.JWTClaims, limit int) (*dto.ScheduleBroadcastList, error) {
	if !actor.Role.Can(models.CapScheduleAudit) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot audit schedule broadcasts")
	}
	if limit <= 0 || limit > s.cfg.ListMax {
		limit = s.cfg.BroadcastLimit
	}
	items, err := s.repo.ListByTitlePatterns(ctx, actor.AccountID, scheduleTitlePatterns, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load schedule broadcasts")
	}
	counts, err := s.repo.CountsByTitlePatterns(ctx, actor.AccountID, scheduleTitlePatterns)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count schedule broadcasts")
	}
	list := toNotificationItems(items)
	return &dto.ScheduleBroadcastList{Notifications: list, Count: len(list), UnreadCount: counts.Unread}, nil
}

// ExportScheduleBroadcasts renders the schedule broadcast audit as csv or pdf.
func (s *NotificationService) ExportScheduleBroadcasts(ctx context.Context, actor *models.JWTClaims, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Validation(err.Error())
	}
	list, err := s.ScheduleBroadcasts(ctx, actor, s.cfg.ListMax)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{Headers: []string{"Created At", "Title", "Message", "Read"}}
	for _, item := range list.Notifications {
		data.Rows = append(data.Rows, map[string]string{
			"Created At": item.CreatedAt,
			"Title":      item.Title,
			"Message":    item.Message,
			"Read":       yesNo(item.IsRead),
		})
	}
	body, err := s.renderer.Render(format, data, "Schedule Broadcasts")
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("schedule-broadcasts-%s.%s", s.now().UTC().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// Broadcast sends one notification to each listed account. Unknown
// accounts are reported as failed without aborting the others.
func (s *NotificationService) Broadcast(ctx context.Context, actor *models.JWTClaims, req dto.BroadcastRequest) (*dto.DeliveryReport, error) {
	if !actor.Role.Can(models.CapNotificationsBroadcast) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can broadcast")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid broadcast payload")
	}

	requested := dedupe(req.AccountIDs)
	existing, err := s.accounts.ExistingAccountIDs(ctx, requested)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to resolve recipients")
	}
	known := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}
	var recipients, unknown []string
	for _, id := range requested {
		if _, ok := known[id]; ok {
			recipients = append(recipients, id)
		} else {
			unknown = append(unknown, id)
		}
	}

	kind := req.Type
	if kind == "" {
		kind = models.NotificationTypeAnnouncement
	}
	sender := actor.AccountID
	report := s.deliverer.Deliver(ctx, deliverySourceBroadcast, recipients, models.NotificationDraft{
		SenderAccountID: &sender,
		Title:           req.Title,
		Message:         req.Message,
		Type:            kind,
	})
	for _, id := range unknown {
		report.Results = append(report.Results, dto.DeliveryResult{AccountID: id, Error: "account not found"})
		report.Failed++
	}

	s.logger.Info("broadcast sent",
		zap.String("account_id", actor.AccountID),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed))
	return &report, nil
}

// MessageCourse lets a teacher notify every student enrolled in one of
// their courses.
func (s *NotificationService) MessageCourse(ctx context.Context, actor *models.JWTClaims, courseID string, req dto.CourseMessageRequest) (*dto.DeliveryReport, error) {
	if !actor.Role.Can(models.CapCourseMessage) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can message a course")
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "message is required")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	if course.TeacherProfileID != actor.ProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another teacher")
	}

	students, err := s.courses.EnrolledStudentAccountIDs(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load enrolled students")
	}
	sender := actor.AccountID
	report := s.deliverer.Deliver(ctx, deliverySourceCourse, dedupe(students), models.NotificationDraft{
		SenderAccountID: &sender,
		Title:           fmt.Sprintf("Message from %s (%s)", actor.FullName, course.Code),
		Message:         req.Message,
		Type:            models.NotificationTypeCourseMessage,
	})
	return &report, nil
}

func toNotificationItems(items []models.Notification) []dto.NotificationItem {
	out := make([]dto.NotificationItem, 0, len(items))
	for _, n := range items {
		out = append(out, dto.NotificationItem{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
