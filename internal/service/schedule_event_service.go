package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

const defaultUpcomingLimit = 50

type scheduleEventRepository interface {
	Create(ctx context.Context, event *models.ScheduleEvent) error
	Update(ctx context.Context, event *models.ScheduleEvent) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.ScheduleEvent, error)
	UpcomingForStudent(ctx context.Context, studentProfileID string, from time.Time, limit int) ([]models.ScheduleEvent, error)
	UpcomingByCreator(ctx context.Context, profileID string, from time.Time, limit int) ([]models.ScheduleEvent, error)
	Upcoming(ctx context.Context, from time.Time, limit int) ([]models.ScheduleEvent, error)
}

type scheduleCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type scheduleNotifier interface {
	OnScheduleEventCreated(ctx context.Context, event *models.ScheduleEvent) int
	NotifyEvent(ctx context.Context, event *models.ScheduleEvent) int
}

// ScheduleEventService manages schedule events and triggers their fan-out.
type ScheduleEventService struct {
	repo      scheduleEventRepository
	courses   scheduleCourseRepository
	notifier  scheduleNotifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleEventService constructs the service.
func NewScheduleEventService(repo scheduleEventRepository, courses scheduleCourseRepository, notifier scheduleNotifier, validate *validator.Validate, logger *zap.Logger) *ScheduleEventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleEventService{repo: repo, courses: courses, notifier: notifier, validator: validate, logger: logger, now: time.Now}
}

// Create persists a new event and fans it out exactly once. A failed or
// partial fan-out never undoes the event.
func (s *ScheduleEventService) Create(ctx context.Context, actor *models.JWTClaims, req dto.ScheduleEventRequest) (*dto.ScheduleEventResult, error) {
	if !actor.Role.Can(models.CapScheduleCreate) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot create schedule events")
	}

	creator := actor.ProfileID
	event := &models.ScheduleEvent{Active: true, Notify: true, CreatedByProfileID: &creator}
	if err := s.apply(ctx, actor, event, req); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Internal(err, "failed to create schedule event")
	}

	notified := s.notifier.OnScheduleEventCreated(ctx, event)
	s.logger.Info("schedule event created",
		zap.String("event_id", event.ID),
		zap.String("account_id", actor.AccountID),
		zap.Int("notified", notified))

	return &dto.ScheduleEventResult{Event: event, Notified: notified}, nil
}

// Update edits an event owned by the caller. Updates never notify.
func (s *ScheduleEventService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.ScheduleEventRequest) (*models.ScheduleEvent, error) {
	event, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, actor, event, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Internal(err, "failed to update schedule event")
	}
	return event, nil
}

// Delete removes an event owned by the caller.
func (s *ScheduleEventService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete schedule event")
	}
	return nil
}

// Upcoming lists events from today on as visible to the caller.
func (s *ScheduleEventService) Upcoming(ctx context.Context, actor *models.JWTClaims) ([]models.ScheduleEvent, error) {
	today := s.today()
	var (
		events []models.ScheduleEvent
		err    error
	)
	switch {
	case actor.Role == models.RoleStudent:
		events, err = s.repo.UpcomingForStudent(ctx, actor.ProfileID, today, defaultUpcomingLimit)
	case actor.Role == models.RoleTeacher:
		events, err = s.repo.UpcomingByCreator(ctx, actor.ProfileID, today, defaultUpcomingLimit)
	case actor.Role.IsAdminTier():
		events, err = s.repo.Upcoming(ctx, today, defaultUpcomingLimit)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot view schedule events")
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load upcoming events")
	}
	if events == nil {
		events = []models.ScheduleEvent{}
	}
	return events, nil
}

// Renotify re-runs the fan-out for an existing event on admin request,
// ignoring its notify and active flags.
func (s *ScheduleEventService) Renotify(ctx context.Context, actor *models.JWTClaims, id string) (*dto.ScheduleEventResult, error) {
	if !actor.Role.Can(models.CapScheduleRenotify) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can re-send event notifications")
	}
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	notified := s.notifier.NotifyEvent(ctx, event)
	s.logger.Info("schedule event re-notified", zap.String("event_id", id), zap.Int("notified", notified))
	return &dto.ScheduleEventResult{Event: event, Notified: notified}, nil
}

func (s *ScheduleEventService) find(ctx context.Context, id string) (*models.ScheduleEvent, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("schedule event not found")
		}
		return nil, appErrors.Internal(err, "failed to load schedule event")
	}
	return event, nil
}

func (s *ScheduleEventService) owned(ctx context.Context, actor *models.JWTClaims, id string) (*models.ScheduleEvent, error) {
	if !actor.Role.Can(models.CapScheduleCreate) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot manage schedule events")
	}
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role.IsAdminTier() {
		return event, nil
	}
	if event.CreatedByProfileID == nil || *event.CreatedByProfileID != actor.ProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "schedule event belongs to someone else")
	}
	return event, nil
}

// apply validates req and copies it onto event.
func (s *ScheduleEventService) apply(ctx context.Context, actor *models.JWTClaims, event *models.ScheduleEvent, req dto.ScheduleEventRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule event payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return appErrors.Validation("date must be YYYY-MM-DD")
	}

	start, err := parseClock(req.StartTime)
	if err != nil {
		return appErrors.Validation("start_time must be HH:MM or HH:MM:SS")
	}
	end, err := parseClock(req.EndTime)
	if err != nil {
		return appErrors.Validation("end_time must be HH:MM or HH:MM:SS")
	}
	if start != nil && end != nil && *end < *start {
		return appErrors.Validation("end_time must not be before start_time")
	}

	event.CourseID, event.CourseCode = nil, nil
	if req.CourseID != nil && *req.CourseID != "" {
		course, err := s.courses.FindByID(ctx, *req.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.NotFound("course not found")
			}
			return appErrors.Internal(err, "failed to load course")
		}
		if actor.Role == models.RoleTeacher && course.TeacherProfileID != actor.ProfileID {
			return appErrors.Clone(appErrors.ErrForbidden, "teachers can only schedule events for their own courses")
		}
		event.CourseID = &course.ID
		event.CourseCode = &course.Code
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Date = date
	event.StartTime = start
	event.EndTime = end
	event.Location = req.Location
	event.Public = req.Public
	if req.Active != nil {
		event.Active = *req.Active
	}
	if req.Notify != nil {
		event.Notify = *req.Notify
	}
	return nil
}

func (s *ScheduleEventService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseClock normalises HH:MM and HH:MM:SS to HH:MM:SS.
func parseClock(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			clock := t.Format("15:04:05")
			return &clock, nil
		}
	}
	return nil, errors.New("invalid clock")
}
