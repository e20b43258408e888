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
)

// Directory listings are cached under this prefix and flushed together.
const (
	directoryCachePrefix  = "chatbot:directory:"
	directoryCachePattern = directoryCachePrefix + "*"
)

// Contact types accepted by History.
const (
	ContactTeacher = "teacher"
	ContactAdmin   = "admin"
)

type adminCategory struct {
	emoji string
	label string
}

var adminCategories = map[string]adminCategory{
	"technical":  {"🛠️", "Technical Issue"},
	"enrollment": {"📋", "Enrollment Query"},
	"fee":        {"💰", "Fee Issue"},
	"complaint":  {"⚠️", "Complaint"},
	"general":    {"💬", "General Query"},
}

// resolveCategory lower-cases the category and falls back to general.
func resolveCategory(raw string) (string, adminCategory) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if c, ok := adminCategories[name]; ok {
		return name, c
	}
	return "general", adminCategories["general"]
}

type messagingAccountRepository interface {
	ListByRoles(ctx context.Context, roles []models.Role) ([]models.Member, error)
	AccountIDsByRoles(ctx context.Context, roles []models.Role) ([]string, error)
	FindByProfileID(ctx context.Context, profileID string) (*models.Member, error)
}

type conversationRepository interface {
	ListConversation(ctx context.Context, accountID, otherAccountID string, limit int) ([]models.Notification, error)
}

// MessagingConfig tunes directory caching and history size.
type MessagingConfig struct {
	DirectoryTTL time.Duration
	HistoryLimit int
}

// MessagingService lets students reach their teachers and the admin team.
type MessagingService struct {
	courses       chatCourseRepository
	accounts      messagingAccountRepository
	conversations conversationRepository
	deliverer     notificationDeliverer
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           MessagingConfig
	now           func() time.Time
}

// NewMessagingService constructs the service.
func NewMessagingService(courses chatCourseRepository, accounts messagingAccountRepository, conversations conversationRepository, deliverer notificationDeliverer, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg MessagingConfig) *MessagingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	return &MessagingService{
		courses:       courses,
		accounts:      accounts,
		conversations: conversations,
		deliverer:     deliverer,
		cache:         cache,
		validator:     validate,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}
}

func requireStudent(actor *models.JWTClaims) error {
	if !actor.Role.Can(models.CapChat) {
		return appErrors.Clone(appErrors.ErrForbidden, "messaging is available to students only")
	}
	return nil
}

// SendToTeacher delivers a message to one of the student's course teachers,
// matched by case-insensitive full name.
func (s *MessagingService) SendToTeacher(ctx context.Context, student *models.JWTClaims, req dto.SendToTeacherRequest) (*dto.SendToTeacherResult, error) {
	if err := requireStudent(student); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(req.Message)
	name := strings.TrimSpace(req.TeacherName)
	if message == "" {
		return nil, appErrors.Validation("message cannot be empty")
	}
	if name == "" {
		return nil, appErrors.Validation("teacher name required")
	}

	courses, err := s.courses.ListEnrolled(ctx, student.ProfileID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load enrolled courses")
	}
	var teacher *models.EnrolledCourse
	for i := range courses {
		if strings.EqualFold(courses[i].TeacherName(), name) {
			teacher = &courses[i]
			break
		}
	}
	if teacher == nil {
		return nil, appErrors.NotFound(fmt.Sprintf("teacher %q not found in your courses", name))
	}

	sender := student.AccountID
	report := s.deliverer.Deliver(ctx, deliverySourceTeacher, []string{teacher.TeacherAccountID}, models.NotificationDraft{
		SenderAccountID: &sender,
		Title:           "💬 New Message from " + student.FullName,
		Message:         message,
		Type:            models.NotificationTypeStudentMessage,
	})
	if report.Delivered == 0 {
		return nil, appErrors.Internal(errors.New("teacher notification not created"), "failed to send message")
	}

	teacherName := teacher.TeacherName()
	return &dto.SendToTeacherResult{
		Message:        fmt.Sprintf("✅ Message sent to %s successfully!", teacherName),
		TeacherName:    teacherName,
		NotificationID: report.Results[0].NotificationID,
		Notified:       report.Delivered,
		Timestamp:      s.now().UTC(),
		Suggestions:    []string{"Contact another teacher", "Back to Menu"},
	}, nil
}

// SendToAdmins delivers a categorised message to every admin-tier account.
// Delivery is best-effort; it fails only when nobody received it.
func (s *MessagingService) SendToAdmins(ctx context.Context, student *models.JWTClaims, req dto.SendToAdminRequest) (*dto.SendToAdminResult, error) {
	if err := requireStudent(student); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, appErrors.Validation("message cannot be empty")
	}
	category, info := resolveCategory(req.Category)

	admins, err := s.accounts.AccountIDsByRoles(ctx, models.AdminRoles)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load administrators")
	}
	if len(admins) == 0 {
		return nil, appErrors.NotFound("no administrators available, please try again later")
	}

	sender := student.AccountID
	report := s.deliverer.Deliver(ctx, deliverySourceAdmin, dedupe(admins), models.NotificationDraft{
		SenderAccountID: &sender,
		Title:           fmt.Sprintf("%s %s from %s", info.emoji, info.label, student.FullName),
		Message:         message,
		Type:            models.NotificationTypeStudentQuery,
	})
	if report.Delivered == 0 {
		return nil, appErrors.Internal(errors.New("no admin notification created"), "failed to send message")
	}

	return &dto.SendToAdminResult{
		Message:        fmt.Sprintf("%s Your message has been sent to %d administrator(s)!", info.emoji, report.Delivered),
		Category:       category,
		AdminsNotified: report.Delivered,
		Failed:         report.Failed,
		Timestamp:      s.now().UTC(),
		Suggestions:    []string{"Contact teacher", "Back to Menu"},
	}, nil
}

// Teachers lists the distinct teachers of the student's courses in course
// order, each with the courses they share with the student.
func (s *MessagingService) Teachers(ctx context.Context, student *models.JWTClaims) ([]dto.TeacherContact, error) {
	key := directoryCachePrefix + "teachers:" + student.ProfileID
	var cached []dto.TeacherContact
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	courses, err := s.courses.ListEnrolled(ctx, student.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	index := make(map[string]int)
	teachers := make([]dto.TeacherContact, 0)
	for _, c := range courses {
		i, ok := index[c.TeacherProfileID]
		if !ok {
			i = len(teachers)
			index[c.TeacherProfileID] = i
			teachers = append(teachers, dto.TeacherContact{
				ID:        c.TeacherProfileID,
				AccountID: c.TeacherAccountID,
				Name:      c.TeacherName(),
				Email:     c.TeacherEmail,
				Courses:   []dto.ContactCourse{},
			})
		}
		teachers[i].Courses = append(teachers[i].Courses, dto.ContactCourse{ID: c.CourseID, Code: c.Code, Name: c.Name})
	}

	_ = s.cache.Set(ctx, key, teachers, s.cfg.DirectoryTTL)
	return teachers, nil
}

// Admins lists every admin-tier account.
func (s *MessagingService) Admins(ctx context.Context) ([]dto.AdminContact, error) {
	key := directoryCachePrefix + "admins"
	var cached []dto.AdminContact
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	members, err := s.accounts.ListByRoles(ctx, models.AdminRoles)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	admins := make([]dto.AdminContact, 0, len(members))
	for _, m := range members {
		display := "Administrator"
		if m.Role == models.RoleSuperAdmin {
			display = "Superadmin"
		}
		admins = append(admins, dto.AdminContact{
			ID:          m.ProfileID,
			AccountID:   m.AccountID,
			Name:        m.DisplayName(),
			Email:       m.Email,
			Role:        string(m.Role),
			RoleDisplay: display,
		})
	}

	_ = s.cache.Set(ctx, key, admins, s.cfg.DirectoryTTL)
	return admins, nil
}

// TeacherList wraps Teachers for the directory endpoint.
func (s *MessagingService) TeacherList(ctx context.Context, student *models.JWTClaims) (*dto.ContactList[dto.TeacherContact], error) {
	if err := requireStudent(student); err != nil {
		return nil, err
	}
	teachers, err := s.Teachers(ctx, student)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load teachers")
	}
	return &dto.ContactList[dto.TeacherContact]{Items: teachers, Count: len(teachers), Timestamp: s.now().UTC()}, nil
}

// AdminList wraps Admins for the directory endpoint.
func (s *MessagingService) AdminList(ctx context.Context, student *models.JWTClaims) (*dto.ContactList[dto.AdminContact], error) {
	if err := requireStudent(student); err != nil {
		return nil, err
	}
	admins, err := s.Admins(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load administrators")
	}
	return &dto.ContactList[dto.AdminContact]{Items: admins, Count: len(admins), Timestamp: s.now().UTC()}, nil
}

// History returns the latest messages exchanged between the student and a
// teacher or admin contact, identified by profile id.
func (s *MessagingService) History(ctx context.Context, student *models.JWTClaims, contactType, contactID string) (*dto.MessageHistory, error) {
	if err := requireStudent(student); err != nil {
		return nil, err
	}
	contactType = strings.ToLower(strings.TrimSpace(contactType))
	if contactType == "" {
		contactType = ContactTeacher
	}
	if contactType != ContactTeacher && contactType != ContactAdmin {
		return nil, appErrors.Validation("invalid contact type")
	}
	if contactID == "" {
		return nil, appErrors.Validation("contact_id required")
	}
	if err := s.validator.Var(contactID, "uuid"); err != nil {
		return nil, appErrors.Validation("contact_id must be a uuid")
	}

	contact, err := s.accounts.FindByProfileID(ctx, contactID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load contact")
	}
	if contact == nil || !contactMatches(contactType, contact.Role) {
		return nil, appErrors.NotFound(contactType + " not found")
	}

	items, err := s.conversations.ListConversation(ctx, student.AccountID, contact.AccountID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load message history")
	}
	messages := make([]dto.HistoryMessage, 0, len(items))
	for _, n := range items {
		messages = append(messages, dto.HistoryMessage{
			ID:            n.ID,
			Title:         n.Title,
			Message:       n.Message,
			Timestamp:     n.CreatedAt,
			IsFromStudent: n.SenderAccountID != nil && *n.SenderAccountID == student.AccountID,
		})
	}
	return &dto.MessageHistory{
		ContactType: contactType,
		ContactID:   contactID,
		ContactName: contact.DisplayName(),
		Messages:    messages,
		Count:       len(messages),
	}, nil
}

func contactMatches(contactType string, role models.Role) bool {
	if contactType == ContactAdmin {
		return role.IsAdminTier()
	}
	return role == models.RoleTeacher
}
