package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// fakeNotificationStore keeps notifications in memory and mirrors the
// ordering and ownership rules of the SQL repository.
type fakeNotificationStore struct {
	mu       sync.Mutex
	items    []models.Notification
	failFor  map[string]bool
	panicFor map[string]bool
	listErr  error
	clock    time.Time
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{
		failFor:  map[string]bool{},
		panicFor: map[string]bool{},
		clock:    time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
}

func (f *fakeNotificationStore) Create(_ context.Context, n *models.Notification) error {
	if f.panicFor[n.AccountID] {
		panic("driver exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.AccountID] {
		return errors.New("insert or update on table violates foreign key constraint")
	}
	if utf8.RuneCountInString(n.Title) > models.NotificationTitleMax {
		return errors.New("value too long for type character varying(200)")
	}
	n.ID = uuid.NewString()
	n.IsRead = false
	f.clock = f.clock.Add(time.Second)
	n.CreatedAt = f.clock
	f.items = append(f.items, *n)
	return nil
}

func (f *fakeNotificationStore) forAccount(accountID string) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.items {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func limitNotifications(items []models.Notification, limit int) []models.Notification {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func (f *fakeNotificationStore) ListByAccount(_ context.Context, accountID string, limit int) ([]models.Notification, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return limitNotifications(f.forAccount(accountID), limit), nil
}

func countsOf(items []models.Notification) models.NotificationCounts {
	counts := models.NotificationCounts{Total: len(items)}
	for _, n := range items {
		if !n.IsRead {
			counts.Unread++
		}
	}
	return counts
}

func (f *fakeNotificationStore) Counts(_ context.Context, accountID string) (models.NotificationCounts, error) {
	return countsOf(f.forAccount(accountID)), nil
}

func (f *fakeNotificationStore) update(accountID, id string, fn func(*models.Notification) bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var affected int64
	for i := range f.items {
		n := &f.items[i]
		if n.AccountID == accountID && (id == "" || n.ID == id) && fn(n) {
			affected++
		}
	}
	return affected
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, accountID, id string) (int64, error) {
	return f.update(accountID, id, func(n *models.Notification) bool { n.IsRead = true; return true }), nil
}

func (f *fakeNotificationStore) MarkAllRead(_ context.Context, accountID string) (int64, error) {
	return f.update(accountID, "", func(n *models.Notification) bool {
		if n.IsRead {
			return false
		}
		n.IsRead = true
		return true
	}), nil
}

func (f *fakeNotificationStore) Delete(_ context.Context, accountID, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.items {
		if n.AccountID == accountID && n.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func titleMatches(title string, patterns []string) bool {
	lower := strings.ToLower(title)
	for _, p := range patterns {
		if strings.Contains(lower, strings.Trim(strings.ToLower(p), "%")) {
			return true
		}
	}
	return false
}

func (f *fakeNotificationStore) ListByTitlePatterns(_ context.Context, accountID string, patterns []string, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.forAccount(accountID) {
		if titleMatches(n.Title, patterns) {
			out = append(out, n)
		}
	}
	return limitNotifications(out, limit), nil
}

func (f *fakeNotificationStore) CountsByTitlePatterns(_ context.Context, accountID string, patterns []string) (models.NotificationCounts, error) {
	var out []models.Notification
	for _, n := range f.forAccount(accountID) {
		if titleMatches(n.Title, patterns) {
			out = append(out, n)
		}
	}
	return countsOf(out), nil
}

func (f *fakeNotificationStore) ListConversation(_ context.Context, accountID, otherAccountID string, limit int) ([]models.Notification, error) {
	f.mu.Lock()
	var out []models.Notification
	for _, n := range f.items {
		if n.SenderAccountID == nil {
			continue
		}
		sender := *n.SenderAccountID
		if (n.AccountID == accountID && sender == otherAccountID) || (n.AccountID == otherAccountID && sender == accountID) {
			out = append(out, n)
		}
	}
	f.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return limitNotifications(out, limit), nil
}

// fakeCourseRepo models courses, enrollments and teachers.
type fakeCourseRepo struct {
	courses     map[string]models.Course
	students    map[string][]string
	teachers    map[string]string
	enrolled    map[string][]models.EnrolledCourse
	studentsErr error
}

func (f *fakeCourseRepo) FindByID(_ context.Context, id string) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f *fakeCourseRepo) EnrolledStudentAccountIDs(_ context.Context, courseID string) ([]string, error) {
	if f.studentsErr != nil {
		return nil, f.studentsErr
	}
	return append([]string(nil), f.students[courseID]...), nil
}

func (f *fakeCourseRepo) TeacherAccountID(_ context.Context, courseID string) (string, error) {
	id, ok := f.teachers[courseID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return id, nil
}

func (f *fakeCourseRepo) ListEnrolled(_ context.Context, studentProfileID string) ([]models.EnrolledCourse, error) {
	return f.enrolled[studentProfileID], nil
}

// fakeAccountRepo serves members by role.
type fakeAccountRepo struct {
	members []models.Member
	err     error
}

func (f *fakeAccountRepo) AccountIDsByRoles(_ context.Context, roles []models.Role) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ids []string
	for _, m := range f.members {
		for _, r := range roles {
			if m.Role == r {
				ids = append(ids, m.AccountID)
			}
		}
	}
	return ids, nil
}

func (f *fakeAccountRepo) ListByRoles(_ context.Context, roles []models.Role) ([]models.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Member
	for _, m := range f.members {
		for _, r := range roles {
			if m.Role == r {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) FindByAccountID(_ context.Context, accountID string) (*models.Member, error) {
	for _, m := range f.members {
		if m.AccountID == accountID {
			m := m
			return &m, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccountRepo) FindByProfileID(_ context.Context, profileID string) (*models.Member, error) {
	for _, m := range f.members {
		if m.ProfileID == profileID {
			m := m
			return &m, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccountRepo) ExistingAccountIDs(_ context.Context, ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		for _, m := range f.members {
			if m.AccountID == id {
				out = append(out, id)
				break
			}
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }
