package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

const (
	studentA = "0b6f3a52-6e1d-4f0a-9f3e-5a1c2b3d4e5f"
	studentB = "1c7e4b63-7f2e-4a1b-8a4f-6b2d3c4e5f60"
	ghost    = "2d8f5c74-8a3f-4b2c-9b5a-7c3e4d5f6071"
)

func newTestNotificationService() (*NotificationService, *fakeNotificationStore, *fakeCourseRepo) {
	store := newFakeNotificationStore()
	courses := &fakeCourseRepo{
		courses:  map[string]models.Course{"c1": {ID: "c1", Code: "CS201", TeacherProfileID: "tp1"}},
		students: map[string][]string{"c1": {studentA, studentB}},
	}
	accounts := &fakeAccountRepo{members: []models.Member{
		{AccountID: studentA, Role: models.RoleStudent},
		{AccountID: studentB, Role: models.RoleStudent},
	}}
	broadcaster := NewBroadcaster(courses, accounts, store, nil, nil)
	svc := NewNotificationService(store, broadcaster, accounts, courses, nil, nil, nil, NotificationConfig{ListLimit: 2, ListMax: 3, BroadcastLimit: 20})
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return svc, store, courses
}

func seed(store *fakeNotificationStore, accountID, title string) string {
	n := &models.Notification{AccountID: accountID, Title: title, Message: "m", Type: models.NotificationTypeInfo}
	_ = store.Create(context.Background(), n)
	return n.ID
}

func TestNotificationListNewestFirstWithCounts(t *testing.T) {
	svc, store, _ := newTestNotificationService()
	seed(store, "a1", "first")
	seed(store, "a1", "second")
	third := seed(store, "a1", "third")
	seed(store, "other", "not mine")
	require.NoError(t, svc.MarkRead(context.Background(), "a1", third))

	list, err := svc.List(context.Background(), "a1", 0)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, "third", list.Notifications[0].Title)
	assert.Equal(t, "second", list.Notifications[1].Title)
	assert.Equal(t, 3, list.TotalCount)
	assert.Equal(t, 2, list.UnreadCount)
	_, err = time.Parse(time.RFC3339, list.Notifications[0].CreatedAt)
	assert.NoError(t, err)

	capped, err := svc.List(context.Background(), "a1", 500)
	require.NoError(t, err)
	assert.Len(t, capped.Notifications, 3)
}

func TestNotificationMarkReadOwnership(t *testing.T) {
	svc, store, _ := newTestNotificationService()
	id := seed(store, "a1", "hello")
	otherID := seed(store, "a1", "still unread")

	count, err := svc.UnreadCount(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, count.UnreadCount)

	assert.ErrorIs(t, svc.MarkRead(context.Background(), "intruder", id), appErrors.ErrNotFound)
	require.NoError(t, svc.MarkRead(context.Background(), "a1", id))
	require.NoError(t, svc.MarkRead(context.Background(), "a1", id))

	count, err = svc.UnreadCount(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, count.UnreadCount)

	for _, n := range store.forAccount("a1") {
		switch n.ID {
		case id:
			assert.True(t, n.IsRead)
		case otherID:
			assert.False(t, n.IsRead)
		}
	}
}

func TestNotificationMarkAllReadAndDelete(t *testing.T) {
	svc, store, _ := newTestNotificationService()
	id := seed(store, "a1", "one")
	seed(store, "a1", "two")

	res, err := svc.MarkAllRead(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Updated)

	res, err = svc.MarkAllRead(context.Background(), "a1")
	require.NoError(t, err)
	assert.Zero(t, res.Updated)

	assert.ErrorIs(t, svc.Delete(context.Background(), "intruder", id), appErrors.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), "a1", id))
	assert.Len(t, store.forAccount("a1"), 1)
}

func TestNotificationScheduleBroadcasts(t *testing.T) {
	svc, store, _ := newTestNotificationService()
	seed(store, "t1", "📅 Schedule: Midterm")
	seed(store, "t1", "Fee reminder")
	seed(store, "t1", "Sports EVENT moved")

	list, err := svc.ScheduleBroadcasts(context.Background(), teacherActor, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, 2, list.UnreadCount)
	assert.Equal(t, "Sports EVENT moved", list.Notifications[0].Title)

	_, err = svc.ScheduleBroadcasts(context.Background(), studentActor, 0)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestNotificationExportScheduleBroadcastsCSV(t *testing.T) {
	svc, store, _ := newTestNotificationService()
	seed(store, "t1", "📅 Schedule: Midterm")

	file, err := svc.ExportScheduleBroadcasts(context.Background(), teacherActor, "CSV")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "schedule-broadcasts-20260302-090000.csv", file.Filename)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Created At", "Title", "Message", "Read"}, records[0])
	assert.Equal(t, "📅 Schedule: Midterm", records[1][1])

	_, err = svc.ExportScheduleBroadcasts(context.Background(), teacherActor, "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestNotificationExportScheduleBroadcastsPDF(t *testing.T) {
	svc, store, _ := newTestNotificationService()
	seed(store, "t1", "📅 Schedule: Midterm")

	file, err := svc.ExportScheduleBroadcasts(context.Background(), teacherActor, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestNotificationBroadcastReportsUnknownAccounts(t *testing.T) {
	svc, store, _ := newTestNotificationService()

	report, err := svc.Broadcast(context.Background(), adminActor, dto.BroadcastRequest{
		AccountIDs: []string{studentA, studentA, ghost},
		Title:      "Exam fees",
		Message:    "Pay by Friday",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 2)
	assert.Equal(t, ghost, report.Results[1].AccountID)

	got := store.forAccount(studentA)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationTypeAnnouncement, got[0].Type)
	assert.Equal(t, "adm", *got[0].SenderAccountID)
}

func TestNotificationBroadcastGuards(t *testing.T) {
	svc, _, _ := newTestNotificationService()

	_, err := svc.Broadcast(context.Background(), teacherActor, dto.BroadcastRequest{AccountIDs: []string{studentA}, Title: "x", Message: "y"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Broadcast(context.Background(), adminActor, dto.BroadcastRequest{AccountIDs: []string{"not-a-uuid"}, Title: "x", Message: "y"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Broadcast(context.Background(), adminActor, dto.BroadcastRequest{AccountIDs: []string{studentA}, Title: "x", Message: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestNotificationMessageCourse(t *testing.T) {
	svc, store, _ := newTestNotificationService()
	teacher := &models.JWTClaims{AccountID: "t1", ProfileID: "tp1", Role: models.RoleTeacher, FullName: "Asha Rao"}

	report, err := svc.MessageCourse(context.Background(), teacher, "c1", dto.CourseMessageRequest{Message: "Lab moved to room 4"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Delivered)
	got := store.forAccount(studentB)
	require.Len(t, got, 1)
	assert.Equal(t, "Message from Asha Rao (CS201)", got[0].Title)
	assert.Equal(t, models.NotificationTypeCourseMessage, got[0].Type)

	_, err = svc.MessageCourse(context.Background(), otherTeacher, "c1", dto.CourseMessageRequest{Message: "hi"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.MessageCourse(context.Background(), teacher, "missing", dto.CourseMessageRequest{Message: "hi"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.MessageCourse(context.Background(), teacher, "c1", dto.CourseMessageRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
