package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

func newTestBroadcaster() (*Broadcaster, *fakeCourseRepo, *fakeAccountRepo, *fakeNotificationStore) {
	courses := &fakeCourseRepo{
		students: map[string][]string{"c1": {"s1", "s2", "s1"}},
		teachers: map[string]string{"c1": "t1"},
	}
	accounts := &fakeAccountRepo{members: []models.Member{
		{AccountID: "s1", Role: models.RoleStudent},
		{AccountID: "s2", Role: models.RoleStudent},
		{AccountID: "t1", Role: models.RoleTeacher},
		{AccountID: "adm", Role: models.RoleAdmin},
		{AccountID: "fin", Role: models.RoleFinance},
	}}
	store := newFakeNotificationStore()
	return NewBroadcaster(courses, accounts, store, nil, nil), courses, accounts, store
}

func courseEvent() *models.ScheduleEvent {
	return &models.ScheduleEvent{
		ID: "e1", Title: "DS Midterm", Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime: strPtr("09:30"), CourseID: strPtr("c1"), CourseCode: strPtr("CS201"),
		Active: true, Notify: true,
	}
}

func TestBroadcasterCourseEventReachesStudentsAndTeacherOnce(t *testing.T) {
	b, _, _, store := newTestBroadcaster()

	notified := b.OnScheduleEventCreated(context.Background(), courseEvent())

	assert.Equal(t, 3, notified)
	for _, id := range []string{"s1", "s2", "t1"} {
		items := store.forAccount(id)
		require.Len(t, items, 1, id)
		assert.Equal(t, "📅 Schedule: DS Midterm", items[0].Title)
		assert.Equal(t, "DS Midterm on 2026-03-10 at 09:30:00 (CS201)", items[0].Message)
		assert.Equal(t, models.NotificationTypeSchedule, items[0].Type)
		assert.False(t, items[0].IsRead)
		assert.Nil(t, items[0].SenderAccountID)
	}
	assert.Empty(t, store.forAccount("adm"))
}

func TestBroadcasterPublicEventReachesStudentsAndTeachersOnly(t *testing.T) {
	b, _, _, store := newTestBroadcaster()
	event := &models.ScheduleEvent{ID: "e2", Title: "Sports Day", Date: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), Public: true, Active: true, Notify: true}

	notified := b.OnScheduleEventCreated(context.Background(), event)

	assert.Equal(t, 3, notified)
	assert.Empty(t, store.forAccount("adm"))
	assert.Empty(t, store.forAccount("fin"))
	assert.Equal(t, "Sports Day on 2026-04-01 (Public Event)", store.forAccount("s1")[0].Message)
}

func TestBroadcasterSkipsWhenFlagsOff(t *testing.T) {
	b, _, _, store := newTestBroadcaster()

	quiet := courseEvent()
	quiet.Notify = false
	assert.Zero(t, b.OnScheduleEventCreated(context.Background(), quiet))

	inactive := courseEvent()
	inactive.Active = false
	assert.Zero(t, b.OnScheduleEventCreated(context.Background(), inactive))

	private := &models.ScheduleEvent{ID: "e3", Title: "Staff sync", Active: true, Notify: true}
	assert.Zero(t, b.OnScheduleEventCreated(context.Background(), private))

	assert.Empty(t, store.items)
}

func TestBroadcasterContinuesPastFailures(t *testing.T) {
	b, _, _, store := newTestBroadcaster()
	store.failFor["s1"] = true
	store.panicFor["s2"] = true

	notified := b.OnScheduleEventCreated(context.Background(), courseEvent())

	assert.Equal(t, 1, notified)
	assert.Len(t, store.forAccount("t1"), 1)
}

func TestBroadcasterSwallowsAudienceErrors(t *testing.T) {
	b, courses, _, store := newTestBroadcaster()
	courses.studentsErr = errors.New("connection reset")

	assert.Zero(t, b.OnScheduleEventCreated(context.Background(), courseEvent()))
	assert.Empty(t, store.items)
}

func TestBroadcasterCourseWithoutTeacher(t *testing.T) {
	b, courses, _, _ := newTestBroadcaster()
	delete(courses.teachers, "c1")

	ids, err := b.Audience(context.Background(), courseEvent())
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
}

func TestBroadcasterDeliverReportsPerRecipient(t *testing.T) {
	b, _, _, store := newTestBroadcaster()
	store.failFor["gone"] = true

	report := b.Deliver(context.Background(), deliverySourceBroadcast, []string{"s1", "gone"}, models.NotificationDraft{Title: "Notice", Message: "Fees due"})

	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].OK)
	assert.NotEmpty(t, report.Results[0].NotificationID)
	assert.False(t, report.Results[1].OK)
	assert.Equal(t, "delivery failed", report.Results[1].Error)
	assert.Equal(t, models.NotificationTypeInfo, store.forAccount("s1")[0].Type)
}

func TestScheduleMessageKeepsSecondsAndOmitsMissingTime(t *testing.T) {
	event := courseEvent()
	event.StartTime = strPtr("14:05:30")
	_, body := ScheduleMessage(event)
	assert.Equal(t, "DS Midterm on 2026-03-10 at 14:05:30 (CS201)", body)

	event.StartTime = nil
	_, body = ScheduleMessage(event)
	assert.Equal(t, "DS Midterm on 2026-03-10 (CS201)", body)
}

func TestBroadcasterFinishesAfterCallerCancels(t *testing.T) {
	b, _, _, store := newTestBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	notified := b.OnScheduleEventCreated(ctx, courseEvent())

	assert.Equal(t, 3, notified)
	assert.Len(t, store.items, 3)
}

func TestBroadcasterDeliversMaximumLengthTitles(t *testing.T) {
	b, _, _, store := newTestBroadcaster()
	event := courseEvent()
	event.Title = strings.Repeat("T", models.NotificationTitleMax)

	notified := b.OnScheduleEventCreated(context.Background(), event)

	assert.Equal(t, 3, notified)
	title := store.forAccount("s1")[0].Title
	assert.Equal(t, models.NotificationTitleMax, utf8.RuneCountInString(title))
	assert.True(t, strings.HasPrefix(title, "📅 Schedule: TTT"))
}
