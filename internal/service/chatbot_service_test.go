package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type fakeStudyRepo struct {
	assignments   []models.PendingAssignment
	attendance    models.AttendanceSummary
	attendanceErr error
	materials     []models.StudyMaterial
	lastFrom      time.Time
	lastLimit     int
}

func (f *fakeStudyRepo) PendingAssignments(_ context.Context, _ string, from time.Time, limit int) ([]models.PendingAssignment, error) {
	f.lastFrom, f.lastLimit = from, limit
	return f.assignments, nil
}

func (f *fakeStudyRepo) AttendanceSummary(context.Context, string) (models.AttendanceSummary, error) {
	return f.attendance, f.attendanceErr
}

func (f *fakeStudyRepo) RecentMaterials(_ context.Context, _ string, limit int) ([]models.StudyMaterial, error) {
	f.lastLimit = limit
	return f.materials, nil
}

type panickingDirectory struct{}

func (panickingDirectory) Teachers(context.Context, *models.JWTClaims) ([]dto.TeacherContact, error) {
	panic("nil map")
}

func (panickingDirectory) Admins(context.Context) ([]dto.AdminContact, error) {
	return nil, errors.New("connection reset")
}

type fixedPicker int

func (p fixedPicker) Intn(n int) int { return int(p) % n }

var chatNow = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

func newChatbot(study *fakeStudyRepo, directory contactDirectory, metrics *MetricsService) *ChatbotService {
	courses := &fakeCourseRepo{enrolled: map[string][]models.EnrolledCourse{
		"sp1": {{CourseID: "c1", Code: "CS201", Name: "Data Structures", Credits: 4, TeacherFirstName: "Anand", TeacherLastName: "Rao"}},
	}}
	svc := NewChatbotService(courses, study, directory, fixedPicker(1), metrics, nil, ChatbotConfig{})
	svc.now = func() time.Time { return chatNow }
	return svc
}

func TestClassify(t *testing.T) {
	cases := map[string]Intent{
		"hello":                     IntentGreeting,
		"Show my courses":           IntentCourses,
		"any pending assignment?":   IntentAssignments,
		"What's my attendance?":     IntentAttendance,
		"timetable please":          IntentSchedule,
		"notes for DS":              IntentMaterials,
		"I need support":            IntentHelp,
		"message teacher":           IntentContactTeacher,
		"report issue to principal": IntentContactAdmin,
		"thanks":                    IntentGratitude,
		"bye":                       IntentFarewell,
		"xyzzy plugh":               IntentUnknown,
		"   ":                       IntentUnknown,
		// earlier rules win on substring overlap
		"is this right":   IntentGreeting,
		"missed classes":  IntentCourses,
		"HELLO, teacher!": IntentGreeting,
	}
	for msg, want := range cases {
		assert.Equal(t, want, Classify(msg), msg)
	}
}

func TestRespondAttendanceGood(t *testing.T) {
	study := &fakeStudyRepo{attendance: models.AttendanceSummary{Present: 8, Total: 10}}
	svc := newChatbot(study, nil, nil)

	res, err := svc.Respond(context.Background(), studentActor, "What's my attendance?")
	require.NoError(t, err)
	reply := res.Response
	assert.Equal(t, "attendance", reply.Intent)
	assert.Equal(t, "good", reply.Status)
	require.NotNil(t, reply.Percentage)
	assert.InDelta(t, 80.0, *reply.Percentage, 0.001)
	assert.Contains(t, reply.Message, "**80.0%**")
	assert.Contains(t, reply.Message, "✗ Absent: **2** classes")
	assert.Equal(t, "What's my attendance?", res.UserMessage)
}

func TestRespondAttendanceTiers(t *testing.T) {
	cases := []struct {
		present int
		status  string
		text    string
	}{
		{7, "borderline", "below 75%"},
		{5, "poor", "below 60%"},
	}
	for _, tc := range cases {
		study := &fakeStudyRepo{attendance: models.AttendanceSummary{Present: tc.present, Total: 10}}
		res, err := newChatbot(study, nil, nil).Respond(context.Background(), studentActor, "attendance")
		require.NoError(t, err)
		assert.Equal(t, tc.status, res.Response.Status)
		assert.Contains(t, res.Response.Message, tc.text)
	}

	res, err := newChatbot(&fakeStudyRepo{}, nil, nil).Respond(context.Background(), studentActor, "attendance")
	require.NoError(t, err)
	assert.Equal(t, "📊 No attendance records yet.", res.Response.Message)
}

func TestRespondGreetingUsesCannedSet(t *testing.T) {
	svc := newChatbot(&fakeStudyRepo{}, nil, nil)

	res, err := svc.Respond(context.Background(), studentActor, "hello")
	require.NoError(t, err)
	assert.Contains(t, GreetingReplies, res.Response.Message)
	assert.Equal(t, GreetingReplies[1], res.Response.Message)
	assert.Equal(t, []string{"My Courses", "Assignments", "Attendance", "Help"}, res.Response.Suggestions)
}

func TestSeededPickerIsDeterministic(t *testing.T) {
	a, b := NewPicker(42), NewPicker(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Intn(3), b.Intn(3))
	}
}

func TestRespondUnknownEchoesInput(t *testing.T) {
	svc := newChatbot(&fakeStudyRepo{}, nil, nil)

	res, err := svc.Respond(context.Background(), studentActor, "xyzzy plugh")
	require.NoError(t, err)
	assert.Equal(t, "default", res.Response.Type)
	assert.Equal(t, string(IntentUnknown), res.Response.Intent)
	assert.Contains(t, res.Response.Message, "'xyzzy plugh'")
	assert.False(t, res.Response.Error)
}

func TestRespondAssignmentsUrgency(t *testing.T) {
	study := &fakeStudyRepo{assignments: []models.PendingAssignment{
		{ID: "a1", Title: "Linked lists", CourseName: "Data Structures", DueDate: time.Date(2026, 3, 3, 23, 59, 0, 0, time.UTC)},
		{ID: "a2", Title: "ER diagram", CourseName: "Databases", DueDate: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)},
		{ID: "a3", Title: "Essay", CourseName: "English", DueDate: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)},
	}}
	svc := newChatbot(study, nil, nil)

	res, err := svc.Respond(context.Background(), studentActor, "what is due?")
	require.NoError(t, err)
	reply := res.Response
	require.Len(t, reply.Assignments, 3)
	assert.Equal(t, "urgent", reply.Assignments[0].Urgency)
	assert.Equal(t, 1, reply.Assignments[0].DaysLeft)
	assert.Equal(t, "soon", reply.Assignments[1].Urgency)
	assert.Equal(t, "later", reply.Assignments[2].Urgency)
	assert.Equal(t, "2026-03-20", reply.Assignments[2].DueDate)
	require.NotNil(t, reply.Urgent)
	assert.True(t, *reply.Urgent)
	assert.Contains(t, reply.Message, "⏰ Due: Mar 03, 2026 (1 days left)")
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), study.lastFrom)
	assert.Equal(t, 10, study.lastLimit)
}

func TestRespondCoursesLists(t *testing.T) {
	res, err := newChatbot(&fakeStudyRepo{}, nil, nil).Respond(context.Background(), studentActor, "my courses")
	require.NoError(t, err)
	require.Len(t, res.Response.Courses, 1)
	assert.Equal(t, "Anand Rao", res.Response.Courses[0].TeacherName)
	assert.Contains(t, res.Response.Message, "**CS201** - Data Structures")
}

func TestRespondHandlerFailureBecomesErrorReply(t *testing.T) {
	study := &fakeStudyRepo{attendanceErr: errors.New("db down")}
	svc := newChatbot(study, panickingDirectory{}, nil)

	for _, msg := range []string{"attendance", "contact teacher", "contact admin"} {
		res, err := svc.Respond(context.Background(), studentActor, msg)
		require.NoError(t, err, msg)
		assert.True(t, res.Response.Error, msg)
		assert.Equal(t, "error", res.Response.Type, msg)
		assert.Equal(t, ErrorReplyMessage, res.Response.Message, msg)
	}
}

func TestRespondContactTeacherListsDirectory(t *testing.T) {
	f := newMessagingFixture()
	svc := newChatbot(&fakeStudyRepo{}, f.svc, nil)

	res, err := svc.Respond(context.Background(), studentActor, "contact teacher")
	require.NoError(t, err)
	reply := res.Response
	assert.Equal(t, "contact_teacher", reply.Action)
	require.Len(t, reply.Teachers, 2)
	assert.Equal(t, []string{"Anand Rao", "Lena Ortiz", "Back to Menu"}, reply.Suggestions)
	assert.Contains(t, reply.Message, "Data Structures, Databases")

	res, err = svc.Respond(context.Background(), studentActor, "contact admin")
	require.NoError(t, err)
	assert.Len(t, res.Response.Admins, 2)
	assert.Contains(t, res.Response.Message, "🔑 Superadmin **root**")
}

type emptyDirectory struct{}

func (emptyDirectory) Teachers(context.Context, *models.JWTClaims) ([]dto.TeacherContact, error) {
	return nil, nil
}

func (emptyDirectory) Admins(context.Context) ([]dto.AdminContact, error) { return nil, nil }

func TestRespondEmptyDirectoryKeepsListKeys(t *testing.T) {
	svc := newChatbot(&fakeStudyRepo{}, emptyDirectory{}, nil)

	res, err := svc.Respond(context.Background(), studentActor, "contact teacher")
	require.NoError(t, err)
	assert.Contains(t, res.Response.Message, "No teachers found")
	body, err := json.Marshal(res.Response)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"teachers":[]`)

	res, err = svc.Respond(context.Background(), studentActor, "contact admin")
	require.NoError(t, err)
	body, err = json.Marshal(res.Response)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"admins":[]`)
}

func TestRespondRejectsNonStudentsAndEmptyMessages(t *testing.T) {
	svc := newChatbot(&fakeStudyRepo{}, nil, nil)

	_, err := svc.Respond(context.Background(), teacherActor, "hello")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Respond(context.Background(), studentActor, "  \n ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRespondRecordsIntentMetric(t *testing.T) {
	metrics := NewMetricsService()
	svc := newChatbot(&fakeStudyRepo{}, nil, metrics)

	_, err := svc.Respond(context.Background(), studentActor, "bye")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `chatbot_intents_total{intent="farewell"} 1`)
}
