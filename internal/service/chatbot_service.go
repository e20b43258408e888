package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

// Intent is the label a chat message is routed by.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentCourses        Intent = "courses"
	IntentAssignments    Intent = "assignments"
	IntentAttendance     Intent = "attendance"
	IntentSchedule       Intent = "schedule"
	IntentMaterials      Intent = "materials"
	IntentHelp           Intent = "help"
	IntentContactTeacher Intent = "contact_teacher"
	IntentContactAdmin   Intent = "contact_admin"
	IntentGratitude      Intent = "gratitude"
	IntentFarewell       Intent = "farewell"
	IntentUnknown        Intent = "unknown"
)

type intentRule struct {
	intent   Intent
	keywords []string
}

// intentRules is evaluated top to bottom and the first keyword contained in
// the message wins, so the order is a priority list. Overlaps such as "hi"
// inside "this" or "class" inside "classes" resolve to the earlier intent.
var intentRules = []intentRule{
	{IntentGreeting, []string{"hello", "hi", "hey", "greetings", "good morning", "good afternoon", "good evening"}},
	{IntentCourses, []string{"course", "subject", "class", "enrolled", "credits", "semester"}},
	{IntentAssignments, []string{"assignment", "task", "work", "project", "deadline", "due", "submit"}},
	{IntentAttendance, []string{"attendance", "present", "absent", "classes", "attendance percentage", "bunk"}},
	{IntentSchedule, []string{"schedule", "timetable", "when", "time", "class timing", "exam"}},
	{IntentMaterials, []string{"material", "notes", "resources", "document", "pdf", "download"}},
	{IntentHelp, []string{"help", "support", "how", "what can", "capabilities", "features", "assistance"}},
	{IntentContactTeacher, []string{"contact teacher", "message teacher", "ask teacher", "teacher", "professor", "instructor"}},
	{IntentContactAdmin, []string{"admin", "administrator", "principal", "contact admin", "report issue"}},
	{IntentGratitude, []string{"thanks", "thank you", "appreciate", "great", "excellent", "good job"}},
	{IntentFarewell, []string{"bye", "goodbye", "see you", "later", "exit", "close"}},
}

// Classify maps a message onto the first matching intent.
func Classify(message string) Intent {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return IntentUnknown
	}
	for _, rule := range intentRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.intent
			}
		}
	}
	return IntentUnknown
}

// Canned reply variants.
var (
	GreetingReplies = []string{
		"👋 Hello! I'm your AI Study Assistant. How can I help you today?",
		"Hi there! 📚 What do you need help with?",
		"Welcome! I'm here to assist with courses, assignments, and more. What's on your mind?",
	}
	HelpReplies = []string{
		"I can help you with:\n📚 Courses & Enrollment\n✅ Assignments & Deadlines\n📊 Attendance Records\n📅 Class Schedule\n📖 Study Materials\n\nJust ask about any of these!",
		"You can ask me about:\n• Your enrolled courses\n• Pending assignments\n• Your attendance\n• Class timetable\n• Available materials\n• Connect with teachers/admins",
	}
	GratitudeReplies = []string{
		"😊 You're welcome! Happy to help!",
		"Glad I could assist! Is there anything else?",
		"Thanks! Let me know if you need help with anything else. 📚",
	}
	FarewellReplies = []string{
		"👋 Goodbye! Good luck with your studies!",
		"See you later! Keep up the great work! 🌟",
		"Bye! Don't hesitate to reach out if you need help. 📚",
	}
)

// ErrorReplyMessage is the text of every degraded reply.
const ErrorReplyMessage = "❌ An error occurred. Please try again."

// weeklyTimetable is a fixed placeholder; it is not read from schedule events.
const weeklyTimetable = "📅 **Your Class Schedule:**\n\n" +
	"Mon: 9:00-10:30 - Data Structures (Dr. Asha)\n" +
	"Tue: 11:00-12:30 - Operating Systems (Mr. Ravi)\n" +
	"Wed: 2:00-3:30 - Database Systems (Ms. Nisha)\n" +
	"Thu: 10:00-11:30 - Web Development (Mr. Arjun)\n" +
	"Fri: 1:00-2:30 - Project Lab (Prof. Sharma)"

var menuSuggestions = []string{"My Courses", "Assignments", "Attendance", "Help"}

// Picker chooses among canned reply variants.
type Picker interface {
	Intn(n int) int
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPicker returns a goroutine-safe picker. A zero seed uses the clock.
func NewPicker(seed int64) Picker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(n)
}

type chatCourseRepository interface {
	ListEnrolled(ctx context.Context, studentProfileID string) ([]models.EnrolledCourse, error)
}

type chatStudyRepository interface {
	PendingAssignments(ctx context.Context, studentProfileID string, from time.Time, limit int) ([]models.PendingAssignment, error)
	AttendanceSummary(ctx context.Context, studentProfileID string) (models.AttendanceSummary, error)
	RecentMaterials(ctx context.Context, studentProfileID string, limit int) ([]models.StudyMaterial, error)
}

type contactDirectory interface {
	Teachers(ctx context.Context, student *models.JWTClaims) ([]dto.TeacherContact, error)
	Admins(ctx context.Context) ([]dto.AdminContact, error)
}

// ChatbotConfig caps listing intents.
type ChatbotConfig struct {
	AssignmentLimit int
	MaterialLimit   int
}

// ChatbotService answers student chat messages. It keeps no state between
// calls.
type ChatbotService struct {
	courses   chatCourseRepository
	study     chatStudyRepository
	directory contactDirectory
	picker    Picker
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ChatbotConfig
	now       func() time.Time
}

// NewChatbotService constructs the router.
func NewChatbotService(courses chatCourseRepository, study chatStudyRepository, directory contactDirectory, picker Picker, metrics *MetricsService, logger *zap.Logger, cfg ChatbotConfig) *ChatbotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if picker == nil {
		picker = NewPicker(0)
	}
	if cfg.AssignmentLimit <= 0 {
		cfg.AssignmentLimit = 10
	}
	if cfg.MaterialLimit <= 0 {
		cfg.MaterialLimit = 5
	}
	return &ChatbotService{
		courses:   courses,
		study:     study,
		directory: directory,
		picker:    picker,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Respond classifies the message and answers it. Only access and
// validation problems are returned as errors; handler failures become the
// error reply.
func (s *ChatbotService) Respond(ctx context.Context, student *models.JWTClaims, message string) (*dto.ChatResponse, error) {
	if !student.Role.Can(models.CapChat) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "chat is available to students only")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, appErrors.Validation("message cannot be empty")
	}

	intent := Classify(message)
	reply := s.dispatch(ctx, student, intent, message)
	s.metrics.RecordIntent(string(intent))

	return &dto.ChatResponse{Response: reply, UserMessage: message, Timestamp: s.now().UTC()}, nil
}

func (s *ChatbotService) dispatch(ctx context.Context, student *models.JWTClaims, intent Intent, message string) (reply dto.BotReply) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("chat handler panicked", zap.String("intent", string(intent)), zap.Any("panic", r))
			reply = s.errorReply(intent)
		}
	}()

	var err error
	switch intent {
	case IntentGreeting:
		reply = s.canned(intent, GreetingReplies)
		reply.Suggestions = menuSuggestions
	case IntentHelp, IntentGratitude, IntentFarewell:
		reply = s.canned(intent, cannedSets[intent])
	case IntentCourses:
		reply, err = s.coursesReply(ctx, student)
	case IntentAssignments:
		reply, err = s.assignmentsReply(ctx, student)
	case IntentAttendance:
		reply, err = s.attendanceReply(ctx, student)
	case IntentSchedule:
		reply = s.reply(intent, string(intent), weeklyTimetable)
		reply.Suggestions = []string{"Assignments", "Attendance", "Courses"}
	case IntentMaterials:
		reply, err = s.materialsReply(ctx, student)
	case IntentContactTeacher:
		reply, err = s.contactTeacherReply(ctx, student)
	case IntentContactAdmin:
		reply, err = s.contactAdminReply(ctx)
	default:
		reply = s.reply(IntentUnknown, "default", fmt.Sprintf("🤔 I understood you asked: '%s'\n\n"+
			"Try asking me about:\n• 📚 Your courses\n• ✅ Your assignments\n• 📊 Your attendance\n• 📅 Class schedule\n• 📖 Study materials\n\n"+
			"Or type 'help' for more options!", message))
		reply.Suggestions = menuSuggestions
	}
	if err != nil {
		s.logger.Warn("chat handler failed",
			zap.String("intent", string(intent)),
			zap.String("account_id", student.AccountID),
			zap.Error(err))
		return s.errorReply(intent)
	}
	return reply
}

var cannedSets = map[Intent][]string{
	IntentHelp:      HelpReplies,
	IntentGratitude: GratitudeReplies,
	IntentFarewell:  FarewellReplies,
}

func (s *ChatbotService) reply(intent Intent, kind, message string) dto.BotReply {
	return dto.BotReply{Type: kind, Intent: string(intent), Message: message, Timestamp: s.now().UTC()}
}

func (s *ChatbotService) canned(intent Intent, variants []string) dto.BotReply {
	return s.reply(intent, string(intent), variants[s.picker.Intn(len(variants))])
}

func (s *ChatbotService) errorReply(intent Intent) dto.BotReply {
	r := s.reply(intent, "error", ErrorReplyMessage)
	r.Error = true
	return r
}

func (s *ChatbotService) coursesReply(ctx context.Context, student *models.JWTClaims) (dto.BotReply, error) {
	courses, err := s.courses.ListEnrolled(ctx, student.ProfileID)
	if err != nil {
		return dto.BotReply{}, err
	}
	if len(courses) == 0 {
		return s.reply(IntentCourses, "courses", "📚 You are not enrolled in any courses yet."), nil
	}

	var b strings.Builder
	b.WriteString("📚 **Your Enrolled Courses:**\n\n")
	items := make([]dto.CourseItem, 0, len(courses))
	for _, c := range courses {
		fmt.Fprintf(&b, "• **%s** - %s\n  👨‍🏫 %s\n  ⭐ %d Credits\n\n", c.Code, c.Name, c.TeacherName(), c.Credits)
		items = append(items, dto.CourseItem{ID: c.CourseID, Code: c.Code, Name: c.Name, TeacherName: c.TeacherName(), Credits: c.Credits})
	}

	r := s.reply(IntentCourses, "courses", b.String())
	r.Courses = items
	r.Count = intPtr(len(items))
	r.Suggestions = []string{"Assignments", "Attendance", "Materials"}
	return r, nil
}

func (s *ChatbotService) assignmentsReply(ctx context.Context, student *models.JWTClaims) (dto.BotReply, error) {
	today := s.today()
	pending, err := s.study.PendingAssignments(ctx, student.ProfileID, today, s.cfg.AssignmentLimit)
	if err != nil {
		return dto.BotReply{}, err
	}
	if len(pending) == 0 {
		return s.reply(IntentAssignments, "assignments", "✅ Great! You have no pending assignments."), nil
	}

	var b strings.Builder
	b.WriteString("✅ **Your Pending Assignments:**\n\n")
	items := make([]dto.AssignmentItem, 0, len(pending))
	urgent := false
	for _, a := range pending {
		due := dateOnly(a.DueDate)
		daysLeft := int(due.Sub(today).Hours() / 24)
		marker, urgency := urgencyOf(daysLeft)
		if urgency == "urgent" {
			urgent = true
		}
		fmt.Fprintf(&b, "%s **%s**\n   📚 %s\n   ⏰ Due: %s (%d days left)\n\n", marker, a.Title, a.CourseName, due.Format("Jan 02, 2006"), daysLeft)
		items = append(items, dto.AssignmentItem{
			ID:       a.ID,
			Title:    a.Title,
			Course:   a.CourseName,
			DueDate:  due.Format("2006-01-02"),
			DaysLeft: daysLeft,
			Urgency:  urgency,
		})
	}

	r := s.reply(IntentAssignments, "assignments", b.String())
	r.Assignments = items
	r.Count = intPtr(len(items))
	r.Urgent = &urgent
	r.Suggestions = []string{"Courses", "Materials", "Help"}
	return r, nil
}

func urgencyOf(daysLeft int) (string, string) {
	switch {
	case daysLeft <= 2:
		return "🔴", "urgent"
	case daysLeft <= 7:
		return "🟡", "soon"
	default:
		return "🟢", "later"
	}
}

func (s *ChatbotService) attendanceReply(ctx context.Context, student *models.JWTClaims) (dto.BotReply, error) {
	summary, err := s.study.AttendanceSummary(ctx, student.ProfileID)
	if err != nil {
		return dto.BotReply{}, err
	}
	if summary.Total == 0 {
		return s.reply(IntentAttendance, "attendance", "📊 No attendance records yet."), nil
	}

	pct := summary.Percentage()
	marker, status, tone := "🟢", "good", "✨ Great attendance! Keep it up!"
	switch {
	case pct < 60:
		marker, status, tone = "🔴", "poor", "🚨 Your attendance is below 60%. Please talk to your teachers and attend every class you can!"
	case pct < 75:
		marker, status, tone = "🟡", "borderline", "⚠️ Your attendance is below 75%. Try to attend more classes!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **Your Attendance:**\n\n", marker)
	fmt.Fprintf(&b, "📊 Overall: **%.1f%%**\n", pct)
	fmt.Fprintf(&b, "✓ Present: **%d** classes\n", summary.Present)
	fmt.Fprintf(&b, "✗ Absent: **%d** classes\n", summary.Absent())
	fmt.Fprintf(&b, "📈 Total: **%d** classes\n\n", summary.Total)
	b.WriteString(tone)

	r := s.reply(IntentAttendance, "attendance", b.String())
	r.Status = status
	r.Percentage = &pct
	r.Present = intPtr(summary.Present)
	r.Total = intPtr(summary.Total)
	return r, nil
}

func (s *ChatbotService) materialsReply(ctx context.Context, student *models.JWTClaims) (dto.BotReply, error) {
	materials, err := s.study.RecentMaterials(ctx, student.ProfileID, s.cfg.MaterialLimit)
	if err != nil {
		return dto.BotReply{}, err
	}
	if len(materials) == 0 {
		return s.reply(IntentMaterials, "materials", "📖 No study materials available yet."), nil
	}

	var b strings.Builder
	b.WriteString("📖 **Latest Study Materials:**\n\n")
	items := make([]dto.MaterialItem, 0, len(materials))
	for _, m := range materials {
		fmt.Fprintf(&b, "📄 **%s**\n   📚 %s\n   📅 %s\n\n", m.Title, m.CourseName, m.UploadedAt.Format("Jan 02, 2006"))
		items = append(items, dto.MaterialItem{ID: m.ID, Title: m.Title, Course: m.CourseName, UploadedAt: m.UploadedAt})
	}

	r := s.reply(IntentMaterials, "materials", b.String())
	r.Materials = items
	r.Count = intPtr(len(items))
	r.Suggestions = []string{"Courses", "Assignments", "Help"}
	return r, nil
}

func (s *ChatbotService) contactTeacherReply(ctx context.Context, student *models.JWTClaims) (dto.BotReply, error) {
	teachers, err := s.directory.Teachers(ctx, student)
	if err != nil {
		return dto.BotReply{}, err
	}
	if len(teachers) == 0 {
		r := s.reply(IntentContactTeacher, "contact", "📧 **Contact Your Teachers:**\n\n❌ No teachers found in your enrolled courses.")
		r.Action = string(IntentContactTeacher)
		r.Teachers = []dto.TeacherContact{}
		r.Suggestions = []string{"Back to Menu"}
		return r, nil
	}

	var b strings.Builder
	b.WriteString("📧 **Contact Your Teachers:**\n\n✨ Select a teacher to send a direct message:\n\n")
	suggestions := make([]string, 0, len(teachers)+1)
	for _, t := range teachers {
		names := make([]string, 0, 2)
		for i, c := range t.Courses {
			if i == 2 {
				break
			}
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "👨‍🏫 **%s** 📧 (%s)\n   📚 %s\n\n", t.Name, t.Email, strings.Join(names, ", "))
		suggestions = append(suggestions, t.Name)
	}
	b.WriteString("💬 Click on a teacher name or type their name to send a message.")

	r := s.reply(IntentContactTeacher, "contact", b.String())
	r.Action = string(IntentContactTeacher)
	r.Teachers = teachers
	r.Suggestions = append(suggestions, "Back to Menu")
	return r, nil
}

func (s *ChatbotService) contactAdminReply(ctx context.Context) (dto.BotReply, error) {
	admins, err := s.directory.Admins(ctx)
	if err != nil {
		return dto.BotReply{}, err
	}
	if len(admins) == 0 {
		r := s.reply(IntentContactAdmin, "contact", "👨‍💼 **Contact Administration:**\n\n❌ No admins available.")
		r.Action = string(IntentContactAdmin)
		r.Admins = []dto.AdminContact{}
		r.Suggestions = []string{"Back to Menu"}
		return r, nil
	}

	var b strings.Builder
	b.WriteString("👨‍💼 **Contact Administration:**\n\n✨ Our admin team is here to help:\n\n")
	suggestions := make([]string, 0, len(admins)+4)
	for _, a := range admins {
		badge := "👤 Admin"
		if a.Role == string(models.RoleSuperAdmin) {
			badge = "🔑 Superadmin"
		}
		fmt.Fprintf(&b, "%s **%s** 📧 (%s)\n", badge, a.Name, a.Email)
		suggestions = append(suggestions, a.Name)
	}
	b.WriteString("\n💬 Select an admin or type your message directly.\n")
	b.WriteString("📋 **Common Issues:** Technical problems, Enrollment, Fee, Complaint, General Query\n")

	r := s.reply(IntentContactAdmin, "contact", b.String())
	r.Action = string(IntentContactAdmin)
	r.Admins = admins
	r.Suggestions = append(suggestions, "General Query", "Technical Issue", "Complaint", "Back to Menu")
	return r, nil
}

func (s *ChatbotService) today() time.Time {
	return dateOnly(s.now())
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }
