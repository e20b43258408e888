package dto

import "time"

// ChatMessageRequest is the inbound chat payload.
type ChatMessageRequest struct {
	Message string `json:"message"`
}

// BotReply is the structured assistant answer. Optional fields are only
// set by the intents that produce them.
type BotReply struct {
	Type        string    `json:"type"`
	Intent      string    `json:"intent"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Error       bool      `json:"error,omitempty"`

	Action      string           `json:"action,omitempty"`
	Status      string           `json:"status,omitempty"`
	Count       *int             `json:"count,omitempty"`
	Urgent      *bool            `json:"urgent,omitempty"`
	Percentage  *float64         `json:"percentage,omitempty"`
	Present     *int             `json:"present,omitempty"`
	Total       *int             `json:"total,omitempty"`
	Courses     []CourseItem     `json:"courses,omitempty"`
	Assignments []AssignmentItem `json:"assignments,omitempty"`
	Materials   []MaterialItem   `json:"materials,omitempty"`
	Teachers    []TeacherContact `json:"teachers"`
	Admins      []AdminContact   `json:"admins"`
}

// ChatResponse wraps a reply with the echoed input.
type ChatResponse struct {
	Response    BotReply  `json:"response"`
	UserMessage string    `json:"user_message"`
	Timestamp   time.Time `json:"timestamp"`
}

// CourseItem lists an enrolled course.
type CourseItem struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	TeacherName string `json:"teacher_name"`
	Credits     int    `json:"credits"`
}

// AssignmentItem lists a pending assignment.
type AssignmentItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Course   string `json:"course"`
	DueDate  string `json:"due_date"`
	DaysLeft int    `json:"days_left"`
	Urgency  string `json:"urgency"`
}

// MaterialItem lists a study material.
type MaterialItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Course     string    `json:"course"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// TeacherContact is an actionable contact target for a student.
type TeacherContact struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Courses   []ContactCourse `json:"courses"`
}

// ContactCourse is a course shared with a teacher contact.
type ContactCourse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// AdminContact is an actionable admin-tier contact target.
type AdminContact struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	RoleDisplay string `json:"role_display"`
}

// SendToTeacherRequest addresses a teacher by full name.
type SendToTeacherRequest struct {
	TeacherName string `json:"teacher_name"`
	Message     string `json:"message"`
}

// SendToTeacherResult reports a delivered teacher message.
type SendToTeacherResult struct {
	Message        string    `json:"message"`
	TeacherName    string    `json:"teacher_name"`
	NotificationID string    `json:"notification_id"`
	Notified       int       `json:"notified"`
	Timestamp      time.Time `json:"timestamp"`
	Suggestions    []string  `json:"suggestions"`
}

// SendToAdminRequest carries an optional category, defaulting to general.
type SendToAdminRequest struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

// SendToAdminResult reports how many admins were notified.
type SendToAdminResult struct {
	Message        string    `json:"message"`
	Category       string    `json:"category"`
	AdminsNotified int       `json:"admins_notified"`
	Failed         int       `json:"failed"`
	Timestamp      time.Time `json:"timestamp"`
	Suggestions    []string  `json:"suggestions"`
}

// ContactList is a directory listing.
type ContactList[T any] struct {
	Items     []T       `json:"items"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryMessage is one message exchanged with a contact.
type HistoryMessage struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	IsFromStudent bool      `json:"is_from_student"`
}

// MessageHistory is the conversation with a contact, newest first.
type MessageHistory struct {
	ContactType string           `json:"contact_type"`
	ContactID   string           `json:"contact_id"`
	ContactName string           `json:"contact_name"`
	Messages    []HistoryMessage `json:"messages"`
	Count       int              `json:"count"`
}
