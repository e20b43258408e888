package models

import (
	"time"
	"unicode/utf8"
)

// NotificationTitleMax is the column width of notifications.title in runes.
const NotificationTitleMax = 200

// Notification types written by the portal.
const (
	NotificationTypeInfo           = "info"
	NotificationTypeSchedule       = "schedule"
	NotificationTypeStudentMessage = "student_message"
	NotificationTypeStudentQuery   = "student_query"
	NotificationTypeCourseMessage  = "course_message"
	NotificationTypeAnnouncement   = "announcement"
)

// Notification belongs to exactly one recipient account. Only IsRead ever
// changes after creation.
type Notification struct {
	ID              string    `db:"id" json:"id"`
	AccountID       string    `db:"account_id" json:"account_id"`
	SenderAccountID *string   `db:"sender_account_id" json:"sender_account_id,omitempty"`
	Title           string    `db:"title" json:"title"`
	Message         string    `db:"message" json:"message"`
	Type            string    `db:"type" json:"type"`
	IsRead          bool      `db:"is_read" json:"is_read"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// NotificationDraft is the recipient-independent part of a notification.
type NotificationDraft struct {
	SenderAccountID *string
	Title           string
	Message         string
	Type            string
}

// For materialises the draft for one recipient.
func (d NotificationDraft) For(accountID string) *Notification {
	kind := d.Type
	if kind == "" {
		kind = NotificationTypeInfo
	}
	return &Notification{
		AccountID:       accountID,
		SenderAccountID: d.SenderAccountID,
		Title:           clipTitle(d.Title),
		Message:         d.Message,
		Type:            kind,
	}
}

// clipTitle keeps a title within NotificationTitleMax runes, ending it with
// an ellipsis when it had to be cut.
func clipTitle(title string) string {
	if utf8.RuneCountInString(title) <= NotificationTitleMax {
		return title
	}
	runes := []rune(title)
	return string(runes[:NotificationTitleMax-1]) + "…"
}

// NotificationCounts holds per-account totals.
type NotificationCounts struct {
	Total  int `db:"total" json:"total_count"`
	Unread int `db:"unread" json:"unread_count"`
}
