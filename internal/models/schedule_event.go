package models

import "time"

// ScheduleEvent is a dated event that may fan out notifications on create.
type ScheduleEvent struct {
	ID                 string    `db:"id" json:"id"`
	Title              string    `db:"title" json:"title"`
	Description        string    `db:"description" json:"description"`
	Date               time.Time `db:"date" json:"date"`
	StartTime          *string   `db:"start_time" json:"start_time,omitempty"`
	EndTime            *string   `db:"end_time" json:"end_time,omitempty"`
	Location           string    `db:"location" json:"location"`
	CourseID           *string   `db:"course_id" json:"course_id,omitempty"`
	CourseCode         *string   `db:"course_code" json:"course_code,omitempty"`
	CreatedByProfileID *string   `db:"created_by_profile_id" json:"created_by_profile_id,omitempty"`
	Public             bool      `db:"is_public" json:"is_public"`
	Active             bool      `db:"is_active" json:"is_active"`
	Notify             bool      `db:"notify" json:"notify"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// HasCourse reports whether the event is attached to a course.
func (e ScheduleEvent) HasCourse() bool {
	return e.CourseID != nil && *e.CourseID != ""
}
