package models

import "time"

// Course is owned by exactly one teacher profile.
type Course struct {
	ID               string `db:"id" json:"id"`
	Code             string `db:"code" json:"code"`
	Name             string `db:"name" json:"name"`
	TeacherProfileID string `db:"teacher_profile_id" json:"teacher_profile_id"`
	Credits          int    `db:"credits" json:"credits"`
	Semester         int    `db:"semester" json:"semester"`
}

// EnrolledCourse is a course seen from a student's enrollment, with its
// teacher's contact details.
type EnrolledCourse struct {
	CourseID         string `db:"course_id" json:"course_id"`
	Code             string `db:"code" json:"code"`
	Name             string `db:"name" json:"name"`
	Credits          int    `db:"credits" json:"credits"`
	Semester         int    `db:"semester" json:"semester"`
	TeacherProfileID string `db:"teacher_profile_id" json:"teacher_profile_id"`
	TeacherAccountID string `db:"teacher_account_id" json:"teacher_account_id"`
	TeacherUsername  string `db:"teacher_username" json:"-"`
	TeacherFirstName string `db:"teacher_first_name" json:"-"`
	TeacherLastName  string `db:"teacher_last_name" json:"-"`
	TeacherEmail     string `db:"teacher_email" json:"teacher_email"`
}

// TeacherName is the display name of the course teacher.
func (c EnrolledCourse) TeacherName() string {
	return DisplayName(c.TeacherFirstName, c.TeacherLastName, c.TeacherUsername)
}

// PendingAssignment is an assignment still open for a student.
type PendingAssignment struct {
	ID         string    `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	CourseCode string    `db:"course_code" json:"course_code"`
	CourseName string    `db:"course_name" json:"course_name"`
	DueDate    time.Time `db:"due_date" json:"due_date"`
}

// AttendanceSummary aggregates a student's attendance rows.
type AttendanceSummary struct {
	Present int `db:"present" json:"present"`
	Total   int `db:"total" json:"total"`
}

// Absent is the number of missed classes.
func (a AttendanceSummary) Absent() int {
	return a.Total - a.Present
}

// Percentage is present/total*100, zero when nothing was recorded.
func (a AttendanceSummary) Percentage() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Present) / float64(a.Total) * 100
}

// StudyMaterial is an uploaded resource of a course.
type StudyMaterial struct {
	ID         string    `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	CourseCode string    `db:"course_code" json:"course_code"`
	CourseName string    `db:"course_name" json:"course_name"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}
