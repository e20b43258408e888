package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// CourseRepository serves course, enrollment and audience lookups.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, teacher_profile_id, credits, semester FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// ListEnrolled returns the courses a student is enrolled in with teacher
// contact details.
func (r *CourseRepository) ListEnrolled(ctx context.Context, studentProfileID string) ([]models.EnrolledCourse, error) {
	const query = `SELECT c.id AS course_id, c.code, c.name, c.credits, c.semester, c.teacher_profile_id,
ta.id AS teacher_account_id, ta.username AS teacher_username, ta.first_name AS teacher_first_name, ta.last_name AS teacher_last_name, ta.email AS teacher_email
FROM enrollments e
JOIN courses c ON c.id = e.course_id
JOIN profiles tp ON tp.id = c.teacher_profile_id
JOIN accounts ta ON ta.id = tp.account_id
WHERE e.student_profile_id = $1
ORDER BY c.code`
	var courses []models.EnrolledCourse
	if err := r.db.SelectContext(ctx, &courses, query, studentProfileID); err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	return courses, nil
}

// EnrolledStudentAccountIDs returns the accounts of students enrolled in
// courseID, in enrollment order.
func (r *CourseRepository) EnrolledStudentAccountIDs(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT a.id FROM enrollments e
JOIN profiles p ON p.id = e.student_profile_id
JOIN accounts a ON a.id = p.account_id
WHERE e.course_id = $1
ORDER BY e.enrolled_at, a.id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrolled student accounts: %w", err)
	}
	return ids, nil
}

// TeacherAccountID returns the account of the course teacher.
func (r *CourseRepository) TeacherAccountID(ctx context.Context, courseID string) (string, error) {
	const query = `SELECT a.id FROM courses c
JOIN profiles p ON p.id = c.teacher_profile_id
JOIN accounts a ON a.id = p.account_id
WHERE c.id = $1`
	var id string
	if err := r.db.GetContext(ctx, &id, query, courseID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("find course teacher account: %w", err)
	}
	return id, nil
}
