package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// StudyRepository reads a student's own coursework data.
type StudyRepository struct {
	db *sqlx.DB
}

// NewStudyRepository constructs the repository.
func NewStudyRepository(db *sqlx.DB) *StudyRepository {
	return &StudyRepository{db: db}
}

// PendingAssignments returns published assignments of enrolled courses due
// on or after from, soonest first.
func (r *StudyRepository) PendingAssignments(ctx context.Context, studentProfileID string, from time.Time, limit int) ([]models.PendingAssignment, error) {
	const query = `SELECT a.id, a.title, c.code AS course_code, c.name AS course_name, a.due_date
FROM assignments a
JOIN courses c ON c.id = a.course_id
JOIN enrollments e ON e.course_id = c.id
WHERE e.student_profile_id = $1 AND a.is_draft = FALSE AND a.due_date IS NOT NULL AND a.due_date >= $2
ORDER BY a.due_date ASC, a.title ASC
LIMIT $3`
	var items []models.PendingAssignment
	if err := r.db.SelectContext(ctx, &items, query, studentProfileID, from, limit); err != nil {
		return nil, fmt.Errorf("list pending assignments: %w", err)
	}
	return items, nil
}

// AttendanceSummary counts present and total attendance rows.
func (r *StudyRepository) AttendanceSummary(ctx context.Context, studentProfileID string) (models.AttendanceSummary, error) {
	const query = `SELECT COUNT(*) FILTER (WHERE present) AS present, COUNT(*) AS total FROM attendance WHERE student_profile_id = $1`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, studentProfileID); err != nil {
		return models.AttendanceSummary{}, fmt.Errorf("summarise attendance: %w", err)
	}
	return summary, nil
}

// RecentMaterials returns the newest uploads across enrolled courses.
func (r *StudyRepository) RecentMaterials(ctx context.Context, studentProfileID string, limit int) ([]models.StudyMaterial, error) {
	const query = `SELECT m.id, m.title, c.code AS course_code, c.name AS course_name, m.uploaded_at
FROM study_materials m
JOIN courses c ON c.id = m.course_id
JOIN enrollments e ON e.course_id = c.id
WHERE e.student_profile_id = $1
ORDER BY m.uploaded_at DESC
LIMIT $2`
	var items []models.StudyMaterial
	if err := r.db.SelectContext(ctx, &items, query, studentProfileID, limit); err != nil {
		return nil, fmt.Errorf("list recent materials: %w", err)
	}
	return items, nil
}
