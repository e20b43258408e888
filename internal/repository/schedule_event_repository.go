package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const scheduleEventColumns = `e.id, e.title, e.description, e.date, e.start_time, e.end_time, e.location, e.course_id, c.code AS course_code,
e.created_by_profile_id, e.is_public, e.is_active, e.notify, e.created_at, e.updated_at`

const scheduleEventFrom = `FROM schedule_events e LEFT JOIN courses c ON c.id = e.course_id`

// ScheduleEventRepository persists schedule events.
type ScheduleEventRepository struct {
	db *sqlx.DB
}

// NewScheduleEventRepository constructs the repository.
func NewScheduleEventRepository(db *sqlx.DB) *ScheduleEventRepository {
	return &ScheduleEventRepository{db: db}
}

// Create inserts a new event.
func (r *ScheduleEventRepository) Create(ctx context.Context, event *models.ScheduleEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	const query = `INSERT INTO schedule_events (id, title, description, date, start_time, end_time, location, course_id, created_by_profile_id, is_public, is_active, notify, created_at, updated_at)
VALUES (:id, :title, :description, :date, :start_time, :end_time, :location, :course_id, :created_by_profile_id, :is_public, :is_active, :notify, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create schedule event: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an event.
func (r *ScheduleEventRepository) Update(ctx context.Context, event *models.ScheduleEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_events SET title = :title, description = :description, date = :date, start_time = :start_time,
end_time = :end_time, location = :location, course_id = :course_id, is_public = :is_public, is_active = :is_active, notify = :notify, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update schedule event: %w", err)
	}
	return nil
}

// Delete removes an event.
func (r *ScheduleEventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule event: %w", err)
	}
	return nil
}

// FindByID returns an event with its course code.
func (r *ScheduleEventRepository) FindByID(ctx context.Context, id string) (*models.ScheduleEvent, error) {
	query := `SELECT ` + scheduleEventColumns + ` ` + scheduleEventFrom + ` WHERE e.id = $1`
	var event models.ScheduleEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule event: %w", err)
	}
	return &event, nil
}

// UpcomingForStudent lists active events from a date on that are public or
// belong to one of the student's enrolled courses.
func (r *ScheduleEventRepository) UpcomingForStudent(ctx context.Context, studentProfileID string, from time.Time, limit int) ([]models.ScheduleEvent, error) {
	query := `SELECT ` + scheduleEventColumns + ` ` + scheduleEventFrom + `
WHERE e.is_active = TRUE AND e.date >= $2
AND (e.is_public = TRUE OR e.course_id IN (SELECT course_id FROM enrollments WHERE student_profile_id = $1))
ORDER BY e.date, e.start_time NULLS FIRST
LIMIT $3`
	var events []models.ScheduleEvent
	if err := r.db.SelectContext(ctx, &events, query, studentProfileID, from, limit); err != nil {
		return nil, fmt.Errorf("list upcoming events for student: %w", err)
	}
	return events, nil
}

// UpcomingByCreator lists events a profile created from a date on.
func (r *ScheduleEventRepository) UpcomingByCreator(ctx context.Context, profileID string, from time.Time, limit int) ([]models.ScheduleEvent, error) {
	query := `SELECT ` + scheduleEventColumns + ` ` + scheduleEventFrom + `
WHERE e.created_by_profile_id = $1 AND e.date >= $2
ORDER BY e.date, e.start_time NULLS FIRST
LIMIT $3`
	var events []models.ScheduleEvent
	if err := r.db.SelectContext(ctx, &events, query, profileID, from, limit); err != nil {
		return nil, fmt.Errorf("list upcoming events by creator: %w", err)
	}
	return events, nil
}

// Upcoming lists every event from a date on.
func (r *ScheduleEventRepository) Upcoming(ctx context.Context, from time.Time, limit int) ([]models.ScheduleEvent, error) {
	query := `SELECT ` + scheduleEventColumns + ` ` + scheduleEventFrom + `
WHERE e.date >= $1
ORDER BY e.date, e.start_time NULLS FIRST
LIMIT $2`
	var events []models.ScheduleEvent
	if err := r.db.SelectContext(ctx, &events, query, from, limit); err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	return events, nil
}
