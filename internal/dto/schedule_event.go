package dto

import "github.com/noah-isme/campus-portal-api/internal/models"

// ScheduleEventRequest creates or updates an event. Date is YYYY-MM-DD and
// times are HH:MM or HH:MM:SS. Notify and Active default to true.
type ScheduleEventRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Location    string  `json:"location" validate:"max=200"`
	CourseID    *string `json:"course_id" validate:"omitempty,uuid"`
	Public      bool    `json:"is_public"`
	Active      *bool   `json:"is_active"`
	Notify      *bool   `json:"notify"`
}

// ScheduleEventResult is returned from create and renotify.
type ScheduleEventResult struct {
	Event    *models.ScheduleEvent `json:"event"`
	Notified int                   `json:"notified"`
}
