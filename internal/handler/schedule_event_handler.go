package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type scheduleEventService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.ScheduleEventRequest) (*dto.ScheduleEventResult, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.ScheduleEventRequest) (*models.ScheduleEvent, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	Upcoming(ctx context.Context, actor *models.JWTClaims) ([]models.ScheduleEvent, error)
	Renotify(ctx context.Context, actor *models.JWTClaims, id string) (*dto.ScheduleEventResult, error)
}

// ScheduleEventHandler manages calendar events and their announcements.
type ScheduleEventHandler struct {
	service scheduleEventService
}

// NewScheduleEventHandler constructs the handler.
func NewScheduleEventHandler(svc scheduleEventService) *ScheduleEventHandler {
	return &ScheduleEventHandler{service: svc}
}

// Create godoc
// @Summary Create a schedule event
// @Description Persists the event and notifies its audience once
// @Tags Schedule Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ScheduleEventRequest true "Event"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schedule-events [post]
func (h *ScheduleEventHandler) Create(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	var req dto.ScheduleEventRequest
	if !bindJSON(c, &req, "invalid schedule event payload") {
		return
	}
	res, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Update godoc
// @Summary Update a schedule event
// @Tags Schedule Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param payload body dto.ScheduleEventRequest true "Event"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule-events/{id} [put]
func (h *ScheduleEventHandler) Update(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req dto.ScheduleEventRequest
	if !bindJSON(c, &req, "invalid schedule event payload") {
		return
	}
	res, err := h.service.Update(c.Request.Context(), claims, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}

// Delete godoc
// @Summary Delete a schedule event
// @Tags Schedule Events
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /schedule-events/{id} [delete]
func (h *ScheduleEventHandler) Delete(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Renotify godoc
// @Summary Re-send an event announcement
// @Tags Schedule Events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule-events/{id}/notify [post]
func (h *ScheduleEventHandler) Renotify(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	id, valid := pathID(c)
	if !valid {
		return
	}
	res, err := h.service.Renotify(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}

// Upcoming godoc
// @Summary Upcoming events
// @Description Students see their courses and public events, teachers their own events, admins everything
// @Tags Schedule Events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /schedule-events/upcoming [get]
func (h *ScheduleEventHandler) Upcoming(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	events, err := h.service.Upcoming(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(events))
	ok(c, events)
}
