package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, accountID string, limit int) (*dto.NotificationList, error)
	UnreadCount(ctx context.Context, accountID string) (*dto.UnreadCount, error)
	MarkRead(ctx context.Context, accountID, id string) error
	MarkAllRead(ctx context.Context, accountID string) (*dto.MarkAllReadResult, error)
	Delete(ctx context.Context, accountID, id string) error
	ScheduleBroadcasts(ctx context.Context, actor *models.JWTClaims, limit int) (*dto.ScheduleBroadcastList, error)
	ExportScheduleBroadcasts(ctx context.Context, actor *models.JWTClaims, format string) (*service.ExportFile, error)
	Broadcast(ctx context.Context, actor *models.JWTClaims, req dto.BroadcastRequest) (*dto.DeliveryReport, error)
	MessageCourse(ctx context.Context, actor *models.JWTClaims, courseID string, req dto.CourseMessageRequest) (*dto.DeliveryReport, error)
}

// NotificationHandler exposes the inbox and direct-send endpoints.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary My notifications
// @Description Newest first, with unread and total counters
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (default 10, max 50)"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	limit, valid := queryLimit(c)
	if !valid {
		return
	}
	res, err := h.service.List(c.Request.Context(), claims.AccountID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}

// UnreadCount godoc
// @Summary Unread notification count
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	res, err := h.service.UnreadCount(c.Request.Context(), claims.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}

// MarkRead godoc
// @Summary Mark one notification read
// @Tags Notifications
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), claims.AccountID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark every notification read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	res, err := h.service.MarkAllRead(c.Request.Context(), claims.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}

// Delete godoc
// @Summary Delete a notification
// @Tags Notifications
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.AccountID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Broadcast godoc
// @Summary Send a notification to selected accounts
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BroadcastRequest true "Broadcast"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /notifications/broadcast [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	var req dto.BroadcastRequest
	if !bindJSON(c, &req, "invalid broadcast payload") {
		return
	}
	res, err := h.service.Broadcast(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// ScheduleBroadcasts godoc
// @Summary Schedule broadcast status
// @Description Schedule and event notifications of the caller
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (default 20)"
// @Success 200 {object} response.Envelope
// @Router /notifications/schedule-broadcasts [get]
func (h *NotificationHandler) ScheduleBroadcasts(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	limit, valid := queryLimit(c)
	if !valid {
		return
	}
	res, err := h.service.ScheduleBroadcasts(c.Request.Context(), claims, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}

// ExportScheduleBroadcasts godoc
// @Summary Export schedule broadcast status
// @Tags Notifications
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /notifications/schedule-broadcasts/export [get]
func (h *NotificationHandler) ExportScheduleBroadcasts(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	file, err := h.service.ExportScheduleBroadcasts(c.Request.Context(), claims, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

// MessageCourse godoc
// @Summary Message every student of a course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body dto.CourseMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/messages [post]
func (h *NotificationHandler) MessageCourse(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req dto.CourseMessageRequest
	if !bindJSON(c, &req, "invalid message payload") {
		return
	}
	res, err := h.service.MessageCourse(c.Request.Context(), claims, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
