package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/pkg/response"
)

type chatResponder interface {
	Respond(ctx context.Context, student *models.JWTClaims, message string) (*dto.ChatResponse, error)
}

type studentMessenger interface {
	SendToTeacher(ctx context.Context, student *models.JWTClaims, req dto.SendToTeacherRequest) (*dto.SendToTeacherResult, error)
	SendToAdmins(ctx context.Context, student *models.JWTClaims, req dto.SendToAdminRequest) (*dto.SendToAdminResult, error)
	TeacherList(ctx context.Context, student *models.JWTClaims) (*dto.ContactList[dto.TeacherContact], error)
	AdminList(ctx context.Context, student *models.JWTClaims) (*dto.ContactList[dto.AdminContact], error)
	History(ctx context.Context, student *models.JWTClaims, contactType, contactID string) (*dto.MessageHistory, error)
}

// ChatbotHandler serves the student assistant and its contact actions.
type ChatbotHandler struct {
	chat      chatResponder
	messenger studentMessenger
}

// NewChatbotHandler constructs the handler.
func NewChatbotHandler(chat chatResponder, messenger studentMessenger) *ChatbotHandler {
	return &ChatbotHandler{chat: chat, messenger: messenger}
}

// Message godoc
// @Summary Ask the assistant
// @Tags Chatbot
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ChatMessageRequest true "Message"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /chatbot/message [post]
func (h *ChatbotHandler) Message(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	var req dto.ChatMessageRequest
	if !bindJSON(c, &req, "invalid chat payload") {
		return
	}
	res, err := h.chat.Respond(c.Request.Context(), claims, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}

// SendToTeacher godoc
// @Summary Message a course teacher
// @Tags Chatbot
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SendToTeacherRequest true "Message"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chatbot/send-to-teacher [post]
func (h *ChatbotHandler) SendToTeacher(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	var req dto.SendToTeacherRequest
	if !bindJSON(c, &req, "invalid message payload") {
		return
	}
	res, err := h.messenger.SendToTeacher(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}

// SendToAdmin godoc
// @Summary Message the administration
// @Tags Chatbot
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SendToAdminRequest true "Message"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chatbot/send-to-admin [post]
func (h *ChatbotHandler) SendToAdmin(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	var req dto.SendToAdminRequest
	if !bindJSON(c, &req, "invalid message payload") {
		return
	}
	res, err := h.messenger.SendToAdmins(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}

// Teachers godoc
// @Summary List my teachers
// @Tags Chatbot
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /chatbot/teachers [get]
func (h *ChatbotHandler) Teachers(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	res, err := h.messenger.TeacherList(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}

// Admins godoc
// @Summary List administrators
// @Tags Chatbot
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /chatbot/admins [get]
func (h *ChatbotHandler) Admins(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	res, err := h.messenger.AdminList(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}

// History godoc
// @Summary Conversation with a contact
// @Tags Chatbot
// @Produce json
// @Security BearerAuth
// @Param contact_type query string false "teacher or admin"
// @Param contact_id query string true "Contact profile ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /chatbot/history [get]
func (h *ChatbotHandler) History(c *gin.Context) {
	claims, found := currentClaims(c)
	if !found {
		return
	}
	res, err := h.messenger.History(c.Request.Context(), claims, c.Query("contact_type"), c.Query("contact_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, res)
}
