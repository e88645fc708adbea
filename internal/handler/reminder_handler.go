package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-payments-api/internal/dto"
	"github.com/noah-isme/tutoring-payments-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-payments-api/pkg/errors"
	"github.com/noah-isme/tutoring-payments-api/pkg/response"
)

type reminderService interface {
	Send(ctx context.Context, session models.Session, schoolID string, req dto.ReminderRequest) (*dto.ReminderResponse, error)
}

// ReminderHandler queues overdue payment reminders.
type ReminderHandler struct {
	service reminderService
}

// NewReminderHandler constructs the handler.
func NewReminderHandler(service reminderService) *ReminderHandler {
	return &ReminderHandler{service: service}
}

// Send godoc
// @Summary Queue payment reminders for overdue students
// @Tags Reminders
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.ReminderRequest true "Reminder request"
// @Success 202 {object} response.Envelope
// @Router /schools/{schoolId}/reminders [post]
func (h *ReminderHandler) Send(c *gin.Context) {
	session, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	schoolID, err := schoolParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	resp, err := h.service.Send(c.Request.Context(), session, schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, resp)
}
