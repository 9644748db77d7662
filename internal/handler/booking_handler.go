package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorcrm-api/internal/models"
	"github.com/noah-isme/tutorcrm-api/internal/service"
	appErrors "github.com/noah-isme/tutorcrm-api/pkg/errors"
	"github.com/noah-isme/tutorcrm-api/pkg/response"
)

type bookingService interface {
	Book(ctx context.Context, teacherID string, req service.BookSessionRequest) (*models.TutoringSession, error)
	Reschedule(ctx context.Context, teacherID, sessionID string, req service.RescheduleSessionRequest) (*models.TutoringSession, error)
}

// BookingHandler books and reschedules tutoring sessions.
type BookingHandler struct {
	service bookingService
}

// NewBookingHandler constructs the handler.
func NewBookingHandler(service bookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// Book godoc
// @Summary Book a session with a teacher
// @Description The slot is re-checked under a per-teacher lock; a taken slot returns 409 with the reason.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.BookSessionRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teachers/{id}/sessions [post]
func (h *BookingHandler) Book(c *gin.Context) {
	teacherID := teacherIDParam(c)
	if teacherID == "" {
		return
	}
	var req service.BookSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	session, err := h.service.Book(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Reschedule godoc
// @Summary Move a session to a new slot
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param sessionId path string true "Session ID"
// @Param payload body service.RescheduleSessionRequest true "New slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teachers/{id}/sessions/{sessionId} [put]
func (h *BookingHandler) Reschedule(c *gin.Context) {
	teacherID := teacherIDParam(c)
	if teacherID == "" {
		return
	}
	sessionID := pathID(c, "sessionId")
	if sessionID == "" {
		return
	}
	var req service.RescheduleSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reschedule payload"))
		return
	}
	session, err := h.service.Reschedule(c.Request.Context(), teacherID, sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
