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

type availabilitySettingsService interface {
	GetTemplate(ctx context.Context, teacherID string) (*models.WeeklyAvailabilityTemplate, error)
	UpsertTemplate(ctx context.Context, teacherID string, req service.UpsertAvailabilityTemplateRequest) (*models.WeeklyAvailabilityTemplate, error)
	ListBlocks(ctx context.Context, teacherID, startDate, endDate string) ([]models.AvailabilityBlock, error)
	CreateBlock(ctx context.Context, teacherID string, req service.CreateAvailabilityBlockRequest) (*models.AvailabilityBlock, error)
	DeleteBlock(ctx context.Context, teacherID, blockID string) error
}

// AvailabilitySettingsHandler manages weekly templates and availability blocks.
type AvailabilitySettingsHandler struct {
	service availabilitySettingsService
}

// NewAvailabilitySettingsHandler constructs the handler.
func NewAvailabilitySettingsHandler(service availabilitySettingsService) *AvailabilitySettingsHandler {
	return &AvailabilitySettingsHandler{service: service}
}

// GetTemplate godoc
// @Summary Get a teacher's weekly availability template
// @Tags Availability
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/availability/template [get]
func (h *AvailabilitySettingsHandler) GetTemplate(c *gin.Context) {
	teacherID := teacherIDParam(c)
	if teacherID == "" {
		return
	}
	tpl, err := h.service.GetTemplate(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// UpsertTemplate godoc
// @Summary Replace a teacher's weekly availability template
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.UpsertAvailabilityTemplateRequest true "Template payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/{id}/availability/template [put]
func (h *AvailabilitySettingsHandler) UpsertTemplate(c *gin.Context) {
	teacherID := teacherIDParam(c)
	if teacherID == "" {
		return
	}
	var req service.UpsertAvailabilityTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid template payload"))
		return
	}
	tpl, err := h.service.UpsertTemplate(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// ListBlocks godoc
// @Summary List availability blocks in a date range
// @Tags Availability
// @Produce json
// @Param id path string true "Teacher ID"
// @Param start_date query string true "First date (YYYY-MM-DD)"
// @Param end_date query string true "Last date, inclusive (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/availability/blocks [get]
func (h *AvailabilitySettingsHandler) ListBlocks(c *gin.Context) {
	teacherID := teacherIDParam(c)
	if teacherID == "" {
		return
	}
	blocks, err := h.service.ListBlocks(c.Request.Context(), teacherID,
		queryString(c, "start_date", "startDate"), queryString(c, "end_date", "endDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}

// CreateBlock godoc
// @Summary Create an availability block
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.CreateAvailabilityBlockRequest true "Block payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/{id}/availability/blocks [post]
func (h *AvailabilitySettingsHandler) CreateBlock(c *gin.Context) {
	teacherID := teacherIDParam(c)
	if teacherID == "" {
		return
	}
	var req service.CreateAvailabilityBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid block payload"))
		return
	}
	block, err := h.service.CreateBlock(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, block)
}

// DeleteBlock godoc
// @Summary Delete an availability block
// @Tags Availability
// @Param id path string true "Teacher ID"
// @Param blockId path string true "Block ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/availability/blocks/{blockId} [delete]
func (h *AvailabilitySettingsHandler) DeleteBlock(c *gin.Context) {
	teacherID := teacherIDParam(c)
	if teacherID == "" {
		return
	}
	blockID := pathID(c, "blockId")
	if blockID == "" {
		return
	}
	if err := h.service.DeleteBlock(c.Request.Context(), teacherID, blockID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
