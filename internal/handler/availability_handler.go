package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorcrm-api/internal/models"
	"github.com/noah-isme/tutorcrm-api/internal/service"
	appErrors "github.com/noah-isme/tutorcrm-api/pkg/errors"
	"github.com/noah-isme/tutorcrm-api/pkg/response"
)

type availabilityService interface {
	GetAvailableSlots(ctx context.Context, q service.SlotQuery) ([]models.AvailableSlot, error)
	CheckSlotAvailability(ctx context.Context, q service.SlotCheck) (*models.SlotCheckResult, error)
}

type availabilityExporter interface {
	Export(ctx context.Context, q service.SlotQuery, format service.ExportFormat) (*service.ExportResult, error)
}

// AvailabilityHandler exposes slot listing, single-slot checks and slot exports.
type AvailabilityHandler struct {
	service  availabilityService
	exporter availabilityExporter
}

// NewAvailabilityHandler constructs the handler. A nil exporter disables the export route.
func NewAvailabilityHandler(service availabilityService, exporter availabilityExporter) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, exporter: exporter}
}

// Slots godoc
// @Summary List availability slots for a teacher
// @Tags Availability
// @Produce json
// @Param id path string true "Teacher ID"
// @Param start_date query string true "First date (YYYY-MM-DD)"
// @Param end_date query string true "Last date, inclusive (YYYY-MM-DD)"
// @Param duration query int true "Slot length in minutes"
// @Param display_timezone query string false "IANA zone for display labels"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/{id}/availability/slots [get]
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	q, ok := slotQueryFromRequest(c)
	if !ok {
		return
	}
	slots, err := h.service.GetAvailableSlots(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	available := 0
	for _, slot := range slots {
		if slot.IsAvailable {
			available++
		}
	}
	response.JSON(c, http.StatusOK, slots, nil, map[string]interface{}{
		"total":     len(slots),
		"available": available,
	})
}

// Check godoc
// @Summary Check whether a single slot can be booked
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.SlotCheck true "Proposed slot"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/{id}/availability/check [post]
func (h *AvailabilityHandler) Check(c *gin.Context) {
	teacherID := teacherIDParam(c)
	if teacherID == "" {
		return
	}
	var req service.SlotCheck
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot check payload"))
		return
	}
	req.TeacherID = teacherID
	result, err := h.service.CheckSlotAvailability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export availability slots as CSV or PDF
// @Tags Availability
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Teacher ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Param start_date query string true "First date (YYYY-MM-DD)"
// @Param end_date query string true "Last date, inclusive (YYYY-MM-DD)"
// @Param duration query int true "Slot length in minutes"
// @Param display_timezone query string false "IANA zone for display labels"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /teachers/{id}/availability/export [get]
func (h *AvailabilityHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "availability export is disabled"))
		return
	}
	q, ok := slotQueryFromRequest(c)
	if !ok {
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), q, service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV))))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func slotQueryFromRequest(c *gin.Context) (service.SlotQuery, bool) {
	teacherID := teacherIDParam(c)
	if teacherID == "" {
		return service.SlotQuery{}, false
	}
	duration, ok := queryInt(c, "duration", "durationMinutes")
	if !ok {
		return service.SlotQuery{}, false
	}
	return service.SlotQuery{
		TeacherID:       teacherID,
		StartDate:       queryString(c, "start_date", "startDate"),
		EndDate:         queryString(c, "end_date", "endDate"),
		DurationMinutes: duration,
		DisplayTimezone: queryString(c, "display_timezone", "displayTimezone"),
	}, true
}
