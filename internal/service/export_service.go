package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/tutorcrm-api/internal/models"
	appErrors "github.com/noah-isme/tutorcrm-api/pkg/errors"
	"github.com/noah-isme/tutorcrm-api/pkg/export"
	"github.com/noah-isme/tutorcrm-api/pkg/timeslot"
)

// ExportFormat selects the rendered document type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type slotLister interface {
	GetAvailableSlots(ctx context.Context, q SlotQuery) ([]models.AvailableSlot, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered availability document ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders a teacher's slot grid as CSV or PDF.
type ExportService struct {
	slots  slotLister
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(slots slotLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{slots: slots, csv: csv, pdf: pdf, logger: logger}
}

// Export lists slots for q and renders them in format.
func (s *ExportService) Export(ctx context.Context, q SlotQuery, format ExportFormat) (*ExportResult, error) {
	format = ExportFormat(strings.ToLower(string(format)))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	slots, err := s.slots.GetAvailableSlots(ctx, q)
	if err != nil {
		return nil, err
	}
	dataset := slotDataset(slots, q.DisplayTimezone != "")

	var (
		payload     []byte
		contentType string
	)
	switch format {
	case ExportFormatPDF:
		title := fmt.Sprintf("Availability %s to %s", q.StartDate, q.EndDate)
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render availability export")
	}

	s.logger.Debug("availability exported",
		zap.String("teacher_id", q.TeacherID),
		zap.String("format", string(format)),
		zap.Int("rows", len(slots)))

	return &ExportResult{
		Filename:    fmt.Sprintf("availability_%s_%s_%s.%s", sanitizeFilename(q.TeacherID), q.StartDate, q.EndDate, format),
		ContentType: contentType,
		Data:        payload,
		Rows:        len(slots),
	}, nil
}

func slotDataset(slots []models.AvailableSlot, withDisplay bool) export.Dataset {
	headers := []string{"Date", "Start", "End", "Duration (min)", "Status"}
	if withDisplay {
		headers = append(headers, "Local Date", "Local Start", "Local End", "Local Timezone")
	}
	rows := make([]map[string]string, 0, len(slots))
	for _, slot := range slots {
		row := map[string]string{
			"Date":           slot.Date,
			"Start":          slot.Start,
			"End":            slot.End,
			"Duration (min)": fmt.Sprintf("%d", timeslot.MinutesBetween(slot.Start, slot.End)),
			"Status":         "unavailable",
		}
		if slot.IsAvailable {
			row["Status"] = "available"
		}
		if withDisplay && slot.Display != nil {
			row["Local Date"] = slot.Display.Date
			row["Local Start"] = slot.Display.Start
			row["Local End"] = slot.Display.End
			row["Local Timezone"] = slot.Display.Timezone
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
