package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/pkg/export"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

type storedScheduleLister interface {
	List(ctx context.Context, studentID string, query dto.StudyScheduleQuery) (*dto.StoredScheduleResponse, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Title string
}

// ExportFile is a rendered schedule ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

var scheduleHeaders = []string{"date", "day", "start", "end", "category", "label"}

var scheduleColumnWidths = map[string]float64{
	"date":     28,
	"day":      28,
	"start":    18,
	"end":      18,
	"category": 24,
}

// ExportService renders persisted schedules as CSV or PDF.
type ExportService struct {
	schedules storedScheduleLister
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(schedules storedScheduleLister, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Title == "" {
		cfg.Title = "Study schedule"
	}
	if csv == nil {
		csv = export.NewCSVExporter(false)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(scheduleColumnWidths)
	}
	return &ExportService{schedules: schedules, csv: csv, pdf: pdf, logger: logger, cfg: cfg}
}

// Export renders the student's stored schedule in the requested format; csv is the default.
func (s *ExportService) Export(ctx context.Context, studentID string, query dto.StudyScheduleQuery) (*ExportFile, error) {
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", query.Format))
	}
	query.Format = format

	stored, err := s.schedules.List(ctx, studentID, query)
	if err != nil {
		return nil, err
	}
	dataset := scheduleDataset(stored)

	var payload []byte
	contentType := "text/csv"
	if format == "pdf" {
		contentType = "application/pdf"
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("%s %s - %s", s.cfg.Title, stored.From, stored.To))
	} else {
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.logger.Error("render schedule export", zap.String("student_id", studentID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("study_schedule_%s_%s.%s", stored.From, stored.To, format),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

func scheduleDataset(stored *dto.StoredScheduleResponse) export.Dataset {
	data := export.Dataset{Headers: scheduleHeaders}
	for _, week := range stored.Weeks {
		for _, block := range week.Blocks() {
			data.Rows = append(data.Rows, map[string]string{
				"week":     strconv.Itoa(week.Week),
				"date":     block.Date.String(),
				"day":      block.Date.Weekday().String(),
				"start":    block.Start.String(),
				"end":      block.End.String(),
				"category": string(block.Category),
				"label":    block.Label,
			})
		}
	}
	return data
}
