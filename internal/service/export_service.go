package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/reportcard/internal/grading"
	"github.com/noah-isme/reportcard/internal/models"
	appErrors "github.com/noah-isme/reportcard/pkg/errors"
	"github.com/noah-isme/reportcard/pkg/export"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// CSV column headers for the class results export.
const (
	ColumnName     = "Name"
	ColumnClass    = "Class"
	ColumnSubjects = "Subjects"
	ColumnTotal    = "Total Score"
	ColumnAverage  = "Average"
	ColumnPosition = "Position"
	ColumnStatus   = "Status"
)

type reportSource interface {
	Roster(ctx context.Context, className string) ([]models.ProcessedStudent, error)
	ReportCards(ctx context.Context, className string) ([]models.ReportCard, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderDocuments(docs []export.Document) ([]byte, error)
}

type exportObserver interface {
	ObserveExport(format string)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	ResultTTL time.Duration
}

// ExportService renders class results and report cards into files.
type ExportService struct {
	reports reportSource
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	metrics exportObserver
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(reports reportSource, storage fileStorage, cfg ExportConfig, metrics exportObserver, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 7 * 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		reports: reports,
		storage: storage,
		csv:     csv,
		pdf:     pdf,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// ResultsDataset maps processed students onto the CSV columns. Status is
// derived from the average alone.
func ResultsDataset(students []models.ProcessedStudent) export.Dataset {
	data := export.Dataset{
		Headers: []string{ColumnName, ColumnClass, ColumnSubjects, ColumnTotal, ColumnAverage, ColumnPosition, ColumnStatus},
		Rows:    make([]map[string]string, 0, len(students)),
	}
	for _, student := range students {
		data.Rows = append(data.Rows, map[string]string{
			ColumnName:     student.Name,
			ColumnClass:    student.ClassName,
			ColumnSubjects: strconv.Itoa(len(student.Subjects)),
			ColumnTotal:    formatScore(student.TotalScore),
			ColumnAverage:  strconv.Itoa(student.AverageScore),
			ColumnPosition: strconv.Itoa(student.ClassPosition),
			ColumnStatus:   grading.PassLabel(student.AverageScore),
		})
	}
	return data
}

// ExportCSV writes the class results CSV and returns its path.
func (s *ExportService) ExportCSV(ctx context.Context, className string) (string, error) {
	students, err := s.reports.Roster(ctx, className)
	if err != nil {
		return "", err
	}
	payload, err := s.csv.Render(ResultsDataset(students))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to render csv")
	}
	return s.store("results", FormatCSV, className, payload, len(students))
}

// ExportResultsPDF prints the class results table as a PDF and returns its path.
func (s *ExportService) ExportResultsPDF(ctx context.Context, className string) (string, error) {
	students, err := s.reports.Roster(ctx, className)
	if err != nil {
		return "", err
	}
	title := "Class Results - All Classes"
	if strings.TrimSpace(className) != "" {
		title = "Class Results - " + strings.TrimSpace(className)
	}
	payload, err := s.pdf.Render(ResultsDataset(students), title)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to render results pdf")
	}
	return s.store("results", FormatPDF, className, payload, len(students))
}

// ExportReportCards writes one PDF page per student and returns the path.
func (s *ExportService) ExportReportCards(ctx context.Context, className string) (string, error) {
	cards, err := s.reports.ReportCards(ctx, className)
	if err != nil {
		return "", err
	}
	if len(cards) == 0 {
		return "", appErrors.Clone(appErrors.ErrNotFound, "no students to print")
	}
	docs := make([]export.Document, 0, len(cards))
	for _, card := range cards {
		docs = append(docs, reportCardDocument(card))
	}
	payload, err := s.pdf.RenderDocuments(docs)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to render report cards")
	}
	return s.store("report_cards", FormatPDF, className, payload, len(cards))
}

// Cleanup removes export files older than the configured TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to clean exports")
	}
	if len(deleted) > 0 {
		s.logger.Info("old exports removed", zap.Int("count", len(deleted)))
	}
	return deleted, nil
}

// Remove deletes one export file by the name it was written under.
func (s *ExportService) Remove(filename string) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return appErrors.WithField(appErrors.ErrValidation, "name", "export file name is required")
	}
	if err := s.storage.Delete(filename); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to delete export")
	}
	s.logger.Info("export removed", zap.String("name", filename))
	return nil
}

func (s *ExportService) store(kind, format, className string, payload []byte, rows int) (string, error) {
	filename := s.buildFilename(kind, format, className)
	path, err := s.storage.Save(filename, payload)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to store export")
	}
	if s.metrics != nil {
		s.metrics.ObserveExport(format)
	}
	s.logger.Info("export written", zap.String("format", format), zap.String("path", path), zap.Int("rows", rows))
	return path, nil
}

func (s *ExportService) buildFilename(kind, format, className string) string {
	scope := "all"
	if strings.TrimSpace(className) != "" {
		scope = sanitizeFilename(className)
	}
	return fmt.Sprintf("%s_%s_%s.%s", kind, scope, s.now().UTC().Format("20060102_150405"), format)
}

func sanitizeFilename(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "'", "")
	result := strings.ToLower(replacer.Replace(strings.TrimSpace(raw)))
	if len(result) > 60 {
		return result[:60]
	}
	return result
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func reportCardDocument(card models.ReportCard) export.Document {
	student := card.Student
	settings := card.Settings

	subtitle := "Terminal Report"
	if settings.Term != "" {
		subtitle = settings.Term.Label() + " Report"
	}
	if settings.AcademicYear != "" {
		subtitle += " - " + settings.AcademicYear
	}

	position := "-"
	if !student.Pending {
		position = fmt.Sprintf("%d of %d", student.ClassPosition, card.RosterSize)
	}
	details := []export.Field{
		{Label: "Name", Value: student.Name},
		{Label: "Class", Value: student.ClassName},
		{Label: "Position", Value: position},
		{Label: "Average", Value: strconv.Itoa(student.AverageScore)},
	}
	if card.Attendance != "" {
		details = append(details, export.Field{Label: "Attendance", Value: card.Attendance})
	}

	classHeader := fmt.Sprintf("Class (%d)", settings.ClassScoreMax)
	examHeader := fmt.Sprintf("Exam (%d)", settings.ExamScoreMax)
	table := export.Dataset{Headers: []string{"Subject", classHeader, examHeader, "Total", "Grade", "Position", "Remark"}}
	for _, result := range student.Results {
		grade, subjectPosition := "-", "-"
		if !result.Incomplete {
			grade = strconv.Itoa(result.Grade)
			subjectPosition = strconv.Itoa(result.Position)
		}
		table.Rows = append(table.Rows, map[string]string{
			"Subject":   result.Name,
			classHeader: formatScore(result.ClassScore),
			examHeader:  formatScore(result.ExamScore),
			"Total":     formatScore(result.Total),
			"Grade":     grade,
			"Position":  subjectPosition,
			"Remark":    result.Remark,
		})
	}

	status := card.PassOrFail
	if student.Pending {
		status = "Pending"
	}
	footer := []export.Field{{Label: "Result", Value: status}}
	for _, f := range []export.Field{
		{Label: "Conduct", Value: student.Conduct},
		{Label: "Interest", Value: student.Interest},
		{Label: "Teacher's remark", Value: student.Remark},
	} {
		if f.Value != "" {
			footer = append(footer, f)
		}
	}

	title := settings.SchoolName
	if title == "" {
		title = "Report Card"
	}
	return export.Document{Title: title, Subtitle: subtitle, Details: details, Table: table, Footer: footer}
}
