package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/reportcard/internal/grading"
	"github.com/noah-isme/reportcard/internal/models"
	appErrors "github.com/noah-isme/reportcard/pkg/errors"
	"github.com/noah-isme/reportcard/pkg/logger"
)

// DashboardTopStudents is how many leaders the dashboard lists.
const DashboardTopStudents = 5

type rosterReader interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, error)
	FindByID(ctx context.Context, id string) (*models.StudentRecord, error)
}

type recomputeObserver interface {
	ObserveRecompute(elapsed time.Duration, stats models.ClassStatistics)
}

// ReportService derives every read view from the stored roster. Results are
// recomputed on each call and never cached.
type ReportService struct {
	students rosterReader
	settings settingsProvider
	engine   *grading.Engine
	metrics  recomputeObserver
	logger   *zap.Logger
}

// NewReportService constructs ReportService. metrics may be nil.
func NewReportService(students rosterReader, settings settingsProvider, engine *grading.Engine, metrics recomputeObserver, logger *zap.Logger) *ReportService {
	if engine == nil {
		engine = grading.NewEngine(grading.PendingZeroUnset)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		students: students,
		settings: settings,
		engine:   engine,
		metrics:  metrics,
		logger:   logger,
	}
}

type computedRoster struct {
	settings models.SchoolSettings
	students []models.ProcessedStudent
	stats    models.ClassStatistics
}

func (s *ReportService) compute(ctx context.Context, className string) (*computedRoster, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.students.List(ctx, models.StudentFilter{ClassName: strings.TrimSpace(className)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to load roster")
	}

	done := logger.Timed(s.logger, "roster recomputed", zap.String("class", className), zap.Int("students", len(records)))
	start := time.Now()
	students, stats := s.engine.Statistics(records, settings)
	if s.metrics != nil {
		s.metrics.ObserveRecompute(time.Since(start), stats)
	}
	done()

	return &computedRoster{settings: settings, students: students, stats: stats}, nil
}

// Roster returns processed students in stored order. When className is set
// only that class is scored and ranked.
func (s *ReportService) Roster(ctx context.Context, className string) ([]models.ProcessedStudent, error) {
	computed, err := s.compute(ctx, className)
	if err != nil {
		return nil, err
	}
	return computed.students, nil
}

// Statistics returns the class snapshot.
func (s *ReportService) Statistics(ctx context.Context, className string) (models.ClassStatistics, error) {
	computed, err := s.compute(ctx, className)
	if err != nil {
		return models.ClassStatistics{}, err
	}
	return computed.stats, nil
}

// Dashboard bundles statistics, leaders and per-subject analytics.
func (s *ReportService) Dashboard(ctx context.Context, className string) (*models.Dashboard, error) {
	computed, err := s.compute(ctx, className)
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{
		ClassName:   strings.TrimSpace(className),
		Statistics:  computed.stats,
		TopStudents: grading.TopStudents(computed.students, DashboardTopStudents),
		Subjects:    grading.SubjectSummaries(computed.students),
	}, nil
}

// ReportCard builds the printable card of one student, ranked within the
// student's class.
func (s *ReportService) ReportCard(ctx context.Context, studentID string) (*models.ReportCard, error) {
	record, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to load student")
	}
	cards, err := s.ReportCards(ctx, record.ClassName)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if cards[i].Student.ID == studentID {
			return &cards[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found in class roster")
}

// ReportCards builds a card for every student of the class.
func (s *ReportService) ReportCards(ctx context.Context, className string) ([]models.ReportCard, error) {
	computed, err := s.compute(ctx, className)
	if err != nil {
		return nil, err
	}
	cards := make([]models.ReportCard, 0, len(computed.students))
	for _, student := range computed.students {
		cards = append(cards, models.ReportCard{
			Settings:   computed.settings,
			Student:    student,
			RosterSize: len(computed.students),
			Attendance: attendanceLabel(student.AttendancePresent, student.AttendanceTotal),
			PassOrFail: grading.PassLabel(student.AverageScore),
		})
	}
	return cards, nil
}

func attendanceLabel(present, total *int) string {
	if present == nil || total == nil {
		return ""
	}
	return fmt.Sprintf("%d / %d", *present, *total)
}
