package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/reportcard/internal/grading"
	"github.com/noah-isme/reportcard/internal/models"
	appErrors "github.com/noah-isme/reportcard/pkg/errors"
)

type settingsRepository interface {
	Load(ctx context.Context) (*models.SchoolSettings, error)
	Save(ctx context.Context, settings *models.SchoolSettings) error
	SaveTx(ctx context.Context, tx *sqlx.Tx, settings *models.SchoolSettings) error
}

type componentRoster interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, error)
	SaveAllTx(ctx context.Context, tx *sqlx.Tx, students []*models.StudentRecord) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// UpdateSettingsRequest carries the settings fields to change. Nil fields keep their stored value.
type UpdateSettingsRequest struct {
	SchoolName       *string                       `json:"schoolName"`
	ClassScoreMax    *int                          `json:"classScoreMax"`
	ExamScoreMax     *int                          `json:"examScoreMax"`
	ClassSize        *int                          `json:"classSize"`
	Level            *models.SchoolLevel           `json:"level"`
	SchoolType       *models.SchoolType            `json:"schoolType"`
	Term             *models.Term                  `json:"term"`
	AcademicYear     *string                       `json:"academicYear"`
	ComponentLibrary *[]models.AssessmentComponent `json:"componentLibrary"`
}

// SettingsService reads and updates the school settings. When roster and tx
// are set, component library changes are carried into stored student scores.
type SettingsService struct {
	repo   settingsRepository
	roster componentRoster
	tx     txProvider
	logger *zap.Logger
}

// NewSettingsService constructs SettingsService.
func NewSettingsService(repo settingsRepository, roster componentRoster, tx txProvider, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, roster: roster, tx: tx, logger: logger}
}

// Get returns the stored settings, or the defaults when none were saved.
func (s *SettingsService) Get(ctx context.Context) (models.SchoolSettings, error) {
	settings, err := s.repo.Load(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.SchoolSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to load settings")
	}
	return *settings, nil
}

// Update applies req on top of the current settings, validates the result and
// saves it. Invalid settings are never written. Components sent without an ID
// keep the ID of the stored component with the same name, and student scores
// that no longer fit the library are adjusted in the same transaction.
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest) (*models.SchoolSettings, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	previous := settings
	if req.SchoolName != nil {
		settings.SchoolName = strings.TrimSpace(*req.SchoolName)
	}
	if req.ClassScoreMax != nil {
		settings.ClassScoreMax = *req.ClassScoreMax
	}
	if req.ExamScoreMax != nil {
		settings.ExamScoreMax = *req.ExamScoreMax
	}
	if req.ClassSize != nil {
		settings.ClassSize = *req.ClassSize
	}
	if req.Level != nil {
		settings.Level = *req.Level
	}
	if req.SchoolType != nil {
		settings.SchoolType = *req.SchoolType
	}
	if req.Term != nil {
		settings.Term = *req.Term
	}
	if req.AcademicYear != nil {
		settings.AcademicYear = strings.TrimSpace(*req.AcademicYear)
	}
	if req.ComponentLibrary != nil {
		settings.ComponentLibrary = carryComponentIDs(previous.ComponentLibrary, *req.ComponentLibrary)
	}

	if err := grading.ValidateSettings(settings); err != nil {
		return nil, err
	}
	var reconciled []*models.StudentRecord
	if req.ComponentLibrary != nil {
		if reconciled, err = s.reconcileRoster(ctx, previous, settings); err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, &settings, reconciled); err != nil {
		return nil, err
	}
	s.logger.Info("settings updated",
		zap.Int("class_score_max", settings.ClassScoreMax),
		zap.Int("exam_score_max", settings.ExamScoreMax),
		zap.Int("components", len(settings.ComponentLibrary)),
		zap.Int("students_reconciled", len(reconciled)),
	)
	return &settings, nil
}

func (s *SettingsService) reconcileRoster(ctx context.Context, previous, current models.SchoolSettings) ([]*models.StudentRecord, error) {
	if s.roster == nil || s.tx == nil {
		return nil, nil
	}
	roster, err := s.roster.List(ctx, models.StudentFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to load students")
	}
	var changed []*models.StudentRecord
	for i := range roster {
		if !grading.ReconcileComponents(&roster[i], previous, current) {
			continue
		}
		if err := grading.ValidateStudent(roster[i], current); err != nil {
			return nil, err
		}
		changed = append(changed, &roster[i])
	}
	return changed, nil
}

func (s *SettingsService) save(ctx context.Context, settings *models.SchoolSettings, students []*models.StudentRecord) (err error) {
	if len(students) == 0 {
		if err := s.repo.Save(ctx, settings); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to save settings")
		}
		return nil
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to start settings transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.repo.SaveTx(ctx, tx, settings); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to save settings")
	}
	if err = s.roster.SaveAllTx(ctx, tx, students); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to update student component scores")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to commit settings")
	}
	return nil
}

// carryComponentIDs trims names and fills missing IDs, reusing the ID of the
// stored component with the same name so recorded scores stay attached.
func carryComponentIDs(stored, incoming []models.AssessmentComponent) []models.AssessmentComponent {
	byName := make(map[string]string, len(stored))
	for _, c := range stored {
		byName[strings.ToLower(strings.TrimSpace(c.Name))] = c.ID
	}
	claimed := make(map[string]bool, len(incoming))
	for _, c := range incoming {
		if c.ID != "" {
			claimed[c.ID] = true
		}
	}

	components := make([]models.AssessmentComponent, len(incoming))
	for i, c := range incoming {
		c.Name = strings.TrimSpace(c.Name)
		if c.ID == "" {
			if id, ok := byName[strings.ToLower(c.Name)]; ok && !claimed[id] {
				c.ID = id
			} else {
				c.ID = uuid.NewString()
			}
			claimed[c.ID] = true
		}
		components[i] = c
	}
	return components
}
