package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/reportcard/internal/models"
)

// SettingsRepository persists the single SchoolSettings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

type settingsRow struct {
	models.SchoolSettings
	Components types.JSONText `db:"component_library"`
}

// Load fetches the saved settings. It returns sql.ErrNoRows when nothing was saved yet.
func (r *SettingsRepository) Load(ctx context.Context) (*models.SchoolSettings, error) {
	const query = `SELECT school_name, class_score_max, exam_score_max, class_size, component_library, level, school_type, term, academic_year, updated_at
FROM school_settings WHERE id = 1`
	var row settingsRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, err
	}
	settings := row.SchoolSettings
	if err := row.Components.Unmarshal(&settings.ComponentLibrary); err != nil {
		return nil, fmt.Errorf("decode component library: %w", err)
	}
	return &settings, nil
}

// Save inserts or replaces the settings row.
func (r *SettingsRepository) Save(ctx context.Context, settings *models.SchoolSettings) error {
	return r.save(ctx, r.db, settings)
}

// SaveTx writes the settings row inside an existing transaction.
func (r *SettingsRepository) SaveTx(ctx context.Context, tx *sqlx.Tx, settings *models.SchoolSettings) error {
	return r.save(ctx, tx, settings)
}

func (r *SettingsRepository) save(ctx context.Context, exec sqlx.ExtContext, settings *models.SchoolSettings) error {
	const query = `INSERT INTO school_settings (id, school_name, class_score_max, exam_score_max, class_size, component_library, level, school_type, term, academic_year, updated_at)
VALUES (1, :school_name, :class_score_max, :exam_score_max, :class_size, :component_library, :level, :school_type, :term, :academic_year, :updated_at)
ON CONFLICT (id)
DO UPDATE SET school_name = excluded.school_name, class_score_max = excluded.class_score_max, exam_score_max = excluded.exam_score_max,
              class_size = excluded.class_size, component_library = excluded.component_library, level = excluded.level,
              school_type = excluded.school_type, term = excluded.term, academic_year = excluded.academic_year, updated_at = excluded.updated_at`
	components := settings.ComponentLibrary
	if components == nil {
		components = []models.AssessmentComponent{}
	}
	encoded, err := json.Marshal(components)
	if err != nil {
		return fmt.Errorf("encode component library: %w", err)
	}
	settings.UpdatedAt = time.Now().UTC()
	row := settingsRow{SchoolSettings: *settings, Components: types.JSONText(encoded)}
	if _, err := sqlx.NamedExecContext(ctx, exec, query, row); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
