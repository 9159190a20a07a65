package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/reportcard/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlite3")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSettingsRepositoryLoad(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	rows := sqlmock.NewRows([]string{"school_name", "class_score_max", "exam_score_max", "class_size", "component_library", "level", "school_type", "term", "academic_year", "updated_at"}).
		AddRow("Accra Basic", 40, 60, 35, `[{"id":"ct","name":"Class Test","maxScore":20,"weight":40}]`, "JHS", "PUBLIC", "TERM_2", "2024/2025", time.Now())
	mock.ExpectQuery("SELECT school_name, class_score_max").WillReturnRows(rows)

	settings, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Accra Basic", settings.SchoolName)
	assert.Equal(t, 40, settings.ClassScoreMax)
	assert.Equal(t, 60, settings.ExamScoreMax)
	assert.Equal(t, models.TermSecond, settings.Term)
	require.Len(t, settings.ComponentLibrary, 1)
	assert.Equal(t, models.AssessmentComponent{ID: "ct", Name: "Class Test", MaxScore: 20, Weight: 40}, settings.ComponentLibrary[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryLoadMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	mock.ExpectQuery("SELECT school_name").WillReturnError(sql.ErrNoRows)

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSettingsRepositorySave(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	mock.ExpectExec("INSERT INTO school_settings").
		WithArgs("Accra Basic", 30, 70, 0, []byte("[]"), "JHS", "PUBLIC", "TERM_1", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	settings := models.DefaultSettings()
	settings.SchoolName = "Accra Basic"
	require.NoError(t, repo.Save(context.Background(), &settings))
	assert.False(t, settings.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositorySaveTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO school_settings").
		WithArgs("", 30, 70, 0, []byte(`[{"id":"ct","name":"Class Test","maxScore":20,"weight":30}]`), "JHS", "PUBLIC", "TERM_1", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	settings := models.DefaultSettings()
	settings.ComponentLibrary = []models.AssessmentComponent{{ID: "ct", Name: "Class Test", MaxScore: 20, Weight: 30}}
	require.NoError(t, repo.SaveTx(context.Background(), tx, &settings))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
