package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS school_settings (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        school_name TEXT NOT NULL DEFAULT '',
        class_score_max INTEGER NOT NULL,
        exam_score_max INTEGER NOT NULL,
        class_size INTEGER NOT NULL DEFAULT 0,
        component_library TEXT NOT NULL DEFAULT '[]',
        level TEXT NOT NULL DEFAULT '',
        school_type TEXT NOT NULL DEFAULT '',
        term TEXT NOT NULL DEFAULT '',
        academic_year TEXT NOT NULL DEFAULT '',
        updated_at TIMESTAMP NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS students (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        class_name TEXT NOT NULL,
        attendance_present INTEGER,
        attendance_total INTEGER,
        remark TEXT NOT NULL DEFAULT '',
        conduct TEXT NOT NULL DEFAULT '',
        interest TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS student_subjects (
        id TEXT PRIMARY KEY,
        student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
        position INTEGER NOT NULL,
        name TEXT NOT NULL,
        class_score REAL NOT NULL DEFAULT 0,
        exam_score REAL NOT NULL DEFAULT 0,
        class_entered BOOLEAN NOT NULL DEFAULT 0,
        exam_entered BOOLEAN NOT NULL DEFAULT 0,
        component_scores TEXT NOT NULL DEFAULT '{}',
        UNIQUE (student_id, name COLLATE NOCASE)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_student_subjects_student ON student_subjects (student_id, position)`,
	`CREATE TABLE IF NOT EXISTS app_lock (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        pin_hash TEXT NOT NULL,
        failed_attempts INTEGER NOT NULL DEFAULT 0,
        updated_at TIMESTAMP NOT NULL
    )`,
}

// Migrate creates the local schema when missing. Statements are idempotent.
func Migrate(db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
