package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/reportcard/internal/models"
)

const studentColumns = `id, name, class_name, attendance_present, attendance_total, remark, conduct, interest, created_at, updated_at`

// StudentRepository manages persistence for student records and their subject entries.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

type subjectRow struct {
	ID              string         `db:"id"`
	StudentID       string         `db:"student_id"`
	Position        int            `db:"position"`
	Name            string         `db:"name"`
	ClassScore      float64        `db:"class_score"`
	ExamScore       float64        `db:"exam_score"`
	ClassEntered    bool           `db:"class_entered"`
	ExamEntered     bool           `db:"exam_entered"`
	ComponentScores types.JSONText `db:"component_scores"`
}

func (row subjectRow) entry() (models.SubjectEntry, error) {
	entry := models.SubjectEntry{
		ID:           row.ID,
		Name:         row.Name,
		ClassScore:   row.ClassScore,
		ExamScore:    row.ExamScore,
		ClassEntered: row.ClassEntered,
		ExamEntered:  row.ExamEntered,
	}
	if len(row.ComponentScores) > 0 {
		var scores map[string]float64
		if err := row.ComponentScores.Unmarshal(&scores); err != nil {
			return entry, fmt.Errorf("decode component scores for %s: %w", row.ID, err)
		}
		if len(scores) > 0 {
			entry.ComponentScores = scores
		}
	}
	return entry, nil
}

// List returns students in insertion order with their subjects attached.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, error) {
	query := "SELECT " + studentColumns + " FROM students"
	var args []interface{}
	if filter.ClassName != "" {
		query += " WHERE class_name = ? COLLATE NOCASE"
		args = append(args, filter.ClassName)
	}
	query += " ORDER BY rowid"

	var students []models.StudentRecord
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if len(students) == 0 {
		return []models.StudentRecord{}, nil
	}

	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	subjects, err := r.loadSubjects(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range students {
		students[i].Subjects = subjects[students[i].ID]
	}
	return students, nil
}

// FindByID returns one student or sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentRecord, error) {
	var student models.StudentRecord
	if err := r.db.GetContext(ctx, &student, "SELECT "+studentColumns+" FROM students WHERE id = ?", id); err != nil {
		return nil, err
	}
	subjects, err := r.loadSubjects(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	student.Subjects = subjects[id]
	return &student, nil
}

func (r *StudentRepository) loadSubjects(ctx context.Context, studentIDs []string) (map[string][]models.SubjectEntry, error) {
	query, args, err := sqlx.In(`SELECT id, student_id, position, name, class_score, exam_score, class_entered, exam_entered, component_scores
FROM student_subjects WHERE student_id IN (?) ORDER BY student_id, position`, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("build subject query: %w", err)
	}
	var rows []subjectRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	out := make(map[string][]models.SubjectEntry, len(studentIDs))
	for _, row := range rows {
		entry, err := row.entry()
		if err != nil {
			return nil, err
		}
		out[row.StudentID] = append(out[row.StudentID], entry)
	}
	return out, nil
}

// Save inserts or replaces a student together with its full subject list.
func (r *StudentRepository) Save(ctx context.Context, student *models.StudentRecord) error {
	return r.SaveAll(ctx, []*models.StudentRecord{student})
}

// SaveAll writes every student in one transaction. Nothing is stored if any write fails.
func (r *StudentRepository) SaveAll(ctx context.Context, students []*models.StudentRecord) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.SaveAllTx(ctx, tx, students); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student tx: %w", err)
	}
	return nil
}

// SaveAllTx writes students inside a transaction owned by the caller.
func (r *StudentRepository) SaveAllTx(ctx context.Context, tx *sqlx.Tx, students []*models.StudentRecord) error {
	for _, student := range students {
		if err := saveStudentTx(ctx, tx, student); err != nil {
			return err
		}
	}
	return nil
}

func saveStudentTx(ctx context.Context, tx *sqlx.Tx, student *models.StudentRecord) error {
	const upsert = `INSERT INTO students (` + studentColumns + `)
VALUES (:id, :name, :class_name, :attendance_present, :attendance_total, :remark, :conduct, :interest, :created_at, :updated_at)
ON CONFLICT (id)
DO UPDATE SET name = excluded.name, class_name = excluded.class_name, attendance_present = excluded.attendance_present,
              attendance_total = excluded.attendance_total, remark = excluded.remark, conduct = excluded.conduct,
              interest = excluded.interest, updated_at = excluded.updated_at`
	const insertSubject = `INSERT INTO student_subjects (id, student_id, position, name, class_score, exam_score, class_entered, exam_entered, component_scores)
VALUES (:id, :student_id, :position, :name, :class_score, :exam_score, :class_entered, :exam_entered, :component_scores)`

	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	if _, err := tx.NamedExecContext(ctx, upsert, student); err != nil {
		return fmt.Errorf("save student %s: %w", student.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_subjects WHERE student_id = ?`, student.ID); err != nil {
		return fmt.Errorf("clear subjects for %s: %w", student.ID, err)
	}
	for i := range student.Subjects {
		subject := &student.Subjects[i]
		if subject.ID == "" {
			subject.ID = uuid.NewString()
		}
		scores := subject.ComponentScores
		if scores == nil {
			scores = map[string]float64{}
		}
		encoded, err := json.Marshal(scores)
		if err != nil {
			return fmt.Errorf("encode component scores: %w", err)
		}
		row := subjectRow{
			ID:              subject.ID,
			StudentID:       student.ID,
			Position:        i,
			Name:            subject.Name,
			ClassScore:      subject.ClassScore,
			ExamScore:       subject.ExamScore,
			ClassEntered:    subject.ClassEntered,
			ExamEntered:     subject.ExamEntered,
			ComponentScores: types.JSONText(encoded),
		}
		if _, err := tx.NamedExecContext(ctx, insertSubject, row); err != nil {
			return fmt.Errorf("insert subject %q: %w", subject.Name, err)
		}
	}
	return nil
}

// Delete removes a student and, through the foreign key cascade, its subjects.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteMany removes the listed students and reports how many rows went away.
func (r *StudentRepository) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM students WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("build delete query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete students: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete students rows affected: %w", err)
	}
	return int(affected), nil
}
