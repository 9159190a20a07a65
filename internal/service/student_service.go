package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/reportcard/internal/grading"
	"github.com/noah-isme/reportcard/internal/models"
	appErrors "github.com/noah-isme/reportcard/pkg/errors"
	"github.com/noah-isme/reportcard/pkg/export"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, error)
	FindByID(ctx context.Context, id string) (*models.StudentRecord, error)
	Save(ctx context.Context, student *models.StudentRecord) error
	SaveAll(ctx context.Context, students []*models.StudentRecord) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int, error)
}

type settingsProvider interface {
	Get(ctx context.Context) (models.SchoolSettings, error)
}

type datasetReader interface {
	Read(r io.Reader) (export.Dataset, error)
}

// Import modes.
const (
	ImportModeAtomic         = "atomic"
	ImportModePartialOnError = "partialOnError"
)

// AddStudentRequest creates a student without subjects.
type AddStudentRequest struct {
	Name      string `json:"name"`
	ClassName string `json:"className"`
}

// UpdateStudentRequest changes student details. Nil fields are left untouched.
type UpdateStudentRequest struct {
	Name              *string `json:"name"`
	ClassName         *string `json:"className"`
	AttendancePresent *int    `json:"attendancePresent"`
	AttendanceTotal   *int    `json:"attendanceTotal"`
	ClearAttendance   bool    `json:"clearAttendance"`
	Remark            *string `json:"remark" validate:"omitempty,max=300"`
	Conduct           *string `json:"conduct" validate:"omitempty,max=100"`
	Interest          *string `json:"interest" validate:"omitempty,max=100"`
}

// SetScoreRequest records scores for one subject. Score fields are the raw
// text typed by the teacher; nil leaves the stored value, "" clears it.
// Components is keyed by component ID or name.
type SetScoreRequest struct {
	StudentID  string            `json:"studentId" validate:"required"`
	Subject    string            `json:"subject"`
	ClassScore *string           `json:"classScore"`
	ExamScore  *string           `json:"examScore"`
	Components map[string]string `json:"components"`
}

// ImportRequest tunes a bulk CSV import.
type ImportRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=atomic partialOnError"`
}

// ImportResult summarises an import.
type ImportResult struct {
	SuccessCount int             `json:"successCount"`
	Created      int             `json:"created"`
	Updated      int             `json:"updated"`
	Failures     []ImportFailure `json:"failures,omitempty"`
}

// ImportFailure describes one rejected CSV line.
type ImportFailure struct {
	Line   int    `json:"line"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// StudentService manages the roster and score entry.
type StudentService struct {
	students  studentRepository
	settings  settingsProvider
	engine    *grading.Engine
	csv       datasetReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(students studentRepository, settings settingsProvider, engine *grading.Engine, csv datasetReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if engine == nil {
		engine = grading.NewEngine(grading.PendingZeroUnset)
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students:  students,
		settings:  settings,
		engine:    engine,
		csv:       csv,
		validator: validate,
		logger:    logger,
	}
}

// List returns the raw roster, optionally restricted to one class.
func (s *StudentService) List(ctx context.Context, className string) ([]models.StudentRecord, error) {
	students, err := s.students.List(ctx, models.StudentFilter{ClassName: strings.TrimSpace(className)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to list students")
	}
	return students, nil
}

// Add creates a new student.
func (s *StudentService) Add(ctx context.Context, req AddStudentRequest) (*models.StudentRecord, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	student := &models.StudentRecord{Name: req.Name, ClassName: req.ClassName}
	if err := grading.NormalizeStudent(student, settings); err != nil {
		return nil, err
	}
	if err := s.students.Save(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to save student")
	}
	s.logger.Info("student added", zap.String("student_id", student.ID), zap.String("class", student.ClassName))
	return student, nil
}

// UpdateDetails changes identity, attendance and remark fields.
func (s *StudentService) UpdateDetails(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid student details")
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	student, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		student.Name = *req.Name
	}
	if req.ClassName != nil {
		student.ClassName = *req.ClassName
	}
	if req.ClearAttendance {
		student.AttendancePresent, student.AttendanceTotal = nil, nil
	}
	if req.AttendancePresent != nil {
		student.AttendancePresent = req.AttendancePresent
	}
	if req.AttendanceTotal != nil {
		student.AttendanceTotal = req.AttendanceTotal
	}
	if req.Remark != nil {
		student.Remark = strings.TrimSpace(*req.Remark)
	}
	if req.Conduct != nil {
		student.Conduct = strings.TrimSpace(*req.Conduct)
	}
	if req.Interest != nil {
		student.Interest = strings.TrimSpace(*req.Interest)
	}
	if err := grading.NormalizeStudent(student, settings); err != nil {
		return nil, err
	}
	if err := s.students.Save(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to save student")
	}
	return student, nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.students.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// CleanPending deletes every student whose results are still pending and
// returns how many were removed.
func (s *StudentService) CleanPending(ctx context.Context) (int, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	roster, err := s.List(ctx, "")
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, student := range s.engine.Process(roster, settings) {
		if student.Pending {
			ids = append(ids, student.ID)
		}
	}
	removed, err := s.students.DeleteMany(ctx, ids)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to delete pending students")
	}
	s.logger.Info("pending students removed", zap.Int("count", removed))
	return removed, nil
}

// SetScore records class, exam or component scores for one subject, adding
// the subject when the student does not have it yet.
func (s *StudentService) SetScore(ctx context.Context, req SetScoreRequest) (*models.StudentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid score payload")
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	student, err := s.load(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	subjectName, err := grading.NormalizeSubjectName(req.Subject)
	if err != nil {
		return nil, err
	}

	idx := student.FindSubject(subjectName)
	entry := models.SubjectEntry{Name: subjectName}
	if idx >= 0 {
		entry = student.Subjects[idx]
		entry.Name = subjectName
	}
	if err := applyScores(&entry, req.ClassScore, req.ExamScore, req.Components, settings); err != nil {
		return nil, err
	}
	if idx >= 0 {
		student.Subjects[idx] = entry
	} else {
		student.Subjects = append(student.Subjects, entry)
	}

	if err := grading.NormalizeStudent(student, settings); err != nil {
		return nil, err
	}
	if err := s.students.Save(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to save scores")
	}
	s.logger.Debug("scores recorded", zap.String("student_id", student.ID), zap.String("subject", subjectName))
	return student, nil
}

// RemoveSubject drops one subject from a student.
func (s *StudentService) RemoveSubject(ctx context.Context, studentID, subject string) (*models.StudentRecord, error) {
	student, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	idx := student.FindSubject(strings.Join(strings.Fields(subject), " "))
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s is not recorded for this student", strings.TrimSpace(subject)))
	}
	student.Subjects = append(student.Subjects[:idx], student.Subjects[idx+1:]...)
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := grading.ValidateStudent(*student, settings); err != nil {
		return nil, err
	}
	if err := s.students.Save(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to save student")
	}
	return student, nil
}

// Import reads CSV rows of name,className[,subject,classScore,examScore] and
// merges them into the roster. Students are matched by name and class,
// ignoring case. In atomic mode any bad row aborts the import; in
// partialOnError mode bad rows are reported and skipped.
func (s *StudentService) Import(ctx context.Context, r io.Reader, req ImportRequest) (*ImportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid import mode")
	}
	mode := req.Mode
	if mode == "" {
		mode = ImportModeAtomic
	}
	data, err := s.csv.Read(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "unreadable import file")
	}
	if !data.HasHeaders("name", "classname") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "import file needs name and className columns")
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	roster, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}

	index := make(map[string]*models.StudentRecord, len(roster))
	for i := range roster {
		index[rosterKey(roster[i].Name, roster[i].ClassName)] = &roster[i]
	}
	existing := make(map[string]bool, len(index))
	for key := range index {
		existing[key] = true
	}

	result := &ImportResult{}
	var order []string
	touched := make(map[string]bool)
	for i, row := range data.Rows {
		line := data.Line(i)
		record, err := importRow(row, settings, index)
		if err != nil {
			result.Failures = append(result.Failures, ImportFailure{Line: line, Name: row["name"], Reason: appErrors.FromError(err).Error()})
			continue
		}
		key := rosterKey(record.Name, record.ClassName)
		index[key] = record
		if !touched[key] {
			touched[key] = true
			order = append(order, key)
		}
		result.SuccessCount++
	}

	if len(result.Failures) > 0 && mode == ImportModeAtomic {
		fields := make(map[string]string, len(result.Failures))
		for _, failure := range result.Failures {
			fields[fmt.Sprintf("line %d", failure.Line)] = failure.Reason
		}
		return result, appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "import rejected, nothing was saved"), fields)
	}
	if len(order) == 0 {
		return result, nil
	}

	records := make([]*models.StudentRecord, 0, len(order))
	for _, key := range order {
		records = append(records, index[key])
		if existing[key] {
			result.Updated++
		} else {
			result.Created++
		}
	}
	if err := s.students.SaveAll(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to save imported students")
	}
	s.logger.Info("students imported",
		zap.String("mode", mode),
		zap.Int("rows", result.SuccessCount),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("failures", len(result.Failures)),
	)
	return result, nil
}

func (s *StudentService) load(ctx context.Context, id string) (*models.StudentRecord, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to load student")
	}
	return student, nil
}

func rosterKey(name, className string) string {
	return strings.ToLower(name) + "\x00" + strings.ToLower(className)
}

// importRow applies one CSV row to a copy of the matching student so a
// rejected row leaves the roster untouched.
func importRow(row map[string]string, settings models.SchoolSettings, index map[string]*models.StudentRecord) (*models.StudentRecord, error) {
	name, err := grading.NormalizeStudentName(row["name"])
	if err != nil {
		return nil, err
	}
	className, err := grading.NormalizeClassName(row["classname"])
	if err != nil {
		return nil, err
	}

	record := &models.StudentRecord{Name: name, ClassName: className}
	if current, ok := index[rosterKey(name, className)]; ok {
		clone := *current
		clone.Subjects = append([]models.SubjectEntry(nil), current.Subjects...)
		record = &clone
	}

	if raw := strings.TrimSpace(row["subject"]); raw != "" {
		subjectName, err := grading.NormalizeSubjectName(raw)
		if err != nil {
			return nil, err
		}
		idx := record.FindSubject(subjectName)
		entry := models.SubjectEntry{Name: subjectName}
		if idx >= 0 {
			entry = record.Subjects[idx]
		}
		if err := applyScores(&entry, cell(row, "classscore"), cell(row, "examscore"), nil, settings); err != nil {
			return nil, err
		}
		if idx >= 0 {
			record.Subjects[idx] = entry
		} else {
			record.Subjects = append(record.Subjects, entry)
		}
	}

	if err := grading.NormalizeStudent(record, settings); err != nil {
		return nil, err
	}
	return record, nil
}

func cell(row map[string]string, header string) *string {
	value, ok := row[header]
	if !ok {
		return nil
	}
	return &value
}

// applyScores parses score text into entry. Raw scores use the 0-100 entry
// scale; component scores are bounded by the component's own maximum. While a
// component library is configured the class score is derived from it, so raw
// class score text is rejected and a blank one is ignored.
func applyScores(entry *models.SubjectEntry, classText, examText *string, components map[string]string, settings models.SchoolSettings) error {
	if classText != nil && settings.UsesComponents() {
		if strings.TrimSpace(*classText) != "" {
			return appErrors.WithField(appErrors.ErrValidation, entry.Name+".classScore",
				"class score is computed from the assessment components; enter component scores instead")
		}
		classText = nil
	}
	if classText != nil {
		value, err := grading.ParseScore(*classText, grading.MaxRawScore)
		if err != nil {
			return pinField(err, entry.Name+".classScore")
		}
		entry.ClassScore = value
		entry.ClassEntered = strings.TrimSpace(*classText) != ""
	}
	if examText != nil {
		value, err := grading.ParseScore(*examText, grading.MaxRawScore)
		if err != nil {
			return pinField(err, entry.Name+".examScore")
		}
		entry.ExamScore = value
		entry.ExamEntered = strings.TrimSpace(*examText) != ""
	}
	if len(components) == 0 {
		return nil
	}

	keys := make([]string, 0, len(components))
	for key := range components {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	scores := make(map[string]float64, len(entry.ComponentScores)+len(components))
	for id, v := range entry.ComponentScores {
		scores[id] = v
	}
	for _, key := range keys {
		component, ok := findComponent(settings.ComponentLibrary, key)
		if !ok {
			return appErrors.WithField(appErrors.ErrValidation, entry.Name+".components", fmt.Sprintf("unknown component %s", key))
		}
		text := components[key]
		if strings.TrimSpace(text) == "" {
			delete(scores, component.ID)
			continue
		}
		value, err := grading.ParseScore(text, component.MaxScore)
		if err != nil {
			return pinField(err, entry.Name+"."+component.Name)
		}
		scores[component.ID] = value
	}
	entry.ComponentScores = nil
	if len(scores) > 0 {
		entry.ComponentScores = scores
	}
	entry.ClassEntered = len(scores) > 0
	return nil
}

func findComponent(library []models.AssessmentComponent, key string) (models.AssessmentComponent, bool) {
	for _, c := range library {
		if c.ID == key || strings.EqualFold(c.Name, strings.TrimSpace(key)) {
			return c, true
		}
	}
	return models.AssessmentComponent{}, false
}

func pinField(err error, field string) error {
	appErr := appErrors.FromError(err)
	return appErrors.WithField(appErr, field, appErr.Message)
}
