package models

import "time"

// SchoolLevel enumerates the Ghanaian school levels a roster can belong to.
type SchoolLevel string

const (
	SchoolLevelCreche  SchoolLevel = "CRECHE"
	SchoolLevelNursery SchoolLevel = "NURSERY"
	SchoolLevelKG      SchoolLevel = "KG"
	SchoolLevelPrimary SchoolLevel = "PRIMARY"
	SchoolLevelJHS     SchoolLevel = "JHS"
	SchoolLevelSHS     SchoolLevel = "SHS"
)

// SchoolType distinguishes public and private schools on printed cards.
type SchoolType string

const (
	SchoolTypePublic  SchoolType = "PUBLIC"
	SchoolTypePrivate SchoolType = "PRIVATE"
)

// Term identifies the academic term of the report.
type Term string

const (
	TermFirst  Term = "TERM_1"
	TermSecond Term = "TERM_2"
	TermThird  Term = "TERM_3"
)

// Default score split used when no settings have been saved yet.
const (
	DefaultClassScoreMax = 30
	DefaultExamScoreMax  = 70
)

// SchoolSettings describes the grading scheme and class metadata. The grading
// engine only reads it.
type SchoolSettings struct {
	SchoolName       string                `db:"school_name" json:"schoolName" validate:"max=150"`
	ClassScoreMax    int                   `db:"class_score_max" json:"classScoreMax" validate:"min=10,max=100"`
	ExamScoreMax     int                   `db:"exam_score_max" json:"examScoreMax" validate:"min=10,max=100"`
	ClassSize        int                   `db:"class_size" json:"classSize" validate:"min=0,max=200"`
	ComponentLibrary []AssessmentComponent `db:"-" json:"componentLibrary" validate:"unique=Name,dive"`
	Level            SchoolLevel           `db:"level" json:"level" validate:"omitempty,oneof=CRECHE NURSERY KG PRIMARY JHS SHS"`
	SchoolType       SchoolType            `db:"school_type" json:"schoolType" validate:"omitempty,oneof=PUBLIC PRIVATE"`
	Term             Term                  `db:"term" json:"term" validate:"omitempty,oneof=TERM_1 TERM_2 TERM_3"`
	AcademicYear     string                `db:"academic_year" json:"academicYear" validate:"omitempty,academic_year"`
	UpdatedAt        time.Time             `db:"updated_at" json:"updatedAt"`
}

// AssessmentComponent is a named sub-assessment (e.g. "Class Test") whose
// weight is its share of ClassScoreMax.
type AssessmentComponent struct {
	ID       string  `json:"id"`
	Name     string  `json:"name" validate:"required,max=50"`
	MaxScore float64 `json:"maxScore" validate:"gt=0,lte=1000"`
	Weight   float64 `json:"weight" validate:"gt=0,lte=100"`
}

// DefaultSettings returns the settings used before the user saves any.
func DefaultSettings() SchoolSettings {
	return SchoolSettings{
		ClassScoreMax: DefaultClassScoreMax,
		ExamScoreMax:  DefaultExamScoreMax,
		Level:         SchoolLevelJHS,
		SchoolType:    SchoolTypePublic,
		Term:          TermFirst,
	}
}

// UsesComponents reports whether class scores are derived from the component library.
func (s SchoolSettings) UsesComponents() bool {
	return len(s.ComponentLibrary) > 0
}

// Label renders the term for printed output.
func (t Term) Label() string {
	switch t {
	case TermFirst:
		return "First Term"
	case TermSecond:
		return "Second Term"
	case TermThird:
		return "Third Term"
	default:
		return string(t)
	}
}
