// Package grading turns raw student records into scored, ranked and
// aggregated results. Everything here is pure: callers pass the full roster
// and settings on every call and get fresh values back.
package grading

import (
	"github.com/noah-isme/reportcard/internal/models"
)

// Engine runs the score -> rank -> aggregate pipeline.
type Engine struct {
	rule PendingRule
}

// NewEngine constructs an Engine with the given pending rule.
func NewEngine(rule PendingRule) *Engine {
	return &Engine{rule: rule}
}

// Process scores and ranks every record of the roster. Input records are not
// modified.
func (e *Engine) Process(records []models.StudentRecord, settings models.SchoolSettings) []models.ProcessedStudent {
	students := make([]models.ProcessedStudent, 0, len(records))
	for _, record := range records {
		students = append(students, ScoreStudent(record, settings, e.rule))
	}
	Rank(students)
	RankSubjects(students)
	return students
}

// Statistics runs Process followed by Aggregate.
func (e *Engine) Statistics(records []models.StudentRecord, settings models.SchoolSettings) ([]models.ProcessedStudent, models.ClassStatistics) {
	students := e.Process(records, settings)
	return students, Aggregate(students, settings.ClassSize)
}

// PassLabel renders the derived Pass/Fail string used in exports.
func PassLabel(average int) string {
	if average >= models.PassMark {
		return "Pass"
	}
	return "Fail"
}
