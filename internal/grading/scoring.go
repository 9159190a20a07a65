package grading

import (
	"math"
	"strings"

	"github.com/noah-isme/reportcard/internal/models"
)

// PendingRule decides when a subject counts as not yet fully entered.
type PendingRule int

const (
	// PendingZeroUnset treats a zero class or exam score as "not entered".
	PendingZeroUnset PendingRule = iota
	// PendingEnteredFlag relies on the explicit entered flags, so a genuine
	// zero is a real score.
	PendingEnteredFlag
)

// ParsePendingRule maps a config value onto a PendingRule.
func ParsePendingRule(raw string) PendingRule {
	if strings.EqualFold(strings.TrimSpace(raw), "flag") {
		return PendingEnteredFlag
	}
	return PendingZeroUnset
}

func (r PendingRule) String() string {
	if r == PendingEnteredFlag {
		return "flag"
	}
	return "zero"
}

// roundHalfUp rounds to the nearest integer with halves going up. The epsilon
// absorbs float error from summing weighted parts (e.g. 84.49999999999999).
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5 + 1e-9))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ComponentClassScore sums each component's share of ClassScoreMax. The
// result is already on the ClassScoreMax scale; missing entries count as 0.
func ComponentClassScore(scores map[string]float64, library []models.AssessmentComponent) float64 {
	var total float64
	for _, c := range library {
		if c.MaxScore <= 0 {
			continue
		}
		raw := clamp(scores[c.ID], 0, c.MaxScore)
		total += raw / c.MaxScore * c.Weight
	}
	return total
}

// ReconcileComponents brings a stored record in line with new settings after
// the component library changed. Scores of removed components, and scores
// above a component's new maximum, are dropped. When the library is cleared
// the derived class score moves into the raw class score so it is not lost.
// It reports whether the record changed.
func ReconcileComponents(record *models.StudentRecord, previous, current models.SchoolSettings) bool {
	index := componentIndex(current.ComponentLibrary)
	changed := false
	for i := range record.Subjects {
		subject := &record.Subjects[i]
		if !current.UsesComponents() {
			if len(subject.ComponentScores) == 0 {
				continue
			}
			if previous.UsesComponents() && previous.ClassScoreMax > 0 {
				derived := clamp(ComponentClassScore(subject.ComponentScores, previous.ComponentLibrary), 0, float64(previous.ClassScoreMax))
				subject.ClassScore = math.Round(derived/float64(previous.ClassScoreMax)*MaxRawScore*100) / 100
				subject.ClassEntered = true
			}
			subject.ComponentScores = nil
			changed = true
			continue
		}

		kept := make(map[string]float64, len(subject.ComponentScores))
		for id, score := range subject.ComponentScores {
			if component, ok := index[id]; ok && score <= component.MaxScore {
				kept[id] = score
			}
		}
		if len(kept) != len(subject.ComponentScores) {
			changed = true
		}
		subject.ComponentScores = nil
		if len(kept) > 0 {
			subject.ComponentScores = kept
		}
		if entered := len(kept) > 0; entered != subject.ClassEntered {
			subject.ClassEntered = entered
			changed = true
		}
	}
	return changed
}

// ScoreSubject weights one subject's raw scores against the settings maxima.
func ScoreSubject(subject models.SubjectEntry, settings models.SchoolSettings, rule PendingRule) models.SubjectResult {
	var classPart, rawClass float64
	if settings.UsesComponents() {
		classPart = clamp(ComponentClassScore(subject.ComponentScores, settings.ComponentLibrary), 0, float64(settings.ClassScoreMax))
		rawClass = classPart
	} else {
		rawClass = subject.ClassScore
		classPart = clamp(rawClass, 0, MaxRawScore) * float64(settings.ClassScoreMax) / 100
	}
	examPart := clamp(subject.ExamScore, 0, MaxRawScore) * float64(settings.ExamScoreMax) / 100
	total := clamp(classPart+examPart, 0, 100)

	grade := SubjectGrade(total)
	return models.SubjectResult{
		SubjectID:  subject.ID,
		Name:       subject.Name,
		ClassScore: classPart,
		ExamScore:  examPart,
		Total:      total,
		Incomplete: rule.incomplete(subject, rawClass),
		Grade:      grade.Grade,
		Remark:     grade.Remark,
	}
}

func (r PendingRule) incomplete(subject models.SubjectEntry, rawClass float64) bool {
	if r == PendingEnteredFlag {
		return !subject.ClassEntered || !subject.ExamEntered
	}
	return rawClass == 0 || subject.ExamScore == 0
}

// ScoreStudent computes totals, the rounded average and the pending flag.
// ClassPosition is left for Rank.
func ScoreStudent(record models.StudentRecord, settings models.SchoolSettings, rule PendingRule) models.ProcessedStudent {
	processed := models.ProcessedStudent{
		StudentRecord: record,
		Results:       make([]models.SubjectResult, 0, len(record.Subjects)),
		Pending:       len(record.Subjects) == 0,
	}
	for _, subject := range record.Subjects {
		result := ScoreSubject(subject, settings, rule)
		processed.TotalScore += result.Total
		if result.Incomplete {
			processed.Pending = true
		}
		processed.Results = append(processed.Results, result)
	}
	if n := len(record.Subjects); n > 0 {
		processed.AverageScore = roundHalfUp(processed.TotalScore / float64(n))
	}
	return processed
}
