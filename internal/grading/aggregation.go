package grading

import (
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/reportcard/internal/models"
)

// Aggregate derives the class snapshot. Pending students count towards Total
// and Pending only; pass/fail and the class average use completed students.
func Aggregate(students []models.ProcessedStudent, classSize int) models.ClassStatistics {
	stats := models.ClassStatistics{Total: len(students)}
	var completed, sum int
	for _, s := range students {
		if s.Pending {
			stats.Pending++
			continue
		}
		completed++
		sum += s.AverageScore
		if !s.Passed() {
			stats.Failing++
		}
	}
	if completed > 0 {
		stats.PassRate = roundHalfUp(float64(completed-stats.Failing) / float64(completed) * 100)
		stats.ClassAverage = roundHalfUp(float64(sum) / float64(completed))
	}
	stats.IsOverCapacity = classSize > 0 && stats.Total > classSize
	return stats
}

// SubjectSummaries aggregates each subject over its completed entries, in
// order of first appearance.
func SubjectSummaries(students []models.ProcessedStudent) []models.SubjectSummary {
	index := make(map[string]int)
	var summaries []models.SubjectSummary
	for _, s := range students {
		for _, r := range s.Results {
			if r.Incomplete {
				continue
			}
			key := strings.ToLower(r.Name)
			i, ok := index[key]
			if !ok {
				i = len(summaries)
				index[key] = i
				summaries = append(summaries, models.SubjectSummary{Name: r.Name, Highest: r.Total, Lowest: r.Total})
			}
			summary := &summaries[i]
			summary.Entries++
			summary.Average += r.Total
			summary.Highest = math.Max(summary.Highest, r.Total)
			summary.Lowest = math.Min(summary.Lowest, r.Total)
			if r.Total >= models.PassMark {
				summary.Passed++
			}
		}
	}
	for i := range summaries {
		summaries[i].Average = math.Round(summaries[i].Average/float64(summaries[i].Entries)*100) / 100
	}
	return summaries
}

// TopStudents returns up to n completed students ordered by position.
func TopStudents(students []models.ProcessedStudent, n int) []models.ProcessedStudent {
	top := make([]models.ProcessedStudent, 0, n)
	for _, s := range students {
		if !s.Pending {
			top = append(top, s)
		}
	}
	sort.SliceStable(top, func(a, b int) bool {
		return top[a].ClassPosition < top[b].ClassPosition
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}
