package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/reportcard/internal/models"
)

func TestAggregateExcludesPending(t *testing.T) {
	students := []models.ProcessedStudent{
		{AverageScore: 90, Pending: true},
		{AverageScore: 40},
		{AverageScore: 0, Pending: true},
		{AverageScore: 60},
		{AverageScore: 75},
	}
	stats := Aggregate(students, 0)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Failing)
	assert.Equal(t, 67, stats.PassRate)
	assert.Equal(t, 58, stats.ClassAverage)
	assert.False(t, stats.IsOverCapacity)
}

func TestAggregatePassBoundary(t *testing.T) {
	stats := Aggregate([]models.ProcessedStudent{{AverageScore: 50}, {AverageScore: 49}}, 0)
	assert.Equal(t, 1, stats.Failing)
	assert.Equal(t, 50, stats.PassRate)
	assert.Equal(t, 50, stats.ClassAverage)
	assert.True(t, models.ProcessedStudent{AverageScore: 50}.Passed())
}

func TestAggregateEmptyAndAllPending(t *testing.T) {
	assert.Equal(t, models.ClassStatistics{}, Aggregate(nil, 30))

	stats := Aggregate([]models.ProcessedStudent{{Pending: true}, {Pending: true}}, 0)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 0, stats.PassRate)
	assert.Equal(t, 0, stats.ClassAverage)
}

func TestAggregateOverCapacity(t *testing.T) {
	students := make([]models.ProcessedStudent, 32)
	assert.True(t, Aggregate(students, 30).IsOverCapacity)
	assert.False(t, Aggregate(students, 32).IsOverCapacity)
	assert.False(t, Aggregate(students, 0).IsOverCapacity)
	assert.False(t, Aggregate(make([]models.ProcessedStudent, 500), 0).IsOverCapacity)
}

func TestSubjectSummaries(t *testing.T) {
	students := []models.ProcessedStudent{
		{Results: []models.SubjectResult{{Name: "Maths", Total: 67}, {Name: "Science", Total: 40}}},
		{Results: []models.SubjectResult{{Name: "MATHS", Total: 80}, {Name: "Science", Total: 0, Incomplete: true}}},
		{Results: []models.SubjectResult{{Name: "Maths", Total: 45}}},
	}
	summaries := SubjectSummaries(students)

	assert.Len(t, summaries, 2)
	assert.Equal(t, models.SubjectSummary{Name: "Maths", Entries: 3, Average: 64, Highest: 80, Lowest: 45, Passed: 2}, summaries[0])
	assert.Equal(t, models.SubjectSummary{Name: "Science", Entries: 1, Average: 40, Highest: 40, Lowest: 40, Passed: 0}, summaries[1])
}

func TestTopStudents(t *testing.T) {
	students := []models.ProcessedStudent{
		{StudentRecord: models.StudentRecord{ID: "a"}, ClassPosition: 3},
		{StudentRecord: models.StudentRecord{ID: "b"}, ClassPosition: 1, Pending: true},
		{StudentRecord: models.StudentRecord{ID: "c"}, ClassPosition: 1},
		{StudentRecord: models.StudentRecord{ID: "d"}, ClassPosition: 2},
	}
	top := TopStudents(students, 2)
	assert.Len(t, top, 2)
	assert.Equal(t, "c", top[0].ID)
	assert.Equal(t, "d", top[1].ID)
}
