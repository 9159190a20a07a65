package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/reportcard/internal/models"
)

func withAverages(averages ...int) []models.ProcessedStudent {
	students := make([]models.ProcessedStudent, len(averages))
	for i, avg := range averages {
		students[i].AverageScore = avg
	}
	return students
}

func positionsOf(students []models.ProcessedStudent) []int {
	out := make([]int, len(students))
	for i, s := range students {
		out[i] = s.ClassPosition
	}
	return out
}

func TestRankCompetition(t *testing.T) {
	tests := []struct {
		name     string
		averages []int
		want     []int
	}{
		{name: "tie at top", averages: []int{90, 90, 80}, want: []int{1, 1, 3}},
		{name: "input order preserved", averages: []int{80, 90, 90}, want: []int{3, 1, 1}},
		{name: "tie group skips", averages: []int{70, 80, 80, 80, 60}, want: []int{4, 1, 1, 1, 5}},
		{name: "zero averages tie", averages: []int{0, 55, 0}, want: []int{2, 1, 2}},
		{name: "single", averages: []int{42}, want: []int{1}},
		{name: "empty", averages: []int{}, want: []int{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			students := withAverages(tc.averages...)
			Rank(students)
			assert.Equal(t, tc.want, positionsOf(students))
		})
	}
}

func TestRankIsRepeatable(t *testing.T) {
	students := withAverages(65, 72, 65, 90, 0)
	Rank(students)
	first := positionsOf(students)
	Rank(students)
	assert.Equal(t, first, positionsOf(students))
}

func TestRankSubjects(t *testing.T) {
	students := []models.ProcessedStudent{
		{Results: []models.SubjectResult{{Name: "Maths", Total: 67}, {Name: "Science", Total: 50}}},
		{Results: []models.SubjectResult{{Name: "maths", Total: 80}, {Name: "Science", Total: 50}}},
		{Results: []models.SubjectResult{{Name: "Maths", Total: 90, Incomplete: true}, {Name: "Science", Total: 45}}},
	}
	RankSubjects(students)

	assert.Equal(t, 2, students[0].Results[0].Position)
	assert.Equal(t, 1, students[1].Results[0].Position)
	assert.Equal(t, 0, students[2].Results[0].Position)

	assert.Equal(t, 1, students[0].Results[1].Position)
	assert.Equal(t, 1, students[1].Results[1].Position)
	assert.Equal(t, 3, students[2].Results[1].Position)
}
