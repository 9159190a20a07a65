package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/reportcard/internal/models"
)

func sampleRoster() []models.StudentRecord {
	return []models.StudentRecord{
		{ID: "1", Name: "Kofi Mensah", ClassName: "JHS 1", Subjects: []models.SubjectEntry{
			{ID: "1a", Name: "Mathematics", ClassScore: 80, ExamScore: 90},
			{ID: "1b", Name: "Science", ClassScore: 70, ExamScore: 60},
		}},
		{ID: "2", Name: "Ama Serwaa", ClassName: "JHS 1", Subjects: []models.SubjectEntry{
			{ID: "2a", Name: "Mathematics", ClassScore: 80, ExamScore: 90},
			{ID: "2b", Name: "Science", ClassScore: 70, ExamScore: 60},
		}},
		{ID: "3", Name: "Yaw Darko", ClassName: "JHS 1", Subjects: []models.SubjectEntry{
			{ID: "3a", Name: "Mathematics", ClassScore: 40, ExamScore: 30},
		}},
		{ID: "4", Name: "Efua Asante", ClassName: "JHS 1", Subjects: []models.SubjectEntry{
			{ID: "4a", Name: "Mathematics", ClassScore: 0, ExamScore: 95},
		}},
		{ID: "5", Name: "Kwame Owusu", ClassName: "JHS 1"},
	}
}

func TestEngineProcess(t *testing.T) {
	settings := models.DefaultSettings()
	settings.ClassSize = 4
	engine := NewEngine(PendingZeroUnset)

	students, stats := engine.Statistics(sampleRoster(), settings)
	require.Len(t, students, 5)

	// 87 and 63 -> 150 / 2 = 75
	assert.Equal(t, 75, students[0].AverageScore)
	assert.Equal(t, 75, students[1].AverageScore)
	assert.Equal(t, 33, students[2].AverageScore)
	assert.Equal(t, 67, students[3].AverageScore)
	assert.Equal(t, 0, students[4].AverageScore)

	assert.Equal(t, []int{1, 1, 4, 3, 5}, positionsOf(students))
	assert.True(t, students[3].Pending)
	assert.True(t, students[4].Pending)

	assert.Equal(t, models.ClassStatistics{Total: 5, Pending: 2, Failing: 1, PassRate: 67, ClassAverage: 61, IsOverCapacity: true}, stats)
	assert.Equal(t, 1, students[0].Results[0].Position)
	assert.Equal(t, 3, students[2].Results[0].Position)
}

func TestEngineProcessIsPure(t *testing.T) {
	settings := models.DefaultSettings()
	engine := NewEngine(PendingZeroUnset)
	roster := sampleRoster()
	snapshot := sampleRoster()

	first, firstStats := engine.Statistics(roster, settings)
	second, secondStats := engine.Statistics(roster, settings)

	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)
	assert.Equal(t, snapshot, roster)
}

func TestEngineRuleChangesPending(t *testing.T) {
	settings := models.DefaultSettings()
	roster := []models.StudentRecord{{Name: "Abena", Subjects: []models.SubjectEntry{
		{Name: "French", ClassScore: 50, ExamScore: 0, ClassEntered: true, ExamEntered: true},
	}}}

	_, zeroStats := NewEngine(PendingZeroUnset).Statistics(roster, settings)
	_, flagStats := NewEngine(PendingEnteredFlag).Statistics(roster, settings)

	assert.Equal(t, 1, zeroStats.Pending)
	assert.Equal(t, 0, flagStats.Pending)
	assert.Equal(t, 1, flagStats.Failing)
}

func TestPassLabel(t *testing.T) {
	assert.Equal(t, "Pass", PassLabel(50))
	assert.Equal(t, "Fail", PassLabel(49))
	assert.Equal(t, "Pass", PassLabel(100))
}
