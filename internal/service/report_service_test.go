package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/reportcard/internal/grading"
	"github.com/noah-isme/reportcard/internal/models"
	appErrors "github.com/noah-isme/reportcard/pkg/errors"
)

type recomputeRecorder struct {
	calls int
	last  models.ClassStatistics
}

func (r *recomputeRecorder) ObserveRecompute(elapsed time.Duration, stats models.ClassStatistics) {
	r.calls++
	r.last = stats
}

func reportRoster() []models.StudentRecord {
	return []models.StudentRecord{
		{Name: "Kofi Mensah", ClassName: "JHS 1", AttendancePresent: intRef(58), AttendanceTotal: intRef(60), Subjects: []models.SubjectEntry{
			{Name: "Mathematics", ClassScore: 80, ExamScore: 90},
			{Name: "Science", ClassScore: 70, ExamScore: 60},
		}},
		{Name: "Ama Serwaa", ClassName: "JHS 1", Subjects: []models.SubjectEntry{
			{Name: "Mathematics", ClassScore: 40, ExamScore: 30},
		}},
		{Name: "Yaw Darko", ClassName: "JHS 1"},
		{Name: "Esi Owusu", ClassName: "JHS 2", Subjects: []models.SubjectEntry{
			{Name: "Mathematics", ClassScore: 100, ExamScore: 100},
		}},
	}
}

func newReportFixture(t *testing.T) (*ReportService, *studentRepoMock, *recomputeRecorder) {
	t.Helper()
	repo := newStudentRepoMock(reportRoster()...)
	settings := models.DefaultSettings()
	settings.ClassSize = 2
	recorder := &recomputeRecorder{}
	svc := NewReportService(repo, staticSettings{settings: settings}, grading.NewEngine(grading.PendingZeroUnset), recorder, nil)
	return svc, repo, recorder
}

func TestReportServiceRosterByClass(t *testing.T) {
	svc, _, recorder := newReportFixture(t)

	students, err := svc.Roster(context.Background(), "jhs 1")
	require.NoError(t, err)
	require.Len(t, students, 3)
	assert.Equal(t, 75, students[0].AverageScore)
	assert.Equal(t, 1, students[0].ClassPosition)
	assert.Equal(t, 2, students[1].ClassPosition)
	assert.True(t, students[2].Pending)
	assert.Equal(t, 1, recorder.calls)

	all, err := svc.Roster(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 1, all[3].ClassPosition)
	assert.Equal(t, 2, all[0].ClassPosition)
}

func TestReportServiceStatistics(t *testing.T) {
	svc, _, recorder := newReportFixture(t)

	stats, err := svc.Statistics(context.Background(), "JHS 1")
	require.NoError(t, err)
	assert.Equal(t, models.ClassStatistics{Total: 3, Pending: 1, Failing: 1, PassRate: 50, ClassAverage: 54, IsOverCapacity: true}, stats)
	assert.Equal(t, stats, recorder.last)
}

func TestReportServiceDashboard(t *testing.T) {
	svc, _, _ := newReportFixture(t)

	dashboard, err := svc.Dashboard(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, dashboard.TopStudents, 3)
	assert.Equal(t, "Esi Owusu", dashboard.TopStudents[0].Name)
	require.Len(t, dashboard.Subjects, 2)
	assert.Equal(t, "Mathematics", dashboard.Subjects[0].Name)
	assert.Equal(t, 3, dashboard.Subjects[0].Entries)
}

func TestReportServiceReportCard(t *testing.T) {
	svc, repo, _ := newReportFixture(t)
	kofi := repo.order[0]

	card, err := svc.ReportCard(context.Background(), kofi)
	require.NoError(t, err)
	assert.Equal(t, "Kofi Mensah", card.Student.Name)
	assert.Equal(t, 3, card.RosterSize)
	assert.Equal(t, "58 / 60", card.Attendance)
	assert.Equal(t, "Pass", card.PassOrFail)
	assert.Equal(t, 1, card.Student.Results[0].Grade)

	_, err = svc.ReportCard(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
