package models

// PassMark is the lowest average (inclusive) that counts as a pass.
const PassMark = 50

// SubjectResult is the scored form of one SubjectEntry.
type SubjectResult struct {
	SubjectID  string  `json:"subjectId"`
	Name       string  `json:"name"`
	ClassScore float64 `json:"classScore"`
	ExamScore  float64 `json:"examScore"`
	Total      float64 `json:"total"`
	Incomplete bool    `json:"incomplete"`
	Grade      int     `json:"grade"`
	Remark     string  `json:"remark"`
	Position   int     `json:"position,omitempty"`
}

// ProcessedStudent is a StudentRecord enriched with computed fields. It is
// recomputed on every read and never persisted.
type ProcessedStudent struct {
	StudentRecord
	Results       []SubjectResult `json:"results"`
	TotalScore    float64         `json:"totalScore"`
	AverageScore  int             `json:"averageScore"`
	ClassPosition int             `json:"classPosition"`
	Pending       bool            `json:"pending"`
}

// Passed reports whether the average meets the pass mark.
func (p ProcessedStudent) Passed() bool {
	return p.AverageScore >= PassMark
}

// ClassStatistics is the class-wide snapshot used by dashboards.
type ClassStatistics struct {
	Total          int  `json:"total"`
	Pending        int  `json:"pending"`
	Failing        int  `json:"failing"`
	PassRate       int  `json:"passRate"`
	ClassAverage   int  `json:"classAverage"`
	IsOverCapacity bool `json:"isOverCapacity"`
}

// SubjectSummary aggregates one subject across the roster's completed entries.
type SubjectSummary struct {
	Name    string  `json:"name"`
	Entries int     `json:"entries"`
	Average float64 `json:"average"`
	Highest float64 `json:"highest"`
	Lowest  float64 `json:"lowest"`
	Passed  int     `json:"passed"`
}

// Dashboard bundles the class snapshot with analytics.
type Dashboard struct {
	ClassName   string             `json:"className,omitempty"`
	Statistics  ClassStatistics    `json:"statistics"`
	TopStudents []ProcessedStudent `json:"topStudents"`
	Subjects    []SubjectSummary   `json:"subjects"`
}

// ReportCard is everything printed for one learner.
type ReportCard struct {
	Settings   SchoolSettings   `json:"settings"`
	Student    ProcessedStudent `json:"student"`
	RosterSize int              `json:"rosterSize"`
	Attendance string           `json:"attendance,omitempty"`
	PassOrFail string           `json:"passOrFail"`
}
