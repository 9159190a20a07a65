package models

import (
	"strings"
	"time"
)

// StudentRecord is one learner's identity and raw subject entries as persisted.
type StudentRecord struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	ClassName         string         `db:"class_name" json:"className"`
	Subjects          []SubjectEntry `db:"-" json:"subjects"`
	AttendancePresent *int           `db:"attendance_present" json:"attendancePresent,omitempty"`
	AttendanceTotal   *int           `db:"attendance_total" json:"attendanceTotal,omitempty"`
	Remark            string         `db:"remark" json:"remark,omitempty"`
	Conduct           string         `db:"conduct" json:"conduct,omitempty"`
	Interest          string         `db:"interest" json:"interest,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updatedAt"`
}

// SubjectEntry holds raw class and exam scores on the 0-100 entry scale.
// ComponentScores is keyed by AssessmentComponent.ID and is only read when the
// settings carry a component library.
type SubjectEntry struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	ClassScore      float64            `json:"classScore"`
	ExamScore       float64            `json:"examScore"`
	ClassEntered    bool               `json:"classEntered"`
	ExamEntered     bool               `json:"examEntered"`
	ComponentScores map[string]float64 `json:"componentScores,omitempty"`
}

// FindSubject returns the index of the subject with the given name, ignoring case.
func (r StudentRecord) FindSubject(name string) int {
	for i, subject := range r.Subjects {
		if strings.EqualFold(subject.Name, name) {
			return i
		}
	}
	return -1
}

// StudentFilter narrows roster queries.
type StudentFilter struct {
	ClassName string
}
