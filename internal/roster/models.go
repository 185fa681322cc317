package roster

import (
	"time"
)

// Student is a directory entry. ClassTeacher holds the assigned account
// id and is empty for unassigned students.
type Student struct {
	ID           string     `json:"id"`
	StudentID    string     `json:"student_id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Cohort       string     `json:"cohort"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Address      string     `json:"address,omitempty"`
	ClassTeacher string     `json:"class_teacher,omitempty"`
	TeacherName  string     `json:"teacher_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FullName returns "First Last".
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Filters narrows student list queries.
type Filters struct {
	Search string // matches student_id, first/last name, email
	Cohort string
}

// CohortStat summarizes teacher assignment for one cohort.
type CohortStat struct {
	Cohort     string `json:"cohort"`
	CohortName string `json:"cohort_name"`
	Total      int    `json:"total"`
	Assigned   int    `json:"assigned"`
	Unassigned int    `json:"unassigned"`
	Teacher    string `json:"teacher"`
}
