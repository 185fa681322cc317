package attendance

import "time"

// Status is a persisted attendance state. The absence of a record is a
// distinct "unmarked" state, not a status value.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// Statuses lists every persisted status value.
var Statuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

// ValidStatus reports whether s is a persisted status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

// Record is one ledger row: exactly one per (student, date). Display
// fields are joined from the student and marking account.
type Record struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"student_id"` // student row uuid
	Date         time.Time `json:"date"`
	Status       Status    `json:"status"`
	Remarks      string    `json:"remarks"`
	MarkedBy     string    `json:"marked_by,omitempty"` // empty when the marker was deleted
	MarkedByName string    `json:"marked_by_name,omitempty"`
	StudentCode  string    `json:"student_code"`
	StudentName  string    `json:"student_name"`
	Cohort       string    `json:"cohort"`
	TeacherName  string    `json:"teacher_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Entry is one submitted mark in a bulk marking request.
type Entry struct {
	Status  Status `json:"status"`
	Remarks string `json:"remarks"`
}

// DateOnly normalizes t to a calendar date (midnight UTC), the key
// granularity of the ledger.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
