package reports

import (
	"math"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/roster"
)

// Percent returns part/total as a percentage rounded to two decimals,
// or 0 when total is zero. Every rate in the reporting engine goes
// through this; it never divides by zero.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

// Filters narrows range-based reports.
type Filters struct {
	Cohort    string
	TeacherID string
	Status    attendance.Status
}

// Tally is a per-student status count over some window.
type Tally struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Excused int `json:"excused"`
}

// Snapshot is the daily report: counts over records marked for one
// date. Unmarked students are invisible to the rate, not counted as
// absent.
type Snapshot struct {
	Date    time.Time `json:"date"`
	Marked  int       `json:"marked"`
	Present int       `json:"present"`
	Absent  int       `json:"absent"`
	Rate    float64   `json:"rate"`
}

// DayCell is one student-day in the monthly calendar.
type DayCell struct {
	Status  attendance.Status `json:"status"`
	Remarks string            `json:"remarks,omitempty"`
}

// StudentCalendar is one student's month: day-of-month cells plus
// totals.
type StudentCalendar struct {
	Student     roster.Student  `json:"student"`
	Days        map[int]DayCell `json:"days"`
	TotalDays   int             `json:"total_days"`
	PresentDays int             `json:"present_days"`
	Percentage  float64         `json:"percentage"`
}

// CalendarReport is the monthly calendar view for a scope.
type CalendarReport struct {
	Year      int               `json:"year"`
	Month     int               `json:"month"`
	MonthName string            `json:"month_name"`
	Grid      [][]int           `json:"grid"`
	Students  []StudentCalendar `json:"students"`
	Nav       MonthNav          `json:"nav"`
}

// StudentStat is one leaderboard row in the detailed report.
type StudentStat struct {
	Student    roster.Student `json:"student"`
	Total      int            `json:"total"`
	Present    int            `json:"present"`
	Percentage float64        `json:"percentage"`
}

// Breakdown is the four-status aggregate with percentages.
type Breakdown struct {
	Total             int     `json:"total_records"`
	Present           int     `json:"present"`
	Absent            int     `json:"absent"`
	Late              int     `json:"late"`
	Excused           int     `json:"excused"`
	PresentPercentage float64 `json:"present_percentage"`
	AbsentPercentage  float64 `json:"absent_percentage"`
	LatePercentage    float64 `json:"late_percentage"`
	ExcusedPercentage float64 `json:"excused_percentage"`
}

func breakdownFrom(counts map[attendance.Status]int) Breakdown {
	b := Breakdown{
		Present: counts[attendance.StatusPresent],
		Absent:  counts[attendance.StatusAbsent],
		Late:    counts[attendance.StatusLate],
		Excused: counts[attendance.StatusExcused],
	}
	b.Total = b.Present + b.Absent + b.Late + b.Excused
	b.PresentPercentage = Percent(b.Present, b.Total)
	b.AbsentPercentage = Percent(b.Absent, b.Total)
	b.LatePercentage = Percent(b.Late, b.Total)
	b.ExcusedPercentage = Percent(b.Excused, b.Total)
	return b
}

// DetailedReport is the range-filtered report: matching records, the
// status breakdown, and a bounded per-student leaderboard.
type DetailedReport struct {
	StartDate   time.Time           `json:"start_date"`
	EndDate     time.Time           `json:"end_date"`
	Records     []attendance.Record `json:"records"`
	Breakdown   Breakdown           `json:"breakdown"`
	Leaderboard []StudentStat       `json:"leaderboard"`
}

// MonthlyRow is one student's month in the summary report.
type MonthlyRow struct {
	Student    roster.Student `json:"student"`
	Tally      Tally          `json:"tally"`
	Percentage float64        `json:"percentage"`
}

// MonthlySummary aggregates a month across the whole scope. AvgPercentage
// is the mean of per-student percentages; OverallPercentage is ledger-wide
// present / days-recorded. The two are deliberately different formulas.
type MonthlySummary struct {
	Year              int          `json:"year"`
	Month             int          `json:"month"`
	MonthName         string       `json:"month_name"`
	Rows              []MonthlyRow `json:"rows"`
	TotalStudents     int          `json:"total_students"`
	AvgPercentage     float64      `json:"avg_percentage"`
	OverallPercentage float64      `json:"overall_percentage"`
	TotalPresent      int          `json:"total_present"`
	TotalAbsent       int          `json:"total_absent"`
	TotalLate         int          `json:"total_late"`
	TotalExcused      int          `json:"total_excused"`
	Nav               MonthNav     `json:"nav"`
}

// StudentReport is the per-student report: the ordered record list plus
// the status breakdown for the window.
type StudentReport struct {
	Student   roster.Student      `json:"student"`
	Records   []attendance.Record `json:"records"`
	Breakdown Breakdown           `json:"breakdown"`
}

// DayStat is one day's aggregate in the analytics report.
type DayStat struct {
	Day        int       `json:"day"`
	Date       time.Time `json:"date"`
	Total      int       `json:"total"`
	Present    int       `json:"present"`
	Percentage float64   `json:"percentage"`
}

// Analytics is the per-day and status-distribution view of one month.
type Analytics struct {
	Year          int                       `json:"year"`
	Month         int                       `json:"month"`
	Days          []DayStat                 `json:"days"`
	StatusCounts  map[attendance.Status]int `json:"status_counts"`
	TotalStudents int                       `json:"total_students"`
	TotalRecords  int                       `json:"total_records"`
}

// AssignedStudent is a roster row annotated with lifetime attendance.
type AssignedStudent struct {
	Student    roster.Student `json:"student"`
	Total      int            `json:"total_attendance"`
	Present    int            `json:"present_count"`
	Percentage float64        `json:"attendance_percentage"`
}

// APIReport is the aggregate object served by the JSON API.
type APIReport struct {
	Date           string  `json:"date"`
	TotalStudents  int     `json:"total_students"`
	PresentToday   int     `json:"present_today"`
	AbsentToday    int     `json:"absent_today"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// Dashboard is the role-specific landing summary.
type Dashboard struct {
	Type          string              `json:"type"` // admin, hod or teacher
	TotalStudents int                 `json:"total_students"`
	TotalTeachers int                 `json:"total_teachers,omitempty"`
	CohortStats   map[string]int      `json:"cohort_stats,omitempty"`
	PresentToday  int                 `json:"present_today"`
	AbsentToday   int                 `json:"absent_today,omitempty"`
	LateToday     int                 `json:"late_today,omitempty"`
	Percentage    float64             `json:"attendance_percentage"`
	CohortName    string              `json:"cohort_name,omitempty"`
	Recent        []attendance.Record `json:"recent_attendance,omitempty"`
	Message       string              `json:"message,omitempty"`
}
