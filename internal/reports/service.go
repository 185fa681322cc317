package reports

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/identity"
	"rollcall/internal/store"
)

// leaderboardSample bounds the per-student leaderboard in the detailed
// report.
const leaderboardSample = 20

// detailedRecordLimit bounds the record list in the detailed report.
const detailedRecordLimit = 50

// TeacherCounter supplies the teacher count for the admin dashboard.
type TeacherCounter interface {
	CountTeachers(ctx context.Context) (int, error)
}

// Service computes read-only statistics over the attendance ledger,
// scoped by role.
type Service struct {
	repo     Repository
	teachers TeacherCounter
	cache    *store.Redis
	cacheTTL time.Duration
	now      func() time.Time
}

// NewService creates a service. cache may be nil; now defaults to time.Now.
func NewService(repo Repository, teachers TeacherCounter, cache *store.Redis, cacheTTL time.Duration, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, teachers: teachers, cache: cache, cacheTTL: cacheTTL, now: now}
}

// Daily returns the snapshot for one date. The denominator is records
// marked for that date, so an unmarked student does not count as absent.
func (s *Service) Daily(ctx context.Context, p identity.Principal, date time.Time) (*Snapshot, error) {
	scope, err := identity.ScopeFor(p, false)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.StatusCountsForDate(ctx, scope, date)
	if err != nil {
		return nil, err
	}
	marked := 0
	for _, n := range counts {
		marked += n
	}
	return &Snapshot{
		Date:    attendance.DateOnly(date),
		Marked:  marked,
		Present: counts[attendance.StatusPresent],
		Absent:  counts[attendance.StatusAbsent],
		Rate:    Percent(counts[attendance.StatusPresent], marked),
	}, nil
}

// Calendar returns the monthly calendar for the scope: the week grid
// plus each in-scope student's day map and totals.
func (s *Service) Calendar(ctx context.Context, p identity.Principal, year int, month time.Month) (*CalendarReport, error) {
	scope, err := identity.ScopeFor(p, false)
	if err != nil {
		return nil, err
	}
	students, err := s.repo.Students(ctx, scope)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.MonthRecords(ctx, scope, year, month)
	if err != nil {
		return nil, err
	}

	byStudent := make(map[string][]attendance.Record)
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	report := &CalendarReport{
		Year:      year,
		Month:     int(month),
		MonthName: month.String(),
		Grid:      MonthGrid(year, month),
		Nav:       monthNav(year, month, s.now().Year()),
	}
	for _, st := range students {
		cal := StudentCalendar{Student: st, Days: make(map[int]DayCell)}
		for _, rec := range byStudent[st.ID] {
			cal.Days[rec.Date.Day()] = DayCell{Status: rec.Status, Remarks: rec.Remarks}
			cal.TotalDays++
			if rec.Status == attendance.StatusPresent {
				cal.PresentDays++
			}
		}
		cal.Percentage = Percent(cal.PresentDays, cal.TotalDays)
		report.Students = append(report.Students, cal)
	}
	return report, nil
}

// Detailed returns the range-filtered report: matching records capped
// for display, the four-status breakdown over the full match, and a
// bounded leaderboard of per-student percentages, descending with
// stable ties.
func (s *Service) Detailed(ctx context.Context, p identity.Principal, from, to time.Time, f Filters) (*DetailedReport, error) {
	scope, err := identity.ScopeFor(p, false)
	if err != nil {
		return nil, err
	}
	if !scope.All {
		// Teachers cannot reach outside their scope via filters.
		f.Cohort = ""
		f.TeacherID = ""
	}

	records, err := s.repo.RecordsInRange(ctx, scope, &from, &to, f, detailedRecordLimit)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.RangeStatusCounts(ctx, scope, &from, &to, f)
	if err != nil {
		return nil, err
	}
	tallies, err := s.repo.RangeStudentTallies(ctx, scope, &from, &to, f)
	if err != nil {
		return nil, err
	}
	students, err := s.repo.Students(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(students) > leaderboardSample {
		students = students[:leaderboardSample]
	}

	var board []StudentStat
	for _, st := range students {
		t := tallies[st.ID]
		board = append(board, StudentStat{
			Student:    st,
			Total:      t.Total,
			Present:    t.Present,
			Percentage: Percent(t.Present, t.Total),
		})
	}
	sort.SliceStable(board, func(i, j int) bool { return board[i].Percentage > board[j].Percentage })

	return &DetailedReport{
		StartDate:   attendance.DateOnly(from),
		EndDate:     attendance.DateOnly(to),
		Records:     records,
		Breakdown:   breakdownFrom(counts),
		Leaderboard: board,
	}, nil
}

// Monthly returns the per-student month summary plus two scope-wide
// aggregates: the average of per-student percentages and the ledger-wide
// present/recorded percentage. Both are exposed, unreconciled.
func (s *Service) Monthly(ctx context.Context, p identity.Principal, year int, month time.Month) (*MonthlySummary, error) {
	scope, err := identity.ScopeFor(p, false)
	if err != nil {
		return nil, err
	}
	students, err := s.repo.Students(ctx, scope)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.MonthRecords(ctx, scope, year, month)
	if err != nil {
		return nil, err
	}

	byStudent := make(map[string]Tally)
	for _, rec := range records {
		t := byStudent[rec.StudentID]
		t.Total++
		switch rec.Status {
		case attendance.StatusPresent:
			t.Present++
		case attendance.StatusAbsent:
			t.Absent++
		case attendance.StatusLate:
			t.Late++
		case attendance.StatusExcused:
			t.Excused++
		}
		byStudent[rec.StudentID] = t
	}

	summary := &MonthlySummary{
		Year:      year,
		Month:     int(month),
		MonthName: month.String(),
		Nav:       monthNav(year, month, s.now().Year()),
	}
	var pctSum float64
	var totalDays int
	for _, st := range students {
		t := byStudent[st.ID]
		pct := Percent(t.Present, t.Total)
		summary.Rows = append(summary.Rows, MonthlyRow{Student: st, Tally: t, Percentage: pct})
		pctSum += pct
		totalDays += t.Total
		summary.TotalPresent += t.Present
		summary.TotalAbsent += t.Absent
		summary.TotalLate += t.Late
		summary.TotalExcused += t.Excused
	}
	summary.TotalStudents = len(students)
	if summary.TotalStudents > 0 {
		summary.AvgPercentage = round2(pctSum / float64(summary.TotalStudents))
	}
	summary.OverallPercentage = Percent(summary.TotalPresent, totalDays)
	return summary, nil
}

// StudentWise returns one student's full record list, most recent
// first, plus the status breakdown for the window. Teachers may only
// query their assigned students.
func (s *Service) StudentWise(ctx context.Context, p identity.Principal, studentID string, from, to *time.Time) (*StudentReport, error) {
	st, err := s.repo.StudentByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !p.CanManage() && st.ClassTeacher != p.AccountID {
		return nil, apperr.ErrDenied
	}

	records, err := s.repo.StudentRecords(ctx, st.ID, from, to)
	if err != nil {
		return nil, err
	}
	counts := make(map[attendance.Status]int)
	for _, rec := range records {
		counts[rec.Status]++
	}
	return &StudentReport{
		Student:   *st,
		Records:   records,
		Breakdown: breakdownFrom(counts),
	}, nil
}

// AnalyticsFor returns per-day totals and the status distribution for
// one month.
func (s *Service) AnalyticsFor(ctx context.Context, p identity.Principal, year int, month time.Month) (*Analytics, error) {
	scope, err := identity.ScopeFor(p, false)
	if err != nil {
		return nil, err
	}
	students, err := s.repo.Students(ctx, scope)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.MonthRecords(ctx, scope, year, month)
	if err != nil {
		return nil, err
	}

	type dayAgg struct{ total, present int }
	byDay := make(map[int]dayAgg)
	statusCounts := map[attendance.Status]int{
		attendance.StatusPresent: 0,
		attendance.StatusAbsent:  0,
		attendance.StatusLate:    0,
		attendance.StatusExcused: 0,
	}
	for _, rec := range records {
		agg := byDay[rec.Date.Day()]
		agg.total++
		if rec.Status == attendance.StatusPresent {
			agg.present++
		}
		byDay[rec.Date.Day()] = agg
		statusCounts[rec.Status]++
	}

	a := &Analytics{
		Year:          year,
		Month:         int(month),
		StatusCounts:  statusCounts,
		TotalStudents: len(students),
		TotalRecords:  len(records),
	}
	for day := 1; day <= DaysInMonth(year, month); day++ {
		agg := byDay[day]
		a.Days = append(a.Days, DayStat{
			Day:        day,
			Date:       time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
			Total:      agg.total,
			Present:    agg.present,
			Percentage: Percent(agg.present, agg.total),
		})
	}
	return a, nil
}

// AssignedStudents returns a teacher's roster annotated with lifetime
// attendance, widening an empty strict set to the whole cohort.
func (s *Service) AssignedStudents(ctx context.Context, p identity.Principal) ([]AssignedStudent, bool, error) {
	if p.Role != identity.RoleTeacher {
		return nil, false, apperr.ErrDenied
	}
	scope, err := identity.ScopeFor(p, true)
	if err != nil {
		return nil, false, err
	}
	students, err := s.repo.Students(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	widened := false
	if len(students) == 0 {
		widened = true
		scope = identity.Scope{Cohort: p.Cohort}
		if students, err = s.repo.Students(ctx, scope); err != nil {
			return nil, false, err
		}
	}
	tallies, err := s.repo.LifetimeTallies(ctx, scope)
	if err != nil {
		return nil, false, err
	}

	var out []AssignedStudent
	for _, st := range students {
		t := tallies[st.ID]
		out = append(out, AssignedStudent{
			Student:    st,
			Total:      t.Total,
			Present:    t.Present,
			Percentage: Percent(t.Present, t.Total),
		})
	}
	return out, widened, nil
}

// APIReportFor returns the aggregate object served by the JSON API.
// Unlike Daily, its rate divides by the scoped roster size, matching the
// API contract. The scope-wide result is cached briefly.
func (s *Service) APIReportFor(ctx context.Context, p identity.Principal) (*APIReport, error) {
	scope, err := identity.ScopeFor(p, false)
	if err != nil {
		return nil, err
	}
	today := attendance.DateOnly(s.now())

	cacheKey := ""
	if scope.All {
		cacheKey = "rollcall:report:" + today.Format("2006-01-02")
		if cached := s.cache.GetString(ctx, cacheKey); cached != "" {
			var r APIReport
			if json.Unmarshal([]byte(cached), &r) == nil {
				return &r, nil
			}
		}
	}

	students, err := s.repo.Students(ctx, scope)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.StatusCountsForDate(ctx, scope, today)
	if err != nil {
		return nil, err
	}
	r := &APIReport{
		Date:           today.Format("2006-01-02"),
		TotalStudents:  len(students),
		PresentToday:   counts[attendance.StatusPresent],
		AbsentToday:    counts[attendance.StatusAbsent],
		AttendanceRate: Percent(counts[attendance.StatusPresent], len(students)),
	}
	if cacheKey != "" {
		if buf, err := json.Marshal(r); err == nil {
			s.cache.SetString(ctx, cacheKey, string(buf), s.cacheTTL)
		}
	}
	return r, nil
}

// DashboardFor returns the role-specific landing summary.
func (s *Service) DashboardFor(ctx context.Context, p identity.Principal) (*Dashboard, error) {
	today := attendance.DateOnly(s.now())

	if p.CanManage() {
		students, err := s.repo.Students(ctx, identity.Scope{All: true})
		if err != nil {
			return nil, err
		}
		teacherCount, err := s.teachers.CountTeachers(ctx)
		if err != nil {
			return nil, err
		}
		counts, err := s.repo.StatusCountsForDate(ctx, identity.Scope{All: true}, today)
		if err != nil {
			return nil, err
		}
		byCohort := make(map[string]int)
		for _, st := range students {
			byCohort[identity.CohortName(st.Cohort)]++
		}
		return &Dashboard{
			Type:          string(p.Role),
			TotalStudents: len(students),
			TotalTeachers: teacherCount,
			CohortStats:   byCohort,
			PresentToday:  counts[attendance.StatusPresent],
			AbsentToday:   counts[attendance.StatusAbsent],
			Percentage:    Percent(counts[attendance.StatusPresent], len(students)),
		}, nil
	}

	if p.Cohort == "" {
		return &Dashboard{
			Type:    "teacher",
			Message: "No cohort assigned. Contact HOD.",
		}, nil
	}

	scope := identity.Scope{TeacherID: p.AccountID, Cohort: p.Cohort}
	students, err := s.repo.Students(ctx, scope)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.StatusCountsForDate(ctx, scope, today)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Type:          "teacher",
		TotalStudents: len(students),
		PresentToday:  counts[attendance.StatusPresent],
		AbsentToday:   counts[attendance.StatusAbsent],
		LateToday:     counts[attendance.StatusLate],
		// The dashboard rate divides by roster size, not records marked.
		Percentage: Percent(counts[attendance.StatusPresent], len(students)),
		CohortName: identity.CohortName(p.Cohort),
	}, nil
}

func round2(x float64) float64 {
	return float64(int(x*100+0.5)) / 100
}
