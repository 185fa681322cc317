package attendance

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rollcall/internal/apperr"
	"rollcall/internal/identity"
	"rollcall/internal/roster"
)

var markedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rollcall_attendance_marked_total",
	Help: "Attendance records written by the marking workflow.",
})

// Repository is the persistence surface the service needs.
type Repository interface {
	Upsert(ctx context.Context, rec Record) error
	ExistingForDate(ctx context.Context, teacherID string, date time.Time) (map[string]Record, error)
	Recent(ctx context.Context, scope identity.Scope, limit int) ([]Record, error)
}

// Service implements the marking workflow.
type Service struct {
	repo   Repository
	roster *roster.Service
	now    func() time.Time
}

// NewService creates a service. now is the clock used for future-date
// clamping; pass time.Now in production.
func NewService(repo Repository, rosterSvc *roster.Service, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, roster: rosterSvc, now: now}
}

// Sheet is the read side of the marking workflow: the teacher's strict
// roster plus the marks already written for the target date.
type Sheet struct {
	Date       time.Time         `json:"date"`
	Clamped    bool              `json:"clamped"`
	Cohort     string            `json:"cohort"`
	CohortName string            `json:"cohort_name"`
	Students   []roster.Student  `json:"students"`
	Existing   map[string]Record `json:"existing"`
}

// MarkResult summarizes a bulk marking submission.
type MarkResult struct {
	Count      int       `json:"count"`
	Date       time.Time `json:"date"`
	Clamped    bool      `json:"clamped"`
	Cohort     string    `json:"cohort"`
	CohortName string    `json:"cohort_name"`
}

// clampDate caps day at today. Historical dates are markable; future
// dates are clamped rather than rejected.
func (s *Service) clampDate(day time.Time) (time.Time, bool) {
	today := DateOnly(s.now())
	day = DateOnly(day)
	if day.After(today) {
		return today, true
	}
	return day, false
}

// MarkSheet returns the marking sheet for the teacher and date. Teacher
// only; ErrNoCohort for an unassigned teacher, ErrNoStudents for an
// empty strict roster.
func (s *Service) MarkSheet(ctx context.Context, p identity.Principal, day time.Time) (*Sheet, error) {
	if p.Role != identity.RoleTeacher {
		return nil, apperr.ErrDenied
	}
	day, clamped := s.clampDate(day)

	students, err := s.roster.Roster(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, apperr.ErrNoStudents
	}

	existing, err := s.repo.ExistingForDate(ctx, p.AccountID, day)
	if err != nil {
		return nil, err
	}
	return &Sheet{
		Date:       day,
		Clamped:    clamped,
		Cohort:     p.Cohort,
		CohortName: identity.CohortName(p.Cohort),
		Students:   students,
		Existing:   existing,
	}, nil
}

// Mark sets attendance for every student on the teacher's strict roster
// for one date. Each student is an idempotent upsert keyed on
// (student, date): re-marking overwrites status, remarks and marker.
// Entries are keyed by student row id; students without an entry
// default to present with no remarks.
func (s *Service) Mark(ctx context.Context, p identity.Principal, day time.Time, entries map[string]Entry) (*MarkResult, error) {
	if p.Role != identity.RoleTeacher {
		return nil, apperr.ErrDenied
	}
	day, clamped := s.clampDate(day)

	students, err := s.roster.Roster(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, apperr.ErrNoStudents
	}

	for id, e := range entries {
		if e.Status != "" && !ValidStatus(e.Status) {
			return nil, apperr.Validationf("invalid status %q for student %s", e.Status, id)
		}
	}

	count := 0
	for _, st := range students {
		e := entries[st.ID]
		if e.Status == "" {
			e.Status = StatusPresent
		}
		err := s.repo.Upsert(ctx, Record{
			StudentID: st.ID,
			Date:      day,
			Status:    e.Status,
			Remarks:   e.Remarks,
			MarkedBy:  p.AccountID,
		})
		if err != nil {
			return nil, err
		}
		markedTotal.Inc()
		count++
	}

	return &MarkResult{
		Count:      count,
		Date:       day,
		Clamped:    clamped,
		Cohort:     p.Cohort,
		CohortName: identity.CohortName(p.Cohort),
	}, nil
}

// Recent returns the most recent records visible to p, newest first.
// A non-positive limit falls back to 100. Teachers see their strict
// assigned set only.
func (s *Service) Recent(ctx context.Context, p identity.Principal, limit int) ([]Record, error) {
	scope, err := identity.ScopeFor(p, false)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return s.repo.Recent(ctx, scope, limit)
}
