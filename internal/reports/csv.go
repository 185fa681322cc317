package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"rollcall/internal/identity"
)

// ExportKind selects the CSV layout.
type ExportKind string

const (
	ExportDetailed ExportKind = "detailed"
	ExportSummary  ExportKind = "summary"
)

// ExportCSV streams the report for the range as CSV. The detailed
// layout is one row per record in date order; the summary layout is one
// row per student with the range tally.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, p identity.Principal, kind ExportKind, from, to time.Time, f Filters) error {
	scope, err := identity.ScopeFor(p, false)
	if err != nil {
		return err
	}
	if !scope.All {
		f.Cohort = ""
		f.TeacherID = ""
	}

	if kind == ExportSummary {
		return s.writeSummaryCSV(ctx, w, scope, from, to, f)
	}
	return s.writeDetailedCSV(ctx, w, scope, from, to, f)
}

func (s *Service) writeDetailedCSV(ctx context.Context, w io.Writer, scope identity.Scope, from, to time.Time, f Filters) error {
	records, err := s.repo.RecordsInRange(ctx, scope, &from, &to, f, 0)
	if err != nil {
		return err
	}
	// Query order is newest-first for display; the export reads
	// chronologically.
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Student ID", "Student Name", "Year", "Teacher", "Date", "Status", "Remarks", "Marked By"}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.StudentCode,
			rec.StudentName,
			identity.CohortName(rec.Cohort),
			orNA(rec.TeacherName),
			rec.Date.Format("2006-01-02"),
			string(rec.Status),
			rec.Remarks,
			orNA(rec.MarkedByName),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) writeSummaryCSV(ctx context.Context, w io.Writer, scope identity.Scope, from, to time.Time, f Filters) error {
	students, err := s.repo.Students(ctx, scope)
	if err != nil {
		return err
	}
	tallies, err := s.repo.RangeStudentTallies(ctx, scope, &from, &to, f)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"Student ID", "Student Name", "Year", "Teacher",
		"Total Days", "Present", "Absent", "Late", "Excused", "Attendance %"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, st := range students {
		t := tallies[st.ID]
		row := []string{
			st.StudentID,
			st.FullName(),
			identity.CohortName(st.Cohort),
			orNA(st.TeacherName),
			itoa(t.Total),
			itoa(t.Present),
			itoa(t.Absent),
			itoa(t.Late),
			itoa(t.Excused),
			fmt.Sprintf("%.2f", Percent(t.Present, t.Total)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
