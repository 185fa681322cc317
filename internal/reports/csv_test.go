package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/attendance"
)

func TestExportDetailedCSV(t *testing.T) {
	repo := seeded()
	repo.records[0].MarkedByName = "teach"
	repo.records[0].Remarks = "on time"
	svc := newTestService(repo)

	var buf bytes.Buffer
	err := svc.ExportCSV(context.Background(), &buf, hod, ExportDetailed, day(1), day(31), Filters{})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"Student ID", "Student Name", "Year", "Teacher", "Date", "Status", "Remarks", "Marked By"}, rows[0])

	// Chronological order regardless of query order.
	assert.Equal(t, "2026-03-08", rows[1][4])
	assert.Equal(t, "2026-03-10", rows[6][4])

	// A record whose marker account was deleted exports "N/A".
	assert.Equal(t, "teach", rows[1][7])
	assert.Equal(t, "N/A", rows[2][7])
	assert.Equal(t, "on time", rows[1][6])
}

func TestExportDetailedCSVScoped(t *testing.T) {
	repo := seeded()
	repo.records = append(repo.records, attendance.Record{
		StudentID: "s4", Date: day(10), Status: attendance.StatusPresent,
	})
	svc := newTestService(repo)

	var buf bytes.Buffer
	err := svc.ExportCSV(context.Background(), &buf, teacher, ExportDetailed, day(1), day(31), Filters{})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	// Header plus the six cohort-2 records; the cohort-3 row is invisible.
	assert.Len(t, rows, 7)
}

func TestExportSummaryCSV(t *testing.T) {
	svc := newTestService(seeded())

	var buf bytes.Buffer
	err := svc.ExportCSV(context.Background(), &buf, hod, ExportSummary, day(1), day(31), Filters{})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"Student ID", "Student Name", "Year", "Teacher",
		"Total Days", "Present", "Absent", "Late", "Excused", "Attendance %"}, rows[0])

	// STU001: 3 days, all present.
	assert.Equal(t, "STU001", rows[1][0])
	assert.Equal(t, "Second Year", rows[1][2])
	assert.Equal(t, "3", rows[1][4])
	assert.Equal(t, "100.00", rows[1][9])

	// STU004 has no records and no teacher name.
	assert.Equal(t, "N/A", rows[4][3])
	assert.Equal(t, "0", rows[4][4])
	assert.Equal(t, "0.00", rows[4][9])
}
