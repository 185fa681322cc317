package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/identity"
	"rollcall/internal/roster"
)

// Repository is the read surface of the reporting engine.
type Repository interface {
	Students(ctx context.Context, scope identity.Scope) ([]roster.Student, error)
	StudentByID(ctx context.Context, id string) (*roster.Student, error)
	RecordsInRange(ctx context.Context, scope identity.Scope, from, to *time.Time, f Filters, limit int) ([]attendance.Record, error)
	MonthRecords(ctx context.Context, scope identity.Scope, year int, month time.Month) ([]attendance.Record, error)
	StudentRecords(ctx context.Context, studentID string, from, to *time.Time) ([]attendance.Record, error)
	StatusCountsForDate(ctx context.Context, scope identity.Scope, date time.Time) (map[attendance.Status]int, error)
	RangeStatusCounts(ctx context.Context, scope identity.Scope, from, to *time.Time, f Filters) (map[attendance.Status]int, error)
	RangeStudentTallies(ctx context.Context, scope identity.Scope, from, to *time.Time, f Filters) (map[string]Tally, error)
	LifetimeTallies(ctx context.Context, scope identity.Scope) (map[string]Tally, error)
}

// pgRepository runs the aggregation queries against Postgres.
type pgRepository struct {
	db *sql.DB
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(db *sql.DB) Repository {
	return &pgRepository{db: db}
}

// condition builder shared by the record queries. Placeholders continue
// from len(args)+1.
func scopeClauses(scope identity.Scope, args *[]any) []string {
	var clauses []string
	if !scope.All {
		clauses = append(clauses, "s.cohort = $"+itoa(len(*args)+1))
		*args = append(*args, scope.Cohort)
		if scope.TeacherID != "" {
			clauses = append(clauses, "s.class_teacher = $"+itoa(len(*args)+1))
			*args = append(*args, scope.TeacherID)
		}
	}
	return clauses
}

func rangeClauses(from, to *time.Time, f Filters, args *[]any) []string {
	var clauses []string
	if from != nil {
		clauses = append(clauses, "ar.date >= $"+itoa(len(*args)+1))
		*args = append(*args, attendance.DateOnly(*from))
	}
	if to != nil {
		clauses = append(clauses, "ar.date <= $"+itoa(len(*args)+1))
		*args = append(*args, attendance.DateOnly(*to))
	}
	if f.Cohort != "" {
		clauses = append(clauses, "s.cohort = $"+itoa(len(*args)+1))
		*args = append(*args, f.Cohort)
	}
	if f.TeacherID != "" {
		clauses = append(clauses, "s.class_teacher = $"+itoa(len(*args)+1))
		*args = append(*args, f.TeacherID)
	}
	if f.Status != "" {
		clauses = append(clauses, "ar.status = $"+itoa(len(*args)+1))
		*args = append(*args, f.Status)
	}
	return clauses
}

const recordCols = `ar.id, ar.student_id, ar.date, ar.status, ar.remarks,
	COALESCE(ar.marked_by::text, ''), COALESCE(m.username, ''),
	s.student_id, s.first_name || ' ' || s.last_name, s.cohort,
	COALESCE(t.username, ''), ar.created_at, ar.updated_at`

const recordJoins = `FROM attendance_records ar
	JOIN students s ON s.id = ar.student_id
	LEFT JOIN accounts m ON m.id = ar.marked_by
	LEFT JOIN accounts t ON t.id = s.class_teacher`

func queryRecords(ctx context.Context, db *sql.DB, query string, args ...any) ([]attendance.Record, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		var rec attendance.Record
		err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Date, &rec.Status, &rec.Remarks,
			&rec.MarkedBy, &rec.MarkedByName, &rec.StudentCode, &rec.StudentName,
			&rec.Cohort, &rec.TeacherName, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *pgRepository) Students(ctx context.Context, scope identity.Scope) ([]roster.Student, error) {
	query := `SELECT s.id, s.student_id, s.first_name, s.last_name, s.cohort,
		s.email, s.phone, s.date_of_birth, s.address,
		COALESCE(s.class_teacher::text, ''), COALESCE(a.username, ''),
		s.created_at, s.updated_at
		FROM students s
		LEFT JOIN accounts a ON a.id = s.class_teacher`
	args := []any{}
	if clauses := scopeClauses(scope, &args); len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY s.cohort, s.first_name, s.last_name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []roster.Student
	for rows.Next() {
		var s roster.Student
		var dob sql.NullTime
		err := rows.Scan(&s.ID, &s.StudentID, &s.FirstName, &s.LastName, &s.Cohort,
			&s.Email, &s.Phone, &dob, &s.Address, &s.ClassTeacher, &s.TeacherName,
			&s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if dob.Valid {
			t := dob.Time
			s.DateOfBirth = &t
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func (r *pgRepository) StudentByID(ctx context.Context, id string) (*roster.Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.id, s.student_id, s.first_name, s.last_name, s.cohort,
		       s.email, s.phone, s.date_of_birth, s.address,
		       COALESCE(s.class_teacher::text, ''), COALESCE(a.username, ''),
		       s.created_at, s.updated_at
		FROM students s
		LEFT JOIN accounts a ON a.id = s.class_teacher
		WHERE s.id = $1
	`, id)
	var s roster.Student
	var dob sql.NullTime
	err := row.Scan(&s.ID, &s.StudentID, &s.FirstName, &s.LastName, &s.Cohort,
		&s.Email, &s.Phone, &dob, &s.Address, &s.ClassTeacher, &s.TeacherName,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if dob.Valid {
		t := dob.Time
		s.DateOfBirth = &t
	}
	return &s, nil
}

func (r *pgRepository) RecordsInRange(ctx context.Context, scope identity.Scope, from, to *time.Time, f Filters, limit int) ([]attendance.Record, error) {
	query := `SELECT ` + recordCols + ` ` + recordJoins
	args := []any{}
	clauses := append(scopeClauses(scope, &args), rangeClauses(from, to, f, &args)...)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY ar.date DESC, s.student_id"
	if limit > 0 {
		query += " LIMIT $" + itoa(len(args)+1)
		args = append(args, limit)
	}
	return queryRecords(ctx, r.db, query, args...)
}

func (r *pgRepository) MonthRecords(ctx context.Context, scope identity.Scope, year int, month time.Month) ([]attendance.Record, error) {
	query := `SELECT ` + recordCols + ` ` + recordJoins
	args := []any{}
	clauses := scopeClauses(scope, &args)
	clauses = append(clauses,
		"ar.date >= $"+itoa(len(args)+1),
		"ar.date < $"+itoa(len(args)+2))
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	args = append(args, start, start.AddDate(0, 1, 0))
	query += " WHERE " + strings.Join(clauses, " AND ")
	query += " ORDER BY ar.date, s.student_id"
	return queryRecords(ctx, r.db, query, args...)
}

func (r *pgRepository) StudentRecords(ctx context.Context, studentID string, from, to *time.Time) ([]attendance.Record, error) {
	query := `SELECT ` + recordCols + ` ` + recordJoins
	args := []any{studentID}
	clauses := []string{"ar.student_id = $1"}
	clauses = append(clauses, rangeClauses(from, to, Filters{}, &args)...)
	query += " WHERE " + strings.Join(clauses, " AND ")
	query += " ORDER BY ar.date DESC"
	return queryRecords(ctx, r.db, query, args...)
}

func (r *pgRepository) StatusCountsForDate(ctx context.Context, scope identity.Scope, date time.Time) (map[attendance.Status]int, error) {
	query := `SELECT ar.status, COUNT(*)
		FROM attendance_records ar
		JOIN students s ON s.id = ar.student_id`
	args := []any{}
	clauses := scopeClauses(scope, &args)
	clauses = append(clauses, "ar.date = $"+itoa(len(args)+1))
	args = append(args, attendance.DateOnly(date))
	query += " WHERE " + strings.Join(clauses, " AND ") + " GROUP BY ar.status"
	return r.statusCounts(ctx, query, args...)
}

func (r *pgRepository) RangeStatusCounts(ctx context.Context, scope identity.Scope, from, to *time.Time, f Filters) (map[attendance.Status]int, error) {
	query := `SELECT ar.status, COUNT(*)
		FROM attendance_records ar
		JOIN students s ON s.id = ar.student_id`
	args := []any{}
	clauses := append(scopeClauses(scope, &args), rangeClauses(from, to, f, &args)...)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " GROUP BY ar.status"
	return r.statusCounts(ctx, query, args...)
}

func (r *pgRepository) statusCounts(ctx context.Context, query string, args ...any) (map[attendance.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[attendance.Status]int)
	for rows.Next() {
		var status attendance.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *pgRepository) RangeStudentTallies(ctx context.Context, scope identity.Scope, from, to *time.Time, f Filters) (map[string]Tally, error) {
	query := `SELECT ar.student_id,
		COUNT(*),
		COUNT(*) FILTER (WHERE ar.status = 'present'),
		COUNT(*) FILTER (WHERE ar.status = 'absent'),
		COUNT(*) FILTER (WHERE ar.status = 'late'),
		COUNT(*) FILTER (WHERE ar.status = 'excused')
		FROM attendance_records ar
		JOIN students s ON s.id = ar.student_id`
	args := []any{}
	clauses := append(scopeClauses(scope, &args), rangeClauses(from, to, f, &args)...)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " GROUP BY ar.student_id"
	return r.tallies(ctx, query, args...)
}

func (r *pgRepository) LifetimeTallies(ctx context.Context, scope identity.Scope) (map[string]Tally, error) {
	return r.RangeStudentTallies(ctx, scope, nil, nil, Filters{})
}

func (r *pgRepository) tallies(ctx context.Context, query string, args ...any) (map[string]Tally, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tallies := make(map[string]Tally)
	for rows.Next() {
		var id string
		var t Tally
		if err := rows.Scan(&id, &t.Total, &t.Present, &t.Absent, &t.Late, &t.Excused); err != nil {
			return nil, err
		}
		tallies[id] = t
	}
	return tallies, rows.Err()
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }
