package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/identity"
)

// pgRepository persists attendance records in Postgres.
type pgRepository struct {
	db *sql.DB
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(db *sql.DB) Repository {
	return &pgRepository{db: db}
}

// Upsert writes the record for (student, date), overwriting status,
// remarks and marker if one already exists. The conditional insert is a
// single statement so concurrent submissions for the same key converge
// to one row, last write wins.
func (r *pgRepository) Upsert(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, student_id, date, status, remarks, marked_by)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid)
		ON CONFLICT (student_id, date) DO UPDATE SET
			status = EXCLUDED.status,
			remarks = EXCLUDED.remarks,
			marked_by = EXCLUDED.marked_by,
			updated_at = NOW()
	`, rec.ID, rec.StudentID, DateOnly(rec.Date), rec.Status, rec.Remarks, rec.MarkedBy)
	return err
}

const recordCols = `ar.id, ar.student_id, ar.date, ar.status, ar.remarks,
	COALESCE(ar.marked_by::text, ''), COALESCE(m.username, ''),
	s.student_id, s.first_name || ' ' || s.last_name, s.cohort,
	COALESCE(t.username, ''), ar.created_at, ar.updated_at`

const recordJoins = `FROM attendance_records ar
	JOIN students s ON s.id = ar.student_id
	LEFT JOIN accounts m ON m.id = ar.marked_by
	LEFT JOIN accounts t ON t.id = s.class_teacher`

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Date, &rec.Status, &rec.Remarks,
		&rec.MarkedBy, &rec.MarkedByName, &rec.StudentCode, &rec.StudentName,
		&rec.Cohort, &rec.TeacherName, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// ExistingForDate returns the records already written for the teacher's
// assigned students on date, keyed by student row id. Read-side only;
// used to pre-populate the marking sheet.
func (r *pgRepository) ExistingForDate(ctx context.Context, teacherID string, date time.Time) (map[string]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordCols+`
		`+recordJoins+`
		WHERE ar.date = $2 AND s.class_teacher = $1
	`, teacherID, DateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]Record)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		existing[rec.StudentID] = rec
	}
	return existing, rows.Err()
}

// Recent returns the latest records visible in scope, most recent first.
func (r *pgRepository) Recent(ctx context.Context, scope identity.Scope, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + recordCols + ` ` + recordJoins
	args := []any{}
	if !scope.All {
		query += ` WHERE s.cohort = $1 AND s.class_teacher = $2`
		args = append(args, scope.Cohort, scope.TeacherID)
	}
	query += ` ORDER BY ar.date DESC, s.student_id LIMIT $` + itoa(len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }
