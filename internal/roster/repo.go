package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/identity"
)

// pgRepository persists students in Postgres.
type pgRepository struct {
	db *sql.DB
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(db *sql.DB) Repository {
	return &pgRepository{db: db}
}

const studentCols = `s.id, s.student_id, s.first_name, s.last_name, s.cohort,
	s.email, s.phone, s.date_of_birth, s.address,
	COALESCE(s.class_teacher::text, ''), COALESCE(a.username, ''),
	s.created_at, s.updated_at`

func scanStudent(row interface{ Scan(...any) error }) (*Student, error) {
	var s Student
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

func (r *pgRepository) List(ctx context.Context, scope identity.Scope, f Filters) ([]Student, error) {
	query := `SELECT ` + studentCols + `
		FROM students s
		LEFT JOIN accounts a ON a.id = s.class_teacher`
	args := []any{}
	clauses := []string{}

	if !scope.All {
		clauses = append(clauses, "s.cohort = $"+itoa(len(args)+1))
		args = append(args, scope.Cohort)
		if scope.TeacherID != "" {
			clauses = append(clauses, "s.class_teacher = $"+itoa(len(args)+1))
			args = append(args, scope.TeacherID)
		}
	}
	if f.Cohort != "" {
		clauses = append(clauses, "s.cohort = $"+itoa(len(args)+1))
		args = append(args, f.Cohort)
	}
	if f.Search != "" {
		n := itoa(len(args) + 1)
		clauses = append(clauses,
			"(s.student_id ILIKE $"+n+" OR s.first_name ILIKE $"+n+" OR s.last_name ILIKE $"+n+" OR s.email ILIKE $"+n+")")
		args = append(args, "%"+f.Search+"%")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY s.cohort, s.first_name, s.last_name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

func (r *pgRepository) ByID(ctx context.Context, id string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentCols+`
		FROM students s
		LEFT JOIN accounts a ON a.id = s.class_teacher
		WHERE s.id = $1`, id)
	return scanStudent(row)
}

func (r *pgRepository) StudentIDExists(ctx context.Context, studentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE student_id = $1)`, studentID).Scan(&exists)
	return exists, err
}

func (r *pgRepository) Create(ctx context.Context, s Student) (*Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, student_id, first_name, last_name, cohort,
			email, phone, date_of_birth, address, class_teacher)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, '')::uuid)
		RETURNING created_at, updated_at
	`, s.ID, s.StudentID, s.FirstName, s.LastName, s.Cohort,
		s.Email, s.Phone, s.DateOfBirth, s.Address, s.ClassTeacher)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *pgRepository) Update(ctx context.Context, s Student) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET first_name = $2, last_name = $3, cohort = $4,
			email = $5, phone = $6, date_of_birth = $7, address = $8,
			class_teacher = NULLIF($9, '')::uuid, updated_at = NOW()
		WHERE id = $1
	`, s.ID, s.FirstName, s.LastName, s.Cohort, s.Email, s.Phone,
		s.DateOfBirth, s.Address, s.ClassTeacher)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *pgRepository) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}

func (r *pgRepository) CountByCohort(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT cohort, COUNT(*) FROM students GROUP BY cohort`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var cohort string
		var n int
		if err := rows.Scan(&cohort, &n); err != nil {
			return nil, err
		}
		counts[cohort] = n
	}
	return counts, rows.Err()
}

// TeacherForCohort returns the account id of a teacher assigned to the
// cohort, or "" when none exists.
func (r *pgRepository) TeacherForCohort(ctx context.Context, cohort string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT account_id::text FROM profiles
		WHERE role = 'teacher' AND assigned_cohort = $1
		ORDER BY created_at
		LIMIT 1
	`, cohort).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// BulkAssign attaches every unassigned student to its cohort's teacher
// in one statement, so the whole pass is atomic.
func (r *pgRepository) BulkAssign(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students s
		SET class_teacher = t.account_id, updated_at = NOW()
		FROM (
			SELECT DISTINCT ON (assigned_cohort) assigned_cohort, account_id
			FROM profiles
			WHERE role = 'teacher' AND assigned_cohort IS NOT NULL
			ORDER BY assigned_cohort, created_at
		) t
		WHERE s.class_teacher IS NULL AND s.cohort = t.assigned_cohort
	`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *pgRepository) CohortStats(ctx context.Context) ([]CohortStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.cohort,
		       COUNT(s.id),
		       COUNT(s.class_teacher),
		       COALESCE((
		           SELECT a.username FROM profiles p
		           JOIN accounts a ON a.id = p.account_id
		           WHERE p.role = 'teacher' AND p.assigned_cohort = c.cohort
		           ORDER BY p.created_at LIMIT 1
		       ), 'No teacher')
		FROM unnest(ARRAY['1','2','3','4']) AS c(cohort)
		LEFT JOIN students s ON s.cohort = c.cohort
		GROUP BY c.cohort
		ORDER BY c.cohort
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []CohortStat
	for rows.Next() {
		var st CohortStat
		if err := rows.Scan(&st.Cohort, &st.Total, &st.Assigned, &st.Teacher); err != nil {
			return nil, err
		}
		st.Unassigned = st.Total - st.Assigned
		st.CohortName = identity.CohortName(st.Cohort)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }
