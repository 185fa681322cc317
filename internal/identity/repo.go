package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
)

// pgRepository persists accounts and profiles in Postgres.
type pgRepository struct {
	db *sql.DB
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(db *sql.DB) Repository {
	return &pgRepository{db: db}
}

const accountCols = `id, username, email, password_hash, first_name, last_name, is_superuser, is_staff, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FirstName,
		&a.LastName, &a.IsSuperuser, &a.IsStaff, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *pgRepository) AccountByUsername(ctx context.Context, username string) (*Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

func (r *pgRepository) AccountByID(ctx context.Context, id string) (*Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *pgRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func (r *pgRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// EnsureProfile creates the profile row if missing and returns it.
// The insert is a no-op when the row already exists, so repeated
// resolution never duplicates profiles.
func (r *pgRepository) EnsureProfile(ctx context.Context, accountID string, role Role) (*Profile, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (account_id, role)
		VALUES ($1, $2)
		ON CONFLICT (account_id) DO NOTHING
	`, accountID, string(role))
	if err != nil {
		return nil, err
	}

	var p Profile
	var cohort sql.NullString
	row := r.db.QueryRowContext(ctx, `
		SELECT account_id, role, assigned_cohort, phone, created_at
		FROM profiles WHERE account_id = $1
	`, accountID)
	if err := row.Scan(&p.AccountID, &p.Role, &cohort, &p.Phone, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Cohort = cohort.String
	return &p, nil
}

func (r *pgRepository) ListTeachers(ctx context.Context) ([]Teacher, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.username, a.email, a.first_name, a.last_name, a.created_at,
		       COALESCE(p.assigned_cohort, ''), p.phone,
		       (SELECT COUNT(*) FROM students s WHERE s.class_teacher = a.id)
		FROM accounts a
		JOIN profiles p ON p.account_id = a.id
		WHERE p.role = 'teacher' AND NOT a.is_superuser
		ORDER BY a.username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teachers []Teacher
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.ID, &t.Username, &t.Email, &t.FirstName, &t.LastName,
			&t.CreatedAt, &t.Cohort, &t.Phone, &t.StudentCount); err != nil {
			return nil, err
		}
		t.CohortName = CohortName(t.Cohort)
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

func (r *pgRepository) TeacherByID(ctx context.Context, id string) (*Teacher, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT a.id, a.username, a.email, a.first_name, a.last_name, a.created_at,
		       COALESCE(p.assigned_cohort, ''), p.phone,
		       (SELECT COUNT(*) FROM students s WHERE s.class_teacher = a.id)
		FROM accounts a
		JOIN profiles p ON p.account_id = a.id
		WHERE a.id = $1 AND p.role = 'teacher' AND NOT a.is_superuser
	`, id)
	var t Teacher
	err := row.Scan(&t.ID, &t.Username, &t.Email, &t.FirstName, &t.LastName,
		&t.CreatedAt, &t.Cohort, &t.Phone, &t.StudentCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	t.CohortName = CohortName(t.Cohort)
	return &t, nil
}

// CreateTeacher inserts the account and profile and, when a cohort is
// given, takes over that cohort's students, all in one transaction.
func (r *pgRepository) CreateTeacher(ctx context.Context, acct Account, cohort, phone string) (*Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, first_name, last_name, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING created_at
	`, acct.ID, acct.Username, acct.Email, acct.PasswordHash, acct.FirstName, acct.LastName)
	if err := row.Scan(&acct.CreatedAt); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (account_id, role, assigned_cohort, phone)
		VALUES ($1, 'teacher', NULLIF($2, ''), $3)
	`, acct.ID, cohort, phone)
	if err != nil {
		return nil, err
	}

	if cohort != "" {
		_, err = tx.ExecContext(ctx, `
			UPDATE students SET class_teacher = $1, updated_at = NOW()
			WHERE cohort = $2
		`, acct.ID, cohort)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	acct.IsStaff = true
	return &acct, nil
}

func (r *pgRepository) UpdateTeacher(ctx context.Context, id, firstName, lastName, email, passwordHash string) error {
	var res sql.Result
	var err error
	if passwordHash != "" {
		res, err = r.db.ExecContext(ctx, `
			UPDATE accounts SET first_name = $2, last_name = $3, email = $4, password_hash = $5
			WHERE id = $1
		`, id, firstName, lastName, email, passwordHash)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE accounts SET first_name = $2, last_name = $3, email = $4
			WHERE id = $1
		`, id, firstName, lastName, email)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *pgRepository) DeleteTeacher(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SetCohort moves a teacher to a new cohort. Clearing the old cohort's
// class-teacher rows and claiming the new cohort's students happen in
// the same transaction as the profile update, so a failure leaves no
// half-applied reassignment.
func (r *pgRepository) SetCohort(ctx context.Context, teacherID, cohort string) (previous string, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var old sql.NullString
	row := tx.QueryRowContext(ctx, `
		SELECT assigned_cohort FROM profiles WHERE account_id = $1 FOR UPDATE
	`, teacherID)
	if err := row.Scan(&old); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.ErrNotFound
		}
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE profiles SET assigned_cohort = NULLIF($2, '') WHERE account_id = $1
	`, teacherID, cohort)
	if err != nil {
		return "", err
	}

	if old.String != cohort {
		if old.String != "" {
			_, err = tx.ExecContext(ctx, `
				UPDATE students SET class_teacher = NULL, updated_at = NOW()
				WHERE cohort = $1 AND class_teacher = $2
			`, old.String, teacherID)
			if err != nil {
				return "", err
			}
		}
		if cohort != "" {
			_, err = tx.ExecContext(ctx, `
				UPDATE students SET class_teacher = $1, updated_at = NOW()
				WHERE cohort = $2
			`, teacherID, cohort)
			if err != nil {
				return "", err
			}
		}
	}

	return old.String, tx.Commit()
}

// CountTeachers excludes superusers: a superuser's self-healed profile
// row carries role 'teacher' but the account is an admin, not a teacher.
func (r *pgRepository) CountTeachers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM profiles p
		JOIN accounts a ON a.id = p.account_id
		WHERE p.role = 'teacher' AND NOT a.is_superuser
	`).Scan(&n)
	return n, err
}

func (r *pgRepository) SaveRefreshToken(ctx context.Context, accountID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, account_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, accountID, expiresAt)
	return err
}

func (r *pgRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}

func (r *pgRepository) RefreshTokenActive(ctx context.Context, token string) (bool, error) {
	var active bool
	err := r.db.QueryRowContext(ctx, `
		SELECT NOT revoked AND expires_at > NOW() FROM refresh_tokens WHERE token = $1
	`, token).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return active, err
}
