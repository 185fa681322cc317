package store

import (
	"database/sql"
	"log"
)

// Migrate applies the schema. Every statement is idempotent so the server
// can run it on every boot.
func Migrate(db *sql.DB) error {
	log.Println("applying database schema...")
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	log.Println("database schema up to date")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		is_staff BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_key
		ON accounts (email) WHERE email <> ''`,

	`CREATE TABLE IF NOT EXISTS profiles (
		account_id UUID PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
		role TEXT NOT NULL DEFAULT 'teacher' CHECK (role IN ('hod', 'teacher')),
		assigned_cohort TEXT NULL CHECK (assigned_cohort IN ('1', '2', '3', '4')),
		phone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS students (
		id UUID PRIMARY KEY,
		student_id TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		cohort TEXT NOT NULL DEFAULT '1' CHECK (cohort IN ('1', '2', '3', '4')),
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		date_of_birth DATE NULL,
		address TEXT NOT NULL DEFAULT '',
		class_teacher UUID NULL REFERENCES accounts(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS students_cohort_idx ON students (cohort)`,
	`CREATE INDEX IF NOT EXISTS students_class_teacher_idx ON students (class_teacher)`,

	// marked_by is SET NULL, not CASCADE: deleting a teacher must not
	// destroy the ledger history their marks produced.
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id UUID PRIMARY KEY,
		student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'present'
			CHECK (status IN ('present', 'absent', 'late', 'excused')),
		remarks TEXT NOT NULL DEFAULT '',
		marked_by UUID NULL REFERENCES accounts(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (student_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS attendance_records_date_idx ON attendance_records (date)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		token TEXT PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}
