package roster

import (
	"context"
	"log"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/identity"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	List(ctx context.Context, scope identity.Scope, f Filters) ([]Student, error)
	ByID(ctx context.Context, id string) (*Student, error)
	StudentIDExists(ctx context.Context, studentID string) (bool, error)
	Create(ctx context.Context, s Student) (*Student, error)
	Update(ctx context.Context, s Student) error
	Delete(ctx context.Context, id string) error
	CountAll(ctx context.Context) (int, error)
	CountByCohort(ctx context.Context) (map[string]int, error)
	TeacherForCohort(ctx context.Context, cohort string) (string, error)
	BulkAssign(ctx context.Context) (int, error)
	CohortStats(ctx context.Context) ([]CohortStat, error)
}

// Service implements student directory operations with role scoping.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the students visible to p, applying free-text search and,
// for admin/HOD, the cohort filter. For a teacher with zero explicitly
// assigned students the result widens to the whole cohort; widened
// reports whether that happened.
func (s *Service) List(ctx context.Context, p identity.Principal, f Filters) (students []Student, widened bool, err error) {
	scope, err := identity.ScopeFor(p, true)
	if err != nil {
		return nil, false, err
	}
	if !scope.All {
		// Teachers never filter by a foreign cohort.
		f.Cohort = ""
	}
	students, err = s.repo.List(ctx, scope, f)
	if err != nil {
		return nil, false, err
	}
	if len(students) == 0 && !scope.All && scope.Widen {
		widened = true
		students, err = s.repo.List(ctx, identity.Scope{Cohort: scope.Cohort}, f)
		if err != nil {
			return nil, false, err
		}
	}
	return students, widened, nil
}

// Roster returns the strict assigned-students set for a teacher. Write
// paths (attendance marking) must use this, never the widened view.
func (s *Service) Roster(ctx context.Context, p identity.Principal) ([]Student, error) {
	scope, err := identity.ScopeFor(p, false)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope, Filters{})
}

// CreateStudentInput carries the fields for a new student.
type CreateStudentInput struct {
	StudentID   string
	FirstName   string
	LastName    string
	Cohort      string
	Email       string
	Phone       string
	DateOfBirth *time.Time
	Address     string
}

// Create adds a student. A teacher becomes the class teacher of students
// they create; admin/HOD creations attach the cohort's teacher when one
// exists.
func (s *Service) Create(ctx context.Context, p identity.Principal, in CreateStudentInput) (*Student, error) {
	cohort := in.Cohort
	if !p.CanManage() {
		if p.Cohort == "" {
			return nil, apperr.ErrNoCohort
		}
		cohort = p.Cohort
	}
	if cohort == "" {
		cohort = "1"
	}
	if in.StudentID == "" || in.FirstName == "" || in.LastName == "" {
		return nil, apperr.Validationf("please fill all required fields")
	}
	if !identity.ValidCohort(cohort) {
		return nil, apperr.Validationf("invalid cohort %q", cohort)
	}
	if exists, err := s.repo.StudentIDExists(ctx, in.StudentID); err != nil {
		return nil, err
	} else if exists {
		return nil, apperr.Validationf("student ID already exists")
	}

	classTeacher := ""
	if p.Role == identity.RoleTeacher {
		classTeacher = p.AccountID
	} else {
		var err error
		if classTeacher, err = s.repo.TeacherForCohort(ctx, cohort); err != nil {
			return nil, err
		}
	}

	return s.repo.Create(ctx, Student{
		StudentID:    in.StudentID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Cohort:       cohort,
		Email:        in.Email,
		Phone:        in.Phone,
		DateOfBirth:  in.DateOfBirth,
		Address:      in.Address,
		ClassTeacher: classTeacher,
	})
}

// Get returns one student, enforcing scope: teachers may only see their
// assigned students.
func (s *Service) Get(ctx context.Context, p identity.Principal, id string) (*Student, error) {
	st, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanManage() && st.ClassTeacher != p.AccountID {
		return nil, apperr.ErrDenied
	}
	return st, nil
}

// UpdateStudentInput carries editable student fields.
type UpdateStudentInput struct {
	FirstName    string
	LastName     string
	Cohort       string
	Email        string
	Phone        string
	DateOfBirth  *time.Time
	Address      string
	ClassTeacher string
}

// Update edits a student. Only admin/HOD may change the cohort or
// reassign the class teacher; a teacher editing their student stays the
// class teacher.
func (s *Service) Update(ctx context.Context, p identity.Principal, id string, in UpdateStudentInput) (*Student, error) {
	st, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}

	st.FirstName = in.FirstName
	st.LastName = in.LastName
	st.Email = in.Email
	st.Phone = in.Phone
	st.DateOfBirth = in.DateOfBirth
	st.Address = in.Address

	if p.CanManage() {
		if in.Cohort != "" {
			if !identity.ValidCohort(in.Cohort) {
				return nil, apperr.Validationf("invalid cohort %q", in.Cohort)
			}
			st.Cohort = in.Cohort
		}
		st.ClassTeacher = in.ClassTeacher
	} else {
		st.ClassTeacher = p.AccountID
	}

	if err := s.repo.Update(ctx, *st); err != nil {
		return nil, err
	}
	return s.repo.ByID(ctx, id)
}

// Delete removes a student; teachers may only delete their own.
func (s *Service) Delete(ctx context.Context, p identity.Principal, id string) error {
	if _, err := s.Get(ctx, p, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// BulkAssign attaches all unassigned students to their cohort teachers.
// Admin/HOD only. Returns the number of students assigned.
func (s *Service) BulkAssign(ctx context.Context, p identity.Principal) (int, error) {
	if !p.CanManage() {
		return 0, apperr.ErrDenied
	}
	n, err := s.repo.BulkAssign(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("bulk-assigned %d unassigned students to cohort teachers", n)
	}
	return n, nil
}

// CohortStats returns per-cohort assignment statistics. Admin/HOD only.
func (s *Service) CohortStats(ctx context.Context, p identity.Principal) ([]CohortStat, error) {
	if !p.CanManage() {
		return nil, apperr.ErrDenied
	}
	return s.repo.CohortStats(ctx)
}

// Counts returns total students and the per-cohort breakdown.
func (s *Service) Counts(ctx context.Context) (total int, byCohort map[string]int, err error) {
	if total, err = s.repo.CountAll(ctx); err != nil {
		return 0, nil, err
	}
	if byCohort, err = s.repo.CountByCohort(ctx); err != nil {
		return 0, nil, err
	}
	return total, byCohort, nil
}
