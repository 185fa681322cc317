package identity

import (
	"context"
	"log"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/auth"
)

// Repository is the persistence surface the service needs. The Postgres
// implementation lives in this package; tests substitute an in-memory one.
type Repository interface {
	AccountByUsername(ctx context.Context, username string) (*Account, error)
	AccountByID(ctx context.Context, id string) (*Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	EnsureProfile(ctx context.Context, accountID string, role Role) (*Profile, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)
	TeacherByID(ctx context.Context, id string) (*Teacher, error)
	CreateTeacher(ctx context.Context, acct Account, cohort, phone string) (*Account, error)
	UpdateTeacher(ctx context.Context, id, firstName, lastName, email, passwordHash string) error
	DeleteTeacher(ctx context.Context, id string) error
	SetCohort(ctx context.Context, teacherID, cohort string) (previous string, err error)
	CountTeachers(ctx context.Context) (int, error)
	SaveRefreshToken(ctx context.Context, accountID, token string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, token string) error
	RefreshTokenActive(ctx context.Context, token string) (bool, error)
}

// Service resolves principals and manages teacher accounts.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate checks username/password and returns the account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	acct, err := s.repo.AccountByUsername(ctx, username)
	if err != nil {
		if err == apperr.ErrNotFound {
			return nil, apperr.ErrCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(acct.PasswordHash, password) {
		return nil, apperr.ErrCredentials
	}
	return acct, nil
}

// Resolve loads the account and its profile, creating the profile on
// first access. Superusers resolve to RoleAdmin regardless of any
// stored profile role; non-superusers default to RoleTeacher.
func (s *Service) Resolve(ctx context.Context, accountID string) (Principal, error) {
	acct, err := s.repo.AccountByID(ctx, accountID)
	if err != nil {
		return Principal{}, err
	}

	prof, err := s.repo.EnsureProfile(ctx, acct.ID, RoleTeacher)
	if err != nil {
		return Principal{}, err
	}

	p := Principal{
		AccountID: acct.ID,
		Username:  acct.Username,
		Name:      acct.FullName(),
	}
	switch {
	case acct.IsSuperuser:
		p.Role = RoleAdmin
	case prof.Role == RoleHOD:
		p.Role = RoleHOD
	default:
		p.Role = RoleTeacher
		p.Cohort = prof.Cohort
	}
	return p, nil
}

// CreateTeacherInput carries the fields for a new teacher account.
type CreateTeacherInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Cohort    string
	Phone     string
}

// CreateTeacher creates a teacher account. Admin/HOD only. When a cohort
// is given the new teacher takes over that cohort's students.
func (s *Service) CreateTeacher(ctx context.Context, p Principal, in CreateTeacherInput) (*Account, error) {
	if !p.CanManage() {
		return nil, apperr.ErrDenied
	}
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validationf("please fill all required fields")
	}
	if in.Cohort != "" && !ValidCohort(in.Cohort) {
		return nil, apperr.Validationf("invalid cohort %q", in.Cohort)
	}
	if exists, err := s.repo.UsernameExists(ctx, in.Username); err != nil {
		return nil, err
	} else if exists {
		return nil, apperr.Validationf("username already exists")
	}
	if exists, err := s.repo.EmailExists(ctx, in.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, apperr.Validationf("email already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	acct := Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	}
	created, err := s.repo.CreateTeacher(ctx, acct, in.Cohort, in.Phone)
	if err != nil {
		return nil, err
	}
	if in.Cohort != "" {
		log.Printf("teacher %s created and assigned cohort %s", created.Username, in.Cohort)
	}
	return created, nil
}

// Teachers lists teacher accounts with student counts. Admin/HOD only.
func (s *Service) Teachers(ctx context.Context, p Principal) ([]Teacher, error) {
	if !p.CanManage() {
		return nil, apperr.ErrDenied
	}
	return s.repo.ListTeachers(ctx)
}

// Teacher returns one teacher by id. Admin/HOD only.
func (s *Service) Teacher(ctx context.Context, p Principal, id string) (*Teacher, error) {
	if !p.CanManage() {
		return nil, apperr.ErrDenied
	}
	return s.repo.TeacherByID(ctx, id)
}

// UpdateTeacherInput carries editable teacher fields. An empty Password
// keeps the current one.
type UpdateTeacherInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Cohort    string
}

// UpdateTeacher edits a teacher's details and, when the cohort changed,
// performs the bulk student reassignment.
func (s *Service) UpdateTeacher(ctx context.Context, p Principal, id string, in UpdateTeacherInput) error {
	if !p.CanManage() {
		return apperr.ErrDenied
	}
	if in.Cohort != "" && !ValidCohort(in.Cohort) {
		return apperr.Validationf("invalid cohort %q", in.Cohort)
	}
	var hash string
	if in.Password != "" {
		var err error
		if hash, err = auth.HashPassword(in.Password); err != nil {
			return err
		}
	}
	if err := s.repo.UpdateTeacher(ctx, id, in.FirstName, in.LastName, in.Email, hash); err != nil {
		return err
	}
	return s.assignCohort(ctx, id, in.Cohort)
}

// AssignCohort assigns (or clears, with cohort == "") a teacher's
// cohort. Admin/HOD only.
func (s *Service) AssignCohort(ctx context.Context, p Principal, teacherID, cohort string) error {
	if !p.CanManage() {
		return apperr.ErrDenied
	}
	if cohort != "" && !ValidCohort(cohort) {
		return apperr.Validationf("invalid cohort %q", cohort)
	}
	return s.assignCohort(ctx, teacherID, cohort)
}

func (s *Service) assignCohort(ctx context.Context, teacherID, cohort string) error {
	previous, err := s.repo.SetCohort(ctx, teacherID, cohort)
	if err != nil {
		return err
	}
	if previous != cohort {
		// Reassignment rewrites class-teacher on the affected students;
		// keep an explicit trace of the mass update.
		log.Printf("teacher %s cohort changed %q -> %q; class-teacher rows rewritten", teacherID, previous, cohort)
	}
	return nil
}

// DeleteTeacher removes a teacher account. The caller cannot delete
// itself. Ledger rows marked by the teacher survive with a nulled marker.
func (s *Service) DeleteTeacher(ctx context.Context, p Principal, id string) error {
	if !p.CanManage() {
		return apperr.ErrDenied
	}
	if id == p.AccountID {
		return apperr.Validationf("you cannot delete your own account")
	}
	return s.repo.DeleteTeacher(ctx, id)
}

// CountTeachers returns the number of teacher profiles.
func (s *Service) CountTeachers(ctx context.Context) (int, error) {
	return s.repo.CountTeachers(ctx)
}

// SaveRefreshToken persists a refresh token for rotation checks.
func (s *Service) SaveRefreshToken(ctx context.Context, accountID, token string, expiresAt time.Time) error {
	return s.repo.SaveRefreshToken(ctx, accountID, token, expiresAt)
}

// RevokeRefreshToken marks a refresh token revoked.
func (s *Service) RevokeRefreshToken(ctx context.Context, token string) error {
	return s.repo.RevokeRefreshToken(ctx, token)
}

// RefreshTokenActive reports whether token is known, unexpired and not revoked.
func (s *Service) RefreshTokenActive(ctx context.Context, token string) (bool, error) {
	return s.repo.RefreshTokenActive(ctx, token)
}
