package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/apperr"
	"rollcall/internal/auth"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	accounts map[string]*Account // by id
	profiles map[string]*Profile // by account id
	cohorts  map[string]string   // teacher id -> cohort, mirrors profiles
	tokens   map[string]bool     // refresh token -> active
	deleted  []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts: make(map[string]*Account),
		profiles: make(map[string]*Profile),
		cohorts:  make(map[string]string),
		tokens:   make(map[string]bool),
	}
}

func (f *fakeRepo) addAccount(id, username, password string, super bool) *Account {
	hash, _ := auth.HashPassword(password)
	acct := &Account{ID: id, Username: username, Email: username + "@example.com", PasswordHash: hash, IsSuperuser: super}
	f.accounts[id] = acct
	return acct
}

func (f *fakeRepo) AccountByUsername(_ context.Context, username string) (*Account, error) {
	for _, a := range f.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeRepo) AccountByID(_ context.Context, id string) (*Account, error) {
	if a, ok := f.accounts[id]; ok {
		return a, nil
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, a := range f.accounts {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) EmailExists(_ context.Context, email string) (bool, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) EnsureProfile(_ context.Context, accountID string, role Role) (*Profile, error) {
	if p, ok := f.profiles[accountID]; ok {
		return p, nil
	}
	p := &Profile{AccountID: accountID, Role: role}
	f.profiles[accountID] = p
	return p, nil
}

// teacherRow mirrors the repository queries: a teacher is a teacher-role
// profile whose account is not a superuser.
func (f *fakeRepo) teacherRow(id string) (*Teacher, bool) {
	a, ok := f.accounts[id]
	p := f.profiles[id]
	if !ok || p == nil || p.Role != RoleTeacher || a.IsSuperuser {
		return nil, false
	}
	return &Teacher{Account: *a, Cohort: f.cohorts[id]}, true
}

func (f *fakeRepo) ListTeachers(context.Context) ([]Teacher, error) {
	var out []Teacher
	for id := range f.accounts {
		if t, ok := f.teacherRow(id); ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeRepo) TeacherByID(_ context.Context, id string) (*Teacher, error) {
	t, ok := f.teacherRow(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) CreateTeacher(_ context.Context, acct Account, cohort, phone string) (*Account, error) {
	acct.ID = "acct-" + acct.Username
	f.accounts[acct.ID] = &acct
	f.profiles[acct.ID] = &Profile{AccountID: acct.ID, Role: RoleTeacher, Cohort: cohort, Phone: phone}
	f.cohorts[acct.ID] = cohort
	return &acct, nil
}

func (f *fakeRepo) UpdateTeacher(_ context.Context, id, firstName, lastName, email, passwordHash string) error {
	a, ok := f.accounts[id]
	if !ok {
		return apperr.ErrNotFound
	}
	a.FirstName, a.LastName, a.Email = firstName, lastName, email
	if passwordHash != "" {
		a.PasswordHash = passwordHash
	}
	return nil
}

func (f *fakeRepo) DeleteTeacher(_ context.Context, id string) error {
	if _, ok := f.accounts[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.accounts, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) SetCohort(_ context.Context, teacherID, cohort string) (string, error) {
	prev := f.cohorts[teacherID]
	f.cohorts[teacherID] = cohort
	if p, ok := f.profiles[teacherID]; ok {
		p.Cohort = cohort
	}
	return prev, nil
}

func (f *fakeRepo) CountTeachers(context.Context) (int, error) {
	n := 0
	for id := range f.accounts {
		if _, ok := f.teacherRow(id); ok {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) SaveRefreshToken(_ context.Context, _ string, token string, _ time.Time) error {
	f.tokens[token] = true
	return nil
}

func (f *fakeRepo) RevokeRefreshToken(_ context.Context, token string) error {
	f.tokens[token] = false
	return nil
}

func (f *fakeRepo) RefreshTokenActive(_ context.Context, token string) (bool, error) {
	return f.tokens[token], nil
}

var admin = Principal{AccountID: "admin-1", Role: RoleAdmin}

func TestAuthenticate(t *testing.T) {
	repo := newFakeRepo()
	repo.addAccount("a1", "priya", "s3cret", false)
	svc := NewService(repo)
	ctx := context.Background()

	acct, err := svc.Authenticate(ctx, "priya", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "a1", acct.ID)

	_, err = svc.Authenticate(ctx, "priya", "wrong")
	assert.ErrorIs(t, err, apperr.ErrCredentials)

	// Unknown usernames report the same error as bad passwords.
	_, err = svc.Authenticate(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, apperr.ErrCredentials)
}

func TestResolveRoles(t *testing.T) {
	repo := newFakeRepo()
	repo.addAccount("su", "root", "pw", true)
	repo.addAccount("h1", "head", "pw", false)
	repo.profiles["h1"] = &Profile{AccountID: "h1", Role: RoleHOD}
	repo.addAccount("t1", "teach", "pw", false)
	repo.profiles["t1"] = &Profile{AccountID: "t1", Role: RoleTeacher, Cohort: "3"}
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.Resolve(ctx, "su")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, p.Role)
	assert.Empty(t, p.Cohort)

	p, err = svc.Resolve(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, RoleHOD, p.Role)

	p, err = svc.Resolve(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, p.Role)
	assert.Equal(t, "3", p.Cohort)
}

func TestResolveCreatesProfile(t *testing.T) {
	repo := newFakeRepo()
	repo.addAccount("t2", "fresh", "pw", false)
	svc := NewService(repo)

	p, err := svc.Resolve(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, p.Role)
	assert.Contains(t, repo.profiles, "t2")
}

func TestSuperuserNotListedAsTeacher(t *testing.T) {
	repo := newFakeRepo()
	repo.addAccount("su", "root", "pw", true)
	repo.addAccount("t1", "teach", "pw", false)
	repo.profiles["t1"] = &Profile{AccountID: "t1", Role: RoleTeacher, Cohort: "2"}
	svc := NewService(repo)
	ctx := context.Background()

	// Resolving a superuser self-heals a profile row; that row must not
	// turn the admin into a teacher.
	_, err := svc.Resolve(ctx, "su")
	require.NoError(t, err)
	require.Contains(t, repo.profiles, "su")

	teachers, err := svc.Teachers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "t1", teachers[0].ID)

	n, err := svc.CountTeachers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.Teacher(ctx, admin, "su")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateTeacher(t *testing.T) {
	repo := newFakeRepo()
	repo.addAccount("a1", "taken", "pw", false)
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateTeacher(ctx, Principal{Role: RoleTeacher}, CreateTeacherInput{Username: "x", Email: "x@e.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrDenied)

	_, err = svc.CreateTeacher(ctx, admin, CreateTeacherInput{Username: "x"})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.CreateTeacher(ctx, admin, CreateTeacherInput{Username: "taken", Email: "n@e.com", Password: "pw"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username already exists")

	_, err = svc.CreateTeacher(ctx, admin, CreateTeacherInput{Username: "new", Email: "taken@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email already registered")

	_, err = svc.CreateTeacher(ctx, admin, CreateTeacherInput{Username: "new", Email: "n@e.com", Password: "pw", Cohort: "7"})
	assert.True(t, apperr.IsValidation(err))

	acct, err := svc.CreateTeacher(ctx, admin, CreateTeacherInput{
		Username: "anita", Email: "anita@e.com", Password: "pw", FirstName: "Anita", Cohort: "2",
	})
	require.NoError(t, err)
	assert.Equal(t, "anita", acct.Username)
	assert.Equal(t, "2", repo.cohorts[acct.ID])
	// Stored hash must verify, never the raw password.
	assert.True(t, auth.CheckPassword(repo.accounts[acct.ID].PasswordHash, "pw"))
	assert.NotEqual(t, "pw", repo.accounts[acct.ID].PasswordHash)
}

func TestDeleteTeacherSelfGuard(t *testing.T) {
	repo := newFakeRepo()
	repo.addAccount("admin-1", "boss", "pw", true)
	repo.addAccount("t1", "teach", "pw", false)
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.DeleteTeacher(ctx, admin, "admin-1")
	assert.True(t, apperr.IsValidation(err))

	require.NoError(t, svc.DeleteTeacher(ctx, admin, "t1"))
	assert.Equal(t, []string{"t1"}, repo.deleted)
}

func TestAssignCohort(t *testing.T) {
	repo := newFakeRepo()
	repo.addAccount("t1", "teach", "pw", false)
	repo.cohorts["t1"] = "1"
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.AssignCohort(ctx, Principal{Role: RoleTeacher}, "t1", "2")
	assert.ErrorIs(t, err, apperr.ErrDenied)

	err = svc.AssignCohort(ctx, admin, "t1", "9")
	assert.True(t, apperr.IsValidation(err))

	require.NoError(t, svc.AssignCohort(ctx, admin, "t1", "2"))
	assert.Equal(t, "2", repo.cohorts["t1"])

	// Clearing the cohort is allowed.
	require.NoError(t, svc.AssignCohort(ctx, admin, "t1", ""))
	assert.Equal(t, "", repo.cohorts["t1"])
}
