package roster

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/apperr"
	"rollcall/internal/identity"
)

// fakeRepo keeps students in a slice and applies scope and filter
// matching the way the SQL does.
type fakeRepo struct {
	students       []Student
	nextID         int
	cohortTeachers map[string]string // cohort -> teacher account id
	bulkAssigned   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{cohortTeachers: make(map[string]string)}
}

func (f *fakeRepo) matches(s Student, scope identity.Scope, flt Filters) bool {
	if !scope.All {
		if s.Cohort != scope.Cohort {
			return false
		}
		if scope.TeacherID != "" && s.ClassTeacher != scope.TeacherID {
			return false
		}
	}
	if flt.Cohort != "" && s.Cohort != flt.Cohort {
		return false
	}
	if flt.Search != "" {
		q := strings.ToLower(flt.Search)
		hay := strings.ToLower(s.StudentID + " " + s.FirstName + " " + s.LastName + " " + s.Email)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

func (f *fakeRepo) List(_ context.Context, scope identity.Scope, flt Filters) ([]Student, error) {
	var out []Student
	for _, s := range f.students {
		if f.matches(s, scope, flt) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) ByID(_ context.Context, id string) (*Student, error) {
	for i := range f.students {
		if f.students[i].ID == id {
			s := f.students[i]
			return &s, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeRepo) StudentIDExists(_ context.Context, studentID string) (bool, error) {
	for _, s := range f.students {
		if s.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Create(_ context.Context, s Student) (*Student, error) {
	f.nextID++
	s.ID = fmt.Sprintf("row-%d", f.nextID)
	f.students = append(f.students, s)
	return &s, nil
}

func (f *fakeRepo) Update(_ context.Context, s Student) error {
	for i := range f.students {
		if f.students[i].ID == s.ID {
			f.students[i] = s
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	for i := range f.students {
		if f.students[i].ID == id {
			f.students = append(f.students[:i], f.students[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (f *fakeRepo) CountAll(context.Context) (int, error) { return len(f.students), nil }

func (f *fakeRepo) CountByCohort(context.Context) (map[string]int, error) {
	out := make(map[string]int)
	for _, s := range f.students {
		out[s.Cohort]++
	}
	return out, nil
}

func (f *fakeRepo) TeacherForCohort(_ context.Context, cohort string) (string, error) {
	return f.cohortTeachers[cohort], nil
}

func (f *fakeRepo) BulkAssign(context.Context) (int, error) {
	n := 0
	for i := range f.students {
		if f.students[i].ClassTeacher == "" {
			if tid := f.cohortTeachers[f.students[i].Cohort]; tid != "" {
				f.students[i].ClassTeacher = tid
				n++
			}
		}
	}
	f.bulkAssigned = n
	return n, nil
}

func (f *fakeRepo) CohortStats(context.Context) ([]CohortStat, error) {
	var out []CohortStat
	for _, c := range identity.Cohorts {
		st := CohortStat{Cohort: c, CohortName: identity.CohortName(c)}
		for _, s := range f.students {
			if s.Cohort != c {
				continue
			}
			st.Total++
			if s.ClassTeacher != "" {
				st.Assigned++
			}
		}
		st.Unassigned = st.Total - st.Assigned
		out = append(out, st)
	}
	return out, nil
}

var (
	hod     = identity.Principal{AccountID: "hod-1", Role: identity.RoleHOD}
	teacher = identity.Principal{AccountID: "t-1", Role: identity.RoleTeacher, Cohort: "2"}
)

func seeded() *fakeRepo {
	repo := newFakeRepo()
	repo.students = []Student{
		{ID: "s1", StudentID: "STU001", FirstName: "Asha", LastName: "Rao", Cohort: "2", ClassTeacher: "t-1"},
		{ID: "s2", StudentID: "STU002", FirstName: "Ben", LastName: "Kim", Cohort: "2"},
		{ID: "s3", StudentID: "STU003", FirstName: "Cara", LastName: "Diaz", Cohort: "3", ClassTeacher: "t-2"},
	}
	repo.cohortTeachers["2"] = "t-1"
	repo.cohortTeachers["3"] = "t-2"
	return repo
}

func TestListScoping(t *testing.T) {
	svc := NewService(seeded())
	ctx := context.Background()

	all, widened, err := svc.List(ctx, hod, Filters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.False(t, widened)

	mine, widened, err := svc.List(ctx, teacher, Filters{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "STU001", mine[0].StudentID)
	assert.False(t, widened)

	// A teacher's cohort filter cannot reach other cohorts.
	mine, _, err = svc.List(ctx, teacher, Filters{Cohort: "3"})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestListWidensEmptyRoster(t *testing.T) {
	repo := seeded()
	// Detach the teacher's only student; the cohort still has students.
	repo.students[0].ClassTeacher = ""
	svc := NewService(repo)

	students, widened, err := svc.List(context.Background(), teacher, Filters{})
	require.NoError(t, err)
	assert.True(t, widened)
	assert.Len(t, students, 2)
}

func TestRosterStaysStrict(t *testing.T) {
	repo := seeded()
	repo.students[0].ClassTeacher = ""
	svc := NewService(repo)

	students, err := svc.Roster(context.Background(), teacher)
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestListNoCohort(t *testing.T) {
	svc := NewService(seeded())
	_, _, err := svc.List(context.Background(), identity.Principal{Role: identity.RoleTeacher}, Filters{})
	assert.ErrorIs(t, err, apperr.ErrNoCohort)
}

func TestCreateByTeacher(t *testing.T) {
	repo := seeded()
	svc := NewService(repo)

	st, err := svc.Create(context.Background(), teacher, CreateStudentInput{
		StudentID: "STU010", FirstName: "Dev", LastName: "Nair", Cohort: "4",
	})
	require.NoError(t, err)
	// Teacher creations land in the teacher's own cohort regardless of input.
	assert.Equal(t, "2", st.Cohort)
	assert.Equal(t, "t-1", st.ClassTeacher)
}

func TestCreateByManagerAttachesCohortTeacher(t *testing.T) {
	repo := seeded()
	svc := NewService(repo)

	st, err := svc.Create(context.Background(), hod, CreateStudentInput{
		StudentID: "STU011", FirstName: "Esha", LastName: "Jain", Cohort: "3",
	})
	require.NoError(t, err)
	assert.Equal(t, "t-2", st.ClassTeacher)

	_, err = svc.Create(context.Background(), hod, CreateStudentInput{
		StudentID: "STU001", FirstName: "Dup", LastName: "Row", Cohort: "3",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student ID already exists")
}

func TestGetDeniedOutsideScope(t *testing.T) {
	svc := NewService(seeded())
	ctx := context.Background()

	_, err := svc.Get(ctx, teacher, "s3")
	assert.ErrorIs(t, err, apperr.ErrDenied)

	st, err := svc.Get(ctx, hod, "s3")
	require.NoError(t, err)
	assert.Equal(t, "STU003", st.StudentID)

	_, err = svc.Get(ctx, hod, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateCohortManagerOnly(t *testing.T) {
	repo := seeded()
	svc := NewService(repo)
	ctx := context.Background()

	st, err := svc.Update(ctx, teacher, "s1", UpdateStudentInput{FirstName: "Asha", LastName: "Rao", Cohort: "4"})
	require.NoError(t, err)
	assert.Equal(t, "2", st.Cohort, "teacher cannot move a student between cohorts")
	assert.Equal(t, "t-1", st.ClassTeacher)

	st, err = svc.Update(ctx, hod, "s1", UpdateStudentInput{FirstName: "Asha", LastName: "Rao", Cohort: "4", ClassTeacher: "t-9"})
	require.NoError(t, err)
	assert.Equal(t, "4", st.Cohort)
	assert.Equal(t, "t-9", st.ClassTeacher)
}

func TestBulkAssign(t *testing.T) {
	repo := seeded()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.BulkAssign(ctx, teacher)
	assert.ErrorIs(t, err, apperr.ErrDenied)

	n, err := svc.BulkAssign(ctx, hod)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	st, _ := repo.ByID(ctx, "s2")
	assert.Equal(t, "t-1", st.ClassTeacher)
}
