package identity

import (
	"time"

	"rollcall/internal/apperr"
)

// Role is the effective role of an authenticated principal. It is a
// closed set: superuser accounts resolve to RoleAdmin, everything else
// carries its stored profile role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleHOD     Role = "hod"
	RoleTeacher Role = "teacher"
)

// Cohorts are the four fixed groups students belong to, also the unit
// of teacher assignment.
var Cohorts = []string{"1", "2", "3", "4"}

var cohortNames = map[string]string{
	"1": "First Year",
	"2": "Second Year",
	"3": "Third Year",
	"4": "Fourth Year",
}

// ValidCohort reports whether c is one of the persisted cohort values.
func ValidCohort(c string) bool {
	_, ok := cohortNames[c]
	return ok
}

// CohortName returns the display name for a cohort code.
func CohortName(c string) string {
	if name, ok := cohortNames[c]; ok {
		return name
	}
	return "Not Assigned"
}

// Account is an authentication identity.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsSuperuser  bool      `json:"is_superuser"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName returns "First Last", falling back to the username.
func (a Account) FullName() string {
	if a.FirstName == "" && a.LastName == "" {
		return a.Username
	}
	return a.FirstName + " " + a.LastName
}

// Profile is the per-account role record. Superusers are admins without
// a profile role value.
type Profile struct {
	AccountID string    `json:"account_id"`
	Role      Role      `json:"role"`
	Cohort    string    `json:"assigned_cohort,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is a resolved caller: account identity plus effective role
// and, for teachers, assigned cohort.
type Principal struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	Cohort    string `json:"cohort,omitempty"`
}

// CanManage reports whether the principal may manage teachers and see
// all students (admin and HOD rights are identical here).
func (p Principal) CanManage() bool {
	return p.Role == RoleAdmin || p.Role == RoleHOD
}

// Scope is the subset of students and attendance records a principal
// may see. Write paths always use the strict assigned-students set;
// some read views widen an empty strict set to the whole cohort.
type Scope struct {
	All       bool
	TeacherID string
	Cohort    string
	Widen     bool
}

// ScopeFor resolves the visibility scope for p. widen controls whether
// an empty strict roster may fall back to the whole cohort; callers
// decide per operation. A teacher without a cohort gets ErrNoCohort.
func ScopeFor(p Principal, widen bool) (Scope, error) {
	if p.CanManage() {
		return Scope{All: true}, nil
	}
	if p.Cohort == "" {
		return Scope{}, apperr.ErrNoCohort
	}
	return Scope{TeacherID: p.AccountID, Cohort: p.Cohort, Widen: widen}, nil
}

// Teacher is a teacher row annotated for list views.
type Teacher struct {
	Account
	Cohort       string `json:"assigned_cohort,omitempty"`
	CohortName   string `json:"cohort_name"`
	Phone        string `json:"phone,omitempty"`
	StudentCount int    `json:"student_count"`
}
