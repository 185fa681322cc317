package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/roster"
)

// ListStudents returns the scoped student directory. Teachers with an
// empty roster see the whole cohort, flagged as widened.
func (h *Handler) ListStudents(c *gin.Context) {
	f := roster.Filters{
		Search: c.Query("search"),
		Cohort: c.Query("cohort"),
	}
	students, widened, err := h.roster.List(c.Request.Context(), principal(c), f)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	if students == nil {
		students = []roster.Student{}
	}
	c.JSON(http.StatusOK, gin.H{"students": students, "widened": widened})
}

type studentRequest struct {
	StudentID    string `json:"student_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Cohort       string `json:"cohort"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	DateOfBirth  string `json:"date_of_birth"`
	Address      string `json:"address"`
	ClassTeacher string `json:"class_teacher"`
}

func (r studentRequest) dob(c *gin.Context) (*time.Time, bool) {
	if r.DateOfBirth == "" {
		return nil, true
	}
	d, err := time.Parse("2006-01-02", r.DateOfBirth)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_of_birth, want YYYY-MM-DD"})
		return nil, false
	}
	return &d, true
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dob, ok := req.dob(c)
	if !ok {
		return
	}
	st, err := h.roster.Create(c.Request.Context(), principal(c), roster.CreateStudentInput{
		StudentID:   req.StudentID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Cohort:      req.Cohort,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: dob,
		Address:     req.Address,
	})
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.roster.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dob, ok := req.dob(c)
	if !ok {
		return
	}
	st, err := h.roster.Update(c.Request.Context(), principal(c), c.Param("id"), roster.UpdateStudentInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Cohort:       req.Cohort,
		Email:        req.Email,
		Phone:        req.Phone,
		DateOfBirth:  dob,
		Address:      req.Address,
		ClassTeacher: req.ClassTeacher,
	})
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.roster.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "student deleted"})
}

// BulkAssignStudents attaches every unassigned student to its cohort's
// teacher in one statement.
func (h *Handler) BulkAssignStudents(c *gin.Context) {
	n, err := h.roster.BulkAssign(c.Request.Context(), principal(c))
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assigned": n})
}

// CohortStats returns per-cohort totals and teacher coverage.
func (h *Handler) CohortStats(c *gin.Context) {
	stats, err := h.roster.CohortStats(c.Request.Context(), principal(c))
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cohorts": stats})
}
