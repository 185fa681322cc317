package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/identity"
)

// ListTeachers returns all teacher accounts with cohort and roster size.
func (h *Handler) ListTeachers(c *gin.Context) {
	teachers, err := h.identity.Teachers(c.Request.Context(), principal(c))
	if err != nil {
		h.respondErr(c, err)
		return
	}
	if teachers == nil {
		teachers = []identity.Teacher{}
	}
	c.JSON(http.StatusOK, gin.H{"teachers": teachers})
}

type createTeacherRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Cohort    string `json:"cohort"`
	Phone     string `json:"phone"`
}

func (h *Handler) CreateTeacher(c *gin.Context) {
	var req createTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := h.identity.CreateTeacher(c.Request.Context(), principal(c), identity.CreateTeacherInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Cohort:    req.Cohort,
		Phone:     req.Phone,
	})
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *Handler) GetTeacher(c *gin.Context) {
	t, err := h.identity.Teacher(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type updateTeacherRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Cohort    string `json:"cohort"`
}

func (h *Handler) UpdateTeacher(c *gin.Context) {
	var req updateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.identity.UpdateTeacher(c.Request.Context(), principal(c), c.Param("id"), identity.UpdateTeacherInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Cohort:    req.Cohort,
	})
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "teacher updated"})
}

type assignCohortRequest struct {
	Cohort string `json:"cohort"`
}

// AssignCohort sets or clears a teacher's cohort, moving class-teacher
// assignments along with it.
func (h *Handler) AssignCohort(c *gin.Context) {
	var req assignCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.identity.AssignCohort(c.Request.Context(), principal(c), c.Param("id"), req.Cohort); err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cohort assigned", "cohort_name": identity.CohortName(req.Cohort)})
}

func (h *Handler) DeleteTeacher(c *gin.Context) {
	if err := h.identity.DeleteTeacher(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "teacher deleted"})
}
