package handler

import (
	"github.com/gin-gonic/gin"
)

// Register mounts all routes. /v1 is the primary surface; /api carries
// the compact aggregate endpoints kept for existing integrations.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"service": "rollcall"})
	})
	r.GET("/healthz", h.Healthz)

	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)
	r.POST("/v1/auth/logout", h.Logout)

	v1 := r.Group("/v1", h.RequireAuth())

	v1.GET("/dashboard", h.Dashboard)

	teachers := v1.Group("/teachers", h.RequireManager())
	teachers.GET("", h.ListTeachers)
	teachers.POST("", h.CreateTeacher)
	teachers.GET("/:id", h.GetTeacher)
	teachers.PUT("/:id", h.UpdateTeacher)
	teachers.DELETE("/:id", h.DeleteTeacher)
	teachers.POST("/:id/assign-cohort", h.AssignCohort)

	students := v1.Group("/students")
	students.GET("", h.ListStudents)
	students.POST("", h.CreateStudent)
	students.GET("/stats", h.RequireManager(), h.CohortStats)
	students.POST("/bulk-assign", h.RequireManager(), h.BulkAssignStudents)
	students.GET("/:id", h.GetStudent)
	students.PUT("/:id", h.UpdateStudent)
	students.DELETE("/:id", h.DeleteStudent)

	att := v1.Group("/attendance")
	att.GET("/mark", h.MarkSheet)
	att.POST("/mark", h.Mark)
	att.GET("/recent", h.RecentAttendance)

	rep := v1.Group("/reports")
	rep.GET("/daily", h.DailyReport)
	rep.GET("/calendar", h.CalendarReport)
	rep.GET("/detailed", h.DetailedReport)
	rep.GET("/monthly", h.MonthlyReport)
	rep.GET("/analytics", h.AnalyticsReport)
	rep.GET("/assigned", h.AssignedStudents)
	rep.GET("/export-csv", h.ExportCSV)
	rep.GET("/students", h.StudentReport)
	rep.GET("/students/:id", h.StudentReport)

	api := r.Group("/api", h.RequireAuth())
	api.GET("/reports", h.APIReport)
	api.GET("/students", h.ListStudents)
	api.GET("/attendance", h.RecentAttendance)
}
