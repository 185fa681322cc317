package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/reports"
)

// dashboardRecentLimit bounds the recent-records strip on the landing
// summary; /v1/attendance/recent serves the longer list.
const dashboardRecentLimit = 5

func yearMonth(c *gin.Context) (int, time.Month) {
	now := time.Now()
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 1 {
		year = now.Year()
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		month = int(now.Month())
	}
	return year, time.Month(month)
}

func reportFilters(c *gin.Context) reports.Filters {
	return reports.Filters{
		Cohort:    c.Query("cohort"),
		TeacherID: c.Query("teacher"),
		Status:    attendance.Status(c.Query("status")),
	}
}

// reportRange reads start_date/end_date, defaulting to the first of the
// current month through today.
func (h *Handler) reportRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now()
	from, err := parseDate(c, "start_date", time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(c, "end_date", now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// DailyReport returns one day's snapshot over marked records.
func (h *Handler) DailyReport(c *gin.Context) {
	day, err := parseDate(c, "date", time.Now())
	if err != nil {
		h.respondErr(c, err)
		return
	}
	snap, err := h.reports.Daily(c.Request.Context(), principal(c), day)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CalendarReport returns the per-student month grid.
func (h *Handler) CalendarReport(c *gin.Context) {
	year, month := yearMonth(c)
	rep, err := h.reports.Calendar(c.Request.Context(), principal(c), year, month)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// DetailedReport returns range-filtered records with breakdown and
// leaderboard.
func (h *Handler) DetailedReport(c *gin.Context) {
	from, to, err := h.reportRange(c)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	rep, err := h.reports.Detailed(c.Request.Context(), principal(c), from, to, reportFilters(c))
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// MonthlyReport returns the per-student month summary.
func (h *Handler) MonthlyReport(c *gin.Context) {
	year, month := yearMonth(c)
	rep, err := h.reports.Monthly(c.Request.Context(), principal(c), year, month)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// StudentReport returns one student's record history and breakdown.
func (h *Handler) StudentReport(c *gin.Context) {
	var from, to *time.Time
	if raw := c.Query("start_date"); raw != "" {
		d, err := parseDate(c, "start_date", time.Time{})
		if err != nil {
			h.respondErr(c, err)
			return
		}
		from = &d
	}
	if raw := c.Query("end_date"); raw != "" {
		d, err := parseDate(c, "end_date", time.Time{})
		if err != nil {
			h.respondErr(c, err)
			return
		}
		to = &d
	}
	studentID := c.Param("id")
	if studentID == "" {
		studentID = c.Query("student_id")
	}
	rep, err := h.reports.StudentWise(c.Request.Context(), principal(c), studentID, from, to)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// AnalyticsReport returns per-day totals and the status distribution
// for one month.
func (h *Handler) AnalyticsReport(c *gin.Context) {
	year, month := yearMonth(c)
	rep, err := h.reports.AnalyticsFor(c.Request.Context(), principal(c), year, month)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// AssignedStudents returns a teacher's roster with lifetime attendance.
func (h *Handler) AssignedStudents(c *gin.Context) {
	students, widened, err := h.reports.AssignedStudents(c.Request.Context(), principal(c))
	if err != nil {
		h.respondErr(c, err)
		return
	}
	if students == nil {
		students = []reports.AssignedStudent{}
	}
	c.JSON(http.StatusOK, gin.H{"students": students, "widened": widened})
}

// ExportCSV streams the detailed or summary report as a CSV attachment.
func (h *Handler) ExportCSV(c *gin.Context) {
	from, to, err := h.reportRange(c)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	kind := reports.ExportKind(c.DefaultQuery("type", string(reports.ExportDetailed)))
	if kind != reports.ExportDetailed && kind != reports.ExportSummary {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be detailed or summary"})
		return
	}

	// Render to a buffer first so a failed export never sends a partial
	// CSV with an error payload appended.
	var buf bytes.Buffer
	if err := h.reports.ExportCSV(c.Request.Context(), &buf, principal(c), kind, from, to, reportFilters(c)); err != nil {
		h.respondErr(c, err)
		return
	}
	filename := fmt.Sprintf("attendance_report_%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// Dashboard returns the role-specific landing summary. The manager view
// includes recent records; the teacher view is cohort-scoped.
func (h *Handler) Dashboard(c *gin.Context) {
	p := principal(c)
	dash, err := h.reports.DashboardFor(c.Request.Context(), p)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	if dash.Message == "" {
		recent, err := h.attendance.Recent(c.Request.Context(), p, dashboardRecentLimit)
		if err != nil {
			h.respondErr(c, err)
			return
		}
		dash.Recent = recent
	}
	c.JSON(http.StatusOK, dash)
}

// APIReport returns today's aggregate for machine consumers. Its rate
// divides by roster size rather than marked records.
func (h *Handler) APIReport(c *gin.Context) {
	rep, err := h.reports.APIReportFor(c.Request.Context(), principal(c))
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
