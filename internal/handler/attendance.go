package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
)

// MarkSheet returns the teacher's roster for a date together with any
// marks already recorded, so resubmission edits rather than duplicates.
func (h *Handler) MarkSheet(c *gin.Context) {
	day, err := parseDate(c, "date", time.Now())
	if err != nil {
		h.respondErr(c, err)
		return
	}
	sheet, err := h.attendance.MarkSheet(c.Request.Context(), principal(c), day)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}

type markRequest struct {
	Date    string                      `json:"date"`
	Entries map[string]attendance.Entry `json:"entries"`
}

// Mark records attendance for the teacher's students on one date. Every
// submission upserts: one row per (student, date), last write wins.
func (h *Handler) Mark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	day := time.Now()
	if req.Date != "" {
		var err error
		if day, err = time.Parse("2006-01-02", req.Date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
	}
	result, err := h.attendance.Mark(c.Request.Context(), principal(c), day, req.Entries)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecentAttendance lists the newest records visible to the caller.
func (h *Handler) RecentAttendance(c *gin.Context) {
	records, err := h.attendance.Recent(c.Request.Context(), principal(c), 0)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
