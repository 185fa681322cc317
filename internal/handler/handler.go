package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/identity"
	"rollcall/internal/reports"
	"rollcall/internal/roster"
	"rollcall/internal/store"
)

// Handler owns the HTTP surface and delegates to the domain services.
type Handler struct {
	cfg        config.App
	identity   *identity.Service
	roster     *roster.Service
	attendance *attendance.Service
	reports    *reports.Service
	db         *store.DB
	redis      *store.Redis
}

func New(cfg config.App, idSvc *identity.Service, rosterSvc *roster.Service, attSvc *attendance.Service, repSvc *reports.Service, db *store.DB, redis *store.Redis) *Handler {
	return &Handler{
		cfg:        cfg,
		identity:   idSvc,
		roster:     rosterSvc,
		attendance: attSvc,
		reports:    repSvc,
		db:         db,
		redis:      redis,
	}
}

// Healthz reports liveness of the process and its backing stores.
func (h *Handler) Healthz(c *gin.Context) {
	dbOK := h.db != nil && h.db.Client.PingContext(c.Request.Context()) == nil
	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ok", false: "degraded"}[dbOK],
		"db":     dbOK,
		"redis":  h.redis.Healthy(c.Request.Context()),
	})
}

// respondErr maps domain errors onto HTTP responses. Unknown errors are
// logged and returned as an opaque 500.
func (h *Handler) respondErr(c *gin.Context, err error) {
	switch {
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
	case errors.Is(err, apperr.ErrDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperr.ErrNoCohort):
		// Not a failure: the account simply has no cohort yet.
		c.JSON(http.StatusOK, gin.H{"message": "No cohort assigned. Contact HOD."})
	case errors.Is(err, apperr.ErrNoStudents):
		c.JSON(http.StatusOK, gin.H{"message": "no students assigned", "students": []any{}})
	default:
		log.Printf("%s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// parseDate reads a YYYY-MM-DD query param, defaulting to def.
func parseDate(c *gin.Context, name string, def time.Time) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperr.Validationf("invalid %s %q, want YYYY-MM-DD", name, raw)
	}
	return d, nil
}
