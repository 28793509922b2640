package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"resource-reservation-backend/config"
	"resource-reservation-backend/internal/audit"
	"resource-reservation-backend/internal/clock"
	"resource-reservation-backend/internal/commandq"
	"resource-reservation-backend/internal/realtime"
	"resource-reservation-backend/internal/scheduler"
	"resource-reservation-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	scheduler *scheduler.Service
	commands  *commandq.Queue
	audit     *audit.Recorder
	clock     clock.Clock
	hub       *realtime.Hub
	webpush   *webpush.Options
	cfg       *config.Config
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:     d.Store,
		scheduler: d.Scheduler,
		commands:  d.Commands,
		audit:     d.Audit,
		clock:     d.Clock,
		hub:       d.Hub,
		webpush:   d.WebPush,
		cfg:       d.Config,
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheduler.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, scheduler.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, scheduler.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, scheduler.ErrValidation), errors.Is(err, scheduler.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// parseID reads a numeric path parameter, aborting with 400 on garbage.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// Root identifies the service.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Sistema de Reserva de Recursos",
		"version": "1.0.0",
	})
}

// Healthz reports liveness of the process and its database.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}
