package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resource-reservation-backend/internal/model"
)

// ListAuditLogs returns recent audit entries, newest first. Optional
// filters: action, user_id, limit.
func (h *Handler) ListAuditLogs(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusOK, []model.AuditLog{})
		return
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	var userID int64
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		userID = id
	}

	entries, err := h.audit.Recent(c.Request.Context(), limit, c.Query("action"), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit logs"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
