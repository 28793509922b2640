package api

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"resource-reservation-backend/internal/model"
	"resource-reservation-backend/internal/mw"
	"resource-reservation-backend/internal/store"
)

// ListReservations returns reservations matching the query filters, limited
// to what the viewer may see.
func (h *Handler) ListReservations(c *gin.Context) {
	var f store.ReservationFilter

	if v := c.Query("resource_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resource_id"})
			return
		}
		f.ResourceID = id
	}
	if v := c.Query("status"); v != "" {
		f.Status = v
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' timestamp, use RFC3339"})
			return
		}
		f.StartFrom = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' timestamp, use RFC3339"})
			return
		}
		f.StartTo = &t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		f.Limit = n
	}

	viewer := mw.CurrentUser(c)
	if v := c.Query("user_id"); v != "" && viewer.IsAdmin() {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		f.UserID = id
	}

	reservations, err := h.scheduler.List(c.Request.Context(), f, viewer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reservations"})
		return
	}
	c.JSON(http.StatusOK, reservations)
}

// GetReservation returns one reservation the viewer may see.
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	reservation, err := h.scheduler.Get(c.Request.Context(), id, mw.CurrentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// ReleaseReservation releases a reservation by id. Force is honored for
// admins only.
func (h *Handler) ReleaseReservation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req releaseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	user := mw.CurrentUser(c)
	force := req.Force && user.IsAdmin()

	reservation, err := h.scheduler.Release(c.Request.Context(), id, user, req.Notes, force)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// ReservationStats aggregates booking counts for the admin dashboard.
func (h *Handler) ReservationStats(c *gin.Context) {
	ctx := c.Request.Context()
	db := h.store.DB().WithContext(ctx)

	var total int64
	if err := db.Model(&model.Reservation{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var byStatus []statusCount
	if err := db.Model(&model.Reservation{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	statuses := make(map[string]int64, len(byStatus))
	for _, s := range byStatus {
		statuses[s.Status] = s.Count
	}

	type resourceCount struct {
		ResourceID int64  `json:"resource_id"`
		Name       string `json:"name"`
		Count      int64  `json:"count"`
	}
	var topResources []resourceCount
	if err := db.Model(&model.Reservation{}).
		Select("reservations.resource_id, resources.name, count(*) as count").
		Joins("JOIN resources ON resources.id = reservations.resource_id").
		Group("reservations.resource_id, resources.name").
		Order("count DESC").
		Limit(5).
		Scan(&topResources).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	// Day buckets are computed here; date functions differ between sqlite
	// and postgres.
	now := h.clock.Now()
	var recent []model.Reservation
	if err := db.Model(&model.Reservation{}).
		Select("created_at").
		Where("created_at >= ?", now.AddDate(0, 0, -7)).
		Find(&recent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	daily := make(map[string]int64)
	for _, r := range recent {
		daily[r.CreatedAt.UTC().Format("2006-01-02")]++
	}
	type dayCount struct {
		Date  string `json:"date"`
		Count int64  `json:"count"`
	}
	days := make([]dayCount, 0, 7)
	for i := 6; i >= 0; i-- {
		d := now.AddDate(0, 0, -i).UTC().Format("2006-01-02")
		days = append(days, dayCount{Date: d, Count: daily[d]})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_reservations": total,
		"by_status":          statuses,
		"top_resources":      topResources,
		"last_7_days":        days,
	})
}

// ExportReservations streams the full reservation history. Only CSV is
// wired up; pdf requests report a server error.
func (h *Handler) ExportReservations(c *gin.Context) {
	switch c.DefaultQuery("format", "csv") {
	case "csv":
	case "pdf":
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pdf export is not available"})
		return
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or pdf"})
		return
	}

	var reservations []model.Reservation
	if err := h.store.DB().WithContext(c.Request.Context()).
		Preload("Resource").
		Preload("User").
		Order("id").
		Find(&reservations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export reservations"})
		return
	}

	filename := fmt.Sprintf("reservations-%s.csv", h.clock.Now().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	w.Write([]string{"id", "resource", "user", "status", "start_time", "end_time", "expires_at", "released_by_admin", "notes"})
	for i := range reservations {
		r := &reservations[i]
		end := ""
		if r.EndTime != nil {
			end = r.EndTime.UTC().Format(time.RFC3339)
		}
		w.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.Resource.Name,
			r.User.Username,
			r.Status,
			r.StartTime.UTC().Format(time.RFC3339),
			end,
			r.ExpiresAt.UTC().Format(time.RFC3339),
			strconv.FormatBool(r.ReleasedByAdmin),
			r.Notes,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Printf("csv export failed mid-stream: %v", err)
	}
}
