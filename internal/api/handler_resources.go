package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resource-reservation-backend/internal/audit"
	"resource-reservation-backend/internal/model"
	"resource-reservation-backend/internal/mw"
	"resource-reservation-backend/internal/scheduler"
)

// ListResources returns every resource with its device.
func (h *Handler) ListResources(c *gin.Context) {
	resources, err := h.store.ListResources(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list resources"})
		return
	}
	c.JSON(http.StatusOK, resources)
}

// GetResource returns one resource with its device.
func (h *Handler) GetResource(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resource, err := h.store.GetResource(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load resource"})
		}
		return
	}
	c.JSON(http.StatusOK, resource)
}

type reserveRequest struct {
	DurationMinutes int        `json:"duration_minutes"`
	StartTime       *time.Time `json:"start_time"`
	Notes           string     `json:"notes"`
}

// ReserveResource books the resource for the authenticated user. An empty
// body books now for the default duration.
func (h *Handler) ReserveResource(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req reserveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	reservation, err := h.scheduler.Create(c.Request.Context(), id, mw.CurrentUser(c), scheduler.CreateRequest{
		DurationMinutes: req.DurationMinutes,
		StartTime:       req.StartTime,
		Notes:           req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

type releaseRequest struct {
	Notes string `json:"notes"`
	Force bool   `json:"force"`
}

// ReleaseResource releases the reservation holding the resource: the active
// one when present, otherwise the soonest scheduled one. Force is honored
// for admins only.
func (h *Handler) ReleaseResource(c *gin.Context) {
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

	current, err := h.store.CurrentOccupying(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up reservation"})
		return
	}
	if current == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no occupying reservation on this resource"})
		return
	}

	reservation, err := h.scheduler.Release(c.Request.Context(), current.ID, user, req.Notes, force)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

type createResourceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Location    string `json:"location"`
	Capacity    int    `json:"capacity"`
}

// CreateResource registers a new bookable resource.
func (h *Handler) CreateResource(c *gin.Context) {
	var req createResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resource := model.Resource{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Status:      model.ResourceAvailable,
	}
	if resource.Type == "" {
		resource.Type = "generic"
	}
	if resource.Capacity <= 0 {
		resource.Capacity = 1
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Create(&resource).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create resource"})
		return
	}

	user := mw.CurrentUser(c)
	if h.audit != nil {
		h.audit.Record(c.Request.Context(), audit.Entry{
			Action:     "resource_created",
			UserID:     &user.ID,
			ResourceID: &resource.ID,
		})
	}
	c.JSON(http.StatusCreated, resource)
}

type updateResourceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	Location    *string `json:"location"`
	Capacity    *int    `json:"capacity"`
	Status      *string `json:"status"`
}

// UpdateResource applies a partial update. A status change goes through the
// scheduler so the maintenance override and the occupancy projection stay
// consistent.
func (h *Handler) UpdateResource(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetResource(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load resource"})
		}
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Capacity != nil {
		updates["capacity"] = *req.Capacity
	}
	if len(updates) > 0 {
		if err := h.store.DB().WithContext(ctx).Model(&model.Resource{ID: id}).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update resource"})
			return
		}
	}

	if req.Status != nil {
		if _, err := h.scheduler.SetResourceStatus(ctx, id, *req.Status); err != nil {
			writeError(c, err)
			return
		}
	}

	resource, err := h.store.GetResource(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load resource"})
		return
	}
	c.JSON(http.StatusOK, resource)
}

// DeleteResource removes a resource and, by cascade, its reservations.
func (h *Handler) DeleteResource(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	res := h.store.DB().WithContext(c.Request.Context()).Delete(&model.Resource{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete resource"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
		return
	}

	user := mw.CurrentUser(c)
	if h.audit != nil {
		h.audit.Record(c.Request.Context(), audit.Entry{
			Action:     "resource_deleted",
			UserID:     &user.ID,
			ResourceID: &id,
		})
	}
	c.Status(http.StatusNoContent)
}
