package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"resource-reservation-backend/internal/audit"
	"resource-reservation-backend/internal/model"
	"resource-reservation-backend/internal/mw"
	"resource-reservation-backend/internal/realtime"
)

// ListDevices returns every registered device.
func (h *Handler) ListDevices(c *gin.Context) {
	var devices []model.Device
	if err := h.store.DB().WithContext(c.Request.Context()).Order("id").Find(&devices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list devices"})
		return
	}
	c.JSON(http.StatusOK, devices)
}

// GetDevice returns one device.
func (h *Handler) GetDevice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	device, err := h.store.GetDevice(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load device"})
		}
		return
	}
	c.JSON(http.StatusOK, device)
}

type createDeviceRequest struct {
	Name       string `json:"name" binding:"required"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Metadata   string `json:"metadata"`
	ResourceID *int64 `json:"resource_id"`
}

// CreateDevice registers a device and mints its API key. The key is
// returned once, here; it is never included in later reads.
func (h *Handler) CreateDevice(c *gin.Context) {
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.ResourceID != nil {
		if _, err := h.store.GetResource(ctx, *req.ResourceID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resource does not exist"})
			return
		}
		var bound int64
		if err := h.store.DB().WithContext(ctx).Model(&model.Device{}).
			Where("resource_id = ?", *req.ResourceID).
			Count(&bound).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create device"})
			return
		}
		if bound > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "resource already has a device"})
			return
		}
	}

	device := model.Device{
		Name:       req.Name,
		Type:       req.Type,
		Status:     req.Status,
		Metadata:   req.Metadata,
		ResourceID: req.ResourceID,
		APIKey:     uuid.NewString(),
	}
	if device.Type == "" {
		device.Type = model.DeviceOther
	}
	if device.Status == "" {
		device.Status = "inactive"
	}

	if err := h.store.DB().WithContext(ctx).Create(&device).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create device"})
		return
	}

	user := mw.CurrentUser(c)
	if h.audit != nil {
		h.audit.Record(ctx, audit.Entry{
			Action:   "device_created",
			UserID:   &user.ID,
			DeviceID: &device.ID,
		})
	}
	c.JSON(http.StatusCreated, gin.H{"device": device, "api_key": device.APIKey})
}

type updateDeviceRequest struct {
	Name     *string `json:"name"`
	Type     *string `json:"type"`
	Status   *string `json:"status"`
	Metadata *string `json:"metadata"`

	// ResourceID of 0 detaches the device from its resource.
	ResourceID *int64 `json:"resource_id"`
}

// UpdateDevice applies a partial update.
func (h *Handler) UpdateDevice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetDevice(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load device"})
		}
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Metadata != nil {
		updates["metadata"] = *req.Metadata
	}
	if req.ResourceID != nil {
		if *req.ResourceID == 0 {
			updates["resource_id"] = nil
		} else {
			if _, err := h.store.GetResource(ctx, *req.ResourceID); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "resource does not exist"})
				return
			}
			updates["resource_id"] = *req.ResourceID
		}
	}
	if len(updates) > 0 {
		if err := h.store.DB().WithContext(ctx).Model(&model.Device{ID: id}).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update device"})
			return
		}
	}

	device, err := h.store.GetDevice(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load device"})
		return
	}
	c.JSON(http.StatusOK, device)
}

// DeleteDevice removes a device and its queued commands.
func (h *Handler) DeleteDevice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	res := h.store.DB().WithContext(c.Request.Context()).Delete(&model.Device{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete device"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}

	user := mw.CurrentUser(c)
	if h.audit != nil {
		h.audit.Record(c.Request.Context(), audit.Entry{
			Action:   "device_deleted",
			UserID:   &user.ID,
			DeviceID: &id,
		})
	}
	c.Status(http.StatusNoContent)
}

// ListDeviceCommands returns the undelivered commands queued for a device.
func (h *Handler) ListDeviceCommands(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	commands, err := h.commands.Pending(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list commands"})
		return
	}
	c.JSON(http.StatusOK, commands)
}

type deviceReportRequest struct {
	Status       string   `json:"status"`
	NumericValue *float64 `json:"numeric_value"`
	TextValue    *string  `json:"text_value"`
	Metadata     *string  `json:"metadata"`
}

// DeviceReport ingests a state report from an authenticated device.
func (h *Handler) DeviceReport(c *gin.Context) {
	var req deviceReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device := mw.CurrentDevice(c)
	now := h.clock.Now()

	if req.Status != "" {
		device.Status = req.Status
	}
	if req.NumericValue != nil {
		device.NumericValue = req.NumericValue
	}
	if req.TextValue != nil {
		device.TextValue = *req.TextValue
	}
	if req.Metadata != nil {
		device.Metadata = *req.Metadata
	}
	device.LastReportedAt = &now

	if err := h.store.DB().WithContext(c.Request.Context()).Save(device).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store report"})
		return
	}

	if h.hub != nil {
		h.hub.Publish(realtime.EventDeviceUpdated, realtime.DeviceEvent{
			DeviceID: device.ID,
			Status:   device.Status,
		})
	}
	c.JSON(http.StatusOK, device)
}

// NextDeviceCommand hands the oldest undelivered command to the device, or
// 204 when the queue is empty.
func (h *Handler) NextDeviceCommand(c *gin.Context) {
	device := mw.CurrentDevice(c)

	cmd, err := h.commands.DequeueNext(c.Request.Context(), device.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch command"})
		return
	}
	if cmd == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, cmd)
}
