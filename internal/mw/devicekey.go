package mw

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resource-reservation-backend/internal/auth"
	"resource-reservation-backend/internal/model"
)

// DeviceAuth authenticates callers of the device surface. Hardware clients
// present their key in the X-API-Key header or the api_key query parameter;
// a user may stand in for a device with a bearer token plus an explicit
// device_id parameter.
func DeviceAuth(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			key = c.Query("api_key")
		}
		if key != "" {
			var device model.Device
			if err := db.WithContext(c.Request.Context()).Where("api_key = ?", key).First(&device).Error; err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
				return
			}
			c.Set(DeviceKey, &device)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing api key or bearer token"})
			return
		}
		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		var user model.User
		if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown or disabled user"})
			return
		}

		// A token names no device, so the caller has to.
		id, err := strconv.ParseInt(c.Query("device_id"), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "device_id is required with bearer auth"})
			return
		}
		var device model.Device
		if err := db.WithContext(c.Request.Context()).First(&device, id).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}

		c.Set(UserKey, &user)
		c.Set(DeviceKey, &device)
		c.Next()
	}
}

// CurrentDevice returns the authenticated device, or nil.
func CurrentDevice(c *gin.Context) *model.Device {
	v, ok := c.Get(DeviceKey)
	if !ok {
		return nil
	}
	device, _ := v.(*model.Device)
	return device
}
