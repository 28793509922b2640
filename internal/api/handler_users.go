package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resource-reservation-backend/internal/audit"
	"resource-reservation-backend/internal/auth"
	"resource-reservation-backend/internal/model"
	"resource-reservation-backend/internal/mw"
)

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Email    string `json:"email" binding:"required,email"`
}

// CreateUser provisions an account.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetUserByUsername(ctx, req.Username); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	}

	role := req.Role
	switch role {
	case "":
		role = model.RoleUser
	case model.RoleUser, model.RoleAdmin:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be user or admin"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user := model.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         role,
		FullName:     req.FullName,
		Email:        req.Email,
		IsActive:     true,
	}
	if err := h.store.DB().WithContext(ctx).Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	admin := mw.CurrentUser(c)
	if h.audit != nil {
		h.audit.Record(ctx, audit.Entry{
			Action:  "user_created",
			UserID:  &admin.ID,
			Details: map[string]any{"created_user_id": user.ID, "username": user.Username},
		})
	}
	c.JSON(http.StatusCreated, user)
}

// ListUsers returns all accounts.
func (h *Handler) ListUsers(c *gin.Context) {
	var users []model.User
	if err := h.store.DB().WithContext(c.Request.Context()).Order("id").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser returns one account.
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := h.store.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		}
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateUserRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password"`
}

// UpdateUser applies a partial update to an account.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetUser(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		}
		return
	}

	updates := map[string]any{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Role != nil {
		if *req.Role != model.RoleUser && *req.Role != model.RoleAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be user or admin"})
			return
		}
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}
		updates["password_hash"] = hash
	}
	if len(updates) > 0 {
		if err := h.store.DB().WithContext(ctx).Model(&model.User{ID: id}).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}
	}

	user, err := h.store.GetUser(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes an account. Self-deletion is rejected.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	admin := mw.CurrentUser(c)
	if admin.ID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}

	res := h.store.DB().WithContext(c.Request.Context()).Delete(&model.User{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if h.audit != nil {
		h.audit.Record(c.Request.Context(), audit.Entry{
			Action:  "user_deleted",
			UserID:  &admin.ID,
			Details: map[string]any{"deleted_user_id": id},
		})
	}
	c.Status(http.StatusNoContent)
}

// ListPermissions returns the resource ids the user may book.
func (h *Handler) ListPermissions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetUser(ctx, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	ids, err := h.store.PermittedResourceIDs(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list permissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "resource_ids": ids})
}

type grantPermissionRequest struct {
	ResourceID int64 `json:"resource_id" binding:"required"`
}

// GrantPermission lets the user book the resource.
func (h *Handler) GrantPermission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req grantPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetUser(ctx, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if _, err := h.store.GetResource(ctx, req.ResourceID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
		return
	}

	has, err := h.store.HasPermission(ctx, id, req.ResourceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check permission"})
		return
	}
	if has {
		c.JSON(http.StatusConflict, gin.H{"error": "permission already granted"})
		return
	}

	perm := model.ResourcePermission{UserID: id, ResourceID: req.ResourceID}
	if err := h.store.DB().WithContext(ctx).Create(&perm).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to grant permission"})
		return
	}

	admin := mw.CurrentUser(c)
	if h.audit != nil {
		h.audit.Record(ctx, audit.Entry{
			Action:     "permission_granted",
			UserID:     &admin.ID,
			ResourceID: &req.ResourceID,
			Details:    map[string]any{"target_user_id": id},
		})
	}
	c.JSON(http.StatusCreated, perm)
}

// RevokePermission removes a user's access to a resource.
func (h *Handler) RevokePermission(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	resourceID, ok := parseID(c, "resource_id")
	if !ok {
		return
	}

	res := h.store.DB().WithContext(c.Request.Context()).
		Where("user_id = ? AND resource_id = ?", userID, resourceID).
		Delete(&model.ResourcePermission{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke permission"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "permission not found"})
		return
	}

	admin := mw.CurrentUser(c)
	if h.audit != nil {
		h.audit.Record(c.Request.Context(), audit.Entry{
			Action:     "permission_revoked",
			UserID:     &admin.ID,
			ResourceID: &resourceID,
			Details:    map[string]any{"target_user_id": userID},
		})
	}
	c.Status(http.StatusNoContent)
}
