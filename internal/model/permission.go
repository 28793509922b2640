package model

import "time"

// ResourcePermission grants a non-admin user booking rights on a resource.
// One row per (user, resource) pair.
type ResourcePermission struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	UserID     int64     `gorm:"uniqueIndex:idx_permission_user_resource;not null" json:"user_id"`
	ResourceID int64     `gorm:"uniqueIndex:idx_permission_user_resource;not null" json:"resource_id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`

	// Associations
	User     User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Resource Resource `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
