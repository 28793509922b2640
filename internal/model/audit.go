package model

import "time"

// AuditLog is an append-only record of a domain action. Details carries
// action-specific context as a JSON document.
type AuditLog struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp"`
	UserID        *int64    `gorm:"index" json:"user_id"`
	Action        string    `gorm:"size:64;not null;index" json:"action"`
	ResourceID    *int64    `json:"resource_id"`
	DeviceID      *int64    `json:"device_id"`
	ReservationID *int64    `json:"reservation_id"`
	Result        string    `gorm:"size:16;not null;default:success" json:"result"`
	Details       string    `gorm:"size:1024" json:"details,omitempty"`
}
