package model

import "time"

// Device categories. The category decides which command actions the device
// accepts.
const (
	DeviceLock   = "lock"
	DeviceSensor = "sensor"
	DeviceCamera = "camera"
	DeviceOther  = "other"
)

// Command actions understood by devices.
const (
	ActionLock   = "lock"
	ActionUnlock = "unlock"
	ActionRead   = "read"
)

// Device is a piece of hardware attached to at most one resource. The API
// key identifies the device on the polling endpoints.
type Device struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Name           string     `gorm:"size:128;not null" json:"name"`
	Type           string     `gorm:"size:32;not null;default:other" json:"type"`
	Status         string     `gorm:"size:32;not null;default:inactive" json:"status"`
	APIKey         string     `gorm:"uniqueIndex;size:64" json:"-"`
	NumericValue   *float64   `json:"numeric_value"`
	TextValue      string     `gorm:"size:256" json:"text_value"`
	Metadata       string     `gorm:"size:1024" json:"metadata,omitempty"`
	LastReportedAt *time.Time `json:"last_reported_at"`
	ResourceID     *int64     `gorm:"uniqueIndex" json:"resource_id"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`

	// Associations
	Resource *Resource `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}

// SupportsAction reports whether the device can execute the given command
// action. Only locks take lock/unlock; every category answers a read.
func (d *Device) SupportsAction(action string) bool {
	switch action {
	case ActionLock, ActionUnlock:
		return d.Type == DeviceLock
	case ActionRead:
		return true
	}
	return false
}
