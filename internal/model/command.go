package model

import "time"

// DeviceCommand is a one-shot instruction queued for a device. Commands are
// handed out in creation order and ConsumedAt is stamped exactly once.
type DeviceCommand struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	DeviceID   int64      `gorm:"index;not null" json:"device_id"`
	Action     string     `gorm:"size:32;not null" json:"action"`
	Payload    string     `gorm:"size:512" json:"payload,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"created_at"`
	ConsumedAt *time.Time `json:"consumed_at"`

	// Associations
	Device Device `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Pending reports whether the command has not been delivered yet.
func (c *DeviceCommand) Pending() bool {
	return c.ConsumedAt == nil
}
