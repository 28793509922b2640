package model

import "time"

// Resource status values. AVAILABLE and RESERVED are projected from the
// resource's active reservations; MAINTENANCE is an explicit admin override
// that also blocks new bookings.
const (
	ResourceAvailable   = "available"
	ResourceReserved    = "reserved"
	ResourceMaintenance = "maintenance"
)

// Resource is a bookable shared asset such as a room or a lab. It owns at
// most one device.
type Resource struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"size:512" json:"description"`
	Type        string    `gorm:"size:32;not null;default:generic" json:"type"`
	Location    string    `gorm:"size:128" json:"location"`
	Capacity    int       `gorm:"not null;default:1" json:"capacity"`
	Status      string    `gorm:"size:16;not null;default:available" json:"status"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`

	// Associations
	Device       *Device       `gorm:"foreignKey:ResourceID" json:"device,omitempty"`
	Reservations []Reservation `gorm:"foreignKey:ResourceID" json:"-"`
}
