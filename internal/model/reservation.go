package model

import "time"

// Reservation lifecycle states. Scheduled and active reservations occupy
// their window; completed, cancelled and expired are terminal.
const (
	ReservationScheduled = "scheduled"
	ReservationActive    = "active"
	ReservationCompleted = "completed"
	ReservationCancelled = "cancelled"
	ReservationExpired   = "expired"
)

// OccupyingStatuses are the states that count toward conflict checks and the
// reserved projection of a resource.
var OccupyingStatuses = []string{ReservationScheduled, ReservationActive}

// Reservation is a time window granted to a user on a resource. ExpiresAt is
// the exclusive upper bound of the window; EndTime is set only once the
// reservation reaches a terminal state.
type Reservation struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	ResourceID      int64      `gorm:"index;not null" json:"resource_id"`
	UserID          int64      `gorm:"index;not null" json:"user_id"`
	StartTime       time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	ExpiresAt       time.Time  `gorm:"not null;index" json:"expires_at"`
	Status          string     `gorm:"size:16;not null;index" json:"status"`
	Notes           string     `gorm:"size:512" json:"notes"`
	ReleasedByAdmin bool       `gorm:"not null;default:false" json:"released_by_admin"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`

	// Associations
	Resource Resource `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	User     User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// IsTerminal reports whether the reservation can no longer change state.
func (r *Reservation) IsTerminal() bool {
	switch r.Status {
	case ReservationCompleted, ReservationCancelled, ReservationExpired:
		return true
	}
	return false
}

// IsOccupying reports whether the reservation counts toward conflicts.
func (r *Reservation) IsOccupying() bool {
	return r.Status == ReservationScheduled || r.Status == ReservationActive
}
