package store

import "time"

// ReservationFilter narrows ListReservations. Zero values mean no filter.
type ReservationFilter struct {
	ResourceID int64
	UserID     int64
	Status     string
	StartFrom  *time.Time
	StartTo    *time.Time
	Limit      int

	// Visibility restricts results to reservations the given user owns or
	// holds a resource permission for. Nil means an unrestricted query.
	Visibility *Visibility
}

// Visibility is the scope a non-admin caller may see.
type Visibility struct {
	UserID      int64
	ResourceIDs []int64
}
