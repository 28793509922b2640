package realtime

// Event types pushed to websocket subscribers.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationReleased  = "reservation.released"
	EventReservationActivated = "reservation.activated"
	EventReservationExpired   = "reservation.expired"
	EventResourceUpdated      = "resource.updated"
	EventDeviceUpdated        = "device.updated"
)

// ReservationEvent is the payload of reservation lifecycle events.
type ReservationEvent struct {
	ReservationID int64  `json:"reservation_id"`
	ResourceID    int64  `json:"resource_id"`
	UserID        int64  `json:"user_id"`
	Status        string `json:"status"`
}

// ResourceEvent is the payload of resource status changes.
type ResourceEvent struct {
	ResourceID int64  `json:"resource_id"`
	Status     string `json:"status"`
}

// DeviceEvent is the payload of device state reports.
type DeviceEvent struct {
	DeviceID int64  `json:"device_id"`
	Status   string `json:"status"`
}
