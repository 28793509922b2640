// Package audit appends domain actions to a durable log and prunes old
// entries on the retention schedule.
package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"

	"resource-reservation-backend/internal/clock"
	"resource-reservation-backend/internal/model"
)

// Entry describes one audit event. Result defaults to success.
type Entry struct {
	Action        string
	UserID        *int64
	ResourceID    *int64
	DeviceID      *int64
	ReservationID *int64
	Result        string
	Details       map[string]any
}

// Recorder writes audit entries. Recording is best-effort by contract:
// failures are logged and never surfaced to the caller.
type Recorder struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewRecorder creates a recorder over the given database handle.
func NewRecorder(db *gorm.DB, clk clock.Clock) *Recorder {
	return &Recorder{db: db, clock: clk}
}

// Record appends one entry.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	result := e.Result
	if result == "" {
		result = "success"
	}

	var details string
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			log.Printf("audit: failed to marshal details for %q: %v", e.Action, err)
		} else {
			details = string(b)
		}
	}

	entry := model.AuditLog{
		Timestamp:     r.clock.Now(),
		UserID:        e.UserID,
		Action:        e.Action,
		ResourceID:    e.ResourceID,
		DeviceID:      e.DeviceID,
		ReservationID: e.ReservationID,
		Result:        result,
		Details:       details,
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("audit: failed to record %q: %v", e.Action, err)
	}
}

// Purge deletes entries older than the cutoff and returns how many went.
func (r *Recorder) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&model.AuditLog{})
	return res.RowsAffected, res.Error
}

// Recent returns the newest entries, optionally narrowed by action and user.
func (r *Recorder) Recent(ctx context.Context, limit int, action string, userID int64) ([]model.AuditLog, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if action != "" {
		q = q.Where("action = ?", action)
	}
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if limit <= 0 {
		limit = 500
	}

	var entries []model.AuditLog
	if err := q.Order("timestamp DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
