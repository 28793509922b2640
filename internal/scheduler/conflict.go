package scheduler

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"resource-reservation-backend/internal/model"
)

// Overlaps reports whether two half-open windows [aStart, aEnd) and
// [bStart, bEnd) intersect. A window ending exactly when another starts does
// not overlap, which is what allows back-to-back bookings.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// hasConflict reports whether an occupying reservation on the resource
// intersects the candidate window. Terminal reservations never conflict.
// Runs on the caller's tx so the check and the insert stay atomic.
func hasConflict(tx *gorm.DB, resourceID int64, start, end time.Time) (bool, error) {
	var count int64
	err := tx.Model(&model.Reservation{}).
		Where("resource_id = ? AND status IN ?", resourceID, model.OccupyingStatuses).
		Where("start_time < ? AND ? < expires_at", end, start).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("conflict check failed: %w", err)
	}
	return count > 0, nil
}
