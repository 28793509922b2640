package scheduler

import (
	"fmt"

	"gorm.io/gorm"

	"resource-reservation-backend/internal/model"
)

// projectResourceStatus recomputes the resource's derived status and saves
// it when it changed: maintenance stays as set by an admin, otherwise the
// resource is reserved exactly while an active reservation exists. Runs on
// the caller's tx so the projection commits together with the occupancy
// change that triggered it.
func projectResourceStatus(tx *gorm.DB, resource *model.Resource) (string, error) {
	if resource.Status == model.ResourceMaintenance {
		return model.ResourceMaintenance, nil
	}

	active, err := countActive(tx, resource.ID)
	if err != nil {
		return "", err
	}

	status := model.ResourceAvailable
	if active > 0 {
		status = model.ResourceReserved
	}
	if status == resource.Status {
		return status, nil
	}

	if err := tx.Model(resource).Update("status", status).Error; err != nil {
		return "", fmt.Errorf("failed to project resource %d status: %w", resource.ID, err)
	}
	resource.Status = status
	return status, nil
}

func countActive(tx *gorm.DB, resourceID int64) (int64, error) {
	var count int64
	err := tx.Model(&model.Reservation{}).
		Where("resource_id = ? AND status = ?", resourceID, model.ReservationActive).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active reservations: %w", err)
	}
	return count, nil
}
