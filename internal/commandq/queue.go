// Package commandq implements the per-device FIFO of pending commands.
// Devices connect intermittently and poll for work, so commands are pushed
// on write and pulled on read, each delivered at most once.
package commandq

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"resource-reservation-backend/internal/clock"
	"resource-reservation-backend/internal/metrics"
	"resource-reservation-backend/internal/model"
	"resource-reservation-backend/internal/store"
)

// Queue appends commands for devices and hands them out in creation order.
type Queue struct {
	store store.Store
	clock clock.Clock
}

// New creates a command queue over the given store.
func New(st store.Store, clk clock.Clock) *Queue {
	return &Queue{store: st, clock: clk}
}

// Enqueue appends a command to the tail of the device's pending list.
func (q *Queue) Enqueue(ctx context.Context, deviceID int64, action, payload string) (*model.DeviceCommand, error) {
	cmd := &model.DeviceCommand{
		DeviceID:  deviceID,
		Action:    action,
		Payload:   payload,
		CreatedAt: q.clock.Now(),
	}
	if err := q.store.DB().WithContext(ctx).Create(cmd).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue %q for device %d: %w", action, deviceID, err)
	}
	metrics.CommandsEnqueued.Inc()
	return cmd, nil
}

// DequeueNext returns the oldest unconsumed command for the device and
// stamps it consumed, or nil when the queue is empty. The select and the
// stamp run in one transaction under a row lock, so a command is never
// handed out twice even across concurrent polls.
func (q *Queue) DequeueNext(ctx context.Context, deviceID int64) (*model.DeviceCommand, error) {
	var cmd *model.DeviceCommand
	err := q.store.Transaction(ctx, func(tx *gorm.DB) error {
		var next model.DeviceCommand
		err := store.LockForUpdate(tx).
			Where("device_id = ? AND consumed_at IS NULL", deviceID).
			Order("created_at, id").
			First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to select next command for device %d: %w", deviceID, err)
		}

		now := q.clock.Now()
		next.ConsumedAt = &now
		if err := tx.Save(&next).Error; err != nil {
			return fmt.Errorf("failed to consume command %d: %w", next.ID, err)
		}
		cmd = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cmd != nil {
		metrics.CommandsDelivered.Inc()
	}
	return cmd, nil
}

// Pending returns the not-yet-consumed commands for a device in delivery
// order, without consuming them.
func (q *Queue) Pending(ctx context.Context, deviceID int64) ([]model.DeviceCommand, error) {
	var cmds []model.DeviceCommand
	err := q.store.DB().WithContext(ctx).
		Where("device_id = ? AND consumed_at IS NULL", deviceID).
		Order("created_at, id").
		Find(&cmds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending commands for device %d: %w", deviceID, err)
	}
	return cmds, nil
}
