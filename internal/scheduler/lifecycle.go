package scheduler

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"resource-reservation-backend/internal/audit"
	"resource-reservation-backend/internal/metrics"
	"resource-reservation-backend/internal/model"
	"resource-reservation-backend/internal/realtime"
	"resource-reservation-backend/internal/store"
)

// ActivateDue promotes every scheduled reservation whose start time has
// passed. Each promotion commits on its own so one bad row cannot hold back
// the rest. Returns the ids of the reservations that were activated.
func (s *Service) ActivateDue(ctx context.Context, now time.Time) ([]int64, error) {
	due, err := s.store.DueScheduled(ctx, now)
	if err != nil {
		return nil, err
	}

	var activated []int64
	for i := range due {
		r := due[i]
		ok, resource, err := s.activateOne(ctx, r.ID)
		if err != nil {
			log.Printf("scheduler: failed to activate reservation %d: %v", r.ID, err)
			continue
		}
		if !ok {
			// Advanced by a concurrent caller in between, nothing to do.
			continue
		}

		activated = append(activated, r.ID)
		metrics.ReservationsActivated.Inc()
		s.sendCommand(ctx, resource.Device, model.ActionUnlock)
		s.recordAudit(ctx, audit.Entry{
			Action:        "reservation_activated",
			UserID:        &r.UserID,
			ResourceID:    &r.ResourceID,
			ReservationID: &r.ID,
		})
		r.Status = model.ReservationActive
		s.publishReservation(realtime.EventReservationActivated, &r)
		s.publishResource(resource)
	}
	return activated, nil
}

// ExpireOverdue closes every active reservation whose expiry has passed and
// stamps its end time with the scheduled expiry, not the wall clock, so a
// late tick does not stretch the recorded usage. No device command is sent;
// locking abandoned resources is a separate policy decision.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) ([]int64, error) {
	overdue, err := s.store.OverdueActive(ctx, now)
	if err != nil {
		return nil, err
	}

	var expired []int64
	for i := range overdue {
		r := overdue[i]
		ok, resource, becameAvailable, err := s.expireOne(ctx, r.ID)
		if err != nil {
			log.Printf("scheduler: failed to expire reservation %d: %v", r.ID, err)
			continue
		}
		if !ok {
			continue
		}

		expired = append(expired, r.ID)
		metrics.ReservationsExpired.Inc()
		s.recordAudit(ctx, audit.Entry{
			Action:        "reservation_expired",
			UserID:        &r.UserID,
			ResourceID:    &r.ResourceID,
			ReservationID: &r.ID,
			Details:       map[string]any{"expired_at": r.ExpiresAt.UTC().Format(time.RFC3339)},
		})
		r.Status = model.ReservationExpired
		s.publishReservation(realtime.EventReservationExpired, &r)
		s.publishResource(resource)
		if becameAvailable {
			s.notifyAvailable(resource.ID)
		}
	}
	return expired, nil
}

func (s *Service) activateOne(ctx context.Context, id int64) (bool, *model.Resource, error) {
	var (
		resource  model.Resource
		activated bool
	)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var reservation model.Reservation
		if err := tx.First(&reservation, id).Error; err != nil {
			return err
		}
		if err := store.LockForUpdate(tx).Preload("Device").First(&resource, reservation.ResourceID).Error; err != nil {
			return err
		}
		if err := tx.First(&reservation, id).Error; err != nil {
			return err
		}
		if reservation.Status != model.ReservationScheduled {
			return nil
		}

		reservation.Status = model.ReservationActive
		if err := tx.Save(&reservation).Error; err != nil {
			return err
		}
		if _, err := projectResourceStatus(tx, &resource); err != nil {
			return err
		}
		activated = true
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return activated, &resource, nil
}

func (s *Service) expireOne(ctx context.Context, id int64) (bool, *model.Resource, bool, error) {
	var (
		resource        model.Resource
		expired         bool
		becameAvailable bool
	)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var reservation model.Reservation
		if err := tx.First(&reservation, id).Error; err != nil {
			return err
		}
		if err := store.LockForUpdate(tx).Preload("Device").First(&resource, reservation.ResourceID).Error; err != nil {
			return err
		}
		if err := tx.First(&reservation, id).Error; err != nil {
			return err
		}
		if reservation.Status != model.ReservationActive {
			return nil
		}

		end := reservation.ExpiresAt
		reservation.Status = model.ReservationExpired
		reservation.EndTime = &end
		if err := tx.Save(&reservation).Error; err != nil {
			return err
		}

		before := resource.Status
		status, err := projectResourceStatus(tx, &resource)
		if err != nil {
			return err
		}
		becameAvailable = before != model.ResourceAvailable && status == model.ResourceAvailable
		expired = true
		return nil
	})
	if err != nil {
		return false, nil, false, err
	}
	return expired, &resource, becameAvailable, nil
}
