// Package scheduler owns the reservation state machine: it grants
// non-overlapping windows on resources, drives reservations through their
// lifecycle as time advances and translates occupancy changes into device
// commands and events.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"resource-reservation-backend/internal/audit"
	"resource-reservation-backend/internal/clock"
	"resource-reservation-backend/internal/commandq"
	"resource-reservation-backend/internal/metrics"
	"resource-reservation-backend/internal/model"
	"resource-reservation-backend/internal/realtime"
	"resource-reservation-backend/internal/store"
)

// EventBus fans out state-change events to live subscribers. Publishing is
// best-effort and must not block.
type EventBus interface {
	Publish(event string, payload any)
}

// AvailabilityNotifier is told when a resource turns available again.
type AvailabilityNotifier interface {
	Dispatch(resourceID int64)
}

// AuditSink records domain actions.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry)
}

// Config bounds the scheduling decisions.
type Config struct {
	DefaultDuration time.Duration
	MinDuration     time.Duration
	MaxDuration     time.Duration

	// Grace decides how far in the past a start time may lie, and how near
	// a future start still counts as "now" for immediate activation.
	Grace time.Duration
}

// DefaultConfig returns the product defaults.
func DefaultConfig() Config {
	return Config{
		DefaultDuration: 30 * time.Minute,
		MinDuration:     5 * time.Minute,
		MaxDuration:     8 * time.Hour,
		Grace:           time.Minute,
	}
}

// Deps wires the collaborators of the scheduling service. Store and Clock
// are required. Commands, Audit, Bus and Notifier are best-effort side
// channels and may be nil; Perms defaults to the store-backed checker.
type Deps struct {
	Store    store.Store
	Clock    clock.Clock
	Commands *commandq.Queue
	Perms    PermissionChecker
	Audit    AuditSink
	Bus      EventBus
	Notifier AvailabilityNotifier
}

// Service implements the reservation scheduling operations.
type Service struct {
	store    store.Store
	clock    clock.Clock
	commands *commandq.Queue
	perms    PermissionChecker
	audit    AuditSink
	bus      EventBus
	notifier AvailabilityNotifier
	cfg      Config
}

// New creates the scheduling service.
func New(d Deps, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = def.DefaultDuration
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = def.MinDuration
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = def.MaxDuration
	}
	if cfg.Grace <= 0 {
		cfg.Grace = def.Grace
	}
	if d.Perms == nil {
		d.Perms = NewStorePermissions(d.Store)
	}

	return &Service{
		store:    d.Store,
		clock:    d.Clock,
		commands: d.Commands,
		perms:    d.Perms,
		audit:    d.Audit,
		bus:      d.Bus,
		notifier: d.Notifier,
		cfg:      cfg,
	}
}

// CreateRequest carries the caller-supplied booking parameters. A zero
// DurationMinutes falls back to the configured default; a nil StartTime
// means "now".
type CreateRequest struct {
	DurationMinutes int
	StartTime       *time.Time
	Notes           string
}

// Create books a window on the resource for the user. The conflict check,
// the insert and the resource status projection run in one transaction under
// a lock on the resource row, so concurrent bookings of overlapping windows
// cannot both succeed. Device command, audit and events follow after commit
// and never undo the booking.
func (s *Service) Create(ctx context.Context, resourceID int64, user *model.User, req CreateRequest) (*model.Reservation, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: missing user", ErrValidation)
	}

	now := s.clock.Now()

	minutes := req.DurationMinutes
	if minutes == 0 {
		minutes = int(s.cfg.DefaultDuration / time.Minute)
	}
	duration := time.Duration(minutes) * time.Minute
	if duration < s.cfg.MinDuration || duration > s.cfg.MaxDuration {
		return nil, fmt.Errorf("%w: duration must be between %d and %d minutes",
			ErrValidation, int(s.cfg.MinDuration/time.Minute), int(s.cfg.MaxDuration/time.Minute))
	}

	start := now
	if req.StartTime != nil {
		start = req.StartTime.UTC()
	}
	if start.Before(now.Add(-s.cfg.Grace)) {
		return nil, fmt.Errorf("%w: start time is in the past", ErrValidation)
	}

	allowed, err := s.perms.CanManage(ctx, user, resourceID)
	if err != nil {
		return nil, fmt.Errorf("permission check failed: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: no permission for resource %d", ErrPermission, resourceID)
	}

	status := model.ReservationScheduled
	if !start.After(now.Add(s.cfg.Grace)) {
		status = model.ReservationActive
	}

	reservation := &model.Reservation{
		ResourceID: resourceID,
		UserID:     user.ID,
		StartTime:  start,
		ExpiresAt:  start.Add(duration),
		Status:     status,
		Notes:      req.Notes,
	}

	var resource model.Resource
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := store.LockForUpdate(tx).Preload("Device").First(&resource, resourceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: resource %d", ErrNotFound, resourceID)
			}
			return err
		}
		if resource.Status == model.ResourceMaintenance {
			return fmt.Errorf("%w: resource is under maintenance", ErrConflict)
		}

		conflict, err := hasConflict(tx, resourceID, reservation.StartTime, reservation.ExpiresAt)
		if err != nil {
			return err
		}
		if conflict {
			return fmt.Errorf("%w: time window is already reserved", ErrConflict)
		}

		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		if reservation.Status == model.ReservationActive {
			if _, err := projectResourceStatus(tx, &resource); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			metrics.ReservationConflicts.Inc()
		}
		return nil, err
	}

	metrics.ReservationsCreated.Inc()
	if reservation.Status == model.ReservationActive {
		s.sendCommand(ctx, resource.Device, model.ActionUnlock)
	}
	s.recordAudit(ctx, audit.Entry{
		Action:        "reservation_created",
		UserID:        &user.ID,
		ResourceID:    &resourceID,
		ReservationID: &reservation.ID,
		Details:       map[string]any{"duration_minutes": minutes},
	})
	s.publishReservation(realtime.EventReservationCreated, reservation)
	s.publishResource(&resource)

	return reservation, nil
}

// Release closes a reservation early. A scheduled reservation is cancelled;
// an active one is completed by its owner, an admin or a forced call.
// Terminal reservations cannot be released again.
func (s *Service) Release(ctx context.Context, reservationID int64, byUser *model.User, notes string, force bool) (*model.Reservation, error) {
	if byUser == nil {
		return nil, fmt.Errorf("%w: missing user", ErrValidation)
	}

	now := s.clock.Now()

	var (
		reservation     model.Reservation
		resource        model.Resource
		becameAvailable bool
	)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&reservation, reservationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: reservation %d", ErrNotFound, reservationID)
			}
			return err
		}
		if err := store.LockForUpdate(tx).Preload("Device").First(&resource, reservation.ResourceID).Error; err != nil {
			return err
		}
		// Re-read under the resource lock; a reconciliation tick may have
		// advanced the state in between.
		if err := tx.First(&reservation, reservationID).Error; err != nil {
			return err
		}

		if reservation.IsTerminal() {
			return fmt.Errorf("%w: reservation already closed", ErrInvalidState)
		}

		switch reservation.Status {
		case model.ReservationScheduled:
			reservation.Status = model.ReservationCancelled
		case model.ReservationActive:
			if reservation.UserID != byUser.ID && !byUser.IsAdmin() && !force {
				return fmt.Errorf("%w: not allowed to release this reservation", ErrPermission)
			}
			reservation.Status = model.ReservationCompleted
			reservation.EndTime = &now
		}
		if byUser.IsAdmin() && reservation.UserID != byUser.ID {
			reservation.ReleasedByAdmin = true
		}
		if notes != "" {
			reservation.Notes = notes
		}

		if err := tx.Save(&reservation).Error; err != nil {
			return fmt.Errorf("failed to update reservation %d: %w", reservation.ID, err)
		}

		before := resource.Status
		status, err := projectResourceStatus(tx, &resource)
		if err != nil {
			return err
		}
		becameAvailable = before != model.ResourceAvailable && status == model.ResourceAvailable
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ReservationsReleased.Inc()
	if reservation.Status == model.ReservationCompleted {
		s.sendCommand(ctx, resource.Device, model.ActionLock)
	}
	s.recordAudit(ctx, audit.Entry{
		Action:        "reservation_released",
		UserID:        &byUser.ID,
		ResourceID:    &reservation.ResourceID,
		ReservationID: &reservation.ID,
		Details:       map[string]any{"forced": force},
	})
	s.publishReservation(realtime.EventReservationReleased, &reservation)
	s.publishResource(&resource)
	if becameAvailable {
		s.notifyAvailable(resource.ID)
	}

	return &reservation, nil
}

// Get returns a reservation the viewer may see: admins and owners always,
// others only with a permission on the resource. A nil viewer skips the
// check.
func (s *Service) Get(ctx context.Context, id int64, viewer *model.User) (*model.Reservation, error) {
	reservation, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
		}
		return nil, err
	}

	if viewer != nil && !viewer.IsAdmin() && reservation.UserID != viewer.ID {
		allowed, err := s.perms.CanManage(ctx, viewer, reservation.ResourceID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: reservation %d", ErrPermission, id)
		}
	}
	return reservation, nil
}

// List returns reservations matching the filter. Non-admin viewers are
// restricted to their own reservations plus resources they hold a
// permission for.
func (s *Service) List(ctx context.Context, f store.ReservationFilter, viewer *model.User) ([]model.Reservation, error) {
	if viewer != nil && !viewer.IsAdmin() {
		ids, err := s.store.PermittedResourceIDs(ctx, viewer.ID)
		if err != nil {
			return nil, err
		}
		f.Visibility = &store.Visibility{UserID: viewer.ID, ResourceIDs: ids}
	}
	return s.store.ListReservations(ctx, f)
}

// ResourceStatus returns the externally visible status of a resource.
func (s *Service) ResourceStatus(ctx context.Context, resourceID int64) (string, error) {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: resource %d", ErrNotFound, resourceID)
		}
		return "", err
	}
	return resource.Status, nil
}

// SetResourceStatus applies a manual status override. Entering maintenance
// is sticky until cleared; leaving it recomputes the status from current
// occupancy, so a resource with an active reservation comes back as
// reserved, not available.
func (s *Service) SetResourceStatus(ctx context.Context, resourceID int64, status string) (*model.Resource, error) {
	switch status {
	case model.ResourceAvailable, model.ResourceMaintenance:
	default:
		return nil, fmt.Errorf("%w: status must be available or maintenance", ErrValidation)
	}

	var resource model.Resource
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := store.LockForUpdate(tx).First(&resource, resourceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: resource %d", ErrNotFound, resourceID)
			}
			return err
		}

		resource.Status = status
		if err := tx.Model(&resource).Update("status", status).Error; err != nil {
			return err
		}
		if status != model.ResourceMaintenance {
			if _, err := projectResourceStatus(tx, &resource); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishResource(&resource)
	return &resource, nil
}

// sendCommand enqueues a device command when the device supports the
// action. Failures are logged; a committed transition is never undone.
func (s *Service) sendCommand(ctx context.Context, device *model.Device, action string) {
	if s.commands == nil || device == nil || !device.SupportsAction(action) {
		return
	}
	if _, err := s.commands.Enqueue(ctx, device.ID, action, ""); err != nil {
		log.Printf("scheduler: failed to enqueue %q for device %d: %v", action, device.ID, err)
	}
}

func (s *Service) recordAudit(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, e)
}

func (s *Service) publishReservation(event string, r *model.Reservation) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event, realtime.ReservationEvent{
		ReservationID: r.ID,
		ResourceID:    r.ResourceID,
		UserID:        r.UserID,
		Status:        r.Status,
	})
}

func (s *Service) publishResource(res *model.Resource) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(realtime.EventResourceUpdated, realtime.ResourceEvent{
		ResourceID: res.ID,
		Status:     res.Status,
	})
}

func (s *Service) notifyAvailable(resourceID int64) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(resourceID)
}
