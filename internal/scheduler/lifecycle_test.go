package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-reservation-backend/internal/model"
	"resource-reservation-backend/internal/realtime"
)

func TestActivateDue(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", model.RoleAdmin)
	room := f.resource(t, "Sala 101")
	device := f.lockDevice(t, room.ID)
	ctx := context.Background()

	start := f.clock.Now().Add(time.Hour)
	r, err := f.service.Create(ctx, room.ID, admin, CreateRequest{DurationMinutes: 60, StartTime: &start})
	require.NoError(t, err)
	require.Equal(t, model.ReservationScheduled, r.Status)

	// Before the window opens the pass is a no-op.
	activated, err := f.service.ActivateDue(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, activated)
	assert.Equal(t, model.ResourceAvailable, f.resourceStatus(t, room.ID))

	f.clock.Advance(time.Hour)
	activated, err = f.service.ActivateDue(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []int64{r.ID}, activated)

	assert.Equal(t, model.ReservationActive, f.reservationStatus(t, r.ID))
	assert.Equal(t, model.ResourceReserved, f.resourceStatus(t, room.ID))
	assert.Equal(t, []string{model.ActionUnlock}, f.pendingActions(t, device.ID))
	assert.Contains(t, f.audit.actions(), "reservation_activated")
	assert.Contains(t, f.bus.names(), realtime.EventReservationActivated)

	// A second pass over the same instant finds nothing left to do.
	activated, err = f.service.ActivateDue(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, activated)
	assert.Equal(t, []string{model.ActionUnlock}, f.pendingActions(t, device.ID), "no duplicate unlock")
}

func TestExpireOverdue(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", model.RoleAdmin)
	room := f.resource(t, "Sala 101")
	device := f.lockDevice(t, room.ID)
	ctx := context.Background()

	r, err := f.service.Create(ctx, room.ID, admin, CreateRequest{DurationMinutes: 30})
	require.NoError(t, err)
	require.Equal(t, model.ReservationActive, r.Status)
	scheduledEnd := r.ExpiresAt

	// Still inside the window: nothing expires.
	expired, err := f.service.ExpireOverdue(ctx, f.clock.Now().Add(10*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, expired)

	f.clock.Advance(45 * time.Minute)
	expired, err = f.service.ExpireOverdue(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, []int64{r.ID}, expired)

	var got model.Reservation
	require.NoError(t, f.db.First(&got, r.ID).Error)
	assert.Equal(t, model.ReservationExpired, got.Status)
	require.NotNil(t, got.EndTime)
	assert.True(t, got.EndTime.Equal(scheduledEnd), "expiry stamps the scheduled end, not the sweep time")

	assert.Equal(t, model.ResourceAvailable, f.resourceStatus(t, room.ID))
	assert.Equal(t, []string{model.ActionUnlock}, f.pendingActions(t, device.ID), "expiry sends no lock command")
	assert.Equal(t, []int64{room.ID}, f.notifier.resources())
	assert.Contains(t, f.bus.names(), realtime.EventReservationExpired)
}

func TestExpireSkipsReleasedReservation(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", model.RoleAdmin)
	room := f.resource(t, "Sala 101")
	ctx := context.Background()

	r, err := f.service.Create(ctx, room.ID, admin, CreateRequest{DurationMinutes: 30})
	require.NoError(t, err)
	endedAt := f.clock.Now().Add(5 * time.Minute)
	f.clock.Advance(5 * time.Minute)
	_, err = f.service.Release(ctx, r.ID, admin, "", false)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	expired, err := f.service.ExpireOverdue(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, expired)

	var got model.Reservation
	require.NoError(t, f.db.First(&got, r.ID).Error)
	assert.Equal(t, model.ReservationCompleted, got.Status)
	require.NotNil(t, got.EndTime)
	assert.True(t, got.EndTime.Equal(endedAt))
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "maria", model.RoleUser)
	room := f.resource(t, "Sala 101")
	device := f.lockDevice(t, room.ID)
	f.grant(t, user.ID, room.ID)
	ctx := context.Background()

	start := f.clock.Now().Add(30 * time.Minute)
	r, err := f.service.Create(ctx, room.ID, user, CreateRequest{DurationMinutes: 60, StartTime: &start})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationScheduled, r.Status)

	f.clock.Advance(30 * time.Minute)
	_, err = f.service.ActivateDue(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ReservationActive, f.reservationStatus(t, r.ID))
	assert.Equal(t, model.ResourceReserved, f.resourceStatus(t, room.ID))

	f.clock.Advance(20 * time.Minute)
	released, err := f.service.Release(ctx, r.ID, user, "", false)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCompleted, released.Status)
	assert.Equal(t, model.ResourceAvailable, f.resourceStatus(t, room.ID))
	assert.Equal(t, []string{model.ActionUnlock, model.ActionLock}, f.pendingActions(t, device.ID))
}
