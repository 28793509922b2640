package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-reservation-backend/internal/clock"
)

type mockScheduler struct {
	mu       sync.Mutex
	calls    []string
	activate func(now time.Time) ([]int64, error)
	expire   func(now time.Time) ([]int64, error)
}

func (m *mockScheduler) ActivateDue(ctx context.Context, now time.Time) ([]int64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, "activate")
	m.mu.Unlock()
	if m.activate != nil {
		return m.activate(now)
	}
	return nil, nil
}

func (m *mockScheduler) ExpireOverdue(ctx context.Context, now time.Time) ([]int64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, "expire")
	m.mu.Unlock()
	if m.expire != nil {
		return m.expire(now)
	}
	return nil, nil
}

func (m *mockScheduler) callOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type mockPurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	purge   func(cutoff time.Time) (int64, error)
}

func (m *mockPurger) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	m.cutoffs = append(m.cutoffs, cutoff)
	m.mu.Unlock()
	if m.purge != nil {
		return m.purge(cutoff)
	}
	return 0, nil
}

func TestRunOnceStepOrder(t *testing.T) {
	sched := &mockScheduler{}
	purger := &mockPurger{}
	r := New(sched, purger, clock.System(), time.Minute, 24*time.Hour)

	r.RunOnce(context.Background())

	assert.Equal(t, []string{"activate", "expire"}, sched.callOrder())
	require.Len(t, purger.cutoffs, 1)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), purger.cutoffs[0], 5*time.Second)
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	sched := &mockScheduler{
		activate: func(time.Time) ([]int64, error) { return nil, errors.New("db gone") },
	}
	purger := &mockPurger{}
	r := New(sched, purger, clock.System(), time.Minute, 24*time.Hour)

	r.RunOnce(context.Background())

	assert.Equal(t, []string{"activate", "expire"}, sched.callOrder(), "expiry runs even when activation fails")
	assert.Len(t, purger.cutoffs, 1)
}

func TestRunOnceSkipsPurgeWhenDisabled(t *testing.T) {
	sched := &mockScheduler{}
	purger := &mockPurger{}
	r := New(sched, purger, clock.System(), time.Minute, 0)

	r.RunOnce(context.Background())

	assert.Empty(t, purger.cutoffs, "zero retention disables purging")
}

func TestRunOncePassesDoNotOverlap(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	sched := &mockScheduler{
		activate: func(time.Time) ([]int64, error) {
			close(entered)
			<-release
			return nil, nil
		},
	}
	r := New(sched, nil, clock.System(), time.Minute, 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.RunOnce(context.Background())
	}()

	<-entered
	// Second pass while the first is blocked inside activation.
	r.RunOnce(context.Background())
	close(release)
	wg.Wait()

	assert.Equal(t, []string{"activate", "expire"}, sched.callOrder(), "overlapping pass must be dropped")
}

func TestIntervalClamped(t *testing.T) {
	r := New(&mockScheduler{}, nil, clock.System(), time.Second, 0)
	assert.Equal(t, minInterval, r.interval)

	r = New(&mockScheduler{}, nil, clock.System(), time.Minute, 0)
	assert.Equal(t, time.Minute, r.interval)
}

func TestRunStopsOnCancel(t *testing.T) {
	sched := &mockScheduler{}
	r := New(sched, nil, clock.System(), time.Minute, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// The immediate pass runs before the first tick.
	assert.Eventually(t, func() bool {
		return len(sched.callOrder()) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
