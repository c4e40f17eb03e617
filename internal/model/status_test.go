package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReservationTransitions(t *testing.T) {
	terminal := []ReservationStatus{ReservationFulfilled, ReservationCancelled, ReservationExpired}

	for _, to := range terminal {
		assert.True(t, ReservationActive.CanTransitionTo(to), "ACTIVE -> %s", to)
	}
	// No transition leaves a terminal state, not even back to ACTIVE.
	for _, from := range terminal {
		assert.True(t, from.Terminal())
		for _, to := range append(terminal, ReservationActive) {
			assert.False(t, from.CanTransitionTo(to), "%s -> %s must be rejected", from, to)
		}
	}
	assert.False(t, ReservationActive.CanTransitionTo(ReservationActive))
	assert.False(t, ReservationActive.Terminal())
}

func TestSeatReservationTransitions(t *testing.T) {
	terminal := []SeatReservationStatus{SeatReservationCancelled, SeatReservationCompleted, SeatReservationNoShow}

	for _, to := range terminal {
		assert.True(t, SeatReservationActive.CanTransitionTo(to), "ACTIVE -> %s", to)
	}
	for _, from := range terminal {
		assert.True(t, from.Terminal())
		for _, to := range append(terminal, SeatReservationActive) {
			assert.False(t, from.CanTransitionTo(to), "%s -> %s must be rejected", from, to)
		}
	}
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	assert.True(t, overlaps(at(0), at(2), at(1), at(3)), "partial overlap")
	assert.True(t, overlaps(at(0), at(4), at(1), at(2)), "containment")
	assert.True(t, overlaps(at(1), at(2), at(0), at(4)), "contained")
	assert.True(t, overlaps(at(0), at(2), at(0), at(2)), "identical")

	// Half-open intervals: back-to-back bookings do not conflict.
	assert.False(t, overlaps(at(0), at(2), at(2), at(4)))
	assert.False(t, overlaps(at(2), at(4), at(0), at(2)))
	assert.False(t, overlaps(at(0), at(1), at(3), at(4)), "disjoint")
}

func TestCheckInOpen(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	window := 10 * time.Minute

	assert.False(t, CheckInOpen(start.Add(-11*time.Minute), start, end, window), "too early")
	assert.True(t, CheckInOpen(start.Add(-10*time.Minute), start, end, window), "opens exactly window before start")
	assert.True(t, CheckInOpen(start, start, end, window))
	assert.True(t, CheckInOpen(end.Add(-time.Second), start, end, window))
	assert.False(t, CheckInOpen(end, start, end, window), "closed once the interval ends")
}
