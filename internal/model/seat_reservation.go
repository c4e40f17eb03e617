package model

import "time"

// SeatReservationStatus is the closed state set for seat bookings. ACTIVE is
// the only non-terminal state; CANCELLED, COMPLETED and NO_SHOW are final.
// The sweeper picks COMPLETED or NO_SHOW depending on whether the member
// checked in before the interval ended.
type SeatReservationStatus string

const (
	SeatReservationActive    SeatReservationStatus = "ACTIVE"
	SeatReservationCancelled SeatReservationStatus = "CANCELLED"
	SeatReservationCompleted SeatReservationStatus = "COMPLETED"
	SeatReservationNoShow    SeatReservationStatus = "NO_SHOW"
)

// CanTransitionTo reports whether the transition s -> next is legal.
func (s SeatReservationStatus) CanTransitionTo(next SeatReservationStatus) bool {
	if s != SeatReservationActive {
		return false
	}
	switch next {
	case SeatReservationCancelled, SeatReservationCompleted, SeatReservationNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted out of s.
func (s SeatReservationStatus) Terminal() bool {
	return s != SeatReservationActive
}

// SeatReservation books one seat for one member over a half-open interval
// [StartTime, EndTime). A finished reservation is a record, not a block: once
// EndTime passes, conflict checks ignore it regardless of sweep timing.
type SeatReservation struct {
	ID            uint64
	SeatID        uint64
	MemberID      uint64
	StartTime     time.Time
	EndTime       time.Time
	Status        SeatReservationStatus
	CheckedIn     bool
	CheckedInTime *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// overlaps reports whether the half-open intervals [s1,e1) and [s2,e2) share
// at least one instant. The production check runs as SQL under the seat row
// lock; this is the reference form that check is tested against.
func overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// CheckInOpen reports whether check-in is allowed at now for a reservation
// starting at start and ending at end, given how early the window opens.
func CheckInOpen(now, start, end time.Time, window time.Duration) bool {
	return !now.Before(start.Add(-window)) && now.Before(end)
}
