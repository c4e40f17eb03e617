package model

import "time"

// ReservationStatus is the closed state set for book reservations. ACTIVE is
// the only non-terminal state; FULFILLED, CANCELLED and EXPIRED are final.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationFulfilled ReservationStatus = "FULFILLED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// CanTransitionTo reports whether the transition s -> next is legal. Only
// ACTIVE may move, and only into a terminal state.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	if s != ReservationActive {
		return false
	}
	switch next {
	case ReservationFulfilled, ReservationCancelled, ReservationExpired:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted out of s.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationFulfilled || s == ReservationCancelled || s == ReservationExpired
}

// Reservation queues a member for a title that had no available copies when
// the reservation was made. It expires ExpiryDate after creation unless
// fulfilled or cancelled first.
type Reservation struct {
	ID               uint64
	MemberID         uint64
	BookID           uint64
	ReservationDate  time.Time
	ExpiryDate       time.Time
	Status           ReservationStatus
	NotificationSent bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
