package model

import "time"

// Seat describes a physical study seat. Seats are uniquely identified by
// their zone and number. IsAvailable is an administrative flag (maintenance,
// closed zone) and is distinct from booking state.
//
// Fields:
//
//	ID          – primary key identifier.
//	Zone        – reading room / lounge the seat belongs to.
//	SeatNumber  – number of the seat within the zone.
//	SeatType    – STANDARD, PC or STUDY.
//	IsAvailable – whether the seat can be booked at all.
type Seat struct {
	ID          uint64    // seats.id
	Zone        string    // seats.zone
	SeatNumber  uint32    // seats.seat_number
	SeatType    string    // seats.seat_type
	IsAvailable bool      // seats.is_available
	CreatedAt   time.Time // seats.created_at
	UpdatedAt   time.Time // seats.updated_at
}
