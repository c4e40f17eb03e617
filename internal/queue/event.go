// Package queue defines message payloads exchanged over the message broker.
package queue

// LoanCreatedEvent is published whenever a loan is issued, either by a
// direct borrow or by fulfilling a book reservation. It carries enough for
// downstream consumers to log or notify without querying the primary
// database. Publication is advisory: the loan transaction never waits on it.
type LoanCreatedEvent struct {
	EventID        string  `json:"event_id"`
	LoanID         uint64  `json:"loan_id"`
	MemberID       uint64  `json:"member_id"`
	BookID         uint64  `json:"book_id"`
	BookTitle      string  `json:"book_title"`
	LoanDate       string  `json:"loan_date"`
	DueDate        string  `json:"due_date"`
	ViaReservation bool    `json:"via_reservation"`
	ReservationID  *uint64 `json:"reservation_id,omitempty"`
}
