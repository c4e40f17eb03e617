package model

import "time"

// LoanStatus is never stored: it is derived from return_date and due_date so
// that "overdue" has exactly one definition across the ledger and reporting.
type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanOverdue  LoanStatus = "OVERDUE"
	LoanReturned LoanStatus = "RETURNED"
)

// Loan records one borrowing of one copy. Loans are append/transition-only:
// they are terminated by setting ReturnDate and are never deleted.
type Loan struct {
	ID           uint64
	MemberID     uint64
	BookID       uint64
	LoanDate     time.Time
	DueDate      time.Time
	ReturnDate   *time.Time // nil while the copy is out
	RenewalCount uint8
	FineAmount   int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StatusAt derives the loan status at the given instant.
func (l Loan) StatusAt(now time.Time) LoanStatus {
	switch {
	case l.ReturnDate != nil:
		return LoanReturned
	case now.After(l.DueDate):
		return LoanOverdue
	default:
		return LoanActive
	}
}

// LateFine computes the fine for returning at returnedAt against dueDate.
// Whole late days are charged, rounded up: a return one second past the due
// date costs one day. On-time returns owe nothing.
func LateFine(dueDate, returnedAt time.Time, perDay int64) int64 {
	if !returnedAt.After(dueDate) {
		return 0
	}
	late := returnedAt.Sub(dueDate)
	days := int64(late / (24 * time.Hour))
	if late%(24*time.Hour) != 0 {
		days++
	}
	return days * perDay
}
