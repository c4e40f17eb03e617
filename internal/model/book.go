package model

import "time"

// Book is a circulating title with a copy-counted pool. AvailableCopies is
// the number of physical copies not currently on loan; the ledger keeps
// 0 <= AvailableCopies <= TotalCopies at all times.
//
// Fields:
//
//	ID              – primary key identifier.
//	Title, Author   – catalog stub (full catalog CRUD lives elsewhere).
//	ISBN            – optional identifier.
//	TotalCopies     – copies owned by the library.
//	AvailableCopies – copies on the shelf right now.
type Book struct {
	ID              uint64    // books.id
	Title           string    // books.title
	Author          string    // books.author
	ISBN            *string   // books.isbn (nullable)
	TotalCopies     uint32    // books.total_copies
	AvailableCopies uint32    // books.available_copies
	CreatedAt       time.Time // books.created_at
	UpdatedAt       time.Time // books.updated_at
}

// LoanedCopies returns the number of copies currently out on loan.
func (b Book) LoanedCopies() uint32 {
	return b.TotalCopies - b.AvailableCopies
}
