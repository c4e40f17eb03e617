// Package repository defines the data access layer and the sentinel errors
// shared across it. Handlers distinguish failure cases with errors.Is and
// translate them into HTTP statuses; no sentinel ever wraps another layer's
// error silently.
package repository

import "errors"

// Lookup failures.
var (
	ErrBookNotFound            = errors.New("book not found")
	ErrSeatNotFound            = errors.New("seat not found")
	ErrLoanNotFound            = errors.New("loan not found")
	ErrReservationNotFound     = errors.New("reservation not found")
	ErrSeatReservationNotFound = errors.New("seat reservation not found")
)

// Resource exhaustion.
var (
	// ErrNoCopies is returned when a borrow or fulfillment finds no
	// available copy. Under concurrent borrows on the last copy exactly one
	// caller commits; the rest observe this error.
	ErrNoCopies = errors.New("no copies available")
	// ErrSeatUnavailable is returned when the administrative is_available
	// flag excludes a seat from booking.
	ErrSeatUnavailable = errors.New("seat not available")
)

// Cap violations.
var (
	ErrLoanLimit           = errors.New("loan limit reached")
	ErrReservationLimit    = errors.New("reservation limit reached")
	ErrSeatReservationHeld = errors.New("member already has an active seat reservation")
	ErrRenewalLimit        = errors.New("renewal limit reached")
)

// State conflicts.
var (
	// ErrNotActive is returned by any transition attempted on a record that
	// has already reached a terminal state. The loser of a cancel/fulfill or
	// cancel/sweep race always observes this rather than silently succeeding.
	ErrNotActive            = errors.New("record is not active")
	ErrAlreadyReturned      = errors.New("loan already returned")
	ErrBookAvailable        = errors.New("book has available copies; borrow instead of reserving")
	ErrDuplicateReservation = errors.New("active reservation already exists for this member and book")
	ErrSeatTimeConflict     = errors.New("seat already reserved for an overlapping interval")
	ErrTooEarly             = errors.New("check-in window not open yet")
	ErrAlreadyCheckedIn     = errors.New("reservation already checked in")
)

// Input problems.
var (
	ErrInvalidAdjustment = errors.New("stock adjustment would violate copy counts")
	ErrEmailExists       = errors.New("email already exists")
	ErrStudentIDExists   = errors.New("student id already exists")
)
