package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/model"
)

// SeatReservationRepo provides access to seat bookings. Interval checks use
// half-open [start_time, end_time) semantics throughout: two bookings
// conflict iff each starts before the other ends, so back-to-back bookings
// on the same seat never collide.
type SeatReservationRepo struct {
	db *sql.DB
}

// NewSeatReservationRepo returns a SeatReservationRepo bound to the given database.
func NewSeatReservationRepo(db *sql.DB) *SeatReservationRepo { return &SeatReservationRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *SeatReservationRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a booking within the caller's transaction and populates
// the generated ID. The caller must hold the seat row lock so the preceding
// overlap check and this insert commit as one decision.
func (r *SeatReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, sr *model.SeatReservation) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO seat_reservations (seat_id, member_id, start_time, end_time, status) VALUES (?, ?, ?, ?, ?)`,
		sr.SeatID, sr.MemberID, sr.StartTime.UTC(), sr.EndTime.UTC(), string(sr.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sr.ID = uint64(id)
	return nil
}

// GetForUpdateTx loads a booking inside tx with a row lock.
func (r *SeatReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.SeatReservation, error) {
	const q = `SELECT id, seat_id, member_id, start_time, end_time, status, checked_in, checked_in_time, created_at, updated_at
	           FROM seat_reservations WHERE id = ? FOR UPDATE`
	var sr model.SeatReservation
	var status string
	var checkedInAt sql.NullTime
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&sr.ID, &sr.SeatID, &sr.MemberID, &sr.StartTime, &sr.EndTime,
		&status, &sr.CheckedIn, &checkedInAt, &sr.CreatedAt, &sr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatReservationNotFound
		}
		return nil, err
	}
	sr.Status = model.SeatReservationStatus(status)
	if checkedInAt.Valid {
		t := checkedInAt.Time
		sr.CheckedInTime = &t
	}
	return &sr, nil
}

// HasActiveByMemberTx reports whether the member holds an active booking
// whose interval has not ended yet. One member, one live booking.
func (r *SeatReservationRepo) HasActiveByMemberTx(ctx context.Context, tx *sql.Tx, memberID uint64, now time.Time) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seat_reservations WHERE member_id = ? AND status = 'ACTIVE' AND end_time > ?`,
		memberID, now.UTC()).Scan(&n)
	return n > 0, err
}

// CountOverlappingTx counts active bookings on the seat that overlap
// [start, end). Only ACTIVE rows block: finished or cancelled intervals are
// records, not holds.
func (r *SeatReservationRepo) CountOverlappingTx(ctx context.Context, tx *sql.Tx, seatID uint64, start, end time.Time) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seat_reservations WHERE seat_id = ? AND status = 'ACTIVE' AND start_time < ? AND end_time > ?`,
		seatID, end.UTC(), start.UTC()).Scan(&n)
	return n, err
}

// TransitionTx moves a booking out of ACTIVE into the given terminal state,
// first-writer-wins like the book reservation transitions.
func (r *SeatReservationRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, to model.SeatReservationStatus) error {
	if !model.SeatReservationActive.CanTransitionTo(to) {
		return ErrNotActive
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE seat_reservations SET status = ? WHERE id = ? AND status = 'ACTIVE'`, string(to), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotActive
	}
	return nil
}

// CheckInTx records the check-in. The guards repeat the handler's validation
// so a racing cancel or sweep cannot check in a terminated booking.
func (r *SeatReservationRepo) CheckInTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE seat_reservations SET checked_in = TRUE, checked_in_time = ?
		 WHERE id = ? AND status = 'ACTIVE' AND checked_in = FALSE`,
		at.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotActive
	}
	return nil
}

// SweepFinishedTx closes every active booking whose interval has ended:
// COMPLETED when the member checked in, NO_SHOW otherwise. Both updates
// guard on status so a second sweep finds nothing to do.
func (r *SeatReservationRepo) SweepFinishedTx(ctx context.Context, tx *sql.Tx, now time.Time) (completed, noShow int64, err error) {
	ts := now.UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE seat_reservations SET status = 'COMPLETED' WHERE status = 'ACTIVE' AND end_time <= ? AND checked_in = TRUE`, ts)
	if err != nil {
		return 0, 0, err
	}
	if completed, err = res.RowsAffected(); err != nil {
		return 0, 0, err
	}
	res, err = tx.ExecContext(ctx,
		`UPDATE seat_reservations SET status = 'NO_SHOW' WHERE status = 'ACTIVE' AND end_time <= ? AND checked_in = FALSE`, ts)
	if err != nil {
		return 0, 0, err
	}
	if noShow, err = res.RowsAffected(); err != nil {
		return 0, 0, err
	}
	return completed, noShow, nil
}

// SeatReservationDetail is a booking joined with its seat for member-facing
// listings.
type SeatReservationDetail struct {
	ID            uint64     `json:"id"`
	SeatID        uint64     `json:"seat_id"`
	Zone          string     `json:"zone"`
	SeatNumber    uint32     `json:"seat_number"`
	SeatType      string     `json:"seat_type"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	Status        string     `json:"status"`
	CheckedIn     bool       `json:"checked_in"`
	CheckedInTime *time.Time `json:"checked_in_time,omitempty"`
}

// ListByMember returns the member's seat bookings, newest first, capped at 50
// rows.
func (r *SeatReservationRepo) ListByMember(ctx context.Context, memberID uint64) ([]SeatReservationDetail, error) {
	const q = `SELECT sr.id, sr.seat_id, s.zone, s.seat_number, s.seat_type,
	                  sr.start_time, sr.end_time, sr.status, sr.checked_in, sr.checked_in_time
	           FROM seat_reservations sr
	           JOIN seats s ON s.id = sr.seat_id
	           WHERE sr.member_id = ?
	           ORDER BY sr.created_at DESC
	           LIMIT 50`
	rows, err := r.db.QueryContext(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]SeatReservationDetail, 0)
	for rows.Next() {
		var d SeatReservationDetail
		var checkedInAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.SeatID, &d.Zone, &d.SeatNumber, &d.SeatType,
			&d.StartTime, &d.EndTime, &d.Status, &d.CheckedIn, &checkedInAt); err != nil {
			return nil, err
		}
		if checkedInAt.Valid {
			t := checkedInAt.Time
			d.CheckedInTime = &t
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
