package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/model"
)

// ReservationRepo provides access to book reservations. A reservation is a
// queue position for a title with no copies on the shelf; it is created
// ACTIVE and ends in exactly one of FULFILLED, CANCELLED or EXPIRED. Every
// transition guards on status = 'ACTIVE' so a concurrent cancel, fulfill and
// sweep can never produce two terminal states for the same row.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a reservation within the caller's transaction and
// populates the generated ID.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (member_id, book_id, reservation_date, expiry_date, status) VALUES (?, ?, ?, ?, ?)`,
		res.MemberID, res.BookID, res.ReservationDate.UTC(), res.ExpiryDate.UTC(), string(res.Status))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetForUpdateTx loads a reservation inside tx with a row lock.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT id, member_id, book_id, reservation_date, expiry_date, status, notification_sent, created_at, updated_at
	           FROM reservations WHERE id = ? FOR UPDATE`
	var res model.Reservation
	var status string
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.MemberID, &res.BookID, &res.ReservationDate, &res.ExpiryDate,
		&status, &res.NotificationSent, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	return &res, nil
}

// ExistsActiveTx reports whether the member already holds an active
// reservation for the book.
func (r *ReservationRepo) ExistsActiveTx(ctx context.Context, tx *sql.Tx, memberID, bookID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE member_id = ? AND book_id = ? AND status = 'ACTIVE'`,
		memberID, bookID).Scan(&n)
	return n > 0, err
}

// CountActiveByMemberTx counts the member's active reservations.
func (r *ReservationRepo) CountActiveByMemberTx(ctx context.Context, tx *sql.Tx, memberID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE member_id = ? AND status = 'ACTIVE'`, memberID).Scan(&n)
	return n, err
}

// TransitionTx moves a reservation out of ACTIVE into the given terminal
// state. Zero affected rows means another transaction already terminated the
// row; the caller receives ErrNotActive.
func (r *ReservationRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, to model.ReservationStatus) error {
	if !model.ReservationActive.CanTransitionTo(to) {
		return ErrNotActive
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE id = ? AND status = 'ACTIVE'`, string(to), id)
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

// MarkNotified flags an active reservation as notified. Delivery itself is
// handled elsewhere; this only records that a notice went out.
func (r *ReservationRepo) MarkNotified(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET notification_sent = TRUE WHERE id = ? AND status = 'ACTIVE'`, id)
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

// SweepExpiredTx transitions every active reservation whose expiry date has
// passed to EXPIRED and returns how many rows moved. Running it twice is a
// no-op the second time: the status guard leaves nothing to match.
func (r *ReservationRepo) SweepExpiredTx(ctx context.Context, tx *sql.Tx, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = 'EXPIRED' WHERE status = 'ACTIVE' AND expiry_date < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReservationDetail is a reservation joined with its book for listings.
type ReservationDetail struct {
	ID               uint64    `json:"id"`
	MemberID         uint64    `json:"member_id"`
	BookID           uint64    `json:"book_id"`
	BookTitle        string    `json:"book_title"`
	BookAuthor       string    `json:"book_author"`
	AvailableCopies  uint32    `json:"available_copies"`
	ReservationDate  time.Time `json:"reservation_date"`
	ExpiryDate       time.Time `json:"expiry_date"`
	Status           string    `json:"status"`
	NotificationSent bool      `json:"notification_sent"`
}

func scanReservationDetails(rows *sql.Rows) ([]ReservationDetail, error) {
	defer rows.Close()
	details := make([]ReservationDetail, 0)
	for rows.Next() {
		var d ReservationDetail
		if err := rows.Scan(
			&d.ID, &d.MemberID, &d.BookID, &d.BookTitle, &d.BookAuthor, &d.AvailableCopies,
			&d.ReservationDate, &d.ExpiryDate, &d.Status, &d.NotificationSent,
		); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

const reservationDetailColumns = `r.id, r.member_id, r.book_id, b.title, b.author, b.available_copies,
	             r.reservation_date, r.expiry_date, r.status, r.notification_sent`

// ListByMember returns the member's reservations, newest first.
func (r *ReservationRepo) ListByMember(ctx context.Context, memberID uint64) ([]ReservationDetail, error) {
	q := `SELECT ` + reservationDetailColumns + `
	      FROM reservations r
	      JOIN books b ON b.id = r.book_id
	      WHERE r.member_id = ?
	      ORDER BY r.reservation_date DESC`
	rows, err := r.db.QueryContext(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	return scanReservationDetails(rows)
}

// ListActiveByBook returns the active queue for a book, earliest expiry
// first, which is the order fulfillment should prefer.
func (r *ReservationRepo) ListActiveByBook(ctx context.Context, bookID uint64) ([]ReservationDetail, error) {
	q := `SELECT ` + reservationDetailColumns + `
	      FROM reservations r
	      JOIN books b ON b.id = r.book_id
	      WHERE r.book_id = ? AND r.status = 'ACTIVE'
	      ORDER BY r.expiry_date ASC`
	rows, err := r.db.QueryContext(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	return scanReservationDetails(rows)
}
