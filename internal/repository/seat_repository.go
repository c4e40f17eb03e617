package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/model"
)

// SeatRepo provides access to the seats table and the occupancy queries over
// it. Seat rows are static apart from the administrative is_available flag;
// booking state lives in seat_reservations. The seat row lock taken with
// GetForUpdateTx is what serializes concurrent bookings on the same seat.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *SeatRepo) DB() *sql.DB { return r.db }

// GetForUpdateTx loads a seat inside tx and takes a row lock on it.
func (r *SeatRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Seat, error) {
	const q = `SELECT id, zone, seat_number, seat_type, is_available, created_at, updated_at
	           FROM seats WHERE id = ? FOR UPDATE`
	var s model.Seat
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Zone, &s.SeatNumber, &s.SeatType, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ZoneOccupancy summarizes one zone: how many seats exist, how many are
// administratively bookable, and how many are occupied at the reference
// instant.
type ZoneOccupancy struct {
	Zone          string `json:"zone"`
	TotalSeats    int    `json:"total_seats"`
	BookableSeats int    `json:"bookable_seats"`
	OccupiedSeats int    `json:"occupied_seats"`
}

// Occupancy returns the per-zone summary at the given instant. A seat counts
// as occupied when an ACTIVE reservation's interval covers now.
func (r *SeatRepo) Occupancy(ctx context.Context, now time.Time) ([]ZoneOccupancy, error) {
	const q = `SELECT s.zone,
	                  COUNT(*),
	                  SUM(CASE WHEN s.is_available THEN 1 ELSE 0 END),
	                  SUM(CASE WHEN sr.id IS NOT NULL THEN 1 ELSE 0 END)
	           FROM seats s
	           LEFT JOIN seat_reservations sr
	             ON sr.seat_id = s.id
	            AND sr.status = 'ACTIVE'
	            AND sr.start_time <= ?
	            AND sr.end_time > ?
	           GROUP BY s.zone
	           ORDER BY s.zone`
	ts := now.UTC()
	rows, err := r.db.QueryContext(ctx, q, ts, ts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	zones := make([]ZoneOccupancy, 0)
	for rows.Next() {
		var z ZoneOccupancy
		if err := rows.Scan(&z.Zone, &z.TotalSeats, &z.BookableSeats, &z.OccupiedSeats); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return zones, nil
}

// ZoneSeat is one seat in a zone listing together with its current occupant
// interval, if any.
type ZoneSeat struct {
	ID          uint64     `json:"id"`
	Zone        string     `json:"zone"`
	SeatNumber  uint32     `json:"seat_number"`
	SeatType    string     `json:"seat_type"`
	IsAvailable bool       `json:"is_available"`
	Occupied    bool       `json:"occupied"`
	OccupiedBy  *uint64    `json:"occupied_by,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// ListByZone returns every seat in a zone with the reservation covering now,
// ordered by seat number.
func (r *SeatRepo) ListByZone(ctx context.Context, zone string, now time.Time) ([]ZoneSeat, error) {
	const q = `SELECT s.id, s.zone, s.seat_number, s.seat_type, s.is_available,
	                  sr.member_id, sr.start_time, sr.end_time
	           FROM seats s
	           LEFT JOIN seat_reservations sr
	             ON sr.seat_id = s.id
	            AND sr.status = 'ACTIVE'
	            AND sr.start_time <= ?
	            AND sr.end_time > ?
	           WHERE s.zone = ?
	           ORDER BY s.seat_number`
	ts := now.UTC()
	rows, err := r.db.QueryContext(ctx, q, ts, ts, zone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]ZoneSeat, 0)
	for rows.Next() {
		var s ZoneSeat
		var memberID sql.NullInt64
		var start, end sql.NullTime
		if err := rows.Scan(&s.ID, &s.Zone, &s.SeatNumber, &s.SeatType, &s.IsAvailable,
			&memberID, &start, &end); err != nil {
			return nil, err
		}
		if memberID.Valid {
			id := uint64(memberID.Int64)
			s.Occupied = true
			s.OccupiedBy = &id
		}
		if start.Valid {
			t := start.Time
			s.StartTime = &t
		}
		if end.Valid {
			t := end.Time
			s.EndTime = &t
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}
