// Package sweeper advances time-based lifecycle transitions that no request
// triggers on its own: book reservations past their expiry date and seat
// bookings past their end time. Every pass is idempotent, so the background
// schedule and the admin-triggered endpoints can run concurrently without
// double-counting.
package sweeper

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/database"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/repository"
)

// Sweeper runs the expiry passes over reservations and seat bookings.
type Sweeper struct {
	db        *sql.DB
	resRepo   *repository.ReservationRepo
	seatRepo  *repository.SeatReservationRepo
	scheduler gocron.Scheduler
}

// New returns a Sweeper over the given repositories.
func New(db *sql.DB, resRepo *repository.ReservationRepo, seatRepo *repository.SeatReservationRepo) *Sweeper {
	return &Sweeper{db: db, resRepo: resRepo, seatRepo: seatRepo}
}

// SweepReservations expires every active book reservation whose expiry date
// has passed and returns the number of rows moved.
func (s *Sweeper) SweepReservations(ctx context.Context) (int64, error) {
	var expired int64
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		expired, err = s.resRepo.SweepExpiredTx(ctx, tx, time.Now().UTC())
		return err
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

// SweepSeatReservations closes every active seat booking whose interval has
// ended, COMPLETED when checked in and NO_SHOW otherwise.
func (s *Sweeper) SweepSeatReservations(ctx context.Context) (completed, noShow int64, err error) {
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		completed, noShow, txErr = s.seatRepo.SweepFinishedTx(ctx, tx, time.Now().UTC())
		return txErr
	})
	if err != nil {
		return 0, 0, err
	}
	return completed, noShow, nil
}

// Start schedules both passes at the given interval and runs the scheduler
// in the background. Call Stop to shut it down.
func (s *Sweeper) Start(interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run),
	)
	if err != nil {
		return err
	}
	s.scheduler = sched
	sched.Start()
	log.Printf("sweeper: running every %s", interval)
	return nil
}

// Stop shuts the scheduler down. Safe to call when Start was never called.
func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		_ = s.scheduler.Shutdown()
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := s.SweepReservations(ctx)
	if err != nil {
		log.Printf("sweeper: reservation pass failed: %v", err)
	} else if expired > 0 {
		log.Printf("sweeper: expired %d reservation(s)", expired)
	}

	completed, noShow, err := s.SweepSeatReservations(ctx)
	if err != nil {
		log.Printf("sweeper: seat pass failed: %v", err)
	} else if completed+noShow > 0 {
		log.Printf("sweeper: closed %d seat booking(s) (%d completed, %d no-show)", completed+noShow, completed, noShow)
	}
}
