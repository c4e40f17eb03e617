package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/config"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/database"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/model"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/repository"
)

// occupancyCacheTTL bounds how stale the cached zone occupancy snapshot may
// get. The snapshot is advisory; booking decisions always hit the database.
const occupancyCacheTTL = 10 * time.Second

const occupancyCacheKey = "seats:occupancy"

// SeatHandler implements seat interval booking: reserve, cancel, check-in
// and the zone availability views. The seat row lock taken during Reserve is
// what keeps two overlapping bookings on the same seat from both committing.
type SeatHandler struct {
	Seats            *repository.SeatRepo
	SeatReservations *repository.SeatReservationRepo
	Policy           config.Policy
	Redis            *redis.Client // nil disables occupancy caching
}

func NewSeatHandler(seats *repository.SeatRepo, seatReservations *repository.SeatReservationRepo, policy config.Policy, rdb *redis.Client) *SeatHandler {
	if seats == nil || seatReservations == nil {
		panic("nil repository passed to NewSeatHandler")
	}
	return &SeatHandler{Seats: seats, SeatReservations: seatReservations, Policy: policy, Redis: rdb}
}

type reserveSeatReq struct {
	SeatID        uint64 `json:"seat_id" validate:"required,min=1"`
	DurationHours int    `json:"duration_hours"`
}

type seatReservationResp struct {
	ID        uint64    `json:"id"`
	SeatID    uint64    `json:"seat_id"`
	MemberID  uint64    `json:"member_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
	CheckedIn bool      `json:"checked_in"`
}

// Reserve handles POST /v1/seats/reserve. The booking interval starts at the
// server clock and runs duration_hours from there; duration bounds are
// validated before the transaction, while the overlap check and the
// one-active-booking-per-member rule run under the seat row lock so two
// members racing for the same slot cannot both commit.
func (h *SeatHandler) Reserve(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveSeatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if req.DurationHours < h.Policy.MinSeatDurationHours || req.DurationHours > h.Policy.MaxSeatDurationHours {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":     "reservation duration out of bounds",
			"min_hours": h.Policy.MinSeatDurationHours,
			"max_hours": h.Policy.MaxSeatDurationHours,
		})
	}

	now := time.Now().UTC()
	start := now
	end := now.Add(time.Duration(req.DurationHours) * time.Hour)

	ctx := c.Request().Context()
	sr := &model.SeatReservation{
		SeatID:    req.SeatID,
		MemberID:  memberID,
		StartTime: start,
		EndTime:   end,
		Status:    model.SeatReservationActive,
	}

	err = database.WithTx(ctx, h.Seats.DB(), func(tx *sql.Tx) error {
		seat, err := h.Seats.GetForUpdateTx(ctx, tx, req.SeatID)
		if err != nil {
			return err
		}
		if !seat.IsAvailable {
			return repository.ErrSeatUnavailable
		}
		held, err := h.SeatReservations.HasActiveByMemberTx(ctx, tx, memberID, now)
		if err != nil {
			return err
		}
		if held {
			return repository.ErrSeatReservationHeld
		}
		overlapping, err := h.SeatReservations.CountOverlappingTx(ctx, tx, req.SeatID, start, end)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return repository.ErrSeatTimeConflict
		}
		return h.SeatReservations.CreateTx(ctx, tx, sr)
	})
	if err != nil {
		return respondError(c, err)
	}

	h.invalidateOccupancy(c)

	return c.JSON(http.StatusCreated, seatReservationResp{
		ID:        sr.ID,
		SeatID:    sr.SeatID,
		MemberID:  sr.MemberID,
		StartTime: sr.StartTime,
		EndTime:   sr.EndTime,
		Status:    string(sr.Status),
		CheckedIn: sr.CheckedIn,
	})
}

// Cancel handles DELETE /v1/seat-reservations/:id. First writer wins
// against check-in and the end-of-interval sweep.
func (h *SeatHandler) Cancel(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	srID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	err = database.WithTx(ctx, h.SeatReservations.DB(), func(tx *sql.Tx) error {
		sr, err := h.SeatReservations.GetForUpdateTx(ctx, tx, srID)
		if err != nil {
			return err
		}
		if sr.MemberID != memberID && !isAdmin(c) {
			return repository.ErrSeatReservationNotFound
		}
		return h.SeatReservations.TransitionTx(ctx, tx, srID, model.SeatReservationCancelled)
	})
	if err != nil {
		return respondError(c, err)
	}

	h.invalidateOccupancy(c)
	return c.NoContent(http.StatusNoContent)
}

// CheckIn handles POST /v1/seat-reservations/:id/check-in. Check-in opens a
// fixed window before start_time and closes when the interval ends; a second
// check-in and a check-in on a terminated booking are both rejected.
func (h *SeatHandler) CheckIn(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	srID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()

	err = database.WithTx(ctx, h.SeatReservations.DB(), func(tx *sql.Tx) error {
		sr, err := h.SeatReservations.GetForUpdateTx(ctx, tx, srID)
		if err != nil {
			return err
		}
		if sr.MemberID != memberID && !isAdmin(c) {
			return repository.ErrSeatReservationNotFound
		}
		if sr.Status != model.SeatReservationActive {
			return repository.ErrNotActive
		}
		if sr.CheckedIn {
			return repository.ErrAlreadyCheckedIn
		}
		if !model.CheckInOpen(now, sr.StartTime, sr.EndTime, h.Policy.CheckInWindow) {
			if now.Before(sr.StartTime.Add(-h.Policy.CheckInWindow)) {
				return repository.ErrTooEarly
			}
			return repository.ErrNotActive // interval already over
		}
		return h.SeatReservations.CheckInTx(ctx, tx, srID, now)
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":              srID,
		"checked_in":      true,
		"checked_in_time": now,
	})
}

// ListMine handles GET /v1/members/me/seat-reservations.
func (h *SeatHandler) ListMine(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.SeatReservations.ListByMember(c.Request().Context(), memberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seat reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// Occupancy handles GET /v1/seats/zones: the per-zone seat counts and
// how many seats are occupied right now. The snapshot is cached in Redis for
// a few seconds when a client is configured.
func (h *SeatHandler) Occupancy(c echo.Context) error {
	ctx := c.Request().Context()

	if h.Redis != nil {
		if cached, err := h.Redis.Get(ctx, occupancyCacheKey).Bytes(); err == nil {
			var zones []repository.ZoneOccupancy
			if json.Unmarshal(cached, &zones) == nil {
				return c.JSON(http.StatusOK, echo.Map{"zones": zones, "cached": true})
			}
		}
	}

	zones, err := h.Seats.Occupancy(ctx, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load occupancy"})
	}

	if h.Redis != nil {
		if buf, err := json.Marshal(zones); err == nil {
			h.Redis.Set(ctx, occupancyCacheKey, buf, occupancyCacheTTL)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"zones": zones, "cached": false})
}

// ListZone handles GET /v1/seats/zones/:zone: every seat in the zone with
// the reservation covering the current instant, if any.
func (h *SeatHandler) ListZone(c echo.Context) error {
	zone := c.Param("zone")
	if zone == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid zone"})
	}
	seats, err := h.Seats.ListByZone(c.Request().Context(), zone, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	if len(seats) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "zone not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"zone": zone, "seats": seats})
}

// invalidateOccupancy drops the cached snapshot after a booking mutation.
func (h *SeatHandler) invalidateOccupancy(c echo.Context) {
	if h.Redis != nil {
		h.Redis.Del(c.Request().Context(), occupancyCacheKey)
	}
}
