package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/config"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/database"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/model"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/repository"
)

// ReservationHandler implements the book reservation queue: members join the
// queue only while no copy is on the shelf and leave it by cancellation,
// fulfillment or expiry.
type ReservationHandler struct {
	Books        *repository.BookRepo
	Reservations *repository.ReservationRepo
	Policy       config.Policy
}

func NewReservationHandler(books *repository.BookRepo, reservations *repository.ReservationRepo, policy config.Policy) *ReservationHandler {
	if books == nil || reservations == nil {
		panic("nil repository passed to NewReservationHandler")
	}
	return &ReservationHandler{Books: books, Reservations: reservations, Policy: policy}
}

type reserveBookReq struct {
	BookID uint64 `json:"book_id" validate:"required,min=1"`
}

type reservationResp struct {
	ID              uint64    `json:"id"`
	MemberID        uint64    `json:"member_id"`
	BookID          uint64    `json:"book_id"`
	ReservationDate time.Time `json:"reservation_date"`
	ExpiryDate      time.Time `json:"expiry_date"`
	Status          string    `json:"status"`
}

// Reserve handles POST /v1/reservations. The availability check runs under
// the book row lock so it cannot race a concurrent return: if a copy is on
// the shelf the member must borrow instead, and a copy returned an instant
// earlier makes this request fail with 409 rather than queue behind it.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()
	res := &model.Reservation{
		MemberID:        memberID,
		BookID:          req.BookID,
		ReservationDate: now,
		ExpiryDate:      now.Add(h.Policy.ReservationValidity()),
		Status:          model.ReservationActive,
	}

	err = database.WithTx(ctx, h.Books.DB(), func(tx *sql.Tx) error {
		book, err := h.Books.GetForUpdateTx(ctx, tx, req.BookID)
		if err != nil {
			return err
		}
		if book.AvailableCopies > 0 {
			return repository.ErrBookAvailable
		}
		exists, err := h.Reservations.ExistsActiveTx(ctx, tx, memberID, req.BookID)
		if err != nil {
			return err
		}
		if exists {
			return repository.ErrDuplicateReservation
		}
		active, err := h.Reservations.CountActiveByMemberTx(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if active >= h.Policy.MaxReservations {
			return repository.ErrReservationLimit
		}
		return h.Reservations.CreateTx(ctx, tx, res)
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, reservationResp{
		ID:              res.ID,
		MemberID:        res.MemberID,
		BookID:          res.BookID,
		ReservationDate: res.ReservationDate,
		ExpiryDate:      res.ExpiryDate,
		Status:          string(res.Status),
	})
}

// Cancel handles DELETE /v1/reservations/:id. Cancellation races against
// fulfillment and the expiry sweep; whichever commits first wins and the
// loser observes the row already terminal.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	err = database.WithTx(ctx, h.Reservations.DB(), func(tx *sql.Tx) error {
		res, err := h.Reservations.GetForUpdateTx(ctx, tx, resID)
		if err != nil {
			return err
		}
		if res.MemberID != memberID && !isAdmin(c) {
			return repository.ErrReservationNotFound
		}
		return h.Reservations.TransitionTx(ctx, tx, resID, model.ReservationCancelled)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMine handles GET /v1/members/me/reservations. It returns the member's
// reservations, newest first, with the book joined in.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Reservations.ListByMember(c.Request().Context(), memberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}
