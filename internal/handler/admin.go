package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/config"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/database"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/model"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/repository"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/sweeper"
)

// AdminHandler implements the administrative operations: forced returns,
// stock adjustment, reservation fulfillment and the manual sweep triggers.
// Every mutation writes an admin_logs row in the same transaction, naming
// the acting admin from the JWT.
type AdminHandler struct {
	Books            *repository.BookRepo
	Loans            *repository.LoanRepo
	Reservations     *repository.ReservationRepo
	SeatReservations *repository.SeatReservationRepo
	AdminLogs        *repository.AdminLogRepo
	Sweeper          *sweeper.Sweeper
	Policy           config.Policy
}

func NewAdminHandler(books *repository.BookRepo, loans *repository.LoanRepo, reservations *repository.ReservationRepo,
	seatReservations *repository.SeatReservationRepo, adminLogs *repository.AdminLogRepo, sw *sweeper.Sweeper, policy config.Policy) *AdminHandler {
	if books == nil || loans == nil || reservations == nil || seatReservations == nil || adminLogs == nil || sw == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Books:            books,
		Loans:            loans,
		Reservations:     reservations,
		SeatReservations: seatReservations,
		AdminLogs:        adminLogs,
		Sweeper:          sw,
		Policy:           policy,
	}
}

type forceReturnReq struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// ForceReturn handles POST /v1/admin/loans/:id/force-return. It is the
// administrative variant of a return: ownership is bypassed, the fine is
// still computed, and the action is audited with the given reason.
func (h *AdminHandler) ForceReturn(c echo.Context) error {
	adminID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	loanID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req forceReturnReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()
	var loan *model.Loan
	var fine int64

	err = database.WithTx(ctx, h.Loans.DB(), func(tx *sql.Tx) error {
		loan, err = h.Loans.GetForUpdateTx(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if loan.ReturnDate != nil {
			return repository.ErrAlreadyReturned
		}
		fine = model.LateFine(loan.DueDate, now, h.Policy.FinePerDay)
		if err := h.Loans.MarkReturnedTx(ctx, tx, loanID, now, fine); err != nil {
			return err
		}
		if err := h.Books.IncrementAvailableTx(ctx, tx, loan.BookID); err != nil {
			return err
		}
		details := fmt.Sprintf("forced return: %s (fine %d)", req.Reason, fine)
		return h.AdminLogs.InsertTx(ctx, tx, adminID, "FORCE_RETURN", details, "loan", loanID)
	})
	if err != nil {
		return respondError(c, err)
	}

	loan.ReturnDate = &now
	loan.FineAmount = fine
	return c.JSON(http.StatusOK, toLoanResp(loan, now))
}

type adjustStockReq struct {
	Delta int32 `json:"delta"`
}

// AdjustStock handles PUT /v1/admin/books/:id/stock. The delta moves both
// counters: copies added go straight to the shelf, copies removed must be on
// the shelf to remove. Under the book row lock the invariants
// 0 <= available <= total and total >= loaned count cannot be violated.
func (h *AdminHandler) AdjustStock(c echo.Context) error {
	adminID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req adjustStockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Delta == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "delta must be non-zero"})
	}

	ctx := c.Request().Context()
	var newTotal, newAvailable uint32

	err = database.WithTx(ctx, h.Books.DB(), func(tx *sql.Tx) error {
		book, err := h.Books.GetForUpdateTx(ctx, tx, bookID)
		if err != nil {
			return err
		}
		total := int64(book.TotalCopies) + int64(req.Delta)
		available := int64(book.AvailableCopies) + int64(req.Delta)
		if available < 0 || total < int64(book.LoanedCopies()) {
			return repository.ErrInvalidAdjustment
		}
		newTotal = uint32(total)
		newAvailable = uint32(available)
		if err := h.Books.SetCountsTx(ctx, tx, bookID, newTotal, newAvailable); err != nil {
			return err
		}
		details := fmt.Sprintf("stock adjusted by %+d: total %d -> %d", req.Delta, book.TotalCopies, newTotal)
		return h.AdminLogs.InsertTx(ctx, tx, adminID, "ADJUST_STOCK", details, "book", bookID)
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"book_id":          bookID,
		"total_copies":     newTotal,
		"available_copies": newAvailable,
	})
}

// Fulfill handles POST /v1/admin/reservations/:id/fulfill. It converts an
// active reservation into a loan in one transaction: the reservation goes to
// FULFILLED, a copy comes off the shelf and the loan is created, or none of
// it happens. A racing cancel or sweep on the same row makes this fail with
// 409 instead of partially applying.
func (h *AdminHandler) Fulfill(c echo.Context) error {
	adminID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()
	var loan *model.Loan
	var book *model.Book

	err = database.WithTx(ctx, h.Books.DB(), func(tx *sql.Tx) error {
		res, err := h.Reservations.GetForUpdateTx(ctx, tx, resID)
		if err != nil {
			return err
		}
		if res.Status != model.ReservationActive {
			return repository.ErrNotActive
		}
		book, err = h.Books.GetForUpdateTx(ctx, tx, res.BookID)
		if err != nil {
			return err
		}
		if err := h.Books.DecrementAvailableTx(ctx, tx, res.BookID); err != nil {
			return err
		}
		loan = &model.Loan{
			MemberID: res.MemberID,
			BookID:   res.BookID,
			LoanDate: now,
			DueDate:  now.Add(h.Policy.LoanPeriod()),
		}
		if err := h.Loans.CreateTx(ctx, tx, loan); err != nil {
			return err
		}
		if err := h.Reservations.TransitionTx(ctx, tx, resID, model.ReservationFulfilled); err != nil {
			return err
		}
		details := fmt.Sprintf("reservation fulfilled into loan %d for member %d", loan.ID, loan.MemberID)
		return h.AdminLogs.InsertTx(ctx, tx, adminID, "FULFILL_RESERVATION", details, "reservation", resID)
	})
	if err != nil {
		return respondError(c, err)
	}

	go publishLoanCreated(loan, book.Title, true, &resID)

	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": resID,
		"loan":           toLoanResp(loan, now),
	})
}

// ListOverdue handles GET /v1/admin/loans/overdue: every unreturned loan
// past its due date with the fine accrued so far.
func (h *AdminHandler) ListOverdue(c echo.Context) error {
	details, err := h.Loans.ListOverdue(c.Request().Context(), h.Policy.FinePerDay)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load overdue loans"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// BookQueue handles GET /v1/admin/books/:id/reservations: the active
// reservation queue for a book, earliest expiry first.
func (h *AdminHandler) BookQueue(c echo.Context) error {
	bookID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	details, err := h.Reservations.ListActiveByBook(c.Request().Context(), bookID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservation queue"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// MarkNotified handles POST /v1/admin/reservations/:id/notify: records that
// the member was told a copy is waiting.
func (h *AdminHandler) MarkNotified(c echo.Context) error {
	resID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Reservations.MarkNotified(c.Request().Context(), resID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": resID, "notification_sent": true})
}

// SweepReservations handles POST /v1/admin/sweeps/reservations: runs the
// reservation expiry pass immediately instead of waiting for the schedule.
func (h *AdminHandler) SweepReservations(c echo.Context) error {
	expired, err := h.Sweeper.SweepReservations(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": expired})
}

// SweepSeatReservations handles POST /v1/admin/sweeps/seat-reservations.
func (h *AdminHandler) SweepSeatReservations(c echo.Context) error {
	completed, noShow, err := h.Sweeper.SweepSeatReservations(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"completed": completed, "no_show": noShow})
}
