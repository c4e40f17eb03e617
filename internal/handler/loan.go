package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/config"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/database"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/model"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/queue"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/repository"
	queue_publisher "github.com/DataBase-Project-2025-2/library-management-system/internal/service"
)

// LoanHandler implements the inventory ledger operations: borrow, return and
// renew. Each mutation takes the book or loan row lock first, so concurrent
// requests against the same book serialize and the available-copies counter
// can never be driven negative.
type LoanHandler struct {
	Books  *repository.BookRepo
	Loans  *repository.LoanRepo
	Policy config.Policy
}

func NewLoanHandler(books *repository.BookRepo, loans *repository.LoanRepo, policy config.Policy) *LoanHandler {
	if books == nil || loans == nil {
		panic("nil repository passed to NewLoanHandler")
	}
	return &LoanHandler{Books: books, Loans: loans, Policy: policy}
}

type borrowReq struct {
	BookID uint64 `json:"book_id" validate:"required,min=1"`
	// MemberID lets an admin issue a loan on a member's behalf; it is
	// ignored for MEMBER-role callers.
	MemberID uint64 `json:"member_id" validate:"omitempty,min=1"`
}

type loanResp struct {
	ID           uint64     `json:"id"`
	MemberID     uint64     `json:"member_id"`
	BookID       uint64     `json:"book_id"`
	LoanDate     time.Time  `json:"loan_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	RenewalCount uint8      `json:"renewal_count"`
	FineAmount   int64      `json:"fine_amount"`
	Status       string     `json:"status"`
}

func toLoanResp(l *model.Loan, now time.Time) loanResp {
	return loanResp{
		ID:           l.ID,
		MemberID:     l.MemberID,
		BookID:       l.BookID,
		LoanDate:     l.LoanDate,
		DueDate:      l.DueDate,
		ReturnDate:   l.ReturnDate,
		RenewalCount: l.RenewalCount,
		FineAmount:   l.FineAmount,
		Status:       string(l.StatusAt(now)),
	}
}

// Borrow handles POST /v1/loans/borrow. It checks the member's loan cap and the
// book's availability under the book row lock, decrements available_copies
// and inserts the loan in one transaction. Under concurrent borrows on the
// last copy exactly one caller commits; the rest get 409.
func (h *LoanHandler) Borrow(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req borrowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.MemberID != 0 && req.MemberID != memberID {
		if !isAdmin(c) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot borrow for another member"})
		}
		memberID = req.MemberID
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()
	loan := &model.Loan{
		MemberID: memberID,
		BookID:   req.BookID,
		LoanDate: now,
		DueDate:  now.Add(h.Policy.LoanPeriod()),
	}
	var book *model.Book

	err = database.WithTx(ctx, h.Books.DB(), func(tx *sql.Tx) error {
		book, err = h.Books.GetForUpdateTx(ctx, tx, req.BookID)
		if err != nil {
			return err
		}
		active, err := h.Loans.CountActiveByMemberTx(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if active >= h.Policy.MaxLoansPerMember {
			return repository.ErrLoanLimit
		}
		if err := h.Books.DecrementAvailableTx(ctx, tx, req.BookID); err != nil {
			return err
		}
		return h.Loans.CreateTx(ctx, tx, loan)
	})
	if err != nil {
		return respondError(c, err)
	}

	go publishLoanCreated(loan, book.Title, false, nil)

	return c.JSON(http.StatusCreated, toLoanResp(loan, now))
}

// Return handles POST /v1/loans/:id/return. The loan row lock serializes it
// against renew and a concurrent double return; the first writer terminates
// the loan, computes the fine and puts the copy back on the shelf.
func (h *LoanHandler) Return(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	loanID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
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
		if loan.MemberID != memberID && !isAdmin(c) {
			return repository.ErrLoanNotFound
		}
		if loan.ReturnDate != nil {
			return repository.ErrAlreadyReturned
		}
		fine = model.LateFine(loan.DueDate, now, h.Policy.FinePerDay)
		if err := h.Loans.MarkReturnedTx(ctx, tx, loanID, now, fine); err != nil {
			return err
		}
		return h.Books.IncrementAvailableTx(ctx, tx, loan.BookID)
	})
	if err != nil {
		return respondError(c, err)
	}

	loan.ReturnDate = &now
	loan.FineAmount = fine
	return c.JSON(http.StatusOK, toLoanResp(loan, now))
}

// Renew handles POST /v1/loans/:id/renew. Only loans that are neither
// returned nor overdue may renew, and only up to the renewal cap; each
// renewal extends the due date by one loan period.
func (h *LoanHandler) Renew(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	loanID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()
	var loan *model.Loan

	err = database.WithTx(ctx, h.Loans.DB(), func(tx *sql.Tx) error {
		loan, err = h.Loans.GetForUpdateTx(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if loan.MemberID != memberID && !isAdmin(c) {
			return repository.ErrLoanNotFound
		}
		switch loan.StatusAt(now) {
		case model.LoanReturned:
			return repository.ErrAlreadyReturned
		case model.LoanOverdue:
			return repository.ErrNotActive
		}
		if int(loan.RenewalCount) >= h.Policy.MaxRenewals {
			return repository.ErrRenewalLimit
		}
		return h.Loans.RenewTx(ctx, tx, loanID, h.Policy.LoanPeriodDays, h.Policy.MaxRenewals)
	})
	if err != nil {
		return respondError(c, err)
	}

	loan.DueDate = loan.DueDate.Add(h.Policy.LoanPeriod())
	loan.RenewalCount++
	return c.JSON(http.StatusOK, toLoanResp(loan, now))
}

// ListMine handles GET /v1/members/me/loans. It returns the member's loans with the
// status and accrued fine derived at read time.
func (h *LoanHandler) ListMine(c echo.Context) error {
	memberID, err := getMemberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Loans.ListByMember(c.Request().Context(), memberID, h.Policy.FinePerDay)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load loans"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// publishLoanCreated fires the loan.created event after the transaction has
// committed. Publication is best-effort and never blocks the request path.
func publishLoanCreated(loan *model.Loan, bookTitle string, viaReservation bool, reservationID *uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = queue_publisher.PublishLoanCreated(ctx, queue.LoanCreatedEvent{
		EventID:        uuid.NewString(),
		LoanID:         loan.ID,
		MemberID:       loan.MemberID,
		BookID:         loan.BookID,
		BookTitle:      bookTitle,
		LoanDate:       loan.LoanDate.Format(time.RFC3339),
		DueDate:        loan.DueDate.Format(time.RFC3339),
		ViaReservation: viaReservation,
		ReservationID:  reservationID,
	})
}
