package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/repository"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/sweeper"
)

func newAdminHandler(t *testing.T) (*AdminHandler, sqlmock.Sqlmock, *echo.Echo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	reservations := repository.NewReservationRepo(db)
	seatReservations := repository.NewSeatReservationRepo(db)
	h := NewAdminHandler(
		repository.NewBookRepo(db),
		repository.NewLoanRepo(db),
		reservations,
		seatReservations,
		repository.NewAdminLogRepo(db),
		sweeper.New(db, reservations, seatReservations),
		testPolicy,
	)
	return h, mock, newTestEcho()
}

func TestFulfillCreatesLoanAtomically(t *testing.T) {
	h, mock, e := newAdminHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM reservations WHERE id = .+ FOR UPDATE").
		WillReturnRows(reservationRow(21, 7, 3, "ACTIVE", time.Now().UTC().Add(24*time.Hour)))
	mock.ExpectQuery("SELECT .+ FROM books WHERE id = .+ FOR UPDATE").
		WillReturnRows(bookRow(3, 2, 1))
	mock.ExpectExec("UPDATE books SET available_copies = available_copies - 1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO loans").
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec("UPDATE reservations SET status = .+ AND status = 'ACTIVE'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := newContext(e, http.MethodPost, "/v1/admin/reservations/21/fulfill", "", 1, "ADMIN")
	c.SetParamNames("id")
	c.SetParamValues("21")
	require.NoError(t, h.Fulfill(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		ReservationID uint64   `json:"reservation_id"`
		Loan          loanResp `json:"loan"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 21, resp.ReservationID)
	assert.EqualValues(t, 55, resp.Loan.ID)
	assert.EqualValues(t, 7, resp.Loan.MemberID, "loan goes to the reservation holder")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillWithNoCopiesRollsEverythingBack(t *testing.T) {
	h, mock, e := newAdminHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM reservations WHERE id = .+ FOR UPDATE").
		WillReturnRows(reservationRow(21, 7, 3, "ACTIVE", time.Now().UTC().Add(24*time.Hour)))
	mock.ExpectQuery("SELECT .+ FROM books WHERE id = .+ FOR UPDATE").
		WillReturnRows(bookRow(3, 1, 0))
	mock.ExpectExec("UPDATE books SET available_copies = available_copies - 1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	c, rec := newContext(e, http.MethodPost, "/v1/admin/reservations/21/fulfill", "", 1, "ADMIN")
	c.SetParamNames("id")
	c.SetParamValues("21")
	require.NoError(t, h.Fulfill(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillNonActiveReservationConflicts(t *testing.T) {
	h, mock, e := newAdminHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM reservations WHERE id = .+ FOR UPDATE").
		WillReturnRows(reservationRow(21, 7, 3, "CANCELLED", time.Now().UTC().Add(24*time.Hour)))
	mock.ExpectRollback()

	c, rec := newContext(e, http.MethodPost, "/v1/admin/reservations/21/fulfill", "", 1, "ADMIN")
	c.SetParamNames("id")
	c.SetParamValues("21")
	require.NoError(t, h.Fulfill(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockAddsCopies(t *testing.T) {
	h, mock, e := newAdminHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM books WHERE id = .+ FOR UPDATE").
		WillReturnRows(bookRow(3, 2, 1))
	mock.ExpectExec("UPDATE books SET total_copies = .+, available_copies = .+ WHERE id").
		WithArgs(uint32(5), uint32(4), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := newContext(e, http.MethodPut, "/v1/admin/books/3/stock", `{"delta":3}`, 1, "ADMIN")
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, h.AdjustStock(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_copies":5`)
	assert.Contains(t, rec.Body.String(), `"available_copies":4`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockCannotDropBelowLoanedCount(t *testing.T) {
	h, mock, e := newAdminHandler(t)

	// 3 of 5 copies are out on loan; removing 3 would leave total below the
	// loaned count.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM books WHERE id = .+ FOR UPDATE").
		WillReturnRows(bookRow(3, 5, 2))
	mock.ExpectRollback()

	c, rec := newContext(e, http.MethodPut, "/v1/admin/books/3/stock", `{"delta":-3}`, 1, "ADMIN")
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, h.AdjustStock(c))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "adjustment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockZeroDeltaRejected(t *testing.T) {
	h, _, e := newAdminHandler(t)

	c, rec := newContext(e, http.MethodPut, "/v1/admin/books/3/stock", `{"delta":0}`, 1, "ADMIN")
	c.SetParamNames("id")
	c.SetParamValues("3")
	require.NoError(t, h.AdjustStock(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForceReturnAuditsAction(t *testing.T) {
	h, mock, e := newAdminHandler(t)

	due := time.Now().UTC().Add(-25 * time.Hour) // two days of fine
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM loans WHERE id = .+ FOR UPDATE").
		WillReturnRows(loanRow(11, 7, 3, due, nil, 0))
	mock.ExpectExec("UPDATE loans SET return_date").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE books SET available_copies").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO admin_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := newContext(e, http.MethodPost, "/v1/admin/loans/11/force-return", `{"reason":"damaged copy"}`, 1, "ADMIN")
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.ForceReturn(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp loanResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1000, resp.FineAmount)
	assert.Equal(t, "RETURNED", resp.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
