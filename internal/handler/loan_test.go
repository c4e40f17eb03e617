package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/config"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/repository"
)

var testPolicy = config.Policy{
	LoanPeriodDays:       14,
	MaxRenewals:          2,
	MaxLoansPerMember:    5,
	FinePerDay:           500,
	ReservationDays:      7,
	MaxReservations:      3,
	MinSeatDurationHours: 1,
	MaxSeatDurationHours: 4,
	CheckInWindow:        10 * time.Minute,
}

// newContext builds an Echo context carrying an authenticated member, the
// way the JWT middleware would.
func newContext(e *echo.Echo, method, target, body string, memberID uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("member_id", memberID)
	c.Set("role", role)
	return c, rec
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func newLoanHandler(t *testing.T) (*LoanHandler, sqlmock.Sqlmock, *echo.Echo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	h := NewLoanHandler(repository.NewBookRepo(db), repository.NewLoanRepo(db), testPolicy)
	return h, mock, newTestEcho()
}

var bookCols = []string{"id", "title", "author", "isbn", "total_copies", "available_copies", "created_at", "updated_at"}

func bookRow(id uint64, total, available uint32) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(bookCols).AddRow(id, "The Go Programming Language", "Donovan", nil, total, available, now, now)
}

var loanCols = []string{"id", "member_id", "book_id", "loan_date", "due_date", "return_date", "renewal_count", "fine_amount", "created_at", "updated_at"}

func loanRow(id, memberID, bookID uint64, due time.Time, returned *time.Time, renewals uint8) *sqlmock.Rows {
	now := time.Now().UTC()
	var rd interface{}
	if returned != nil {
		rd = *returned
	}
	return sqlmock.NewRows(loanCols).AddRow(id, memberID, bookID, due.Add(-14*24*time.Hour), due, rd, renewals, 0, now, now)
}

func TestBorrowSuccess(t *testing.T) {
	h, mock, e := newLoanHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM books WHERE id = .+ FOR UPDATE").
		WithArgs(uint64(3)).
		WillReturnRows(bookRow(3, 2, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM loans WHERE member_id`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("UPDATE books SET available_copies = available_copies - 1").
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO loans").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	c, rec := newContext(e, http.MethodPost, "/v1/loans/borrow", `{"book_id":3}`, 7, "MEMBER")
	require.NoError(t, h.Borrow(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp loanResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 42, resp.ID)
	assert.EqualValues(t, 7, resp.MemberID)
	assert.Equal(t, "ACTIVE", resp.Status)
	assert.WithinDuration(t, time.Now().UTC().Add(14*24*time.Hour), resp.DueDate, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowLastCopyLost(t *testing.T) {
	h, mock, e := newLoanHandler(t)

	// The guarded decrement affects zero rows: another transaction took the
	// last copy between the snapshot and the write.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM books WHERE id = .+ FOR UPDATE").
		WillReturnRows(bookRow(3, 1, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM loans WHERE member_id`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("UPDATE books SET available_copies = available_copies - 1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	c, rec := newContext(e, http.MethodPost, "/v1/loans/borrow", `{"book_id":3}`, 7, "MEMBER")
	require.NoError(t, h.Borrow(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no copies available")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowLoanLimit(t *testing.T) {
	h, mock, e := newLoanHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM books WHERE id = .+ FOR UPDATE").
		WillReturnRows(bookRow(3, 5, 5))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM loans WHERE member_id`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	c, rec := newContext(e, http.MethodPost, "/v1/loans/borrow", `{"book_id":3}`, 7, "MEMBER")
	require.NoError(t, h.Borrow(c))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "loan limit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowBookNotFound(t *testing.T) {
	h, mock, e := newLoanHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM books WHERE id = .+ FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(bookCols))
	mock.ExpectRollback()

	c, rec := newContext(e, http.MethodPost, "/v1/loans/borrow", `{"book_id":99}`, 7, "MEMBER")
	require.NoError(t, h.Borrow(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowForOtherMemberForbidden(t *testing.T) {
	h, _, e := newLoanHandler(t)

	c, rec := newContext(e, http.MethodPost, "/v1/loans/borrow", `{"book_id":3,"member_id":99}`, 7, "MEMBER")
	require.NoError(t, h.Borrow(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReturnComputesLateFine(t *testing.T) {
	h, mock, e := newLoanHandler(t)

	// Due 49 hours ago: two full days plus one hour late rounds up to three
	// days at 500 per day.
	due := time.Now().UTC().Add(-49 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM loans WHERE id = .+ FOR UPDATE").
		WithArgs(uint64(11)).
		WillReturnRows(loanRow(11, 7, 3, due, nil, 0))
	mock.ExpectExec("UPDATE loans SET return_date").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE books SET available_copies").
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newContext(e, http.MethodPost, "/v1/loans/11/return", "", 7, "MEMBER")
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.Return(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp loanResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1500, resp.FineAmount)
	assert.Equal(t, "RETURNED", resp.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnTwiceConflicts(t *testing.T) {
	h, mock, e := newLoanHandler(t)

	returned := time.Now().UTC().Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM loans WHERE id = .+ FOR UPDATE").
		WillReturnRows(loanRow(11, 7, 3, time.Now().UTC(), &returned, 0))
	mock.ExpectRollback()

	c, rec := newContext(e, http.MethodPost, "/v1/loans/11/return", "", 7, "MEMBER")
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.Return(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already returned")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnOtherMembersLoanHidden(t *testing.T) {
	h, mock, e := newLoanHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM loans WHERE id = .+ FOR UPDATE").
		WillReturnRows(loanRow(11, 99, 3, time.Now().UTC().Add(24*time.Hour), nil, 0))
	mock.ExpectRollback()

	c, rec := newContext(e, http.MethodPost, "/v1/loans/11/return", "", 7, "MEMBER")
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.Return(c))

	// 404 rather than 403: membership of a loan is not disclosed.
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenewExtendsDueDate(t *testing.T) {
	h, mock, e := newLoanHandler(t)

	due := time.Now().UTC().Add(3 * 24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM loans WHERE id = .+ FOR UPDATE").
		WillReturnRows(loanRow(11, 7, 3, due, nil, 1))
	mock.ExpectExec("UPDATE loans SET due_date = DATE_ADD").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newContext(e, http.MethodPost, "/v1/loans/11/renew", "", 7, "MEMBER")
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.Renew(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp loanResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp.RenewalCount)
	assert.WithinDuration(t, due.Add(14*24*time.Hour), resp.DueDate, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenewLimitExceeded(t *testing.T) {
	h, mock, e := newLoanHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM loans WHERE id = .+ FOR UPDATE").
		WillReturnRows(loanRow(11, 7, 3, time.Now().UTC().Add(24*time.Hour), nil, 2))
	mock.ExpectRollback()

	c, rec := newContext(e, http.MethodPost, "/v1/loans/11/renew", "", 7, "MEMBER")
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.Renew(c))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "renewal limit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenewOverdueRejected(t *testing.T) {
	h, mock, e := newLoanHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM loans WHERE id = .+ FOR UPDATE").
		WillReturnRows(loanRow(11, 7, 3, time.Now().UTC().Add(-24*time.Hour), nil, 0))
	mock.ExpectRollback()

	c, rec := newContext(e, http.MethodPost, "/v1/loans/11/renew", "", 7, "MEMBER")
	c.SetParamNames("id")
	c.SetParamValues("11")
	require.NoError(t, h.Renew(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
