package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/model"
)

// loanStatusExpr derives the loan status at read time. Overdue is never
// stored: this expression is the single authoritative definition used by
// every query that reports loan state.
const loanStatusExpr = `CASE
    WHEN l.return_date IS NOT NULL THEN 'RETURNED'
    WHEN l.due_date < UTC_TIMESTAMP() THEN 'OVERDUE'
    ELSE 'ACTIVE' END`

// accruedFineExpr reports the fine owed right now: the stored amount for
// returned loans, the running charge for overdue ones (whole late days,
// rounded up, times the rate bound as a parameter), zero otherwise.
const accruedFineExpr = `CASE
    WHEN l.return_date IS NOT NULL THEN l.fine_amount
    WHEN l.due_date < UTC_TIMESTAMP() THEN CEILING(TIMESTAMPDIFF(SECOND, l.due_date, UTC_TIMESTAMP()) / 86400.0) * ?
    ELSE 0 END`

// LoanRepo provides access to the loans table. Loans only ever move forward:
// created by borrow, optionally renewed, terminated by return. Rows are
// never deleted.
type LoanRepo struct {
	db *sql.DB
}

// NewLoanRepo returns a LoanRepo bound to the given database.
func NewLoanRepo(db *sql.DB) *LoanRepo { return &LoanRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *LoanRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a loan within the caller's transaction and populates the
// generated ID.
func (r *LoanRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.Loan) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO loans (member_id, book_id, loan_date, due_date) VALUES (?, ?, ?, ?)`,
		l.MemberID, l.BookID, l.LoanDate.UTC(), l.DueDate.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// GetForUpdateTx loads a loan inside tx with a row lock, so that return and
// renew on the same loan serialize.
func (r *LoanRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Loan, error) {
	const q = `SELECT id, member_id, book_id, loan_date, due_date, return_date, renewal_count, fine_amount, created_at, updated_at
	           FROM loans WHERE id = ? FOR UPDATE`
	var l model.Loan
	var returned sql.NullTime
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&l.ID, &l.MemberID, &l.BookID, &l.LoanDate, &l.DueDate,
		&returned, &l.RenewalCount, &l.FineAmount, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	if returned.Valid {
		t := returned.Time
		l.ReturnDate = &t
	}
	return &l, nil
}

// CountActiveByMemberTx counts the member's loans with no return date yet.
func (r *LoanRepo) CountActiveByMemberTx(ctx context.Context, tx *sql.Tx, memberID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE member_id = ? AND return_date IS NULL`, memberID).Scan(&n)
	return n, err
}

// MarkReturnedTx terminates a loan. The WHERE guard makes the transition
// first-writer-wins: a second return attempt affects zero rows and reports
// ErrAlreadyReturned.
func (r *LoanRepo) MarkReturnedTx(ctx context.Context, tx *sql.Tx, id uint64, returnedAt time.Time, fine int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET return_date = ?, fine_amount = ? WHERE id = ? AND return_date IS NULL`,
		returnedAt.UTC(), fine, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyReturned
	}
	return nil
}

// RenewTx extends the due date by periodDays and bumps the renewal counter.
// Validation (active, under the renewal cap) happens in the handler while the
// row lock from GetForUpdateTx is held; the guards here are the backstop.
func (r *LoanRepo) RenewTx(ctx context.Context, tx *sql.Tx, id uint64, periodDays, maxRenewals int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET due_date = DATE_ADD(due_date, INTERVAL ? DAY), renewal_count = renewal_count + 1
		 WHERE id = ? AND return_date IS NULL AND renewal_count < ?`,
		periodDays, id, maxRenewals)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRenewalLimit
	}
	return nil
}

// LoanDetail is a loan joined with its book for member-facing listings. The
// Status and AccruedFine fields are computed by the database at read time.
type LoanDetail struct {
	ID           uint64     `json:"id"`
	BookID       uint64     `json:"book_id"`
	BookTitle    string     `json:"book_title"`
	BookAuthor   string     `json:"book_author"`
	MemberID     uint64     `json:"member_id"`
	LoanDate     time.Time  `json:"loan_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	RenewalCount uint8      `json:"renewal_count"`
	Status       string     `json:"status"`
	AccruedFine  int64      `json:"accrued_fine"`
}

func (r *LoanRepo) scanDetails(rows *sql.Rows) ([]LoanDetail, error) {
	defer rows.Close()
	details := make([]LoanDetail, 0)
	for rows.Next() {
		var d LoanDetail
		var returned sql.NullTime
		if err := rows.Scan(
			&d.ID, &d.BookID, &d.BookTitle, &d.BookAuthor, &d.MemberID,
			&d.LoanDate, &d.DueDate, &returned, &d.RenewalCount,
			&d.Status, &d.AccruedFine,
		); err != nil {
			return nil, err
		}
		if returned.Valid {
			t := returned.Time
			d.ReturnDate = &t
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// ListByMember returns the member's loans, newest first, with derived status
// and the fine accrued so far at the given per-day rate.
func (r *LoanRepo) ListByMember(ctx context.Context, memberID uint64, finePerDay int64) ([]LoanDetail, error) {
	q := `SELECT l.id, l.book_id, b.title, b.author, l.member_id,
	             l.loan_date, l.due_date, l.return_date, l.renewal_count,
	             ` + loanStatusExpr + `, ` + accruedFineExpr + `
	      FROM loans l
	      JOIN books b ON b.id = l.book_id
	      WHERE l.member_id = ?
	      ORDER BY l.loan_date DESC`
	rows, err := r.db.QueryContext(ctx, q, finePerDay, memberID)
	if err != nil {
		return nil, err
	}
	return r.scanDetails(rows)
}

// ListOverdue returns all loans past due and not yet returned, oldest due
// date first. Used by the admin overdue report.
func (r *LoanRepo) ListOverdue(ctx context.Context, finePerDay int64) ([]LoanDetail, error) {
	q := `SELECT l.id, l.book_id, b.title, b.author, l.member_id,
	             l.loan_date, l.due_date, l.return_date, l.renewal_count,
	             ` + loanStatusExpr + `, ` + accruedFineExpr + `
	      FROM loans l
	      JOIN books b ON b.id = l.book_id
	      WHERE l.return_date IS NULL AND l.due_date < UTC_TIMESTAMP()
	      ORDER BY l.due_date ASC`
	rows, err := r.db.QueryContext(ctx, q, finePerDay)
	if err != nil {
		return nil, err
	}
	return r.scanDetails(rows)
}
