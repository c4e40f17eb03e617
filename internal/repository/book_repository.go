package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/model"
)

// BookRepo provides access to the books table. The available_copies counter
// is the only piece of shared mutable state in the inventory ledger, so every
// mutation here is either guarded by a WHERE clause that re-checks the
// invariant or runs under a row lock taken with GetForUpdateTx.
type BookRepo struct {
	db *sql.DB
}

// NewBookRepo returns a BookRepo bound to the given database.
func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *BookRepo) DB() *sql.DB { return r.db }

const bookColumns = `id, title, author, isbn, total_copies, available_copies, created_at, updated_at`

func scanBook(row *sql.Row) (*model.Book, error) {
	var b model.Book
	var isbn sql.NullString
	err := row.Scan(&b.ID, &b.Title, &b.Author, &isbn,
		&b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	if isbn.Valid {
		v := isbn.String
		b.ISBN = &v
	}
	return &b, nil
}

// GetByID loads a book outside any transaction (read-only queries).
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (*model.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE id = ?`
	return scanBook(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdateTx loads a book inside tx and takes a row lock on it. All
// ledger operations against the same book serialize on this lock; operations
// on different books proceed in parallel.
func (r *BookRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE id = ? FOR UPDATE`
	return scanBook(tx.QueryRowContext(ctx, q, id))
}

// DecrementAvailableTx takes one copy off the shelf. The WHERE guard keeps
// available_copies from ever going negative even if a caller skipped the row
// lock; zero affected rows means no copy was available.
func (r *BookRepo) DecrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies - 1 WHERE id = ? AND available_copies > 0`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoCopies
	}
	return nil
}

// IncrementAvailableTx puts one copy back on the shelf. The guard against
// exceeding total_copies should never fire for a well-formed return; if it
// does, the ledger is corrupt and the transaction must not commit.
func (r *BookRepo) IncrementAvailableTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies + 1 WHERE id = ? AND available_copies < total_copies`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("book %d: available_copies would exceed total_copies", id)
	}
	return nil
}

// SetCountsTx writes both counters at once during an admin stock adjustment.
// The caller validates the new values against the currently-loaned count
// while holding the row lock.
func (r *BookRepo) SetCountsTx(ctx context.Context, tx *sql.Tx, id uint64, total, available uint32) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE books SET total_copies = ?, available_copies = ? WHERE id = ?`, total, available, id)
	return err
}
