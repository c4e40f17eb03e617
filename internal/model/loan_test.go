package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLateFine(t *testing.T) {
	due := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	const perDay = 500

	t.Run("on time owes nothing", func(t *testing.T) {
		assert.Zero(t, LateFine(due, due.Add(-time.Hour), perDay))
		assert.Zero(t, LateFine(due, due, perDay))
	})

	t.Run("one second late charges a full day", func(t *testing.T) {
		assert.EqualValues(t, 500, LateFine(due, due.Add(time.Second), perDay))
	})

	t.Run("exactly one day late charges one day", func(t *testing.T) {
		assert.EqualValues(t, 500, LateFine(due, due.Add(24*time.Hour), perDay))
	})

	t.Run("partial days round up", func(t *testing.T) {
		assert.EqualValues(t, 1000, LateFine(due, due.Add(25*time.Hour), perDay))
		assert.EqualValues(t, 1500, LateFine(due, due.Add(49*time.Hour), perDay))
	})
}

func TestLoanStatusAt(t *testing.T) {
	due := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	loan := Loan{DueDate: due}

	assert.Equal(t, LoanActive, loan.StatusAt(due.Add(-time.Hour)))
	assert.Equal(t, LoanActive, loan.StatusAt(due), "not overdue at the exact due instant")
	assert.Equal(t, LoanOverdue, loan.StatusAt(due.Add(time.Second)))

	returned := due.Add(-time.Hour)
	loan.ReturnDate = &returned
	assert.Equal(t, LoanReturned, loan.StatusAt(due.Add(48*time.Hour)), "returned wins over overdue")
}
