package loan_test

import (
	"testing"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/loan"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyPayment(t *testing.T) {
	t.Parallel()

	t.Run("standard amortization", func(t *testing.T) {
		payment := loan.MonthlyPayment(decimal.NewFromInt(25000), 0.08, 36)
		assert.InDelta(t, 783.40, payment.InexactFloat64(), 0.01)
	})

	t.Run("zero rate splits evenly", func(t *testing.T) {
		payment := loan.MonthlyPayment(decimal.NewFromInt(12000), 0, 12)
		assert.True(t, payment.Equal(decimal.NewFromInt(1000)), payment.String())
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		assert.True(t, loan.MonthlyPayment(decimal.Zero, 0.05, 12).IsZero())
		assert.True(t, loan.MonthlyPayment(decimal.NewFromInt(-100), 0.05, 12).IsZero())
		assert.True(t, loan.MonthlyPayment(decimal.NewFromInt(1000), 0.05, 0).IsZero())
	})
}

func TestTotalInterest(t *testing.T) {
	t.Parallel()
	payment := loan.MonthlyPayment(decimal.NewFromInt(25000), 0.08, 36)
	want := payment.Mul(decimal.NewFromInt(36)).Sub(decimal.NewFromInt(25000)).Round(2)
	got := loan.TotalInterest(decimal.NewFromInt(25000), 0.08, 36)
	assert.True(t, got.Equal(want), got.String())

	assert.True(t, loan.TotalInterest(decimal.NewFromInt(12000), 0, 12).IsZero())
}

func TestRemainingBalance(t *testing.T) {
	t.Parallel()
	principal := decimal.NewFromInt(25000)

	t.Run("no payments made", func(t *testing.T) {
		bal := loan.RemainingBalance(principal, 0.08, 36, 0)
		assert.True(t, bal.Equal(principal), bal.String())
	})

	t.Run("fully paid", func(t *testing.T) {
		assert.True(t, loan.RemainingBalance(principal, 0.08, 36, 36).IsZero())
		assert.True(t, loan.RemainingBalance(principal, 0.08, 36, 40).IsZero())
	})

	t.Run("balance decreases monotonically", func(t *testing.T) {
		prev := loan.RemainingBalance(principal, 0.08, 36, 0)
		for k := 1; k <= 36; k++ {
			cur := loan.RemainingBalance(principal, 0.08, 36, k)
			assert.True(t, cur.LessThan(prev), "balance after %d payments should shrink", k)
			prev = cur
		}
	})

	t.Run("zero rate is linear", func(t *testing.T) {
		bal := loan.RemainingBalance(decimal.NewFromInt(12000), 0, 12, 3)
		assert.True(t, bal.Equal(decimal.NewFromInt(9000)), bal.String())
	})
}

func TestNextPaymentDue(t *testing.T) {
	t.Parallel()
	first := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	due, ok := loan.NextPaymentDue(first, 0, 36)
	require.True(t, ok)
	assert.Equal(t, first, due)

	due, ok = loan.NextPaymentDue(first, 5, 36)
	require.True(t, ok)
	assert.Equal(t, first.AddDate(0, 5, 0), due)

	_, ok = loan.NextPaymentDue(first, 36, 36)
	assert.False(t, ok)
}

func TestOverdue(t *testing.T) {
	t.Parallel()
	first := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("not overdue before due date", func(t *testing.T) {
		now := first.AddDate(0, 0, -1)
		assert.False(t, loan.IsOverdue(first, 0, 36, now))
		assert.Equal(t, 0, loan.DaysOverdue(first, 0, 36, now))
	})

	t.Run("overdue after due date", func(t *testing.T) {
		now := first.AddDate(0, 0, 10)
		assert.True(t, loan.IsOverdue(first, 0, 36, now))
		assert.Equal(t, 10, loan.DaysOverdue(first, 0, 36, now))
	})

	t.Run("paid off loans are never overdue", func(t *testing.T) {
		now := first.AddDate(10, 0, 0)
		assert.False(t, loan.IsOverdue(first, 36, 36, now))
	})
}

func TestProgressPercentage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, loan.ProgressPercentage(0, 36))
	assert.Equal(t, 50, loan.ProgressPercentage(18, 36))
	assert.Equal(t, 100, loan.ProgressPercentage(36, 36))
	assert.Equal(t, 100, loan.ProgressPercentage(40, 36), "clamped above the term")
	assert.Equal(t, 0, loan.ProgressPercentage(1, 0), "degenerate term")
	assert.Equal(t, 33, loan.ProgressPercentage(12, 36))
}

func TestSchedule(t *testing.T) {
	t.Parallel()
	principal := decimal.NewFromInt(25000)
	first := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	entries := loan.Schedule(principal, 0.08, 36, first)
	require.Len(t, entries, 36)

	// Principal parts sum exactly to the loan amount.
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Principal)
	}
	assert.True(t, sum.Equal(principal), sum.String())

	// Final period lands exactly on zero.
	assert.True(t, entries[35].RemainingBalance.IsZero())

	// Due dates advance one month per period.
	assert.Equal(t, first, entries[0].DueDate)
	assert.Equal(t, first.AddDate(0, 35, 0), entries[35].DueDate)

	assert.Nil(t, loan.Schedule(decimal.Zero, 0.08, 36, first))
}
