package loan_test

import (
	"testing"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/loan"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApplication(t *testing.T) *loan.Loan {
	t.Helper()
	l, err := loan.NewApplication(
		uuid.New(),
		decimal.NewFromInt(25000),
		0.08,
		36,
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return l
}

func TestNewApplication(t *testing.T) {
	t.Parallel()
	l := newApplication(t)
	assert.Equal(t, loan.StatusPending, l.Status)
	assert.True(t, l.MonthlyPayment.IsZero(), "payment is frozen only at approval")

	_, err := loan.NewApplication(uuid.Nil, decimal.NewFromInt(100), 0.05, 12, time.Now())
	assert.Error(t, err)
	_, err = loan.NewApplication(uuid.New(), decimal.Zero, 0.05, 12, time.Now())
	assert.Error(t, err)
	_, err = loan.NewApplication(uuid.New(), decimal.NewFromInt(100), -0.01, 12, time.Now())
	assert.Error(t, err)
	_, err = loan.NewApplication(uuid.New(), decimal.NewFromInt(100), 0.05, 0, time.Now())
	assert.Error(t, err)
}

func TestApprove(t *testing.T) {
	t.Parallel()
	l := newApplication(t)
	approver := uuid.New()

	require.NoError(t, l.Approve(approver))
	assert.Equal(t, loan.StatusApproved, l.Status)
	require.NotNil(t, l.ApprovedBy)
	assert.Equal(t, approver, *l.ApprovedBy)
	assert.InDelta(t, 783.40, l.MonthlyPayment.InexactFloat64(), 0.01)

	assert.ErrorIs(t, l.Approve(approver), loan.ErrInvalidStatus)
}

func TestApproveRequiresApprover(t *testing.T) {
	t.Parallel()
	l := newApplication(t)
	assert.ErrorIs(t, l.Approve(uuid.Nil), loan.ErrApproverRequired)
	assert.Equal(t, loan.StatusPending, l.Status)
}

func TestReject(t *testing.T) {
	t.Parallel()
	l := newApplication(t)

	assert.ErrorIs(t, l.Reject(""), loan.ErrReasonRequired)
	require.NoError(t, l.Reject("income not verified"))
	assert.Equal(t, loan.StatusRejected, l.Status)
	assert.Equal(t, "income not verified", l.RejectionReason)

	assert.ErrorIs(t, l.Approve(uuid.New()), loan.ErrInvalidStatus)
}

func TestRecordPayment(t *testing.T) {
	t.Parallel()
	l, err := loan.NewApplication(
		uuid.New(), decimal.NewFromInt(1200), 0, 3, time.Now())
	require.NoError(t, err)
	require.NoError(t, l.Approve(uuid.New()))

	assert.ErrorIs(t, l.RecordPayment(), loan.ErrInvalidStatus, "must be active first")
	require.NoError(t, l.Activate())

	require.NoError(t, l.RecordPayment())
	require.NoError(t, l.RecordPayment())
	assert.Equal(t, loan.StatusActive, l.Status)
	require.NoError(t, l.RecordPayment())
	assert.Equal(t, 3, l.PaymentsMade)
	assert.Equal(t, loan.StatusPaidOff, l.Status)

	assert.ErrorIs(t, l.RecordPayment(), loan.ErrInvalidStatus)
}

func TestSnapshotAt(t *testing.T) {
	t.Parallel()
	l := newApplication(t)
	require.NoError(t, l.Approve(uuid.New()))

	now := l.FirstPaymentDate.AddDate(0, 0, 5)
	snap := l.SnapshotAt(now)
	assert.True(t, snap.RemainingBalance.Equal(l.Principal), "no payments made yet")
	assert.True(t, snap.MonthlyPayment.Equal(l.MonthlyPayment), "uses the frozen payment")
	require.NotNil(t, snap.NextPaymentDue)
	assert.Equal(t, l.FirstPaymentDate, *snap.NextPaymentDue)
	assert.True(t, snap.Overdue)
	assert.Equal(t, 5, snap.DaysOverdue)
	assert.Equal(t, 0, snap.ProgressPercentage)
}
