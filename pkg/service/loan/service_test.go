package loan_test

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/amirasaad/ledger/internal/fixtures/memrepo"
	domainloan "github.com/amirasaad/ledger/pkg/domain/loan"
	loansvc "github.com/amirasaad/ledger/pkg/service/loan"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	log.SetOutput(io.Discard)

	os.Exit(m.Run())
}

func newService() *loansvc.Service {
	return loansvc.New(loansvc.Deps{
		Uow:    memrepo.NewUoW(memrepo.NewStore()),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func apply(t *testing.T, svc *loansvc.Service) *domainloan.Loan {
	t.Helper()
	first := time.Now().AddDate(0, 1, 0)
	l, err := svc.Apply(context.Background(), uuid.New(), decimal.NewFromInt(25000), 0.08, 36, first)
	require.NoError(t, err)
	return l
}

func TestApply(t *testing.T) {
	t.Parallel()
	svc := newService()

	l := apply(t, svc)
	assert.Equal(t, domainloan.StatusPending, l.Status)
	assert.True(t, l.MonthlyPayment.IsZero(), "payment is not frozen before approval")

	got, err := svc.Get(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)

	t.Run("invalid application", func(t *testing.T) {
		_, err := svc.Apply(context.Background(), uuid.New(), decimal.Zero, 0.08, 36, time.Now())
		assert.Error(t, err)
	})
}

func TestApprove(t *testing.T) {
	t.Parallel()
	svc := newService()
	l := apply(t, svc)
	approver := uuid.New()

	got, err := svc.Approve(context.Background(), l.ID, approver)
	require.NoError(t, err)
	assert.Equal(t, domainloan.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, approver, *got.ApprovedBy)
	assert.InDelta(t, 783.40, got.MonthlyPayment.InexactFloat64(), 0.01)

	_, err = svc.Approve(context.Background(), l.ID, approver)
	assert.ErrorIs(t, err, domainloan.ErrInvalidStatus)
}

func TestReject(t *testing.T) {
	t.Parallel()
	svc := newService()
	l := apply(t, svc)

	_, err := svc.Reject(context.Background(), l.ID, "")
	assert.ErrorIs(t, err, domainloan.ErrReasonRequired)

	got, err := svc.Reject(context.Background(), l.ID, "income not verified")
	require.NoError(t, err)
	assert.Equal(t, domainloan.StatusRejected, got.Status)
	assert.Equal(t, "income not verified", got.RejectionReason)

	_, err = svc.Activate(context.Background(), l.ID)
	assert.ErrorIs(t, err, domainloan.ErrInvalidStatus)
}

func TestPaymentLifecycle(t *testing.T) {
	t.Parallel()
	svc := newService()
	l := apply(t, svc)
	_, err := svc.Approve(context.Background(), l.ID, uuid.New())
	require.NoError(t, err)
	_, err = svc.Activate(context.Background(), l.ID)
	require.NoError(t, err)

	var got *domainloan.Loan
	for i := 1; i <= 36; i++ {
		got, err = svc.RecordPayment(context.Background(), l.ID)
		require.NoError(t, err)
		assert.Equal(t, i, got.PaymentsMade)
	}
	assert.Equal(t, domainloan.StatusPaidOff, got.Status)

	_, err = svc.RecordPayment(context.Background(), l.ID)
	assert.ErrorIs(t, err, domainloan.ErrInvalidStatus)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	svc := newService()
	l := apply(t, svc)
	_, err := svc.Approve(context.Background(), l.ID, uuid.New())
	require.NoError(t, err)
	_, err = svc.Activate(context.Background(), l.ID)
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), l.ID)
	require.NoError(t, err)

	got, snap, err := svc.Snapshot(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PaymentsMade)
	assert.InDelta(t, 783.40, snap.MonthlyPayment.InexactFloat64(), 0.01)
	assert.True(t, snap.RemainingBalance.LessThan(got.Principal))
	assert.Equal(t, 3, snap.ProgressPercentage)
	require.NotNil(t, snap.NextPaymentDue)
	assert.False(t, snap.Overdue, "second payment is not due yet")
}

func TestGetUnknown(t *testing.T) {
	t.Parallel()
	svc := newService()
	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainloan.ErrLoanNotFound)
}
