package schedule_test

import (
	"testing"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/schedule"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMonthlyOrder(t *testing.T, start time.Time) *schedule.StandingOrder {
	t.Helper()
	amount, err := money.New(500, "USD")
	require.NoError(t, err)
	order, err := schedule.New().
		WithSourceAccount(uuid.New()).
		WithDestinationAccount(uuid.New()).
		WithBeneficiary("Landlord").
		WithAmount(amount).
		WithFrequency(schedule.FrequencyMonthly).
		WithStartDate(start).
		Build()
	require.NoError(t, err)
	return order
}

func TestBuildValidation(t *testing.T) {
	t.Parallel()
	amount, err := money.New(100, "USD")
	require.NoError(t, err)
	src := uuid.New()

	t.Run("no destination", func(t *testing.T) {
		_, err := schedule.New().
			WithSourceAccount(src).
			WithAmount(amount).
			WithFrequency(schedule.FrequencyWeekly).
			Build()
		assert.ErrorIs(t, err, schedule.ErrAmbiguousDestination)
	})

	t.Run("both destinations", func(t *testing.T) {
		_, err := schedule.New().
			WithSourceAccount(src).
			WithDestinationAccount(uuid.New()).
			WithExternalAccountNumber("DE00123456").
			WithAmount(amount).
			WithFrequency(schedule.FrequencyWeekly).
			Build()
		assert.ErrorIs(t, err, schedule.ErrAmbiguousDestination)
	})

	t.Run("self order", func(t *testing.T) {
		_, err := schedule.New().
			WithSourceAccount(src).
			WithDestinationAccount(src).
			WithAmount(amount).
			WithFrequency(schedule.FrequencyWeekly).
			Build()
		assert.ErrorIs(t, err, schedule.ErrSelfOrder)
	})

	t.Run("invalid frequency", func(t *testing.T) {
		_, err := schedule.New().
			WithSourceAccount(src).
			WithDestinationAccount(uuid.New()).
			WithAmount(amount).
			WithFrequency("fortnightly").
			Build()
		assert.ErrorIs(t, err, schedule.ErrInvalidFrequency)
	})

	t.Run("end date before start date", func(t *testing.T) {
		start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		_, err := schedule.New().
			WithSourceAccount(src).
			WithDestinationAccount(uuid.New()).
			WithAmount(amount).
			WithFrequency(schedule.FrequencyMonthly).
			WithStartDate(start).
			WithEndDate(start.AddDate(0, 0, -1)).
			Build()
		assert.ErrorIs(t, err, schedule.ErrScheduleExhausted)
	})

	t.Run("zero max executions", func(t *testing.T) {
		_, err := schedule.New().
			WithSourceAccount(src).
			WithDestinationAccount(uuid.New()).
			WithAmount(amount).
			WithFrequency(schedule.FrequencyMonthly).
			WithMaxExecutions(0).
			Build()
		assert.ErrorIs(t, err, schedule.ErrScheduleExhausted)
	})

	t.Run("next execution defaults to start date", func(t *testing.T) {
		start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		order, err := schedule.New().
			WithSourceAccount(src).
			WithDestinationAccount(uuid.New()).
			WithAmount(amount).
			WithFrequency(schedule.FrequencyMonthly).
			WithStartDate(start).
			Build()
		require.NoError(t, err)
		assert.Equal(t, start, order.NextExecutionDate)
	})
}

func TestFrequencyNext(t *testing.T) {
	t.Parallel()
	base := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, base.AddDate(0, 0, 1), schedule.FrequencyDaily.Next(base))
	assert.Equal(t, base.AddDate(0, 0, 7), schedule.FrequencyWeekly.Next(base))
	assert.Equal(t, base.AddDate(0, 1, 0), schedule.FrequencyMonthly.Next(base))
	assert.Equal(t, base.AddDate(0, 3, 0), schedule.FrequencyQuarterly.Next(base))
	assert.Equal(t, base.AddDate(1, 0, 0), schedule.FrequencyYearly.Next(base))
}

func TestRecordSuccessAdvancesFromScheduledDate(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	order := newMonthlyOrder(t, start)

	// Execute three times, each pass happening "late" — the schedule
	// must advance from the scheduled date, not from now.
	for i := 1; i <= 3; i++ {
		now := order.NextExecutionDate.AddDate(0, 0, 3) // three days late
		require.True(t, order.IsDue(now))
		require.NoError(t, order.RecordSuccess(now))
		assert.Equal(t, i, order.ExecutionsCount)
		assert.Equal(t, 0, order.FailureCount)
	}
	assert.Equal(t, start.AddDate(0, 3, 0), order.NextExecutionDate)
	assert.Equal(t, schedule.ExecutionSuccess, order.LastExecutionStatus)
}

func TestRecordFailure(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	order := newMonthlyOrder(t, start)
	now := start.AddDate(0, 0, 1)

	require.NoError(t, order.RecordFailure(now, "insufficient funds"))
	assert.Equal(t, 1, order.FailureCount)
	assert.Equal(t, schedule.StatusActive, order.Status)
	// Failed executions do not advance the schedule.
	assert.Equal(t, start, order.NextExecutionDate)
	assert.Equal(t, "insufficient funds", order.LastFailureReason)

	require.NoError(t, order.RecordFailure(now, "insufficient funds"))
	require.NoError(t, order.RecordFailure(now, "insufficient funds"))
	assert.Equal(t, 3, order.FailureCount)
	assert.Equal(t, schedule.StatusPaused, order.Status)
	assert.False(t, order.IsDue(now), "paused orders are never due")
}

func TestSuccessClearsFailureStreak(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	order := newMonthlyOrder(t, start)
	now := start.AddDate(0, 0, 1)

	require.NoError(t, order.RecordFailure(now, "insufficient funds"))
	require.NoError(t, order.RecordFailure(now, "insufficient funds"))
	require.NoError(t, order.RecordSuccess(now))
	assert.Equal(t, 0, order.FailureCount)
	assert.Equal(t, schedule.StatusActive, order.Status)
}

func TestMaxExecutionsCompletesOrder(t *testing.T) {
	t.Parallel()
	amount, err := money.New(50, "USD")
	require.NoError(t, err)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	order, err := schedule.New().
		WithSourceAccount(uuid.New()).
		WithExternalAccountNumber("GB00998877").
		WithAmount(amount).
		WithFrequency(schedule.FrequencyWeekly).
		WithStartDate(start).
		WithMaxExecutions(2).
		Build()
	require.NoError(t, err)

	now := start
	require.NoError(t, order.RecordSuccess(now))
	assert.Equal(t, schedule.StatusActive, order.Status)
	require.NoError(t, order.RecordSuccess(now.AddDate(0, 0, 7)))
	assert.Equal(t, schedule.StatusCompleted, order.Status)
	assert.False(t, order.IsDue(now.AddDate(0, 0, 14)))
}

func TestEndDateCompletesOrderEvenOnFailure(t *testing.T) {
	t.Parallel()
	amount, err := money.New(50, "USD")
	require.NoError(t, err)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	order, err := schedule.New().
		WithSourceAccount(uuid.New()).
		WithDestinationAccount(uuid.New()).
		WithAmount(amount).
		WithFrequency(schedule.FrequencyWeekly).
		WithStartDate(start).
		WithEndDate(end).
		Build()
	require.NoError(t, err)

	require.NoError(t, order.RecordFailure(end.AddDate(0, 0, 1), "insufficient funds"))
	assert.Equal(t, schedule.StatusCompleted, order.Status)
}

func TestPauseResumeCancel(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("pause and resume", func(t *testing.T) {
		order := newMonthlyOrder(t, start)
		require.NoError(t, order.RecordFailure(start, "insufficient funds"))
		require.NoError(t, order.Pause())
		assert.Equal(t, schedule.StatusPaused, order.Status)
		assert.ErrorIs(t, order.Pause(), schedule.ErrOrderNotActive)

		require.NoError(t, order.Resume())
		assert.Equal(t, schedule.StatusActive, order.Status)
		assert.Equal(t, 0, order.FailureCount, "resume resets the failure streak")
	})

	t.Run("cancel is final", func(t *testing.T) {
		order := newMonthlyOrder(t, start)
		require.NoError(t, order.Cancel())
		assert.ErrorIs(t, order.Resume(), schedule.ErrOrderFinal)
		assert.ErrorIs(t, order.Cancel(), schedule.ErrOrderFinal)
		assert.ErrorIs(t, order.RecordSuccess(start), schedule.ErrOrderNotActive)
	})
}
