// Package schedule defines the StandingOrder entity: a user-authorized
// recurring transfer executed automatically on a schedule.
package schedule

import (
	"errors"
	"time"

	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
)

var (
	// ErrOrderNotFound is returned when a standing order cannot be found.
	ErrOrderNotFound = errors.New("standing order not found")

	// ErrOrderNotActive is returned when execution or pausing is
	// attempted on an order that is not active.
	ErrOrderNotActive = errors.New("standing order is not active")

	// ErrOrderNotPaused is returned when resuming an order that is not paused.
	ErrOrderNotPaused = errors.New("standing order is not paused")

	// ErrOrderFinal is returned when mutating a cancelled or completed order.
	ErrOrderFinal = errors.New("standing order is cancelled or completed")

	// ErrScheduleExhausted is returned when an order's schedule leaves no
	// executions: the end date precedes the start date, or the execution
	// cap is not positive.
	ErrScheduleExhausted = errors.New("standing order schedule exhausted")

	// ErrInvalidFrequency is returned when an unknown frequency is supplied.
	ErrInvalidFrequency = errors.New("invalid frequency")

	// ErrAmbiguousDestination is returned unless exactly one of the
	// internal destination account and the external account number is set.
	ErrAmbiguousDestination = errors.New("exactly one destination must be set")

	// ErrSelfOrder is returned when the internal destination equals the source.
	ErrSelfOrder = errors.New("standing order cannot target its own source account")
)

// maxConsecutiveFailures is the number of consecutive failed executions
// after which an order is automatically paused.
const maxConsecutiveFailures = 3

// Frequency is the recurrence interval of a standing order.
type Frequency string

// Supported frequencies.
const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Next returns the scheduled date one interval after t.
func (f Frequency) Next(t time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return t.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return t.AddDate(0, 1, 0)
	case FrequencyQuarterly:
		return t.AddDate(0, 3, 0)
	case FrequencyYearly:
		return t.AddDate(1, 0, 0)
	}
	return t
}

// Status is the lifecycle state of a standing order.
type Status string

// Standing order statuses.
const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ExecutionStatus records the outcome of the most recent execution attempt.
type ExecutionStatus string

// Execution outcomes.
const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// StandingOrder is a recurring transfer obligation.
//
// Invariants:
//   - Exactly one of DestinationAccountID and ExternalAccountNumber is set.
//   - The internal destination never equals the source account.
//   - ExecutionsCount never exceeds MaxExecutions when a cap is set.
//   - NextExecutionDate is never before StartDate.
type StandingOrder struct {
	ID                    uuid.UUID
	SourceAccountID       uuid.UUID
	DestinationAccountID  *uuid.UUID
	ExternalAccountNumber *string
	BeneficiaryName       string
	Amount                money.Money
	Frequency             Frequency
	StartDate             time.Time
	EndDate               *time.Time
	NextExecutionDate     time.Time
	MaxExecutions         *int
	ExecutionsCount       int
	Status                Status
	FailureCount          int
	LastExecutionDate     *time.Time
	LastExecutionStatus   ExecutionStatus
	LastFailureReason     string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Builder provides a fluent API for constructing StandingOrder instances.
type Builder struct {
	order StandingOrder
}

// New creates a Builder with a fresh ID, active status and a start date of today.
func New() *Builder {
	now := time.Now()
	return &Builder{order: StandingOrder{
		ID:        uuid.New(),
		Status:    StatusActive,
		StartDate: now,
		CreatedAt: now,
	}}
}

// WithID sets the order ID. Primarily for hydration from the store.
func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.order.ID = id
	return b
}

// WithSourceAccount sets the debited account. Mandatory.
func (b *Builder) WithSourceAccount(id uuid.UUID) *Builder {
	b.order.SourceAccountID = id
	return b
}

// WithDestinationAccount sets an internal destination account.
func (b *Builder) WithDestinationAccount(id uuid.UUID) *Builder {
	b.order.DestinationAccountID = &id
	return b
}

// WithExternalAccountNumber sets an external beneficiary account number.
func (b *Builder) WithExternalAccountNumber(number string) *Builder {
	b.order.ExternalAccountNumber = &number
	return b
}

// WithBeneficiary sets the beneficiary display name.
func (b *Builder) WithBeneficiary(name string) *Builder {
	b.order.BeneficiaryName = name
	return b
}

// WithAmount sets the recurring amount.
func (b *Builder) WithAmount(amount money.Money) *Builder {
	b.order.Amount = amount
	return b
}

// WithFrequency sets the recurrence interval.
func (b *Builder) WithFrequency(f Frequency) *Builder {
	b.order.Frequency = f
	return b
}

// WithStartDate sets the first scheduled date.
func (b *Builder) WithStartDate(t time.Time) *Builder {
	b.order.StartDate = t
	return b
}

// WithEndDate sets an optional end date after which the order completes.
func (b *Builder) WithEndDate(t time.Time) *Builder {
	b.order.EndDate = &t
	return b
}

// WithMaxExecutions caps the number of executions.
func (b *Builder) WithMaxExecutions(n int) *Builder {
	b.order.MaxExecutions = &n
	return b
}

// WithStatus sets the status. Primarily for hydration from the store.
func (b *Builder) WithStatus(s Status) *Builder {
	b.order.Status = s
	return b
}

// WithNextExecutionDate sets the next scheduled date. Primarily for hydration.
func (b *Builder) WithNextExecutionDate(t time.Time) *Builder {
	b.order.NextExecutionDate = t
	return b
}

// WithExecutionsCount sets the executions counter. Primarily for hydration.
func (b *Builder) WithExecutionsCount(n int) *Builder {
	b.order.ExecutionsCount = n
	return b
}

// WithFailureCount sets the consecutive failure counter. Primarily for hydration.
func (b *Builder) WithFailureCount(n int) *Builder {
	b.order.FailureCount = n
	return b
}

// Build validates all invariants and returns the StandingOrder.
func (b *Builder) Build() (*StandingOrder, error) {
	o := b.order
	if o.SourceAccountID == uuid.Nil {
		return nil, errors.New("source account is required")
	}
	hasInternal := o.DestinationAccountID != nil
	hasExternal := o.ExternalAccountNumber != nil && *o.ExternalAccountNumber != ""
	if hasInternal == hasExternal {
		return nil, ErrAmbiguousDestination
	}
	if hasInternal && *o.DestinationAccountID == o.SourceAccountID {
		return nil, ErrSelfOrder
	}
	if !o.Amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}
	if !o.Frequency.Valid() {
		return nil, ErrInvalidFrequency
	}
	if o.EndDate != nil && o.EndDate.Before(o.StartDate) {
		return nil, ErrScheduleExhausted
	}
	if o.MaxExecutions != nil && *o.MaxExecutions <= 0 {
		return nil, ErrScheduleExhausted
	}
	if o.NextExecutionDate.IsZero() {
		o.NextExecutionDate = o.StartDate
	}
	if o.NextExecutionDate.Before(o.StartDate) {
		return nil, errors.New("next execution date cannot precede start date")
	}
	if o.MaxExecutions != nil && o.ExecutionsCount > *o.MaxExecutions {
		return nil, errors.New("executions count exceeds maximum")
	}
	return &o, nil
}

// IsDue reports whether the order should be executed at the given time.
func (o *StandingOrder) IsDue(now time.Time) bool {
	return o.Status == StatusActive && !o.NextExecutionDate.After(now)
}

// RecordSuccess applies the bookkeeping for a successful execution:
// the executions counter is incremented, the failure streak cleared and
// the next execution date advanced by one interval from the previous
// scheduled date (not from now, to avoid drift). The order may
// auto-complete if the schedule is exhausted afterwards.
func (o *StandingOrder) RecordSuccess(now time.Time) error {
	if o.Status != StatusActive {
		return ErrOrderNotActive
	}
	o.ExecutionsCount++
	o.FailureCount = 0
	o.LastExecutionStatus = ExecutionSuccess
	o.LastFailureReason = ""
	o.LastExecutionDate = &now
	o.NextExecutionDate = o.Frequency.Next(o.NextExecutionDate)
	o.UpdatedAt = now
	o.refreshLifecycle(now)
	return nil
}

// RecordFailure applies the bookkeeping for a failed execution: the
// failure streak is incremented and the next execution date left
// untouched so the order is retried on the next scheduler pass. Three
// consecutive failures pause the order.
func (o *StandingOrder) RecordFailure(now time.Time, reason string) error {
	if o.Status != StatusActive {
		return ErrOrderNotActive
	}
	o.FailureCount++
	o.LastExecutionStatus = ExecutionFailed
	o.LastFailureReason = reason
	o.LastExecutionDate = &now
	o.UpdatedAt = now
	if o.FailureCount >= maxConsecutiveFailures {
		o.Status = StatusPaused
	}
	o.refreshLifecycle(now)
	return nil
}

// refreshLifecycle applies the auto-transition rule checked after every
// execution attempt: a passed end date or a reached execution cap
// completes the order regardless of the attempt's outcome.
func (o *StandingOrder) refreshLifecycle(now time.Time) {
	if o.Status == StatusCancelled || o.Status == StatusCompleted {
		return
	}
	if o.EndDate != nil && o.EndDate.Before(now) {
		o.Status = StatusCompleted
		return
	}
	if o.MaxExecutions != nil && o.ExecutionsCount >= *o.MaxExecutions {
		o.Status = StatusCompleted
	}
}

// Pause suspends an active order.
func (o *StandingOrder) Pause() error {
	if o.Status == StatusCancelled || o.Status == StatusCompleted {
		return ErrOrderFinal
	}
	if o.Status != StatusActive {
		return ErrOrderNotActive
	}
	o.Status = StatusPaused
	o.UpdatedAt = time.Now()
	return nil
}

// Resume reactivates a paused order. The consecutive failure streak is
// reset: resuming signals the failure cause has been addressed.
func (o *StandingOrder) Resume() error {
	if o.Status == StatusCancelled || o.Status == StatusCompleted {
		return ErrOrderFinal
	}
	if o.Status != StatusPaused {
		return ErrOrderNotPaused
	}
	o.Status = StatusActive
	o.FailureCount = 0
	o.UpdatedAt = time.Now()
	return nil
}

// Cancel terminates the order permanently.
func (o *StandingOrder) Cancel() error {
	if o.Status == StatusCancelled || o.Status == StatusCompleted {
		return ErrOrderFinal
	}
	o.Status = StatusCancelled
	o.UpdatedAt = time.Now()
	return nil
}
