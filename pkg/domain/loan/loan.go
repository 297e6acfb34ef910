// Package loan defines the Loan entity and the pure amortization
// calculator used to derive payment figures from it.
package loan

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrLoanNotFound is returned when a loan cannot be found.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrInvalidStatus is returned when a lifecycle transition is not
	// allowed from the loan's current status.
	ErrInvalidStatus = errors.New("invalid loan status transition")

	// ErrApproverRequired is returned when approving without an approver reference.
	ErrApproverRequired = errors.New("approver is required")

	// ErrReasonRequired is returned when rejecting without a reason.
	ErrReasonRequired = errors.New("rejection reason is required")

	// ErrTermExceeded is returned when recording a payment past the loan term.
	ErrTermExceeded = errors.New("all scheduled payments already made")
)

// Status is the lifecycle state of a loan.
type Status string

// Loan statuses.
const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusActive    Status = "active"
	StatusPaidOff   Status = "paid_off"
	StatusDefaulted Status = "defaulted"
)

// Loan is an amortizing loan obligation.
//
// Invariants:
//   - PaymentsMade never exceeds TermMonths.
//   - Approved loans carry an approver reference; rejected loans a reason.
//   - MonthlyPayment is computed once at approval and frozen; remaining
//     balance and overdue status are always derived, never stored.
type Loan struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	Principal        decimal.Decimal
	AnnualRate       float64 // annual interest rate as a decimal fraction, e.g. 0.08
	TermMonths       int
	PaymentsMade     int
	MonthlyPayment   decimal.Decimal // frozen at approval
	FirstPaymentDate time.Time
	Status           Status
	ApprovedBy       *uuid.UUID
	RejectionReason  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewApplication creates a pending loan application.
func NewApplication(
	ownerID uuid.UUID,
	principal decimal.Decimal,
	annualRate float64,
	termMonths int,
	firstPaymentDate time.Time,
) (*Loan, error) {
	if ownerID == uuid.Nil {
		return nil, errors.New("ownerID is required")
	}
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("principal must be positive")
	}
	if annualRate < 0 {
		return nil, errors.New("annual rate cannot be negative")
	}
	if termMonths <= 0 {
		return nil, errors.New("term must be positive")
	}
	return &Loan{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Principal:        principal,
		AnnualRate:       annualRate,
		TermMonths:       termMonths,
		FirstPaymentDate: firstPaymentDate,
		Status:           StatusPending,
		CreatedAt:        time.Now(),
	}, nil
}

// Approve transitions a pending loan to approved, recording the approver
// and freezing the monthly payment.
func (l *Loan) Approve(approver uuid.UUID) error {
	if l.Status != StatusPending {
		return ErrInvalidStatus
	}
	if approver == uuid.Nil {
		return ErrApproverRequired
	}
	l.Status = StatusApproved
	l.ApprovedBy = &approver
	l.MonthlyPayment = MonthlyPayment(l.Principal, l.AnnualRate, l.TermMonths)
	l.UpdatedAt = time.Now()
	return nil
}

// Reject transitions a pending loan to rejected with a reason.
func (l *Loan) Reject(reason string) error {
	if l.Status != StatusPending {
		return ErrInvalidStatus
	}
	if reason == "" {
		return ErrReasonRequired
	}
	l.Status = StatusRejected
	l.RejectionReason = reason
	l.UpdatedAt = time.Now()
	return nil
}

// Activate transitions an approved loan to active, i.e. disbursed.
func (l *Loan) Activate() error {
	if l.Status != StatusApproved {
		return ErrInvalidStatus
	}
	l.Status = StatusActive
	l.UpdatedAt = time.Now()
	return nil
}

// RecordPayment increments the payments counter. Reaching the full term
// transitions the loan to paid off.
func (l *Loan) RecordPayment() error {
	if l.Status != StatusActive {
		return ErrInvalidStatus
	}
	if l.PaymentsMade >= l.TermMonths {
		return ErrTermExceeded
	}
	l.PaymentsMade++
	if l.PaymentsMade >= l.TermMonths {
		l.Status = StatusPaidOff
	}
	l.UpdatedAt = time.Now()
	return nil
}

// Snapshot holds derived loan figures, recomputed on demand.
type Snapshot struct {
	MonthlyPayment     decimal.Decimal
	TotalInterest      decimal.Decimal
	RemainingBalance   decimal.Decimal
	NextPaymentDue     *time.Time
	Overdue            bool
	DaysOverdue        int
	ProgressPercentage int
}

// SnapshotAt derives the loan's payment figures as of now.
func (l *Loan) SnapshotAt(now time.Time) Snapshot {
	s := Snapshot{
		MonthlyPayment:     MonthlyPayment(l.Principal, l.AnnualRate, l.TermMonths),
		TotalInterest:      TotalInterest(l.Principal, l.AnnualRate, l.TermMonths),
		RemainingBalance:   RemainingBalance(l.Principal, l.AnnualRate, l.TermMonths, l.PaymentsMade),
		ProgressPercentage: ProgressPercentage(l.PaymentsMade, l.TermMonths),
	}
	if !l.MonthlyPayment.IsZero() {
		s.MonthlyPayment = l.MonthlyPayment // frozen at approval
	}
	if due, ok := NextPaymentDue(l.FirstPaymentDate, l.PaymentsMade, l.TermMonths); ok {
		s.NextPaymentDue = &due
		s.Overdue = IsOverdue(l.FirstPaymentDate, l.PaymentsMade, l.TermMonths, now)
		s.DaysOverdue = DaysOverdue(l.FirstPaymentDate, l.PaymentsMade, l.TermMonths, now)
	}
	return s
}
