// Package ledger defines the Transaction entity: the immutable record of
// every money movement, with a strict status lifecycle.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
)

var (
	// ErrInvalidAmount is returned when a transaction amount is not positive.
	ErrInvalidAmount = errors.New("transaction amount must be positive")

	// ErrInvalidTransition is returned when a status change is attempted
	// on a transaction that has already left pending.
	ErrInvalidTransition = errors.New("invalid transaction status transition")

	// ErrDuplicateReference is returned when a transaction reference
	// already exists in the store.
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrMissingSource is returned when a debit-side transaction lacks a source account.
	ErrMissingSource = errors.New("source account is required")

	// ErrMissingDestination is returned when a credit-side transaction lacks a destination account.
	ErrMissingDestination = errors.New("destination account is required")

	// ErrTransactionNotFound is returned when a transaction cannot be found.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Type classifies a transaction.
type Type string

// Transaction types.
const (
	TypeDeposit          Type = "deposit"
	TypeWithdrawal       Type = "withdrawal"
	TypeInternalTransfer Type = "internal_transfer"
	TypeExternalTransfer Type = "external_transfer"
	TypePayment          Type = "payment"
	TypeFee              Type = "fee"
)

// Status is the lifecycle state of a transaction.
type Status string

// Transaction statuses. The only legal transitions are
// pending -> completed, pending -> failed and pending -> cancelled.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// NewReference generates a globally unique, human-legible transaction
// reference. Uniqueness is enforced by the store; the creating service
// retries generation on collision.
func NewReference() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("TXN-%s-%s", time.Now().UTC().Format("20060102"), raw[:10])
}

// Transaction is a single entry in the append-only transaction log.
//
// Invariants:
//   - The reference is generated once and never reused.
//   - Amount is positive; direction is carried by the account fields.
//   - Once completed, failed or cancelled the record is immutable.
//   - Records are never physically deleted.
type Transaction struct {
	ID                   uuid.UUID
	Reference            string
	SourceAccountID      *uuid.UUID
	DestinationAccountID *uuid.UUID
	Amount               money.Money
	Type                 Type
	Status               Status
	Description          string

	// Balance snapshots in the smallest currency unit, for audit.
	SourceBalanceBefore      *int64
	SourceBalanceAfter       *int64
	DestinationBalanceBefore *int64
	DestinationBalanceAfter  *int64

	FailureReason string
	CreatedAt     time.Time
	CompletedAt   *time.Time
	FailedAt      *time.Time
}

func newTransaction(txType Type, amount money.Money, description string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return &Transaction{
		ID:          uuid.New(),
		Reference:   NewReference(),
		Amount:      amount,
		Type:        txType,
		Status:      StatusPending,
		Description: description,
		CreatedAt:   time.Now(),
	}, nil
}

// NewDeposit creates a pending deposit crediting dest, with the
// destination balance-before snapshot captured from the locked account.
func NewDeposit(dest *account.Account, amount money.Money, description string) (*Transaction, error) {
	if dest == nil {
		return nil, ErrMissingDestination
	}
	t, err := newTransaction(TypeDeposit, amount, description)
	if err != nil {
		return nil, err
	}
	t.DestinationAccountID = &dest.ID
	before := dest.Balance.Amount()
	t.DestinationBalanceBefore = &before
	return t, nil
}

// NewWithdrawal creates a pending withdrawal debiting src.
func NewWithdrawal(src *account.Account, amount money.Money, description string) (*Transaction, error) {
	if src == nil {
		return nil, ErrMissingSource
	}
	t, err := newTransaction(TypeWithdrawal, amount, description)
	if err != nil {
		return nil, err
	}
	t.SourceAccountID = &src.ID
	before := src.Balance.Amount()
	t.SourceBalanceBefore = &before
	return t, nil
}

// NewPayment creates a pending payment debiting src towards an external
// beneficiary, e.g. an outbound standing order. Only the source side of
// the ledger is touched.
func NewPayment(src *account.Account, amount money.Money, description string) (*Transaction, error) {
	if src == nil {
		return nil, ErrMissingSource
	}
	t, err := newTransaction(TypePayment, amount, description)
	if err != nil {
		return nil, err
	}
	t.SourceAccountID = &src.ID
	before := src.Balance.Amount()
	t.SourceBalanceBefore = &before
	return t, nil
}

// NewTransfer creates a pending transfer between two distinct accounts.
// The transfer is classified internal when both accounts share an owner,
// external otherwise.
func NewTransfer(src, dest *account.Account, amount money.Money, description string) (*Transaction, error) {
	if src == nil {
		return nil, ErrMissingSource
	}
	if dest == nil {
		return nil, ErrMissingDestination
	}
	if src.ID == dest.ID {
		return nil, account.ErrSelfTransfer
	}
	txType := TypeExternalTransfer
	if src.OwnerID == dest.OwnerID {
		txType = TypeInternalTransfer
	}
	t, err := newTransaction(txType, amount, description)
	if err != nil {
		return nil, err
	}
	t.SourceAccountID = &src.ID
	t.DestinationAccountID = &dest.ID
	srcBefore := src.Balance.Amount()
	destBefore := dest.Balance.Amount()
	t.SourceBalanceBefore = &srcBefore
	t.DestinationBalanceBefore = &destBefore
	return t, nil
}

// RegenerateReference assigns a fresh reference. Used by the defensive
// uniqueness retry loop when the store reports a collision.
func (t *Transaction) RegenerateReference() {
	t.Reference = NewReference()
}

// Complete transitions the transaction to completed, stamping the
// completion time. The after-balance snapshot fields must already be set
// by the enclosing atomic unit.
func (t *Transaction) Complete() error {
	if t.Status != StatusPending {
		return ErrInvalidTransition
	}
	now := time.Now()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	return nil
}

// Fail transitions the transaction to failed with a reason.
func (t *Transaction) Fail(reason string) error {
	if t.Status != StatusPending {
		return ErrInvalidTransition
	}
	now := time.Now()
	t.Status = StatusFailed
	t.FailedAt = &now
	t.FailureReason = reason
	return nil
}

// Cancel transitions the transaction to cancelled. Only pending
// transactions are cancellable; there is no balance effect.
func (t *Transaction) Cancel() error {
	if t.Status != StatusPending {
		return ErrInvalidTransition
	}
	t.Status = StatusCancelled
	return nil
}

// IsFinal reports whether the transaction has left pending.
func (t *Transaction) IsFinal() bool {
	return t.Status != StatusPending
}
