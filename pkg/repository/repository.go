// Package repository defines the data access contracts of the ledger
// engine. Implementations live in infra/repository.
package repository

import (
	"context"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/domain/loan"
	"github.com/amirasaad/ledger/pkg/domain/schedule"
	"github.com/google/uuid"
)

// AccountRepository defines account data access operations.
//
// GetForUpdate and GetByNumberForUpdate acquire an exclusive row lock
// held for the duration of the enclosing unit of work; they must only
// be called inside UnitOfWork.Do.
type AccountRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetByNumberForUpdate(ctx context.Context, number string) (*account.Account, error)
	Create(ctx context.Context, a *account.Account) error
	Update(ctx context.Context, a *account.Account) error

	// AdjustBalance applies a signed balance change in the smallest
	// currency unit, guarded so the balance can never go negative.
	// Returns account.ErrInsufficientFunds when the guard fires.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta int64) error
}

// TransactionRepository defines transaction log access operations.
// Transactions are append-only: records are created pending, finalized
// exactly once and never deleted.
type TransactionRepository interface {
	// Create inserts a pending transaction. Returns
	// ledger.ErrDuplicateReference when the reference already exists.
	Create(ctx context.Context, t *ledger.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*ledger.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*ledger.Transaction, error)

	// UpdateStatus transitions a transaction out of pending, writing
	// status, timestamps, failure reason and after-balance snapshots.
	// Returns ledger.ErrInvalidTransition when the stored record has
	// already left pending.
	UpdateStatus(ctx context.Context, t *ledger.Transaction) error

	// HasPending reports whether the account has pending transactions,
	// which blocks deactivation.
	HasPending(ctx context.Context, accountID uuid.UUID) (bool, error)
}

// StandingOrderRepository defines standing order access operations.
type StandingOrderRepository interface {
	Create(ctx context.Context, o *schedule.StandingOrder) error
	Get(ctx context.Context, id uuid.UUID) (*schedule.StandingOrder, error)
	Update(ctx context.Context, o *schedule.StandingOrder) error
	ListBySourceAccount(ctx context.Context, accountID uuid.UUID) ([]*schedule.StandingOrder, error)

	// ListDue returns active orders with next_execution_date <= now,
	// ordered by next_execution_date, at most limit rows.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*schedule.StandingOrder, error)
}

// LoanRepository defines loan data access operations.
type LoanRepository interface {
	Create(ctx context.Context, l *loan.Loan) error
	Get(ctx context.Context, id uuid.UUID) (*loan.Loan, error)
	Update(ctx context.Context, l *loan.Loan) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*loan.Loan, error)
}
