// Package ledger implements the transfer orchestrator: the single
// atomic entry point for all money movement. Every operation runs as
// one unit of work against the store — all of its reads, writes and
// balance adjustments succeed together or none take effect.
package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/currency"
	domainaccount "github.com/amirasaad/ledger/pkg/domain/account"
	domainledger "github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/notification"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
)

// maxReferenceAttempts bounds the defensive uniqueness retry loop for
// transaction reference generation.
const maxReferenceAttempts = 10

// Deps carries the orchestrator's collaborators.
type Deps struct {
	Uow      repository.UnitOfWork
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// Service is the transfer orchestrator. It is safe for concurrent use;
// the store's row locking serializes operations on the same account.
type Service struct {
	uow      repository.UnitOfWork
	notifier notification.Notifier
	logger   *slog.Logger
}

// New creates a Service with the provided dependencies.
func New(deps Deps) *Service {
	if deps.Notifier == nil {
		deps.Notifier = notification.NoopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		uow:      deps.Uow,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
}

// CreateAccount opens a new account with a zero balance.
func (s *Service) CreateAccount(
	ctx context.Context,
	ownerID uuid.UUID,
	accountType domainaccount.Type,
	currencyCode currency.Code,
) (a *domainaccount.Account, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		a, err = domainaccount.New().
			WithOwnerID(ownerID).
			WithType(accountType).
			WithCurrency(currencyCode).
			Build()
		if err != nil {
			return err
		}
		return uow.Accounts().Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account created", "accountID", a.ID, "number", a.Number, "type", a.Type)
	return a, nil
}

// GetAccount returns the account by ID.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (a *domainaccount.Account, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		a, err = uow.Accounts().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeactivateAccount soft-deactivates an account. The balance must be
// zero and no pending transactions may reference it. Accounts are
// never deleted.
func (s *Service) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		a, err := uow.Accounts().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		pending, err := uow.Transactions().HasPending(ctx, id)
		if err != nil {
			return err
		}
		if pending {
			return domainaccount.ErrPendingTransactions
		}
		if err := a.Deactivate(); err != nil {
			return err
		}
		return uow.Accounts().Update(ctx, a)
	})
	if err != nil {
		return err
	}
	s.logger.Info("account deactivated", "accountID", id)
	return nil
}

// Transfer atomically moves amount from the source account to the
// account identified by toAccountNumber, recording a completed
// transaction with before/after balance snapshots. On any failure the
// unit of work rolls back in its entirety: no partial balance change is
// ever observable.
func (s *Service) Transfer(
	ctx context.Context,
	fromAccountID uuid.UUID,
	toAccountNumber string,
	amount money.Money,
	description string,
) (*domainledger.Transaction, error) {
	logger := s.logger.With(
		"op", "transfer",
		"fromAccountID", fromAccountID,
		"toAccountNumber", toAccountNumber,
	)
	return s.transfer(ctx, logger, fromAccountID, amount, description,
		func(uow repository.UnitOfWork) (*domainaccount.Account, error) {
			return uow.Accounts().GetByNumberForUpdate(ctx, toAccountNumber)
		})
}

// TransferToAccount is Transfer with the destination addressed by
// account ID rather than number. Used by the standing order scheduler
// for internal destinations.
func (s *Service) TransferToAccount(
	ctx context.Context,
	fromAccountID, toAccountID uuid.UUID,
	amount money.Money,
	description string,
) (*domainledger.Transaction, error) {
	logger := s.logger.With(
		"op", "transfer",
		"fromAccountID", fromAccountID,
		"toAccountID", toAccountID,
	)
	return s.transfer(ctx, logger, fromAccountID, amount, description,
		func(uow repository.UnitOfWork) (*domainaccount.Account, error) {
			return uow.Accounts().GetForUpdate(ctx, toAccountID)
		})
}

// transfer implements the shared atomic transfer path. The funds check
// and the debit happen inside the same unit of work as the row lock,
// so two concurrent transfers from one account can never both pass the
// check against a stale balance.
func (s *Service) transfer(
	ctx context.Context,
	logger *slog.Logger,
	fromAccountID uuid.UUID,
	amount money.Money,
	description string,
	resolveDest func(uow repository.UnitOfWork) (*domainaccount.Account, error),
) (*domainledger.Transaction, error) {
	if !amount.IsPositive() {
		return nil, domainledger.ErrInvalidAmount
	}

	var (
		entry     *domainledger.Transaction
		src, dest *domainaccount.Account
	)
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts := uow.Accounts()

		var err error
		if src, err = accounts.GetForUpdate(ctx, fromAccountID); err != nil {
			return err
		}
		if err = src.ValidateDebit(amount); err != nil {
			return err
		}
		if dest, err = resolveDest(uow); err != nil {
			return err
		}
		if src.ID == dest.ID {
			return domainaccount.ErrSelfTransfer
		}
		if err = dest.ValidateCredit(amount); err != nil {
			return err
		}

		if entry, err = domainledger.NewTransfer(src, dest, amount, description); err != nil {
			return err
		}
		if err = s.createWithUniqueReference(ctx, uow.Transactions(), entry); err != nil {
			return err
		}

		if err = accounts.AdjustBalance(ctx, src.ID, -amount.Amount()); err != nil {
			return err
		}
		if err = accounts.AdjustBalance(ctx, dest.ID, amount.Amount()); err != nil {
			return err
		}

		srcAfter := src.Balance.Amount() - amount.Amount()
		destAfter := dest.Balance.Amount() + amount.Amount()
		entry.SourceBalanceAfter = &srcAfter
		entry.DestinationBalanceAfter = &destAfter
		if err = entry.Complete(); err != nil {
			return err
		}
		return uow.Transactions().UpdateStatus(ctx, entry)
	})
	if err != nil {
		logger.Warn("transfer rejected", "error", err)
		return nil, err
	}

	logger.Info("transfer completed", "reference", entry.Reference, "type", entry.Type)
	s.notifyCommitted(ctx, entry, src, dest)
	return entry, nil
}

// Deposit atomically credits an account and records the transaction.
func (s *Service) Deposit(
	ctx context.Context,
	accountID uuid.UUID,
	amount money.Money,
	description string,
) (*domainledger.Transaction, error) {
	logger := s.logger.With("op", "deposit", "accountID", accountID)
	if !amount.IsPositive() {
		return nil, domainledger.ErrInvalidAmount
	}

	var (
		entry *domainledger.Transaction
		dest  *domainaccount.Account
	)
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		if dest, err = uow.Accounts().GetForUpdate(ctx, accountID); err != nil {
			return err
		}
		if err = dest.ValidateCredit(amount); err != nil {
			return err
		}
		if entry, err = domainledger.NewDeposit(dest, amount, description); err != nil {
			return err
		}
		if err = s.createWithUniqueReference(ctx, uow.Transactions(), entry); err != nil {
			return err
		}
		if err = uow.Accounts().AdjustBalance(ctx, dest.ID, amount.Amount()); err != nil {
			return err
		}
		after := dest.Balance.Amount() + amount.Amount()
		entry.DestinationBalanceAfter = &after
		if err = entry.Complete(); err != nil {
			return err
		}
		return uow.Transactions().UpdateStatus(ctx, entry)
	})
	if err != nil {
		logger.Warn("deposit rejected", "error", err)
		return nil, err
	}

	logger.Info("deposit completed", "reference", entry.Reference)
	s.notifyCommitted(ctx, entry, nil, dest)
	return entry, nil
}

// Withdraw atomically debits an account and records the transaction.
func (s *Service) Withdraw(
	ctx context.Context,
	accountID uuid.UUID,
	amount money.Money,
	description string,
) (*domainledger.Transaction, error) {
	return s.debit(ctx, accountID, amount, description, domainledger.NewWithdrawal)
}

// Pay atomically debits an account towards an external beneficiary,
// e.g. an outbound standing order. Only the source side of the ledger
// is touched.
func (s *Service) Pay(
	ctx context.Context,
	accountID uuid.UUID,
	amount money.Money,
	description string,
) (*domainledger.Transaction, error) {
	return s.debit(ctx, accountID, amount, description, domainledger.NewPayment)
}

func (s *Service) debit(
	ctx context.Context,
	accountID uuid.UUID,
	amount money.Money,
	description string,
	newEntry func(*domainaccount.Account, money.Money, string) (*domainledger.Transaction, error),
) (*domainledger.Transaction, error) {
	logger := s.logger.With("op", "debit", "accountID", accountID)
	if !amount.IsPositive() {
		return nil, domainledger.ErrInvalidAmount
	}

	var (
		entry *domainledger.Transaction
		src   *domainaccount.Account
	)
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		if src, err = uow.Accounts().GetForUpdate(ctx, accountID); err != nil {
			return err
		}
		if err = src.ValidateDebit(amount); err != nil {
			return err
		}
		if entry, err = newEntry(src, amount, description); err != nil {
			return err
		}
		if err = s.createWithUniqueReference(ctx, uow.Transactions(), entry); err != nil {
			return err
		}
		if err = uow.Accounts().AdjustBalance(ctx, src.ID, -amount.Amount()); err != nil {
			return err
		}
		after := src.Balance.Amount() - amount.Amount()
		entry.SourceBalanceAfter = &after
		if err = entry.Complete(); err != nil {
			return err
		}
		return uow.Transactions().UpdateStatus(ctx, entry)
	})
	if err != nil {
		logger.Warn("debit rejected", "error", err)
		if errors.Is(err, domainaccount.ErrInsufficientFunds) && src != nil {
			s.recordFailedDebit(ctx, logger, src, amount, description, newEntry, err)
		}
		return nil, err
	}

	logger.Info("debit completed", "reference", entry.Reference, "type", entry.Type)
	s.notifyCommitted(ctx, entry, src, nil)
	return entry, nil
}

// recordFailedDebit persists a failed transaction row for audit after
// the rejecting unit of work has rolled back. Best effort: a store
// failure here is logged, not surfaced.
func (s *Service) recordFailedDebit(
	ctx context.Context,
	logger *slog.Logger,
	src *domainaccount.Account,
	amount money.Money,
	description string,
	newEntry func(*domainaccount.Account, money.Money, string) (*domainledger.Transaction, error),
	cause error,
) {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		entry, err := newEntry(src, amount, description)
		if err != nil {
			return err
		}
		if err := entry.Fail(cause.Error()); err != nil {
			return err
		}
		return s.createWithUniqueReference(ctx, uow.Transactions(), entry)
	})
	if err != nil {
		logger.Error("failed to record rejected debit", "error", err)
	}
}

// Cancel transitions a pending transaction to cancelled with no balance
// effect. Transactions completed by the orchestrator itself are never
// cancellable; this exists for records left pending by other flows.
func (s *Service) Cancel(ctx context.Context, transactionID uuid.UUID) (*domainledger.Transaction, error) {
	var entry *domainledger.Transaction
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		if entry, err = uow.Transactions().Get(ctx, transactionID); err != nil {
			return err
		}
		if err = entry.Cancel(); err != nil {
			return err
		}
		return uow.Transactions().UpdateStatus(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("transaction cancelled", "transactionID", transactionID)
	s.notifier.TransactionStatusChanged(ctx, entry.ID, entry.Status)
	return entry, nil
}

// GetTransaction returns a transaction by ID.
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (t *domainledger.Transaction, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		t, err = uow.Transactions().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTransactions returns the most recent transactions touching an account.
func (s *Service) ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) (ts []*domainledger.Transaction, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		ts, err = uow.Transactions().ListByAccount(ctx, accountID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// createWithUniqueReference inserts the transaction, regenerating the
// reference on collision. Collisions should never happen; the loop is
// defensive and bounded.
func (s *Service) createWithUniqueReference(
	ctx context.Context,
	repo repository.TransactionRepository,
	entry *domainledger.Transaction,
) error {
	var err error
	for range maxReferenceAttempts {
		if err = repo.Create(ctx, entry); !errors.Is(err, domainledger.ErrDuplicateReference) {
			return err
		}
		entry.RegenerateReference()
	}
	return err
}

// notifyCommitted announces a committed transaction: one balance
// notification per affected account, one transaction notification per
// affected owner and one status notification for the transition.
func (s *Service) notifyCommitted(
	ctx context.Context,
	entry *domainledger.Transaction,
	src, dest *domainaccount.Account,
) {
	if src != nil && entry.SourceBalanceAfter != nil {
		if bal, err := money.NewFromSmallestUnit(*entry.SourceBalanceAfter, src.Currency()); err == nil {
			s.notifier.BalanceChanged(ctx, src.ID, bal)
		}
	}
	if dest != nil && entry.DestinationBalanceAfter != nil {
		if bal, err := money.NewFromSmallestUnit(*entry.DestinationBalanceAfter, dest.Currency()); err == nil {
			s.notifier.BalanceChanged(ctx, dest.ID, bal)
		}
	}
	notified := map[uuid.UUID]bool{}
	for _, a := range []*domainaccount.Account{src, dest} {
		if a == nil || notified[a.OwnerID] {
			continue
		}
		notified[a.OwnerID] = true
		s.notifier.TransactionCreated(ctx, a.OwnerID, entry)
	}
	s.notifier.TransactionStatusChanged(ctx, entry.ID, entry.Status)
}
