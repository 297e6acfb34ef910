package repository

import "context"

// UnitOfWork is the transaction boundary of the ledger engine: every
// store operation performed through the repositories it hands out
// commits or rolls back as a single indivisible step.
//
// Repository accessors are part of UnitOfWork so that all repositories
// share the same DB session. Row locks taken via GetForUpdate are held
// until Do returns, which is what makes the check-then-act sequence of
// the transfer orchestrator safe under concurrency.
type UnitOfWork interface {
	// Do executes fn within a transaction boundary. The UnitOfWork
	// passed to fn is bound to that transaction; if fn returns an
	// error the transaction is rolled back in its entirety.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	// Accounts returns the account repository bound to the current session.
	Accounts() AccountRepository

	// Transactions returns the transaction repository bound to the current session.
	Transactions() TransactionRepository

	// StandingOrders returns the standing order repository bound to the current session.
	StandingOrders() StandingOrderRepository

	// Loans returns the loan repository bound to the current session.
	Loans() LoanRepository
}
