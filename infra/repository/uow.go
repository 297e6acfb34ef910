package repository

import (
	"context"

	"github.com/amirasaad/ledger/pkg/repository"
	"gorm.io/gorm"
)

// UoW provides the transaction boundary and repository access in one
// abstraction. All repositories obtained from a UoW inside Do share the
// same database transaction, so row locks taken by one repository hold
// for the others until commit.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do implements repository.UnitOfWork. It runs fn inside a database
// transaction; any error rolls the whole unit back.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx})
	})
}

func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

// Accounts implements repository.UnitOfWork.
func (u *UoW) Accounts() repository.AccountRepository {
	return NewAccountRepository(u.session())
}

// Transactions implements repository.UnitOfWork.
func (u *UoW) Transactions() repository.TransactionRepository {
	return NewTransactionRepository(u.session())
}

// StandingOrders implements repository.UnitOfWork.
func (u *UoW) StandingOrders() repository.StandingOrderRepository {
	return NewStandingOrderRepository(u.session())
}

// Loans implements repository.UnitOfWork.
func (u *UoW) Loans() repository.LoanRepository {
	return NewLoanRepository(u.session())
}
