// Package memrepo provides in-memory repository and UnitOfWork
// implementations for tests. Do serializes atomic units with a single
// lock, mirroring the exclusive row locking the real store performs,
// and restores a snapshot on error so rollback semantics hold.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/domain/loan"
	"github.com/amirasaad/ledger/pkg/domain/schedule"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
)

// Store holds all entities behind the in-memory repositories.
type Store struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]*account.Account
	byNumber     map[string]uuid.UUID
	transactions map[uuid.UUID]*ledger.Transaction
	byReference  map[string]uuid.UUID
	orders       map[uuid.UUID]*schedule.StandingOrder
	loans        map[uuid.UUID]*loan.Loan
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[uuid.UUID]*account.Account),
		byNumber:     make(map[string]uuid.UUID),
		transactions: make(map[uuid.UUID]*ledger.Transaction),
		byReference:  make(map[string]uuid.UUID),
		orders:       make(map[uuid.UUID]*schedule.StandingOrder),
		loans:        make(map[uuid.UUID]*loan.Loan),
	}
}

// SeedAccount inserts an account outside any unit of work.
func (s *Store) SeedAccount(a *account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cloneAccount(a)
	s.accounts[c.ID] = c
	s.byNumber[c.Number] = c.ID
}

// SeedOrder inserts a standing order outside any unit of work.
func (s *Store) SeedOrder(o *schedule.StandingOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = cloneOrder(o)
}

// Account returns a copy of the stored account, for assertions.
func (s *Store) Account(id uuid.UUID) *account.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil
	}
	return cloneAccount(a)
}

// Order returns a copy of the stored standing order, for assertions.
func (s *Store) Order(id uuid.UUID) *schedule.StandingOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil
	}
	return cloneOrder(o)
}

// Transactions returns copies of all stored transactions, for assertions.
func (s *Store) Transactions() []*ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ledger.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		out = append(out, cloneTransaction(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type snapshot struct {
	accounts     map[uuid.UUID]*account.Account
	byNumber     map[string]uuid.UUID
	transactions map[uuid.UUID]*ledger.Transaction
	byReference  map[string]uuid.UUID
	orders       map[uuid.UUID]*schedule.StandingOrder
	loans        map[uuid.UUID]*loan.Loan
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		accounts:     make(map[uuid.UUID]*account.Account, len(s.accounts)),
		byNumber:     make(map[string]uuid.UUID, len(s.byNumber)),
		transactions: make(map[uuid.UUID]*ledger.Transaction, len(s.transactions)),
		byReference:  make(map[string]uuid.UUID, len(s.byReference)),
		orders:       make(map[uuid.UUID]*schedule.StandingOrder, len(s.orders)),
		loans:        make(map[uuid.UUID]*loan.Loan, len(s.loans)),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = cloneAccount(v)
	}
	for k, v := range s.byNumber {
		snap.byNumber[k] = v
	}
	for k, v := range s.transactions {
		snap.transactions[k] = cloneTransaction(v)
	}
	for k, v := range s.byReference {
		snap.byReference[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = cloneOrder(v)
	}
	for k, v := range s.loans {
		snap.loans[k] = cloneLoan(v)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.byNumber = snap.byNumber
	s.transactions = snap.transactions
	s.byReference = snap.byReference
	s.orders = snap.orders
	s.loans = snap.loans
}

// UoW is the in-memory UnitOfWork.
type UoW struct {
	store *Store
	inTx  bool
}

// NewUoW creates a UnitOfWork over the given store.
func NewUoW(store *Store) *UoW {
	return &UoW{store: store}
}

// Do implements repository.UnitOfWork. The store lock is held for the
// duration of fn; on error the pre-transaction snapshot is restored.
func (u *UoW) Do(_ context.Context, fn func(uow repository.UnitOfWork) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	snap := u.store.snapshot()
	txn := &UoW{store: u.store, inTx: true}
	if err := fn(txn); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

// Accounts implements repository.UnitOfWork.
func (u *UoW) Accounts() repository.AccountRepository { return &accountRepo{u.store} }

// Transactions implements repository.UnitOfWork.
func (u *UoW) Transactions() repository.TransactionRepository { return &transactionRepo{u.store} }

// StandingOrders implements repository.UnitOfWork.
func (u *UoW) StandingOrders() repository.StandingOrderRepository { return &orderRepo{u.store} }

// Loans implements repository.UnitOfWork.
func (u *UoW) Loans() repository.LoanRepository { return &loanRepo{u.store} }

type accountRepo struct{ store *Store }

func (r *accountRepo) Get(_ context.Context, id uuid.UUID) (*account.Account, error) {
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *accountRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	if !a.Active {
		return nil, account.ErrInactiveAccount
	}
	return cloneAccount(a), nil
}

func (r *accountRepo) GetByNumberForUpdate(ctx context.Context, number string) (*account.Account, error) {
	id, ok := r.store.byNumber[number]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return r.GetForUpdate(ctx, id)
}

func (r *accountRepo) Create(_ context.Context, a *account.Account) error {
	c := cloneAccount(a)
	r.store.accounts[c.ID] = c
	r.store.byNumber[c.Number] = c.ID
	return nil
}

func (r *accountRepo) Update(_ context.Context, a *account.Account) error {
	if _, ok := r.store.accounts[a.ID]; !ok {
		return account.ErrAccountNotFound
	}
	r.store.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (r *accountRepo) AdjustBalance(_ context.Context, id uuid.UUID, delta int64) error {
	a, ok := r.store.accounts[id]
	if !ok {
		return account.ErrAccountNotFound
	}
	next := a.Balance.Amount() + delta
	if next < 0 {
		return account.ErrInsufficientFunds
	}
	bal, err := money.NewFromSmallestUnit(next, a.Balance.Currency())
	if err != nil {
		return err
	}
	a.Balance = bal
	a.UpdatedAt = time.Now()
	return nil
}

type transactionRepo struct{ store *Store }

func (r *transactionRepo) Create(_ context.Context, t *ledger.Transaction) error {
	if _, exists := r.store.byReference[t.Reference]; exists {
		return ledger.ErrDuplicateReference
	}
	c := cloneTransaction(t)
	r.store.transactions[c.ID] = c
	r.store.byReference[c.Reference] = c.ID
	return nil
}

func (r *transactionRepo) Get(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	t, ok := r.store.transactions[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	return cloneTransaction(t), nil
}

func (r *transactionRepo) GetByReference(_ context.Context, reference string) (*ledger.Transaction, error) {
	id, ok := r.store.byReference[reference]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	return cloneTransaction(r.store.transactions[id]), nil
}

func (r *transactionRepo) ListByAccount(_ context.Context, accountID uuid.UUID, limit int) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction
	for _, t := range r.store.transactions {
		if (t.SourceAccountID != nil && *t.SourceAccountID == accountID) ||
			(t.DestinationAccountID != nil && *t.DestinationAccountID == accountID) {
			out = append(out, cloneTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *transactionRepo) UpdateStatus(_ context.Context, t *ledger.Transaction) error {
	stored, ok := r.store.transactions[t.ID]
	if !ok {
		return ledger.ErrTransactionNotFound
	}
	if stored.Status != ledger.StatusPending {
		return ledger.ErrInvalidTransition
	}
	r.store.transactions[t.ID] = cloneTransaction(t)
	return nil
}

func (r *transactionRepo) HasPending(_ context.Context, accountID uuid.UUID) (bool, error) {
	for _, t := range r.store.transactions {
		if t.Status != ledger.StatusPending {
			continue
		}
		if (t.SourceAccountID != nil && *t.SourceAccountID == accountID) ||
			(t.DestinationAccountID != nil && *t.DestinationAccountID == accountID) {
			return true, nil
		}
	}
	return false, nil
}

type orderRepo struct{ store *Store }

func (r *orderRepo) Create(_ context.Context, o *schedule.StandingOrder) error {
	r.store.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *orderRepo) Get(_ context.Context, id uuid.UUID) (*schedule.StandingOrder, error) {
	o, ok := r.store.orders[id]
	if !ok {
		return nil, schedule.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *orderRepo) Update(_ context.Context, o *schedule.StandingOrder) error {
	if _, ok := r.store.orders[o.ID]; !ok {
		return schedule.ErrOrderNotFound
	}
	r.store.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *orderRepo) ListBySourceAccount(_ context.Context, accountID uuid.UUID) ([]*schedule.StandingOrder, error) {
	var out []*schedule.StandingOrder
	for _, o := range r.store.orders {
		if o.SourceAccountID == accountID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *orderRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*schedule.StandingOrder, error) {
	var out []*schedule.StandingOrder
	for _, o := range r.store.orders {
		if o.IsDue(now) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextExecutionDate.Before(out[j].NextExecutionDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type loanRepo struct{ store *Store }

func (r *loanRepo) Create(_ context.Context, l *loan.Loan) error {
	r.store.loans[l.ID] = cloneLoan(l)
	return nil
}

func (r *loanRepo) Get(_ context.Context, id uuid.UUID) (*loan.Loan, error) {
	l, ok := r.store.loans[id]
	if !ok {
		return nil, loan.ErrLoanNotFound
	}
	return cloneLoan(l), nil
}

func (r *loanRepo) Update(_ context.Context, l *loan.Loan) error {
	if _, ok := r.store.loans[l.ID]; !ok {
		return loan.ErrLoanNotFound
	}
	r.store.loans[l.ID] = cloneLoan(l)
	return nil
}

func (r *loanRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*loan.Loan, error) {
	var out []*loan.Loan
	for _, l := range r.store.loans {
		if l.OwnerID == ownerID {
			out = append(out, cloneLoan(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneAccount(a *account.Account) *account.Account {
	c := *a
	return &c
}

func cloneTransaction(t *ledger.Transaction) *ledger.Transaction {
	c := *t
	c.SourceAccountID = cloneUUIDPtr(t.SourceAccountID)
	c.DestinationAccountID = cloneUUIDPtr(t.DestinationAccountID)
	c.SourceBalanceBefore = cloneInt64Ptr(t.SourceBalanceBefore)
	c.SourceBalanceAfter = cloneInt64Ptr(t.SourceBalanceAfter)
	c.DestinationBalanceBefore = cloneInt64Ptr(t.DestinationBalanceBefore)
	c.DestinationBalanceAfter = cloneInt64Ptr(t.DestinationBalanceAfter)
	c.CompletedAt = cloneTimePtr(t.CompletedAt)
	c.FailedAt = cloneTimePtr(t.FailedAt)
	return &c
}

func cloneOrder(o *schedule.StandingOrder) *schedule.StandingOrder {
	c := *o
	c.DestinationAccountID = cloneUUIDPtr(o.DestinationAccountID)
	if o.ExternalAccountNumber != nil {
		n := *o.ExternalAccountNumber
		c.ExternalAccountNumber = &n
	}
	if o.MaxExecutions != nil {
		m := *o.MaxExecutions
		c.MaxExecutions = &m
	}
	c.EndDate = cloneTimePtr(o.EndDate)
	c.LastExecutionDate = cloneTimePtr(o.LastExecutionDate)
	return &c
}

func cloneLoan(l *loan.Loan) *loan.Loan {
	c := *l
	c.ApprovedBy = cloneUUIDPtr(l.ApprovedBy)
	return &c
}

func cloneUUIDPtr(p *uuid.UUID) *uuid.UUID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
