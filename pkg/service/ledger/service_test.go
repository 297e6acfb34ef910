package ledger_test

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/amirasaad/ledger/internal/fixtures/memrepo"
	"github.com/amirasaad/ledger/pkg/currency"
	domainaccount "github.com/amirasaad/ledger/pkg/domain/account"
	domainledger "github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/notification"
	"github.com/amirasaad/ledger/pkg/repository"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	log.SetOutput(io.Discard)

	os.Exit(m.Run())
}

type fixture struct {
	store    *memrepo.Store
	notifier *notification.MemoryNotifier
	svc      *ledgersvc.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memrepo.NewStore()
	notifier := notification.NewMemoryNotifier()
	svc := ledgersvc.New(ledgersvc.Deps{
		Uow:      memrepo.NewUoW(store),
		Notifier: notifier,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &fixture{store: store, notifier: notifier, svc: svc}
}

func (f *fixture) seedAccount(t *testing.T, ownerID uuid.UUID, balance int64) *domainaccount.Account {
	t.Helper()
	acc, err := domainaccount.New().
		WithOwnerID(ownerID).
		WithCurrency(currency.USD).
		WithBalance(balance).
		Build()
	require.NoError(t, err)
	f.store.SeedAccount(acc)
	return acc
}

func usd(t *testing.T, amount float64) money.Money {
	t.Helper()
	m, err := money.New(amount, currency.USD)
	require.NoError(t, err)
	return m
}

func TestTransfer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	src := f.seedAccount(t, uuid.New(), 10000) // 100.00
	dest := f.seedAccount(t, uuid.New(), 2500) // 25.00

	entry, err := f.svc.Transfer(context.Background(), src.ID, dest.Number, usd(t, 40), "rent")
	require.NoError(t, err)

	assert.Equal(t, domainledger.StatusCompleted, entry.Status)
	assert.Equal(t, domainledger.TypeExternalTransfer, entry.Type)
	assert.NotEmpty(t, entry.Reference)

	// Balance snapshots: before - amount = after, symmetrically.
	require.NotNil(t, entry.SourceBalanceBefore)
	require.NotNil(t, entry.SourceBalanceAfter)
	assert.Equal(t, int64(10000), *entry.SourceBalanceBefore)
	assert.Equal(t, int64(6000), *entry.SourceBalanceAfter)
	assert.Equal(t, int64(2500), *entry.DestinationBalanceBefore)
	assert.Equal(t, int64(6500), *entry.DestinationBalanceAfter)

	// Conservation: the sum of both balances is unchanged.
	srcAfter := f.store.Account(src.ID)
	destAfter := f.store.Account(dest.ID)
	assert.Equal(t, int64(6000), srcAfter.Balance.Amount())
	assert.Equal(t, int64(6500), destAfter.Balance.Amount())
	assert.Equal(t, int64(12500), srcAfter.Balance.Amount()+destAfter.Balance.Amount())
}

func TestTransferInternalClassification(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	owner := uuid.New()
	src := f.seedAccount(t, owner, 10000)
	dest := f.seedAccount(t, owner, 0)

	entry, err := f.svc.Transfer(context.Background(), src.ID, dest.Number, usd(t, 10), "")
	require.NoError(t, err)
	assert.Equal(t, domainledger.TypeInternalTransfer, entry.Type)
}

func TestTransferInsufficientFundsLeavesBalancesUnchanged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	src := f.seedAccount(t, uuid.New(), 10000) // 100.00
	dest := f.seedAccount(t, uuid.New(), 0)

	_, err := f.svc.Transfer(context.Background(), src.ID, dest.Number, usd(t, 150), "")
	assert.ErrorIs(t, err, domainaccount.ErrInsufficientFunds)

	assert.Equal(t, int64(10000), f.store.Account(src.ID).Balance.Amount())
	assert.Equal(t, int64(0), f.store.Account(dest.ID).Balance.Amount())
	assert.Empty(t, f.notifier.BalanceEvents(), "no notifications for rejected transfers")
}

func TestTransferValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	src := f.seedAccount(t, uuid.New(), 10000)

	t.Run("invalid amount", func(t *testing.T) {
		_, err := f.svc.Transfer(context.Background(), src.ID, "ACC-UNKNOWN", money.Zero(currency.USD), "")
		assert.ErrorIs(t, err, domainledger.ErrInvalidAmount)
	})

	t.Run("unknown destination", func(t *testing.T) {
		_, err := f.svc.Transfer(context.Background(), src.ID, "ACC-DOESNOTEXIST", usd(t, 10), "")
		assert.ErrorIs(t, err, domainaccount.ErrAccountNotFound)
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := f.svc.Transfer(context.Background(), uuid.New(), src.Number, usd(t, 10), "")
		assert.ErrorIs(t, err, domainaccount.ErrAccountNotFound)
	})

	t.Run("self transfer", func(t *testing.T) {
		_, err := f.svc.Transfer(context.Background(), src.ID, src.Number, usd(t, 10), "")
		assert.ErrorIs(t, err, domainaccount.ErrSelfTransfer)
	})

	t.Run("currency mismatch", func(t *testing.T) {
		eur, err := money.New(10, currency.EUR)
		require.NoError(t, err)
		_, err = f.svc.Transfer(context.Background(), src.ID, "ACC-UNKNOWN", eur, "")
		assert.ErrorIs(t, err, domainaccount.ErrCurrencyMismatch)
	})

	t.Run("inactive destination", func(t *testing.T) {
		inactive, err := domainaccount.New().
			WithOwnerID(uuid.New()).
			WithCurrency(currency.USD).
			WithActive(false).
			Build()
		require.NoError(t, err)
		f.store.SeedAccount(inactive)
		_, err = f.svc.Transfer(context.Background(), src.ID, inactive.Number, usd(t, 10), "")
		assert.ErrorIs(t, err, domainaccount.ErrInactiveAccount)
	})
}

func TestDepositAndWithdraw(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	acc := f.seedAccount(t, uuid.New(), 0)

	dep, err := f.svc.Deposit(context.Background(), acc.ID, usd(t, 200), "payroll")
	require.NoError(t, err)
	assert.Equal(t, domainledger.TypeDeposit, dep.Type)
	assert.Equal(t, int64(20000), f.store.Account(acc.ID).Balance.Amount())

	wd, err := f.svc.Withdraw(context.Background(), acc.ID, usd(t, 75.50), "atm")
	require.NoError(t, err)
	assert.Equal(t, domainledger.TypeWithdrawal, wd.Type)
	assert.Equal(t, int64(12450), f.store.Account(acc.ID).Balance.Amount())
	require.NotNil(t, wd.SourceBalanceAfter)
	assert.Equal(t, int64(12450), *wd.SourceBalanceAfter)
}

func TestWithdrawInsufficientFundsRecordsFailedTransaction(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	acc := f.seedAccount(t, uuid.New(), 5000)

	_, err := f.svc.Withdraw(context.Background(), acc.ID, usd(t, 100), "atm")
	assert.ErrorIs(t, err, domainaccount.ErrInsufficientFunds)
	assert.Equal(t, int64(5000), f.store.Account(acc.ID).Balance.Amount())

	txs := f.store.Transactions()
	require.Len(t, txs, 1, "the rejection is recorded for audit")
	assert.Equal(t, domainledger.TypeWithdrawal, txs[0].Type)
	assert.Equal(t, domainledger.StatusFailed, txs[0].Status)
	assert.Equal(t, "insufficient funds", txs[0].FailureReason)
}

func TestPayInsufficientFundsRecordsFailedPayment(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	acc := f.seedAccount(t, uuid.New(), 1000) // 10.00

	_, err := f.svc.Pay(context.Background(), acc.ID, usd(t, 500), "standing order rent")
	assert.ErrorIs(t, err, domainaccount.ErrInsufficientFunds)
	assert.Equal(t, int64(1000), f.store.Account(acc.ID).Balance.Amount())

	// The audit row records the operation that was rejected, not a
	// generic withdrawal.
	txs := f.store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, domainledger.TypePayment, txs[0].Type)
	assert.Equal(t, domainledger.StatusFailed, txs[0].Status)
	assert.Equal(t, "insufficient funds", txs[0].FailureReason)
}

func TestNotificationsExactlyOncePerCommittedChange(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	src := f.seedAccount(t, uuid.New(), 10000)
	dest := f.seedAccount(t, uuid.New(), 0)

	entry, err := f.svc.Transfer(context.Background(), src.ID, dest.Number, usd(t, 10), "")
	require.NoError(t, err)

	balances := f.notifier.BalanceEvents()
	require.Len(t, balances, 2, "one balance notification per affected account")
	assert.Equal(t, src.ID, balances[0].AccountID)
	assert.Equal(t, int64(9000), balances[0].NewBalance.Amount())
	assert.Equal(t, dest.ID, balances[1].AccountID)
	assert.Equal(t, int64(1000), balances[1].NewBalance.Amount())

	created := f.notifier.TransactionEvents()
	require.Len(t, created, 2, "one transaction notification per affected owner")

	statuses := f.notifier.StatusEvents()
	require.Len(t, statuses, 1)
	assert.Equal(t, entry.ID, statuses[0].TransactionID)
	assert.Equal(t, domainledger.StatusCompleted, statuses[0].Status)
}

func TestNotificationsDedupedForSharedOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	owner := uuid.New()
	src := f.seedAccount(t, owner, 10000)
	dest := f.seedAccount(t, owner, 0)

	_, err := f.svc.Transfer(context.Background(), src.ID, dest.Number, usd(t, 10), "")
	require.NoError(t, err)
	assert.Len(t, f.notifier.TransactionEvents(), 1, "shared owner is notified once")
}

func TestCancel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	acc := f.seedAccount(t, uuid.New(), 10000)

	t.Run("completed transactions are not cancellable", func(t *testing.T) {
		entry, err := f.svc.Deposit(context.Background(), acc.ID, usd(t, 10), "")
		require.NoError(t, err)
		_, err = f.svc.Cancel(context.Background(), entry.ID)
		assert.ErrorIs(t, err, domainledger.ErrInvalidTransition)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := f.svc.Cancel(context.Background(), uuid.New())
		assert.ErrorIs(t, err, domainledger.ErrTransactionNotFound)
	})
}

func TestDeactivateAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	t.Run("zero balance deactivates", func(t *testing.T) {
		acc := f.seedAccount(t, uuid.New(), 0)
		require.NoError(t, f.svc.DeactivateAccount(context.Background(), acc.ID))
		assert.False(t, f.store.Account(acc.ID).Active)
	})

	t.Run("non-zero balance is rejected", func(t *testing.T) {
		acc := f.seedAccount(t, uuid.New(), 100)
		err := f.svc.DeactivateAccount(context.Background(), acc.ID)
		assert.ErrorIs(t, err, domainaccount.ErrBalanceNotZero)
		assert.True(t, f.store.Account(acc.ID).Active)
	})
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	owner := uuid.New()

	acc, err := f.svc.CreateAccount(context.Background(), owner, domainaccount.TypeSavings, currency.EUR)
	require.NoError(t, err)
	assert.Equal(t, domainaccount.TypeSavings, acc.Type)
	assert.Equal(t, currency.EUR, acc.Currency())
	assert.True(t, acc.Balance.IsZero())
	require.NotNil(t, f.store.Account(acc.ID))
}

// collidingUoW wraps a UnitOfWork and makes the transaction repository
// report reference collisions: every Create fails with
// ErrDuplicateReference while collisions is non-zero (negative means
// always). References offered to Create are recorded in refs.
type collidingUoW struct {
	repository.UnitOfWork
	collisions int
	refs       []string
}

func (u *collidingUoW) Do(ctx context.Context, fn func(repository.UnitOfWork) error) error {
	return u.UnitOfWork.Do(ctx, func(inner repository.UnitOfWork) error {
		return fn(&collidingSession{UnitOfWork: inner, parent: u})
	})
}

type collidingSession struct {
	repository.UnitOfWork
	parent *collidingUoW
}

func (s *collidingSession) Transactions() repository.TransactionRepository {
	return &collidingTxRepo{TransactionRepository: s.UnitOfWork.Transactions(), parent: s.parent}
}

type collidingTxRepo struct {
	repository.TransactionRepository
	parent *collidingUoW
}

func (r *collidingTxRepo) Create(ctx context.Context, tx *domainledger.Transaction) error {
	r.parent.refs = append(r.parent.refs, tx.Reference)
	if r.parent.collisions != 0 {
		if r.parent.collisions > 0 {
			r.parent.collisions--
		}
		return domainledger.ErrDuplicateReference
	}
	return r.TransactionRepository.Create(ctx, tx)
}

func TestReferenceCollisionRetry(t *testing.T) {
	t.Parallel()

	t.Run("a collision is retried with a fresh reference", func(t *testing.T) {
		store := memrepo.NewStore()
		uow := &collidingUoW{UnitOfWork: memrepo.NewUoW(store), collisions: 1}
		svc := ledgersvc.New(ledgersvc.Deps{
			Uow:    uow,
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		acc, err := domainaccount.New().WithOwnerID(uuid.New()).Build()
		require.NoError(t, err)
		store.SeedAccount(acc)

		entry, err := svc.Deposit(context.Background(), acc.ID, usd(t, 10), "")
		require.NoError(t, err)
		require.Len(t, uow.refs, 2)
		assert.NotEqual(t, uow.refs[0], uow.refs[1], "the colliding reference is regenerated")
		assert.Equal(t, uow.refs[1], entry.Reference)
	})

	t.Run("exhaustion surfaces the duplicate reference error", func(t *testing.T) {
		store := memrepo.NewStore()
		uow := &collidingUoW{UnitOfWork: memrepo.NewUoW(store), collisions: -1}
		svc := ledgersvc.New(ledgersvc.Deps{
			Uow:    uow,
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		acc, err := domainaccount.New().WithOwnerID(uuid.New()).Build()
		require.NoError(t, err)
		store.SeedAccount(acc)

		_, err = svc.Deposit(context.Background(), acc.ID, usd(t, 10), "")
		assert.ErrorIs(t, err, domainledger.ErrDuplicateReference)
		assert.Len(t, uow.refs, 10, "the retry loop is bounded")
		assert.Empty(t, store.Transactions(), "nothing persists on exhaustion")
		assert.Equal(t, int64(0), store.Account(acc.ID).Balance.Amount())
	})
}

// TestConcurrentTransfersNeverOverdraw drives N concurrent transfers
// whose total exceeds the source balance and asserts exactly enough
// succeed to exhaust the balance, with the remainder rejected.
func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	src := f.seedAccount(t, uuid.New(), 10000) // 100.00
	dest := f.seedAccount(t, uuid.New(), 0)

	const workers = 10
	amount := usd(t, 30) // 10 x 30.00 = 300.00 requested, 100.00 available

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Transfer(context.Background(), src.ID, dest.Number, amount, "drain")
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		default:
			require.ErrorIs(t, err, domainaccount.ErrInsufficientFunds)
			rejected++
		}
	}
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, rejected)
	assert.Equal(t, int64(1000), f.store.Account(src.ID).Balance.Amount())
	assert.Equal(t, int64(9000), f.store.Account(dest.ID).Balance.Amount())
}
