// Package account defines the Account aggregate and its invariants.
package account

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/ledger/pkg/currency"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound is returned when an account cannot be found.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInactiveAccount is returned when an operation targets a deactivated account.
	ErrInactiveAccount = errors.New("account is inactive")

	// ErrInsufficientFunds is returned when an account cannot cover a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer is returned when a transfer targets its own source account.
	ErrSelfTransfer = errors.New("cannot transfer to the same account")

	// ErrCurrencyMismatch is returned when a movement's currency differs
	// from the account currency.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrBalanceNotZero is returned when deactivating an account that still holds funds.
	ErrBalanceNotZero = errors.New("account balance must be zero")

	// ErrPendingTransactions is returned when deactivating an account
	// that still has pending transactions.
	ErrPendingTransactions = errors.New("account has pending transactions")

	// ErrInvalidAccountType is returned when an unknown account type is supplied.
	ErrInvalidAccountType = errors.New("invalid account type")
)

// Type classifies an account.
type Type string

// Account types.
const (
	TypeChecking Type = "checking"
	TypeSavings  Type = "savings"
	TypeBusiness Type = "business"
)

// Valid reports whether t is a known account type.
func (t Type) Valid() bool {
	switch t {
	case TypeChecking, TypeSavings, TypeBusiness:
		return true
	}
	return false
}

// Account is the aggregate for a customer's balance.
//
// Invariants:
//   - An account always has an owner and a human-legible account number.
//   - The balance is a Money value and never goes negative.
//   - Balance mutation happens only through the ledger service's atomic unit.
type Account struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Number    string
	Type      Type
	Balance   money.Money
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewNumber generates a human-legible account number. Uniqueness is
// enforced by the store; the caller retries on collision.
func NewNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ACC-%s", strings.ToUpper(raw[:12]))
}

// Builder provides a fluent API for constructing Account instances.
type Builder struct {
	id        uuid.UUID
	ownerID   uuid.UUID
	number    string
	accType   Type
	balance   int64
	currency  currency.Code
	active    bool
	createdAt time.Time
	updatedAt time.Time
}

// New creates a Builder with sensible defaults: fresh ID and number,
// checking type, default currency, active, zero balance.
func New() *Builder {
	return &Builder{
		id:        uuid.New(),
		number:    NewNumber(),
		accType:   TypeChecking,
		currency:  currency.DefaultCurrency,
		active:    true,
		createdAt: time.Now(),
	}
}

// WithID sets the ID for the account being built.
func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

// WithOwnerID sets the owning user. Mandatory.
func (b *Builder) WithOwnerID(ownerID uuid.UUID) *Builder {
	b.ownerID = ownerID
	return b
}

// WithNumber overrides the generated account number. This is primarily
// for hydrating an existing account from the store.
func (b *Builder) WithNumber(number string) *Builder {
	b.number = number
	return b
}

// WithType sets the account type.
func (b *Builder) WithType(t Type) *Builder {
	b.accType = t
	return b
}

// WithCurrency sets the account currency.
func (b *Builder) WithCurrency(code currency.Code) *Builder {
	b.currency = code
	return b
}

// WithBalance sets the balance in the smallest currency unit. Only for
// hydration from the store or test setup.
func (b *Builder) WithBalance(balance int64) *Builder {
	b.balance = balance
	return b
}

// WithActive sets the active flag. Only for hydration from the store.
func (b *Builder) WithActive(active bool) *Builder {
	b.active = active
	return b
}

// WithCreatedAt sets the creation timestamp. Only for hydration.
func (b *Builder) WithCreatedAt(t time.Time) *Builder {
	b.createdAt = t
	return b
}

// WithUpdatedAt sets the last-updated timestamp. Only for hydration.
func (b *Builder) WithUpdatedAt(t time.Time) *Builder {
	b.updatedAt = t
	return b
}

// Build validates all invariants and returns the Account.
func (b *Builder) Build() (*Account, error) {
	if !currency.IsValidFormat(string(b.currency)) {
		return nil, money.ErrInvalidCurrency
	}
	if !currency.IsSupported(b.currency) {
		return nil, currency.ErrUnsupportedCurrency
	}
	if b.ownerID == uuid.Nil {
		return nil, errors.New("ownerID is required")
	}
	if !b.accType.Valid() {
		return nil, ErrInvalidAccountType
	}
	if b.number == "" {
		return nil, errors.New("account number is required")
	}
	bal, err := money.NewFromSmallestUnit(b.balance, b.currency)
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:        b.id,
		OwnerID:   b.ownerID,
		Number:    b.number,
		Type:      b.accType,
		Balance:   bal,
		Active:    b.active,
		CreatedAt: b.createdAt,
		UpdatedAt: b.updatedAt,
	}, nil
}

// Currency returns the account currency.
func (a *Account) Currency() currency.Code {
	return a.Balance.Currency()
}

// ValidateDebit checks that amount can be debited from the account:
// the account is active, currencies match, and the balance covers it.
func (a *Account) ValidateDebit(amount money.Money) error {
	if !a.Active {
		return ErrInactiveAccount
	}
	if !a.Balance.IsSameCurrency(amount) {
		return ErrCurrencyMismatch
	}
	enough, err := a.Balance.GreaterThanOrEqual(amount)
	if err != nil {
		return err
	}
	if !enough {
		return ErrInsufficientFunds
	}
	return nil
}

// ValidateCredit checks that amount can be credited to the account.
func (a *Account) ValidateCredit(amount money.Money) error {
	if !a.Active {
		return ErrInactiveAccount
	}
	if !a.Balance.IsSameCurrency(amount) {
		return ErrCurrencyMismatch
	}
	return nil
}

// Deactivate soft-deactivates the account. The balance must be zero;
// the caller is responsible for verifying there are no pending
// transactions before committing. Accounts are never deleted.
func (a *Account) Deactivate() error {
	if !a.Active {
		return ErrInactiveAccount
	}
	if !a.Balance.IsZero() {
		return ErrBalanceNotZero
	}
	a.Active = false
	a.UpdatedAt = time.Now()
	return nil
}
