package repository

import (
	"context"
	"errors"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository on the given session.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

// Get implements repository.AccountRepository.
func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var row Account
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrAccountNotFound
		}
		return nil, err
	}
	return mapAccountToDomain(&row)
}

// GetForUpdate implements repository.AccountRepository. The row lock is
// held until the enclosing transaction commits.
func (r *accountRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.getLocked(ctx, "id = ?", id)
}

// GetByNumberForUpdate implements repository.AccountRepository.
func (r *accountRepository) GetByNumberForUpdate(ctx context.Context, number string) (*account.Account, error) {
	return r.getLocked(ctx, "number = ?", number)
}

func (r *accountRepository) getLocked(ctx context.Context, query string, arg any) (*account.Account, error) {
	var row Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrAccountNotFound
		}
		return nil, err
	}
	if !row.Active {
		return nil, account.ErrInactiveAccount
	}
	return mapAccountToDomain(&row)
}

// Create implements repository.AccountRepository.
func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	row := mapAccountToModel(a)
	return r.db.WithContext(ctx).Create(&row).Error
}

// Update implements repository.AccountRepository.
func (r *accountRepository) Update(ctx context.Context, a *account.Account) error {
	row := mapAccountToModel(a)
	res := r.db.WithContext(ctx).Model(&Account{}).Where("id = ?", a.ID).Updates(map[string]any{
		"type":    row.Type,
		"balance": row.Balance,
		"active":  row.Active,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

// AdjustBalance implements repository.AccountRepository. The WHERE
// guard makes overdrawing impossible regardless of caller checks.
func (r *accountRepository) AdjustBalance(ctx context.Context, id uuid.UUID, delta int64) error {
	res := r.db.WithContext(ctx).Model(&Account{}).
		Where("id = ? AND balance + ? >= 0", id, delta).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&Account{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return account.ErrAccountNotFound
		}
		return account.ErrInsufficientFunds
	}
	return nil
}

func mapAccountToModel(a *account.Account) Account {
	return Account{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		Number:    a.Number,
		Type:      string(a.Type),
		Balance:   a.Balance.Amount(),
		Currency:  a.Balance.Currency().String(),
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func mapAccountToDomain(row *Account) (*account.Account, error) {
	return account.New().
		WithID(row.ID).
		WithOwnerID(row.OwnerID).
		WithNumber(row.Number).
		WithType(account.Type(row.Type)).
		WithCurrency(currencyCode(row.Currency)).
		WithBalance(row.Balance).
		WithActive(row.Active).
		WithCreatedAt(row.CreatedAt).
		WithUpdatedAt(row.UpdatedAt).
		Build()
}
