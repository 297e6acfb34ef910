package repository

import (
	"context"
	"errors"

	"github.com/amirasaad/ledger/pkg/currency"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a transaction repository on the given session.
func NewTransactionRepository(db *gorm.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

// Create implements repository.TransactionRepository. The unique index
// on reference turns a collision into ledger.ErrDuplicateReference.
func (r *transactionRepository) Create(ctx context.Context, t *ledger.Transaction) error {
	row := mapTransactionToModel(t)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ledger.ErrDuplicateReference
		}
		return err
	}
	return nil
}

// Get implements repository.TransactionRepository.
func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByReference implements repository.TransactionRepository.
func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*ledger.Transaction, error) {
	return r.first(ctx, "reference = ?", reference)
}

func (r *transactionRepository) first(ctx context.Context, query string, arg any) (*ledger.Transaction, error) {
	var row Transaction
	if err := r.db.WithContext(ctx).First(&row, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrTransactionNotFound
		}
		return nil, err
	}
	return mapTransactionToDomain(&row)
}

// ListByAccount implements repository.TransactionRepository.
func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*ledger.Transaction, error) {
	q := r.db.WithContext(ctx).
		Where("source_account_id = ? OR destination_account_id = ?", accountID, accountID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Transaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*ledger.Transaction, 0, len(rows))
	for i := range rows {
		t, err := mapTransactionToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// UpdateStatus implements repository.TransactionRepository. The WHERE
// guard on the stored status makes finalization a compare-and-swap:
// the transition is applied at most once no matter how many callers race.
func (r *transactionRepository) UpdateStatus(ctx context.Context, t *ledger.Transaction) error {
	row := mapTransactionToModel(t)
	res := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("id = ? AND status = ?", t.ID, string(ledger.StatusPending)).
		Updates(map[string]any{
			"status":                    row.Status,
			"source_balance_after":      row.SourceBalanceAfter,
			"destination_balance_after": row.DestinationBalanceAfter,
			"failure_reason":            row.FailureReason,
			"completed_at":              row.CompletedAt,
			"failed_at":                 row.FailedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&Transaction{}).Where("id = ?", t.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ledger.ErrTransactionNotFound
		}
		return ledger.ErrInvalidTransition
	}
	return nil
}

// HasPending implements repository.TransactionRepository.
func (r *transactionRepository) HasPending(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("(source_account_id = ? OR destination_account_id = ?) AND status = ?",
			accountID, accountID, string(ledger.StatusPending)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func mapTransactionToModel(t *ledger.Transaction) Transaction {
	return Transaction{
		ID:                       t.ID,
		Reference:                t.Reference,
		SourceAccountID:          t.SourceAccountID,
		DestinationAccountID:     t.DestinationAccountID,
		Amount:                   t.Amount.Amount(),
		Currency:                 t.Amount.Currency().String(),
		Type:                     string(t.Type),
		Status:                   string(t.Status),
		Description:              t.Description,
		SourceBalanceBefore:      t.SourceBalanceBefore,
		SourceBalanceAfter:       t.SourceBalanceAfter,
		DestinationBalanceBefore: t.DestinationBalanceBefore,
		DestinationBalanceAfter:  t.DestinationBalanceAfter,
		FailureReason:            t.FailureReason,
		CreatedAt:                t.CreatedAt,
		CompletedAt:              t.CompletedAt,
		FailedAt:                 t.FailedAt,
	}
}

func mapTransactionToDomain(row *Transaction) (*ledger.Transaction, error) {
	amount, err := money.NewFromSmallestUnit(row.Amount, currencyCode(row.Currency))
	if err != nil {
		return nil, err
	}
	return &ledger.Transaction{
		ID:                       row.ID,
		Reference:                row.Reference,
		SourceAccountID:          row.SourceAccountID,
		DestinationAccountID:     row.DestinationAccountID,
		Amount:                   amount,
		Type:                     ledger.Type(row.Type),
		Status:                   ledger.Status(row.Status),
		Description:              row.Description,
		SourceBalanceBefore:      row.SourceBalanceBefore,
		SourceBalanceAfter:       row.SourceBalanceAfter,
		DestinationBalanceBefore: row.DestinationBalanceBefore,
		DestinationBalanceAfter:  row.DestinationBalanceAfter,
		FailureReason:            row.FailureReason,
		CreatedAt:                row.CreatedAt,
		CompletedAt:              row.CompletedAt,
		FailedAt:                 row.FailedAt,
	}, nil
}

// currencyCode normalizes a stored currency column, falling back to
// the default for legacy empty values.
func currencyCode(stored string) currency.Code {
	if stored == "" {
		return currency.DefaultCurrency
	}
	return currency.Code(stored)
}
