package repository

import (
	"context"
	"errors"

	domainloan "github.com/amirasaad/ledger/pkg/domain/loan"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a loan repository on the given session.
func NewLoanRepository(db *gorm.DB) repository.LoanRepository {
	return &loanRepository{db: db}
}

// Create implements repository.LoanRepository.
func (r *loanRepository) Create(ctx context.Context, l *domainloan.Loan) error {
	row := mapLoanToModel(l)
	return r.db.WithContext(ctx).Create(&row).Error
}

// Get implements repository.LoanRepository.
func (r *loanRepository) Get(ctx context.Context, id uuid.UUID) (*domainloan.Loan, error) {
	var row Loan
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainloan.ErrLoanNotFound
		}
		return nil, err
	}
	return mapLoanToDomain(&row), nil
}

// Update implements repository.LoanRepository.
func (r *loanRepository) Update(ctx context.Context, l *domainloan.Loan) error {
	row := mapLoanToModel(l)
	res := r.db.WithContext(ctx).Model(&Loan{}).Where("id = ?", l.ID).Updates(map[string]any{
		"payments_made":    row.PaymentsMade,
		"monthly_payment":  row.MonthlyPayment,
		"status":           row.Status,
		"approved_by":      row.ApprovedBy,
		"rejection_reason": row.RejectionReason,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainloan.ErrLoanNotFound
	}
	return nil
}

// ListByOwner implements repository.LoanRepository.
func (r *loanRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domainloan.Loan, error) {
	var rows []Loan
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domainloan.Loan, 0, len(rows))
	for i := range rows {
		out = append(out, mapLoanToDomain(&rows[i]))
	}
	return out, nil
}

func mapLoanToModel(l *domainloan.Loan) Loan {
	return Loan{
		ID:               l.ID,
		OwnerID:          l.OwnerID,
		Principal:        l.Principal,
		AnnualRate:       l.AnnualRate,
		TermMonths:       l.TermMonths,
		PaymentsMade:     l.PaymentsMade,
		MonthlyPayment:   l.MonthlyPayment,
		FirstPaymentDate: l.FirstPaymentDate,
		Status:           string(l.Status),
		ApprovedBy:       l.ApprovedBy,
		RejectionReason:  l.RejectionReason,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

func mapLoanToDomain(row *Loan) *domainloan.Loan {
	return &domainloan.Loan{
		ID:               row.ID,
		OwnerID:          row.OwnerID,
		Principal:        row.Principal,
		AnnualRate:       row.AnnualRate,
		TermMonths:       row.TermMonths,
		PaymentsMade:     row.PaymentsMade,
		MonthlyPayment:   row.MonthlyPayment,
		FirstPaymentDate: row.FirstPaymentDate,
		Status:           domainloan.Status(row.Status),
		ApprovedBy:       row.ApprovedBy,
		RejectionReason:  row.RejectionReason,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}
