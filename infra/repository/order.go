package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/schedule"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type standingOrderRepository struct {
	db *gorm.DB
}

// NewStandingOrderRepository creates a standing order repository on the given session.
func NewStandingOrderRepository(db *gorm.DB) repository.StandingOrderRepository {
	return &standingOrderRepository{db: db}
}

// Create implements repository.StandingOrderRepository.
func (r *standingOrderRepository) Create(ctx context.Context, o *schedule.StandingOrder) error {
	row := mapOrderToModel(o)
	return r.db.WithContext(ctx).Create(&row).Error
}

// Get implements repository.StandingOrderRepository.
func (r *standingOrderRepository) Get(ctx context.Context, id uuid.UUID) (*schedule.StandingOrder, error) {
	var row StandingOrder
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, schedule.ErrOrderNotFound
		}
		return nil, err
	}
	return mapOrderToDomain(&row)
}

// Update implements repository.StandingOrderRepository.
func (r *standingOrderRepository) Update(ctx context.Context, o *schedule.StandingOrder) error {
	row := mapOrderToModel(o)
	res := r.db.WithContext(ctx).Model(&StandingOrder{}).Where("id = ?", o.ID).Updates(map[string]any{
		"next_execution_date":   row.NextExecutionDate,
		"executions_count":      row.ExecutionsCount,
		"status":                row.Status,
		"failure_count":         row.FailureCount,
		"last_execution_date":   row.LastExecutionDate,
		"last_execution_status": row.LastExecutionStatus,
		"last_failure_reason":   row.LastFailureReason,
		"end_date":              row.EndDate,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return schedule.ErrOrderNotFound
	}
	return nil
}

// ListBySourceAccount implements repository.StandingOrderRepository.
func (r *standingOrderRepository) ListBySourceAccount(ctx context.Context, accountID uuid.UUID) ([]*schedule.StandingOrder, error) {
	var rows []StandingOrder
	err := r.db.WithContext(ctx).
		Where("source_account_id = ?", accountID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return mapOrdersToDomain(rows)
}

// ListDue implements repository.StandingOrderRepository.
func (r *standingOrderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*schedule.StandingOrder, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND next_execution_date <= ?", string(schedule.StatusActive), now).
		Order("next_execution_date")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []StandingOrder
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return mapOrdersToDomain(rows)
}

func mapOrdersToDomain(rows []StandingOrder) ([]*schedule.StandingOrder, error) {
	out := make([]*schedule.StandingOrder, 0, len(rows))
	for i := range rows {
		o, err := mapOrderToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func mapOrderToModel(o *schedule.StandingOrder) StandingOrder {
	return StandingOrder{
		ID:                    o.ID,
		SourceAccountID:       o.SourceAccountID,
		DestinationAccountID:  o.DestinationAccountID,
		ExternalAccountNumber: o.ExternalAccountNumber,
		BeneficiaryName:       o.BeneficiaryName,
		Amount:                o.Amount.Amount(),
		Currency:              o.Amount.Currency().String(),
		Frequency:             string(o.Frequency),
		StartDate:             o.StartDate,
		EndDate:               o.EndDate,
		NextExecutionDate:     o.NextExecutionDate,
		MaxExecutions:         o.MaxExecutions,
		ExecutionsCount:       o.ExecutionsCount,
		Status:                string(o.Status),
		FailureCount:          o.FailureCount,
		LastExecutionDate:     o.LastExecutionDate,
		LastExecutionStatus:   string(o.LastExecutionStatus),
		LastFailureReason:     o.LastFailureReason,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

func mapOrderToDomain(row *StandingOrder) (*schedule.StandingOrder, error) {
	amount, err := money.NewFromSmallestUnit(row.Amount, currencyCode(row.Currency))
	if err != nil {
		return nil, err
	}
	return &schedule.StandingOrder{
		ID:                    row.ID,
		SourceAccountID:       row.SourceAccountID,
		DestinationAccountID:  row.DestinationAccountID,
		ExternalAccountNumber: row.ExternalAccountNumber,
		BeneficiaryName:       row.BeneficiaryName,
		Amount:                amount,
		Frequency:             schedule.Frequency(row.Frequency),
		StartDate:             row.StartDate,
		EndDate:               row.EndDate,
		NextExecutionDate:     row.NextExecutionDate,
		MaxExecutions:         row.MaxExecutions,
		ExecutionsCount:       row.ExecutionsCount,
		Status:                schedule.Status(row.Status),
		FailureCount:          row.FailureCount,
		LastExecutionDate:     row.LastExecutionDate,
		LastExecutionStatus:   schedule.ExecutionStatus(row.LastExecutionStatus),
		LastFailureReason:     row.LastFailureReason,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}, nil
}
