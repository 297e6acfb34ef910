// Package scheduler executes due standing orders on a polling loop and
// manages the standing order lifecycle (create, pause, resume, cancel).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domainaccount "github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/schedule"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/google/uuid"
)

const defaultBatchSize = 100

// Deps bundles the dependencies required by Service.
type Deps struct {
	Uow    repository.UnitOfWork
	Ledger *ledgersvc.Service
	Logger *slog.Logger

	// BatchSize caps how many due orders a single pass picks up.
	BatchSize int

	// Now supplies the current time. Defaults to time.Now; tests
	// override it to drive the schedule deterministically.
	Now func() time.Time
}

// Service runs standing orders through the ledger service.
type Service struct {
	uow       repository.UnitOfWork
	ledger    *ledgersvc.Service
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

// New creates a scheduler Service with the given dependencies.
func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		uow:       deps.Uow,
		ledger:    deps.Ledger,
		logger:    deps.Logger,
		batchSize: deps.BatchSize,
		now:       deps.Now,
	}
}

// CreateParams describes a new standing order. Exactly one of
// DestinationAccountID and ExternalAccountNumber must be set.
type CreateParams struct {
	SourceAccountID       uuid.UUID
	DestinationAccountID  *uuid.UUID
	ExternalAccountNumber *string
	BeneficiaryName       string
	Amount                money.Money
	Frequency             schedule.Frequency
	StartDate             time.Time
	EndDate               *time.Time
	MaxExecutions         *int
}

// Create validates the referenced accounts and persists a new standing
// order. The first execution is scheduled for the start date.
func (s *Service) Create(ctx context.Context, params CreateParams) (*schedule.StandingOrder, error) {
	b := schedule.New().
		WithSourceAccount(params.SourceAccountID).
		WithBeneficiary(params.BeneficiaryName).
		WithAmount(params.Amount).
		WithFrequency(params.Frequency)
	if params.DestinationAccountID != nil {
		b = b.WithDestinationAccount(*params.DestinationAccountID)
	}
	if params.ExternalAccountNumber != nil {
		b = b.WithExternalAccountNumber(*params.ExternalAccountNumber)
	}
	if !params.StartDate.IsZero() {
		b = b.WithStartDate(params.StartDate)
	}
	if params.EndDate != nil {
		b = b.WithEndDate(*params.EndDate)
	}
	if params.MaxExecutions != nil {
		b = b.WithMaxExecutions(*params.MaxExecutions)
	}
	order, err := b.Build()
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		src, err := uow.Accounts().Get(ctx, order.SourceAccountID)
		if err != nil {
			return err
		}
		if err := checkOrderAccount(src, order.Amount); err != nil {
			return err
		}
		if order.DestinationAccountID != nil {
			dest, err := uow.Accounts().Get(ctx, *order.DestinationAccountID)
			if err != nil {
				return err
			}
			if err := checkOrderAccount(dest, order.Amount); err != nil {
				return err
			}
		}
		return uow.StandingOrders().Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("standing order created",
		"orderID", order.ID,
		"sourceAccountID", order.SourceAccountID,
		"amount", order.Amount.String(),
		"frequency", order.Frequency,
	)
	return order, nil
}

func checkOrderAccount(a *domainaccount.Account, amount money.Money) error {
	if !a.Active {
		return domainaccount.ErrInactiveAccount
	}
	if !amount.IsSameCurrency(a.Balance) {
		return domainaccount.ErrCurrencyMismatch
	}
	return nil
}

// Get returns a standing order by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*schedule.StandingOrder, error) {
	var order *schedule.StandingOrder
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		order, err = uow.StandingOrders().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListBySourceAccount returns all standing orders debiting the account.
func (s *Service) ListBySourceAccount(ctx context.Context, accountID uuid.UUID) ([]*schedule.StandingOrder, error) {
	var orders []*schedule.StandingOrder
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		orders, err = uow.StandingOrders().ListBySourceAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Pause suspends an active order.
func (s *Service) Pause(ctx context.Context, id uuid.UUID) (*schedule.StandingOrder, error) {
	return s.mutate(ctx, id, (*schedule.StandingOrder).Pause)
}

// Resume reactivates a paused order and clears its failure streak.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (*schedule.StandingOrder, error) {
	return s.mutate(ctx, id, (*schedule.StandingOrder).Resume)
}

// Cancel terminally stops an order.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*schedule.StandingOrder, error) {
	return s.mutate(ctx, id, (*schedule.StandingOrder).Cancel)
}

func (s *Service) mutate(
	ctx context.Context,
	id uuid.UUID,
	apply func(*schedule.StandingOrder) error,
) (*schedule.StandingOrder, error) {
	var order *schedule.StandingOrder
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		order, err = uow.StandingOrders().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(order); err != nil {
			return err
		}
		order.UpdatedAt = s.now()
		return uow.StandingOrders().Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Report summarizes a single scheduler pass.
type Report struct {
	Selected  int
	Succeeded int
	Failed    int
	Skipped   int
}

// RunOnce executes every standing order that is due at the current
// time, at most BatchSize of them. Each order is processed
// independently: a failing order never blocks the rest of the batch,
// and its bookkeeping (retry streak, pause at the cap, schedule
// advancement) is persisted in its own unit of work.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	now := s.now()
	var due []*schedule.StandingOrder
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		due, err = uow.StandingOrders().ListDue(ctx, now, s.batchSize)
		return err
	})
	if err != nil {
		return Report{}, fmt.Errorf("list due orders: %w", err)
	}

	report := Report{Selected: len(due)}
	for _, order := range due {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		switch s.executeOrder(ctx, order.ID, now) {
		case outcomeSucceeded:
			report.Succeeded++
		case outcomeFailed:
			report.Failed++
		case outcomeSkipped:
			report.Skipped++
		}
	}
	if report.Selected > 0 {
		s.logger.Info("scheduler pass finished",
			"selected", report.Selected,
			"succeeded", report.Succeeded,
			"failed", report.Failed,
			"skipped", report.Skipped,
		)
	}
	return report, nil
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFailed
	outcomeSkipped
)

func (s *Service) executeOrder(ctx context.Context, id uuid.UUID, now time.Time) outcome {
	logger := s.logger.With("orderID", id)

	// Re-read the order so a pass racing with a pause, cancel or an
	// earlier pass sees current state and skips instead of double
	// executing.
	order, err := s.Get(ctx, id)
	if err != nil {
		logger.Error("failed to load due order", "error", err)
		return outcomeSkipped
	}
	if !order.IsDue(now) {
		return outcomeSkipped
	}

	description := fmt.Sprintf("standing order %s", order.BeneficiaryName)
	if order.DestinationAccountID != nil {
		_, err = s.ledger.TransferToAccount(ctx, order.SourceAccountID, *order.DestinationAccountID, order.Amount, description)
	} else {
		_, err = s.ledger.Pay(ctx, order.SourceAccountID, order.Amount, description)
	}

	if bookErr := s.recordOutcome(ctx, id, now, err); bookErr != nil {
		logger.Error("failed to record execution outcome", "error", bookErr)
	}
	if err != nil {
		logger.Warn("standing order execution failed",
			"error", err,
			"failureCount", order.FailureCount+1,
		)
		return outcomeFailed
	}
	logger.Info("standing order executed",
		"amount", order.Amount.String(),
		"executionsCount", order.ExecutionsCount+1,
	)
	return outcomeSucceeded
}

func (s *Service) recordOutcome(ctx context.Context, id uuid.UUID, now time.Time, execErr error) error {
	return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		order, err := uow.StandingOrders().Get(ctx, id)
		if err != nil {
			return err
		}
		if execErr != nil {
			err = order.RecordFailure(now, execErr.Error())
		} else {
			err = order.RecordSuccess(now)
		}
		if err != nil {
			return err
		}
		return uow.StandingOrders().Update(ctx, order)
	})
}

// Start polls for due orders at the given interval until the context
// is cancelled. An initial pass runs immediately.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	s.logger.Info("scheduler started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("scheduler pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
