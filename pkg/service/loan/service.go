// Package loan provides the loan lifecycle service: applications,
// approval decisions and payment tracking. Payment figures are derived
// on demand from the amortization calculator, never stored.
package loan

import (
	"context"
	"log/slog"
	"time"

	domainloan "github.com/amirasaad/ledger/pkg/domain/loan"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deps bundles the dependencies required by Service.
type Deps struct {
	Uow    repository.UnitOfWork
	Logger *slog.Logger
}

// Service manages the loan lifecycle.
type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

// New creates a loan Service with the given dependencies.
func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{uow: deps.Uow, logger: deps.Logger}
}

// Apply files a new loan application in pending status.
func (s *Service) Apply(
	ctx context.Context,
	ownerID uuid.UUID,
	principal decimal.Decimal,
	annualRate float64,
	termMonths int,
	firstPaymentDate time.Time,
) (*domainloan.Loan, error) {
	l, err := domainloan.NewApplication(ownerID, principal, annualRate, termMonths, firstPaymentDate)
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		return uow.Loans().Create(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("loan application filed",
		"loanID", l.ID,
		"ownerID", ownerID,
		"principal", principal.String(),
		"termMonths", termMonths,
	)
	return l, nil
}

// Approve approves a pending application, freezing the monthly payment.
func (s *Service) Approve(ctx context.Context, id, approver uuid.UUID) (*domainloan.Loan, error) {
	return s.mutate(ctx, id, func(l *domainloan.Loan) error {
		return l.Approve(approver)
	})
}

// Reject rejects a pending application with a reason.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*domainloan.Loan, error) {
	return s.mutate(ctx, id, func(l *domainloan.Loan) error {
		return l.Reject(reason)
	})
}

// Activate marks an approved loan as disbursed.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*domainloan.Loan, error) {
	return s.mutate(ctx, id, (*domainloan.Loan).Activate)
}

// RecordPayment records one scheduled payment against an active loan.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID) (*domainloan.Loan, error) {
	return s.mutate(ctx, id, (*domainloan.Loan).RecordPayment)
}

func (s *Service) mutate(
	ctx context.Context,
	id uuid.UUID,
	apply func(*domainloan.Loan) error,
) (*domainloan.Loan, error) {
	var l *domainloan.Loan
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		l, err = uow.Loans().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(l); err != nil {
			return err
		}
		return uow.Loans().Update(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Get returns a loan by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domainloan.Loan, error) {
	var l *domainloan.Loan
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		l, err = uow.Loans().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListByOwner returns all loans belonging to the owner.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domainloan.Loan, error) {
	var loans []*domainloan.Loan
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		loans, err = uow.Loans().ListByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// Snapshot returns the loan plus its derived payment figures as of now.
func (s *Service) Snapshot(ctx context.Context, id uuid.UUID) (*domainloan.Loan, domainloan.Snapshot, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, domainloan.Snapshot{}, err
	}
	return l, l.SnapshotAt(time.Now()), nil
}
