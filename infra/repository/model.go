// Package repository implements the data access contracts of
// pkg/repository on top of GORM and postgres.
package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account is the persisted account record. Balance is stored in the
// smallest currency unit.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"type:uuid;index;not null"`
	Number    string    `gorm:"uniqueIndex;not null;size:32"`
	Type      string    `gorm:"type:varchar(16);not null"`
	Balance   int64     `gorm:"not null;default:0"`
	Currency  string    `gorm:"type:varchar(3);not null;default:'USD'"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is the persisted transaction log record. Rows are
// append-only: the status columns are finalized exactly once and the
// row is never deleted.
type Transaction struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Reference            string     `gorm:"uniqueIndex;not null;size:32"`
	SourceAccountID      *uuid.UUID `gorm:"type:uuid;index"`
	DestinationAccountID *uuid.UUID `gorm:"type:uuid;index"`
	Amount               int64      `gorm:"not null"`
	Currency             string     `gorm:"type:varchar(3);not null;default:'USD'"`
	Type                 string     `gorm:"type:varchar(24);not null"`
	Status               string     `gorm:"type:varchar(12);not null;index"`
	Description          string

	SourceBalanceBefore      *int64
	SourceBalanceAfter       *int64
	DestinationBalanceBefore *int64
	DestinationBalanceAfter  *int64

	FailureReason string
	CreatedAt     time.Time
	CompletedAt   *time.Time
	FailedAt      *time.Time
}

// StandingOrder is the persisted recurring transfer obligation.
type StandingOrder struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SourceAccountID       uuid.UUID  `gorm:"type:uuid;index;not null"`
	DestinationAccountID  *uuid.UUID `gorm:"type:uuid"`
	ExternalAccountNumber *string    `gorm:"size:64"`
	BeneficiaryName       string
	Amount                int64     `gorm:"not null"`
	Currency              string    `gorm:"type:varchar(3);not null;default:'USD'"`
	Frequency             string    `gorm:"type:varchar(12);not null"`
	StartDate             time.Time `gorm:"not null"`
	EndDate               *time.Time
	NextExecutionDate     time.Time `gorm:"index;not null"`
	MaxExecutions         *int
	ExecutionsCount       int    `gorm:"not null;default:0"`
	Status                string `gorm:"type:varchar(12);not null;index"`
	FailureCount          int    `gorm:"not null;default:0"`
	LastExecutionDate     *time.Time
	LastExecutionStatus   string `gorm:"type:varchar(12)"`
	LastFailureReason     string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Loan is the persisted loan record. Derived figures (remaining
// balance, overdue state) are never stored.
type Loan struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	Principal        decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	AnnualRate       float64         `gorm:"type:numeric(8,6);not null"`
	TermMonths       int             `gorm:"not null"`
	PaymentsMade     int             `gorm:"not null;default:0"`
	MonthlyPayment   decimal.Decimal `gorm:"type:numeric(20,4)"`
	FirstPaymentDate time.Time
	Status           string     `gorm:"type:varchar(12);not null;index"`
	ApprovedBy       *uuid.UUID `gorm:"type:uuid"`
	RejectionReason  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Migrate creates or updates the schema for all ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
		&Transaction{},
		&StandingOrder{},
		&Loan{},
	)
}
