// Loan routes cover amortization quotes and the loan lifecycle.
//
// Routes:
//   - GET    /loans/quote         : Compute amortization figures without creating a loan.
//   - POST   /loans               : File a loan application.
//   - GET    /loans/:id           : Fetch a loan and its derived payment figures.
//   - POST   /loans/:id/approve   : Approve a pending application.
//   - POST   /loans/:id/reject    : Reject a pending application with a reason.
//   - POST   /loans/:id/activate  : Mark an approved loan as disbursed.
//   - POST   /loans/:id/payments  : Record one scheduled payment.
package webapi

import (
	"time"

	domainloan "github.com/amirasaad/ledger/pkg/domain/loan"
	loansvc "github.com/amirasaad/ledger/pkg/service/loan"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanQuoteRequest struct {
	Principal  float64 `query:"principal" validate:"required,gt=0"`
	AnnualRate float64 `query:"annual_rate" validate:"gte=0"`
	TermMonths int     `query:"term_months" validate:"required,gt=0"`
}

type ApplyLoanRequest struct {
	OwnerID          string  `json:"owner_id" validate:"required,uuid4"`
	Principal        float64 `json:"principal" validate:"required,gt=0"`
	AnnualRate       float64 `json:"annual_rate" validate:"gte=0"`
	TermMonths       int     `json:"term_months" validate:"required,gt=0"`
	FirstPaymentDate string  `json:"first_payment_date" validate:"required,datetime=2006-01-02"`
}

type RejectLoanRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

type ApproveLoanRequest struct {
	ApprovedBy string `json:"approved_by" validate:"required,uuid4"`
}

// LoanQuoteDTO carries derived amortization figures.
type LoanQuoteDTO struct {
	Principal      float64 `json:"principal"`
	AnnualRate     float64 `json:"annual_rate"`
	TermMonths     int     `json:"term_months"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalInterest  float64 `json:"total_interest"`
	TotalPayment   float64 `json:"total_payment"`
}

// LoanDTO is the API response representation of a loan.
type LoanDTO struct {
	ID                 string  `json:"id"`
	OwnerID            string  `json:"owner_id"`
	Principal          float64 `json:"principal"`
	AnnualRate         float64 `json:"annual_rate"`
	TermMonths         int     `json:"term_months"`
	PaymentsMade       int     `json:"payments_made"`
	Status             string  `json:"status"`
	RejectionReason    string  `json:"rejection_reason,omitempty"`
	MonthlyPayment     float64 `json:"monthly_payment"`
	TotalInterest      float64 `json:"total_interest"`
	RemainingBalance   float64 `json:"remaining_balance"`
	NextPaymentDue     *string `json:"next_payment_due,omitempty"`
	Overdue            bool    `json:"overdue"`
	DaysOverdue        int     `json:"days_overdue"`
	ProgressPercentage int     `json:"progress_percentage"`
}

// ToLoanDTO maps a loan and its derived snapshot to the API representation.
func ToLoanDTO(l *domainloan.Loan, snap domainloan.Snapshot) *LoanDTO {
	if l == nil {
		return nil
	}
	dto := &LoanDTO{
		ID:                 l.ID.String(),
		OwnerID:            l.OwnerID.String(),
		Principal:          l.Principal.InexactFloat64(),
		AnnualRate:         l.AnnualRate,
		TermMonths:         l.TermMonths,
		PaymentsMade:       l.PaymentsMade,
		Status:             string(l.Status),
		RejectionReason:    l.RejectionReason,
		MonthlyPayment:     snap.MonthlyPayment.InexactFloat64(),
		TotalInterest:      snap.TotalInterest.InexactFloat64(),
		RemainingBalance:   snap.RemainingBalance.InexactFloat64(),
		Overdue:            snap.Overdue,
		DaysOverdue:        snap.DaysOverdue,
		ProgressPercentage: snap.ProgressPercentage,
	}
	if snap.NextPaymentDue != nil {
		s := snap.NextPaymentDue.Format("2006-01-02")
		dto.NextPaymentDue = &s
	}
	return dto
}

// LoanRoutes registers HTTP routes for loans.
func LoanRoutes(app *fiber.App, svc *loansvc.Service) {
	app.Get("/loans/quote", LoanQuote())
	app.Post("/loans", ApplyLoan(svc))
	app.Get("/loans/:id", GetLoan(svc))
	app.Post("/loans/:id/approve", ApproveLoan(svc))
	app.Post("/loans/:id/reject", RejectLoan(svc))
	app.Post("/loans/:id/activate", ActivateLoan(svc))
	app.Post("/loans/:id/payments", RecordLoanPayment(svc))
}

// LoanQuote returns a Fiber handler that computes amortization figures
// from query parameters without persisting anything.
func LoanQuote() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input LoanQuoteRequest
		if err := c.QueryParser(&input); err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid query parameters", err.Error())
		}
		if input.Principal <= 0 || input.TermMonths <= 0 || input.AnnualRate < 0 {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid quote parameters",
				"principal and term_months must be positive, annual_rate non-negative")
		}
		principal := decimal.NewFromFloat(input.Principal)
		payment := domainloan.MonthlyPayment(principal, input.AnnualRate, input.TermMonths)
		interest := domainloan.TotalInterest(principal, input.AnnualRate, input.TermMonths)
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Quote computed", Data: LoanQuoteDTO{
			Principal:      input.Principal,
			AnnualRate:     input.AnnualRate,
			TermMonths:     input.TermMonths,
			MonthlyPayment: payment.InexactFloat64(),
			TotalInterest:  interest.InexactFloat64(),
			TotalPayment:   principal.Add(interest).InexactFloat64(),
		}})
	}
}

// ApplyLoan returns a Fiber handler that files a loan application.
func ApplyLoan(svc *loansvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[ApplyLoanRequest](c)
		if input == nil {
			return err
		}
		ownerID, err := uuid.Parse(input.OwnerID)
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid owner ID", err.Error())
		}
		first, err := time.Parse("2006-01-02", input.FirstPaymentDate)
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid first payment date", err.Error())
		}
		l, err := svc.Apply(c.UserContext(), ownerID, decimal.NewFromFloat(input.Principal), input.AnnualRate, input.TermMonths, first)
		if err != nil {
			log.Errorf("Failed to file loan application: %v", err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to file loan application", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(Response{
			Status:  fiber.StatusCreated,
			Message: "Loan application filed",
			Data:    ToLoanDTO(l, l.SnapshotAt(time.Now())),
		})
	}
}

// GetLoan returns a Fiber handler that fetches a loan with derived figures.
func GetLoan(svc *loansvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid loan ID", err.Error())
		}
		l, snap, err := svc.Snapshot(c.UserContext(), id)
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to fetch loan", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Loan fetched", Data: ToLoanDTO(l, snap)})
	}
}

// ApproveLoan returns a Fiber handler that approves a pending application.
func ApproveLoan(svc *loansvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid loan ID", err.Error())
		}
		input, err := BindAndValidate[ApproveLoanRequest](c)
		if input == nil {
			return err
		}
		approver, err := uuid.Parse(input.ApprovedBy)
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid approver ID", err.Error())
		}
		l, err := svc.Approve(c.UserContext(), id, approver)
		if err != nil {
			log.Errorf("Failed to approve loan %s: %v", id, err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to approve loan", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Loan approved", Data: ToLoanDTO(l, l.SnapshotAt(time.Now()))})
	}
}

// RejectLoan returns a Fiber handler that rejects a pending application.
func RejectLoan(svc *loansvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid loan ID", err.Error())
		}
		input, err := BindAndValidate[RejectLoanRequest](c)
		if input == nil {
			return err
		}
		l, err := svc.Reject(c.UserContext(), id, input.Reason)
		if err != nil {
			log.Errorf("Failed to reject loan %s: %v", id, err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to reject loan", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Loan rejected", Data: ToLoanDTO(l, l.SnapshotAt(time.Now()))})
	}
}

// ActivateLoan returns a Fiber handler that marks a loan as disbursed.
func ActivateLoan(svc *loansvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid loan ID", err.Error())
		}
		l, err := svc.Activate(c.UserContext(), id)
		if err != nil {
			log.Errorf("Failed to activate loan %s: %v", id, err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to activate loan", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Loan activated", Data: ToLoanDTO(l, l.SnapshotAt(time.Now()))})
	}
}

// RecordLoanPayment returns a Fiber handler that records one payment.
func RecordLoanPayment(svc *loansvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid loan ID", err.Error())
		}
		l, err := svc.RecordPayment(c.UserContext(), id)
		if err != nil {
			log.Errorf("Failed to record payment on loan %s: %v", id, err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to record payment", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Payment recorded", Data: ToLoanDTO(l, l.SnapshotAt(time.Now()))})
	}
}
