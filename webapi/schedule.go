// Standing order routes cover recurring transfer obligations.
//
// Routes:
//   - POST   /standing-orders              : Create a standing order.
//   - GET    /standing-orders/:id          : Fetch a standing order.
//   - GET    /accounts/:id/standing-orders : List orders debiting the account.
//   - POST   /standing-orders/:id/pause    : Suspend an active order.
//   - POST   /standing-orders/:id/resume   : Reactivate a paused order.
//   - POST   /standing-orders/:id/cancel   : Terminally stop an order.
package webapi

import (
	"context"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/schedule"
	schedulersvc "github.com/amirasaad/ledger/pkg/service/scheduler"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

type CreateStandingOrderRequest struct {
	SourceAccountID       string  `json:"source_account_id" validate:"required,uuid4"`
	DestinationAccountID  *string `json:"destination_account_id" validate:"omitempty,uuid4"`
	ExternalAccountNumber *string `json:"external_account_number" validate:"omitempty,max=64"`
	BeneficiaryName       string  `json:"beneficiary_name" validate:"omitempty,max=128"`
	Amount                float64 `json:"amount" validate:"required,gt=0"`
	Currency              string  `json:"currency" validate:"omitempty,len=3,uppercase"`
	Frequency             string  `json:"frequency" validate:"required,oneof=daily weekly monthly quarterly yearly"`
	StartDate             *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate               *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	MaxExecutions         *int    `json:"max_executions" validate:"omitempty,gt=0"`
}

// StandingOrderDTO is the API response representation of a standing order.
type StandingOrderDTO struct {
	ID                    string  `json:"id"`
	SourceAccountID       string  `json:"source_account_id"`
	DestinationAccountID  *string `json:"destination_account_id,omitempty"`
	ExternalAccountNumber *string `json:"external_account_number,omitempty"`
	BeneficiaryName       string  `json:"beneficiary_name,omitempty"`
	Amount                float64 `json:"amount"`
	Currency              string  `json:"currency"`
	Frequency             string  `json:"frequency"`
	StartDate             string  `json:"start_date"`
	EndDate               *string `json:"end_date,omitempty"`
	NextExecutionDate     string  `json:"next_execution_date"`
	MaxExecutions         *int    `json:"max_executions,omitempty"`
	ExecutionsCount       int     `json:"executions_count"`
	Status                string  `json:"status"`
	FailureCount          int     `json:"failure_count"`
	LastFailureReason     string  `json:"last_failure_reason,omitempty"`
}

// ToStandingOrderDTO maps a schedule.StandingOrder to its API representation.
func ToStandingOrderDTO(o *schedule.StandingOrder) *StandingOrderDTO {
	if o == nil {
		return nil
	}
	dto := &StandingOrderDTO{
		ID:                    o.ID.String(),
		SourceAccountID:       o.SourceAccountID.String(),
		ExternalAccountNumber: o.ExternalAccountNumber,
		BeneficiaryName:       o.BeneficiaryName,
		Amount:                o.Amount.AmountFloat(),
		Currency:              o.Amount.Currency().String(),
		Frequency:             string(o.Frequency),
		StartDate:             o.StartDate.Format("2006-01-02"),
		NextExecutionDate:     o.NextExecutionDate.Format("2006-01-02"),
		MaxExecutions:         o.MaxExecutions,
		ExecutionsCount:       o.ExecutionsCount,
		Status:                string(o.Status),
		FailureCount:          o.FailureCount,
		LastFailureReason:     o.LastFailureReason,
	}
	if o.DestinationAccountID != nil {
		s := o.DestinationAccountID.String()
		dto.DestinationAccountID = &s
	}
	if o.EndDate != nil {
		s := o.EndDate.Format("2006-01-02")
		dto.EndDate = &s
	}
	return dto
}

// StandingOrderRoutes registers HTTP routes for standing orders.
func StandingOrderRoutes(app *fiber.App, svc *schedulersvc.Service) {
	app.Post("/standing-orders", CreateStandingOrder(svc))
	app.Get("/standing-orders/:id", GetStandingOrder(svc))
	app.Get("/accounts/:id/standing-orders", ListStandingOrders(svc))
	app.Post("/standing-orders/:id/pause", PauseStandingOrder(svc))
	app.Post("/standing-orders/:id/resume", ResumeStandingOrder(svc))
	app.Post("/standing-orders/:id/cancel", CancelStandingOrder(svc))
}

// CreateStandingOrder returns a Fiber handler that creates a standing order.
func CreateStandingOrder(svc *schedulersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[CreateStandingOrderRequest](c)
		if input == nil {
			return err
		}
		sourceID, err := uuid.Parse(input.SourceAccountID)
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid source account ID", err.Error())
		}
		amount, err := parseMoney(input.Amount, input.Currency)
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Invalid amount", err.Error())
		}
		params := schedulersvc.CreateParams{
			SourceAccountID:       sourceID,
			ExternalAccountNumber: input.ExternalAccountNumber,
			BeneficiaryName:       input.BeneficiaryName,
			Amount:                amount,
			Frequency:             schedule.Frequency(input.Frequency),
			MaxExecutions:         input.MaxExecutions,
		}
		if input.DestinationAccountID != nil {
			destID, err := uuid.Parse(*input.DestinationAccountID)
			if err != nil {
				return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid destination account ID", err.Error())
			}
			params.DestinationAccountID = &destID
		}
		if input.StartDate != nil {
			start, err := time.Parse("2006-01-02", *input.StartDate)
			if err != nil {
				return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid start date", err.Error())
			}
			params.StartDate = start
		}
		if input.EndDate != nil {
			end, err := time.Parse("2006-01-02", *input.EndDate)
			if err != nil {
				return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid end date", err.Error())
			}
			params.EndDate = &end
		}
		order, err := svc.Create(c.UserContext(), params)
		if err != nil {
			log.Errorf("Failed to create standing order: %v", err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to create standing order", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(Response{
			Status:  fiber.StatusCreated,
			Message: "Standing order created",
			Data:    ToStandingOrderDTO(order),
		})
	}
}

// GetStandingOrder returns a Fiber handler that fetches a standing order.
func GetStandingOrder(svc *schedulersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid standing order ID", err.Error())
		}
		order, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to fetch standing order", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Standing order fetched", Data: ToStandingOrderDTO(order)})
	}
}

// ListStandingOrders returns a Fiber handler that lists an account's orders.
func ListStandingOrders(svc *schedulersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid account ID", err.Error())
		}
		orders, err := svc.ListBySourceAccount(c.UserContext(), id)
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to list standing orders", err.Error())
		}
		dtos := make([]*StandingOrderDTO, 0, len(orders))
		for _, o := range orders {
			dtos = append(dtos, ToStandingOrderDTO(o))
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Standing orders fetched", Data: dtos})
	}
}

// PauseStandingOrder returns a Fiber handler that suspends an order.
func PauseStandingOrder(svc *schedulersvc.Service) fiber.Handler {
	return standingOrderMutation("pause", "Standing order paused", svc.Pause)
}

// ResumeStandingOrder returns a Fiber handler that reactivates an order.
func ResumeStandingOrder(svc *schedulersvc.Service) fiber.Handler {
	return standingOrderMutation("resume", "Standing order resumed", svc.Resume)
}

// CancelStandingOrder returns a Fiber handler that terminally stops an order.
func CancelStandingOrder(svc *schedulersvc.Service) fiber.Handler {
	return standingOrderMutation("cancel", "Standing order cancelled", svc.Cancel)
}

func standingOrderMutation(
	op, message string,
	apply func(ctx context.Context, id uuid.UUID) (*schedule.StandingOrder, error),
) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid standing order ID", err.Error())
		}
		order, err := apply(c.UserContext(), id)
		if err != nil {
			log.Errorf("Failed to %s standing order %s: %v", op, id, err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to "+op+" standing order", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: message, Data: ToStandingOrderDTO(order)})
	}
}
