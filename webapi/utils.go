package webapi

import (
	"errors"

	"github.com/amirasaad/ledger/pkg/currency"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	domainloan "github.com/amirasaad/ledger/pkg/domain/loan"
	"github.com/amirasaad/ledger/pkg/domain/schedule"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`     // A URI reference that identifies the problem type
	Title    string `json:"title"`              // Short, human-readable summary
	Status   int    `json:"status"`             // HTTP status code
	Detail   string `json:"detail,omitempty"`   // Human-readable explanation
	Instance string `json:"instance,omitempty"` // URI reference that identifies the specific occurrence
	Errors   any    `json:"errors,omitempty"`   // Optional: additional error details
}

// ProblemDetailsJSON returns a response following RFC 9457 Problem Details.
func ProblemDetailsJSON(
	c *fiber.Ctx,
	status int,
	title string,
	detail any,
) error {
	pd := ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
	}
	if detail != nil {
		if s, ok := detail.(string); ok {
			pd.Detail = s
		} else {
			pd.Errors = detail
		}
	}
	pd.Instance = c.OriginalURL()
	c.Set(fiber.HeaderContentType, "application/problem+json")

	return c.Status(status).JSON(pd)
}

// ErrorToStatusCode maps domain errors to appropriate HTTP status codes.
func ErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, account.ErrAccountNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, schedule.ErrOrderNotFound),
		errors.Is(err, domainloan.ErrLoanNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, money.ErrInvalidDecimals),
		errors.Is(err, money.ErrAmountExceedsMaxSafeInt),
		errors.Is(err, currency.ErrUnsupportedCurrency),
		errors.Is(err, schedule.ErrInvalidFrequency),
		errors.Is(err, schedule.ErrAmbiguousDestination):
		return fiber.StatusBadRequest
	case errors.Is(err, ledger.ErrDuplicateReference):
		return fiber.StatusConflict
	case errors.Is(err, account.ErrInsufficientFunds),
		errors.Is(err, account.ErrInactiveAccount),
		errors.Is(err, account.ErrSelfTransfer),
		errors.Is(err, account.ErrCurrencyMismatch),
		errors.Is(err, money.ErrMismatchedCurrencies),
		errors.Is(err, account.ErrBalanceNotZero),
		errors.Is(err, account.ErrPendingTransactions),
		errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, schedule.ErrSelfOrder),
		errors.Is(err, schedule.ErrOrderNotActive),
		errors.Is(err, schedule.ErrOrderNotPaused),
		errors.Is(err, schedule.ErrOrderFinal),
		errors.Is(err, schedule.ErrScheduleExhausted),
		errors.Is(err, domainloan.ErrInvalidStatus),
		errors.Is(err, domainloan.ErrApproverRequired),
		errors.Is(err, domainloan.ErrReasonRequired),
		errors.Is(err, domainloan.ErrTermExceeded):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it using go-playground/validator.
// Returns a pointer to the struct (populated), or writes an error response and returns nil.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return nil, ProblemDetailsJSON(c, fiber.StatusBadRequest, "Validation failed", err.Error())
	}
	return &input, nil
}
