// Ledger routes cover account management and money movement.
//
// Routes:
//   - POST   /accounts                   : Open a new account.
//   - GET    /accounts/:id               : Fetch an account with its balance.
//   - POST   /accounts/:id/deactivate    : Close an account (zero balance, no pending entries).
//   - POST   /accounts/:id/deposits      : Credit funds into the account.
//   - POST   /accounts/:id/withdrawals   : Debit funds from the account.
//   - POST   /transfers                  : Move funds between two accounts atomically.
//   - GET    /accounts/:id/transactions  : List the account's transaction log entries.
//   - GET    /transactions/:id           : Fetch a single transaction log entry.
//   - POST   /transactions/:id/cancel    : Cancel a pending transaction.
package webapi

import (
	"github.com/amirasaad/ledger/pkg/currency"
	"github.com/amirasaad/ledger/pkg/domain/account"
	domainledger "github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/money"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

type CreateAccountRequest struct {
	OwnerID  string `json:"owner_id" validate:"required,uuid4"`
	Type     string `json:"type" validate:"omitempty,oneof=checking savings business"`
	Currency string `json:"currency" validate:"omitempty,len=3,uppercase"`
}

type MoneyRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"omitempty,len=3,uppercase"`
	Description string  `json:"description" validate:"omitempty,max=255"`
}

type TransferRequest struct {
	FromAccountID   string  `json:"from_account_id" validate:"required,uuid4"`
	ToAccountNumber string  `json:"to_account_number" validate:"required"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	Currency        string  `json:"currency" validate:"omitempty,len=3,uppercase"`
	Description     string  `json:"description" validate:"omitempty,max=255"`
}

// AccountDTO is the API response representation of an account.
type AccountDTO struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"owner_id"`
	Number    string  `json:"number"`
	Type      string  `json:"type"`
	Balance   float64 `json:"balance"`
	Currency  string  `json:"currency"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"created_at"`
}

// TransactionDTO is the API response representation of a transaction log entry.
type TransactionDTO struct {
	ID                   string  `json:"id"`
	Reference            string  `json:"reference"`
	SourceAccountID      *string `json:"source_account_id,omitempty"`
	DestinationAccountID *string `json:"destination_account_id,omitempty"`
	Amount               float64 `json:"amount"`
	Currency             string  `json:"currency"`
	Type                 string  `json:"type"`
	Status               string  `json:"status"`
	Description          string  `json:"description,omitempty"`
	FailureReason        string  `json:"failure_reason,omitempty"`
	CreatedAt            string  `json:"created_at"`
	CompletedAt          *string `json:"completed_at,omitempty"`
	FailedAt             *string `json:"failed_at,omitempty"`
}

// ToAccountDTO maps an account.Account to its API representation.
func ToAccountDTO(a *account.Account) *AccountDTO {
	if a == nil {
		return nil
	}
	return &AccountDTO{
		ID:        a.ID.String(),
		OwnerID:   a.OwnerID.String(),
		Number:    a.Number,
		Type:      string(a.Type),
		Balance:   a.Balance.AmountFloat(),
		Currency:  a.Currency().String(),
		Active:    a.Active,
		CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ToTransactionDTO maps a ledger.Transaction to its API representation.
func ToTransactionDTO(t *domainledger.Transaction) *TransactionDTO {
	if t == nil {
		return nil
	}
	dto := &TransactionDTO{
		ID:            t.ID.String(),
		Reference:     t.Reference,
		Amount:        t.Amount.AmountFloat(),
		Currency:      t.Amount.Currency().String(),
		Type:          string(t.Type),
		Status:        string(t.Status),
		Description:   t.Description,
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if t.SourceAccountID != nil {
		s := t.SourceAccountID.String()
		dto.SourceAccountID = &s
	}
	if t.DestinationAccountID != nil {
		s := t.DestinationAccountID.String()
		dto.DestinationAccountID = &s
	}
	if t.CompletedAt != nil {
		s := t.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
		dto.CompletedAt = &s
	}
	if t.FailedAt != nil {
		s := t.FailedAt.Format("2006-01-02T15:04:05Z07:00")
		dto.FailedAt = &s
	}
	return dto
}

// LedgerRoutes registers HTTP routes for accounts and money movement.
func LedgerRoutes(app *fiber.App, svc *ledgersvc.Service) {
	app.Post("/accounts", CreateAccount(svc))
	app.Get("/accounts/:id", GetAccount(svc))
	app.Post("/accounts/:id/deactivate", DeactivateAccount(svc))
	app.Post("/accounts/:id/deposits", Deposit(svc))
	app.Post("/accounts/:id/withdrawals", Withdraw(svc))
	app.Get("/accounts/:id/transactions", ListTransactions(svc))
	app.Post("/transfers", Transfer(svc))
	app.Get("/transactions/:id", GetTransaction(svc))
	app.Post("/transactions/:id/cancel", CancelTransaction(svc))
}

// CreateAccount returns a Fiber handler that opens a new account.
func CreateAccount(svc *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[CreateAccountRequest](c)
		if input == nil {
			return err
		}
		ownerID, err := uuid.Parse(input.OwnerID)
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid owner ID", err.Error())
		}
		accountType := account.TypeChecking
		if input.Type != "" {
			accountType = account.Type(input.Type)
		}
		code := currency.DefaultCurrency
		if input.Currency != "" {
			code = currency.Code(input.Currency)
		}
		a, err := svc.CreateAccount(c.UserContext(), ownerID, accountType, code)
		if err != nil {
			log.Errorf("Failed to create account: %v", err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to create account", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(Response{
			Status:  fiber.StatusCreated,
			Message: "Account created",
			Data:    ToAccountDTO(a),
		})
	}
}

// GetAccount returns a Fiber handler that fetches an account.
func GetAccount(svc *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid account ID", err.Error())
		}
		a, err := svc.GetAccount(c.UserContext(), id)
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to fetch account", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Account fetched", Data: ToAccountDTO(a)})
	}
}

// DeactivateAccount returns a Fiber handler that closes an account.
func DeactivateAccount(svc *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid account ID", err.Error())
		}
		if err := svc.DeactivateAccount(c.UserContext(), id); err != nil {
			log.Errorf("Failed to deactivate account %s: %v", id, err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to deactivate account", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Account deactivated"})
	}
}

// Deposit returns a Fiber handler that credits funds into an account.
func Deposit(svc *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid account ID", err.Error())
		}
		input, err := BindAndValidate[MoneyRequest](c)
		if input == nil {
			return err
		}
		amount, err := parseMoney(input.Amount, input.Currency)
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Invalid amount", err.Error())
		}
		t, err := svc.Deposit(c.UserContext(), id, amount, input.Description)
		if err != nil {
			log.Errorf("Failed to deposit into %s: %v", id, err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to deposit", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(Response{
			Status:  fiber.StatusCreated,
			Message: "Deposit successful",
			Data:    ToTransactionDTO(t),
		})
	}
}

// Withdraw returns a Fiber handler that debits funds from an account.
func Withdraw(svc *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid account ID", err.Error())
		}
		input, err := BindAndValidate[MoneyRequest](c)
		if input == nil {
			return err
		}
		amount, err := parseMoney(input.Amount, input.Currency)
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Invalid amount", err.Error())
		}
		t, err := svc.Withdraw(c.UserContext(), id, amount, input.Description)
		if err != nil {
			log.Errorf("Failed to withdraw from %s: %v", id, err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to withdraw", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(Response{
			Status:  fiber.StatusCreated,
			Message: "Withdrawal successful",
			Data:    ToTransactionDTO(t),
		})
	}
}

// Transfer returns a Fiber handler that moves funds between two accounts.
func Transfer(svc *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[TransferRequest](c)
		if input == nil {
			return err
		}
		fromID, err := uuid.Parse(input.FromAccountID)
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid source account ID", err.Error())
		}
		amount, err := parseMoney(input.Amount, input.Currency)
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Invalid amount", err.Error())
		}
		t, err := svc.Transfer(c.UserContext(), fromID, input.ToAccountNumber, amount, input.Description)
		if err != nil {
			log.Errorf("Failed to transfer from %s: %v", fromID, err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to transfer", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(Response{
			Status:  fiber.StatusCreated,
			Message: "Transfer successful",
			Data:    ToTransactionDTO(t),
		})
	}
}

// ListTransactions returns a Fiber handler that lists an account's log entries.
func ListTransactions(svc *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid account ID", err.Error())
		}
		limit := c.QueryInt("limit", 50)
		ts, err := svc.ListTransactions(c.UserContext(), id, limit)
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to list transactions", err.Error())
		}
		dtos := make([]*TransactionDTO, 0, len(ts))
		for _, t := range ts {
			dtos = append(dtos, ToTransactionDTO(t))
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Transactions fetched", Data: dtos})
	}
}

// GetTransaction returns a Fiber handler that fetches a single log entry.
func GetTransaction(svc *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid transaction ID", err.Error())
		}
		t, err := svc.GetTransaction(c.UserContext(), id)
		if err != nil {
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to fetch transaction", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Transaction fetched", Data: ToTransactionDTO(t)})
	}
}

// CancelTransaction returns a Fiber handler that cancels a pending entry.
func CancelTransaction(svc *ledgersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ProblemDetailsJSON(c, fiber.StatusBadRequest, "Invalid transaction ID", err.Error())
		}
		t, err := svc.Cancel(c.UserContext(), id)
		if err != nil {
			log.Errorf("Failed to cancel transaction %s: %v", id, err)
			return ProblemDetailsJSON(c, ErrorToStatusCode(err), "Failed to cancel transaction", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Transaction cancelled", Data: ToTransactionDTO(t)})
	}
}

func parseMoney(amount float64, code string) (money.Money, error) {
	c := currency.DefaultCurrency
	if code != "" {
		c = currency.Code(code)
	}
	return money.New(amount, c)
}
