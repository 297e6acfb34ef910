// Package webapi exposes the ledger engine over HTTP using Fiber.
package webapi

import (
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	loansvc "github.com/amirasaad/ledger/pkg/service/loan"
	schedulersvc "github.com/amirasaad/ledger/pkg/service/scheduler"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Services bundles the application services the HTTP surface exposes.
type Services struct {
	Ledger    *ledgersvc.Service
	Scheduler *schedulersvc.Service
	Loan      *loansvc.Service
}

// NewApp builds the Fiber application with all ledger routes registered.
func NewApp(svcs Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "ledger",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
			return ProblemDetailsJSON(c, status, "Internal Server Error", err.Error())
		},
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	LedgerRoutes(app, svcs.Ledger)
	StandingOrderRoutes(app, svcs.Scheduler)
	LoanRoutes(app, svcs.Loan)

	return app
}
