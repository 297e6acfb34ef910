package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirasaad/ledger/infra"
	infrarepo "github.com/amirasaad/ledger/infra/repository"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/notification"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	loansvc "github.com/amirasaad/ledger/pkg/service/loan"
	schedulersvc "github.com/amirasaad/ledger/pkg/service/scheduler"
	"github.com/amirasaad/ledger/webapi"
	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
)

func main() {
	if err := run(); err != nil {
		charmlog.Fatal(err)
	}
}

func run() error {
	logger := setupLogger()

	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := infrarepo.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	uow := infrarepo.NewUoW(db)
	notifier := &notification.SlogNotifier{Logger: logger}

	ledger := ledgersvc.New(ledgersvc.Deps{
		Uow:      uow,
		Notifier: notifier,
		Logger:   logger,
	})
	scheduler := schedulersvc.New(schedulersvc.Deps{
		Uow:       uow,
		Ledger:    ledger,
		Logger:    logger,
		BatchSize: cfg.Scheduler.BatchSize,
	})
	loans := loansvc.New(loansvc.Deps{
		Uow:    uow,
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Start(ctx, cfg.Scheduler.Interval)

	app := webapi.NewApp(webapi.Services{
		Ledger:    ledger,
		Scheduler: scheduler,
		Loan:      loans,
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("starting server", "env", cfg.Env, "addr", cfg.HTTP.Addr)
	return app.Listen(cfg.HTTP.Addr)
}

func setupLogger() *slog.Logger {
	styles := charmlog.DefaultStyles()
	infoTxtColor := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warnTxtColor := lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}
	errorTxtColor := lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF6B6B"}

	styles.Levels[charmlog.ErrorLevel] = lipgloss.NewStyle().
		SetString("❌").
		Bold(true).
		Padding(0, 1).
		Foreground(errorTxtColor)
	styles.Levels[charmlog.InfoLevel] = lipgloss.NewStyle().
		SetString("ℹ️").
		Bold(true).
		Padding(0, 1).
		Foreground(infoTxtColor)
	styles.Levels[charmlog.WarnLevel] = lipgloss.NewStyle().
		SetString("⚠️").
		Bold(true).
		Padding(0, 1).
		Foreground(warnTxtColor)

	handler := charmlog.NewWithOptions(os.Stdout, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          "ledger",
	})
	handler.SetStyles(styles)

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
