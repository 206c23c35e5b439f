package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/artvpp/books-backend/api/routes"
	"github.com/artvpp/books-backend/internal/automation"
	"github.com/artvpp/books-backend/internal/finconfig"
	"github.com/artvpp/books-backend/internal/invoices"
	"github.com/artvpp/books-backend/internal/ledger"
	"github.com/artvpp/books-backend/internal/parties"
	"github.com/artvpp/books-backend/internal/payments"
	"github.com/artvpp/books-backend/internal/reports"
	"github.com/artvpp/books-backend/internal/sequence"
	"github.com/artvpp/books-backend/internal/summaries"
	"github.com/artvpp/books-backend/internal/transactions"
	"github.com/artvpp/books-backend/pkg/config"
	"github.com/artvpp/books-backend/pkg/db"
	"github.com/artvpp/books-backend/pkg/logger"
	"github.com/artvpp/books-backend/pkg/metrics"
	"github.com/artvpp/books-backend/pkg/migrate"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "books-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "books-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	gormDB := dbClient.DB()

	sequenceService, err := sequence.NewService(sequence.NewRepository(gormDB), cfg.Books)
	if err != nil {
		logg.Error(context.Background(), "failed to create sequence service", err)
		os.Exit(1)
	}
	ledgerService, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	summaryService, err := summaries.NewService(summaries.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create summaries service", err)
		os.Exit(1)
	}
	partyService, err := parties.NewService(parties.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create parties service", err)
		os.Exit(1)
	}
	invoiceRepo := invoices.NewRepository(gormDB)
	invoiceService, err := invoices.NewService(invoiceRepo, dbClient, sequenceService, cfg.Books)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoices service", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(payments.NewRepository(gormDB), invoiceRepo, dbClient, ledgerService, sequenceService)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}
	transactionService, err := transactions.NewService(transactions.NewRepository(gormDB), dbClient, ledgerService, sequenceService, summaryService)
	if err != nil {
		logg.Error(context.Background(), "failed to create transactions service", err)
		os.Exit(1)
	}
	reportService, err := reports.NewService(reports.NewRepository(gormDB), parties.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}
	configService, err := finconfig.NewService(finconfig.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create config service", err)
		os.Exit(1)
	}
	automationService, err := automation.NewService(dbClient, partyService, invoiceService, paymentService, transactionService, configService)
	if err != nil {
		logg.Error(context.Background(), "failed to create automation service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting books api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			registry,
			httpMetrics,
			invoiceService,
			paymentService,
			transactionService,
			partyService,
			ledgerService,
			summaryService,
			reportService,
			configService,
			automationService,
		),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if srvErr := <-errCh; srvErr != nil && srvErr != http.ErrServerClosed {
			err = multierr.Append(err, srvErr)
		}
		if err != nil {
			logg.Error(ctx, "api server shutdown error", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server stopped")
	}
}
