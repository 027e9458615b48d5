package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/fkhayef/splitledger/docs"
	"github.com/fkhayef/splitledger/internal/audit"
	"github.com/fkhayef/splitledger/internal/catalog"
	"github.com/fkhayef/splitledger/internal/config"
	"github.com/fkhayef/splitledger/internal/database"
	"github.com/fkhayef/splitledger/internal/expense"
	expensesplit "github.com/fkhayef/splitledger/internal/expense/split"
	"github.com/fkhayef/splitledger/internal/ledger"
	"github.com/fkhayef/splitledger/internal/payment"
	"github.com/fkhayef/splitledger/internal/settlement"
	"github.com/fkhayef/splitledger/migrations"
	"github.com/fkhayef/splitledger/pkg/logger"
	mw "github.com/fkhayef/splitledger/pkg/middleware"
)

// @title        Split Ledger API
// @version      1.0
// @description  Shared-expense ledger: splits, payments, per-currency balances and settlement plans.
// @BasePath     /api/v1
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.IsDevelopment(), os.Stdout)

	// Initialize database connection
	db, err := database.NewPostgresConnection(cfg.DatabaseURL, database.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		ConnMaxLife:  cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logger.Logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger.Logger.Info("Connected to database successfully")

	if cfg.AutoMigrate {
		applied, err := database.ApplyMigrations(context.Background(), db, migrations.FS, ".")
		if err != nil {
			logger.Logger.Fatalf("Failed to apply migrations: %v", err)
		}
		logger.Logger.WithField("applied", applied).Info("Migrations up to date")
	}

	// Reference data
	ref, err := catalog.LoadEmbedded()
	if err != nil {
		logger.Logger.Fatalf("Failed to load reference data: %v", err)
	}
	catalogHandler := catalog.NewHandler(ref)

	// Expense feature (with split factory injected)
	splitFactory := expensesplit.NewSplitStrategyFactory()
	expenseRepo := expense.NewRepository(db)
	expenseService := expense.NewService(expenseRepo, expense.NewValidator(splitFactory), ref)
	expenseHandler := expense.NewHandler(expenseService)

	// Payment feature
	paymentRepo := payment.NewRepository(db)
	paymentService := payment.NewService(paymentRepo)
	paymentHandler := payment.NewHandler(paymentService)

	// Balances
	ledgerService := ledger.NewService(db, expenseRepo, paymentRepo)
	ledgerHandler := ledger.NewHandler(ledgerService)

	// Settlement feature
	settlementService := settlement.NewService(ledgerService, paymentService)
	settlementHandler := settlement.NewHandler(settlementService)

	// Integrity audit
	auditor, err := audit.Start(cfg.AuditSchedule, cfg.AuditTimeout,
		audit.Source{Name: "expenses", Chain: expenseRepo},
		audit.Source{Name: "payments", Chain: paymentRepo},
	)
	if err != nil {
		logger.Logger.Fatalf("Failed to start audit: %v", err)
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestSize(cfg.MaxBodyBytes))
	r.Use(mw.UserMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	docs.SwaggerInfo.Host = "localhost:" + cfg.Port
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Mount feature routers
		r.Mount("/expenses", expenseHandler.Routes())
		r.Mount("/payments", paymentHandler.Routes())
		r.Mount("/balances", ledgerHandler.Routes())
		r.Mount("/reference", catalogHandler.Routes())
		r.Get("/dashboard", ledgerHandler.GetDashboard)

		r.Route("/groups/{id}", func(r chi.Router) {
			r.Get("/balances", ledgerHandler.GetGroupBalances)
			r.Get("/settlement-plan", settlementHandler.GetPlan)
			r.Post("/settle", settlementHandler.Settle)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if auditor != nil {
		<-auditor.Stop().Done()
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Logger.Info("Server stopped")
}
