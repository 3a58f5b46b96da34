// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"facturio/internal/core/numerator"
	"facturio/internal/domain/billing/document"
	"facturio/internal/domain/ledger"
	"facturio/internal/domain/payment"
	"facturio/internal/domain/stock"
	"facturio/internal/infrastructure/http/v1/handlers"
	"facturio/internal/infrastructure/http/v1/middleware"
	infranumerator "facturio/internal/infrastructure/numerator"
	"facturio/internal/infrastructure/storage/postgres"
	"facturio/internal/infrastructure/storage/postgres/billing_repo"
	"facturio/internal/infrastructure/storage/postgres/ledger_repo"
	"facturio/internal/infrastructure/storage/postgres/payment_repo"
	"facturio/internal/infrastructure/storage/postgres/stock_repo"
	"facturio/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the shared database connection pool
	Pool *postgres.Pool

	// TxManager coordinates transactions for all repositories
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// Numerator for document number generation
	Numerator numerator.Generator

	// Audit records entity change history; nil disables auditing
	Audit *postgres.AuditService

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool

	// IdempotencyTTL bounds how long completed keys replay
	IdempotencyTTL time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace(cfg.Logger))
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no company scope required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1 - everything below runs inside a company scope
	api := router.Group("/api/v1")
	api.Use(middleware.CompanyScope())

	if cfg.IdempotencyEnabled {
		ttl := cfg.IdempotencyTTL
		if ttl == 0 {
			ttl = 10 * time.Minute
		}
		store := postgres.NewIdempotencyStore(cfg.Pool, cfg.TxManager, ttl)
		api.Use(middleware.Idempotency(store))
	}

	baseHandler := handlers.NewBaseHandler()

	// Shared collaborators
	numbers := infranumerator.NewDocumentNumbers(cfg.Numerator)
	stockService := stock.NewService(stock_repo.NewStockRepo(cfg.TxManager))

	// The nil check matters: a nil *AuditService inside a non-nil
	// interface would still be invoked by the service.
	var audit document.AuditRecorder
	if cfg.Audit != nil {
		audit = cfg.Audit
	}

	// Documents
	docRepo := billing_repo.NewDocumentRepo(cfg.TxManager)
	docService := document.NewService(docRepo, numbers, stockService, audit, cfg.TxManager)
	docHandler := handlers.NewDocumentHandler(baseHandler, docService)
	docHandler.RegisterRoutes(api.Group("/documents"))

	// Ledger
	accountRepo := ledger_repo.NewAccountRepo(cfg.TxManager)
	journalRepo := ledger_repo.NewJournalRepo(cfg.TxManager)
	ledgerService := ledger.NewService(accountRepo, journalRepo, cfg.TxManager)
	ledgerHandler := handlers.NewLedgerHandler(baseHandler, ledgerService)
	ledgerHandler.RegisterRoutes(api.Group("/ledger"))

	// Payments reconcile against the document repository directly
	paymentRepo := payment_repo.NewPaymentRepo(cfg.TxManager)
	paymentService := payment.NewService(paymentRepo, docRepo, cfg.TxManager)
	paymentHandler := handlers.NewPaymentHandler(baseHandler, paymentService)
	paymentHandler.RegisterRoutes(api.Group("/payments"))

	return router
}
