package v1

import (
	"context"

	"github.com/gin-gonic/gin"

	corenumerator "kardex/internal/core/numerator"
	"kardex/internal/domain/audit"
	"kardex/internal/domain/catalogs/material"
	"kardex/internal/domain/catalogs/warehouse"
	"kardex/internal/domain/documents/opname"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/periods"
	"kardex/internal/domain/posting"
	"kardex/internal/domain/production"
	"kardex/internal/infrastructure/http/v1/handlers"
	"kardex/internal/infrastructure/http/v1/middleware"
	"kardex/internal/infrastructure/storage/postgres"
	"kardex/internal/infrastructure/storage/postgres/catalog_repo"
	"kardex/internal/infrastructure/storage/postgres/document_repo"
	"kardex/internal/infrastructure/storage/postgres/ledger_repo"
	"kardex/internal/infrastructure/storage/postgres/period_repo"
	"kardex/pkg/logger"
)

// RouterConfig contains router dependencies.
type RouterConfig struct {
	Logger    *logger.Logger
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	Numerator corenumerator.Generator

	// AuditService enables the posting audit trail when set.
	AuditService *postgres.AuditService

	// OutboxEnabled publishes posted entries to the transactional outbox.
	OutboxEnabled bool

	// IdempotencyStore enables replay protection on mutating endpoints
	// when set.
	IdempotencyStore *postgres.IdempotencyStore
}

// NewRouter creates and configures the HTTP router: middleware chain,
// health endpoints, and the /api/v1 surface.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()

	// Middleware order matters: recovery first, then tracing so the
	// logger and error handler see trace IDs.
	r.Use(middleware.Recovery())
	r.Use(middleware.Trace())
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.ErrorHandler())

	base := handlers.NewBaseHandler()

	// Health endpoints live outside /api/v1 and skip identity middleware.
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := r.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.UserContext())
	if cfg.IdempotencyStore != nil {
		api.Use(middleware.Idempotency(cfg.IdempotencyStore))
	}

	// Core posting pipeline shared by every workflow.
	periodRepo := period_repo.NewPeriodRepo(cfg.TxManager)
	periodSvc := periods.NewService(periodRepo, cfg.TxManager)

	ledgerRepo := ledger_repo.NewLedgerRepo(cfg.TxManager)
	poster := ledger.NewPoster(ledgerRepo, periodSvc, cfg.TxManager)
	if cfg.AuditService != nil {
		poster = poster.WithAudit(postgres.NewLedgerAudit(cfg.AuditService))
	}
	if cfg.OutboxEnabled {
		poster = poster.WithEvents(postgres.NewLedgerEvents(postgres.NewOutboxPublisher(cfg.TxManager)))
	}
	projector := ledger.NewProjector(ledgerRepo, cfg.TxManager)
	transfers := ledger.NewTransferCoordinator(poster, cfg.Numerator, cfg.TxManager)
	postingEngine := posting.NewEngine(poster, cfg.TxManager)

	// Catalogs
	catalogs := api.Group("/catalogs")
	{
		repo := catalog_repo.NewWarehouseRepo(cfg.TxManager)
		service := warehouse.NewService(repo, cfg.Numerator, cfg.TxManager)
		handler := handlers.NewWarehouseHandler(base, service)

		group := catalogs.Group("/warehouses")
		RegisterCatalogRoutes(group, handler)
		group.POST("/:id/bins", handler.AddBin)
	}
	{
		repo := catalog_repo.NewMaterialRepo(cfg.TxManager)
		service := material.NewService(repo, cfg.Numerator, cfg.TxManager)
		handler := handlers.NewMaterialHandler(base, service)

		group := catalogs.Group("/materials")
		RegisterCatalogRoutes(group, handler)
		group.GET("/by-sku/:sku", handler.GetBySKU)
		group.GET("/by-barcode/:barcode", handler.GetByBarcode)
	}

	// Accounting periods
	{
		handler := handlers.NewPeriodHandler(base, periodSvc)

		group := api.Group("/periods")
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.GET("/:id", handler.Get)
		group.POST("/:id/close", handler.Close)
		group.POST("/:id/reopen", handler.Reopen)
	}

	// Ledger operations and queries
	{
		handler := handlers.NewLedgerHandler(base, poster, projector, transfers)

		group := api.Group("/ledger")
		group.POST("/receive", handler.Receive)
		group.POST("/issue", handler.Issue)
		group.POST("/adjust-in", handler.AdjustIn)
		group.POST("/adjust-out", handler.AdjustOut)
		group.POST("/transfer", handler.Transfer)
		group.POST("/rebuild", handler.Rebuild)
		group.GET("/balances", handler.GetBalances)
		group.GET("/availability", handler.GetAvailability)
		group.GET("/history", handler.GetHistory)
		group.GET("/turnover", handler.GetTurnover)
		group.GET("/valuation", handler.GetValuation)
	}

	// Documents
	documents := api.Group("/documents")
	{
		repo := document_repo.NewOpnameRepo(cfg.TxManager)
		service := opname.NewService(repo, postingEngine, projector, cfg.Numerator, cfg.TxManager)
		service.Hooks().OnBeforeCreate(func(ctx context.Context, doc *opname.Opname) error {
			audit.EnrichCreatedByDirect(ctx, &doc.CreatedBy, &doc.UpdatedBy)
			return nil
		})
		service.Hooks().OnBeforeUpdate(func(ctx context.Context, doc *opname.Opname) error {
			audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)
			return nil
		})
		handler := handlers.NewOpnameHandler(base, service)

		group := documents.Group("/opnames")
		RegisterDocumentRoutes(group, handler)
		group.POST("/:id/prepare-sheet", handler.PrepareSheet)
		group.POST("/:id/lines", handler.AddLine)
		group.PUT("/:id/lines/:lineNo/count", handler.CountLine)
		group.POST("/:id/start-counting", handler.StartCounting)
		group.POST("/:id/complete", handler.Complete)
		group.POST("/:id/cancel", handler.Cancel)
		group.GET("/:id/comparison", handler.GetComparison)
	}

	// Production
	{
		coordinator := production.NewCoordinator(ledgerRepo, poster, cfg.TxManager)
		handler := handlers.NewProductionHandler(base, coordinator)

		group := api.Group("/production")
		group.POST("/complete-stage", handler.CompleteStage)
	}

	return r
}
