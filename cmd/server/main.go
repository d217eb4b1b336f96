package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ledgerapp "github.com/openbooks/backend/internal/application/ledger"
	"github.com/openbooks/backend/internal/infrastructure/config"
	"github.com/openbooks/backend/internal/infrastructure/logger"
	"github.com/openbooks/backend/internal/infrastructure/persistence"
	"github.com/openbooks/backend/internal/interfaces/http/handler"
	"github.com/openbooks/backend/internal/interfaces/http/middleware"
	"github.com/openbooks/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			OpenBooks Ledger API
//	@version		1.0
//	@description	Transactional document and payment allocation ledger

//	@contact.name	API Support
//	@contact.url	https://github.com/openbooks/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.NewFromConfig(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database with GORM logging routed through zap
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	log.Info("Database connected",
		zap.String("driver", cfg.Database.Driver),
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)

	// Initialize repositories
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	accountRepo := persistence.NewGormLedgerAccountRepository(db.DB)

	// Transaction scope for multi-aggregate operations
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Initialize application services
	documentService := ledgerapp.NewDocumentService(txScope, documentRepo)
	allocationService := ledgerapp.NewAllocationService(txScope, paymentRepo)
	accountService := ledgerapp.NewAccountService(txScope, accountRepo, documentRepo)

	// Initialize handlers
	documentHandler := handler.NewDocumentHandler(documentService)
	paymentHandler := handler.NewPaymentHandler(allocationService)
	accountHandler := handler.NewAccountHandler(accountService)
	systemHandler := handler.NewSystemHandler()

	// Setup Gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	// Global middleware
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside versioned API)
	engine.GET("/health", healthHandler(db, log))

	// API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	ledgerGroup := router.NewDomainGroup("ledger", "/ledger")
	ledgerGroup.
		POST("/documents", documentHandler.Create).
		GET("/documents", documentHandler.List).
		GET("/documents/allocatable", documentHandler.ListAllocatable).
		GET("/documents/:id", documentHandler.GetByID).
		DELETE("/documents/:id", documentHandler.Delete).
		GET("/documents/number/:document_number", documentHandler.GetByNumber).
		POST("/documents/:id/items", documentHandler.AddItem).
		PUT("/documents/:id/items/:item_id", documentHandler.UpdateItem).
		DELETE("/documents/:id/items/:item_id", documentHandler.RemoveItem).
		POST("/documents/:id/finalize", documentHandler.Finalize).
		POST("/documents/:id/cancel", documentHandler.Cancel).
		POST("/payments", paymentHandler.Apply).
		GET("/payments", paymentHandler.List).
		GET("/payments/:id", paymentHandler.GetByID).
		POST("/payments/:id/reverse", paymentHandler.Reverse).
		GET("/accounts", accountHandler.List).
		GET("/accounts/:counterparty_id", accountHandler.GetByCounterparty).
		POST("/accounts/:counterparty_id/recompute", accountHandler.Recompute).
		POST("/accounts/reconcile", accountHandler.Reconcile)

	systemGroup := router.NewDomainGroup("system", "/system")
	systemGroup.
		GET("/info", systemHandler.GetSystemInfo).
		GET("/ping", systemHandler.Ping)

	r.Register(ledgerGroup).Register(systemGroup)
	r.Setup()

	// Background reconciliation sweep
	reconcileCtx, stopReconcile := context.WithCancel(context.Background())
	defer stopReconcile()
	if cfg.Reconcile.Enabled {
		go runReconcileLoop(reconcileCtx, accountService, cfg.Reconcile.Interval, log)
	}

	// HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	stopReconcile()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// runReconcileLoop periodically recomputes every ledger account from its
// source documents and logs any drift it finds.
func runReconcileLoop(ctx context.Context, accountService *ledgerapp.AccountService, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("Reconciliation loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("Reconciliation loop stopped")
			return
		case <-ticker.C:
			report, err := accountService.ReconcileAll(ctx)
			if err != nil {
				log.Error("Reconciliation sweep failed", zap.Error(err))
				continue
			}
			if report.DriftsFound > 0 {
				log.Warn("Reconciliation found drifted accounts",
					zap.Int("accounts_checked", report.AccountsChecked),
					zap.Int("drifts_found", report.DriftsFound),
				)
				for _, drift := range report.Drifts {
					log.Warn("Account balance drift corrected",
						zap.String("counterparty_id", drift.CounterpartyID.String()),
						zap.String("counterparty_name", drift.CounterpartyName),
					)
				}
			} else {
				log.Info("Reconciliation sweep clean",
					zap.Int("accounts_checked", report.AccountsChecked),
				)
			}
		}
	}
}

// healthHandler reports service and database health
func healthHandler(db *persistence.Database, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			log.Error("Health check failed: database unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "connected",
		})
	}
}
