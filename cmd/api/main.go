package main

import (
	"fmt"
	"net/http"
	"os"

	"nivesh/internal/config"
	"nivesh/internal/database"
	"nivesh/internal/handlers"
	"nivesh/internal/logger"
	"nivesh/internal/middleware"
	"nivesh/internal/services"
	"nivesh/internal/validator"

	"github.com/gin-gonic/gin"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(appConfig.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	securityService := services.NewSecurityService(db)
	transactionService := services.NewTransactionService(db, appConfig.Accounts, auditService)
	portfolioService := services.NewPortfolioService(db)
	exportService := services.NewExportService(portfolioService, transactionService)

	// Initialize handlers
	securityHandler := handlers.NewSecurityHandler(securityService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	exportHandler := handlers.NewExportHandler(exportService)

	// Initialize Gin router
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Securities master: created and corrected, never deleted.
	securities := v1.Group("/securities")
	securities.POST("", securityHandler.CreateSecurity)
	securities.GET("", securityHandler.ListSecurities)
	securities.GET("/:id", securityHandler.GetSecurity)
	securities.PUT("/:id", securityHandler.UpdateSecurity)

	v1.GET("/catalogs", securityHandler.Catalogs)

	// Ledger routes
	transactions := v1.Group("/transactions")
	transactions.POST("", transactionHandler.RecordTransaction)
	transactions.POST("/principal-repayment", transactionHandler.RecordPrincipalRepayment)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	v1.GET("/ledger", transactionHandler.Ledger)

	// Derived portfolio reports
	portfolio := v1.Group("/portfolio")
	portfolio.GET("/positions", portfolioHandler.Positions)
	portfolio.GET("/ladder", portfolioHandler.MaturityLadder)
	portfolio.GET("/cashflows", portfolioHandler.CashflowProjection)
	portfolio.GET("/issuers", portfolioHandler.IssuerConcentration)

	// CSV exports
	export := v1.Group("/export")
	export.GET("/positions.csv", exportHandler.PositionsCSV)
	export.GET("/ledger.csv", exportHandler.LedgerCSV)

	log.Infof("Starting Nivesh backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
