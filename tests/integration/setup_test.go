package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"nivesh/internal/config"
	"nivesh/internal/handlers"
	"nivesh/internal/logger"
	"nivesh/internal/middleware"
	"nivesh/internal/models"
	"nivesh/internal/services"
	"nivesh/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.Security{},
		&models.SecurityMetadata{},
		&models.Transaction{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	auditService := services.NewAuditService(db)
	securityService := services.NewSecurityService(db)
	transactionService := services.NewTransactionService(db, config.DefaultAccounts, auditService)
	portfolioService := services.NewPortfolioService(db)
	exportService := services.NewExportService(portfolioService, transactionService)

	// Handlers
	securityHandler := handlers.NewSecurityHandler(securityService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	exportHandler := handlers.NewExportHandler(exportService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	securities := v1.Group("/securities")
	securities.POST("", securityHandler.CreateSecurity)
	securities.GET("", securityHandler.ListSecurities)
	securities.GET("/:id", securityHandler.GetSecurity)
	securities.PUT("/:id", securityHandler.UpdateSecurity)

	v1.GET("/catalogs", securityHandler.Catalogs)

	transactions := v1.Group("/transactions")
	transactions.POST("", transactionHandler.RecordTransaction)
	transactions.POST("/principal-repayment", transactionHandler.RecordPrincipalRepayment)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	v1.GET("/ledger", transactionHandler.Ledger)

	portfolio := v1.Group("/portfolio")
	portfolio.GET("/positions", portfolioHandler.Positions)
	portfolio.GET("/ladder", portfolioHandler.MaturityLadder)
	portfolio.GET("/cashflows", portfolioHandler.CashflowProjection)
	portfolio.GET("/issuers", portfolioHandler.IssuerConcentration)

	export := v1.Group("/export")
	export.GET("/positions.csv", exportHandler.PositionsCSV)
	export.GET("/ledger.csv", exportHandler.LedgerCSV)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// isinCounter keeps generated ISINs unique across tests sharing a database.
var isinCounter atomic.Int64

func nextISIN() string {
	return fmt.Sprintf("INE%07dF", isinCounter.Add(1))
}

// createSecurity registers a security and returns its bond ID.
func (app *testApp) createSecurity(t *testing.T, issuer, maturity string, couponRate, faceValue float64) string {
	t.Helper()
	body := fmt.Sprintf(`{"issuer":%q,"isin":%q,"maturity_date":%q,"frequency":"Semi-Annual","coupon_rate":%g,"face_value":%g}`,
		issuer, nextISIN(), maturity, couponRate, faceValue)
	rec := app.request("POST", "/api/v1/securities", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create security failed: %d %s", rec.Code, rec.Body.String())
	}
	security := parseJSON(t, rec)["security"].(map[string]interface{})
	return security["bond_id"].(string)
}

// recordTransaction posts a ledger entry and returns the created transaction.
func (app *testApp) recordTransaction(t *testing.T, bondID, account, tradeDate, txnType string, units, price, amount float64) map[string]interface{} {
	t.Helper()
	body := fmt.Sprintf(`{"bond_id":%q,"account":%q,"trade_date":%q,"transaction_type":%q,"units":%g,"price":%g,"amount":%g}`,
		bondID, account, tradeDate, txnType, units, price, amount)
	rec := app.request("POST", "/api/v1/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record transaction failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["transaction"].(map[string]interface{})
}
