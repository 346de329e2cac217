package services

import (
	"time"

	"nivesh/internal/bondmath"
	"nivesh/internal/models"
	"nivesh/internal/pagination"
)

// MetadataInput carries optional enrichment fields for a security. Empty
// strings and nil dates leave the existing (or default) value in place.
type MetadataInput struct {
	BondType     string
	CreditRating string
	DayCount     string
	IssueDate    *time.Time
	CallDate     *time.Time
	PutDate      *time.Time
	Listing      string
	Sector       string
	Notes        string
}

// SecurityUpdateFields holds optional updates for a security. Nil pointers
// mean "leave unchanged". The ISIN is immutable and has no field here.
type SecurityUpdateFields struct {
	Issuer       *string
	MaturityDate *time.Time
	Frequency    *models.Frequency
	CouponRate   *float64
	FaceValue    *float64
	Metadata     *MetadataInput
}

// SecurityServicer defines the contract for securities-master business logic.
type SecurityServicer interface {
	CreateSecurity(issuer, isin string, maturity time.Time, frequency models.Frequency, couponRate, faceValue float64, meta MetadataInput) (*models.Security, error)
	GetSecurityByID(bondID string) (*models.Security, error)
	ListSecurities(search string, page pagination.PageRequest) (*pagination.PageResponse[models.Security], error)
	UpdateSecurity(bondID string, fields SecurityUpdateFields) (*models.Security, error)
	EnsureMetadata(bondID string) (*models.SecurityMetadata, error)
}

// TransactionFilter holds optional filter parameters for listing ledger entries.
type TransactionFilter struct {
	Account      string
	Type         models.TransactionType
	IssuerSearch string
}

// TransactionInput is the validated payload for recording or correcting a
// ledger entry.
type TransactionInput struct {
	BondID    string
	Account   string
	TradeDate time.Time
	Type      models.TransactionType
	Units     float64
	Price     float64
	Amount    float64
	Notes     string
}

// LedgerRow is one transaction joined with its security, shaped for the
// ledger view and CSV export.
type LedgerRow struct {
	TradeDate time.Time              `json:"trade_date"`
	Issuer    string                 `json:"issuer"`
	ISIN      string                 `json:"isin"`
	Account   string                 `json:"account"`
	Type      models.TransactionType `json:"transaction_type"`
	Units     float64                `json:"units"`
	Price     float64                `json:"price"`
	Amount    float64                `json:"amount"`
	Notes     string                 `json:"notes"`
}

// TransactionServicer defines the contract for ledger business logic.
type TransactionServicer interface {
	RecordTransaction(in TransactionInput) (*models.Transaction, error)
	RecordPrincipalRepayment(bondID, account string, tradeDate time.Time, amount float64, notes string, adjustFaceValue bool) (*models.Transaction, error)
	GetTransactionByID(transactionID string) (*models.Transaction, error)
	ListTransactions(filter TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(transactionID string, in TransactionInput) (*models.Transaction, error)
	DeleteTransaction(transactionID string) error
	Ledger(filter TransactionFilter) ([]LedgerRow, error)
}

// Position is the derived snapshot of one (security, account) holding with
// units still open. It is recomputed from the ledger on every read and never
// persisted.
type Position struct {
	BondID             string           `json:"bond_id"`
	Account            string           `json:"account"`
	Issuer             string           `json:"issuer"`
	ISIN               string           `json:"isin"`
	MaturityDate       time.Time        `json:"maturity_date"`
	CouponRate         float64          `json:"coupon_rate"`
	Frequency          models.Frequency `json:"frequency"`
	CurrentUnits       float64          `json:"current_units"`
	AvgBuyPrice        float64          `json:"avg_buy_price"`
	CostBasis          float64          `json:"cost_basis"`
	RealizedPnL        float64          `json:"realized_pnl"`
	InterestReceived   float64          `json:"interest_received"`
	PrincipalRepaid    float64          `json:"principal_repaid"`
	FaceValue          float64          `json:"position_face_value"`
	AnnualCouponIncome float64          `json:"annual_coupon_income"`
	NominalYield       float64          `json:"nominal_yield"`
	YieldToCost        float64          `json:"yield_to_cost"`
	MacaulayDuration   float64          `json:"macaulay_duration"`
	ModifiedDuration   float64          `json:"modified_duration"`
	DaysToMaturity     int              `json:"days_to_maturity"`
	YearsToMaturity    float64          `json:"years_to_maturity"`
	AccruedInterest    float64          `json:"accrued_interest"`
	HoldingDays        int              `json:"holding_days"`
	MaturityBucket     string           `json:"maturity_bucket"`
	Weight             float64          `json:"weight"`
	BondType           string           `json:"bond_type"`
	CreditRating       string           `json:"credit_rating"`
	Sector             string           `json:"sector"`
}

// PortfolioTotals aggregates all open positions with cost-basis-weighted
// means for the yield and risk metrics.
type PortfolioTotals struct {
	TotalCostBasis           float64 `json:"total_cost_basis"`
	TotalFaceValue           float64 `json:"total_face_value"`
	TotalAnnualCoupon        float64 `json:"total_annual_coupon"`
	TotalAccruedInterest     float64 `json:"total_accrued_interest"`
	TotalInterestReceived    float64 `json:"total_interest_received"`
	TotalPrincipalRepaid     float64 `json:"total_principal_repaid"`
	TotalRealizedPnL         float64 `json:"total_realized_pnl"`
	NumPositions             int     `json:"num_positions"`
	NumIssuers               int     `json:"num_issuers"`
	NumAccounts              int     `json:"num_accounts"`
	WeightedNominalYield     float64 `json:"weighted_nominal_yield"`
	WeightedYieldToCost      float64 `json:"weighted_yield_to_cost"`
	WeightedMacaulayDuration float64 `json:"weighted_macaulay_duration"`
	WeightedModifiedDuration float64 `json:"weighted_modified_duration"`
	WeightedYearsToMaturity  float64 `json:"weighted_years_to_maturity"`
	PortfolioYieldOnCost     float64 `json:"portfolio_yield_on_cost"`
}

// LadderRung is one maturity bucket of the ladder report.
type LadderRung struct {
	Bucket    string  `json:"bucket"`
	CostBasis float64 `json:"cost_basis"`
	FaceValue float64 `json:"face_value"`
	Positions int     `json:"positions"`
}

// PositionCashflow is one projected cashflow tagged with its position.
type PositionCashflow struct {
	bondmath.Cashflow
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// MonthlyCashflow aggregates projected cashflows for one calendar month.
type MonthlyCashflow struct {
	Month     string  `json:"month"` // YYYY-MM
	Coupon    float64 `json:"coupon"`
	Principal float64 `json:"principal"`
	Total     float64 `json:"total"`
}

// CashflowProjection is the forward cashflow report across all open positions.
type CashflowProjection struct {
	Cashflows            []PositionCashflow `json:"cashflows"`
	Monthly              []MonthlyCashflow  `json:"monthly"`
	TotalFutureCoupons   float64            `json:"total_future_coupons"`
	TotalFuturePrincipal float64            `json:"total_future_principal"`
}

// IssuerExposure summarizes concentration in one issuer.
type IssuerExposure struct {
	Issuer               string  `json:"issuer"`
	CostBasis            float64 `json:"cost_basis"`
	FaceValue            float64 `json:"face_value"`
	Weight               float64 `json:"weight"`
	Positions            int     `json:"positions"`
	WeightedNominalYield float64 `json:"weighted_nominal_yield"`
	WeightedYieldToCost  float64 `json:"weighted_yield_to_cost"`
}

// PortfolioServicer is the positions/analytics engine: a pure function of
// the ledger's current contents at call time.
type PortfolioServicer interface {
	Positions() ([]Position, PortfolioTotals, error)
	MaturityLadder() ([]LadderRung, error)
	CashflowProjection() (*CashflowProjection, error)
	IssuerConcentration() ([]IssuerExposure, error)
}

// ExportServicer renders the externally-consumed CSV shapes.
type ExportServicer interface {
	PositionsCSV() ([]byte, error)
	LedgerCSV(filter TransactionFilter) ([]byte, error)
}

// AuditServicer defines the contract for the corrective-operation audit trail.
type AuditServicer interface {
	Log(action, resourceType, resourceID string, changes map[string]any)
}
