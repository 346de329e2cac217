package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"nivesh/internal/models"

	"gorm.io/gorm"
)

// Accounts is the account set used by tests.
var Accounts = []string{"PRIMARY", "JOINT", "RETIREMENT", "TRUST"}

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NextISIN returns a unique, well-formed ISIN for fixtures.
func NextISIN() string {
	return fmt.Sprintf("INE%07dA", nextID()%10000000)
}

// CreateTestSecurity creates a semi-annual 1000-face bond maturing five years
// out, with a default metadata row.
func CreateTestSecurity(t *testing.T, db *gorm.DB) *models.Security {
	t.Helper()
	maturity := time.Now().AddDate(5, 0, 0)
	return CreateTestSecurityWith(t, db, "Test Issuer", maturity, models.FrequencySemiAnnual, 0.08, 1000)
}

// CreateTestSecurityWith creates a bond with the given terms and a default
// metadata row.
func CreateTestSecurityWith(t *testing.T, db *gorm.DB, issuer string, maturity time.Time, frequency models.Frequency, couponRate, faceValue float64) *models.Security {
	t.Helper()

	security := &models.Security{
		Issuer:       issuer,
		ISIN:         NextISIN(),
		MaturityDate: maturity,
		Frequency:    frequency,
		CouponRate:   couponRate,
		FaceValue:    faceValue,
	}
	if err := db.Create(security).Error; err != nil {
		t.Fatalf("failed to create test security: %v", err)
	}

	metadata := models.DefaultMetadata(security.BondID)
	if err := db.Create(&metadata).Error; err != nil {
		t.Fatalf("failed to create test security metadata: %v", err)
	}
	security.Metadata = &metadata
	return security
}

// CreateTestTransaction inserts one ledger entry directly, bypassing service
// validation. Sell units must already be negated by the caller.
func CreateTestTransaction(t *testing.T, db *gorm.DB, bondID, account string, tradeDate time.Time, txType models.TransactionType, units, price, amount float64) *models.Transaction {
	t.Helper()

	transaction := &models.Transaction{
		BondID:    bondID,
		Account:   account,
		TradeDate: tradeDate,
		Type:      txType,
		Units:     units,
		Price:     price,
		Amount:    amount,
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// CreateTestBuy inserts a Buy entry with amount = units*price.
func CreateTestBuy(t *testing.T, db *gorm.DB, bondID, account string, tradeDate time.Time, units, price float64) *models.Transaction {
	t.Helper()
	return CreateTestTransaction(t, db, bondID, account, tradeDate, models.TransactionTypeBuy, units, price, units*price)
}

// CreateTestSell inserts a Sell entry with negated units and amount =
// units*price.
func CreateTestSell(t *testing.T, db *gorm.DB, bondID, account string, tradeDate time.Time, units, price float64) *models.Transaction {
	t.Helper()
	return CreateTestTransaction(t, db, bondID, account, tradeDate, models.TransactionTypeSell, -units, price, units*price)
}
