package models

import (
	"time"

	"gorm.io/gorm"

	"nivesh/internal/uuid"
)

// TransactionType represents the type of ledger entry.
type TransactionType string

const (
	TransactionTypeBuy                TransactionType = "Buy"
	TransactionTypeSell               TransactionType = "Sell"
	TransactionTypeInterestReceipt    TransactionType = "Interest_Receipt"
	TransactionTypePrincipalRepayment TransactionType = "Principal_Repayment"
)

// TransactionTypes lists all valid ledger entry types.
var TransactionTypes = []TransactionType{
	TransactionTypeBuy,
	TransactionTypeSell,
	TransactionTypeInterestReceipt,
	TransactionTypePrincipalRepayment,
}

// IsCashOnly reports whether the type carries cash only (no units, no price).
func (t TransactionType) IsCashOnly() bool {
	return t == TransactionTypeInterestReceipt || t == TransactionTypePrincipalRepayment
}

// Transaction is one immutable ledger entry. The transactions table is the
// sole source of truth: positions and P&L are rederived from it on every
// read. Edits and deletes are explicit corrective operations, recorded in
// the audit trail.
//
// For Sell entries units are stored negated; for cash-only entries units and
// price are zero and amount carries the cash value.
type Transaction struct {
	TransactionID string          `gorm:"column:transaction_id;type:uuid;primaryKey" json:"transaction_id"`
	BondID        string          `gorm:"column:bond_id;type:uuid;not null;index" json:"bond_id"`
	Account       string          `gorm:"not null" json:"account"`
	TradeDate     time.Time       `gorm:"not null" json:"trade_date"`
	Type          TransactionType `gorm:"column:transaction_type;not null" json:"transaction_type"`
	Units         float64         `gorm:"not null" json:"units"`
	Price         float64         `gorm:"not null" json:"price"`
	Amount        float64         `gorm:"not null" json:"amount"`
	Notes         string          `json:"notes,omitempty"`

	Security *Security `gorm:"foreignKey:BondID;references:BondID" json:"security,omitempty"`
}

// BeforeCreate assigns a UUIDv7 primary key for new records.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TransactionID == "" {
		t.TransactionID = uuid.New()
	}
	return nil
}
