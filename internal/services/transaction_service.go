package services

import (
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "nivesh/internal/errors"
	"nivesh/internal/models"
	"nivesh/internal/pagination"
)

// transactionService handles append-only ledger business logic.
type transactionService struct {
	db       *gorm.DB
	accounts []string
	audit    AuditServicer
}

// NewTransactionService creates a new TransactionServicer. The accounts slice
// is the configured account set; entries outside it are rejected.
func NewTransactionService(db *gorm.DB, accounts []string, audit AuditServicer) TransactionServicer {
	return &transactionService{db: db, accounts: accounts, audit: audit}
}

// RecordTransaction appends one validated entry to the ledger.
//
// Buy and Sell entries require units and price; the amount is always
// units*price and Sell units are stored negated. Cash-only entries carry the
// amount with units and price forced to zero.
func (s *transactionService) RecordTransaction(in TransactionInput) (*models.Transaction, error) {
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}
	if _, err := s.securityExists(in.BondID); err != nil {
		return nil, err
	}

	transaction := transactionFromInput(in)
	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// RecordPrincipalRepayment appends a Principal_Repayment entry. When
// adjustFaceValue is set the security's per-unit face value is permanently
// reduced by amount divided by the units currently held in the account, so
// future coupon and analytics calculations use the amortized face.
func (s *transactionService) RecordPrincipalRepayment(bondID, account string, tradeDate time.Time, amount float64, notes string, adjustFaceValue bool) (*models.Transaction, error) {
	in := TransactionInput{
		BondID:    bondID,
		Account:   account,
		TradeDate: tradeDate,
		Type:      models.TransactionTypePrincipalRepayment,
		Amount:    amount,
		Notes:     notes,
	}
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}
	security, err := s.securityExists(bondID)
	if err != nil {
		return nil, err
	}

	transaction := transactionFromInput(in)
	var perUnit float64

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var held float64
		row := tx.Model(&models.Transaction{}).
			Where("bond_id = ? AND account = ?", bondID, account).
			Select("COALESCE(SUM(units), 0)").
			Row()
		if err := row.Scan(&held); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if held > 0 {
			perUnit = amount / held
		}

		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if adjustFaceValue && perUnit > 0 {
			if err := tx.Model(&models.Security{}).
				Where("bond_id = ?", bondID).
				Update("face_value", gorm.Expr("face_value - ?", perUnit)).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if adjustFaceValue && perUnit > 0 {
		s.audit.Log("face_value_adjusted", "security", bondID, map[string]any{
			"previous_face_value": security.FaceValue,
			"adjustment_per_unit": perUnit,
			"repayment_amount":    amount,
			"account":             account,
		})
	}
	return transaction, nil
}

// GetTransactionByID retrieves a single ledger entry with its security.
func (s *transactionService) GetTransactionByID(transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Security").Where("transaction_id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// ListTransactions returns a paginated, filtered view of the ledger, most
// recent trade first.
func (s *transactionService) ListTransactions(filter TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.filtered(s.db.Model(&models.Transaction{}), filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Preload("Security").
		Order("transactions.trade_date DESC, transactions.transaction_id").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateTransaction is a corrective operation: it replaces the mutable fields
// of an existing entry and records the change in the audit trail. The bond
// reference is immutable; corrections that moved cash to a different security
// should be expressed as a delete plus a new entry.
func (s *transactionService) UpdateTransaction(transactionID string, in TransactionInput) (*models.Transaction, error) {
	existing, err := s.GetTransactionByID(transactionID)
	if err != nil {
		return nil, err
	}

	in.BondID = existing.BondID
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"account":          in.Account,
		"trade_date":       in.TradeDate,
		"transaction_type": in.Type,
		"units":            in.Units,
		"price":            in.Price,
		"amount":           in.Amount,
		"notes":            in.Notes,
	}
	if err := s.db.Model(&models.Transaction{}).Where("transaction_id = ?", transactionID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log("transaction_updated", "transaction", transactionID, map[string]any{
		"before": map[string]any{
			"account":          existing.Account,
			"trade_date":       existing.TradeDate,
			"transaction_type": existing.Type,
			"units":            existing.Units,
			"price":            existing.Price,
			"amount":           existing.Amount,
		},
		"after": updates,
	})

	return s.GetTransactionByID(transactionID)
}

// DeleteTransaction is a corrective operation: it removes an entry from the
// ledger and records the removal in the audit trail.
func (s *transactionService) DeleteTransaction(transactionID string) error {
	existing, err := s.GetTransactionByID(transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Where("transaction_id = ?", transactionID).Delete(&models.Transaction{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log("transaction_deleted", "transaction", transactionID, map[string]any{
		"bond_id":          existing.BondID,
		"account":          existing.Account,
		"trade_date":       existing.TradeDate,
		"transaction_type": existing.Type,
		"units":            existing.Units,
		"price":            existing.Price,
		"amount":           existing.Amount,
	})
	return nil
}

// Ledger returns the filtered ledger joined with security identifiers, most
// recent trade first. This is the shape consumed by the ledger view and the
// CSV export.
func (s *transactionService) Ledger(filter TransactionFilter) ([]LedgerRow, error) {
	rows := []LedgerRow{}
	err := s.filtered(s.db.Model(&models.Transaction{}), filter).
		Select("transactions.trade_date, securities.issuer, securities.isin, transactions.account, transactions.transaction_type AS type, transactions.units, transactions.price, transactions.amount, transactions.notes").
		Joins("JOIN securities ON securities.bond_id = transactions.bond_id").
		Order("transactions.trade_date DESC, transactions.transaction_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rows, nil
}

// filtered applies the optional ledger filters. Issuer search needs the
// securities join; the other filters hit the transactions table directly.
func (s *transactionService) filtered(base *gorm.DB, filter TransactionFilter) *gorm.DB {
	if filter.Account != "" {
		base = base.Where("transactions.account = ?", filter.Account)
	}
	if filter.Type != "" {
		base = base.Where("transactions.transaction_type = ?", filter.Type)
	}
	if search := strings.TrimSpace(filter.IssuerSearch); search != "" {
		base = base.Joins("JOIN securities AS sec_search ON sec_search.bond_id = transactions.bond_id").
			Where("sec_search.issuer LIKE ?", "%"+search+"%")
	}
	return base
}

// validateInput checks a ledger payload and normalizes it in place: Sell
// units are negated, Buy/Sell amounts recomputed from units*price, cash-only
// entries stripped of units and price.
func (s *transactionService) validateInput(in *TransactionInput) error {
	if in.BondID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "bond_id is required")
	}
	if !slices.Contains(s.accounts, in.Account) {
		return apperrors.ErrInvalidAccount
	}
	if !slices.Contains(models.TransactionTypes, in.Type) {
		return apperrors.ErrInvalidTransactionType
	}
	if in.TradeDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "trade date is required")
	}

	if in.Type.IsCashOnly() {
		if in.Amount <= 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
		}
		in.Units = 0
		in.Price = 0
		return nil
	}

	units := math.Abs(in.Units)
	if units <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "units must be positive")
	}
	if in.Price <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "price must be positive")
	}
	if in.Type == models.TransactionTypeSell {
		in.Units = -units
	} else {
		in.Units = units
	}
	in.Amount = units * in.Price
	return nil
}

func (s *transactionService) securityExists(bondID string) (*models.Security, error) {
	var security models.Security
	if err := s.db.Where("bond_id = ?", bondID).First(&security).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSecurityNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &security, nil
}

func transactionFromInput(in TransactionInput) *models.Transaction {
	return &models.Transaction{
		BondID:    in.BondID,
		Account:   in.Account,
		TradeDate: in.TradeDate,
		Type:      in.Type,
		Units:     in.Units,
		Price:     in.Price,
		Amount:    in.Amount,
		Notes:     in.Notes,
	}
}
