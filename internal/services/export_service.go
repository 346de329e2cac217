package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	apperrors "nivesh/internal/errors"
)

// exportService renders the externally-consumed CSV shapes. Column order is
// part of the interface: downstream spreadsheets key on it.
type exportService struct {
	portfolio    PortfolioServicer
	transactions TransactionServicer
}

// NewExportService creates a new ExportServicer.
func NewExportService(portfolio PortfolioServicer, transactions TransactionServicer) ExportServicer {
	return &exportService{portfolio: portfolio, transactions: transactions}
}

var positionsCSVHeader = []string{
	"issuer", "isin", "account", "credit_rating", "current_units", "cost_basis",
	"position_face_value", "nominal_yield", "yield_to_cost",
	"macaulay_duration", "modified_duration", "maturity_date", "annual_coupon_income",
	"interest_received", "days_to_maturity",
}

// PositionsCSV renders all open positions. Yields are rendered as
// percentages with two decimals, dates as YYYY-MM-DD.
func (s *exportService) PositionsCSV() ([]byte, error) {
	positions, _, err := s.portfolio.Positions()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(positionsCSVHeader); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, p := range positions {
		record := []string{
			p.Issuer,
			p.ISIN,
			p.Account,
			p.CreditRating,
			csvFloat(p.CurrentUnits),
			csvFloat(p.CostBasis),
			csvFloat(p.FaceValue),
			csvPercent(p.NominalYield),
			csvPercent(p.YieldToCost),
			csvFloat(p.MacaulayDuration),
			csvFloat(p.ModifiedDuration),
			p.MaturityDate.Format("2006-01-02"),
			csvFloat(p.AnnualCouponIncome),
			csvFloat(p.InterestReceived),
			strconv.Itoa(p.DaysToMaturity),
		}
		if err := w.Write(record); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return buf.Bytes(), nil
}

var ledgerCSVHeader = []string{
	"trade_date", "issuer", "isin", "account", "transaction_type",
	"units", "price", "amount", "notes",
}

// LedgerCSV renders the filtered ledger, most recent trade first.
func (s *exportService) LedgerCSV(filter TransactionFilter) ([]byte, error) {
	rows, err := s.transactions.Ledger(filter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ledgerCSVHeader); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, r := range rows {
		record := []string{
			r.TradeDate.Format("2006-01-02"),
			r.Issuer,
			r.ISIN,
			r.Account,
			string(r.Type),
			csvFloat(r.Units),
			csvFloat(r.Price),
			csvFloat(r.Amount),
			r.Notes,
		}
		if err := w.Write(record); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return buf.Bytes(), nil
}

func csvFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func csvPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
