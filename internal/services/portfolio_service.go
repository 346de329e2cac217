package services

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"nivesh/internal/bondmath"
	apperrors "nivesh/internal/errors"
	"nivesh/internal/models"
)

// portfolioService derives positions and portfolio analytics from the ledger.
// Nothing here is persisted: every call reloads the tables and recomputes, so
// the view always reflects the ledger exactly, including after corrections.
type portfolioService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(db *gorm.DB) PortfolioServicer {
	return &portfolioService{db: db, now: time.Now}
}

// Positions partitions the ledger by (security, account), reduces each
// partition to a snapshot, and aggregates portfolio totals. Partitions whose
// net units are zero or negative are fully exited and skipped; transactions
// referencing an unknown security are skipped rather than failing the view.
func (s *portfolioService) Positions() ([]Position, PortfolioTotals, error) {
	asOf := s.now()

	var securities []models.Security
	if err := s.db.Preload("Metadata").Find(&securities).Error; err != nil {
		return nil, PortfolioTotals{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	securityByID := make(map[string]*models.Security, len(securities))
	for i := range securities {
		securityByID[securities[i].BondID] = &securities[i]
	}

	var transactions []models.Transaction
	if err := s.db.Order("trade_date, transaction_id").Find(&transactions).Error; err != nil {
		return nil, PortfolioTotals{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	type positionKey struct {
		bondID  string
		account string
	}
	groups := make(map[positionKey][]models.Transaction)
	var keys []positionKey
	for _, t := range transactions {
		key := positionKey{bondID: t.BondID, account: t.Account}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], t)
	}

	positions := []Position{}
	for _, key := range keys {
		security, ok := securityByID[key.bondID]
		if !ok {
			continue
		}
		if p, open := reducePosition(security, key.account, groups[key], asOf); open {
			positions = append(positions, p)
		}
	}

	sort.Slice(positions, func(i, j int) bool {
		a, b := positions[i], positions[j]
		if a.Issuer != b.Issuer {
			return a.Issuer < b.Issuer
		}
		if a.ISIN != b.ISIN {
			return a.ISIN < b.ISIN
		}
		return a.Account < b.Account
	})

	totals := aggregateTotals(positions)
	return positions, totals, nil
}

// reducePosition folds one (security, account) partition into a snapshot.
// The second return is false when the partition nets out to no open units.
func reducePosition(security *models.Security, account string, entries []models.Transaction, asOf time.Time) (Position, bool) {
	var (
		buyUnits, buyCost   float64
		sellUnits, proceeds float64
		interest, principal float64
		firstBuy            time.Time
	)
	for _, t := range entries {
		switch t.Type {
		case models.TransactionTypeBuy:
			buyUnits += t.Units
			buyCost += t.Amount
			if firstBuy.IsZero() || t.TradeDate.Before(firstBuy) {
				firstBuy = t.TradeDate
			}
		case models.TransactionTypeSell:
			sellUnits += -t.Units
			proceeds += t.Amount
		case models.TransactionTypeInterestReceipt:
			interest += t.Amount
		case models.TransactionTypePrincipalRepayment:
			principal += t.Amount
		}
	}

	currentUnits := buyUnits - sellUnits
	if currentUnits <= 0 {
		return Position{}, false
	}

	var avgBuyPrice float64
	if buyUnits > 0 {
		avgBuyPrice = buyCost / buyUnits
	}
	realizedPnL := proceeds - sellUnits*avgBuyPrice
	costBasis := currentUnits*avgBuyPrice - principal
	faceValue := currentUnits * security.FaceValue

	ppy := security.Frequency.PaymentsPerYear()
	facePerUnit := security.FaceValue
	costPerUnit := costBasis / currentUnits

	ytc := bondmath.YieldToCost(facePerUnit, costPerUnit, security.CouponRate, ppy, security.MaturityDate, asOf)
	discountYield := ytc
	if discountYield <= 0 {
		discountYield = security.CouponRate
	}
	macaulay := bondmath.MacaulayDuration(facePerUnit, security.CouponRate, ppy, security.MaturityDate, discountYield, asOf)
	modified := bondmath.ModifiedDuration(macaulay, discountYield, ppy)

	daysToMat := bondmath.DaysToMaturity(security.MaturityDate, asOf)
	accrued := bondmath.AccruedInterest(facePerUnit, security.CouponRate, ppy, nil, asOf) * currentUnits

	var holdingDays int
	if !firstBuy.IsZero() {
		holdingDays = daysBetween(firstBuy, asOf)
	}

	p := Position{
		BondID:             security.BondID,
		Account:            account,
		Issuer:             security.Issuer,
		ISIN:               security.ISIN,
		MaturityDate:       security.MaturityDate,
		CouponRate:         security.CouponRate,
		Frequency:          security.Frequency,
		CurrentUnits:       currentUnits,
		AvgBuyPrice:        avgBuyPrice,
		CostBasis:          costBasis,
		RealizedPnL:        realizedPnL,
		InterestReceived:   interest,
		PrincipalRepaid:    principal,
		FaceValue:          faceValue,
		AnnualCouponIncome: currentUnits * facePerUnit * security.CouponRate,
		NominalYield:       security.CouponRate,
		YieldToCost:        ytc,
		MacaulayDuration:   macaulay,
		ModifiedDuration:   modified,
		DaysToMaturity:     daysToMat,
		YearsToMaturity:    bondmath.YearsToMaturity(security.MaturityDate, asOf),
		AccruedInterest:    accrued,
		HoldingDays:        holdingDays,
		MaturityBucket:     bondmath.Bucket(daysToMat),
		BondType:           models.DefaultBondType,
		CreditRating:       models.DefaultCreditRating,
		Sector:             models.DefaultSector,
	}
	if security.Metadata != nil {
		p.BondType = security.Metadata.BondType
		p.CreditRating = security.Metadata.CreditRating
		p.Sector = security.Metadata.Sector
	}
	return p, true
}

// aggregateTotals sums the open positions and computes cost-basis-weighted
// means. Weights are written back onto the position slice; with zero total
// cost all weights and weighted means are zero.
func aggregateTotals(positions []Position) PortfolioTotals {
	totals := PortfolioTotals{NumPositions: len(positions)}

	issuers := make(map[string]struct{})
	accounts := make(map[string]struct{})
	for i := range positions {
		p := &positions[i]
		totals.TotalCostBasis += p.CostBasis
		totals.TotalFaceValue += p.FaceValue
		totals.TotalAnnualCoupon += p.AnnualCouponIncome
		totals.TotalAccruedInterest += p.AccruedInterest
		totals.TotalInterestReceived += p.InterestReceived
		totals.TotalPrincipalRepaid += p.PrincipalRepaid
		totals.TotalRealizedPnL += p.RealizedPnL
		issuers[p.Issuer] = struct{}{}
		accounts[p.Account] = struct{}{}
	}
	totals.NumIssuers = len(issuers)
	totals.NumAccounts = len(accounts)

	if totals.TotalCostBasis > 0 {
		for i := range positions {
			p := &positions[i]
			p.Weight = p.CostBasis / totals.TotalCostBasis
			totals.WeightedNominalYield += p.NominalYield * p.Weight
			totals.WeightedYieldToCost += p.YieldToCost * p.Weight
			totals.WeightedMacaulayDuration += p.MacaulayDuration * p.Weight
			totals.WeightedModifiedDuration += p.ModifiedDuration * p.Weight
			totals.WeightedYearsToMaturity += p.YearsToMaturity * p.Weight
		}
		totals.PortfolioYieldOnCost = totals.TotalAnnualCoupon / totals.TotalCostBasis
	}
	return totals
}

// MaturityLadder buckets open positions by time to maturity. Every bucket is
// reported, empty ones with zero values, nearest first.
func (s *portfolioService) MaturityLadder() ([]LadderRung, error) {
	positions, _, err := s.Positions()
	if err != nil {
		return nil, err
	}

	byBucket := make(map[string]*LadderRung, len(bondmath.Buckets))
	rungs := make([]LadderRung, len(bondmath.Buckets))
	for i, bucket := range bondmath.Buckets {
		rungs[i] = LadderRung{Bucket: bucket}
		byBucket[bucket] = &rungs[i]
	}

	for _, p := range positions {
		rung := byBucket[p.MaturityBucket]
		rung.CostBasis += p.CostBasis
		rung.FaceValue += p.FaceValue
		rung.Positions++
	}
	return rungs, nil
}

// CashflowProjection projects every remaining coupon and principal payment
// across open positions, flattened by date and aggregated by calendar month.
func (s *portfolioService) CashflowProjection() (*CashflowProjection, error) {
	asOf := s.now()
	positions, _, err := s.Positions()
	if err != nil {
		return nil, err
	}

	projection := &CashflowProjection{Cashflows: []PositionCashflow{}, Monthly: []MonthlyCashflow{}}
	for _, p := range positions {
		facePerUnit := p.FaceValue / p.CurrentUnits
		schedule := bondmath.Schedule(facePerUnit, p.CouponRate, p.Frequency.PaymentsPerYear(), p.MaturityDate, p.CurrentUnits, asOf)
		for _, cf := range schedule {
			projection.Cashflows = append(projection.Cashflows, PositionCashflow{
				Cashflow: cf,
				Issuer:   p.Issuer,
				Account:  p.Account,
			})
			projection.TotalFutureCoupons += cf.Coupon
			projection.TotalFuturePrincipal += cf.Principal
		}
	}

	sort.Slice(projection.Cashflows, func(i, j int) bool {
		return projection.Cashflows[i].Date.Before(projection.Cashflows[j].Date)
	})

	byMonth := make(map[string]*MonthlyCashflow)
	var months []string
	for _, cf := range projection.Cashflows {
		month := cf.Date.Format("2006-01")
		m, ok := byMonth[month]
		if !ok {
			m = &MonthlyCashflow{Month: month}
			byMonth[month] = m
			months = append(months, month)
		}
		m.Coupon += cf.Coupon
		m.Principal += cf.Principal
		m.Total += cf.Total
	}
	sort.Strings(months)
	for _, month := range months {
		projection.Monthly = append(projection.Monthly, *byMonth[month])
	}
	return projection, nil
}

// IssuerConcentration groups open positions by issuer, with cost-basis
// weights against the whole portfolio and weighted yields within each
// issuer. Largest exposure first.
func (s *portfolioService) IssuerConcentration() ([]IssuerExposure, error) {
	positions, totals, err := s.Positions()
	if err != nil {
		return nil, err
	}

	byIssuer := make(map[string]*IssuerExposure)
	var order []string
	for _, p := range positions {
		exposure, ok := byIssuer[p.Issuer]
		if !ok {
			exposure = &IssuerExposure{Issuer: p.Issuer}
			byIssuer[p.Issuer] = exposure
			order = append(order, p.Issuer)
		}
		exposure.CostBasis += p.CostBasis
		exposure.FaceValue += p.FaceValue
		exposure.Positions++
		exposure.WeightedNominalYield += p.NominalYield * p.CostBasis
		exposure.WeightedYieldToCost += p.YieldToCost * p.CostBasis
	}

	exposures := make([]IssuerExposure, 0, len(order))
	for _, issuer := range order {
		exposure := byIssuer[issuer]
		if exposure.CostBasis > 0 {
			exposure.WeightedNominalYield /= exposure.CostBasis
			exposure.WeightedYieldToCost /= exposure.CostBasis
		} else {
			exposure.WeightedNominalYield = 0
			exposure.WeightedYieldToCost = 0
		}
		if totals.TotalCostBasis > 0 {
			exposure.Weight = exposure.CostBasis / totals.TotalCostBasis
		}
		exposures = append(exposures, *exposure)
	}

	sort.Slice(exposures, func(i, j int) bool {
		if exposures[i].CostBasis != exposures[j].CostBasis {
			return exposures[i].CostBasis > exposures[j].CostBasis
		}
		return exposures[i].Issuer < exposures[j].Issuer
	})
	return exposures, nil
}

// daysBetween counts whole calendar days from a to b at day granularity.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
