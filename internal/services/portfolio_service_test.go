package services

import (
	"math"
	"testing"
	"time"

	"nivesh/internal/models"
	"nivesh/internal/testutil"
)

func TestPositions(t *testing.T) {
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("weighted_average_cost_and_realized_pnl", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}
		security := testutil.CreateTestSecurityWith(t, db, "Issuer A", asOf.AddDate(3, 0, 0), models.FrequencySemiAnnual, 0.08, 1000)

		testutil.CreateTestBuy(t, db, security.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 10, 950)
		testutil.CreateTestBuy(t, db, security.BondID, "PRIMARY", asOf.AddDate(0, -6, 0), 10, 1050)
		testutil.CreateTestSell(t, db, security.BondID, "PRIMARY", asOf.AddDate(0, -1, 0), 10, 1200)

		positions, totals, err := svc.Positions()
		testutil.AssertNoError(t, err)

		if len(positions) != 1 {
			t.Fatalf("expected 1 position, got %d", len(positions))
		}
		p := positions[0]
		if p.CurrentUnits != 10 {
			t.Errorf("expected 10 units, got %v", p.CurrentUnits)
		}
		testutil.AssertInDelta(t, 1000, p.AvgBuyPrice, 1e-9, "avg buy price")
		// Sold 10 at 1200 against a weighted average cost of 1000.
		testutil.AssertInDelta(t, 2000, p.RealizedPnL, 1e-9, "realized pnl")
		testutil.AssertInDelta(t, 10000, p.CostBasis, 1e-9, "cost basis")
		testutil.AssertInDelta(t, 10000, p.FaceValue, 1e-9, "position face value")
		testutil.AssertInDelta(t, 800, p.AnnualCouponIncome, 1e-9, "annual coupon income")
		testutil.AssertInDelta(t, 2000, totals.TotalRealizedPnL, 1e-9, "total realized pnl")
	})

	t.Run("fully_exited_position_skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}
		security := testutil.CreateTestSecurityWith(t, db, "Issuer A", asOf.AddDate(3, 0, 0), models.FrequencyAnnual, 0.08, 1000)

		testutil.CreateTestBuy(t, db, security.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 10, 1000)
		testutil.CreateTestSell(t, db, security.BondID, "PRIMARY", asOf.AddDate(0, -1, 0), 10, 1100)

		positions, totals, err := svc.Positions()
		testutil.AssertNoError(t, err)

		if len(positions) != 0 {
			t.Fatalf("expected no open positions, got %d", len(positions))
		}
		if totals.NumPositions != 0 {
			t.Errorf("expected zero positions in totals, got %d", totals.NumPositions)
		}
	})

	t.Run("principal_repayment_reduces_cost_basis", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}
		security := testutil.CreateTestSecurityWith(t, db, "Issuer A", asOf.AddDate(3, 0, 0), models.FrequencyAnnual, 0.08, 1000)

		testutil.CreateTestBuy(t, db, security.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 10, 1000)
		testutil.CreateTestTransaction(t, db, security.BondID, "PRIMARY", asOf.AddDate(0, -2, 0), models.TransactionTypePrincipalRepayment, 0, 0, 2500)
		testutil.CreateTestTransaction(t, db, security.BondID, "PRIMARY", asOf.AddDate(0, -3, 0), models.TransactionTypeInterestReceipt, 0, 0, 400)

		positions, totals, err := svc.Positions()
		testutil.AssertNoError(t, err)

		if len(positions) != 1 {
			t.Fatalf("expected 1 position, got %d", len(positions))
		}
		p := positions[0]
		testutil.AssertInDelta(t, 7500, p.CostBasis, 1e-9, "cost basis after repayment")
		testutil.AssertInDelta(t, 2500, p.PrincipalRepaid, 1e-9, "principal repaid")
		testutil.AssertInDelta(t, 400, p.InterestReceived, 1e-9, "interest received")
		testutil.AssertInDelta(t, 2500, totals.TotalPrincipalRepaid, 1e-9, "total principal repaid")
	})

	t.Run("accounts_partition_independently", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}
		security := testutil.CreateTestSecurityWith(t, db, "Issuer A", asOf.AddDate(3, 0, 0), models.FrequencyAnnual, 0.08, 1000)

		testutil.CreateTestBuy(t, db, security.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 10, 1000)
		testutil.CreateTestBuy(t, db, security.BondID, "JOINT", asOf.AddDate(-1, 0, 0), 5, 980)

		positions, totals, err := svc.Positions()
		testutil.AssertNoError(t, err)

		if len(positions) != 2 {
			t.Fatalf("expected 2 positions, got %d", len(positions))
		}
		if totals.NumAccounts != 2 || totals.NumIssuers != 1 {
			t.Errorf("expected 2 accounts and 1 issuer, got %d / %d", totals.NumAccounts, totals.NumIssuers)
		}
	})

	t.Run("weights_sum_to_one", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}
		a := testutil.CreateTestSecurityWith(t, db, "Issuer A", asOf.AddDate(2, 0, 0), models.FrequencyAnnual, 0.08, 1000)
		b := testutil.CreateTestSecurityWith(t, db, "Issuer B", asOf.AddDate(4, 0, 0), models.FrequencySemiAnnual, 0.09, 1000)

		testutil.CreateTestBuy(t, db, a.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 10, 1000)
		testutil.CreateTestBuy(t, db, b.BondID, "JOINT", asOf.AddDate(-1, 0, 0), 30, 990)

		positions, totals, err := svc.Positions()
		testutil.AssertNoError(t, err)

		var weightSum float64
		for _, p := range positions {
			if p.Weight <= 0 {
				t.Errorf("expected positive weight, got %v", p.Weight)
			}
			weightSum += p.Weight
		}
		testutil.AssertInDelta(t, 1, weightSum, 1e-9, "weight sum")

		// Weighted means must sit between the per-position values.
		low := math.Min(positions[0].NominalYield, positions[1].NominalYield)
		high := math.Max(positions[0].NominalYield, positions[1].NominalYield)
		if totals.WeightedNominalYield < low || totals.WeightedNominalYield > high {
			t.Errorf("weighted nominal yield %v outside [%v, %v]", totals.WeightedNominalYield, low, high)
		}
	})

	t.Run("par_purchase_yield_to_cost_near_coupon", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}
		security := testutil.CreateTestSecurityWith(t, db, "Issuer A", asOf.AddDate(5, 0, 0), models.FrequencySemiAnnual, 0.085, 1000)

		testutil.CreateTestBuy(t, db, security.BondID, "PRIMARY", asOf.AddDate(0, -1, 0), 10, 1000)

		positions, _, err := svc.Positions()
		testutil.AssertNoError(t, err)

		if len(positions) != 1 {
			t.Fatalf("expected 1 position, got %d", len(positions))
		}
		testutil.AssertInDelta(t, 0.085, positions[0].YieldToCost, 1e-6, "yield to cost at par")
		if positions[0].MacaulayDuration <= 0 {
			t.Errorf("expected positive duration, got %v", positions[0].MacaulayDuration)
		}
		if positions[0].ModifiedDuration >= positions[0].MacaulayDuration {
			t.Errorf("modified duration %v should be below macaulay %v", positions[0].ModifiedDuration, positions[0].MacaulayDuration)
		}
	})

	t.Run("discount_purchase_raises_yield", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}
		security := testutil.CreateTestSecurityWith(t, db, "Issuer A", asOf.AddDate(5, 0, 0), models.FrequencySemiAnnual, 0.085, 1000)

		testutil.CreateTestBuy(t, db, security.BondID, "PRIMARY", asOf.AddDate(0, -1, 0), 10, 950)

		positions, _, err := svc.Positions()
		testutil.AssertNoError(t, err)

		if positions[0].YieldToCost <= 0.085 {
			t.Errorf("expected yield above coupon for discount purchase, got %v", positions[0].YieldToCost)
		}
	})

	t.Run("orphaned_transactions_skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}
		security := testutil.CreateTestSecurityWith(t, db, "Issuer A", asOf.AddDate(3, 0, 0), models.FrequencyAnnual, 0.08, 1000)

		testutil.CreateTestBuy(t, db, security.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 10, 1000)
		testutil.CreateTestBuy(t, db, "deleted-bond-id", "PRIMARY", asOf.AddDate(-1, 0, 0), 10, 1000)

		positions, _, err := svc.Positions()
		testutil.AssertNoError(t, err)

		if len(positions) != 1 {
			t.Fatalf("expected orphan to be skipped, got %d positions", len(positions))
		}
	})

	t.Run("empty_ledger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}

		positions, totals, err := svc.Positions()
		testutil.AssertNoError(t, err)

		if len(positions) != 0 {
			t.Errorf("expected no positions, got %d", len(positions))
		}
		if totals.TotalCostBasis != 0 || totals.PortfolioYieldOnCost != 0 {
			t.Errorf("expected zero totals, got %+v", totals)
		}
	})

	t.Run("metadata_enriches_position", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}
		security := testutil.CreateTestSecurityWith(t, db, "Issuer A", asOf.AddDate(3, 0, 0), models.FrequencyAnnual, 0.08, 1000)
		db.Model(security.Metadata).Updates(map[string]interface{}{"credit_rating": "AA", "sector": "Infrastructure"})

		testutil.CreateTestBuy(t, db, security.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 10, 1000)

		positions, _, err := svc.Positions()
		testutil.AssertNoError(t, err)

		if positions[0].CreditRating != "AA" {
			t.Errorf("expected rating AA, got %s", positions[0].CreditRating)
		}
		if positions[0].Sector != "Infrastructure" {
			t.Errorf("expected sector Infrastructure, got %s", positions[0].Sector)
		}
	})
}

func TestMaturityLadder(t *testing.T) {
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("buckets_positions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}

		near := testutil.CreateTestSecurityWith(t, db, "Near Corp", asOf.AddDate(0, 2, 0), models.FrequencyAnnual, 0.07, 1000)
		far := testutil.CreateTestSecurityWith(t, db, "Far Corp", asOf.AddDate(10, 0, 0), models.FrequencyAnnual, 0.08, 1000)
		testutil.CreateTestBuy(t, db, near.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 10, 1000)
		testutil.CreateTestBuy(t, db, far.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 5, 1000)

		rungs, err := svc.MaturityLadder()
		testutil.AssertNoError(t, err)

		if len(rungs) != 7 {
			t.Fatalf("expected 7 rungs, got %d", len(rungs))
		}
		if rungs[0].Bucket != "0-3 Months" || rungs[0].Positions != 1 {
			t.Errorf("expected the near bond in 0-3 Months, got %+v", rungs[0])
		}
		if rungs[6].Bucket != "5+ Years" || rungs[6].Positions != 1 {
			t.Errorf("expected the far bond in 5+ Years, got %+v", rungs[6])
		}
		testutil.AssertInDelta(t, 10000, rungs[0].CostBasis, 1e-9, "near rung cost basis")

		var positions int
		for _, r := range rungs {
			positions += r.Positions
		}
		if positions != 2 {
			t.Errorf("expected 2 positions across rungs, got %d", positions)
		}
	})
}

func TestCashflowProjection(t *testing.T) {
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("projects_coupons_and_principal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}
		maturity := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
		security := testutil.CreateTestSecurityWith(t, db, "Issuer A", maturity, models.FrequencyQuarterly, 0.08, 1000)

		testutil.CreateTestBuy(t, db, security.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 10, 1000)

		projection, err := svc.CashflowProjection()
		testutil.AssertNoError(t, err)

		// Four quarterly coupons remain; each is 1000*0.08/4*10 = 200.
		if len(projection.Cashflows) != 4 {
			t.Fatalf("expected 4 cashflows, got %d", len(projection.Cashflows))
		}
		testutil.AssertInDelta(t, 800, projection.TotalFutureCoupons, 1e-9, "total future coupons")
		testutil.AssertInDelta(t, 10000, projection.TotalFuturePrincipal, 1e-9, "total future principal")

		last := projection.Cashflows[len(projection.Cashflows)-1]
		if !last.Date.Equal(maturity) {
			t.Errorf("expected final cashflow at maturity, got %v", last.Date)
		}
		if last.Principal != 10000 {
			t.Errorf("expected principal on the maturity flow, got %v", last.Principal)
		}

		if len(projection.Monthly) != 4 {
			t.Fatalf("expected 4 monthly aggregates, got %d", len(projection.Monthly))
		}
		if projection.Monthly[0].Month != "2026-09" {
			t.Errorf("expected first month 2026-09, got %s", projection.Monthly[0].Month)
		}
	})

	t.Run("empty_portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}

		projection, err := svc.CashflowProjection()
		testutil.AssertNoError(t, err)

		if len(projection.Cashflows) != 0 || len(projection.Monthly) != 0 {
			t.Errorf("expected empty projection, got %+v", projection)
		}
	})
}

func TestIssuerConcentration(t *testing.T) {
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("largest_exposure_first", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &portfolioService{db: db, now: func() time.Time { return asOf }}
		a := testutil.CreateTestSecurityWith(t, db, "Small Corp", asOf.AddDate(3, 0, 0), models.FrequencyAnnual, 0.08, 1000)
		b := testutil.CreateTestSecurityWith(t, db, "Big Corp", asOf.AddDate(3, 0, 0), models.FrequencyAnnual, 0.09, 1000)

		testutil.CreateTestBuy(t, db, a.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 10, 1000)
		testutil.CreateTestBuy(t, db, b.BondID, "PRIMARY", asOf.AddDate(-1, 0, 0), 30, 1000)
		testutil.CreateTestBuy(t, db, b.BondID, "JOINT", asOf.AddDate(-1, 0, 0), 10, 1000)

		exposures, err := svc.IssuerConcentration()
		testutil.AssertNoError(t, err)

		if len(exposures) != 2 {
			t.Fatalf("expected 2 issuers, got %d", len(exposures))
		}
		if exposures[0].Issuer != "Big Corp" {
			t.Errorf("expected Big Corp first, got %s", exposures[0].Issuer)
		}
		if exposures[0].Positions != 2 {
			t.Errorf("expected 2 positions for Big Corp, got %d", exposures[0].Positions)
		}
		testutil.AssertInDelta(t, 0.8, exposures[0].Weight, 1e-9, "big corp weight")
		testutil.AssertInDelta(t, 0.2, exposures[1].Weight, 1e-9, "small corp weight")
		testutil.AssertInDelta(t, 0.09, exposures[0].WeightedNominalYield, 1e-9, "big corp nominal yield")
	})
}
