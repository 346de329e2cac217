// Package bondmath implements closed-form fixed income analytics: coupon
// and accrual math, Macaulay/modified duration, an IRR-style yield-to-cost
// solver, and forward cashflow schedule generation.
//
// All functions are pure. Dates are compared at day granularity and every
// function takes an explicit asOf date so results are reproducible. Degenerate
// inputs (matured bonds, zero cost, non-converging solves) yield zero values
// rather than errors; a partial portfolio view beats an aborted one.
package bondmath

import (
	"math"
	"time"
)

// daysPerYear is the average-year convention used throughout. The stored
// day-count convention on metadata is informational only at this point.
const daysPerYear = 365.25

// CouponPayment returns the periodic coupon for one unit of face value.
func CouponPayment(faceValue, couponRate float64, paymentsPerYear int) float64 {
	if paymentsPerYear <= 0 {
		paymentsPerYear = 1
	}
	return faceValue * couponRate / float64(paymentsPerYear)
}

// AccruedInterest estimates interest accrued since the last coupon. When
// lastCoupon is nil the accrual is approximated as half of one coupon period.
func AccruedInterest(faceValue, couponRate float64, paymentsPerYear int, lastCoupon *time.Time, asOf time.Time) float64 {
	if paymentsPerYear <= 0 {
		paymentsPerYear = 1
	}

	var daysAccrued float64
	if lastCoupon == nil {
		daysAccrued = daysPerYear / float64(paymentsPerYear) / 2
	} else {
		daysAccrued = float64(daysBetween(*lastCoupon, asOf))
	}

	dailyCoupon := faceValue * couponRate / daysPerYear
	return dailyCoupon * daysAccrued
}

// DaysToMaturity returns calendar days until maturity, clamped at zero:
// matured bonds report 0, never a negative count.
func DaysToMaturity(maturity, asOf time.Time) int {
	days := daysBetween(asOf, maturity)
	if days < 0 {
		return 0
	}
	return days
}

// YearsToMaturity returns DaysToMaturity expressed in average years.
func YearsToMaturity(maturity, asOf time.Time) float64 {
	return float64(DaysToMaturity(maturity, asOf)) / daysPerYear
}

// MacaulayDuration computes the coupon-weighted average time to cash receipt
// in years, discounting at the given annualized yield. Returns 0 for matured
// bonds, non-positive yields, or when no whole coupon period remains.
func MacaulayDuration(faceValue, couponRate float64, paymentsPerYear int, maturity time.Time, yield float64, asOf time.Time) float64 {
	years := YearsToMaturity(maturity, asOf)
	if years <= 0 || yield <= 0 {
		return 0
	}
	if paymentsPerYear <= 0 {
		paymentsPerYear = 1
	}

	nper := int(years * float64(paymentsPerYear))
	if nper <= 0 {
		return 0
	}

	periodicCoupon := faceValue * couponRate / float64(paymentsPerYear)
	periodicYield := yield / float64(paymentsPerYear)

	var pvWeightedSum, pvSum float64
	for t := 1; t <= nper; t++ {
		cf := periodicCoupon
		if t == nper {
			cf += faceValue
		}
		pv := cf / math.Pow(1+periodicYield, float64(t))
		pvWeightedSum += float64(t) / float64(paymentsPerYear) * pv
		pvSum += pv
	}

	if pvSum == 0 {
		return 0
	}
	return pvWeightedSum / pvSum
}

// ModifiedDuration converts a Macaulay duration into price sensitivity per
// unit yield change. A non-positive yield returns the Macaulay duration
// unchanged.
func ModifiedDuration(macaulay, yield float64, paymentsPerYear int) float64 {
	if yield <= 0 {
		return macaulay
	}
	if paymentsPerYear <= 0 {
		paymentsPerYear = 1
	}
	return macaulay / (1 + yield/float64(paymentsPerYear))
}

// YieldToCost solves for the annualized internal rate of return implied by
// paying costPerUnit today, receiving the periodic coupon until maturity,
// and redemption at facePerUnit. The number of remaining periods is
// fractional (days/365.25 × frequency). Returns 0.0 when the position has
// matured, cost is non-positive, or the solver fails to converge; callers
// treat that as "yield unknown".
func YieldToCost(facePerUnit, costPerUnit, couponRate float64, paymentsPerYear int, maturity, asOf time.Time) float64 {
	days := daysBetween(asOf, maturity)
	if days <= 0 || costPerUnit <= 0 {
		return 0
	}
	if paymentsPerYear <= 0 {
		paymentsPerYear = 1
	}

	nper := float64(days) / daysPerYear * float64(paymentsPerYear)
	if nper <= 0 {
		return 0
	}

	pmt := CouponPayment(facePerUnit, couponRate, paymentsPerYear)
	periodicRate, ok := solveRate(nper, pmt, -costPerUnit, facePerUnit)
	if !ok {
		return 0
	}
	return periodicRate * float64(paymentsPerYear)
}

// solveRate finds the periodic rate r satisfying the standard annuity
// equation fv + pv·(1+r)^n + pmt·((1+r)^n − 1)/r = 0 using Newton iteration
// with a numeric derivative. Reports false on non-convergence or a
// non-finite result.
func solveRate(nper, pmt, pv, fv float64) (float64, bool) {
	const (
		guess   = 0.1
		tol     = 1e-7
		maxIter = 100
		step    = 1e-6
	)

	f := func(r float64) float64 {
		if r == 0 {
			return fv + pv + pmt*nper
		}
		growth := math.Pow(1+r, nper)
		return fv + pv*growth + pmt*(growth-1)/r
	}

	rate := guess
	for i := 0; i < maxIter; i++ {
		y := f(rate)
		dy := (f(rate+step) - f(rate-step)) / (2 * step)
		if dy == 0 {
			return 0, false
		}
		next := rate - y/dy
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= -1 {
			return 0, false
		}
		if math.Abs(next-rate) < tol {
			return next, true
		}
		rate = next
	}
	return 0, false
}

// daysBetween returns whole calendar days from a to b, at day granularity.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
