package bondmath

import (
	"sort"
	"time"
)

// Cashflow is one projected future payment for a position.
type Cashflow struct {
	Date      time.Time `json:"date"`
	Coupon    float64   `json:"coupon"`
	Principal float64   `json:"principal"`
	Total     float64   `json:"total"`
	Type      string    `json:"type"`
}

// Cashflow entry types.
const (
	CashflowCoupon   = "Coupon"
	CashflowMaturity = "Maturity + Coupon"
)

// Schedule projects the remaining cashflows for a position of the given
// number of units: coupon dates are found by walking backward from maturity
// in whole coupon periods, keeping only dates strictly after asOf, and the
// maturity entry additionally carries the full principal. The result is
// ordered ascending by date and is empty for matured bonds.
func Schedule(facePerUnit, couponRate float64, paymentsPerYear int, maturity time.Time, units float64, asOf time.Time) []Cashflow {
	if paymentsPerYear <= 0 {
		paymentsPerYear = 1
	}
	monthsPerPeriod := 12 / paymentsPerYear

	maturity = dateOnly(maturity)
	asOf = dateOnly(asOf)

	couponPerPeriod := facePerUnit * couponRate / float64(paymentsPerYear) * units

	var dates []time.Time
	for d := maturity; d.After(asOf); d = addMonths(d, -monthsPerPeriod) {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	flows := make([]Cashflow, 0, len(dates))
	for _, d := range dates {
		cf := Cashflow{
			Date:   d,
			Coupon: couponPerPeriod,
			Total:  couponPerPeriod,
			Type:   CashflowCoupon,
		}
		if d.Equal(maturity) {
			cf.Principal = facePerUnit * units
			cf.Total += cf.Principal
			cf.Type = CashflowMaturity
		}
		flows = append(flows, cf)
	}
	return flows
}

// Maturity ladder buckets, nearest first.
var Buckets = []string{"0-3 Months", "3-6 Months", "6-12 Months", "1-2 Years", "2-3 Years", "3-5 Years", "5+ Years"}

// Bucket classifies days-to-maturity into a ladder reporting band.
func Bucket(daysToMaturity int) string {
	switch {
	case daysToMaturity <= 90:
		return "0-3 Months"
	case daysToMaturity <= 180:
		return "3-6 Months"
	case daysToMaturity <= 365:
		return "6-12 Months"
	case daysToMaturity <= 730:
		return "1-2 Years"
	case daysToMaturity <= 1095:
		return "2-3 Years"
	case daysToMaturity <= 1825:
		return "3-5 Years"
	default:
		return "5+ Years"
	}
}

// addMonths shifts t by the given number of months, clamping the day to the
// end of the target month instead of letting it spill over (Jan 31 minus one
// month is Dec 31, and Mar 31 minus one month is Feb 28/29).
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
