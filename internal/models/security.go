package models

import (
	"time"

	"gorm.io/gorm"

	"nivesh/internal/uuid"
)

// Frequency is the coupon payment frequency of a security.
type Frequency string

const (
	FrequencyMonthly    Frequency = "Monthly"
	FrequencyQuarterly  Frequency = "Quarterly"
	FrequencySemiAnnual Frequency = "Semi-Annual"
	FrequencyAnnual     Frequency = "Annual"
)

// Frequencies lists all valid coupon frequencies.
var Frequencies = []Frequency{FrequencyMonthly, FrequencyQuarterly, FrequencySemiAnnual, FrequencyAnnual}

// PaymentsPerYear returns the number of coupon payments per year.
// Unknown frequencies fall back to 1 (annual).
func (f Frequency) PaymentsPerYear() int {
	switch f {
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	case FrequencySemiAnnual:
		return 2
	default:
		return 1
	}
}

// Security is one instrument in the securities master. Reference data is
// immutable after creation except for face_value, which may be decremented
// by a principal repayment recorded with the retroactive-adjustment flag.
type Security struct {
	BondID       string    `gorm:"column:bond_id;type:uuid;primaryKey" json:"bond_id"`
	Issuer       string    `gorm:"not null" json:"issuer"`
	ISIN         string    `gorm:"column:isin;not null;uniqueIndex" json:"isin"`
	MaturityDate time.Time `gorm:"not null" json:"maturity_date"`
	Frequency    Frequency `gorm:"not null" json:"frequency"`
	CouponRate   float64   `gorm:"not null" json:"coupon_rate"`
	FaceValue    float64   `gorm:"not null" json:"face_value"`

	Metadata *SecurityMetadata `gorm:"foreignKey:BondID;references:BondID" json:"metadata,omitempty"`
}

// BeforeCreate assigns a UUIDv7 primary key for new records.
func (s *Security) BeforeCreate(tx *gorm.DB) error {
	if s.BondID == "" {
		s.BondID = uuid.New()
	}
	return nil
}
