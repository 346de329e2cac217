package models

import "time"

// Metadata defaults applied when no enrichment row exists for a security.
const (
	DefaultBondType     = "NCD"
	DefaultCreditRating = "Unrated"
	DefaultDayCount     = "Actual/365"
	DefaultListing      = "Unlisted"
	DefaultSector       = "Financials"
)

// Reference catalogs for metadata enrichment fields.
var (
	BondTypes = []string{"NCD", "Corporate Bond", "Government Bond", "SDL", "T-Bill", "Tax-Free Bond", "Sovereign Gold Bond", "FD", "Other"}

	CreditRatings = []string{"AAA", "AA+", "AA", "AA-", "A+", "A", "A-", "BBB+", "BBB", "BBB-", "BB+", "BB", "BB-", "B", "C", "D", "Unrated"}

	DayCountConventions = []string{"30/360", "Actual/365", "Actual/360", "Actual/Actual"}

	Listings = []string{"Unlisted", "NSE", "BSE", "Both"}
)

// SecurityMetadata is the optional 1:1 enrichment record for a security.
// A row with defaults is created for any security that lacks one; the
// day-count convention is informational only in the current analytics.
type SecurityMetadata struct {
	BondID       string     `gorm:"column:bond_id;type:uuid;primaryKey" json:"bond_id"`
	BondType     string     `gorm:"default:NCD" json:"bond_type"`
	CreditRating string     `gorm:"default:Unrated" json:"credit_rating"`
	DayCount     string     `gorm:"default:Actual/365" json:"day_count"`
	IssueDate    *time.Time `json:"issue_date,omitempty"`
	CallDate     *time.Time `json:"call_date,omitempty"`
	PutDate      *time.Time `json:"put_date,omitempty"`
	Listing      string     `gorm:"default:Unlisted" json:"listing"`
	Sector       string     `gorm:"default:Financials" json:"sector"`
	Notes        string     `json:"notes,omitempty"`
}

// TableName pins the table to the persisted schema name.
func (SecurityMetadata) TableName() string {
	return "security_metadata"
}

// DefaultMetadata returns the documented default record for a security with
// no metadata row.
func DefaultMetadata(bondID string) SecurityMetadata {
	return SecurityMetadata{
		BondID:       bondID,
		BondType:     DefaultBondType,
		CreditRating: DefaultCreditRating,
		DayCount:     DefaultDayCount,
		Listing:      DefaultListing,
		Sector:       DefaultSector,
	}
}
