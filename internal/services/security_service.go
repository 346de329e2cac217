package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "nivesh/internal/errors"
	"nivesh/internal/models"
	"nivesh/internal/pagination"
)

// securityService handles securities-master business logic.
type securityService struct {
	db *gorm.DB
}

// NewSecurityService creates a new SecurityServicer.
func NewSecurityService(db *gorm.DB) SecurityServicer {
	return &securityService{db: db}
}

// CreateSecurity registers a new bond in the securities master along with its
// metadata row. Metadata fields left empty fall back to catalog defaults.
func (s *securityService) CreateSecurity(issuer, isin string, maturity time.Time, frequency models.Frequency, couponRate, faceValue float64, meta MetadataInput) (*models.Security, error) {
	issuer = strings.TrimSpace(issuer)
	isin = strings.ToUpper(strings.TrimSpace(isin))

	if issuer == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "issuer is required")
	}
	if isin == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "isin is required")
	}
	if maturity.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "maturity date is required")
	}
	if couponRate < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "coupon rate cannot be negative")
	}
	if faceValue <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "face value must be positive")
	}

	security := &models.Security{
		Issuer:       issuer,
		ISIN:         isin,
		MaturityDate: maturity,
		Frequency:    frequency,
		CouponRate:   couponRate,
		FaceValue:    faceValue,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Security{}).Where("isin = ?", isin).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrDuplicateISIN
		}

		if err := tx.Create(security).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		metadata := models.DefaultMetadata(security.BondID)
		applyMetadataInput(&metadata, meta)
		if err := tx.Create(&metadata).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		security.Metadata = &metadata

		return nil
	})
	if err != nil {
		return nil, err
	}

	return security, nil
}

// GetSecurityByID retrieves a single security with its metadata.
func (s *securityService) GetSecurityByID(bondID string) (*models.Security, error) {
	var security models.Security
	if err := s.db.Preload("Metadata").Where("bond_id = ?", bondID).First(&security).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSecurityNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &security, nil
}

// ListSecurities returns a paginated view of the securities master, ordered
// by issuer then ISIN. An optional search term matches issuer or ISIN.
func (s *securityService) ListSecurities(search string, page pagination.PageRequest) (*pagination.PageResponse[models.Security], error) {
	page.Defaults()

	base := s.db.Model(&models.Security{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		base = base.Where("issuer LIKE ? OR isin LIKE ?", like, like)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var securities []models.Security
	if err := base.Preload("Metadata").
		Order("issuer, isin").
		Scopes(pagination.Paginate(page)).
		Find(&securities).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(securities, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateSecurity applies partial updates to a security and its metadata. The
// ISIN is immutable once recorded; historical transactions reference the bond
// by ID and the identifier must stay stable.
func (s *securityService) UpdateSecurity(bondID string, fields SecurityUpdateFields) (*models.Security, error) {
	security, err := s.GetSecurityByID(bondID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Issuer != nil && strings.TrimSpace(*fields.Issuer) != "" {
		updates["issuer"] = strings.TrimSpace(*fields.Issuer)
	}
	if fields.MaturityDate != nil && !fields.MaturityDate.IsZero() {
		updates["maturity_date"] = *fields.MaturityDate
	}
	if fields.Frequency != nil {
		updates["frequency"] = *fields.Frequency
	}
	if fields.CouponRate != nil {
		if *fields.CouponRate < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "coupon rate cannot be negative")
		}
		updates["coupon_rate"] = *fields.CouponRate
	}
	if fields.FaceValue != nil {
		if *fields.FaceValue <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "face value must be positive")
		}
		updates["face_value"] = *fields.FaceValue
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Security{}).Where("bond_id = ?", bondID).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if fields.Metadata != nil {
			metadata, err := ensureMetadata(tx, bondID)
			if err != nil {
				return err
			}
			applyMetadataInput(metadata, *fields.Metadata)
			if err := tx.Save(metadata).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reload to get fresh data
	if err := s.db.Preload("Metadata").Where("bond_id = ?", bondID).First(security).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return security, nil
}

// EnsureMetadata returns the metadata row for a bond, creating one with
// catalog defaults if the sparse table has no entry yet.
func (s *securityService) EnsureMetadata(bondID string) (*models.SecurityMetadata, error) {
	if _, err := s.GetSecurityByID(bondID); err != nil {
		return nil, err
	}
	return ensureMetadata(s.db, bondID)
}

func ensureMetadata(db *gorm.DB, bondID string) (*models.SecurityMetadata, error) {
	var metadata models.SecurityMetadata
	err := db.Where("bond_id = ?", bondID).
		Attrs(models.DefaultMetadata(bondID)).
		FirstOrCreate(&metadata).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &metadata, nil
}

func applyMetadataInput(metadata *models.SecurityMetadata, input MetadataInput) {
	if input.BondType != "" {
		metadata.BondType = input.BondType
	}
	if input.CreditRating != "" {
		metadata.CreditRating = input.CreditRating
	}
	if input.DayCount != "" {
		metadata.DayCount = input.DayCount
	}
	if input.IssueDate != nil {
		metadata.IssueDate = input.IssueDate
	}
	if input.CallDate != nil {
		metadata.CallDate = input.CallDate
	}
	if input.PutDate != nil {
		metadata.PutDate = input.PutDate
	}
	if input.Listing != "" {
		metadata.Listing = input.Listing
	}
	if input.Sector != "" {
		metadata.Sector = input.Sector
	}
	if input.Notes != "" {
		metadata.Notes = input.Notes
	}
}
