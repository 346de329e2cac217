package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "nivesh/internal/errors"
	"nivesh/internal/models"
	"nivesh/internal/services"
)

// SecurityHandler handles securities-master requests.
type SecurityHandler struct {
	securityService services.SecurityServicer
}

// NewSecurityHandler creates a new SecurityHandler.
func NewSecurityHandler(securityService services.SecurityServicer) *SecurityHandler {
	return &SecurityHandler{securityService: securityService}
}

// MetadataRequest is the optional enrichment payload nested in security
// requests. Absent fields fall back to catalog defaults on create and stay
// unchanged on update.
type MetadataRequest struct {
	BondType     string  `json:"bond_type" binding:"omitempty,bond_type"`
	CreditRating string  `json:"credit_rating" binding:"omitempty,credit_rating"`
	DayCount     string  `json:"day_count" binding:"omitempty,day_count"`
	IssueDate    *string `json:"issue_date"`
	CallDate     *string `json:"call_date"`
	PutDate      *string `json:"put_date"`
	Listing      string  `json:"listing" binding:"omitempty,listing"`
	Sector       string  `json:"sector" binding:"omitempty,max=100"`
	Notes        string  `json:"notes" binding:"omitempty,max=1000"`
}

// CreateSecurityRequest represents the payload for registering a bond.
type CreateSecurityRequest struct {
	Issuer       string           `json:"issuer" binding:"required,min=1,max=200"`
	ISIN         string           `json:"isin" binding:"required,isin"`
	MaturityDate string           `json:"maturity_date" binding:"required"`
	Frequency    string           `json:"frequency" binding:"required,frequency"`
	CouponRate   float64          `json:"coupon_rate" binding:"gte=0,lte=1"`
	FaceValue    float64          `json:"face_value" binding:"required,gt=0"`
	Metadata     *MetadataRequest `json:"metadata"`
}

// UpdateSecurityRequest represents a partial update. The ISIN is immutable
// and not accepted here.
type UpdateSecurityRequest struct {
	Issuer       *string          `json:"issuer" binding:"omitempty,min=1,max=200"`
	MaturityDate *string          `json:"maturity_date"`
	Frequency    *string          `json:"frequency" binding:"omitempty,frequency"`
	CouponRate   *float64         `json:"coupon_rate" binding:"omitempty,gte=0,lte=1"`
	FaceValue    *float64         `json:"face_value" binding:"omitempty,gt=0"`
	Metadata     *MetadataRequest `json:"metadata"`
}

// CreateSecurity registers a new bond with its metadata row.
func (h *SecurityHandler) CreateSecurity(c *gin.Context) {
	var req CreateSecurityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	maturity, err := parseDate(req.MaturityDate, "maturity_date")
	if err != nil {
		respondWithError(c, err)
		return
	}
	meta, err := metadataInput(req.Metadata)
	if err != nil {
		respondWithError(c, err)
		return
	}

	security, err := h.securityService.CreateSecurity(
		req.Issuer,
		req.ISIN,
		maturity,
		models.Frequency(req.Frequency),
		req.CouponRate,
		req.FaceValue,
		meta,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"security": security})
}

// GetSecurity returns one security with its metadata.
func (h *SecurityHandler) GetSecurity(c *gin.Context) {
	security, err := h.securityService.GetSecurityByID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"security": security})
}

// ListSecurities returns the securities master, optionally filtered by an
// issuer/ISIN search term.
func (h *SecurityHandler) ListSecurities(c *gin.Context) {
	page := bindPageRequest(c)
	result, err := h.securityService.ListSecurities(c.Query("search"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateSecurity applies a partial update to a security and its metadata.
func (h *SecurityHandler) UpdateSecurity(c *gin.Context) {
	var req UpdateSecurityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fields := services.SecurityUpdateFields{
		Issuer:     req.Issuer,
		CouponRate: req.CouponRate,
		FaceValue:  req.FaceValue,
	}
	if req.MaturityDate != nil {
		maturity, err := parseDate(*req.MaturityDate, "maturity_date")
		if err != nil {
			respondWithError(c, err)
			return
		}
		fields.MaturityDate = &maturity
	}
	if req.Frequency != nil {
		frequency := models.Frequency(*req.Frequency)
		fields.Frequency = &frequency
	}
	if req.Metadata != nil {
		meta, err := metadataInput(req.Metadata)
		if err != nil {
			respondWithError(c, err)
			return
		}
		fields.Metadata = &meta
	}

	security, err := h.securityService.UpdateSecurity(c.Param("id"), fields)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"security": security})
}

// Catalogs returns the reference sets the securities forms are built from.
func (h *SecurityHandler) Catalogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"frequencies":           models.Frequencies,
		"transaction_types":     models.TransactionTypes,
		"bond_types":            models.BondTypes,
		"credit_ratings":        models.CreditRatings,
		"day_count_conventions": models.DayCountConventions,
		"listings":              models.Listings,
	})
}

func metadataInput(req *MetadataRequest) (services.MetadataInput, error) {
	if req == nil {
		return services.MetadataInput{}, nil
	}

	issueDate, err := parseOptionalDate(req.IssueDate, "issue_date")
	if err != nil {
		return services.MetadataInput{}, err
	}
	callDate, err := parseOptionalDate(req.CallDate, "call_date")
	if err != nil {
		return services.MetadataInput{}, err
	}
	putDate, err := parseOptionalDate(req.PutDate, "put_date")
	if err != nil {
		return services.MetadataInput{}, err
	}

	return services.MetadataInput{
		BondType:     req.BondType,
		CreditRating: req.CreditRating,
		DayCount:     req.DayCount,
		IssueDate:    issueDate,
		CallDate:     callDate,
		PutDate:      putDate,
		Listing:      req.Listing,
		Sector:       req.Sector,
		Notes:        req.Notes,
	}, nil
}
