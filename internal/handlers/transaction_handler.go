package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "nivesh/internal/errors"
	"nivesh/internal/models"
	"nivesh/internal/services"
)

// TransactionHandler handles ledger requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// RecordTransactionRequest represents the payload for appending a ledger
// entry. Units and price apply to Buy/Sell; amount applies to cash-only
// types.
type RecordTransactionRequest struct {
	BondID    string  `json:"bond_id" binding:"required,uuid"`
	Account   string  `json:"account" binding:"required"`
	TradeDate string  `json:"trade_date" binding:"required"`
	Type      string  `json:"transaction_type" binding:"required,transaction_type"`
	Units     float64 `json:"units" binding:"gte=0"`
	Price     float64 `json:"price" binding:"gte=0"`
	Amount    float64 `json:"amount" binding:"gte=0"`
	Notes     string  `json:"notes" binding:"omitempty,max=1000"`
}

// UpdateTransactionRequest represents a corrective edit. The bond reference
// is immutable and not accepted here.
type UpdateTransactionRequest struct {
	Account   string  `json:"account" binding:"required"`
	TradeDate string  `json:"trade_date" binding:"required"`
	Type      string  `json:"transaction_type" binding:"required,transaction_type"`
	Units     float64 `json:"units" binding:"gte=0"`
	Price     float64 `json:"price" binding:"gte=0"`
	Amount    float64 `json:"amount" binding:"gte=0"`
	Notes     string  `json:"notes" binding:"omitempty,max=1000"`
}

// PrincipalRepaymentRequest represents the payload for the combined
// repayment + optional face-value adjustment operation.
type PrincipalRepaymentRequest struct {
	BondID          string  `json:"bond_id" binding:"required,uuid"`
	Account         string  `json:"account" binding:"required"`
	TradeDate       string  `json:"trade_date" binding:"required"`
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	Notes           string  `json:"notes" binding:"omitempty,max=1000"`
	AdjustFaceValue bool    `json:"adjust_face_value"`
}

// RecordTransaction appends one entry to the ledger.
func (h *TransactionHandler) RecordTransaction(c *gin.Context) {
	var req RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tradeDate, err := parseDate(req.TradeDate, "trade_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.RecordTransaction(services.TransactionInput{
		BondID:    req.BondID,
		Account:   req.Account,
		TradeDate: tradeDate,
		Type:      models.TransactionType(req.Type),
		Units:     req.Units,
		Price:     req.Price,
		Amount:    req.Amount,
		Notes:     req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// RecordPrincipalRepayment records a repayment and optionally amortizes the
// security's per-unit face value.
func (h *TransactionHandler) RecordPrincipalRepayment(c *gin.Context) {
	var req PrincipalRepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tradeDate, err := parseDate(req.TradeDate, "trade_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.RecordPrincipalRepayment(
		req.BondID,
		req.Account,
		tradeDate,
		req.Amount,
		req.Notes,
		req.AdjustFaceValue,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransaction returns one ledger entry with its security.
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transaction, err := h.transactionService.GetTransactionByID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// ListTransactions returns the filtered, paginated ledger.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	page := bindPageRequest(c)
	filter := services.TransactionFilter{
		Account:      c.Query("account"),
		Type:         models.TransactionType(c.Query("type")),
		IssuerSearch: c.Query("issuer"),
	}

	result, err := h.transactionService.ListTransactions(filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateTransaction corrects an existing ledger entry.
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tradeDate, err := parseDate(req.TradeDate, "trade_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Param("id"), services.TransactionInput{
		Account:   req.Account,
		TradeDate: tradeDate,
		Type:      models.TransactionType(req.Type),
		Units:     req.Units,
		Price:     req.Price,
		Amount:    req.Amount,
		Notes:     req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction removes a ledger entry.
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	if err := h.transactionService.DeleteTransaction(c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

// Ledger returns the full filtered ledger joined with security identifiers.
func (h *TransactionHandler) Ledger(c *gin.Context) {
	filter := services.TransactionFilter{
		Account:      c.Query("account"),
		Type:         models.TransactionType(c.Query("type")),
		IssuerSearch: c.Query("issuer"),
	}

	rows, err := h.transactionService.Ledger(filter)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledger": rows})
}
