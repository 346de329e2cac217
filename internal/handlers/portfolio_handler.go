package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nivesh/internal/services"
)

// PortfolioHandler serves the derived positions and analytics reports.
type PortfolioHandler struct {
	portfolioService services.PortfolioServicer
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioService services.PortfolioServicer) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

// Positions returns all open positions with portfolio totals.
func (h *PortfolioHandler) Positions(c *gin.Context) {
	positions, totals, err := h.portfolioService.Positions()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions, "totals": totals})
}

// MaturityLadder returns the bucketed maturity report.
func (h *PortfolioHandler) MaturityLadder(c *gin.Context) {
	rungs, err := h.portfolioService.MaturityLadder()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ladder": rungs})
}

// CashflowProjection returns the forward cashflow report.
func (h *PortfolioHandler) CashflowProjection(c *gin.Context) {
	projection, err := h.portfolioService.CashflowProjection()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, projection)
}

// IssuerConcentration returns per-issuer exposure.
func (h *PortfolioHandler) IssuerConcentration(c *gin.Context) {
	exposures, err := h.portfolioService.IssuerConcentration()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issuers": exposures})
}
