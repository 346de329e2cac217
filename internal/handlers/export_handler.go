package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nivesh/internal/models"
	"nivesh/internal/services"
)

// ExportHandler serves the CSV download endpoints.
type ExportHandler struct {
	exportService services.ExportServicer
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService services.ExportServicer) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// PositionsCSV streams the open-positions export.
func (h *ExportHandler) PositionsCSV(c *gin.Context) {
	out, err := h.exportService.PositionsCSV()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="nivesh_positions.csv"`)
	c.Data(http.StatusOK, "text/csv", out)
}

// LedgerCSV streams the filtered ledger export.
func (h *ExportHandler) LedgerCSV(c *gin.Context) {
	filter := services.TransactionFilter{
		Account:      c.Query("account"),
		Type:         models.TransactionType(c.Query("type")),
		IssuerSearch: c.Query("issuer"),
	}

	out, err := h.exportService.LedgerCSV(filter)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="nivesh_ledger.csv"`)
	c.Data(http.StatusOK, "text/csv", out)
}
