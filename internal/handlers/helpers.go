// Package handlers provides Gin HTTP handlers for the ledger API.
package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "nivesh/internal/errors"
	"nivesh/internal/logger"
	"nivesh/internal/pagination"
)

// dateFormat is the wire format for all dates. Trade and maturity dates are
// day-granular throughout the schema.
const dateFormat = "2006-01-02"

// parseDate parses a required YYYY-MM-DD field.
func parseDate(value, field string) (time.Time, error) {
	t, err := time.Parse(dateFormat, value)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+field+": expected YYYY-MM-DD")
	}
	return t, nil
}

// parseOptionalDate parses a YYYY-MM-DD field that may be absent.
func parseOptionalDate(value *string, field string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseDate(*value, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// bindPageRequest reads page/page_size query parameters.
func bindPageRequest(c *gin.Context) pagination.PageRequest {
	var page pagination.PageRequest
	_ = c.ShouldBindQuery(&page)
	page.Defaults()
	return page
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrInternalServer.Code,
			"message": apperrors.ErrInternalServer.Message,
		},
	})
}
