// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"nivesh/internal/models"
)

// isinRegex matches the ISO 6166 shape: 2-letter country prefix, 9
// alphanumeric characters, 1 check digit. The check digit itself is not
// verified; issuers' paperwork has been known to fail it.
var isinRegex = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("isin", validateISIN)
		_ = v.RegisterValidation("frequency", validateFrequency)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("credit_rating", validateCreditRating)
		_ = v.RegisterValidation("day_count", validateDayCount)
		_ = v.RegisterValidation("listing", validateListing)
		_ = v.RegisterValidation("bond_type", validateBondType)
	}
}

func validateISIN(fl validator.FieldLevel) bool {
	return isinRegex.MatchString(fl.Field().String())
}

func validateFrequency(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, f := range models.Frequencies {
		if value == string(f) {
			return true
		}
	}
	return false
}

func validateTransactionType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, t := range models.TransactionTypes {
		if value == string(t) {
			return true
		}
	}
	return false
}

func validateCreditRating(fl validator.FieldLevel) bool {
	return contains(models.CreditRatings, fl.Field().String())
}

func validateDayCount(fl validator.FieldLevel) bool {
	return contains(models.DayCountConventions, fl.Field().String())
}

func validateListing(fl validator.FieldLevel) bool {
	return contains(models.Listings, fl.Field().String())
}

func validateBondType(fl validator.FieldLevel) bool {
	return contains(models.BondTypes, fl.Field().String())
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
