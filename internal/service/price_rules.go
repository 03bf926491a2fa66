package service

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	hundred         = decimal.NewFromInt(100)
)

// CalculatePriceFromDiscount applies a percentage discount to base. The
// result is exact; callers storing it round with discountedPrice.
func CalculatePriceFromDiscount(base, discount decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discount.Div(hundred))
	return base.Mul(factor)
}

// CalculateDiscountFromPrice returns the percentage discount price represents
// against base. A non-positive base yields zero.
func CalculateDiscountFromPrice(base, price decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Sub(price.Div(base)).Mul(hundred)
}

// discountedPrice is the stored form of a discount applied to base: cents.
func discountedPrice(base, discount decimal.Decimal) decimal.Decimal {
	return CalculatePriceFromDiscount(base, discount).Round(2)
}

func validatePrice(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return apperr.Invalid("%s must be greater than zero", field)
	}
	if !v.Equal(v.Round(2)) {
		return apperr.Invalid("%s must have at most two decimal places", field)
	}
	return nil
}

func validateCurrency(c string) error {
	if !currencyPattern.MatchString(c) {
		return apperr.Invalid("currency must be a three-letter uppercase code")
	}
	return nil
}

func validateDiscount(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(hundred) {
		return apperr.Invalid("discount percentage must be between 0 and 100")
	}
	return nil
}

func validateWindow(from time.Time, until *time.Time) error {
	if until != nil && until.Before(from) {
		return apperr.Invalid("effective until must not be before effective from")
	}
	return nil
}

// validatePriceOrDiscount requires exactly one of the two to be given.
func validatePriceOrDiscount(price, discount *decimal.Decimal) error {
	switch {
	case price == nil && discount == nil:
		return apperr.Invalid("either price or discount percentage is required")
	case price != nil && discount != nil:
		return apperr.Invalid("price and discount percentage are mutually exclusive")
	case price != nil:
		return validatePrice("price", *price)
	default:
		return validateDiscount(*discount)
	}
}

// validateDistinctCompanies rejects a bulk set naming a company twice.
func validateDistinctCompanies(entries []PrivatePriceInput) error {
	seen := make(map[uuid.UUID]int, len(entries))
	var errs error
	for i, e := range entries {
		if prev, ok := seen[e.CompanyID]; ok {
			errs = multierr.Append(errs, apperr.Invalid("entries %d and %d name the same company", prev, i))
			continue
		}
		seen[e.CompanyID] = i
	}
	return errs
}
