// internal/model/product.go
package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// prices travel as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// Prices must fit an IEEE 754 decimal128, the type the document store keeps
// them in.
const (
	maxPriceDigits   = 34
	minPriceExponent = -6176
	maxPriceExponent = 6111
)

// Product is stored in the document store, one document per (tenant, id).
type Product struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// Validate checks the caller-controlled fields of a product payload.
func (p *Product) Validate() error {
	var errs FieldErrors
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "must not be blank"})
	}
	switch {
	case p.Price.IsNegative():
		errs = append(errs, FieldError{Field: "price", Message: "must not be negative"})
	case p.Price.NumDigits() > maxPriceDigits:
		errs = append(errs, FieldError{Field: "price", Message: fmt.Sprintf("must have at most %d significant digits", maxPriceDigits)})
	case p.Price.Exponent() < minPriceExponent || p.Price.Exponent() > maxPriceExponent:
		errs = append(errs, FieldError{Field: "price", Message: "is out of range"})
	}
	return errs.OrNil()
}

func (p *Product) String() string {
	return fmt.Sprintf("product %s/%s", p.TenantID, p.ID)
}
