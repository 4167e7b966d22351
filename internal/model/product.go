package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Brands is the closed set of brands an administrator may assign.
var Brands = []string{
	"Castrol",
	"Motul",
	"Liqui Moly",
	"Mobil",
	"Shell",
	"Petrol Ofisi",
	"Elf",
	"SNC Oil",
}

// Grades is the closed set of viscosity grades.
var Grades = []string{
	"0W-20", "0W-30", "0W-40",
	"5W-30", "5W-40",
	"10W-30", "10W-40", "10W-60",
	"15W-40",
	"20W-50",
}

func IsBrand(s string) bool { return contains(Brands, s) }
func IsGrade(s string) bool { return contains(Grades, s) }

// PlaceholderImage is served when a product has no image.
const PlaceholderImage = "/static/default-product.svg"

// ProductImage carries either a data URL or a plain URL in Data.
type ProductImage struct {
	Data        string `json:"data"`
	ContentType string `json:"contentType,omitempty"`
}

// Product is a catalog entry. The API calls the brand "name" and the
// viscosity grade "category".
type Product struct {
	ID          string          `json:"_id"`
	Brand       string          `json:"name"`
	Grade       string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Image       *ProductImage   `json:"image,omitempty"`
}

var (
	ErrUnknownBrand  = errors.New("unknown brand")
	ErrUnknownGrade  = errors.New("unknown viscosity grade")
	ErrNegativePrice = errors.New("price must not be negative")
	ErrNegativeStock = errors.New("stock must not be negative")
)

// ImageSrc returns the image source or the placeholder.
func (p Product) ImageSrc() string {
	if p.Image == nil || p.Image.Data == "" {
		return PlaceholderImage
	}
	return p.Image.Data
}

// Validate enforces the closed sets and non-negative price and stock.
func (p Product) Validate() error {
	if !IsBrand(p.Brand) {
		return fmt.Errorf("%w: %q", ErrUnknownBrand, p.Brand)
	}
	if !IsGrade(p.Grade) {
		return fmt.Errorf("%w: %q", ErrUnknownGrade, p.Grade)
	}
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}
