// Package catalog filters and orders the product list shown to shoppers.
package catalog

import (
	"bytes"
	"html/template"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/iliyamo/lube-storefront/internal/model"
)

// Sort orders supported by Apply.
type Sort string

const (
	SortNone      Sort = ""
	SortPriceAsc  Sort = "price-asc"
	SortPriceDesc Sort = "price-desc"
	SortBrandAsc  Sort = "brand-asc"
	SortBrandDesc Sort = "brand-desc"
)

// Sorts lists the orders offered in the catalog UI.
var Sorts = []Sort{SortPriceAsc, SortPriceDesc, SortBrandAsc, SortBrandDesc}

// ParseSort maps unknown values to SortNone.
func ParseSort(s string) Sort {
	for _, v := range Sorts {
		if string(v) == s {
			return v
		}
	}
	return SortNone
}

// Filter narrows the list. Zero fields do not filter.
type Filter struct {
	Brand    string
	Grade    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// ParsePrice returns nil for empty or malformed input.
func ParsePrice(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

func (f Filter) match(p model.Product) bool {
	if f.Brand != "" && p.Brand != f.Brand {
		return false
	}
	if f.Grade != "" && p.Grade != f.Grade {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// Apply returns a new slice with the products matching f ordered by s.
// The input is never modified.
func Apply(products []model.Product, f Filter, s Sort) []model.Product {
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if f.match(p) {
			out = append(out, p)
		}
	}
	switch s {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	case SortBrandAsc:
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Brand) < strings.ToLower(out[j].Brand) })
	case SortBrandDesc:
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Brand) > strings.ToLower(out[j].Brand) })
	}
	return out
}

// Brands returns the distinct brands present in products, sorted.
func Brands(products []model.Product) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range products {
		if p.Brand != "" && !seen[p.Brand] {
			seen[p.Brand] = true
			out = append(out, p.Brand)
		}
	}
	sort.Strings(out)
	return out
}

// md renders descriptions; raw HTML in the input is escaped.
var md = goldmark.New(goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()))

// RenderDescription turns a markdown description into safe HTML.
func RenderDescription(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}
