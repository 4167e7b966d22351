package catalog

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/lube-storefront/internal/model"
)

func product(id, brand, grade string, price int64) model.Product {
	return model.Product{ID: id, Brand: brand, Grade: grade, Price: decimal.NewFromInt(price), Stock: 1}
}

func ids(ps []model.Product) string {
	var b []string
	for _, p := range ps {
		b = append(b, p.ID)
	}
	return strings.Join(b, ",")
}

func TestApply(t *testing.T) {
	all := []model.Product{
		product("a", "Motul", "5W-30", 300),
		product("b", "Castrol", "5W-30", 100),
		product("c", "Shell", "10W-40", 200),
		product("d", "Castrol", "0W-20", 250),
	}
	tests := []struct {
		name string
		f    Filter
		s    Sort
		want string
	}{
		{"no filter keeps order", Filter{}, SortNone, "a,b,c,d"},
		{"brand", Filter{Brand: "Castrol"}, SortNone, "b,d"},
		{"grade", Filter{Grade: "5W-30"}, SortPriceAsc, "b,a"},
		{"price window", Filter{MinPrice: ParsePrice("150"), MaxPrice: ParsePrice("260")}, SortPriceDesc, "d,c"},
		{"brand asc", Filter{}, SortBrandAsc, "b,d,a,c"},
		{"brand desc", Filter{}, SortBrandDesc, "c,a,b,d"},
		{"nothing matches", Filter{Brand: "Elf"}, SortPriceAsc, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(Apply(all, tt.f, tt.s)); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
	if ids(all) != "a,b,c,d" {
		t.Fatal("Apply mutated its input")
	}
}

func TestParseHelpers(t *testing.T) {
	if ParsePrice("abc") != nil || ParsePrice(" ") != nil {
		t.Fatal("malformed price should be ignored")
	}
	if ParseSort("price-desc") != SortPriceDesc || ParseSort("random") != SortNone {
		t.Fatal("ParseSort")
	}
}

func TestBrands(t *testing.T) {
	got := Brands([]model.Product{product("1", "Shell", "", 1), product("2", "Castrol", "", 1), product("3", "Shell", "", 1)})
	if strings.Join(got, ",") != "Castrol,Shell" {
		t.Fatalf("brands = %v", got)
	}
}

func TestRenderDescriptionEscapesHTML(t *testing.T) {
	out := string(RenderDescription("**Full synthetic**<script>alert(1)</script>"))
	if !strings.Contains(out, "<strong>Full synthetic</strong>") {
		t.Fatalf("markdown not rendered: %s", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("raw html passed through: %s", out)
	}
}
