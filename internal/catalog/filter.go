package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/shop/pkg/storefront"
)

// Search returns the products whose name or description contains term,
// ignoring case. An empty term returns products unchanged; whitespace is
// matched literally like any other text.
func Search(products []storefront.Product, term string) []storefront.Product {
	if term == "" {
		return products
	}
	needle := strings.ToLower(term)
	out := make([]storefront.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			out = append(out, p)
		}
	}
	return out
}

// SortKey orders a product listing.
type SortKey string

const (
	SortNone      SortKey = ""
	SortName      SortKey = "name"
	SortPrice     SortKey = "price"
	SortPriceDesc SortKey = "-price"
)

// ParseSort validates a --sort flag value.
func ParseSort(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortNone, SortName, SortPrice, SortPriceDesc:
		return k, nil
	default:
		return "", fmt.Errorf("invalid sort %q (must be 'name', 'price' or '-price')", s)
	}
}

// Filter narrows a product listing. All criteria are ANDed together.
type Filter struct {
	Term       string  // Substring of name or description, empty = no filter
	CategoryID int     // 0 = any category
	Discounted bool    // Only products with a discount
	InStock    bool    // Only products with stock > 0
	Sort       SortKey // SortNone keeps server order
}

// matches reports whether p passes every criterion except Term.
func (f Filter) matches(p storefront.Product) bool {
	if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
		return false
	}
	if f.Discounted && !p.HasDiscount() {
		return false
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	return true
}

// Apply returns a filtered, sorted copy of products. The input slice is
// never reordered.
func (f Filter) Apply(products []storefront.Product) []storefront.Product {
	searched := Search(products, f.Term)

	out := make([]storefront.Product, 0, len(searched))
	for _, p := range searched {
		if f.matches(p) {
			out = append(out, p)
		}
	}

	switch f.Sort {
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	case SortPrice:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].FinalPrice().LessThan(out[j].FinalPrice())
		})
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].FinalPrice().GreaterThan(out[j].FinalPrice())
		})
	}
	return out
}
