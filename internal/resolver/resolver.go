package resolver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/shop/pkg/storefront"
)

// MinPrefixLength is the minimum length of a name prefix reference.
const MinPrefixLength = 3

// Catalog is what product resolution reads from.
type Catalog interface {
	Products(ctx context.Context) ([]storefront.Product, error)
	Product(ctx context.Context, id int) (storefront.Product, error)
}

// ResolveProduct resolves a product reference to a product.
//
// The function handles three cases:
// 1. Input is numeric - looked up directly by id
// 2. Input is too short (< 3 chars) - returns validation error
// 3. Input is a name prefix - matched case-insensitively, an exact name wins
func ResolveProduct(ctx context.Context, catalog Catalog, ref string) (storefront.Product, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		p, err := catalog.Product(ctx, id)
		if err != nil {
			if storefront.IsNotFound(err) {
				return storefront.Product{}, &NotFoundError{Ref: ref}
			}
			return storefront.Product{}, fmt.Errorf("failed to look up product %d: %w", id, err)
		}
		return p, nil
	}

	if len([]rune(ref)) < MinPrefixLength {
		return storefront.Product{}, fmt.Errorf("product reference must be an id or at least %d characters (got %q)", MinPrefixLength, ref)
	}

	products, err := catalog.Products(ctx)
	if err != nil {
		return storefront.Product{}, fmt.Errorf("failed to search products: %w", err)
	}
	idx, err := match(ref, len(products), func(i int) (int, string) { return products[i].ID, products[i].Name })
	if err != nil {
		return storefront.Product{}, err
	}
	return products[idx], nil
}

// ResolveCartItem resolves a cart line by item id or product name prefix.
func ResolveCartItem(cart storefront.Cart, ref string) (storefront.CartItem, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		if i := cart.Find(id); i >= 0 {
			return cart.Items[i], nil
		}
		return storefront.CartItem{}, &NotFoundError{Ref: ref, What: "cart items"}
	}

	if len([]rune(ref)) < MinPrefixLength {
		return storefront.CartItem{}, fmt.Errorf("cart item reference must be an id or at least %d characters (got %q)", MinPrefixLength, ref)
	}

	idx, err := match(ref, len(cart.Items), func(i int) (int, string) { return cart.Items[i].ID, cart.Items[i].Product.Name })
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			nf.What = "cart items"
		}
		return storefront.CartItem{}, err
	}
	return cart.Items[idx], nil
}

// match returns the index of the single candidate whose name starts with ref.
func match(ref string, n int, at func(i int) (id int, name string)) (int, error) {
	prefix := strings.ToLower(ref)
	var matches []int
	for i := 0; i < n; i++ {
		_, name := at(i)
		lower := strings.ToLower(name)
		if lower == prefix {
			return i, nil
		}
		if strings.HasPrefix(lower, prefix) {
			matches = append(matches, i)
		}
	}

	switch len(matches) {
	case 0:
		return -1, &NotFoundError{Ref: ref}
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, i := range matches {
			id, name := at(i)
			names = append(names, fmt.Sprintf("%d  %s", id, name))
		}
		return -1, &AmbiguousError{Ref: ref, Matches: names}
	}
}

// NotFoundError indicates nothing matched the reference.
type NotFoundError struct {
	Ref  string
	What string // Defaults to "products"
}

func (e *NotFoundError) Error() string {
	what := e.What
	if what == "" {
		what = "products"
	}
	return fmt.Sprintf("no %s found matching '%s'", what, e.Ref)
}

// AmbiguousError indicates several candidates matched the reference.
type AmbiguousError struct {
	Ref     string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous reference '%s' matches %d products", e.Ref, len(e.Matches))
}

// FormatAmbiguousError creates a user-friendly message for ambiguous references.
// Lists all matches (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: ambiguous reference '%s' matches %d products:\n", err.Ref, len(err.Matches))

	displayCount := min(len(err.Matches), 10)
	for i := 0; i < displayCount; i++ {
		fmt.Fprintf(&b, "  %s\n", err.Matches[i])
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}

	b.WriteString("\nUse the numeric id or a longer name prefix.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var target *AmbiguousError
	return errors.As(err, &target)
}
