package resolver

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dyluth/shop/pkg/storefront"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products []storefront.Product
	listErr  error
	lookups  int
}

func (f *fakeCatalog) Products(ctx context.Context) ([]storefront.Product, error) {
	return f.products, f.listErr
}

func (f *fakeCatalog) Product(ctx context.Context, id int) (storefront.Product, error) {
	f.lookups++
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return storefront.Product{}, &storefront.NotFoundError{Op: "get product"}
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{products: []storefront.Product{
		{ID: 1, Name: "Anillo de plata"},
		{ID: 2, Name: "Anillo de oro"},
		{ID: 3, Name: "Pulsera"},
		{ID: 4, Name: "Pulsera trenzada"},
	}}
}

func TestResolveProduct(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     string
		wantID  int
		wantErr func(error) bool
	}{
		{name: "numeric id", ref: "2", wantID: 2},
		{name: "unique prefix", ref: "anillo de p", wantID: 1},
		{name: "exact name beats longer names", ref: "PULSERA", wantID: 3},
		{name: "ambiguous prefix", ref: "Anillo", wantErr: IsAmbiguousError},
		{name: "no match", ref: "collar", wantErr: IsNotFoundError},
		{name: "unknown id", ref: "42", wantErr: IsNotFoundError},
		{name: "too short", ref: "an", wantErr: func(err error) bool { return strings.Contains(err.Error(), "at least 3 characters") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ResolveProduct(ctx, newCatalog(), tt.ref)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, p.ID)
		})
	}
}

func TestResolveProduct_NumericSkipsListing(t *testing.T) {
	cat := newCatalog()
	cat.listErr = fmt.Errorf("listing unavailable")

	p, err := ResolveProduct(context.Background(), cat, " 4 ")
	require.NoError(t, err)
	assert.Equal(t, 4, p.ID)
	assert.Equal(t, 1, cat.lookups)

	_, err = ResolveProduct(context.Background(), cat, "pulsera")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to search products")
}

func TestResolveCartItem(t *testing.T) {
	cart := storefront.Cart{Items: []storefront.CartItem{
		{ID: 101, Product: storefront.Product{ID: 1, Name: "Anillo de plata"}, Quantity: 1},
		{ID: 102, Product: storefront.Product{ID: 3, Name: "Pulsera trenzada"}, Quantity: 2},
	}}

	item, err := ResolveCartItem(cart, "102")
	require.NoError(t, err)
	assert.Equal(t, 3, item.Product.ID)

	item, err = ResolveCartItem(cart, "anil")
	require.NoError(t, err)
	assert.Equal(t, 101, item.ID)

	_, err = ResolveCartItem(cart, "1")
	require.Error(t, err)
	assert.Equal(t, "no cart items found matching '1'", err.Error())

	_, err = ResolveCartItem(cart, "collar")
	require.Error(t, err)
	assert.Equal(t, "no cart items found matching 'collar'", err.Error())
}

func TestFormatAmbiguousError(t *testing.T) {
	matches := make([]string, 12)
	for i := range matches {
		matches[i] = fmt.Sprintf("%d  Anillo %d", i+1, i+1)
	}
	msg := FormatAmbiguousError(&AmbiguousError{Ref: "anillo", Matches: matches})

	assert.Contains(t, msg, "matches 12 products")
	assert.Contains(t, msg, "10  Anillo 10")
	assert.NotContains(t, msg, "11  Anillo 11")
	assert.Contains(t, msg, "...and 2 more")
	assert.Contains(t, msg, "Use the numeric id or a longer name prefix.")
}
