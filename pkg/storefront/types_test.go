package storefront

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// TestCart_DiscountedScenario checks the reference scenario: one item,
// qty 2, base 20.00, 10% off.
func TestCart_DiscountedScenario(t *testing.T) {
	item := CartItem{
		ID:       1,
		Product:  Product{ID: 7, Name: "Anillo", Price: dec("20.00"), Discount: dec("10")},
		Quantity: 2,
	}
	item.Recompute()
	cart := Cart{Items: []CartItem{item}}

	assert.True(t, item.Product.FinalPrice().Equal(dec("18.00")), "final price")
	assert.True(t, item.Subtotal.Equal(dec("36.00")), "subtotal")
	assert.True(t, cart.Savings().Equal(dec("4.00")), "savings")
	assert.True(t, cart.Total().Equal(dec("36.00")), "total")
	assert.Equal(t, 2, cart.Count())
}

func TestCart_TotalsAreSumsOfItems(t *testing.T) {
	items := []CartItem{
		{ID: 1, Product: Product{Price: dec("9.99")}, Quantity: 3},
		{ID: 2, Product: Product{Price: dec("50"), Discount: dec("25")}, Quantity: 1},
		{ID: 3, Product: Product{Price: dec("12.50"), Discount: dec("0")}, Quantity: 4},
	}
	expectedTotal := decimal.Zero
	expectedSavings := decimal.Zero
	for i := range items {
		items[i].Recompute()
		expectedTotal = expectedTotal.Add(items[i].Subtotal)
		if items[i].Product.HasDiscount() {
			expectedSavings = expectedSavings.Add(items[i].Product.Price.Sub(items[i].Product.FinalPrice()).Mul(decimal.NewFromInt(int64(items[i].Quantity))))
		}
	}
	cart := Cart{Items: items}

	assert.True(t, cart.Total().Equal(expectedTotal))
	assert.True(t, cart.Savings().Equal(expectedSavings))
	assert.True(t, cart.Savings().Equal(dec("12.50")))
}

func TestCart_NoDiscountMeansZeroSavings(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{ID: 1, Product: Product{Price: dec("5")}, Quantity: 2, Subtotal: dec("10")},
		{ID: 2, Product: Product{Price: dec("7")}, Quantity: 1, Subtotal: dec("7")},
	}}
	assert.True(t, cart.Savings().IsZero())
	assert.True(t, cart.Total().Equal(dec("17")))
}

func TestProduct_ServerFinalPriceWins(t *testing.T) {
	final := dec("17.5")
	p := Product{Price: dec("20"), Discount: dec("10"), ServerFinal: &final}
	assert.True(t, p.FinalPrice().Equal(dec("17.50")))
	assert.True(t, p.UnitSavings().Equal(dec("2.50")))
}

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		wantErr string
	}{
		{name: "valid", product: Product{Price: dec("1"), Discount: dec("100"), Stock: 0}},
		{name: "negative price", product: Product{Price: dec("-1")}, wantErr: "price must be >= 0"},
		{name: "discount above 100", product: Product{Price: dec("1"), Discount: dec("100.01")}, wantErr: "discount must be within [0,100]"},
		{name: "negative discount", product: Product{Price: dec("1"), Discount: dec("-5")}, wantErr: "discount must be within [0,100]"},
		{name: "negative stock", product: Product{Price: dec("1"), Stock: -1}, wantErr: "stock must be >= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.product.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCart_CloneIsDeep(t *testing.T) {
	final := dec("9")
	original := Cart{Items: []CartItem{{ID: 1, Product: Product{Price: dec("10"), ServerFinal: &final}, Quantity: 1}}}
	clone := original.Clone()

	clone.Items[0].Quantity = 5
	*clone.Items[0].Product.ServerFinal = dec("1")

	assert.Equal(t, 1, original.Items[0].Quantity)
	assert.True(t, original.Items[0].Product.ServerFinal.Equal(dec("9")))
}

func TestCart_Find(t *testing.T) {
	cart := Cart{Items: []CartItem{{ID: 4}, {ID: 9}}}
	assert.Equal(t, 1, cart.Find(9))
	assert.Equal(t, -1, cart.Find(3))
}

func TestRegisterRequest_Validate(t *testing.T) {
	err := RegisterRequest{Username: "ana", Email: "a@b.c", Password: "x", Password2: "y"}.Validate()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "passwords do not match")

	assert.NoError(t, RegisterRequest{Username: "ana", Email: "a@b.c", Password: "x", Password2: "x"}.Validate())
}

func TestProfile_DisplayName(t *testing.T) {
	assert.Equal(t, "Ana Paz", Profile{Username: "ana", FirstName: "Ana", LastName: "Paz"}.DisplayName())
	assert.Equal(t, "Ana", Profile{Username: "ana", FirstName: "Ana"}.DisplayName())
	assert.Equal(t, "ana", Profile{Username: "ana"}.DisplayName())
}
