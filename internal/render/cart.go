package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dyluth/shop/pkg/storefront"
	"github.com/shopspring/decimal"
)

// CartItemView is the machine-readable shape of a cart line.
type CartItemView struct {
	ID        int             `json:"id"`
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Pending   bool            `json:"pending,omitempty"`
}

// CartView is the machine-readable shape of a cart.
type CartView struct {
	Items   []CartItemView  `json:"items"`
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Savings decimal.Decimal `json:"savings"`
}

// Cart writes the cart. Item ids in pending are marked as not yet
// confirmed by the server.
func Cart(w io.Writer, cart storefront.Cart, pending map[int]bool, format Format) error {
	view := CartView{
		Items:   make([]CartItemView, 0, len(cart.Items)),
		Count:   cart.Count(),
		Total:   cart.Total(),
		Savings: cart.Savings(),
	}
	for _, item := range cart.Items {
		view.Items = append(view.Items, CartItemView{
			ID:        item.ID,
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Product.FinalPrice(),
			Subtotal:  item.Subtotal,
			Pending:   pending[item.ID],
		})
	}

	switch format {
	case FormatTable:
		if cart.IsEmpty() {
			fmt.Fprintln(w, "Your cart is empty")
			return nil
		}
		rows := make([][]string, 0, len(view.Items))
		for _, item := range view.Items {
			qty := strconv.Itoa(item.Quantity)
			if item.Pending {
				qty += " *"
			}
			rows = append(rows, []string{
				strconv.Itoa(item.ID),
				truncate(item.Name, 32),
				qty,
				Money(item.UnitPrice),
				Money(item.Subtotal),
			})
		}
		if err := writeTable(w, []string{"Item", "Product", "Qty", "Unit", "Subtotal"}, rows); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s, total %s\n", plural(view.Count, "item", "items"), Money(view.Total))
		if view.Savings.IsPositive() {
			fmt.Fprintf(w, "You save %s\n", Money(view.Savings))
		}
		if len(pending) > 0 {
			fmt.Fprintln(w, "* waiting for the server to confirm")
		}
		return nil
	case FormatJSONL:
		return writeJSONL(w, view.Items)
	case FormatJSON:
		return writeJSON(w, view)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
