package render

import (
	"fmt"
	"io"
	"time"

	"github.com/dyluth/shop/pkg/storefront"
	"github.com/shopspring/decimal"
)

// OrderView is the machine-readable shape of an order.
type OrderView struct {
	Number        string                   `json:"number"`
	Status        storefront.PaymentStatus `json:"payment_status"`
	Total         decimal.Decimal          `json:"total"`
	Items         []storefront.OrderItem   `json:"items"`
	ShipTo        string                   `json:"ship_to,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	PaidAt        *time.Time               `json:"paid_at,omitempty"`
	PaymentMethod string                   `json:"payment_method,omitempty"`
}

func orderView(o storefront.Order) OrderView {
	v := OrderView{
		Number:        o.Number,
		Status:        o.PaymentStatus,
		Total:         o.Total,
		Items:         o.Items,
		CreatedAt:     o.CreatedAt,
		PaidAt:        o.PaidAt,
		PaymentMethod: o.PaymentMethod,
	}
	if o.ShippingAddress != "" {
		v.ShipTo = o.ShippingAddress
		if o.ShippingCity != "" {
			v.ShipTo += ", " + o.ShippingCity
		}
	}
	if v.Items == nil {
		v.Items = []storefront.OrderItem{}
	}
	return v
}

// Orders writes the order history. now anchors the AGE column.
func Orders(w io.Writer, orders []storefront.Order, format Format, now time.Time) error {
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView(o))
	}

	switch format {
	case FormatTable:
		if len(orders) == 0 {
			fmt.Fprintln(w, "No orders yet")
			return nil
		}
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			rows = append(rows, []string{
				v.Number,
				string(v.Status),
				plural(len(v.Items), "item", "items"),
				Money(v.Total),
				age(v.CreatedAt, now),
			})
		}
		if err := writeTable(w, []string{"Order", "Status", "Items", "Total", "Age"}, rows); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", plural(len(orders), "order", "orders"))
		return nil
	case FormatJSONL:
		return writeJSONL(w, views)
	case FormatJSON:
		return writeJSON(w, views)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// Receipt writes a confirmed order in full.
func Receipt(w io.Writer, o storefront.Order, format Format) error {
	if format != FormatTable {
		return writeJSON(w, orderView(o))
	}
	fmt.Fprintf(w, "Order %s (%s)\n\n", o.Number, o.PaymentStatus)
	for _, item := range o.Items {
		fmt.Fprintf(w, "  %dx %s  %s\n", item.Quantity, truncate(item.ProductName, 40), Money(item.Subtotal))
	}
	fmt.Fprintf(w, "\nTotal: %s\n", Money(o.Total))
	if v := orderView(o); v.ShipTo != "" {
		fmt.Fprintf(w, "Ship to: %s\n", v.ShipTo)
	}
	return nil
}
