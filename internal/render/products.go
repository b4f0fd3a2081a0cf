package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dyluth/shop/pkg/storefront"
	"github.com/shopspring/decimal"
)

// ProductView is the machine-readable shape of a product.
type ProductView struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount_percent"`
	FinalPrice  decimal.Decimal `json:"final_price"`
	Stock       int             `json:"stock"`
	CategoryID  int             `json:"category_id,omitempty"`
}

func productView(p storefront.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Discount:    p.Discount,
		FinalPrice:  p.FinalPrice(),
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
	}
}

// Products writes a product listing.
func Products(w io.Writer, products []storefront.Product, format Format) error {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, productView(p))
	}

	switch format {
	case FormatTable:
		if len(products) == 0 {
			fmt.Fprintln(w, "No products found")
			return nil
		}
		rows := make([][]string, 0, len(products))
		for _, p := range products {
			rows = append(rows, []string{
				strconv.Itoa(p.ID),
				truncate(p.Name, 32),
				priceCell(p),
				stockCell(p.Stock),
			})
		}
		if err := writeTable(w, []string{"ID", "Name", "Price", "Stock"}, rows); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", plural(len(products), "product", "products"))
		return nil
	case FormatJSONL:
		return writeJSONL(w, views)
	case FormatJSON:
		return writeJSON(w, views)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// Product writes one product with its full description.
func Product(w io.Writer, p storefront.Product, format Format) error {
	switch format {
	case FormatTable:
		fmt.Fprintf(w, "#%d  %s\n", p.ID, p.Name)
		if p.Description != "" {
			fmt.Fprintf(w, "\n%s\n", p.Description)
		}
		fmt.Fprintf(w, "\nPrice:  %s\n", priceCell(p))
		if p.HasDiscount() {
			fmt.Fprintf(w, "Save:   %s (%s%% off)\n", Money(p.UnitSavings()), p.Discount.String())
		}
		fmt.Fprintf(w, "Stock:  %s\n", stockCell(p.Stock))
		return nil
	case FormatJSONL, FormatJSON:
		return writeJSON(w, productView(p))
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// CategoryView is the machine-readable shape of a category.
type CategoryView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Products    int    `json:"product_count"`
}

// Categories writes the category list.
func Categories(w io.Writer, categories []storefront.Category, format Format) error {
	views := make([]CategoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, CategoryView{ID: c.ID, Name: c.Name, Description: c.Description, Products: len(c.Products)})
	}

	switch format {
	case FormatTable:
		if len(categories) == 0 {
			fmt.Fprintln(w, "No categories found")
			return nil
		}
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			rows = append(rows, []string{strconv.Itoa(v.ID), truncate(v.Name, 32), strconv.Itoa(v.Products)})
		}
		return writeTable(w, []string{"ID", "Name", "Products"}, rows)
	case FormatJSONL:
		return writeJSONL(w, views)
	case FormatJSON:
		return writeJSON(w, views)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// priceCell shows the final price, with the base price when discounted.
func priceCell(p storefront.Product) string {
	if !p.HasDiscount() {
		return Money(p.FinalPrice())
	}
	return fmt.Sprintf("%s (was %s, -%s%%)", Money(p.FinalPrice()), Money(p.Price), p.Discount.String())
}

func stockCell(stock int) string {
	if stock <= 0 {
		return "out of stock"
	}
	return strconv.Itoa(stock)
}
