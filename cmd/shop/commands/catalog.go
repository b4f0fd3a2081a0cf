package commands

import (
	"fmt"

	"github.com/dyluth/shop/internal/catalog"
	"github.com/dyluth/shop/internal/printer"
	"github.com/dyluth/shop/internal/render"
	"github.com/dyluth/shop/internal/resolver"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/spf13/cobra"
)

var (
	productsSearch     string
	productsCategory   int
	productsDiscounted bool
	productsInStock    bool
	productsSort       string
	productsOutput     string
	productsPrefetch   bool
	productsRefresh    bool

	productOutput    string
	categoriesOutput string
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the catalog",
	Long: `List catalog products with optional search and filters.

Search matches the name or description, ignoring case. An empty search
lists everything.

Filters (all combined):
  --category    - Only products in this category id
  --discounted  - Only products with a discount
  --in-stock    - Only products with stock left

Output Formats:
  table - Human-readable table (default)
  jsonl - One product per line
  json  - A single JSON array

Examples:
  # Everything made of silver, cheapest first
  shop products --search plata --sort price

  # Discounted rings as JSONL for jq
  shop products --category 1 --discounted -o jsonl | jq .final_price`,
	Args: cobra.NoArgs,
	RunE: runProducts,
}

var productCmd = &cobra.Command{
	Use:   "product <id|name-prefix>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE:  runProduct,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List product categories",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

func init() {
	productsCmd.Flags().StringVarP(&productsSearch, "search", "s", "", "Case-insensitive text to find in name or description")
	productsCmd.Flags().IntVar(&productsCategory, "category", 0, "Only list this category id")
	productsCmd.Flags().BoolVar(&productsDiscounted, "discounted", false, "Only list discounted products")
	productsCmd.Flags().BoolVar(&productsInStock, "in-stock", false, "Only list products in stock")
	productsCmd.Flags().StringVar(&productsSort, "sort", "", "Sort by name, price or -price")
	productsCmd.Flags().StringVarP(&productsOutput, "output", "o", "table", "Output format: table, jsonl or json")
	productsCmd.Flags().BoolVar(&productsPrefetch, "prefetch", false, "Warm the detail cache for the listed products")
	productsCmd.Flags().BoolVar(&productsRefresh, "refresh", false, "Ignore cached catalog data")

	productCmd.Flags().StringVarP(&productOutput, "output", "o", "table", "Output format: table or json")
	categoriesCmd.Flags().StringVarP(&categoriesOutput, "output", "o", "table", "Output format: table, jsonl or json")

	rootCmd.AddCommand(productsCmd, productCmd, categoriesCmd)
}

func runProducts(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(productsOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, jsonl, json"})
	}
	sortKey, err := catalog.ParseSort(productsSort)
	if err != nil {
		return printer.Error("invalid sort", err.Error(), nil)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	if productsRefresh {
		if err := a.cat.Refresh(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("failed to clear catalog cache")
		}
	}

	var products []storefront.Product
	if productsCategory != 0 {
		products, err = a.cat.ByCategory(ctx, productsCategory)
	} else {
		products, err = a.cat.Products(ctx)
	}
	if err != nil {
		return explain("list products", err)
	}

	filter := catalog.Filter{
		Term:       productsSearch,
		CategoryID: productsCategory,
		Discounted: productsDiscounted,
		InStock:    productsInStock,
		Sort:       sortKey,
	}
	products = filter.Apply(products)

	if productsPrefetch && len(products) > 0 {
		ids := make([]int, 0, len(products))
		for _, p := range products {
			ids = append(ids, p.ID)
		}
		warmed := a.cat.Prefetch(ctx, ids...)
		a.logger.Debug().Int("warmed", warmed).Int("requested", len(ids)).Msg("prefetched product details")
	}

	return render.Products(printer.Stdout(), products, format)
}

func runProduct(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(productOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, json"})
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := resolver.ResolveProduct(cmd.Context(), a.cat, args[0])
	if err != nil {
		return explain(fmt.Sprintf("find product '%s'", args[0]), err)
	}
	return render.Product(printer.Stdout(), p, format)
}

func runCategories(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(categoriesOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, jsonl, json"})
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	categories, err := a.cat.Categories(cmd.Context())
	if err != nil {
		return explain("list categories", err)
	}
	return render.Categories(printer.Stdout(), categories, format)
}
