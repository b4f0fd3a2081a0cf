package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/shop/internal/cartcache"
	"github.com/dyluth/shop/internal/printer"
	"github.com/dyluth/shop/internal/render"
	"github.com/dyluth/shop/internal/resolver"
	"github.com/spf13/cobra"
)

var (
	cartOutput string
	cartAddQty int
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and change your cart",
	Long: `Show the cart, or change it with a subcommand.

Guests have a cart too; it moves to your account when you log in.
Items are referenced by the item id shown in 'shop cart' or by a
product name prefix.

Examples:
  shop cart add "anillo de plata" --qty 2
  shop cart inc 101
  shop cart dec pulsera
  shop cart rm 101`,
	Args: cobra.NoArgs,
	RunE: runCartShow,
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id|name-prefix>",
	Short: "Add a product to the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartAdd,
}

var cartIncCmd = &cobra.Command{
	Use:   "inc <item>",
	Short: "Add one unit of a cart item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCartMutation(cmd, args[0], cartcache.KindIncrement)
	},
}

var cartDecCmd = &cobra.Command{
	Use:   "dec <item>",
	Short: "Remove one unit of a cart item (the last unit removes the item)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCartMutation(cmd, args[0], cartcache.KindDecrement)
	},
}

var cartRmCmd = &cobra.Command{
	Use:     "rm <item>",
	Aliases: []string{"remove"},
	Short:   "Remove a cart item",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCartMutation(cmd, args[0], cartcache.KindRemove)
	},
}

func init() {
	cartCmd.PersistentFlags().StringVarP(&cartOutput, "output", "o", "table", "Output format: table, jsonl or json")
	cartAddCmd.Flags().IntVarP(&cartAddQty, "qty", "q", 1, "Quantity to add")

	cartCmd.AddCommand(cartAddCmd, cartIncCmd, cartDecCmd, cartRmCmd)
	rootCmd.AddCommand(cartCmd)
}

func runCartShow(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(cartOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, jsonl, json"})
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return showCart(cmd.Context(), a, format)
}

func showCart(ctx context.Context, a *app, format render.Format) error {
	cart, err := a.cart.Current(ctx)
	if err != nil {
		return explain("load your cart", err)
	}
	pending := map[int]bool{}
	for id := range a.cart.Pending() {
		pending[id] = true
	}
	return render.Cart(printer.Stdout(), cart, pending, format)
}

func runCartAdd(cmd *cobra.Command, args []string) error {
	if cartAddQty < 1 {
		return printer.Error("invalid quantity", fmt.Sprintf("--qty must be at least 1, got %d", cartAddQty), nil)
	}
	format, err := render.ParseFormat(cartOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, jsonl, json"})
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	a.bootstrap(cmd)

	p, err := resolver.ResolveProduct(ctx, a.cat, args[0])
	if err != nil {
		return explain(fmt.Sprintf("find product '%s'", args[0]), err)
	}
	// Stock is checked by the server; the cached listing may be out of date.
	if err := a.cart.Add(ctx, p.ID, cartAddQty); err != nil {
		return explain(fmt.Sprintf("add %s to your cart", p.Name), err)
	}
	printer.Success("Added %d × %s\n", cartAddQty, p.Name)
	return showCart(ctx, a, format)
}

func runCartMutation(cmd *cobra.Command, ref string, kind cartcache.Kind) error {
	format, err := render.ParseFormat(cartOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, jsonl, json"})
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	a.bootstrap(cmd)

	cart, err := a.cart.Current(ctx)
	if err != nil {
		return explain("load your cart", err)
	}
	item, err := resolver.ResolveCartItem(cart, ref)
	if err != nil {
		return explain(fmt.Sprintf("find cart item '%s'", ref), err)
	}

	var m cartcache.Mutation
	switch kind {
	case cartcache.KindIncrement:
		m, err = a.cart.Increment(ctx, item.ID)
	case cartcache.KindDecrement:
		m, err = a.cart.Decrement(ctx, item.ID)
	default:
		m, err = a.cart.Remove(ctx, item.ID)
	}
	if err != nil {
		return explain(fmt.Sprintf("update %s", item.Product.Name), err)
	}

	switch m.Kind {
	case cartcache.KindRemove:
		printer.Success("Removed %s\n", item.Product.Name)
	default:
		printer.Success("%s: %d → %d\n", item.Product.Name, m.Before.Quantity, m.After.Quantity)
	}
	return showCart(ctx, a, format)
}
