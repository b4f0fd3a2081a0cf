package commands

import (
	"time"

	"github.com/dyluth/shop/internal/orders"
	"github.com/dyluth/shop/internal/printer"
	"github.com/dyluth/shop/internal/render"
	"github.com/spf13/cobra"
)

var (
	ordersOutput string
	ordersSince  string
	ordersUntil  string
	ordersStatus string
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List your orders",
	Long: `List your orders, newest first.

Time Filters:
  --since  - Orders created after this time
  --until  - Orders created before this time
  Both accept a duration ("72h"), a date ("2025-10-29") or RFC3339.

Examples:
  shop orders --since 720h
  shop orders --status paid -o jsonl | jq .total`,
	Args: cobra.NoArgs,
	RunE: runOrders,
}

func init() {
	ordersCmd.Flags().StringVarP(&ordersOutput, "output", "o", "table", "Output format: table, jsonl or json")
	ordersCmd.Flags().StringVar(&ordersSince, "since", "", "Show orders after time (duration, date or RFC3339)")
	ordersCmd.Flags().StringVar(&ordersUntil, "until", "", "Show orders before time (duration, date or RFC3339)")
	ordersCmd.Flags().StringVar(&ordersStatus, "status", "", "Only this payment status: pending, paid, failed, refunded")

	rootCmd.AddCommand(ordersCmd)
}

func runOrders(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(ordersOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, jsonl, json"})
	}
	filter, err := orders.ParseFilter(ordersSince, ordersUntil, ordersStatus)
	if err != nil {
		return printer.Error(
			"invalid filter",
			err.Error(),
			[]string{"Use a duration like '72h', a date like '2025-10-29' or RFC3339 like '2025-10-29T13:00:00Z'"},
		)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	history, err := a.orders.History(cmd.Context())
	if err != nil {
		return explain("list your orders", err)
	}
	return render.Orders(printer.Stdout(), filter.Apply(history), format, time.Now())
}
