package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/shop/internal/checkout"
	"github.com/dyluth/shop/internal/logging"
	"github.com/dyluth/shop/internal/printer"
	"github.com/dyluth/shop/internal/render"
	"github.com/spf13/cobra"
)

var (
	checkoutWait         bool
	checkoutNoBrowser    bool
	checkoutTimeout      time.Duration
	checkoutCallbackAddr string
	checkoutOutput       string
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Pay for your cart on the hosted payment page",
	Long: `Create a payment session for your cart and open the hosted payment page.

Paying happens in the browser. When the payment page sends you back, the
return URL carries a session_id that confirms the order:

  shop checkout confirm "http://127.0.0.1:8765/payment/success?session_id=cs_..."

With --wait, shop listens on checkout.callback_addr for that return itself
and confirms the order as soon as the browser comes back.`,
	Args: cobra.NoArgs,
	RunE: runCheckout,
}

var checkoutConfirmCmd = &cobra.Command{
	Use:   "confirm <return-url|session-id>",
	Short: "Confirm a payment from its return URL or session id",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckoutConfirm,
}

func init() {
	checkoutCmd.Flags().BoolVar(&checkoutWait, "wait", false, "Wait for the payment page to return and confirm automatically")
	checkoutCmd.Flags().BoolVar(&checkoutNoBrowser, "no-browser", false, "Print the payment URL instead of opening a browser")
	checkoutCmd.Flags().DurationVar(&checkoutTimeout, "timeout", 15*time.Minute, "How long --wait waits for the return")
	checkoutCmd.Flags().StringVar(&checkoutCallbackAddr, "callback-addr", "", "Listen address for --wait (overrides checkout.callback_addr)")
	checkoutCmd.PersistentFlags().StringVarP(&checkoutOutput, "output", "o", "table", "Receipt format: table or json")

	checkoutCmd.AddCommand(checkoutConfirmCmd)
	rootCmd.AddCommand(checkoutCmd)
}

func newOrchestrator(a *app, opener checkout.Opener) (*checkout.Orchestrator, error) {
	return checkout.New(checkout.Config{
		Remote:          a.client,
		Gate:            a.gate,
		Cart:            a.cart,
		Opener:          opener,
		Invalidates:     []checkout.Invalidator{a.cart, a.orders},
		FallbackBaseURL: a.cfg.Checkout.FallbackBaseURL,
		Logger:          logging.Component(a.logger, "checkout"),
	})
}

func runCheckout(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(checkoutOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, json"})
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	a.bootstrap(cmd)

	var opener checkout.Opener = checkout.BrowserOpener{Fallback: printer.Stdout()}
	if checkoutNoBrowser || !a.cfg.Checkout.OpenBrowserEnabled() {
		opener = checkout.PrintOpener{W: printer.Stdout()}
	}
	orch, err := newOrchestrator(a, opener)
	if err != nil {
		return err
	}

	// The listener must be up before the browser can come back to it.
	var srv *checkout.CallbackServer
	if checkoutWait {
		addr := checkoutCallbackAddr
		if addr == "" {
			addr = a.cfg.Checkout.CallbackAddr
		}
		srv = checkout.NewCallbackServer(addr, logging.Component(a.logger, "callback"))
		if err := srv.Start(); err != nil {
			return printer.Error("could not wait for the payment", err.Error(), []string{
				"Free the port or pick another:\n  shop checkout --wait --callback-addr 127.0.0.1:0",
				"Confirm by hand instead:\n  shop checkout",
			})
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	redirect, err := orch.Begin(ctx)
	if err != nil {
		if redirect.URL == "" {
			return explain("start checkout", err)
		}
		printer.Warning("Could not open a browser (%v)\n", err)
		printer.Info("Open this URL to pay: %s\n", redirect.URL)
	}
	if redirect.Degraded {
		printer.Hint("The backend did not send a payment URL; using one built from the session id.\n")
	}

	if !checkoutWait {
		printer.Info("\nAfter paying, confirm the order with:\n  shop checkout confirm %s\n", redirect.SessionID)
		return nil
	}

	printer.Step("Waiting for the payment page to return (Ctrl-C to stop)...\n")
	waitCtx, cancel := context.WithTimeout(ctx, checkoutTimeout)
	defer cancel()
	ret, err := srv.Wait(waitCtx)
	if err != nil {
		return printer.Error(
			"stopped waiting for the payment",
			err.Error(),
			[]string{fmt.Sprintf("If you paid, confirm the order with:\n  shop checkout confirm %s", redirect.SessionID)},
		)
	}
	if ret.Cancelled {
		return showResult(checkout.Cancelled(), format)
	}
	return showResult(orch.Confirm(ctx, ret.URL), format)
}

func runCheckoutConfirm(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(checkoutOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, json"})
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	a.bootstrap(cmd)

	orch, err := newOrchestrator(a, checkout.PrintOpener{W: printer.Stdout()})
	if err != nil {
		return err
	}

	ref := strings.TrimSpace(args[0])
	var result checkout.Result
	if strings.Contains(ref, "://") {
		result = orch.Confirm(ctx, ref)
	} else {
		result = orch.ConfirmSession(ctx, ref)
	}
	return showResult(result, format)
}

func showResult(result checkout.Result, format render.Format) error {
	switch result.State {
	case checkout.ResultSuccess:
		printer.Success("Payment confirmed\n\n")
		return render.Receipt(printer.Stdout(), *result.Order, format)
	case checkout.ResultCancelled:
		printer.Warning("Payment cancelled. Your cart is unchanged.\n")
		printer.Info("Back to your cart:\n  shop cart\n")
		return nil
	default:
		return explain("confirm the payment", result.Err)
	}
}
