package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dyluth/shop/internal/config"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// Global flags
var (
	configPath  string
	apiURL      string
	profileName string
	ephemeral   bool
	logLevel    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shop",
	Short: "Shop - storefront client for the tienda backend",
	Long: `Shop browses the catalog, manages your cart, and pays through the
hosted checkout page of the tienda storefront backend.

The backend is the source of truth for carts and orders. Shop keeps the
session cookie, a login hint and a short-lived catalog cache in local state
(a bbolt file by default, or a shared Redis).`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to shop.yml")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API root (overrides api.base_url)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "State profile, e.g. to keep two accounts apart")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep no state between runs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Diagnostic log level: debug, info, warn, error")
}
