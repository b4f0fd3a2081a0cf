package commands

import (
	"errors"

	"github.com/dyluth/shop/internal/printer"
	"github.com/dyluth/shop/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter shop.yml",
	Long: `Write a starter configuration into the current directory.

Creates:
  • shop.yml - API address, checkout, catalog cache and state settings
  • .env.example - SHOP_* overrides, copy to .env to use them

Use --force to overwrite existing files.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite existing shop.yml and .env.example")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	created, err := scaffold.Initialize(forceInit)
	if err != nil {
		var existing *scaffold.ExistingError
		if errors.As(err, &existing) {
			return printer.Error("already initialized", err.Error(), []string{"Overwrite them:\n  shop init --force"})
		}
		return printer.Error("initialization failed", err.Error(), nil)
	}

	printer.Success("Initialized shop configuration\n")
	printer.Info("\nCreated:\n")
	for _, path := range created {
		printer.Info("  ✓ %s\n", path)
	}
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Point api.base_url at your storefront backend\n")
	printer.Info("  2. Browse the catalog with 'shop products'\n")
	return nil
}
