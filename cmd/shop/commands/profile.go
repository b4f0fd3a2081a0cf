package commands

import (
	"encoding/json"
	"fmt"

	"github.com/dyluth/shop/internal/printer"
	"github.com/dyluth/shop/internal/render"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/spf13/cobra"
)

var (
	profileOutput string
	profileUpdate storefront.ProfileUpdate
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your contact and shipping details",
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change your contact and shipping details",
	Long: `Change contact and shipping details. Only the flags you pass are sent.

Example:
  shop profile set --phone "+51 999 999 999" --address "Av. Sol 123" --city Cusco`,
	Args: cobra.NoArgs,
	RunE: runProfileSet,
}

func init() {
	profileCmd.Flags().StringVarP(&profileOutput, "output", "o", "table", "Output format: table or json")

	f := profileSetCmd.Flags()
	f.StringVar(&profileUpdate.FirstName, "first-name", "", "First name")
	f.StringVar(&profileUpdate.LastName, "last-name", "", "Last name")
	f.StringVar(&profileUpdate.Email, "email", "", "Email address")
	f.StringVar(&profileUpdate.Phone, "phone", "", "Phone number")
	f.StringVar(&profileUpdate.Address, "address", "", "Shipping address")
	f.StringVar(&profileUpdate.City, "city", "", "Shipping city")
	f.StringVar(&profileUpdate.PostalCode, "postal-code", "", "Postal code")
	f.StringVar(&profileUpdate.Country, "country", "", "Country")

	profileCmd.AddCommand(profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(profileOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: table, json"})
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := a.gate.Profile(cmd.Context())
	if err != nil {
		return explain("load your profile", err)
	}
	if format != render.FormatTable {
		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal profile: %w", err)
		}
		printer.Println(string(data))
		return nil
	}
	printProfile(profile)
	return nil
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	if profileUpdate == (storefront.ProfileUpdate{}) {
		return printer.Error("nothing to change", "Pass at least one field to update.", []string{"See the available fields:\n  shop profile set --help"})
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	a.bootstrap(cmd)

	profile, err := a.gate.UpdateProfile(cmd.Context(), profileUpdate)
	if err != nil {
		return explain("update your profile", err)
	}
	printer.Success("Profile updated\n")
	printProfile(profile)
	return nil
}

func printProfile(p storefront.Profile) {
	rows := [][2]string{
		{"User", describeUser(p)},
		{"Phone", p.Phone},
		{"Address", p.Address},
		{"City", p.City},
		{"Postal code", p.PostalCode},
		{"Country", p.Country},
	}
	for _, row := range rows {
		value := row[1]
		if value == "" {
			value = "-"
		}
		printer.Printf("%-12s %s\n", row[0]+":", value)
	}
}
