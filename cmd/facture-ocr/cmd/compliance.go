package cmd

import (
	"github.com/spf13/cobra"
)

var complianceCmd = &cobra.Command{
	Use:   "compliance",
	Short: "French invoice compliance checks",
	Long: `Run compliance checks on invoice data.

Invoice data is read as JSON from a file, or from stdin with "-", using the
same field names as the extraction output (invoice_number, date, vendor,
client, total_ht, tva, total_ttc...).`,
}

var complianceCheckCmd = &cobra.Command{
	Use:   "check <invoice.json>",
	Short: "Check mandatory mentions, VAT and identifiers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		inv, err := readInvoice(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		res, err := client.CheckCompliance(cmd.Context(), inv)
		if err != nil {
			return err
		}
		return outputJSON(cmd.OutOrStdout(), res)
	},
}

var complianceVATCmd = &cobra.Command{
	Use:   "vat <invoice.json>",
	Short: "Validate the VAT rate and HT + TVA = TTC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		inv, err := readInvoice(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		res, err := client.ValidateVAT(cmd.Context(), inv)
		if err != nil {
			return err
		}
		return outputJSON(cmd.OutOrStdout(), res)
	},
}

var complianceSiretCmd = &cobra.Command{
	Use:   "siret <siret>",
	Short: "Enrich a SIRET number from the company registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		res, err := client.EnrichSiret(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return outputJSON(cmd.OutOrStdout(), res)
	},
}

var complianceVIESCmd = &cobra.Command{
	Use:   "vies <vat-number>",
	Short: "Validate an intra-community VAT number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		res, err := client.ValidateVIES(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return outputJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(complianceCmd)
	complianceCmd.AddCommand(complianceCheckCmd, complianceVATCmd, complianceSiretCmd, complianceVIESCmd)
}
