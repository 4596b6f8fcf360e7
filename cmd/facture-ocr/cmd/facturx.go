package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/facture-ocr/internal/ocr"
)

var xmlOutput string

var facturxCmd = &cobra.Command{
	Use:   "facturx",
	Short: "Generate, parse and validate Factur-X documents",
}

var facturxGenerateCmd = &cobra.Command{
	Use:   "generate <invoice.json>",
	Short: "Render invoice data as Factur-X XML",
	Long: `Render invoice data as Factur-X (CII) XML.

With --xml the XML is written to a file, otherwise the full response is
printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		inv, err := readInvoice(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		res, err := client.GenerateFacturX(cmd.Context(), inv)
		if err != nil {
			return err
		}

		if xmlOutput != "" {
			if res.XML == nil {
				return fmt.Errorf("response contains no XML")
			}
			if err := os.WriteFile(xmlOutput, []byte(*res.XML), 0o644); err != nil {
				return fmt.Errorf("failed to write XML: %w", err)
			}
			printVerbose("Wrote %s\n", xmlOutput)
			return nil
		}
		return outputJSON(cmd.OutOrStdout(), res)
	},
}

var facturxParseCmd = &cobra.Command{
	Use:   "parse <file.pdf>",
	Short: "Extract the embedded Factur-X XML from a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		res, err := client.ParseFacturX(cmd.Context(), ocr.FromPath(args[0]))
		if err != nil {
			return err
		}
		return outputJSON(cmd.OutOrStdout(), res)
	},
}

var facturxValidateCmd = &cobra.Command{
	Use:   "validate <file.xml>",
	Short: "Validate Factur-X XML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		xml, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read XML: %w", err)
		}
		res, err := client.ValidateFacturX(cmd.Context(), string(xml))
		if err != nil {
			return err
		}
		if err := outputJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if !res.Valid {
			return fmt.Errorf("invalid Factur-X: %d error(s)", len(res.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(facturxCmd)
	facturxCmd.AddCommand(facturxGenerateCmd, facturxParseCmd, facturxValidateCmd)

	facturxGenerateCmd.Flags().StringVar(&xmlOutput, "xml", "", "Write the generated XML to this file")
}
