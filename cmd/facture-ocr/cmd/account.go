package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported OCR languages",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		res, err := client.Languages(cmd.Context())
		if err != nil {
			return err
		}

		if cfg.Format != "table" {
			return outputJSON(cmd.OutOrStdout(), res)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tNAME")
		for _, l := range res.Languages {
			fmt.Fprintf(tw, "%s\t%s\n", l.Code, l.Name)
		}
		return tw.Flush()
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show API usage for the configured key",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		res, err := client.Quota(cmd.Context())
		if err != nil {
			return err
		}

		if cfg.Format != "table" {
			return outputJSON(cmd.OutOrStdout(), res)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "PLAN\t%s\n", res.Plan)
		fmt.Fprintln(tw, "WINDOW\tLIMIT\tREMAINING\tRESET")
		if m := res.Monthly; m != nil {
			fmt.Fprintf(tw, "monthly\t%d\t%d\t%s\n", m.Limit, m.Remaining, str(m.ResetTime))
		}
		if d := res.Daily; d != nil {
			fmt.Fprintf(tw, "daily\t%d\t%d\t%s\n", d.Limit, d.Remaining, str(d.ResetTime))
		}
		return tw.Flush()
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		res, err := client.Health(cmd.Context())
		if err != nil {
			return err
		}
		return outputJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd, quotaCmd, healthCmd)
}
