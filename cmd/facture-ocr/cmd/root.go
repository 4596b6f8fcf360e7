package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/facture-ocr/internal/config"
	"github.com/rezonia/facture-ocr/internal/logger"
	"github.com/rezonia/facture-ocr/internal/ocr"
)

var (
	version = "1.0.0"

	// Global flags
	cfgFile string
	verbose bool

	v   = config.New()
	cfg *config.Config
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "facture-ocr",
	Short: "Extract data from French invoices with the OCR Facture API",
	Long: `facture-ocr is a command line client for the OCR Facture API.

Supports:
  - OCR extraction of PDF and image invoices (single or batch)
  - French compliance checks: mandatory mentions, VAT, SIRET, VIES
  - Factur-X generation, parsing and validation
  - A local stand-in of the API for development (serve)

Configuration is read from --config (YAML), FACTURE_OCR_* environment
variables and flags, in increasing order of precedence.

Examples:
  # Extract one invoice
  facture-ocr extract facture.pdf --api-key <key>

  # Extract with a compliance report, as a table
  facture-ocr extract scan.jpg --compliance -f table

  # Batch more than 10 files, two requests per second
  facture-ocr batch invoices/ --split --rps 2

  # Validate a VAT number
  facture-ocr compliance vies FR40303265045`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(*cobra.Command, []string) { _ = log.Sync() },
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (YAML)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	pf.StringP("format", "f", "json", "Output format (json, csv, table)")
	pf.String("api-key", "", "API key (env: FACTURE_OCR_API_KEY)")
	pf.String("base-url", ocr.DefaultBaseURL, "API base URL (env: FACTURE_OCR_BASE_URL)")
	pf.Duration("timeout", ocr.DefaultTimeout, "Per-request timeout (env: FACTURE_OCR_TIMEOUT)")
	pf.StringP("language", "l", "fra", "OCR language: fra, eng, deu, spa, ita, por")
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")
	pf.String("log-format", "console", "Log format (json, console)")
	pf.String("log-output", "stderr", "Log output (stderr, file, both)")
	pf.String("log-file", "", "Log file path when --log-output is file or both")

	bind := map[string]string{
		"format":            "format",
		"api_key":           "api-key",
		"base_url":          "base-url",
		"timeout":           "timeout",
		"language":          "language",
		"log.level":         "log-level",
		"log.format":        "log-format",
		"log.output":        "log-output",
		"log.file.filename": "log-file",
	}
	for key, flag := range bind {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		c.Log.Level = "debug"
	}

	l, err := logger.New(&c.Log)
	if err != nil {
		return err
	}

	cfg, log = c, l.Named("facture-ocr")
	return nil
}

// newClient builds an API client from the loaded configuration
func newClient() (*ocr.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return ocr.NewClient(cfg.APIKey, cfg.ClientOptions(log)...)
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
