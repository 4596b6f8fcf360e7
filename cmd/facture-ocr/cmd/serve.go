package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/facture-ocr/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a local stand-in of the OCR API",
	Long: `Start a local HTTP server that mimics the OCR Facture API for development
and integration tests. Extraction returns a canned invoice; compliance and
Factur-X endpoints compute real results.

The API provides endpoints for:
  - POST /v1/ocr/upload, /v1/ocr/base64, /v1/ocr/batch
  - POST /v1/compliance/check
  - POST /compliance/validate-vat, /compliance/enrich-siret, /compliance/validate-vies
  - POST /facturx/generate, /facturx/parse, /facturx/validate
  - GET  /v1/languages, /v1/quota
  - GET  /health

Examples:
  # Start without authentication
  facture-ocr serve

  # Require a proxy secret and use the BASIC plan quotas
  facture-ocr serve --address :9000 --proxy-secret s3cret --plan basic

  # Point the client at it
  facture-ocr extract facture.pdf --base-url http://localhost:9000 --api-key s3cret`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.String("address", ":8080", "Server listen address")
	f.String("proxy-secret", "", "Required X-RapidAPI-Proxy-Secret (empty disables auth)")
	f.String("plan", "PRO", "Quota plan (BASIC, PRO, ULTRA, MEGA)")
	f.Bool("debug", false, "Enable debug mode and access logs")
	f.Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	f.Duration("write-timeout", 2*time.Minute, "HTTP write timeout")

	for key, flag := range map[string]string{
		"server.address":       "address",
		"server.proxy_secret":  "proxy-secret",
		"server.plan":          "plan",
		"server.debug":         "debug",
		"server.read_timeout":  "read-timeout",
		"server.write_timeout": "write-timeout",
	} {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	sc := cfg.Server
	srv := server.NewServer(&server.Config{
		Address:      sc.Address,
		ProxySecret:  sc.ProxySecret,
		Plan:         sc.Plan,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		Debug:        sc.Debug,
		Logger:       log.Named("stub"),
		MaxRecorded:  -1,
	})

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down")
		_ = log.Sync()
		os.Exit(0)
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting server on %s\n", sc.Address)
	if sc.ProxySecret == "" {
		log.Warn("authentication disabled", zap.String("address", sc.Address))
	}

	return srv.Run()
}
