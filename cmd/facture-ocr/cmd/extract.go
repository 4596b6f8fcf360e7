package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/facture-ocr/internal/model"
	"github.com/rezonia/facture-ocr/internal/ocr"
)

var (
	outputFile     string
	withCompliance bool
	idempotencyKey string
)

var extractCmd = &cobra.Command{
	Use:   "extract [files...]",
	Short: "Extract invoice data from PDF or image files",
	Long: `Send each file to the OCR service and print the extracted fields.

Supported formats:
  - PDF: .pdf
  - Images: .png, .jpg, .jpeg

Files are uploaded one request at a time. Use "-" to read a single
document from stdin.

Examples:
  facture-ocr extract facture.pdf
  facture-ocr extract scans/ -f table
  facture-ocr extract facture.pdf --compliance --idempotency-key auto
  cat facture.pdf | facture-ocr extract -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	extractCmd.Flags().BoolVar(&withCompliance, "compliance", false, "Include a French compliance report")
	extractCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "",
		`Idempotency-Key header; "auto" generates one per file`)
}

func runExtract(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to process")
	}
	if len(files) > 1 && idempotencyKey != "" && idempotencyKey != "auto" {
		return fmt.Errorf("a fixed --idempotency-key only applies to a single file, use \"auto\"")
	}

	printVerbose("Found %d files to process\n", len(files))

	outcomes := make([]*ExtractOutcome, 0, len(files))
	for _, file := range files {
		printVerbose("Processing: %s\n", file)

		opts := &ocr.ExtractOptions{
			Language:        model.Language(cfg.Language),
			CheckCompliance: withCompliance,
			IdempotencyKey:  idempotencyKey,
		}
		if idempotencyKey == "auto" {
			opts.IdempotencyKey = ocr.NewIdempotencyKey()
		}

		outcome := extractFile(cmd.Context(), client, cmd.InOrStdin(), file, opts)
		outcomes = append(outcomes, outcome)

		if outcome.Error != "" {
			printVerbose("  Error: %s\n", outcome.Error)
		}
	}

	w, done, err := openOutput(cmd.OutOrStdout(), outputFile)
	if err != nil {
		return err
	}
	defer done()
	return outputOutcomes(w, outcomes)
}

func extractFile(ctx context.Context, client *ocr.Client, stdin io.Reader, file string, opts *ocr.ExtractOptions) *ExtractOutcome {
	outcome := &ExtractOutcome{File: file}

	doc := ocr.FromPath(file)
	if file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			outcome.Error = fmt.Sprintf("failed to read stdin: %v", err)
			return outcome
		}
		doc = ocr.FromBytes(data, "")
	}

	res, err := client.Extract(ctx, doc, opts)
	if err != nil {
		outcome.Error = describeError(err)
		log.Warn("extraction failed", zap.String("file", file), zap.Error(err))
		return outcome
	}
	outcome.Result = res
	return outcome
}

// describeError adds the retry delay to rate limit errors
func describeError(err error) string {
	if secs, ok := model.RetryAfterSeconds(err); ok {
		return fmt.Sprintf("%v (retry in %ds)", err, secs)
	}
	return err.Error()
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		if arg == "-" {
			files = append(files, arg)
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("file not found: %s", arg)
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if !info.IsDir() {
				// Named files are sent as-is; glob hits are filtered by extension.
				if match == arg || isSupportedFile(match) {
					files = append(files, match)
				}
				continue
			}
			err = filepath.Walk(match, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isSupportedFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return files, nil
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
