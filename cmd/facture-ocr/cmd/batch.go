package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rezonia/facture-ocr/internal/model"
	"github.com/rezonia/facture-ocr/internal/ocr"
)

var (
	batchSplit bool
	batchRPS   float64
)

var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Extract up to 10 invoices in a single request",
	Long: `Send several files to the batch endpoint. Files are embedded as data URIs
in one JSON request, results come back in input order.

The service accepts at most 10 files per request. With --split, larger
sets are sent as consecutive batches of 10, paced at --rps requests per
second.

Examples:
  facture-ocr batch a.pdf b.png c.jpg
  facture-ocr batch invoices/ --split --rps 0.5 -f csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	batchCmd.Flags().BoolVar(&batchSplit, "split", false, "Split more than 10 files into several batches")
	batchCmd.Flags().Float64Var(&batchRPS, "rps", 1, "Maximum batch requests per second with --split")
	batchCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "",
		`Idempotency-Key header per batch request; "auto" generates one`)
}

func runBatch(cmd *cobra.Command, args []string) error {
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

	chunks := [][]string{files}
	if batchSplit {
		if batchRPS <= 0 {
			return fmt.Errorf("--rps must be positive")
		}
		chunks = splitFiles(files, ocr.MaxBatchSize)
	}
	printVerbose("Sending %d files in %d batch request(s)\n", len(files), len(chunks))

	limiter := rate.NewLimiter(rate.Limit(batchRPS), 1)
	outcomes, err := runBatches(cmd.Context(), client, limiter, chunks)
	if err != nil {
		return err
	}

	w, done, err := openOutput(cmd.OutOrStdout(), outputFile)
	if err != nil {
		return err
	}
	defer done()
	return outputOutcomes(w, outcomes)
}

func runBatches(ctx context.Context, client *ocr.Client, limiter *rate.Limiter, chunks [][]string) ([]*ExtractOutcome, error) {
	var outcomes []*ExtractOutcome
	cached := 0

	for i, chunk := range chunks {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		docs := make([]ocr.Document, len(chunk))
		for j, file := range chunk {
			docs[j] = ocr.FromPath(file)
		}

		opts := &ocr.BatchOptions{Language: model.Language(cfg.Language), IdempotencyKey: idempotencyKey}
		if idempotencyKey == "auto" {
			opts.IdempotencyKey = ocr.NewIdempotencyKey()
		}

		res, err := client.ExtractBatch(ctx, docs, opts)
		if err != nil {
			log.Warn("batch request failed", zap.Int("batch", i), zap.Int("files", len(chunk)), zap.Error(err))
			return nil, fmt.Errorf("batch %d: %s", i+1, describeError(err))
		}
		cached += res.TotalCached

		for j, file := range chunk {
			o := &ExtractOutcome{File: file}
			if j < len(res.Results) {
				r := res.Results[j]
				o.Result = &r
			} else {
				o.Error = "missing from batch response"
			}
			outcomes = append(outcomes, o)
		}
	}

	printVerbose("Processed %d files, %d served from cache\n", len(outcomes), cached)
	return outcomes, nil
}

func splitFiles(files []string, size int) [][]string {
	var chunks [][]string
	for len(files) > size {
		chunks = append(chunks, files[:size])
		files = files[size:]
	}
	if len(files) > 0 {
		chunks = append(chunks, files)
	}
	return chunks
}
