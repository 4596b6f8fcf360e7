package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rezonia/facture-ocr/internal/model"
)

// ExtractOutcome is the result of extracting a single file
type ExtractOutcome struct {
	File   string               `json:"file"`
	Result *model.ExtractResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// openOutput returns stdout, or the file at path when set
func openOutput(w io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return w, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func outputOutcomes(w io.Writer, outcomes []*ExtractOutcome) error {
	switch cfg.Format {
	case "json":
		return outputJSON(w, outcomes)
	case "table":
		return outputTable(w, outcomes)
	case "csv":
		return outputCSV(w, outcomes)
	default:
		return fmt.Errorf("unsupported output format: %s", cfg.Format)
	}
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputTable(w io.Writer, outcomes []*ExtractOutcome) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tNUMBER\tDATE\tVENDOR\tTOTAL HT\tTVA\tTOTAL TTC\tCACHED")
	fmt.Fprintln(tw, "----\t------\t----\t------\t--------\t---\t---------\t------")

	for _, o := range outcomes {
		if o.Error != "" {
			fmt.Fprintf(tw, "%s\tERROR: %s\t\t\t\t\t\t\n", o.File, o.Error)
			continue
		}
		if o.Result == nil || !o.Result.Success || o.Result.ExtractedData == nil {
			fmt.Fprintf(tw, "%s\tFAILED: %s\t\t\t\t\t\t\n", o.File, resultError(o.Result))
			continue
		}

		d := o.Result.ExtractedData
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			o.File,
			str(d.InvoiceNumber),
			str(d.Date),
			str(d.Vendor),
			amountStr(d.TotalHT),
			amountStr(d.TVA),
			amountStr(d.TotalTTC),
			o.Result.Cached != nil && *o.Result.Cached,
		)
	}

	return tw.Flush()
}

func outputCSV(w io.Writer, outcomes []*ExtractOutcome) error {
	fmt.Fprintln(w, "file,invoice_number,date,vendor,client,total_ht,tva,total_ttc,currency,cached,error")

	for _, o := range outcomes {
		if o.Error != "" {
			fmt.Fprintf(w, "%s,,,,,,,,,,%s\n", escapeCSV(o.File), escapeCSV(o.Error))
			continue
		}
		if o.Result == nil || !o.Result.Success || o.Result.ExtractedData == nil {
			fmt.Fprintf(w, "%s,,,,,,,,,,%s\n", escapeCSV(o.File), escapeCSV(resultError(o.Result)))
			continue
		}

		d := o.Result.ExtractedData
		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,%s,%s,%s,%t,\n",
			escapeCSV(o.File),
			escapeCSV(str(d.InvoiceNumber)),
			escapeCSV(str(d.Date)),
			escapeCSV(str(d.Vendor)),
			escapeCSV(str(d.Client)),
			amountStr(d.TotalHT),
			amountStr(d.TVA),
			amountStr(d.TotalTTC),
			escapeCSV(str(d.Currency)),
			o.Result.Cached != nil && *o.Result.Cached,
		)
	}

	return nil
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

func resultError(r *model.ExtractResult) string {
	if r != nil && r.Error != nil {
		return *r.Error
	}
	return "no data extracted"
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func amountStr(a *model.Amount) string {
	if a == nil {
		return ""
	}
	return a.StringFixed(2)
}

// readInvoice loads InvoiceData from a JSON file, or stdin when path is "-"
func readInvoice(in io.Reader, path string) (*model.InvoiceData, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice: %w", err)
	}

	var inv model.InvoiceData
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("invalid invoice JSON: %w", err)
	}
	return &inv, nil
}
