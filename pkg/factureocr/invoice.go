// Package factureocr is the public API of the OCR Facture client.
//
// It extracts structured data from French invoices (PDF or image) through
// the remote OCR service, and exposes the compliance, Factur-X and account
// endpoints of the same API.
//
// Example usage:
//
//	client, err := factureocr.NewClient(os.Getenv("FACTURE_OCR_API_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := client.ExtractFile(ctx, "facture.pdf", nil)
//	if factureocr.IsRateLimit(err) {
//	    secs, _ := factureocr.RetryAfterSeconds(err)
//	    log.Printf("retry in %ds", secs)
//	}
package factureocr

import "github.com/rezonia/facture-ocr/internal/model"

// Re-export the data model
type (
	InvoiceData = model.InvoiceData
	LineItem    = model.LineItem
	Amount      = model.Amount
	Language    = model.Language
)

// Re-export OCR languages
const (
	LanguageFrench     = model.LanguageFrench
	LanguageEnglish    = model.LanguageEnglish
	LanguageGerman     = model.LanguageGerman
	LanguageSpanish    = model.LanguageSpanish
	LanguageItalian    = model.LanguageItalian
	LanguagePortuguese = model.LanguagePortuguese
	DefaultLanguage    = model.DefaultLanguage
)

// Re-export result shapes
type (
	OCRText            = model.OCRText
	ExtractResult      = model.ExtractResult
	BatchResult        = model.BatchResult
	ComplianceResult   = model.ComplianceResult
	ComplianceReport   = model.ComplianceReport
	ComplianceCheck    = model.ComplianceCheck
	SirenSiret         = model.SirenSiret
	VATValidation      = model.VATValidation
	VATIssue           = model.VATIssue
	SiretEnrichment    = model.SiretEnrichment
	VIESResult         = model.VIESResult
	FacturXDocument    = model.FacturXDocument
	FacturXParseResult = model.FacturXParseResult
	FacturXValidation  = model.FacturXValidation
	LanguageInfo       = model.LanguageInfo
	Languages          = model.Languages
	QuotaWindow        = model.QuotaWindow
	Quota              = model.Quota
	Health             = model.Health
)

var (
	NewAmount           = model.NewAmount
	NewAmountFromString = model.NewAmountFromString
)

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return model.Ptr(v)
}
