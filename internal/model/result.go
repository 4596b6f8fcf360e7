package model

import "encoding/json"

// OCRText is the raw OCR output returned alongside an extraction
type OCRText struct {
	Text           string `json:"text"`
	Language       string `json:"language"`
	PagesProcessed *int   `json:"pages_processed,omitempty"`
}

// ExtractResult is the response of single-document extraction
type ExtractResult struct {
	Success          bool               `json:"success"`
	Cached           *bool              `json:"cached,omitempty"`
	Data             *OCRText           `json:"data,omitempty"`
	ExtractedData    *InvoiceData       `json:"extracted_data,omitempty"`
	ConfidenceScores map[string]float64 `json:"confidence_scores,omitempty"`
	Compliance       json.RawMessage    `json:"compliance,omitempty"`
	Error            *string            `json:"error,omitempty"`
}

// BatchResult is the response of batch extraction, in input order
type BatchResult struct {
	Success        bool            `json:"success"`
	Results        []ExtractResult `json:"results"`
	TotalProcessed int             `json:"total_processed"`
	TotalCached    int             `json:"total_cached"`
}

// ComplianceResult is the response of a compliance check
type ComplianceResult struct {
	Success    *bool             `json:"success,omitempty"`
	Compliance *ComplianceReport `json:"compliance,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ComplianceReport groups the individual compliance verifications
type ComplianceReport struct {
	ComplianceCheck *ComplianceCheck `json:"compliance_check,omitempty"`
	VATValidation   *VATValidation   `json:"vat_validation,omitempty"`
	SirenSiret      *SirenSiret      `json:"siren_siret,omitempty"`
	VATIntracom     json.RawMessage  `json:"vat_intracom,omitempty"`
	Enrichment      json.RawMessage  `json:"enrichment,omitempty"`
}

// ComplianceCheck reports mandatory-mention coverage, scored 0..100
type ComplianceCheck struct {
	Compliant             bool     `json:"compliant"`
	Score                 float64  `json:"score"`
	MissingFields         []string `json:"missing_fields"`
	Warnings              []string `json:"warnings"`
	RequiredFieldsPresent bool     `json:"required_fields_present"`
}

// SirenSiret holds company identifiers detected in the document
type SirenSiret struct {
	Siren *string `json:"siren,omitempty"`
	Siret *string `json:"siret,omitempty"`
}

// VATValidation is the response of VAT arithmetic validation
type VATValidation struct {
	Valid    bool       `json:"valid"`
	Errors   []VATIssue `json:"errors"`
	Warnings []VATIssue `json:"warnings"`
	VATRate  *float64   `json:"vat_rate,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// VATIssue is a single VAT error or warning
type VATIssue struct {
	Field            string   `json:"field"`
	Error            *string  `json:"error,omitempty"`
	Warning          *string  `json:"warning,omitempty"`
	Difference       *float64 `json:"difference,omitempty"`
	ClosestValidRate *float64 `json:"closest_valid_rate,omitempty"`
	DetectedRate     *float64 `json:"detected_rate,omitempty"`
	ExpectedTTC      *float64 `json:"expected_ttc,omitempty"`
	ActualTTC        *float64 `json:"actual_ttc,omitempty"`
}

// SiretEnrichment is the response of registry enrichment
type SiretEnrichment struct {
	Success bool    `json:"success"`
	Siret   *string `json:"siret,omitempty"`
	Siren   *string `json:"siren,omitempty"`
	Note    *string `json:"note,omitempty"`
	Error   *string `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// VIESResult is the response of intra-community VAT number validation
type VIESResult struct {
	Success     bool    `json:"success"`
	Valid       *bool   `json:"valid,omitempty"`
	VATNumber   *string `json:"vat_number,omitempty"`
	CountryCode *string `json:"country_code,omitempty"`
	Name        *string `json:"name,omitempty"`
	Address     *string `json:"address,omitempty"`
	Error       *string `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// FacturXDocument is the response of Factur-X XML generation
type FacturXDocument struct {
	Success *bool   `json:"success,omitempty"`
	XML     *string `json:"xml,omitempty"`
	Format  *string `json:"format,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// FacturXParseResult is the response of Factur-X extraction from a PDF
type FacturXParseResult struct {
	Success *bool        `json:"success,omitempty"`
	XML     *string      `json:"xml,omitempty"`
	Data    *InvoiceData `json:"data,omitempty"`
	Error   *string      `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// FacturXValidation is the response of Factur-X XML validation
type FacturXValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Report   *string  `json:"report,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// LanguageInfo describes one supported OCR language
type LanguageInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages is the response of the language listing
type Languages struct {
	Languages []LanguageInfo `json:"languages"`

	Raw json.RawMessage `json:"-"`
}

// QuotaWindow is usage within one quota period
type QuotaWindow struct {
	Limit     int     `json:"limit"`
	Remaining int     `json:"remaining"`
	ResetTime *string `json:"reset_time,omitempty"`
}

// Quota is the usage snapshot for the calling key
type Quota struct {
	Plan    string       `json:"plan"`
	Monthly *QuotaWindow `json:"monthly,omitempty"`
	Daily   *QuotaWindow `json:"daily,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Health is the service liveness document
type Health struct {
	Status     string  `json:"status"`
	APIVersion *string `json:"api_version,omitempty"`
	DebugMode  *bool   `json:"debug_mode,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// SetRaw stores the undecoded response body
func (r *ComplianceResult) SetRaw(b json.RawMessage)   { r.Raw = b }
func (r *VATValidation) SetRaw(b json.RawMessage)      { r.Raw = b }
func (r *SiretEnrichment) SetRaw(b json.RawMessage)    { r.Raw = b }
func (r *VIESResult) SetRaw(b json.RawMessage)         { r.Raw = b }
func (r *FacturXDocument) SetRaw(b json.RawMessage)    { r.Raw = b }
func (r *FacturXParseResult) SetRaw(b json.RawMessage) { r.Raw = b }
func (r *FacturXValidation) SetRaw(b json.RawMessage)  { r.Raw = b }
func (r *Languages) SetRaw(b json.RawMessage)          { r.Raw = b }
func (r *Quota) SetRaw(b json.RawMessage)              { r.Raw = b }
func (r *Health) SetRaw(b json.RawMessage)             { r.Raw = b }
