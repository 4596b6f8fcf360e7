package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	money "github.com/rezonia/facture-ocr/internal/decimal"
	"github.com/rezonia/facture-ocr/internal/model"
)

var (
	siretPattern = regexp.MustCompile(`\b\d{3}\s?\d{3}\s?\d{3}\s?\d{5}\b`)
	sirenPattern = regexp.MustCompile(`\b\d{3}\s?\d{3}\s?\d{3}\b`)
	vatIDPattern = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z]{2,13}$`)
	addressWords = []string{"rue", "avenue", "boulevard", "route", "street", "road", "paris", "lyon", "marseille"}
	vendorLabels = []string{"vendeur", "vendor", "vendeur:", "vendor:"}
)

func (s *Server) handleComplianceCheck(c *gin.Context) {
	var data model.InvoiceData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "invalid invoice data: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.ComplianceResult{
		Success:    model.Ptr(true),
		Compliance: buildComplianceReport(&data, deref(data.Text)),
	})
}

func (s *Server) handleValidateVAT(c *gin.Context) {
	var data model.InvoiceData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "invalid invoice data: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, validateVAT(&data))
}

func (s *Server) handleEnrichSiret(c *gin.Context) {
	var req siretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "invalid JSON body: " + err.Error()})
		return
	}

	siret := strings.ReplaceAll(req.Siret, " ", "")
	if len(siret) != 14 || strings.Trim(siret, "0123456789") != "" {
		c.JSON(http.StatusOK, model.SiretEnrichment{Success: false, Error: model.Ptr("invalid SIRET")})
		return
	}

	c.JSON(http.StatusOK, model.SiretEnrichment{
		Success: true,
		Siret:   model.Ptr(siret),
		Siren:   model.Ptr(siret[:9]),
		Note:    model.Ptr("registry lookup not performed by the stub"),
	})
}

func (s *Server) handleValidateVIES(c *gin.Context) {
	var req viesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "invalid JSON body: " + err.Error()})
		return
	}

	if req.VATNumber == "" {
		c.JSON(http.StatusOK, model.VIESResult{Success: false, Error: model.Ptr("missing VAT number")})
		return
	}

	clean := strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(req.VATNumber))
	if len(clean) < 3 {
		c.JSON(http.StatusOK, model.VIESResult{Success: false, Error: model.Ptr("invalid VAT number format")})
		return
	}

	res := model.VIESResult{
		Success:     true,
		Valid:       model.Ptr(vatIDPattern.MatchString(clean)),
		VATNumber:   model.Ptr(req.VATNumber),
		CountryCode: model.Ptr(clean[:2]),
	}
	if *res.Valid {
		res.Name = s.sample.Vendor
	} else {
		res.Error = model.Ptr("VAT number not valid according to VIES")
	}
	c.JSON(http.StatusOK, res)
}

// buildComplianceReport scores mandatory invoice mentions. text is the OCR
// text, used for address and identifier detection when available.
func buildComplianceReport(d *model.InvoiceData, text string) *model.ComplianceReport {
	check := &model.ComplianceCheck{
		Score:         100,
		MissingFields: []string{},
		Warnings:      []string{},
	}
	missing := func(field string, penalty float64) {
		check.MissingFields = append(check.MissingFields, field)
		check.Score -= penalty
	}

	if blank(d.Date) {
		missing("date", 15)
	}
	if blank(d.InvoiceNumber) {
		missing("invoice_number", 15)
	}
	if d.TotalHT == nil && d.Total == nil {
		missing("total_ht", 10)
	}
	if d.TotalTTC == nil && d.Total == nil {
		missing("total_ttc", 10)
	}

	switch {
	case d.Vendor == nil || len(strings.TrimSpace(*d.Vendor)) < 3:
		missing("vendor", 10)
	case contains(vendorLabels, strings.ToLower(strings.TrimSpace(*d.Vendor))):
		missing("vendor (label detected instead of name)", 10)
	}

	if d.Client == nil || len(strings.TrimSpace(*d.Client)) < 3 {
		check.Warnings = append(check.Warnings, "client name not detected (mandatory for B2B invoices)")
		check.Score -= 5
	}

	if text != "" && !containsAny(strings.ToLower(text), addressWords) {
		check.Warnings = append(check.Warnings, "vendor address not detected")
		check.Score -= 5
	}

	if check.Score < 0 {
		check.Score = 0
	}
	check.Compliant = len(check.MissingFields) == 0
	check.RequiredFieldsPresent = check.Compliant

	report := &model.ComplianceReport{
		ComplianceCheck: check,
		VATValidation:   validateVAT(d),
	}
	if text != "" {
		ids := &model.SirenSiret{}
		if m := siretPattern.FindString(text); m != "" {
			ids.Siret = model.Ptr(strings.ReplaceAll(m, " ", ""))
		}
		if m := sirenPattern.FindString(text); m != "" {
			ids.Siren = model.Ptr(strings.ReplaceAll(m, " ", ""))
		}
		report.SirenSiret = ids
	}
	return report
}

// validateVAT checks the implied VAT rate and HT + TVA = TTC, to the cent.
func validateVAT(d *model.InvoiceData) *model.VATValidation {
	res := &model.VATValidation{Valid: true, Errors: []model.VATIssue{}, Warnings: []model.VATIssue{}}

	ttc := d.TotalTTC
	if ttc == nil {
		ttc = d.Total
	}
	if d.TotalHT == nil || ttc == nil || !d.TotalHT.IsPositive() {
		return res
	}

	ht := d.TotalHT.Decimal
	tvaCalc := ttc.Sub(ht)
	rate := money.ImpliedRate(ht, ttc.Decimal)
	res.VATRate = model.Ptr(rate.InexactFloat64())

	if !money.IsValidRate(rate, money.FrenchVATRates) {
		closest := money.ClosestRate(rate, money.FrenchVATRates)
		res.Errors = append(res.Errors, model.VATIssue{
			Field:            "tva_rate",
			Error:            model.Ptr(fmt.Sprintf("VAT rate %s%% is not valid in France", rate.String())),
			ClosestValidRate: model.Ptr(closest.InexactFloat64()),
			DetectedRate:     model.Ptr(rate.InexactFloat64()),
		})
	}

	if d.TVA != nil && !money.WithinCent(tvaCalc, d.TVA.Decimal) {
		diff := tvaCalc.Sub(d.TVA.Decimal).Abs()
		res.Warnings = append(res.Warnings, model.VATIssue{
			Field: "tva_amount",
			Warning: model.Ptr(fmt.Sprintf("computed VAT (%s) differs from extracted VAT (%s)",
				tvaCalc.StringFixed(2), d.TVA.StringFixed(2))),
			Difference: model.Ptr(money.RoundCents(diff).InexactFloat64()),
		})

		expected := ht.Add(d.TVA.Decimal)
		if !money.WithinCent(expected, ttc.Decimal) {
			res.Errors = append(res.Errors, model.VATIssue{
				Field: "total_ttc",
				Error: model.Ptr(fmt.Sprintf("HT (%s) + TVA (%s) != TTC (%s)",
					ht.StringFixed(2), d.TVA.StringFixed(2), ttc.StringFixed(2))),
				ExpectedTTC: model.Ptr(money.RoundCents(expected).InexactFloat64()),
				ActualTTC:   model.Ptr(ttc.InexactFloat64()),
			})
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
