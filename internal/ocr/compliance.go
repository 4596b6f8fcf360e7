package ocr

import (
	"context"

	"github.com/rezonia/facture-ocr/internal/model"
)

// CheckCompliance scores extracted invoice fields against French invoicing rules
func (c *Client) CheckCompliance(ctx context.Context, data *model.InvoiceData) (*model.ComplianceResult, error) {
	p, err := invoiceBody(PathComplianceCheck, data)
	if err != nil {
		return nil, err
	}
	o, err := c.do(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw[model.ComplianceResult](o)
}

// ValidateVAT checks the HT/TVA/TTC arithmetic of an invoice
func (c *Client) ValidateVAT(ctx context.Context, data *model.InvoiceData) (*model.VATValidation, error) {
	p, err := invoiceBody(PathValidateVAT, data)
	if err != nil {
		return nil, err
	}
	o, err := c.do(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw[model.VATValidation](o)
}

// EnrichSiret looks a SIRET up in the company registry
func (c *Client) EnrichSiret(ctx context.Context, siret string) (*model.SiretEnrichment, error) {
	p, err := jsonPayload(PathEnrichSiret, map[string]string{"siret": siret})
	if err != nil {
		return nil, err
	}
	o, err := c.do(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw[model.SiretEnrichment](o)
}

// ValidateVIES checks an intra-community VAT number
func (c *Client) ValidateVIES(ctx context.Context, vatNumber string) (*model.VIESResult, error) {
	p, err := jsonPayload(PathValidateVIES, map[string]string{"vat_number": vatNumber})
	if err != nil {
		return nil, err
	}
	o, err := c.do(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw[model.VIESResult](o)
}
