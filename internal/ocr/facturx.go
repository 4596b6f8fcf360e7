package ocr

import (
	"context"

	"github.com/rezonia/facture-ocr/internal/model"
)

// GenerateFacturX renders invoice fields as Factur-X XML
func (c *Client) GenerateFacturX(ctx context.Context, data *model.InvoiceData) (*model.FacturXDocument, error) {
	p, err := invoiceBody(PathFacturXGenerate, data)
	if err != nil {
		return nil, err
	}
	o, err := c.do(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw[model.FacturXDocument](o)
}

// ParseFacturX extracts the embedded XML from a Factur-X PDF. doc must be a
// path or an in-memory buffer.
func (c *Client) ParseFacturX(ctx context.Context, doc Document) (*model.FacturXParseResult, error) {
	p, err := encodeMultipart(PathFacturXParse, doc, nil)
	if err != nil {
		return nil, err
	}
	o, err := c.do(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw[model.FacturXParseResult](o)
}

// ValidateFacturX validates Factur-X XML against the schema
func (c *Client) ValidateFacturX(ctx context.Context, xml string) (*model.FacturXValidation, error) {
	p, err := jsonPayload(PathFacturXValidate, map[string]string{"xml_content": xml})
	if err != nil {
		return nil, err
	}
	o, err := c.do(ctx, p, nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw[model.FacturXValidation](o)
}
