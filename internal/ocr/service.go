package ocr

import (
	"context"
	"net/http"

	"github.com/rezonia/facture-ocr/internal/model"
)

// Languages lists the OCR languages supported by the service
func (c *Client) Languages(ctx context.Context) (*model.Languages, error) {
	o, err := c.do(ctx, emptyPayload(http.MethodGet, PathLanguages), nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw[model.Languages](o)
}

// Quota returns the usage snapshot for the configured API key
func (c *Client) Quota(ctx context.Context) (*model.Quota, error) {
	o, err := c.do(ctx, emptyPayload(http.MethodGet, PathQuota), nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw[model.Quota](o)
}

// Health checks service liveness
func (c *Client) Health(ctx context.Context) (*model.Health, error) {
	o, err := c.do(ctx, emptyPayload(http.MethodGet, PathHealth), nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw[model.Health](o)
}
