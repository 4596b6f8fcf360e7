package ocr

import (
	"context"
	"net/http"
	"time"

	"github.com/rezonia/facture-ocr/internal/model"
)

// do sends p and classifies the outcome. A nil error means a 2xx response.
func (c *Client) do(ctx context.Context, p *payload, extra http.Header) (outcome, error) {
	o := c.send(ctx, p, extra)
	if err := classify(o, time.Now()); err != nil {
		return o, err
	}
	return o, nil
}

// Extract runs OCR and field extraction on a single document. Files and
// buffers are uploaded as multipart, base64 strings as a form field.
func (c *Client) Extract(ctx context.Context, doc Document, opts *ExtractOptions) (*model.ExtractResult, error) {
	p, err := encodeSingle(doc, opts)
	if err != nil {
		return nil, err
	}

	o, err := c.do(ctx, p, idempotencyHeader(opts.idempotencyKey()))
	if err != nil {
		return nil, err
	}
	return decode[model.ExtractResult](o)
}

// ExtractFile extracts a document streamed from disk
func (c *Client) ExtractFile(ctx context.Context, path string, opts *ExtractOptions) (*model.ExtractResult, error) {
	return c.Extract(ctx, FromPath(path), opts)
}

// ExtractBytes extracts an in-memory document. An empty name uploads as invoice.pdf.
func (c *Client) ExtractBytes(ctx context.Context, data []byte, name string, opts *ExtractOptions) (*model.ExtractResult, error) {
	return c.Extract(ctx, FromBytes(data, name), opts)
}

// ExtractBase64 extracts a base64 image, with or without a data: URI prefix
func (c *Client) ExtractBase64(ctx context.Context, s string, opts *ExtractOptions) (*model.ExtractResult, error) {
	return c.Extract(ctx, FromBase64(s), opts)
}

// ExtractBatch extracts up to MaxBatchSize documents in one request. Larger
// batches fail with a validation error before any file is read.
func (c *Client) ExtractBatch(ctx context.Context, docs []Document, opts *BatchOptions) (*model.BatchResult, error) {
	if err := validateBatch(docs); err != nil {
		return nil, err
	}

	p, err := encodeBatch(docs, opts)
	if err != nil {
		return nil, err
	}

	o, err := c.do(ctx, p, idempotencyHeader(opts.idempotencyKey()))
	if err != nil {
		return nil, err
	}
	return decode[model.BatchResult](o)
}
