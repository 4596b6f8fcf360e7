package ocr

import (
	"github.com/google/uuid"

	"github.com/rezonia/facture-ocr/internal/model"
)

// ExtractOptions controls single-document extraction. A nil *ExtractOptions
// means French OCR, no compliance check and no idempotency key.
type ExtractOptions struct {
	Language        model.Language
	CheckCompliance bool
	IdempotencyKey  string
}

// BatchOptions controls batch extraction. The idempotency key applies to the
// batch as a whole.
type BatchOptions struct {
	Language       model.Language
	IdempotencyKey string
}

func (o *ExtractOptions) language() model.Language {
	if o == nil {
		return model.DefaultLanguage
	}
	return o.Language.OrDefault()
}

func (o *ExtractOptions) checkCompliance() bool {
	return o != nil && o.CheckCompliance
}

func (o *ExtractOptions) idempotencyKey() string {
	if o == nil {
		return ""
	}
	return o.IdempotencyKey
}

func (o *BatchOptions) language() model.Language {
	if o == nil {
		return model.DefaultLanguage
	}
	return o.Language.OrDefault()
}

func (o *BatchOptions) idempotencyKey() string {
	if o == nil {
		return ""
	}
	return o.IdempotencyKey
}

// NewIdempotencyKey returns a fresh random key suitable for the
// Idempotency-Key header.
func NewIdempotencyKey() string {
	return uuid.NewString()
}
