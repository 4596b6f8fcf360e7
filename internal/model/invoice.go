package model

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// Language is an OCR language code accepted by the service
type Language string

const (
	LanguageFrench     Language = "fra"
	LanguageEnglish    Language = "eng"
	LanguageGerman     Language = "deu"
	LanguageSpanish    Language = "spa"
	LanguageItalian    Language = "ita"
	LanguagePortuguese Language = "por"
)

// DefaultLanguage is sent when the caller does not pick one
const DefaultLanguage = LanguageFrench

// SupportedLanguages lists the codes documented by the service
var SupportedLanguages = []Language{
	LanguageFrench,
	LanguageEnglish,
	LanguageGerman,
	LanguageSpanish,
	LanguageItalian,
	LanguagePortuguese,
}

// IsSupported reports whether l is one of the documented codes
func (l Language) IsSupported() bool {
	for _, s := range SupportedLanguages {
		if l == s {
			return true
		}
	}
	return false
}

// OrDefault returns l, or DefaultLanguage when l is empty
func (l Language) OrDefault() Language {
	if l == "" {
		return DefaultLanguage
	}
	return l
}

// Amount is a monetary value. It decodes from JSON numbers or strings and
// encodes as a bare JSON number, which is what the service expects.
type Amount struct {
	decimal.Decimal
}

// NewAmount creates an amount from a float, keeping the float's shortest representation
func NewAmount(v float64) *Amount {
	return &Amount{Decimal: decimal.NewFromFloat(v)}
}

// NewAmountFromString parses an amount such as "1250.50"
func NewAmountFromString(s string) (*Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &Amount{Decimal: d}, nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	return a.Decimal.UnmarshalJSON(data)
}

// InvoiceData holds the structured invoice fields extracted by the service.
// Nil fields were not extracted; empty strings were extracted as empty.
// Text and Lines carry the OCR text so that compliance checks fed with an
// extraction result can look for the vendor address and identifiers.
type InvoiceData struct {
	InvoiceNumber *string    `json:"invoice_number,omitempty"`
	Total         *Amount    `json:"total,omitempty"`
	TotalHT       *Amount    `json:"total_ht,omitempty"`
	TotalTTC      *Amount    `json:"total_ttc,omitempty"`
	TVA           *Amount    `json:"tva,omitempty"`
	Date          *string    `json:"date,omitempty"`
	Vendor        *string    `json:"vendor,omitempty"`
	Client        *string    `json:"client,omitempty"`
	Currency      *string    `json:"currency,omitempty"`
	Items         []LineItem `json:"items,omitempty"`
	Text          *string    `json:"text,omitempty"`
	Lines         []string   `json:"lines,omitempty"`
}

// LineItem is a single invoice line
type LineItem struct {
	Description string  `json:"description"`
	Quantity    *Amount `json:"quantity,omitempty"`
	UnitPrice   *Amount `json:"unit_price,omitempty"`
	Total       *Amount `json:"total,omitempty"`
}

// Ptr returns a pointer to v. Handy for building InvoiceData literals.
func Ptr[T any](v T) *T {
	return &v
}
