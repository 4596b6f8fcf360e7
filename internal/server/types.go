package server

import (
	"net/http"
	"time"

	"github.com/rezonia/facture-ocr/internal/model"
)

// ErrorResponse is the body of auth and quota failures
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DetailResponse is the body of request validation failures
type DetailResponse struct {
	Detail string `json:"detail"`
}

// batchRequest is the body of POST /v1/ocr/batch
type batchRequest struct {
	Files    []string `json:"files"`
	Language string   `json:"language"`
}

type siretRequest struct {
	Siret string `json:"siret"`
}

type viesRequest struct {
	VATNumber string `json:"vat_number"`
}

type facturXValidateRequest struct {
	XMLContent string `json:"xml_content"`
}

// Failure is a scripted response returned instead of the normal handler.
type Failure struct {
	Status int
	Body   any
	Header map[string]string

	// Delay is waited before responding, or until the client goes away.
	Delay time.Duration

	// Times limits how many requests are failed. Zero means until cleared.
	Times int
}

// RecordedRequest is what the server saw of an incoming request
type RecordedRequest struct {
	Method    string
	Path      string
	Header    http.Header
	RequestID string
}

// defaultSample is returned by the OCR endpoints when no sample is configured
func defaultSample() *model.InvoiceData {
	return &model.InvoiceData{
		InvoiceNumber: model.Ptr("FAC-2024-001"),
		Date:          model.Ptr("15/01/2024"),
		Vendor:        model.Ptr("ACME Services SARL"),
		Client:        model.Ptr("Dupont Conseil SAS"),
		Currency:      model.Ptr("EUR"),
		TotalHT:       model.NewAmount(1000),
		TVA:           model.NewAmount(200),
		TotalTTC:      model.NewAmount(1200),
		Items: []model.LineItem{
			{
				Description: "Prestation de conseil",
				Quantity:    model.NewAmount(2),
				UnitPrice:   model.NewAmount(500),
				Total:       model.NewAmount(1000),
			},
		},
	}
}
