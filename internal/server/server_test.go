package server_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facture-ocr/internal/model"
	"github.com/rezonia/facture-ocr/internal/server"
)

const testSecret = "test-secret"

func newTestServer() *server.Server {
	config := &server.Config{
		Address:     ":8080",
		ProxySecret: testSecret,
	}
	return server.NewServer(config)
}

func do(t *testing.T, srv *server.Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if req.Header.Get(server.HeaderProxySecret) == "" {
		req.Header.Set(server.HeaderProxySecret, testSecret)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, path string, v any) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, path, filename, contentType string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response model.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	require.NotNil(t, response.APIVersion)
	assert.Equal(t, server.APIVersion, *response.APIVersion)
	assert.NotEmpty(t, w.Header().Get(server.HeaderRequestID))
}

func TestAuth_MissingSecret(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/languages", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var response server.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Unauthorized", response.Error)
}

func TestAuth_Disabled(t *testing.T) {
	srv := server.NewServer(&server.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/languages", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLanguagesEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, httptest.NewRequest(http.MethodGet, "/v1/languages", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response model.Languages
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Languages, len(model.SupportedLanguages))
	for i, l := range model.SupportedLanguages {
		assert.Equal(t, string(l), response.Languages[i].Code)
	}
}

func TestUploadEndpoint(t *testing.T) {
	srv := newTestServer()

	req := uploadRequest(t, "/v1/ocr/upload", "facture.pdf", "application/pdf", []byte("%PDF-1.4 test"),
		map[string]string{"language": "fra", "check_compliance": "true"})
	w := do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response model.ExtractResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	require.NotNil(t, response.Cached)
	assert.False(t, *response.Cached)
	require.NotNil(t, response.Data)
	assert.Equal(t, "fra", response.Data.Language)
	require.NotNil(t, response.ExtractedData)
	assert.Equal(t, "FAC-2024-001", *response.ExtractedData.InvoiceNumber)
	require.NotNil(t, response.ExtractedData.Text)
	assert.Equal(t, response.Data.Text, *response.ExtractedData.Text)
	assert.Contains(t, response.ExtractedData.Lines, "Date : 15/01/2024")
	assert.NotEmpty(t, response.Compliance)

	// Same content again is served from cache.
	req = uploadRequest(t, "/v1/ocr/upload", "facture.pdf", "application/pdf", []byte("%PDF-1.4 test"),
		map[string]string{"language": "fra", "check_compliance": "false"})
	w = do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, *response.Cached)
}

func TestUploadEndpoint_RejectsNonImage(t *testing.T) {
	srv := newTestServer()

	req := uploadRequest(t, "/v1/ocr/upload", "notes.txt", "text/plain", []byte("hello"), nil)
	w := do(t, srv, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadEndpoint_UnsupportedLanguage(t *testing.T) {
	srv := newTestServer()

	req := uploadRequest(t, "/v1/ocr/upload", "a.png", "image/png", []byte("png"),
		map[string]string{"language": "xx"})
	w := do(t, srv, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "detail")
}

func TestBase64Endpoint(t *testing.T) {
	srv := newTestServer()

	form := url.Values{}
	form.Set("image_base64", base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")))
	form.Set("language", "eng")
	form.Set("check_compliance", "false")

	req := httptest.NewRequest(http.MethodPost, "/v1/ocr/base64", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code)

	var response model.ExtractResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, "eng", response.Data.Language)
	assert.Nil(t, response.Compliance)
}

func TestBase64Endpoint_InvalidPayload(t *testing.T) {
	srv := newTestServer()

	form := url.Values{"image_base64": {"***"}}
	req := httptest.NewRequest(http.MethodPost, "/v1/ocr/base64", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code)

	var response model.ExtractResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Success)
	require.NotNil(t, response.Error)
}

func TestBatchEndpoint(t *testing.T) {
	srv := newTestServer()

	files := []string{
		"data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("one")),
		"data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("two")),
		"data:image/jpeg;base64,%%%",
	}
	w := do(t, srv, jsonRequest(t, "/v1/ocr/batch", map[string]any{"files": files, "language": "fra"}))
	require.Equal(t, http.StatusOK, w.Code)

	var response model.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, 3, response.TotalProcessed)
	require.Len(t, response.Results, 3)
	assert.True(t, response.Results[0].Success)
	assert.True(t, response.Results[1].Success)
	assert.False(t, response.Results[2].Success)
}

func TestBatchEndpoint_TooManyFiles(t *testing.T) {
	srv := newTestServer()

	files := make([]string, 11)
	for i := range files {
		files[i] = base64.StdEncoding.EncodeToString([]byte{byte(i)})
	}
	w := do(t, srv, jsonRequest(t, "/v1/ocr/batch", map[string]any{"files": files}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Maximum 10 files")
}

func TestComplianceCheckEndpoint(t *testing.T) {
	srv := newTestServer()

	data := model.InvoiceData{
		InvoiceNumber: model.Ptr("FAC-1"),
		TotalHT:       model.NewAmount(100),
		TVA:           model.NewAmount(20),
		TotalTTC:      model.NewAmount(120),
	}
	w := do(t, srv, jsonRequest(t, "/v1/compliance/check", data))
	require.Equal(t, http.StatusOK, w.Code)

	var response model.ComplianceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Compliance)
	check := response.Compliance.ComplianceCheck
	require.NotNil(t, check)
	assert.False(t, check.Compliant)
	assert.Contains(t, check.MissingFields, "date")
	assert.Contains(t, check.MissingFields, "vendor")
	assert.InDelta(t, 100-15-10-5, check.Score, 0.001)
	require.NotNil(t, response.Compliance.VATValidation)
	assert.True(t, response.Compliance.VATValidation.Valid)
}

func TestComplianceCheckEndpoint_UsesText(t *testing.T) {
	srv := newTestServer()

	data := model.InvoiceData{
		InvoiceNumber: model.Ptr("FAC-1"),
		Date:          model.Ptr("01/02/2024"),
		Vendor:        model.Ptr("ACME Services SARL"),
		Client:        model.Ptr("Dupont Conseil SAS"),
		TotalHT:       model.NewAmount(100),
		TVA:           model.NewAmount(20),
		TotalTTC:      model.NewAmount(120),
		Text:          model.Ptr("ACME Services SARL\nSIRET 123 456 789 00012"),
	}
	w := do(t, srv, jsonRequest(t, "/v1/compliance/check", data))
	require.Equal(t, http.StatusOK, w.Code)

	var response model.ComplianceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Compliance)
	check := response.Compliance.ComplianceCheck
	require.NotNil(t, check)
	assert.Contains(t, check.Warnings, "vendor address not detected")
	assert.InDelta(t, 95, check.Score, 0.001)

	ids := response.Compliance.SirenSiret
	require.NotNil(t, ids)
	require.NotNil(t, ids.Siret)
	assert.Equal(t, "12345678900012", *ids.Siret)
}

func TestValidateVATEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		ht, tva   float64
		ttc       float64
		wantValid bool
		wantRate  float64
	}{
		{"standard rate", 100, 20, 120, true, 20},
		{"reduced rate", 200, 11, 211, true, 5.5},
		{"invalid rate", 100, 15, 115, false, 15},
	}

	srv := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := model.InvoiceData{
				TotalHT:  model.NewAmount(tt.ht),
				TVA:      model.NewAmount(tt.tva),
				TotalTTC: model.NewAmount(tt.ttc),
			}
			w := do(t, srv, jsonRequest(t, "/compliance/validate-vat", data))
			require.Equal(t, http.StatusOK, w.Code)

			var response model.VATValidation
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantValid, response.Valid)
			require.NotNil(t, response.VATRate)
			assert.InDelta(t, tt.wantRate, *response.VATRate, 0.001)
		})
	}
}

func TestEnrichSiretEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, jsonRequest(t, "/compliance/enrich-siret", map[string]string{"siret": "732 829 320 00074"}))
	require.Equal(t, http.StatusOK, w.Code)

	var response model.SiretEnrichment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, "732829320", *response.Siren)

	w = do(t, srv, jsonRequest(t, "/compliance/enrich-siret", map[string]string{"siret": "123"}))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Success)
}

func TestValidateVIESEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, jsonRequest(t, "/compliance/validate-vies", map[string]string{"vat_number": "FR 40 303 265 045"}))
	require.Equal(t, http.StatusOK, w.Code)

	var response model.VIESResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	require.NotNil(t, response.Valid)
	assert.True(t, *response.Valid)
	assert.Equal(t, "FR", *response.CountryCode)
}

func TestFacturX_GenerateParseValidate(t *testing.T) {
	srv := newTestServer()

	data := model.InvoiceData{
		InvoiceNumber: model.Ptr("FAC-2024-042"),
		Date:          model.Ptr("15/01/2024"),
		Vendor:        model.Ptr("ACME"),
		Client:        model.Ptr("Dupont"),
		TotalHT:       model.NewAmount(100),
		TVA:           model.NewAmount(20),
		TotalTTC:      model.NewAmount(120),
	}
	w := do(t, srv, jsonRequest(t, "/facturx/generate", data))
	require.Equal(t, http.StatusOK, w.Code)

	var generated model.FacturXDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &generated))
	require.NotNil(t, generated.XML)
	assert.Contains(t, *generated.XML, "rsm:CrossIndustryInvoice")
	assert.Contains(t, *generated.XML, "20240115")

	w = do(t, srv, jsonRequest(t, "/facturx/validate", map[string]string{"xml_content": *generated.XML}))
	require.Equal(t, http.StatusOK, w.Code)
	var validation model.FacturXValidation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &validation))
	assert.True(t, validation.Valid, validation.Errors)

	pdf := append([]byte("%PDF-1.7\n"), []byte(*generated.XML)...)
	pdf = append(pdf, []byte("\n%%EOF")...)
	w = do(t, srv, uploadRequest(t, "/facturx/parse", "facture.pdf", "application/pdf", pdf, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var parsed model.FacturXParseResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	require.NotNil(t, parsed.Success)
	assert.True(t, *parsed.Success)
	require.NotNil(t, parsed.Data)
	assert.Equal(t, "FAC-2024-042", *parsed.Data.InvoiceNumber)
	assert.Equal(t, "15/01/2024", *parsed.Data.Date)
	assert.True(t, parsed.Data.TotalTTC.Equal(data.TotalTTC.Decimal))
}

func TestFacturXGenerate_ComputesLineTotals(t *testing.T) {
	srv := newTestServer()

	data := model.InvoiceData{
		InvoiceNumber: model.Ptr("FAC-7"),
		Items: []model.LineItem{
			{Description: "Audit", Quantity: model.NewAmount(2), UnitPrice: model.NewAmount(12.5)},
			{Description: "Conseil", Total: model.NewAmount(50)},
		},
	}
	w := do(t, srv, jsonRequest(t, "/facturx/generate", data))
	require.Equal(t, http.StatusOK, w.Code)

	var generated model.FacturXDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &generated))
	require.NotNil(t, generated.XML)
	assert.Contains(t, *generated.XML, "<ram:LineTotalAmount>25.00</ram:LineTotalAmount>")
	assert.Contains(t, *generated.XML, "<ram:TaxBasisTotalAmount>75.00</ram:TaxBasisTotalAmount>")
	assert.Contains(t, *generated.XML, "<ram:RateApplicablePercent>20.00</ram:RateApplicablePercent>")
	assert.Contains(t, *generated.XML, "<ram:TaxTotalAmount>15.00</ram:TaxTotalAmount>")
}

func TestFacturXGenerate_ApplicableTax(t *testing.T) {
	tests := []struct {
		name     string
		data     model.InvoiceData
		rate     string
		vat      string
		category string
		taxTotal string
	}{
		{
			name:     "rate from TTC",
			data:     model.InvoiceData{TotalHT: model.NewAmount(100), TotalTTC: model.NewAmount(105.5)},
			rate:     "5.50",
			vat:      "5.50",
			category: "S",
			taxTotal: "5.50",
		},
		{
			name:     "printed VAT kept",
			data:     model.InvoiceData{TotalHT: model.NewAmount(1000), TVA: model.NewAmount(199.99), TotalTTC: model.NewAmount(1199.99)},
			rate:     "20.00",
			vat:      "200.00",
			category: "S",
			taxTotal: "199.99",
		},
		{
			name:     "exempt",
			data:     model.InvoiceData{TotalHT: model.NewAmount(80), TotalTTC: model.NewAmount(80)},
			rate:     "0.00",
			vat:      "0.00",
			category: "E",
			taxTotal: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer()
			w := do(t, srv, jsonRequest(t, "/facturx/generate", tt.data))
			require.Equal(t, http.StatusOK, w.Code)

			var generated model.FacturXDocument
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &generated))
			require.NotNil(t, generated.XML)
			out := *generated.XML
			assert.Contains(t, out, "<ram:RateApplicablePercent>"+tt.rate+"</ram:RateApplicablePercent>")
			assert.Contains(t, out, "<ram:CalculatedAmount>"+tt.vat+"</ram:CalculatedAmount>")
			assert.Contains(t, out, "<ram:CategoryCode>"+tt.category+"</ram:CategoryCode>")
			assert.Contains(t, out, "<ram:TaxTotalAmount>"+tt.taxTotal+"</ram:TaxTotalAmount>")
		})
	}
}

func TestFacturXGenerate_NoBasisNoTax(t *testing.T) {
	srv := newTestServer()
	w := do(t, srv, jsonRequest(t, "/facturx/generate", model.InvoiceData{InvoiceNumber: model.Ptr("FAC-8")}))
	require.Equal(t, http.StatusOK, w.Code)

	var generated model.FacturXDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &generated))
	require.NotNil(t, generated.XML)
	assert.NotContains(t, *generated.XML, "ApplicableTradeTax")
}

func TestFacturXValidate_Malformed(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, jsonRequest(t, "/facturx/validate", map[string]string{"xml_content": "<Invoice><open>"}))
	require.Equal(t, http.StatusOK, w.Code)

	var validation model.FacturXValidation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &validation))
	assert.False(t, validation.Valid)
	assert.NotEmpty(t, validation.Errors)
}

func TestScriptedFailure(t *testing.T) {
	srv := newTestServer()
	srv.Fail("/v1/quota", server.Failure{
		Status: http.StatusServiceUnavailable,
		Body:   map[string]string{"detail": "maintenance"},
		Times:  1,
	})

	w := do(t, srv, httptest.NewRequest(http.MethodGet, "/v1/quota", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, srv, httptest.NewRequest(http.MethodGet, "/v1/quota", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQuota_Exceeded(t *testing.T) {
	srv := newTestServer()
	srv.SetQuotaLimit(1)

	body := map[string]string{"siret": "73282932000074"}
	w := do(t, srv, jsonRequest(t, "/compliance/enrich-siret", body))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, jsonRequest(t, "/compliance/enrich-siret", body))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do(t, srv, httptest.NewRequest(http.MethodGet, "/v1/quota", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var quota model.Quota
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quota))
	assert.Equal(t, "PRO", quota.Plan)
	require.NotNil(t, quota.Monthly)
	assert.Equal(t, 1, quota.Monthly.Limit)
	assert.Equal(t, 0, quota.Monthly.Remaining)
}

func TestRequestsAreRecorded(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/languages", nil)
	req.Header.Set("Idempotency-Key", "abc")
	do(t, srv, req)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/v1/languages", reqs[0].Path)
	assert.Equal(t, "abc", reqs[0].Header.Get("Idempotency-Key"))
	assert.NotEmpty(t, reqs[0].RequestID)
}

func TestRequests_KeepsMostRecent(t *testing.T) {
	srv := server.NewServer(&server.Config{ProxySecret: testSecret, MaxRecorded: 2})

	for _, key := range []string{"a", "b", "c"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/languages", nil)
		req.Header.Set("Idempotency-Key", key)
		do(t, srv, req)
	}

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "b", reqs[0].Header.Get("Idempotency-Key"))
	assert.Equal(t, "c", reqs[1].Header.Get("Idempotency-Key"))
}

func TestRequests_RecordingDisabled(t *testing.T) {
	srv := server.NewServer(&server.Config{ProxySecret: testSecret, MaxRecorded: -1})

	do(t, srv, httptest.NewRequest(http.MethodGet, "/v1/languages", nil))
	assert.Empty(t, srv.Requests())
}

func TestUploadEndpoint_CacheIsBounded(t *testing.T) {
	srv := server.NewServer(&server.Config{ProxySecret: testSecret, CacheSize: 1})

	cached := func(content string) bool {
		t.Helper()
		w := do(t, srv, uploadRequest(t, "/v1/ocr/upload", "scan.png", "image/png", []byte(content), nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var response model.ExtractResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.NotNil(t, response.Cached)
		return *response.Cached
	}

	assert.False(t, cached("first"))
	assert.True(t, cached("first"))
	assert.False(t, cached("second"))
	// evicted by the second document
	assert.False(t, cached("first"))
}
