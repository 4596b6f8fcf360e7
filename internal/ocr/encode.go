package ocr

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/rezonia/facture-ocr/internal/model"
)

// Endpoint paths, relative to the base URL
const (
	PathUpload          = "/v1/ocr/upload"
	PathBase64          = "/v1/ocr/base64"
	PathBatch           = "/v1/ocr/batch"
	PathComplianceCheck = "/v1/compliance/check"
	PathValidateVAT     = "/compliance/validate-vat"
	PathEnrichSiret     = "/compliance/enrich-siret"
	PathValidateVIES    = "/compliance/validate-vies"
	PathFacturXGenerate = "/facturx/generate"
	PathFacturXParse    = "/facturx/parse"
	PathFacturXValidate = "/facturx/validate"
	PathLanguages       = "/v1/languages"
	PathQuota           = "/v1/quota"
	PathHealth          = "/health"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// payload is an encoded request ready for the transport.
type payload struct {
	method      string
	path        string
	contentType string
	body        io.ReadCloser

	// length is the body size, or -1 when unknown
	length int64
}

func emptyPayload(method, path string) *payload {
	return &payload{method: method, path: path}
}

func jsonPayload(path string, v any) (*payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return &payload{
		method:      http.MethodPost,
		path:        path,
		contentType: contentTypeJSON,
		body:        io.NopCloser(bytes.NewReader(data)),
		length:      int64(len(data)),
	}, nil
}

// encodeSingle builds the extraction request for one document. Paths and
// buffers go to the multipart endpoint, base64 strings to the form endpoint.
func encodeSingle(doc Document, opts *ExtractOptions) (*payload, error) {
	fields := [][2]string{
		{"language", string(opts.language())},
		{"check_compliance", strconv.FormatBool(opts.checkCompliance())},
	}

	switch doc.Kind() {
	case KindPath, KindBytes:
		return encodeMultipart(PathUpload, doc, fields)
	case KindBase64:
		return encodeBase64(doc, opts), nil
	default:
		return nil, fmt.Errorf("encode document: unsupported kind %s", doc.Kind())
	}
}

func encodeBase64(doc Document, opts *ExtractOptions) *payload {
	form := url.Values{}
	form.Set("image_base64", StripDataURI(doc.base64))
	form.Set("language", string(opts.language()))
	form.Set("check_compliance", strconv.FormatBool(opts.checkCompliance()))

	data := form.Encode()
	return &payload{
		method:      http.MethodPost,
		path:        PathBase64,
		contentType: contentTypeForm,
		body:        io.NopCloser(strings.NewReader(data)),
		length:      int64(len(data)),
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart writes fields then the document as the "file" part. File
// contents are never buffered: the envelope is rendered up front and the body
// is prefix + file + trailer.
func encodeMultipart(path string, doc Document, fields [][2]string) (*payload, error) {
	var content io.Reader
	var closer io.Closer
	size := int64(-1)

	switch doc.Kind() {
	case KindPath:
		f, err := os.Open(doc.path)
		if err != nil {
			return nil, fmt.Errorf("open document: %w", err)
		}
		if st, err := f.Stat(); err == nil && st.Mode().IsRegular() {
			size = st.Size()
		}
		content, closer = f, f
	case KindBytes:
		content = bytes.NewReader(doc.data)
		size = int64(len(doc.data))
	default:
		return nil, fmt.Errorf("encode multipart: unsupported kind %s", doc.Kind())
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			closeQuietly(closer)
			return nil, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	name := doc.Filename()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", MIMEFromName(name))
	if _, err := mw.CreatePart(h); err != nil {
		closeQuietly(closer)
		return nil, fmt.Errorf("create file part: %w", err)
	}

	split := buf.Len()
	if err := mw.Close(); err != nil {
		closeQuietly(closer)
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	envelope := buf.Bytes()
	prefix := append([]byte(nil), envelope[:split]...)
	trailer := append([]byte(nil), envelope[split:]...)

	length := int64(-1)
	if size >= 0 {
		length = int64(len(prefix)) + size + int64(len(trailer))
	}

	return &payload{
		method:      http.MethodPost,
		path:        path,
		contentType: mw.FormDataContentType(),
		body: readCloser{
			Reader: io.MultiReader(bytes.NewReader(prefix), content, bytes.NewReader(trailer)),
			closer: closer,
		},
		length: length,
	}, nil
}

type batchBody struct {
	Files    []string `json:"files"`
	Language string   `json:"language"`
}

// encodeBatch renders every document as a data URI and sends them as one
// JSON body, in input order.
func encodeBatch(docs []Document, opts *BatchOptions) (*payload, error) {
	files := make([]string, 0, len(docs))
	for i, doc := range docs {
		uri, err := dataURI(doc)
		if err != nil {
			return nil, fmt.Errorf("batch document %d: %w", i, err)
		}
		files = append(files, uri)
	}

	return jsonPayload(PathBatch, batchBody{
		Files:    files,
		Language: string(opts.language()),
	})
}

func dataURI(doc Document) (string, error) {
	switch doc.Kind() {
	case KindPath:
		data, err := os.ReadFile(doc.path)
		if err != nil {
			return "", fmt.Errorf("read document: %w", err)
		}
		return "data:" + doc.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
	case KindBytes:
		return "data:" + doc.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(doc.data), nil
	case KindBase64:
		if _, _, ok := splitDataURI(doc.base64); ok {
			return doc.base64, nil
		}
		return "data:" + MIMEJPEG + ";base64," + doc.base64, nil
	default:
		return "", fmt.Errorf("unsupported kind %s", doc.Kind())
	}
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (r readCloser) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// invoiceBody is the JSON shape shared by compliance and Factur-X endpoints
func invoiceBody(path string, data *model.InvoiceData) (*payload, error) {
	if data == nil {
		data = &model.InvoiceData{}
	}
	return jsonPayload(path, data)
}
