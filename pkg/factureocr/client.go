package factureocr

import "github.com/rezonia/facture-ocr/internal/ocr"

type (
	Client         = ocr.Client
	ClientConfig   = ocr.ClientConfig
	ClientOption   = ocr.ClientOption
	Document       = ocr.Document
	DocumentKind   = ocr.DocumentKind
	ExtractOptions = ocr.ExtractOptions
	BatchOptions   = ocr.BatchOptions
)

const (
	DefaultBaseURL   = ocr.DefaultBaseURL
	DefaultTimeout   = ocr.DefaultTimeout
	DefaultUserAgent = ocr.DefaultUserAgent
	MaxBatchSize     = ocr.MaxBatchSize
)

const (
	KindPath   = ocr.KindPath
	KindBytes  = ocr.KindBytes
	KindBase64 = ocr.KindBase64
)

var (
	NewClient      = ocr.NewClient
	WithBaseURL    = ocr.WithBaseURL
	WithTimeout    = ocr.WithTimeout
	WithHTTPClient = ocr.WithHTTPClient
	WithLogger     = ocr.WithLogger
	WithUserAgent  = ocr.WithUserAgent

	FromPath   = ocr.FromPath
	FromBytes  = ocr.FromBytes
	FromBase64 = ocr.FromBase64

	NewIdempotencyKey = ocr.NewIdempotencyKey
)
