package factureocr

import "github.com/rezonia/facture-ocr/internal/model"

// Re-export the error taxonomy
type (
	APIError  = model.APIError
	ErrorKind = model.ErrorKind
)

const (
	KindAuth       = model.KindAuth
	KindRateLimit  = model.KindRateLimit
	KindValidation = model.KindValidation
	KindServer     = model.KindServer
	KindGeneric    = model.KindGeneric

	DefaultRetryAfter = model.DefaultRetryAfter
)

// Sentinels for errors.Is
var (
	ErrAuth       = model.ErrAuth
	ErrRateLimit  = model.ErrRateLimit
	ErrValidation = model.ErrValidation
	ErrServer     = model.ErrServer
	ErrGeneric    = model.ErrGeneric
)

var (
	AsAPIError        = model.AsAPIError
	IsAuth            = model.IsAuth
	IsRateLimit       = model.IsRateLimit
	IsValidation      = model.IsValidation
	IsServer          = model.IsServer
	IsGeneric         = model.IsGeneric
	RetryAfterSeconds = model.RetryAfterSeconds
)
