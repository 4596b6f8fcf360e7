package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rezonia/facture-ocr/internal/model"
)

// decode unmarshals a 2xx body into T. An empty body yields the zero value.
func decode[T any](o outcome) (*T, error) {
	result := new(T)
	if len(bytes.TrimSpace(o.body)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(o.body, result); err != nil {
		return nil, model.NewGenericError(
			fmt.Sprintf("malformed response payload: %v", err), o.status, o.body)
	}
	return result, nil
}

// rawSetter is implemented by results that keep their raw body.
type rawSetter interface {
	SetRaw(json.RawMessage)
}

// decodeRaw is decode for result types that expose the raw payload.
func decodeRaw[T any, PT interface {
	*T
	rawSetter
}](o outcome) (*T, error) {
	result, err := decode[T](o)
	if err != nil {
		return nil, err
	}
	if len(o.body) > 0 {
		PT(result).SetRaw(append(json.RawMessage(nil), o.body...))
	}
	return result, nil
}
