package ocr

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rezonia/facture-ocr/internal/model"
)

const defaultValidationMessage = "validation error"

// validationMessageKeys are probed in order for a 422 message.
var validationMessageKeys = []string{"detail", "error", "message"}

// classify turns a non-successful outcome into an *model.APIError. It returns
// nil for 2xx responses. The status code alone selects the kind.
func classify(o outcome, now time.Time) error {
	if o.err != nil {
		if o.status == 0 {
			return model.NewNetworkError(o.err.Error(), o.err)
		}
		ae := model.NewGenericError(o.err.Error(), o.status, nil)
		ae.Err = o.err
		return ae
	}

	switch {
	case o.status >= 200 && o.status < 300:
		return nil
	case o.status == http.StatusUnauthorized:
		return model.NewAuthError(o.status, o.body)
	case o.status == http.StatusTooManyRequests:
		return model.NewRateLimitError(parseRetryAfter(o.header, now), o.body)
	case o.status == http.StatusUnprocessableEntity:
		return model.NewValidationError(validationMessage(o.body), o.status, o.body)
	case o.status >= 500:
		return model.NewServerError(o.status, o.body)
	default:
		return model.NewGenericError(
			fmt.Sprintf("request failed with status code %d", o.status), o.status, o.body)
	}
}

// parseRetryAfter reads Retry-After as delay-seconds or an HTTP-date. It
// returns -1 when the header is absent or unparsable, which
// NewRateLimitError maps to the default. A date already passed gives 0.
func parseRetryAfter(h http.Header, now time.Time) int {
	v := strings.TrimSpace(h.Get(HeaderRetryAfter))
	if v == "" {
		return -1
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return -1
		}
		return secs
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d <= 0 {
			return 0
		}
		// round up partial seconds
		return int((d + time.Second - 1) / time.Second)
	}
	return -1
}

// validationMessage picks the first populated of detail, error and message.
// Non-string values (FastAPI returns detail as a list) keep their JSON text.
func validationMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return defaultValidationMessage
	}
	for _, key := range validationMessageKeys {
		r := gjson.GetBytes(body, key)
		if !r.Exists() || r.Type == gjson.Null {
			continue
		}
		if r.Type == gjson.String {
			if s := strings.TrimSpace(r.Str); s != "" {
				return s
			}
			continue
		}
		if raw := strings.TrimSpace(r.Raw); raw != "" && raw != "[]" && raw != "{}" {
			return raw
		}
	}
	return defaultValidationMessage
}
