package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
)

const maxQueryLen = 64

// QueryString returns the trimmed, length-capped query value.
func QueryString(r *http.Request, key string) string {
	return SanitizeString(r.URL.Query().Get(key), maxQueryLen)
}

// QueryOneOf returns the lower-cased query value when it is one of allowed, defaultVal
// when absent, and a validation error otherwise.
func QueryOneOf(r *http.Request, key, defaultVal string, allowed ...string) (string, error) {
	raw := strings.ToLower(QueryString(r, key))
	if raw == "" {
		return defaultVal, nil
	}
	for _, candidate := range allowed {
		if raw == candidate {
			return raw, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter has an unsupported value").
		WithDetails(map[string]any{"field": key, "allowed": allowed})
}
