package gateway

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/storeloom/console/internal/domain"
	"github.com/storeloom/console/pkg/pagination"
)

// buildQuery turns the console's filter map into upstream query parameters.
// Empty values and the "all" dropdown sentinel never reach the wire, and
// boolean-like filter values are coerced to canonical "true"/"false".
func buildQuery(filters domain.ListFilter, page pagination.Params) url.Values {
	q := url.Values{}
	for key, value := range filters.Active() {
		if isBooleanKey(key) {
			coerced, ok := coerceBool(value)
			if !ok {
				continue
			}
			value = coerced
		}
		q.Set(key, value)
	}
	q.Set("page", strconv.Itoa(page.Page))
	q.Set("per_page", strconv.Itoa(page.PerPage))
	return q
}

// isBooleanKey reports whether a filter key carries a boolean value by the
// platform's naming convention.
func isBooleanKey(key string) bool {
	switch key {
	case "in_stock", "featured", "active":
		return true
	}
	return strings.HasPrefix(key, "is_") || strings.HasPrefix(key, "has_")
}

// coerceBool normalizes truthy and falsy spellings the dashboard's form
// controls emit. Unrecognized values are dropped rather than forwarded.
func coerceBool(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return "true", true
	case "false", "0", "no", "off":
		return "false", true
	}
	return "", false
}
