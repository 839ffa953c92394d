package client

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

// Params are query parameters for a request. Nil values, including nil
// pointers, are left out of the query string.
type Params map[string]any

// Encode renders the parameters as a query string with keys in sorted order.
// Keys and values are percent-encoded with spaces as %20.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}

	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value, ok := scalar(p[key])
		if !ok {
			continue
		}
		parts = append(parts, encodeComponent(key)+"="+encodeComponent(value))
	}

	return strings.Join(parts, "&")
}

// scalar formats v, dereferencing pointers. It reports false for nil.
func scalar(v any) (string, bool) {
	if v == nil {
		return "", false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}

	return fmt.Sprint(rv.Interface()), true
}

// encodeComponent escapes s for use as a query key or value.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
