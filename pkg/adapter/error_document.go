package adapter

import (
	"net/http"
	"sort"
	"strings"

	"github.com/DataDog/jsonapi"
)

// ErrorObjects converts field errors into JSON:API error objects pointing at
// /data/attributes/<field>. The "base" field points at /data. Fields are sorted.
func ErrorObjects(fieldErrors map[string][]string) []*jsonapi.Error {
	var errs []*jsonapi.Error
	for _, field := range sortedKeys(fieldErrors) {
		pointer := "/data/attributes/" + escapePointer(field)
		if field == "base" {
			pointer = "/data"
		}
		for _, msg := range fieldErrors[field] {
			status := http.StatusUnprocessableEntity
			errs = append(errs, &jsonapi.Error{
				Status: &status,
				Title:  "Invalid Attribute",
				Detail: msg,
				Source: &jsonapi.ErrorSource{Pointer: pointer},
			})
		}
	}
	return errs
}

// ErrorDocument renders field errors as a JSON:API errors document.
func ErrorDocument(fieldErrors map[string][]string) map[string]any {
	errs := ErrorObjects(fieldErrors)
	if errs == nil {
		errs = []*jsonapi.Error{}
	}
	return map[string]any{"errors": errs}
}

// escapePointer escapes a JSON pointer reference token.
func escapePointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
