// Package query parses the JSON:API query parameters understood by the render server.
package query

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// fieldsPattern matches query parameters like fields[typename]
var fieldsPattern = regexp.MustCompile(`^fields\[([^\]]+)\]$`)

// filterPattern matches query parameters like filter[key]
var filterPattern = regexp.MustCompile(`^filter\[([^\]]+)\]$`)

// ErrInvalidPage is returned for page parameters that are not positive integers.
var ErrInvalidPage = errors.New("invalid page parameter")

// Page is a parsed page[number] / page[size] pair.
type Page struct {
	Number int
	Size   int
	// Requested is false when neither parameter was sent.
	Requested bool
}

// ParseInclude parses the include query parameter into dot paths.
// Example: ?include=author,comments.author returns ["author", "comments.author"]
func ParseInclude(r *http.Request) []string {
	return splitList(r.URL.Query().Get("include"))
}

// ParseFields parses fields[type] parameters into sparse fieldsets.
// Example: ?fields[people]=name&fields[posts]=title,body
// An empty value selects no fields for that type.
func ParseFields(r *http.Request) map[string][]string {
	result := make(map[string][]string)

	for key, values := range r.URL.Query() {
		matches := fieldsPattern.FindStringSubmatch(key)
		if len(matches) != 2 {
			continue
		}

		typeName := matches[1]
		if len(values) == 0 {
			result[typeName] = []string{}
			continue
		}
		result[typeName] = splitList(values[0])
	}

	return result
}

// ParseFilter parses filter[key] parameters.
// Example: ?filter[status]=published returns {"status": "published"}
func ParseFilter(r *http.Request) map[string]string {
	result := make(map[string]string)

	for key, values := range r.URL.Query() {
		matches := filterPattern.FindStringSubmatch(key)
		if len(matches) != 2 {
			continue
		}
		if len(values) > 0 {
			result[matches[1]] = values[0]
		}
	}

	return result
}

// ParseSort parses the sort parameter. A "-" prefix means descending.
func ParseSort(r *http.Request) []string {
	return splitList(r.URL.Query().Get("sort"))
}

// ParsePage parses page[number] and page[size]. Missing values fall back to page 1 and
// defaultSize; sizes above maxSize are clamped. maxSize <= 0 disables the clamp.
func ParsePage(r *http.Request, defaultSize, maxSize int) (Page, error) {
	q := r.URL.Query()
	page := Page{Number: 1, Size: defaultSize}

	if raw := q.Get("page[number]"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, fmt.Errorf("%w: page[number]=%q", ErrInvalidPage, raw)
		}
		page.Number = n
		page.Requested = true
	}
	if raw := q.Get("page[size]"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, fmt.Errorf("%w: page[size]=%q", ErrInvalidPage, raw)
		}
		page.Size = n
		page.Requested = true
	}
	if maxSize > 0 && page.Size > maxSize {
		page.Size = maxSize
	}
	return page, nil
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
