package strings

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ToSnakeCase converts CamelCase, camelCase and dash-case to snake_case.
// Handles acronyms properly (HTTPRequest -> http_request)
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(strings.ReplaceAll(s, "-", "_"))

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				prev := runes[i-1]
				// Add underscore before uppercase letter if:
				// 1. Previous char is lowercase or a digit
				// 2. Next char is lowercase (for acronyms like HTTPRequest -> http_request)
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					result.WriteRune('_')
				} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					result.WriteRune('_')
				}
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// ToCamelCase converts snake_case or dash-case to CamelCase (special_attribute -> SpecialAttribute)
func ToCamelCase(s string) string {
	words := strings.Split(ToSnakeCase(s), "_")
	var result strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		// A Caser keeps state between calls and must not be shared.
		result.WriteString(cases.Title(language.Und, cases.NoLower).String(w))
	}
	return result.String()
}

// ToLowerCamelCase converts snake_case to camelCase (special_attribute -> specialAttribute)
func ToLowerCamelCase(s string) string {
	camel := []rune(ToCamelCase(s))
	if len(camel) == 0 {
		return ""
	}
	camel[0] = unicode.ToLower(camel[0])
	return string(camel)
}

// ToDashCase converts any supported casing to dash-case (special_attribute -> special-attribute)
func ToDashCase(s string) string {
	return strings.ReplaceAll(ToSnakeCase(s), "_", "-")
}

// Demodulize strips namespace qualifiers ("api.v1.Post" or "Api::Post" -> "Post")
func Demodulize(s string) string {
	if i := strings.LastIndex(s, "::"); i >= 0 {
		s = s[i+2:]
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return s
}
