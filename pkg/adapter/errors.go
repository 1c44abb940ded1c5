package adapter

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/DataDog/jsonapi"
)

var (
	// ErrUnknownAdapter is returned for adapter names that are not registered.
	ErrUnknownAdapter = errors.New("unknown adapter")

	// ErrUnknownKeyTransform is returned for key transform names that do not exist.
	ErrUnknownKeyTransform = errors.New("unknown key transform")

	// ErrMaxDepthExceeded is returned by the fail depth policy.
	ErrMaxDepthExceeded = errors.New("maximum serialization depth exceeded")

	// ErrUnknownRoot is returned when a root key cannot be inferred, typically for an empty
	// collection rendered without a root or serializer option.
	ErrUnknownRoot = errors.New("cannot infer root key")

	// ErrInvalidDocument is wrapped by InvalidDocumentError.
	ErrInvalidDocument = errors.New("invalid document")
)

// Reason is one problem found in an inbound document.
type Reason struct {
	// Pointer is a JSON pointer to the offending member.
	Pointer string
	Detail  string
}

// InvalidDocumentError is returned by Parse for malformed JSON:API payloads.
type InvalidDocumentError struct {
	Reasons []Reason
}

func (e *InvalidDocumentError) Error() string {
	parts := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		parts[i] = r.Pointer + ": " + r.Detail
	}
	return fmt.Sprintf("%s: %s", ErrInvalidDocument, strings.Join(parts, "; "))
}

func (e *InvalidDocumentError) Unwrap() error {
	return ErrInvalidDocument
}

// JSONAPIErrors converts the reasons into JSON:API error objects.
func (e *InvalidDocumentError) JSONAPIErrors() []*jsonapi.Error {
	errs := make([]*jsonapi.Error, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		status := http.StatusBadRequest
		errs = append(errs, &jsonapi.Error{
			Status: &status,
			Code:   "invalid_document",
			Title:  "Invalid Document",
			Detail: r.Detail,
			Source: &jsonapi.ErrorSource{Pointer: r.Pointer},
		})
	}
	return errs
}
