package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DataDog/jsonapi"

	"github.com/rails-api/active-model-serializers-sub000/pkg/adapter"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

// RenderJSONAPIErrors writes an errors document.
func RenderJSONAPIErrors(w http.ResponseWriter, status int, errs []*jsonapi.Error) error {
	if errs == nil {
		errs = []*jsonapi.Error{}
	}
	data, err := json.Marshal(map[string]any{"errors": errs})
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", JSONAPIMediaType)
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

// RenderError writes err as a single error object with a status derived from its type.
// Invalid inbound documents keep one error object per reason.
func RenderError(w http.ResponseWriter, err error) error {
	var docErr *adapter.InvalidDocumentError
	if errors.As(err, &docErr) {
		return RenderJSONAPIErrors(w, http.StatusBadRequest, docErr.JSONAPIErrors())
	}

	status := StatusFor(err)
	return RenderJSONAPIErrors(w, status, []*jsonapi.Error{{
		Status: &status,
		Code:   errorCodeFromStatus(status),
		Title:  http.StatusText(status),
		Detail: err.Error(),
	}})
}

// RenderFieldErrors writes field errors with status 422.
func RenderFieldErrors(w http.ResponseWriter, fieldErrors map[string][]string) error {
	return RenderJSONAPIErrors(w, http.StatusUnprocessableEntity, adapter.ErrorObjects(fieldErrors))
}

// StatusFor maps render errors to HTTP statuses. Errors caused by the request are 4xx,
// everything else is 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, adapter.ErrInvalidDocument),
		errors.Is(err, adapter.ErrUnknownAdapter),
		errors.Is(err, adapter.ErrUnknownKeyTransform),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, adapter.ErrMaxDepthExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, serializer.ErrNoSerializer):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

var (
	// ErrNotFound marks lookups of unknown resources.
	ErrNotFound = errors.New("resource not found")
	// ErrBadRequest marks malformed request parameters.
	ErrBadRequest = errors.New("bad request")
)

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusNotImplemented:
		return "not_implemented"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return "error"
	}
}
