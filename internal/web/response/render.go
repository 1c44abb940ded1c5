// Package response writes rendered documents and error documents to HTTP responses.
package response

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
)

const (
	// JSONAPIMediaType is the official JSON:API media type
	JSONAPIMediaType = "application/vnd.api+json"
	// JSONMediaType is used for every other adapter.
	JSONMediaType = "application/json; charset=utf-8"
)

// IsJSONAPI checks if the request accepts JSON:API format
func IsJSONAPI(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return false
	}

	// Parse media type to handle parameters like charset
	mediaType, _, err := mime.ParseMediaType(accept)
	if err != nil {
		return strings.Contains(accept, JSONAPIMediaType)
	}
	return mediaType == JSONAPIMediaType
}

// RenderDocument writes a rendered document. The content type is the JSON:API media type
// when jsonAPI is set.
func RenderDocument(w http.ResponseWriter, status int, doc any, jsonAPI bool) error {
	// Marshal before touching the response so a failure leaves nothing half written.
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return writeBody(w, status, data, jsonAPI)
}

func writeBody(w http.ResponseWriter, status int, data []byte, jsonAPI bool) error {
	contentType := JSONMediaType
	if jsonAPI {
		contentType = JSONAPIMediaType
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, err := w.Write(data)
	return err
}
