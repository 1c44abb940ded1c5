package response

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ETag returns a weak entity tag for a rendered body. Weak because equal documents may be
// encoded with different key order by other encoders.
func ETag(body []byte) string {
	return `W/"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}

// ParseIfNoneMatch splits an If-None-Match header into its entity tags.
func ParseIfNoneMatch(header string) []string {
	var etags []string
	for _, part := range strings.Split(header, ",") {
		if part = strings.TrimSpace(part); part != "" {
			etags = append(etags, part)
		}
	}
	return etags
}

// MatchesETag reports whether etag weakly matches any of etags. "*" matches everything.
func MatchesETag(etag string, etags []string) bool {
	opaque := strings.TrimPrefix(etag, "W/")
	for _, e := range etags {
		if e == "*" || strings.TrimPrefix(e, "W/") == opaque {
			return true
		}
	}
	return false
}

// RenderConditional writes doc like RenderDocument with an ETag header, answering
// 304 Not Modified when the request's If-None-Match already names it.
func RenderConditional(w http.ResponseWriter, r *http.Request, doc any, jsonAPI bool) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	etag := ETag(data)
	w.Header().Set("ETag", etag)
	if MatchesETag(etag, ParseIfNoneMatch(r.Header.Get("If-None-Match"))) {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}
	return writeBody(w, http.StatusOK, data, jsonAPI)
}
