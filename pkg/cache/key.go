package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "/"

// ExpandKey joins the non-empty key parts with KeySeparator.
//
//	ExpandKey("post/42-20240101120000000000000", "json", "9f3a1c") == "post/42-20240101120000000000000/json/9f3a1c"
func ExpandKey(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, KeySeparator)
}

// Digest returns a short, stable hex digest of the given parts.
// Parts are length-prefixed so ("ab","c") and ("a","bc") differ.
func Digest(parts ...string) string {
	h := xxhash.New()
	for _, p := range parts {
		h.WriteString(strconv.Itoa(len(p)))
		h.WriteString(":")
		h.WriteString(p)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
