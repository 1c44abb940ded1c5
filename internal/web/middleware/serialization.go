package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

// Serialization stores a serializer.Context built from the request: the request URL without
// its query string and the query parameters. Pagination links are built from it.
func Serialization() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc := &serializer.Context{
				RequestURL:      requestURL(r),
				QueryParameters: r.URL.Query(),
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), serializationKey, sc)))
		})
	}
}

// SerializationContext returns the context stored by Serialization, or nil.
func SerializationContext(ctx context.Context) *serializer.Context {
	sc, _ := ctx.Value(serializationKey).(*serializer.Context)
	return sc
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path}
	return u.String()
}
