package middleware

import (
	"fmt"
	"net/http"

	"github.com/DataDog/jsonapi"
	"go.uber.org/zap"

	"github.com/rails-api/active-model-serializers-sub000/internal/web/response"
)

// Recovery turns a panic into a 500 errors document and logs it with a stack trace.
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("panic recovered",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.String("panic", fmt.Sprint(v)),
						zap.Stack("stack"))

					status := http.StatusInternalServerError
					_ = response.RenderJSONAPIErrors(w, status, []*jsonapi.Error{{
						Status: &status,
						Code:   "internal_error",
						Title:  http.StatusText(status),
					}})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
