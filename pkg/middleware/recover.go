package middleware

import (
	"net/http"

	"lesson-enrollment/pkg/utils"

	"go.uber.org/zap"
)

// Recover converts handler panics into a 500 envelope. The webhook
// endpoint carries its own recover so the gateway still receives its
// sentinel body; this is the fallback for every other route.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Handler panicked",
						zap.Any("panic", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)
					utils.ResponseInternalError(w, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
