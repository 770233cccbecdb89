package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
	"github.com/diagnosis/luxsuv-reservations/pkg/ratelimit"
	"github.com/diagnosis/luxsuv-reservations/pkg/response"
)

// RateLimit throttles requests per client IP. A nil limiter disables it and
// limiter errors let the request through.
func RateLimit(l ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, err := l.Allow(r.Context(), ClientIP(r))
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			} else if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				response.RateLimit(w, "Too many requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
