package middlewares

import (
	"fmt"
	"math"
	"net/http"

	"github.com/dropDatabas3/cartelera/internal/http/apierrors"
	"github.com/dropDatabas3/cartelera/internal/observability/logger"
	"github.com/dropDatabas3/cartelera/internal/rate"
)

// WithRateLimit limita por IP de cliente con el limiter dado. El scope
// separa los contadores de login y refresh.
func WithRateLimit(l rate.Limiter, scope string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := scope + ":" + ClientIP(r)
			res, err := l.Allow(r.Context(), key)
			if err != nil {
				// fail-open: un Redis caído no debe tirar el login
				logger.From(r.Context()).Warn("rate limiter no disponible", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))
			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
				apierrors.WriteError(w, apierrors.ErrRateLimitExceeded)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
