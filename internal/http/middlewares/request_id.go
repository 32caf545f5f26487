package middlewares

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/dropDatabas3/cartelera/internal/observability/logger"
)

// formato aceptado para un X-Request-ID entrante; lo demás se descarta
var requestIDRE = regexp.MustCompile(`^[A-Za-z0-9._-]{8,128}$`)

// WithRequestID propaga o genera el request ID, lo inyecta en el contexto
// junto con un logger scoped y lo devuelve en la respuesta.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-ID")
			if !requestIDRE.MatchString(rid) {
				rid = uuid.NewString()
			}

			ctx := setRequestID(r.Context(), rid)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.RequestID(rid)))

			w.Header().Set("X-Request-ID", rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
