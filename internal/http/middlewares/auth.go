package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/cartelera/internal/auth"
	"github.com/dropDatabas3/cartelera/internal/http/apierrors"
	"github.com/dropDatabas3/cartelera/internal/observability/logger"
)

// RequireAuth valida el Bearer token y confirma contra el store que el
// admin sigue existiendo. La identidad queda en el contexto, junto con un
// logger scoped con el admin_id.
func RequireAuth(svc auth.Service) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="cartelera"`)
				apierrors.WriteError(w, apierrors.ErrUnauthorized.WithDetail("falta el Bearer token"))
				return
			}

			ident, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="cartelera", error="invalid_token"`)
				apierrors.WriteError(w, err)
				return
			}

			ctx := WithIdentity(r.Context(), *ident)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.AdminID(ident.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
