package middlewares

import (
	"context"

	"github.com/dropDatabas3/cartelera/internal/domain"
)

type ctxKey string

const (
	ctxIdentityKey  ctxKey = "identity"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithIdentity inyecta la identidad autenticada en el contexto. Lo usa
// RequireAuth; los handlers leen con GetIdentity.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, id)
}

// GetIdentity obtiene la identidad del contexto. ok=false si el guard de
// autenticación no corrió sobre esta ruta.
func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	v := ctx.Value(ctxIdentityKey)
	if v == nil {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
