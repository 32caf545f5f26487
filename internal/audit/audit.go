// Package audit registra un rastro de las operaciones sensibles (logins,
// borrados, step-ups) en un canal de log separado del access log. Hoy el
// sink es el logger estructurado; la forma del evento permite moverlo a
// DB o a un colector externo sin tocar a los callers.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/cartelera/internal/observability/logger"
)

// Eventos auditados.
const (
	EventLogin         = "auth.login"
	EventLoginFailed   = "auth.login_failed"
	EventRefreshDenied = "auth.refresh_denied"
	EventStepUpFailed  = "auth.stepup_failed"
	EventAdminCreated  = "auth.admin_created"
	EventEventDeleted  = "events.deleted"
)

// Log emite un evento de auditoría con los campos dados. El request ID
// viaja implícito en el logger del contexto.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	all := make([]zap.Field, 0, len(fields)+1)
	all = append(all, zap.String("audit_event", event))
	all = append(all, fields...)
	logger.From(ctx).Named("audit").Info("audit", all...)
}
