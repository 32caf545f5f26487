package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar HTTP.

func RequestID(v string) zap.Field        { return zap.String("request_id", v) }
func Method(v string) zap.Field           { return zap.String("method", v) }
func Path(v string) zap.Field             { return zap.String("path", v) }
func Status(v int) zap.Field              { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field  { return zap.Duration("duration", v) }
func Bytes(v int) zap.Field               { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field         { return zap.String("client_ip", v) }

// Campos estándar de negocio.

func AdminID(v string) zap.Field { return zap.String("admin_id", v) }
func EventID(v string) zap.Field { return zap.String("event_id", v) }

// Email: usar con cuidado en prod.
func Email(v string) zap.Field { return zap.String("email", v) }

// Campos estándar de sistema.

// Component identifica el módulo que emite el log.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op identifica la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer identifica la capa (handler, service, repository).
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

// Genéricos.

func Count(v int) zap.Field            { return zap.Int("count", v) }
func String(key, v string) zap.Field   { return zap.String(key, v) }
func Int(key string, v int) zap.Field  { return zap.Int(key, v) }
func Any(key string, v any) zap.Field  { return zap.Any(key, v) }
