package repository

import (
	"context"
	"time"
)

// RefreshToken es una fila del ledger de refresh tokens. Guardamos el
// SHA-256 (hex) del token firmado, nunca el token en claro: un dump de la
// tabla no alcanza para refrescar sesiones.
type RefreshToken struct {
	ID        string    `json:"id"` // UUID
	TokenHash string    `json:"token_hash"`
	AdminID   string    `json:"admin_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRefreshTokenInput inserta una fila nueva en el ledger.
type CreateRefreshTokenInput struct {
	TokenHash string
	AdminID   string
	ExpiresAt time.Time
}

// RefreshTokenRepository es el ledger de refresh tokens vigentes.
//
// Rotate es la pieza crítica del protocolo: borra la fila vieja e inserta
// la nueva de forma atómica respecto de un segundo refresh concurrente con
// el mismo token. El delete-returning actúa de gate single-use: de dos
// llamadas concurrentes, exactamente una encuentra la fila.
type RefreshTokenRepository interface {
	// Create inserta el registro emitido en login.
	Create(ctx context.Context, in CreateRefreshTokenInput) (*RefreshToken, error)

	// Rotate consume la fila identificada por oldHash e inserta la nueva.
	// Retorna domain.ErrNotFound si la fila no existe o ya expiró (la fila
	// expirada se elimina igual: expiry lazy). Si el insert falla, el
	// delete se revierte: nunca queda un refresh "perdido" a mitad de
	// rotación.
	Rotate(ctx context.Context, oldHash string, in CreateRefreshTokenInput) (*RefreshToken, error)

	// Delete borra la fila por hash. Ausencia no es error (logout
	// idempotente).
	Delete(ctx context.Context, tokenHash string) error

	// DeleteExpired purga filas vencidas; retorna cuántas borró.
	DeleteExpired(ctx context.Context) (int64, error)
}
