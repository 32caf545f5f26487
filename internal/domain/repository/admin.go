package repository

import (
	"context"
	"time"
)

// Admin representa una cuenta del portal de administración.
type Admin struct {
	ID           string    `json:"id"`            // UUID
	Email        string    `json:"email"`         // único
	PasswordHash string    `json:"password_hash"` // PHC argon2id
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateAdminInput son los datos para registrar un admin.
// El hash ya viene calculado: el repositorio nunca ve passwords en claro.
type CreateAdminInput struct {
	Email        string
	PasswordHash string
}

// AdminRepository maneja la persistencia de admins.
//
// Contrato de errores: GetByID/GetByEmail retornan domain.ErrNotFound si
// no existe; Create retorna domain.ErrConflict si el email ya está usado.
type AdminRepository interface {
	GetByID(ctx context.Context, id string) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	Create(ctx context.Context, in CreateAdminInput) (*Admin, error)
}
