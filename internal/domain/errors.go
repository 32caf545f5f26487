// Package domain contiene los tipos de negocio y la taxonomía de errores.
// No depende de ningún framework: repositorios y servicios dependen de
// este paquete, nunca al revés.
package domain

import "errors"

// Errores terminales visibles al usuario. Cada servicio retorna uno de
// estos sentinels (o lo envuelve con %w); la capa HTTP los mapea a status.
var (
	// ErrInvalidCredentials: login con email inexistente o password
	// incorrecto. Nunca se distingue cuál de los dos falló.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated: access token ausente/inválido/expirado, o
	// refresh token inválido/expirado/ya rotado.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidPassword: falla de verificación step-up en una operación
	// destructiva. Distinto de ErrUnauthenticated: el caller SÍ está
	// autenticado, solo falló la prueba extra.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrForbidden: caller autenticado pero no es dueño del recurso.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound: el recurso no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict: violación de unicidad (email ya registrado).
	ErrConflict = errors.New("conflict")
)

// Identity es el descriptor mínimo del admin autenticado que viaja de la
// validación de sesión hacia los handlers y servicios.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
