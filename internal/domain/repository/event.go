package repository

import (
	"context"
	"time"
)

// Event es la entidad central del dominio: un evento publicado en la
// cartelera, con afiche opcional. CreatedBy es el dueño; solo él puede
// mutarlo o borrarlo.
type Event struct {
	ID          string     `json:"id"` // UUID
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`
	PosterKey   string     `json:"-"` // clave interna del storage de afiches
	PosterURL   string     `json:"posterUrl,omitempty"`
	Published   bool       `json:"published"`
	CreatedBy   string     `json:"createdById"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateEventInput crea un evento nuevo.
type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      *time.Time
	Published   bool
	CreatedBy   string
}

// UpdateEventInput es un patch parcial: solo los campos no-nil se aplican.
type UpdateEventInput struct {
	Title       *string
	Description *string
	Location    *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Published   *bool
	PosterKey   *string
	PosterURL   *string
}

// EventFilter pagina y filtra listados.
type EventFilter struct {
	// PublishedOnly limita a eventos publicados (galería pública).
	PublishedOnly bool
	// CreatedBy filtra por dueño ("" = todos).
	CreatedBy string
	// Query busca substring case-insensitive en title y location.
	Query string
	// From/To acotan starts_at.
	From *time.Time
	To   *time.Time

	Page     int
	PageSize int
}

// EventPage es el resultado paginado de List.
type EventPage struct {
	Events   []Event `json:"events"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// EventRepository maneja la persistencia de eventos.
//
// GetByID retorna domain.ErrNotFound si no existe. Update aplica el patch
// y retorna la entidad resultante; Delete retorna domain.ErrNotFound si la
// fila ya no estaba (el service decide si eso importa).
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, f EventFilter) (*EventPage, error)
	Create(ctx context.Context, in CreateEventInput) (*Event, error)
	Update(ctx context.Context, id string, in UpdateEventInput) (*Event, error)
	Delete(ctx context.Context, id string) error
}
