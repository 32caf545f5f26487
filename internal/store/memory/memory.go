// Package memory implementa los repositorios en mapas con mutex. Se usa
// como fake en tests y como modo dev sin base de datos. Respeta el mismo
// contrato de errores que el adapter de Postgres, incluida la atomicidad
// de Rotate (el mutex cumple el rol de la transacción).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/cartelera/internal/domain"
	"github.com/dropDatabas3/cartelera/internal/domain/repository"
)

// Store agrupa los tres repositorios sobre el mismo estado compartido.
type Store struct {
	mu     sync.Mutex
	admins map[string]repository.Admin        // por id
	tokens map[string]repository.RefreshToken // por token_hash
	events map[string]repository.Event        // por id
}

func NewStore() *Store {
	return &Store{
		admins: map[string]repository.Admin{},
		tokens: map[string]repository.RefreshToken{},
		events: map[string]repository.Event{},
	}
}

func (s *Store) Admins() repository.AdminRepository         { return (*adminRepo)(s) }
func (s *Store) Tokens() repository.RefreshTokenRepository  { return (*tokenRepo)(s) }
func (s *Store) Events() repository.EventRepository         { return (*eventRepo)(s) }

// ─────────────── admins ───────────────

type adminRepo Store

func (r *adminRepo) GetByID(_ context.Context, id string) (*repository.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.admins[id]; ok {
		cp := a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *adminRepo) GetByEmail(_ context.Context, email string) (*repository.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range r.admins {
		if a.Email == email {
			cp := a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *adminRepo) Create(_ context.Context, in repository.CreateAdminInput) (*repository.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(in.Email))
	for _, a := range r.admins {
		if a.Email == email {
			return nil, domain.ErrConflict
		}
	}
	now := time.Now().UTC()
	a := repository.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.admins[a.ID] = a
	cp := a
	return &cp, nil
}

// DeleteAdmin existe solo para tests de revocación inmediata (borrar el
// admin invalida sus access tokens en la próxima request). No es parte
// del contrato del repositorio.
func (s *Store) DeleteAdmin(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.admins, id)
	// cascade como en la FK de Postgres
	for h, t := range s.tokens {
		if t.AdminID == id {
			delete(s.tokens, h)
		}
	}
}

// ─────────────── refresh tokens ───────────────

type tokenRepo Store

func (r *tokenRepo) Create(_ context.Context, in repository.CreateRefreshTokenInput) (*repository.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(in), nil
}

func (r *tokenRepo) insertLocked(in repository.CreateRefreshTokenInput) *repository.RefreshToken {
	t := repository.RefreshToken{
		ID:        uuid.NewString(),
		TokenHash: in.TokenHash,
		AdminID:   in.AdminID,
		ExpiresAt: in.ExpiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	r.tokens[t.TokenHash] = t
	cp := t
	return &cp
}

func (r *tokenRepo) Rotate(_ context.Context, oldHash string, in repository.CreateRefreshTokenInput) (*repository.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.tokens[oldHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(r.tokens, oldHash)
	if !old.ExpiresAt.After(time.Now()) {
		// purga lazy: la fila expirada se borra pero la rotación falla
		return nil, domain.ErrNotFound
	}
	return r.insertLocked(in), nil
}

func (r *tokenRepo) Delete(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, tokenHash)
	return nil
}

func (r *tokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for h, t := range r.tokens {
		if !t.ExpiresAt.After(now) {
			delete(r.tokens, h)
			n++
		}
	}
	return n, nil
}

// ─────────────── events ───────────────

type eventRepo Store

func (r *eventRepo) GetByID(_ context.Context, id string) (*repository.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.events[id]; ok {
		cp := e
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *eventRepo) List(_ context.Context, f repository.EventFilter) (*repository.EventPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]repository.Event, 0, len(r.events))
	q := strings.ToLower(strings.TrimSpace(f.Query))
	for _, e := range r.events {
		if f.PublishedOnly && !e.Published {
			continue
		}
		if f.CreatedBy != "" && e.CreatedBy != f.CreatedBy {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(e.Title), q) &&
			!strings.Contains(strings.ToLower(e.Location), q) {
			continue
		}
		if f.From != nil && e.StartsAt.Before(*f.From) {
			continue
		}
		if f.To != nil && e.StartsAt.After(*f.To) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartsAt.Equal(matched[j].StartsAt) {
			return matched[i].StartsAt.Before(matched[j].StartsAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	total := len(matched)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	out := make([]repository.Event, end-start)
	copy(out, matched[start:end])
	return &repository.EventPage{Events: out, Total: total, Page: page, PageSize: pageSize}, nil
}

func (r *eventRepo) Create(_ context.Context, in repository.CreateEventInput) (*repository.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	e := repository.Event{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartsAt:    in.StartsAt.UTC(),
		EndsAt:      in.EndsAt,
		Published:   in.Published,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.events[e.ID] = e
	cp := e
	return &cp, nil
}

func (r *eventRepo) Update(_ context.Context, id string, in repository.UpdateEventInput) (*repository.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if in.Title != nil {
		e.Title = *in.Title
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.StartsAt != nil {
		e.StartsAt = in.StartsAt.UTC()
	}
	if in.EndsAt != nil {
		cp := in.EndsAt.UTC()
		e.EndsAt = &cp
	}
	if in.Published != nil {
		e.Published = *in.Published
	}
	if in.PosterKey != nil {
		e.PosterKey = *in.PosterKey
	}
	if in.PosterURL != nil {
		e.PosterURL = *in.PosterURL
	}
	e.UpdatedAt = time.Now().UTC()
	r.events[id] = e
	cp := e
	return &cp, nil
}

func (r *eventRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.events, id)
	return nil
}
