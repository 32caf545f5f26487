// Package events implementa las operaciones sobre eventos de la
// cartelera: CRUD del portal admin con gates de ownership, el step-up de
// password en borrado, la carga de afiches y la galería pública.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/cartelera/internal/audit"
	"github.com/dropDatabas3/cartelera/internal/cache"
	"github.com/dropDatabas3/cartelera/internal/domain"
	"github.com/dropDatabas3/cartelera/internal/domain/repository"
	"github.com/dropDatabas3/cartelera/internal/observability/logger"
	"github.com/dropDatabas3/cartelera/internal/poster"
)

// PasswordVerifier es la prueba step-up que exige Delete. La implementa
// el service de auth.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, adminID, plainPassword string) error
}

// Fallas de validación propias del módulo. La capa HTTP las mapea a 400
// (413 para el tamaño del afiche).
var (
	ErrValidation     = errors.New("invalid event payload")
	ErrPosterTooLarge = errors.New("poster exceeds size limit")
	ErrPosterType     = errors.New("unsupported poster type")
)

// Service expone las operaciones de eventos.
type Service interface {
	// Create registra un evento nuevo con owner = caller.
	Create(ctx context.Context, caller domain.Identity, in repository.CreateEventInput) (*repository.Event, error)

	// Update aplica un patch parcial. Gates en orden: el evento existe
	// (ErrNotFound), el caller es el dueño (ErrForbidden).
	Update(ctx context.Context, caller domain.Identity, id string, in repository.UpdateEventInput) (*repository.Event, error)

	// Delete borra el evento y su afiche. Mismos gates que Update más la
	// prueba step-up: el password del caller se re-verifica DESPUÉS de
	// existencia y ownership (ErrInvalidPassword si falla).
	Delete(ctx context.Context, caller domain.Identity, id, plainPassword string) error

	// AttachPoster valida y guarda el afiche del evento. Mismos gates que
	// Update. El afiche anterior, si había, se borra del storage.
	AttachPoster(ctx context.Context, caller domain.Identity, id string, r io.Reader, size int64) (*repository.Event, error)

	// GetAdmin retorna un evento por id, publicado o no. Cualquier admin
	// autenticado puede leer; el ownership solo gobierna mutaciones.
	GetAdmin(ctx context.Context, id string) (*repository.Event, error)

	// ListAdmin lista eventos publicados o no. El filtro CreatedBy es
	// opcional (lo setea la capa HTTP con ?mine=true).
	ListAdmin(ctx context.Context, f repository.EventFilter) (*repository.EventPage, error)

	// ListPublic lista solo eventos publicados, con cache.
	ListPublic(ctx context.Context, f repository.EventFilter) (*repository.EventPage, error)

	// GetPublic retorna un evento publicado; uno despublicado o inexistente
	// es ErrNotFound, sin distinguir.
	GetPublic(ctx context.Context, id string) (*repository.Event, error)
}

// Deps son las dependencias del servicio.
type Deps struct {
	Events    repository.EventRepository
	Posters   poster.Store
	Passwords PasswordVerifier
	Cache     cache.Cache
	// CacheTTL de la primera página pública sin filtros.
	CacheTTL time.Duration
	// MaxPosterBytes limita el tamaño del upload.
	MaxPosterBytes int64
}

type service struct {
	deps Deps
}

func New(deps Deps) Service {
	if deps.Cache == nil {
		deps.Cache = cache.Nop{}
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = 30 * time.Second
	}
	if deps.MaxPosterBytes <= 0 {
		deps.MaxPosterBytes = 5 << 20
	}
	return &service{deps: deps}
}

const publicFirstPageKey = "events:public:p1"

func (s *service) Create(ctx context.Context, caller domain.Identity, in repository.CreateEventInput) (*repository.Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.StartsAt.IsZero() {
		return nil, fmt.Errorf("%w: startsAt is required", ErrValidation)
	}
	if in.EndsAt != nil && in.EndsAt.Before(in.StartsAt) {
		return nil, fmt.Errorf("%w: endsAt before startsAt", ErrValidation)
	}
	in.CreatedBy = caller.ID

	ev, err := s.deps.Events.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("events: create: %w", err)
	}
	s.invalidatePublic()
	logger.From(ctx).Info("evento creado",
		logger.Component("events"), logger.EventID(ev.ID), logger.AdminID(caller.ID))
	return ev, nil
}

// guardOwned resuelve los dos primeros gates compartidos por toda
// mutación: existencia y ownership, en ese orden. Un evento ajeno nunca
// se reporta como inexistente ni al revés.
func (s *service) guardOwned(ctx context.Context, caller domain.Identity, id string) (*repository.Event, error) {
	ev, err := s.deps.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("events: get %s: %w", id, err)
	}
	if ev.CreatedBy != caller.ID {
		logger.From(ctx).Info("mutación rechazada por ownership",
			logger.Component("events"), logger.EventID(id), logger.AdminID(caller.ID))
		return nil, domain.ErrForbidden
	}
	return ev, nil
}

func (s *service) GetAdmin(ctx context.Context, id string) (*repository.Event, error) {
	ev, err := s.deps.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("events: get %s: %w", id, err)
	}
	return ev, nil
}

func (s *service) Update(ctx context.Context, caller domain.Identity, id string, in repository.UpdateEventInput) (*repository.Event, error) {
	if _, err := s.guardOwned(ctx, caller, id); err != nil {
		return nil, err
	}
	ev, err := s.deps.Events.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("events: update %s: %w", id, err)
	}
	s.invalidatePublic()
	return ev, nil
}

func (s *service) Delete(ctx context.Context, caller domain.Identity, id, plainPassword string) error {
	ev, err := s.guardOwned(ctx, caller, id)
	if err != nil {
		return err
	}
	// step-up al final: el caller ya probó existencia y ownership, falta
	// la prueba de posesión del password
	if err := s.deps.Passwords.VerifyPassword(ctx, caller.ID, plainPassword); err != nil {
		return err
	}

	if err := s.deps.Events.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// borrado concurrente entre el guard y acá: el resultado que el
			// caller pidió ya está logrado
			return nil
		}
		return fmt.Errorf("events: delete %s: %w", id, err)
	}
	if ev.PosterKey != "" {
		if derr := s.deps.Posters.Delete(ctx, ev.PosterKey); derr != nil {
			// el evento ya no existe; el afiche huérfano se reporta y sigue
			logger.From(ctx).Warn("no se pudo borrar el afiche",
				logger.Component("events"), logger.EventID(id), logger.Err(derr))
		}
	}
	s.invalidatePublic()
	logger.From(ctx).Info("evento borrado",
		logger.Component("events"), logger.EventID(id), logger.AdminID(caller.ID))
	audit.Log(ctx, audit.EventEventDeleted, logger.EventID(id), logger.AdminID(caller.ID))
	return nil
}

func (s *service) AttachPoster(ctx context.Context, caller domain.Identity, id string, r io.Reader, size int64) (*repository.Event, error) {
	ev, err := s.guardOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if size > s.deps.MaxPosterBytes {
		return nil, ErrPosterTooLarge
	}

	// se lee completo en memoria (el límite es chico) para poder rechazar
	// por tamaño real, no por el Content-Length declarado
	data, err := io.ReadAll(io.LimitReader(r, s.deps.MaxPosterBytes+1))
	if err != nil {
		return nil, fmt.Errorf("events: read poster: %w", err)
	}
	if int64(len(data)) > s.deps.MaxPosterBytes {
		return nil, ErrPosterTooLarge
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrPosterType)
	}

	// el content type lo decide el contenido, no el header del cliente
	ct := http.DetectContentType(data)
	if !poster.AllowedContentType(ct) {
		return nil, fmt.Errorf("%w: %s", ErrPosterType, ct)
	}

	key, err := poster.NewKey(ev.ID, ct)
	if err != nil {
		return nil, fmt.Errorf("events: poster key: %w", err)
	}
	url, err := s.deps.Posters.Save(ctx, key, ct, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("events: save poster: %w", err)
	}

	oldKey := ev.PosterKey
	updated, err := s.deps.Events.Update(ctx, id, repository.UpdateEventInput{
		PosterKey: &key,
		PosterURL: &url,
	})
	if err != nil {
		_ = s.deps.Posters.Delete(ctx, key)
		return nil, fmt.Errorf("events: attach poster %s: %w", id, err)
	}
	if oldKey != "" && oldKey != key {
		_ = s.deps.Posters.Delete(ctx, oldKey)
	}
	s.invalidatePublic()
	logger.From(ctx).Info("afiche actualizado",
		logger.Component("events"), logger.EventID(id), zap.String("content_type", ct))
	return updated, nil
}

func (s *service) ListAdmin(ctx context.Context, f repository.EventFilter) (*repository.EventPage, error) {
	f.PublishedOnly = false
	normalizeFilter(&f)
	page, err := s.deps.Events.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("events: list admin: %w", err)
	}
	return page, nil
}

func (s *service) ListPublic(ctx context.Context, f repository.EventFilter) (*repository.EventPage, error) {
	f.PublishedOnly = true
	f.CreatedBy = ""
	normalizeFilter(&f)

	cacheable := f.Page == 1 && f.Query == "" && f.From == nil && f.To == nil
	if cacheable {
		if raw, ok := s.deps.Cache.Get(publicFirstPageKey); ok {
			var page repository.EventPage
			if err := json.Unmarshal(raw, &page); err == nil {
				return &page, nil
			}
			s.deps.Cache.Delete(publicFirstPageKey)
		}
	}

	page, err := s.deps.Events.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("events: list public: %w", err)
	}
	if cacheable {
		if raw, err := json.Marshal(page); err == nil {
			s.deps.Cache.Set(publicFirstPageKey, raw, s.deps.CacheTTL)
		}
	}
	return page, nil
}

func (s *service) GetPublic(ctx context.Context, id string) (*repository.Event, error) {
	ev, err := s.deps.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("events: get %s: %w", id, err)
	}
	if !ev.Published {
		// un borrador ajeno no se distingue de un evento inexistente
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

func (s *service) invalidatePublic() {
	s.deps.Cache.Delete(publicFirstPageKey)
}

func normalizeFilter(f *repository.EventFilter) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	f.Query = strings.TrimSpace(f.Query)
}
