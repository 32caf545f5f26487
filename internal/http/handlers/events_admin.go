package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/cartelera/internal/domain"
	"github.com/dropDatabas3/cartelera/internal/domain/repository"
	"github.com/dropDatabas3/cartelera/internal/events"
	"github.com/dropDatabas3/cartelera/internal/http/apierrors"
	"github.com/dropDatabas3/cartelera/internal/http/httpx"
	"github.com/dropDatabas3/cartelera/internal/http/middlewares"
)

type EventsAdminController struct {
	Events events.Service
	// MaxPosterBytes limita el body del upload de afiches.
	MaxPosterBytes int64
}

func NewEventsAdminController(svc events.Service, maxPosterBytes int64) *EventsAdminController {
	if maxPosterBytes <= 0 {
		maxPosterBytes = 5 << 20
	}
	return &EventsAdminController{Events: svc, MaxPosterBytes: maxPosterBytes}
}

func callerOr401(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	ident, ok := middlewares.GetIdentity(r.Context())
	if !ok {
		apierrors.WriteError(w, apierrors.ErrUnauthorized)
	}
	return ident, ok
}

type createEventRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	Published   bool       `json:"published"`
}

type updateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartsAt    *time.Time `json:"startsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	Published   *bool      `json:"published"`
}

type deleteEventRequest struct {
	Password string `json:"password"`
}

// Create maneja POST /v1/admin/events.
func (c *EventsAdminController) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	var req createEventRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}

	ev, err := c.Events.Create(r.Context(), caller, repository.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Published:   req.Published,
	})
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, ev)
}

// List maneja GET /v1/admin/events. Lista todos los eventos; con
// ?mine=true solo los del caller.
func (c *EventsAdminController) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	f := filterFromQuery(r)
	if r.URL.Query().Get("mine") == "true" {
		f.CreatedBy = caller.ID
	}
	page, err := c.Events.ListAdmin(r.Context(), f)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

// Get maneja GET /v1/admin/events/{id}. Lectura abierta a cualquier
// admin autenticado; el gate de ownership aplica solo a mutaciones.
func (c *EventsAdminController) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerOr401(w, r); !ok {
		return
	}
	ev, err := c.Events.GetAdmin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ev)
}

// Update maneja PATCH /v1/admin/events/{id}.
func (c *EventsAdminController) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	var req updateEventRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}

	ev, err := c.Events.Update(r.Context(), caller, chi.URLParam(r, "id"), repository.UpdateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Published:   req.Published,
	})
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ev)
}

// Delete maneja DELETE /v1/admin/events/{id}. El body trae el password
// del caller: la prueba step-up de la operación destructiva.
func (c *EventsAdminController) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	var req deleteEventRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	if req.Password == "" {
		apierrors.WriteError(w, apierrors.ErrBadRequest.WithDetail("password es requerido para borrar"))
		return
	}

	if err := c.Events.Delete(r.Context(), caller, chi.URLParam(r, "id"), req.Password); err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "evento eliminado"})
}

// AttachPoster maneja POST /v1/admin/events/{id}/poster. Acepta
// multipart (campo "poster") o el binario directo en el body.
func (c *EventsAdminController) AttachPoster(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}

	// margen para los headers del multipart por encima del límite del afiche
	r.Body = http.MaxBytesReader(w, r.Body, c.MaxPosterBytes+(64<<10))

	body := r.Body
	size := r.ContentLength
	if ct := r.Header.Get("Content-Type"); ct != "" && len(ct) >= 9 && ct[:9] == "multipart" {
		file, header, err := r.FormFile("poster")
		if err != nil {
			apierrors.WriteError(w, apierrors.ErrBadRequest.WithDetail("falta el campo multipart \"poster\""))
			return
		}
		defer file.Close()
		body = file
		size = header.Size
	}

	ev, err := c.Events.AttachPoster(r.Context(), caller, chi.URLParam(r, "id"), body, size)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ev)
}
