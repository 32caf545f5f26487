package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/cartelera/internal/domain/repository"
	"github.com/dropDatabas3/cartelera/internal/events"
	"github.com/dropDatabas3/cartelera/internal/http/apierrors"
	"github.com/dropDatabas3/cartelera/internal/http/httpx"
)

type EventsPublicController struct {
	Events events.Service
}

func NewEventsPublicController(svc events.Service) *EventsPublicController {
	return &EventsPublicController{Events: svc}
}

// filterFromQuery parsea los parámetros comunes de listado. Valores
// inválidos se ignoran en lugar de fallar: el service normaliza después.
func filterFromQuery(r *http.Request) repository.EventFilter {
	q := r.URL.Query()
	f := repository.EventFilter{Query: q.Get("q")}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.Get("pageSize")); err == nil {
		f.PageSize = v
	}
	if v, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		f.From = &v
	}
	if v, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		f.To = &v
	}
	return f
}

// List maneja GET /v1/events: la galería pública.
func (c *EventsPublicController) List(w http.ResponseWriter, r *http.Request) {
	page, err := c.Events.ListPublic(r.Context(), filterFromQuery(r))
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

// Get maneja GET /v1/events/{id}: solo eventos publicados.
func (c *EventsPublicController) Get(w http.ResponseWriter, r *http.Request) {
	ev, err := c.Events.GetPublic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ev)
}
