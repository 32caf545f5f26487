package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/cartelera/internal/http/httpx"
)

// Pinger chequea la disponibilidad de una dependencia (el store).
type Pinger func(ctx context.Context) error

type HealthController struct {
	// Ready es opcional; nil significa "siempre listo" (modo memoria).
	Ready Pinger
}

func NewHealthController(ready Pinger) *HealthController {
	return &HealthController{Ready: ready}
}

// Healthz: el proceso está vivo.
func (c *HealthController) Healthz(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz: el proceso puede atender (el store responde).
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	if c.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := c.Ready(ctx); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
