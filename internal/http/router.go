package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/cartelera/internal/auth"
	"github.com/dropDatabas3/cartelera/internal/events"
	"github.com/dropDatabas3/cartelera/internal/http/apierrors"
	"github.com/dropDatabas3/cartelera/internal/http/handlers"
	mw "github.com/dropDatabas3/cartelera/internal/http/middlewares"
	"github.com/dropDatabas3/cartelera/internal/rate"
)

// RouterDeps agrupa todo lo que el router necesita ya construido.
type RouterDeps struct {
	Auth   auth.Service
	Events events.Service

	CORSAllowedOrigins []string
	MaxPosterBytes     int64

	// Limiters opcionales (nil = sin límite).
	LoginLimiter   rate.Limiter
	RefreshLimiter rate.Limiter

	// MetricsHandler opcional para GET /metrics.
	MetricsHandler http.Handler

	// Ready opcional para /readyz.
	Ready handlers.Pinger

	// PostersDir: si no está vacío, se sirve /posters/ desde disco
	// (driver fs; con S3 las URLs apuntan al bucket).
	PostersDir string
}

// NewRouter arma el árbol de rutas completo.
func NewRouter(d RouterDeps) http.Handler {
	authCtrl := handlers.NewAuthController(d.Auth)
	adminCtrl := handlers.NewEventsAdminController(d.Events, d.MaxPosterBytes)
	publicCtrl := handlers.NewEventsPublicController(d.Events)
	healthCtrl := handlers.NewHealthController(d.Ready)

	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.WriteError(w, apierrors.ErrNotFound.WithDetail("la ruta no existe"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.WriteError(w, apierrors.ErrBadRequest.WithDetail("método no permitido"))
	})

	r.Get("/healthz", healthCtrl.Healthz)
	r.Get("/readyz", healthCtrl.Readyz)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	requireAuth := mw.RequireAuth(d.Auth)
	noStore := mw.WithNoStore()

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// los endpoints que emiten tokens nunca se cachean
			r.With(asChi(noStore, mw.WithRateLimit(d.LoginLimiter, "login"))...).
				Post("/login", authCtrl.Login)
			r.With(asChi(noStore, mw.WithRateLimit(d.RefreshLimiter, "refresh"))...).
				Post("/refresh", authCtrl.Refresh)
			r.With(asChi(noStore)...).Post("/logout", authCtrl.Logout)
			r.With(asChi(noStore)...).Post("/register", authCtrl.Register)
			r.With(asChi(requireAuth)...).Get("/me", authCtrl.Me)
		})

		r.Route("/admin/events", func(r chi.Router) {
			r.Use(asChi(requireAuth)...)
			r.Post("/", adminCtrl.Create)
			r.Get("/", adminCtrl.List)
			r.Get("/{id}", adminCtrl.Get)
			r.Patch("/{id}", adminCtrl.Update)
			r.Delete("/{id}", adminCtrl.Delete)
			r.Post("/{id}/poster", adminCtrl.AttachPoster)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", publicCtrl.List)
			r.Get("/{id}", publicCtrl.Get)
		})
	})

	if d.PostersDir != "" {
		fs := http.StripPrefix("/posters/", http.FileServer(http.Dir(d.PostersDir)))
		r.With(asChi(mw.WithCacheControl("public, max-age=3600"))...).
			Handle("/posters/*", fs)
	}

	// cadena externa: recover primero, después request ID y el resto
	return mw.Chain(r,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSAllowedOrigins),
		WithMetrics,
		mw.WithLogging(),
	)
}

// asChi adapta nuestras Middleware al tipo que espera chi.
func asChi(mws ...mw.Middleware) []func(http.Handler) http.Handler {
	out := make([]func(http.Handler) http.Handler, len(mws))
	for i, m := range mws {
		out[i] = m
	}
	return out
}
