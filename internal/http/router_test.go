package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/cartelera/internal/auth"
	"github.com/dropDatabas3/cartelera/internal/events"
	"github.com/dropDatabas3/cartelera/internal/jwt"
	"github.com/dropDatabas3/cartelera/internal/rate"
	"github.com/dropDatabas3/cartelera/internal/security/password"
	"github.com/dropDatabas3/cartelera/internal/store/memory"
)

type testEnv struct {
	router  http.Handler
	store   *memory.Store
	posters *memPosters
}

type memPosters struct {
	saved map[string][]byte
}

func (p *memPosters) Save(_ context.Context, key, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	p.saved[key] = data
	return "http://posters.test/" + key, nil
}

func (p *memPosters) Delete(_ context.Context, key string) error {
	delete(p.saved, key)
	return nil
}

func newTestEnv(t *testing.T, loginLimiter rate.Limiter) *testEnv {
	t.Helper()

	iss, err := jwt.NewIssuer("cartelera-test", "access-secret-test", "refresh-secret-test", 15*time.Minute, 168*time.Hour)
	require.NoError(t, err)

	st := memory.NewStore()
	authSvc := auth.New(auth.Deps{
		Admins: st.Admins(),
		Tokens: st.Tokens(),
		Issuer: iss,
		Policy: password.Policy{MinLength: 8},
	})
	posters := &memPosters{saved: map[string][]byte{}}
	eventsSvc := events.New(events.Deps{
		Events:    st.Events(),
		Posters:   posters,
		Passwords: authSvc,
	})

	router := NewRouter(RouterDeps{
		Auth:               authSvc,
		Events:             eventsSvc,
		CORSAllowedOrigins: []string{"http://admin.test"},
		LoginLimiter:       loginLimiter,
	})
	return &testEnv{router: router, store: st, posters: posters}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

type sessionResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	Admin        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"admin"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func register(t *testing.T, e *testEnv, email, pass string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": email, "password": pass,
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
}

func login(t *testing.T, e *testEnv, email, pass string) sessionResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": email, "password": pass,
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	return decode[sessionResponse](t, w)
}

func TestAuthEndpoints(t *testing.T) {
	e := newTestEnv(t, nil)
	register(t, e, "ana@example.com", "superSegura1")

	t.Run("login ok con no-store", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email": "ana@example.com", "password": "superSegura1",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

		sess := decode[sessionResponse](t, w)
		assert.NotEmpty(t, sess.AccessToken)
		assert.NotEmpty(t, sess.RefreshToken)
		assert.Equal(t, "ana@example.com", sess.Admin.Email)
	})

	t.Run("credenciales malas son 401 uniformes", func(t *testing.T) {
		for _, creds := range []map[string]string{
			{"email": "ana@example.com", "password": "incorrecta"},
			{"email": "nadie@example.com", "password": "incorrecta"},
		} {
			w := e.do(t, http.MethodPost, "/v1/auth/login", "", creds)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "INVALID_CREDENTIALS", decode[errorBody](t, w).Code)
		}
	})

	t.Run("refresh rota y el viejo muere", func(t *testing.T) {
		sess := login(t, e, "ana@example.com", "superSegura1")

		w := e.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refreshToken": sess.RefreshToken})
		require.Equal(t, http.StatusOK, w.Code)
		next := decode[sessionResponse](t, w)
		assert.NotEqual(t, sess.RefreshToken, next.RefreshToken)

		w = e.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refreshToken": sess.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("logout es 200 idempotente", func(t *testing.T) {
		sess := login(t, e, "ana@example.com", "superSegura1")
		w := e.do(t, http.MethodPost, "/v1/auth/logout", "", map[string]string{"refreshToken": sess.RefreshToken})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, decode[map[string]string](t, w)["message"])
		w = e.do(t, http.MethodPost, "/v1/auth/logout", "", map[string]string{"refreshToken": sess.RefreshToken})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("me requiere token", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/v1/auth/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")

		sess := login(t, e, "ana@example.com", "superSegura1")
		w = e.do(t, http.MethodGet, "/v1/auth/me", sess.AccessToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("registro emite sesión como login", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
			"email": "carla@example.com", "password": "superSegura3",
		})
		require.Equal(t, http.StatusCreated, w.Code)
		sess := decode[sessionResponse](t, w)
		assert.NotEmpty(t, sess.AccessToken)
		assert.NotEmpty(t, sess.RefreshToken)
		assert.Equal(t, "carla@example.com", sess.Admin.Email)

		// la sesión recién emitida ya sirve para /me
		w = e.do(t, http.MethodGet, "/v1/auth/me", sess.AccessToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("registro duplicado es 409", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
			"email": "ana@example.com", "password": "superSegura1",
		})
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "EMAIL_ALREADY_IN_USE", decode[errorBody](t, w).Code)
	})

	t.Run("password débil es 422", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
			"email": "debil@example.com", "password": "abc",
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "PASSWORD_TOO_WEAK", decode[errorBody](t, w).Code)
	})
}

func TestEventEndpoints(t *testing.T) {
	e := newTestEnv(t, nil)
	register(t, e, "ana@example.com", "superSegura1")
	register(t, e, "beto@example.com", "superSegura2")
	ana := login(t, e, "ana@example.com", "superSegura1")
	beto := login(t, e, "beto@example.com", "superSegura2")

	create := map[string]any{
		"title":     "Recital en el parque",
		"location":  "Parque Centenario",
		"startsAt":  time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"published": true,
	}
	w := e.do(t, http.MethodPost, "/v1/admin/events", ana.AccessToken, create)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	ev := decode[map[string]any](t, w)
	evID, _ := ev["id"].(string)
	require.NotEmpty(t, evID)
	assert.Equal(t, ana.Admin.ID, ev["createdById"])

	t.Run("crear sin token es 401", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/v1/admin/events", "", create)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("patch ajeno es 403", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, "/v1/admin/events/"+evID, beto.AccessToken, map[string]string{"title": "Hackeado"})
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN", decode[errorBody](t, w).Code)
	})

	t.Run("patch propio ok", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, "/v1/admin/events/"+evID, ana.AccessToken, map[string]string{"title": "Recital (al aire libre)"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Recital (al aire libre)", decode[map[string]any](t, w)["title"])
	})

	t.Run("galería pública solo muestra publicados", func(t *testing.T) {
		draft := map[string]any{
			"title":    "Borrador secreto",
			"startsAt": time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		}
		w := e.do(t, http.MethodPost, "/v1/admin/events", ana.AccessToken, draft)
		require.Equal(t, http.StatusCreated, w.Code)
		draftID, _ := decode[map[string]any](t, w)["id"].(string)

		w = e.do(t, http.MethodGet, "/v1/events", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		page := decode[struct {
			Events []map[string]any `json:"events"`
			Total  int              `json:"total"`
		}](t, w)
		assert.Equal(t, 1, page.Total)

		w = e.do(t, http.MethodGet, "/v1/events/"+draftID, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("lectura admin no exige ownership", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/v1/admin/events/"+evID, beto.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, ana.Admin.ID, decode[map[string]any](t, w)["createdById"])
	})

	t.Run("listado admin con filtro mine", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/v1/admin/events", beto.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		all := decode[struct {
			Total int `json:"total"`
		}](t, w)
		assert.Greater(t, all.Total, 0, "sin mine=true se listan los eventos de todos")

		w = e.do(t, http.MethodGet, "/v1/admin/events?mine=true", beto.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		mine := decode[struct {
			Total int `json:"total"`
		}](t, w)
		assert.Equal(t, 0, mine.Total, "beto no creó eventos")
	})

	t.Run("delete exige step-up", func(t *testing.T) {
		// password malo con token válido: el step-up rebota con 401
		w := e.do(t, http.MethodDelete, "/v1/admin/events/"+evID, ana.AccessToken, map[string]string{"password": "incorrecta"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_PASSWORD", decode[errorBody](t, w).Code)

		w = e.do(t, http.MethodDelete, "/v1/admin/events/"+evID, ana.AccessToken, map[string]string{"password": "superSegura1"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, decode[map[string]string](t, w)["message"])

		w = e.do(t, http.MethodGet, "/v1/admin/events/"+evID, ana.AccessToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPosterUpload(t *testing.T) {
	e := newTestEnv(t, nil)
	register(t, e, "ana@example.com", "superSegura1")
	ana := login(t, e, "ana@example.com", "superSegura1")

	w := e.do(t, http.MethodPost, "/v1/admin/events", ana.AccessToken, map[string]any{
		"title":     "Con afiche",
		"startsAt":  time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"published": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	evID, _ := decode[map[string]any](t, w)["id"].(string)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	fw, err := mp.CreateFormFile("poster", "afiche.png")
	require.NoError(t, err)
	_, err = fw.Write(png)
	require.NoError(t, err)
	require.NoError(t, mp.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/admin/events/%s/poster", evID), &buf)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ana.AccessToken)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	got := decode[map[string]any](t, rec)
	posterURL, _ := got["posterUrl"].(string)
	assert.Contains(t, posterURL, "http://posters.test/")
	assert.Len(t, e.posters.saved, 1)
}

func TestLoginRateLimit(t *testing.T) {
	e := newTestEnv(t, rate.NewMemoryLimiter(2, time.Hour))
	register(t, e, "ana@example.com", "superSegura1")

	creds := map[string]string{"email": "ana@example.com", "password": "incorrecta"}
	for i := 0; i < 2; i++ {
		w := e.do(t, http.MethodPost, "/v1/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := e.do(t, http.MethodPost, "/v1/auth/login", "", creds)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decode[errorBody](t, w).Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestSecurityHeadersYCORS(t *testing.T) {
	e := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.Header.Set("Origin", "http://admin.test")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "http://admin.test", w.Header().Get("Access-Control-Allow-Origin"))

	// preflight
	req = httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
	req.Header.Set("Origin", "http://admin.test")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// origin no permitido no recibe el header
	req = httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, nil)

	w := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
