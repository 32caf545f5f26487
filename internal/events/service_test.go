package events

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/cartelera/internal/domain"
	"github.com/dropDatabas3/cartelera/internal/domain/repository"
	"github.com/dropDatabas3/cartelera/internal/store/memory"
)

// fakeVerifier acepta un único password válido por admin.
type fakeVerifier struct {
	valid map[string]string // adminID -> password
}

func (f *fakeVerifier) VerifyPassword(_ context.Context, adminID, plain string) error {
	if f.valid[adminID] == plain {
		return nil
	}
	return domain.ErrInvalidPassword
}

// fakePosters guarda en un mapa y registra los deletes.
type fakePosters struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
}

func newFakePosters() *fakePosters {
	return &fakePosters{saved: map[string][]byte{}}
}

func (f *fakePosters) Save(_ context.Context, key, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[key] = data
	return "http://posters.test/" + key, nil
}

func (f *fakePosters) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, key)
	f.deleted = append(f.deleted, key)
	return nil
}

var (
	ana  = domain.Identity{ID: "admin-ana", Email: "ana@example.com"}
	beto = domain.Identity{ID: "admin-beto", Email: "beto@example.com"}
)

func newTestService(t *testing.T) (Service, *memory.Store, *fakePosters) {
	t.Helper()
	st := memory.NewStore()
	posters := newFakePosters()
	svc := New(Deps{
		Events:    st.Events(),
		Posters:   posters,
		Passwords: &fakeVerifier{valid: map[string]string{ana.ID: "pass-ana", beto.ID: "pass-beto"}},
		CacheTTL:  time.Minute,
	})
	return svc, st, posters
}

func mustCreate(t *testing.T, svc Service, owner domain.Identity, title string, published bool) *repository.Event {
	t.Helper()
	ev, err := svc.Create(context.Background(), owner, repository.CreateEventInput{
		Title:     title,
		Location:  "Teatro Colón",
		StartsAt:  time.Now().Add(24 * time.Hour),
		Published: published,
	})
	require.NoError(t, err)
	return ev
}

func TestCreate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	ev := mustCreate(t, svc, ana, "Recital", true)
	assert.Equal(t, ana.ID, ev.CreatedBy)
	assert.NotEmpty(t, ev.ID)

	_, err := svc.Create(ctx, ana, repository.CreateEventInput{Title: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, ana, repository.CreateEventInput{Title: "Sin fecha"})
	assert.ErrorIs(t, err, ErrValidation)

	starts := time.Now().Add(48 * time.Hour)
	ends := starts.Add(-time.Hour)
	_, err = svc.Create(ctx, ana, repository.CreateEventInput{Title: "Al revés", StartsAt: starts, EndsAt: &ends})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdate_Gates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	ev := mustCreate(t, svc, ana, "Recital", true)

	title := "Recital (reprogramado)"

	t.Run("inexistente es 404", func(t *testing.T) {
		_, err := svc.Update(ctx, ana, "no-existe", repository.UpdateEventInput{Title: &title})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ajeno es 403, no 404", func(t *testing.T) {
		_, err := svc.Update(ctx, beto, ev.ID, repository.UpdateEventInput{Title: &title})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("dueño puede", func(t *testing.T) {
		got, err := svc.Update(ctx, ana, ev.ID, repository.UpdateEventInput{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, got.Title)
	})
}

func TestDelete_OrdenDeGates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	ev := mustCreate(t, svc, ana, "Recital", true)

	t.Run("inexistente es 404 aunque el password sea malo", func(t *testing.T) {
		err := svc.Delete(ctx, ana, "no-existe", "password-malo")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ajeno es 403 sin llegar al step-up", func(t *testing.T) {
		// beto manda SU password correcto: igual rebota por ownership
		err := svc.Delete(ctx, beto, ev.ID, "pass-beto")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("dueño con password malo es step-up fallido", func(t *testing.T) {
		err := svc.Delete(ctx, ana, ev.ID, "password-malo")
		assert.ErrorIs(t, err, domain.ErrInvalidPassword)

		// el evento sigue vivo
		_, err = svc.GetAdmin(ctx, ev.ID)
		assert.NoError(t, err)
	})

	t.Run("dueño con password correcto borra", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, ana, ev.ID, "pass-ana"))
		_, err := svc.GetAdmin(ctx, ev.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestDelete_BorraElAfiche(t *testing.T) {
	svc, _, posters := newTestService(t)
	ctx := context.Background()
	ev := mustCreate(t, svc, ana, "Recital", true)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	withPoster, err := svc.AttachPoster(ctx, ana, ev.ID, bytes.NewReader(png), int64(len(png)))
	require.NoError(t, err)
	require.NotEmpty(t, withPoster.PosterKey)

	require.NoError(t, svc.Delete(ctx, ana, ev.ID, "pass-ana"))
	assert.Contains(t, posters.deleted, withPoster.PosterKey)
}

func TestAttachPoster(t *testing.T) {
	svc, _, posters := newTestService(t)
	ctx := context.Background()
	ev := mustCreate(t, svc, ana, "Recital", true)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	t.Run("ok", func(t *testing.T) {
		got, err := svc.AttachPoster(ctx, ana, ev.ID, bytes.NewReader(png), int64(len(png)))
		require.NoError(t, err)
		assert.NotEmpty(t, got.PosterKey)
		assert.Equal(t, "http://posters.test/"+got.PosterKey, got.PosterURL)
	})

	t.Run("reemplazo borra el anterior", func(t *testing.T) {
		before, err := svc.GetAdmin(ctx, ev.ID)
		require.NoError(t, err)
		after, err := svc.AttachPoster(ctx, ana, ev.ID, bytes.NewReader(png), int64(len(png)))
		require.NoError(t, err)
		assert.NotEqual(t, before.PosterKey, after.PosterKey)
		assert.Contains(t, posters.deleted, before.PosterKey)
	})

	t.Run("tipo no soportado", func(t *testing.T) {
		_, err := svc.AttachPoster(ctx, ana, ev.ID, bytes.NewReader([]byte("GIF89a totalmente un gif")), 24)
		assert.ErrorIs(t, err, ErrPosterType)
	})

	t.Run("demasiado grande", func(t *testing.T) {
		st := memory.NewStore()
		small := New(Deps{
			Events:         st.Events(),
			Posters:        newFakePosters(),
			Passwords:      &fakeVerifier{},
			MaxPosterBytes: 16,
		})
		tiny := mustCreate(t, small, ana, "Chico", true)
		_, err := small.AttachPoster(ctx, ana, tiny.ID, bytes.NewReader(png), int64(len(png)))
		assert.ErrorIs(t, err, ErrPosterTooLarge)
	})

	t.Run("ajeno es 403", func(t *testing.T) {
		_, err := svc.AttachPoster(ctx, beto, ev.ID, bytes.NewReader(png), int64(len(png)))
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestListAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, ana, "De Ana 1", true)
	mustCreate(t, svc, ana, "De Ana 2", false)
	mustCreate(t, svc, beto, "De Beto", true)

	t.Run("sin filtro ve todo, incluidos borradores", func(t *testing.T) {
		page, err := svc.ListAdmin(ctx, repository.EventFilter{})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
	})

	t.Run("filtro por creador", func(t *testing.T) {
		page, err := svc.ListAdmin(ctx, repository.EventFilter{CreatedBy: ana.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		for _, e := range page.Events {
			assert.Equal(t, ana.ID, e.CreatedBy)
		}
	})
}

func TestGetAdmin_LecturaSinOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	draft := mustCreate(t, svc, ana, "Borrador de Ana", false)

	// cualquier admin lee cualquier evento; el ownership solo bloquea mutar
	got, err := svc.GetAdmin(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)

	_, err = svc.GetAdmin(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPublic(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, ana, "Publicado", true)
	draft := mustCreate(t, svc, ana, "Borrador", false)

	page, err := svc.ListPublic(ctx, repository.EventFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Publicado", page.Events[0].Title)

	// publicar el borrador invalida el cache de la primera página
	pub := true
	_, err = svc.Update(ctx, ana, draft.ID, repository.UpdateEventInput{Published: &pub})
	require.NoError(t, err)

	page, err = svc.ListPublic(ctx, repository.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestListPublic_ClampPageSize(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		mustCreate(t, svc, ana, fmt.Sprintf("Evento %d", i), true)
	}

	page, err := svc.ListPublic(ctx, repository.EventFilter{Page: -1, PageSize: 10_000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.PageSize)
}

type fakeCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *fakeCache) Get(k string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[k]
	return v, ok
}

func (c *fakeCache) Set(k string, v []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k] = v
}

func (c *fakeCache) Delete(k string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, k)
}

func TestListPublic_CacheaPrimeraPagina(t *testing.T) {
	st := memory.NewStore()
	fc := &fakeCache{m: map[string][]byte{}}
	svc := New(Deps{
		Events:    st.Events(),
		Posters:   newFakePosters(),
		Passwords: &fakeVerifier{},
		Cache:     fc,
		CacheTTL:  time.Minute,
	})
	ctx := context.Background()

	_, err := st.Events().Create(ctx, repository.CreateEventInput{
		Title: "Directo", StartsAt: time.Now(), Published: true, CreatedBy: ana.ID,
	})
	require.NoError(t, err)

	page, err := svc.ListPublic(ctx, repository.EventFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	// alta por fuera del service: el cache sigue sirviendo el snapshot
	_, err = st.Events().Create(ctx, repository.CreateEventInput{
		Title: "Invisible", StartsAt: time.Now(), Published: true, CreatedBy: ana.ID,
	})
	require.NoError(t, err)
	page, err = svc.ListPublic(ctx, repository.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	// una mutación vía service invalida y el listado se refresca
	mustCreate(t, svc, ana, "Tercero", true)
	page, err = svc.ListPublic(ctx, repository.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	// páginas con filtros no pasan por el cache
	page, err = svc.ListPublic(ctx, repository.EventFilter{Query: "tercero"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestGetPublic(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	pub := mustCreate(t, svc, ana, "Publicado", true)
	draft := mustCreate(t, svc, ana, "Borrador", false)

	got, err := svc.GetPublic(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, pub.ID, got.ID)

	// borrador e inexistente son indistinguibles
	_, err = svc.GetPublic(ctx, draft.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetPublic(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
