package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/cartelera/internal/domain"
	"github.com/dropDatabas3/cartelera/internal/domain/repository"
	"github.com/dropDatabas3/cartelera/internal/jwt"
	"github.com/dropDatabas3/cartelera/internal/security/password"
	"github.com/dropDatabas3/cartelera/internal/store/memory"
)

// hashing rápido para que la suite no pague argon2id con params de prod
var testParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func newTestService(t *testing.T, refreshTTL time.Duration) (Service, *memory.Store, *domain.Identity) {
	t.Helper()

	iss, err := jwt.NewIssuer("cartelera-test", "access-secret-test", "refresh-secret-test", 15*time.Minute, refreshTTL)
	require.NoError(t, err)

	st := memory.NewStore()
	svc := New(Deps{
		Admins: st.Admins(),
		Tokens: st.Tokens(),
		Issuer: iss,
		Policy: password.Policy{MinLength: 8},
	})

	hash, err := password.Hash(testParams, "correcta-123")
	require.NoError(t, err)
	admin, err := st.Admins().Create(context.Background(), repository.CreateAdminInput{
		Email:        "ana@example.com",
		PasswordHash: hash,
	})
	require.NoError(t, err)

	return svc, st, &domain.Identity{ID: admin.ID, Email: admin.Email}
}

func TestLogin(t *testing.T) {
	svc, _, admin := newTestService(t, 7*24*time.Hour)
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		sess, err := svc.Login(ctx, "ana@example.com", "correcta-123")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.AccessToken)
		assert.NotEmpty(t, sess.RefreshToken)
		assert.NotEqual(t, sess.AccessToken, sess.RefreshToken)
		assert.Equal(t, admin.ID, sess.Admin.ID)
		assert.Equal(t, "ana@example.com", sess.Admin.Email)
		assert.Equal(t, int64(900), sess.ExpiresIn)
	})

	t.Run("password incorrecto", func(t *testing.T) {
		_, err := svc.Login(ctx, "ana@example.com", "incorrecta")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("email inexistente da el mismo error", func(t *testing.T) {
		_, err := svc.Login(ctx, "nadie@example.com", "lo-que-sea")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestRefresh_RotacionSingleUse(t *testing.T) {
	svc, _, _ := newTestService(t, 7*24*time.Hour)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "ana@example.com", "correcta-123")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, next.RefreshToken)

	// el token viejo quedó consumido
	_, err = svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// el nuevo sigue siendo usable
	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_ConcurrenteExactamenteUnoGana(t *testing.T) {
	svc, _, _ := newTestService(t, 7*24*time.Hour)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "ana@example.com", "correcta-123")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(ctx, sess.RefreshToken)
		}(i)
	}
	wg.Wait()

	var ok, unauth int
	for _, e := range errs {
		switch {
		case e == nil:
			ok++
		case errors.Is(e, domain.ErrUnauthenticated):
			unauth++
		default:
			t.Fatalf("error inesperado: %v", e)
		}
	}
	assert.Equal(t, 1, ok, "exactamente un refresh debe consumir la fila")
	assert.Equal(t, n-1, unauth)
}

func TestRefresh_TokenInvalido(t *testing.T) {
	svc, _, _ := newTestService(t, 7*24*time.Hour)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "no-es-un-jwt")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// access token presentado como refresh
	sess, err := svc.Login(ctx, "ana@example.com", "correcta-123")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestRefresh_LedgerVencidoFallaCerrado(t *testing.T) {
	svc, st, admin := newTestService(t, 7*24*time.Hour)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "ana@example.com", "correcta-123")
	require.NoError(t, err)

	// se atrasa la fila del ledger sin tocar el JWT: la firma sigue
	// vigente pero la fila ya venció
	h := hashToken(sess.RefreshToken)
	require.NoError(t, st.Tokens().Delete(ctx, h))
	_, err = st.Tokens().Create(ctx, repository.CreateRefreshTokenInput{
		TokenHash: h,
		AdminID:   admin.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// la purga lazy consumió la fila: el reintento también falla
	_, err = svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestRefresh_ExtiendeVentana(t *testing.T) {
	svc, _, _ := newTestService(t, 7*24*time.Hour)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "ana@example.com", "correcta-123")
	require.NoError(t, err)

	before := time.Now().Add(7*24*time.Hour - time.Minute)
	next, err := svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)

	// la nueva fila expira ~7 días desde ahora, no desde el login original
	claims, err := parseRefreshExpiry(t, next.RefreshToken)
	require.NoError(t, err)
	assert.True(t, claims.After(before), "cada rotación corre la ventana hacia adelante")
}

func parseRefreshExpiry(t *testing.T, token string) (time.Time, error) {
	t.Helper()
	iss, err := jwt.NewIssuer("cartelera-test", "access-secret-test", "refresh-secret-test", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	c, err := iss.ParseRefresh(token)
	if err != nil {
		return time.Time{}, err
	}
	return c.ExpiresAt, nil
}

func TestLogout(t *testing.T) {
	svc, _, _ := newTestService(t, 7*24*time.Hour)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "ana@example.com", "correcta-123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.RefreshToken))

	// el refresh revocado ya no rota aunque la firma siga siendo válida
	_, err = svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// idempotente: repetir logout o mandar basura también es éxito
	assert.NoError(t, svc.Logout(ctx, sess.RefreshToken))
	assert.NoError(t, svc.Logout(ctx, "basura"))
	assert.NoError(t, svc.Logout(ctx, ""))
}

func TestAuthenticate(t *testing.T) {
	svc, st, admin := newTestService(t, 7*24*time.Hour)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "ana@example.com", "correcta-123")
	require.NoError(t, err)

	t.Run("ok", func(t *testing.T) {
		id, err := svc.Authenticate(ctx, sess.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, admin.ID, id.ID)
		assert.Equal(t, admin.Email, id.Email)
	})

	t.Run("refresh no sirve como access", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, sess.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("token basura", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "xxx.yyy.zzz")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("admin borrado pierde la sesión", func(t *testing.T) {
		st.DeleteAdmin(admin.ID)
		_, err := svc.Authenticate(ctx, sess.AccessToken)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}

func TestVerifyPassword(t *testing.T) {
	svc, _, admin := newTestService(t, 7*24*time.Hour)
	ctx := context.Background()

	assert.NoError(t, svc.VerifyPassword(ctx, admin.ID, "correcta-123"))

	err := svc.VerifyPassword(ctx, admin.ID, "otra")
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)

	// admin inexistente es una falla interna, no un 401 ni un 403
	err = svc.VerifyPassword(ctx, "id-fantasma", "correcta-123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidPassword)
	assert.NotErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestRegister(t *testing.T) {
	svc, _, _ := newTestService(t, 7*24*time.Hour)
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		sess, err := svc.Register(ctx, "Nuevo@Example.com", "password-larga-1")
		require.NoError(t, err)
		assert.Equal(t, "nuevo@example.com", sess.Admin.Email)
		assert.NotEmpty(t, sess.Admin.ID)

		// el registro deja la sesión lista, misma forma que login
		assert.NotEmpty(t, sess.AccessToken)
		assert.NotEmpty(t, sess.RefreshToken)
		id, err := svc.Authenticate(ctx, sess.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, sess.Admin.ID, id.ID)
		_, err = svc.Refresh(ctx, sess.RefreshToken)
		assert.NoError(t, err)

		again, err := svc.Login(ctx, "nuevo@example.com", "password-larga-1")
		require.NoError(t, err)
		assert.Equal(t, sess.Admin.ID, again.Admin.ID)
	})

	t.Run("email duplicado", func(t *testing.T) {
		_, err := svc.Register(ctx, "ana@example.com", "password-larga-1")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("password corta", func(t *testing.T) {
		_, err := svc.Register(ctx, "corta@example.com", "abc")
		var pe *PolicyError
		require.ErrorAs(t, err, &pe)
		assert.Contains(t, pe.Reasons, "too_short")
	})

	t.Run("email inválido", func(t *testing.T) {
		_, err := svc.Register(ctx, "sin-arroba", "password-larga-1")
		var pe *PolicyError
		require.ErrorAs(t, err, &pe)
		assert.Contains(t, pe.Reasons, "invalid_email")
	})
}
