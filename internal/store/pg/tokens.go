package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/cartelera/internal/domain"
	"github.com/dropDatabas3/cartelera/internal/domain/repository"
)

// tokenRepo implementa repository.RefreshTokenRepository sobre la tabla
// refresh_tokens.
type tokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) repository.RefreshTokenRepository {
	return &tokenRepo{pool: pool}
}

const tokenCols = `id, token_hash, admin_id, expires_at, created_at`

func (r *tokenRepo) Create(ctx context.Context, in repository.CreateRefreshTokenInput) (*repository.RefreshToken, error) {
	var t repository.RefreshToken
	err := r.pool.QueryRow(ctx, `
		INSERT INTO refresh_tokens (token_hash, admin_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING `+tokenCols,
		in.TokenHash, in.AdminID, in.ExpiresAt.UTC(),
	).Scan(&t.ID, &t.TokenHash, &t.AdminID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}
	return &t, nil
}

// Rotate consume la fila vieja e inserta la nueva en una transacción.
// El DELETE ... RETURNING es el gate single-use: de dos rotaciones
// concurrentes con el mismo token, solo una encuentra la fila; la otra
// recibe ErrNotFound. Si el insert posterior falla, el rollback restituye
// la fila vieja (nunca se pierde el refresh a mitad de camino).
func (r *tokenRepo) Rotate(ctx context.Context, oldHash string, in repository.CreateRefreshTokenInput) (*repository.RefreshToken, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var old repository.RefreshToken
	err = tx.QueryRow(ctx, `
		DELETE FROM refresh_tokens
		 WHERE token_hash = $1
		RETURNING `+tokenCols, oldHash,
	).Scan(&old.ID, &old.TokenHash, &old.AdminID, &old.ExpiresAt, &old.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: consume: %w", err)
	}

	// Fila expirada: el delete queda (purga lazy) pero la rotación falla
	// cerrada igual que si no existiera.
	if !old.ExpiresAt.After(time.Now()) {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("rotate refresh token: commit expired purge: %w", err)
		}
		return nil, domain.ErrNotFound
	}

	var t repository.RefreshToken
	err = tx.QueryRow(ctx, `
		INSERT INTO refresh_tokens (token_hash, admin_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING `+tokenCols,
		in.TokenHash, in.AdminID, in.ExpiresAt.UTC(),
	).Scan(&t.ID, &t.TokenHash, &t.AdminID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("rotate refresh token: commit: %w", err)
	}
	return &t, nil
}

func (r *tokenRepo) Delete(ctx context.Context, tokenHash string) error {
	// Ausencia no es error: logout idempotente.
	if _, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *tokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
