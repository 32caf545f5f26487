package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/cartelera/internal/domain"
	"github.com/dropDatabas3/cartelera/internal/domain/repository"
)

// adminRepo implementa repository.AdminRepository.
type adminRepo struct {
	pool *pgxpool.Pool
}

func NewAdminRepo(pool *pgxpool.Pool) repository.AdminRepository {
	return &adminRepo{pool: pool}
}

const adminCols = `id, email, password_hash, created_at, updated_at`

func (r *adminRepo) GetByID(ctx context.Context, id string) (*repository.Admin, error) {
	var a repository.Admin
	err := r.pool.QueryRow(ctx,
		`SELECT `+adminCols+` FROM admins WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by id: %w", err)
	}
	return &a, nil
}

func (r *adminRepo) GetByEmail(ctx context.Context, email string) (*repository.Admin, error) {
	var a repository.Admin
	err := r.pool.QueryRow(ctx,
		`SELECT `+adminCols+` FROM admins WHERE lower(email) = lower($1)`, strings.TrimSpace(email),
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &a, nil
}

func (r *adminRepo) Create(ctx context.Context, in repository.CreateAdminInput) (*repository.Admin, error) {
	var a repository.Admin
	err := r.pool.QueryRow(ctx, `
		INSERT INTO admins (email, password_hash)
		VALUES (lower($1), $2)
		RETURNING `+adminCols,
		strings.TrimSpace(in.Email), in.PasswordHash,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, domain.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return &a, nil
}
