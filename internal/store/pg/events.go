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

// eventRepo implementa repository.EventRepository.
type eventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) repository.EventRepository {
	return &eventRepo{pool: pool}
}

const eventCols = `id, title, description, location, starts_at, ends_at,
	poster_key, poster_url, published, created_by, created_at, updated_at`

func scanEvent(row pgx.Row) (*repository.Event, error) {
	var e repository.Event
	var posterKey, posterURL *string
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
		&posterKey, &posterURL, &e.Published, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if posterKey != nil {
		e.PosterKey = *posterKey
	}
	if posterURL != nil {
		e.PosterURL = *posterURL
	}
	return &e, nil
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*repository.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventCols+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *eventRepo) List(ctx context.Context, f repository.EventFilter) (*repository.EventPage, error) {
	where := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if f.PublishedOnly {
		where = append(where, "published")
	}
	if f.CreatedBy != "" {
		where = append(where, fmt.Sprintf("created_by = $%d", argIdx))
		args = append(args, f.CreatedBy)
		argIdx++
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR location ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+q+"%")
		argIdx++
	}
	if f.From != nil {
		where = append(where, fmt.Sprintf("starts_at >= $%d", argIdx))
		args = append(args, f.From.UTC())
		argIdx++
	}
	if f.To != nil {
		where = append(where, fmt.Sprintf("starts_at <= $%d", argIdx))
		args = append(args, f.To.UTC())
		argIdx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM events WHERE %s`, whereClause), args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	args = append(args, pageSize, offset)

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT `+eventCols+`
		  FROM events
		 WHERE %s
		 ORDER BY starts_at ASC, created_at DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]repository.Event, 0, pageSize)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	return &repository.EventPage{Events: events, Total: total, Page: page, PageSize: pageSize}, nil
}

func (r *eventRepo) Create(ctx context.Context, in repository.CreateEventInput) (*repository.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `
		INSERT INTO events (title, description, location, starts_at, ends_at, published, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+eventCols,
		in.Title, in.Description, in.Location, in.StartsAt.UTC(), in.EndsAt, in.Published, in.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

// Update arma el SET dinámico con los campos no-nil del patch.
func (r *eventRepo) Update(ctx context.Context, id string, in repository.UpdateEventInput) (*repository.Event, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}
	argIdx := 1

	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}
	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Location != nil {
		add("location", *in.Location)
	}
	if in.StartsAt != nil {
		add("starts_at", in.StartsAt.UTC())
	}
	if in.EndsAt != nil {
		add("ends_at", in.EndsAt.UTC())
	}
	if in.Published != nil {
		add("published", *in.Published)
	}
	if in.PosterKey != nil {
		add("poster_key", *in.PosterKey)
	}
	if in.PosterURL != nil {
		add("poster_url", *in.PosterURL)
	}

	args = append(args, id)
	e, err := scanEvent(r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE events SET %s WHERE id = $%d RETURNING `+eventCols,
		strings.Join(sets, ", "), argIdx), args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

func (r *eventRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
