package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFacade serves catalog queries from PostgreSQL.
type PostgresFacade struct {
	pool *pgxpool.Pool
}

func NewPostgresFacade(ctx context.Context, databaseURL string) (*PostgresFacade, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresFacade{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			languages TEXT[] NOT NULL DEFAULT '{}',
			genres TEXT[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS content_items (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			genres TEXT[] NOT NULL DEFAULT '{}',
			popularity DOUBLE PRECISION NULL,
			rating DOUBLE PRECISION NULL,
			featured BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_content_items_featured ON content_items (featured) WHERE featured;`,
		`CREATE INDEX IF NOT EXISTS idx_content_items_language ON content_items (language);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init catalog schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (f *PostgresFacade) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := f.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, unavailable("check user", err)
	}
	return exists, nil
}

func (f *PostgresFacade) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	p := Preferences{UserID: userID}
	err := f.pool.QueryRow(ctx,
		`SELECT languages, genres FROM user_preferences WHERE user_id = $1`, userID,
	).Scan(&p.Languages, &p.Genres)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get preferences", err)
	}
	return &p, nil
}

// Ranking is pushed into SQL here so limited result sets are already the
// top candidates; the engine re-sorts with the same keys regardless.
const rankedOrder = `ORDER BY popularity DESC NULLS LAST, rating DESC NULLS LAST, id ASC`

func (f *PostgresFacade) QueryPersonalized(ctx context.Context, languages, genres []string, limit int) ([]ContentItem, error) {
	rows, err := f.pool.Query(ctx,
		`SELECT id, title, language, genres, popularity, rating, featured
		 FROM content_items
		 WHERE language = ANY($1) AND genres && $2
		 `+rankedOrder+` LIMIT $3`,
		languages, genres, limit,
	)
	if err != nil {
		return nil, unavailable("query personalized", err)
	}
	return scanItems(rows, limit, "personalized")
}

func (f *PostgresFacade) QueryCurated(ctx context.Context, limit int) ([]ContentItem, error) {
	rows, err := f.pool.Query(ctx,
		`SELECT id, title, language, genres, popularity, rating, featured
		 FROM content_items
		 WHERE featured
		 `+rankedOrder+` LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, unavailable("query curated", err)
	}
	return scanItems(rows, limit, "curated")
}

func scanItems(rows pgx.Rows, limit int, op string) ([]ContentItem, error) {
	defer rows.Close()
	items := make([]ContentItem, 0, limit)
	for rows.Next() {
		var it ContentItem
		if err := rows.Scan(&it.ID, &it.Title, &it.Language, &it.Genres, &it.Popularity, &it.Rating, &it.Featured); err != nil {
			return nil, unavailable("scan "+op+" row", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate "+op+" rows", err)
	}
	return items, nil
}

func (f *PostgresFacade) Ping(ctx context.Context) error {
	if err := f.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (f *PostgresFacade) Close() error {
	f.pool.Close()
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
