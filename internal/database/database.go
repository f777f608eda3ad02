package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// SQLX exposes the pool through database/sql so repositories can use sqlx.
// Closing the returned handle does not close the pool.
func SQLX(pool *pgxpool.Pool) *sqlx.DB {
	return sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
}

// EnsureSchema creates the sites table and its search indexes if needed.
// Having the migration in code keeps docker-compose bootstrapping simple.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS sites (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL CHECK (btrim(title) <> ''),
	location TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	history TEXT NOT NULL DEFAULT '',
	architecture TEXT NOT NULL DEFAULT '',
	conservation TEXT NOT NULL DEFAULT '',
	modern_relevance TEXT NOT NULL DEFAULT '',
	old_structure_desc TEXT NOT NULL DEFAULT '',
	new_structure_desc TEXT NOT NULL DEFAULT '',
	thumb TEXT NOT NULL DEFAULT '',
	glb TEXT NOT NULL DEFAULT '',
	old_site_photo TEXT NOT NULL DEFAULT '',
	new_site_photo TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	search TSVECTOR GENERATED ALWAYS AS (
		to_tsvector('simple'::regconfig,
			title || ' ' || location || ' ' || summary || ' ' || tags::text || ' ' ||
			history || ' ' || architecture || ' ' || conservation || ' ' || modern_relevance)
	) STORED
);
CREATE INDEX IF NOT EXISTS idx_sites_search ON sites USING GIN (search);
CREATE INDEX IF NOT EXISTS idx_sites_tags ON sites USING GIN (tags jsonb_path_ops);
CREATE INDEX IF NOT EXISTS idx_sites_created_at ON sites (created_at DESC);`
	_, err := pool.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
