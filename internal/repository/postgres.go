package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dafedescribe/wey/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDB struct {
	Pool *pgxpool.Pool
}

func NewPostgresDB(cfg config.DBConfig) (*PostgresDB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &PostgresDB{Pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return db, nil
}

func (db *PostgresDB) Close() {
	db.Pool.Close()
}

// migrate bootstraps the schema. The UNIQUE constraint on links.short_code
// is what closes the allocate/insert race.
func (db *PostgresDB) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			identity TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			total_links BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS links (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			short_code TEXT NOT NULL UNIQUE,
			original_url TEXT NOT NULL,
			domain TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			total_clicks BIGINT NOT NULL DEFAULT 0,
			unique_clicks BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS clicks (
			id BIGSERIAL PRIMARY KEY,
			link_id BIGINT NOT NULL REFERENCES links(id),
			ip_address TEXT NOT NULL,
			user_agent TEXT NOT NULL DEFAULT '',
			referer TEXT NOT NULL DEFAULT '',
			device TEXT NOT NULL DEFAULT 'desktop',
			browser TEXT NOT NULL DEFAULT 'unknown',
			is_unique BOOLEAN NOT NULL DEFAULT FALSE,
			clicked_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_link_id ON clicks (link_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_link_ip ON clicks (link_id, ip_address)`,
		`CREATE TABLE IF NOT EXISTS security_events (
			id BIGSERIAL PRIMARY KEY,
			identity TEXT NOT NULL,
			url TEXT NOT NULL,
			reason TEXT NOT NULL,
			allowed BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
