package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafedescribe/wey/internal/models"
	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	// GetOrCreate upserts the user keyed by messaging identity.
	GetOrCreate(ctx context.Context, identity, displayName string) (*models.User, error)
	GetByIdentity(ctx context.Context, identity string) (*models.User, error)
	// IncrementLinkCount applies a relative add to total_links.
	IncrementLinkCount(ctx context.Context, userID int64) error
	// SyncLinkCount recomputes total_links from the links table. Used to
	// self-heal after a failed best-effort increment.
	SyncLinkCount(ctx context.Context, userID int64) error
}

type userRepository struct {
	db *PostgresDB
}

func NewUserRepository(db *PostgresDB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetOrCreate(ctx context.Context, identity, displayName string) (*models.User, error) {
	// The no-op DO UPDATE makes RETURNING work for the existing row too.
	query := `
		INSERT INTO users (identity, display_name, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (identity) DO UPDATE SET identity = EXCLUDED.identity
		RETURNING id, identity, display_name, total_links, created_at
	`

	user := &models.User{}
	err := r.db.Pool.QueryRow(ctx, query, identity, displayName).Scan(
		&user.ID,
		&user.Identity,
		&user.DisplayName,
		&user.TotalLinks,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return user, nil
}

func (r *userRepository) GetByIdentity(ctx context.Context, identity string) (*models.User, error) {
	query := `
		SELECT id, identity, display_name, total_links, created_at
		FROM users
		WHERE identity = $1
	`

	user := &models.User{}
	err := r.db.Pool.QueryRow(ctx, query, identity).Scan(
		&user.ID,
		&user.Identity,
		&user.DisplayName,
		&user.TotalLinks,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (r *userRepository) IncrementLinkCount(ctx context.Context, userID int64) error {
	query := `UPDATE users SET total_links = total_links + 1 WHERE id = $1`

	if _, err := r.db.Pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to increment link count: %w", err)
	}
	return nil
}

func (r *userRepository) SyncLinkCount(ctx context.Context, userID int64) error {
	query := `
		UPDATE users
		SET total_links = (SELECT COUNT(*) FROM links WHERE user_id = $1)
		WHERE id = $1
	`

	if _, err := r.db.Pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to sync link count: %w", err)
	}
	return nil
}
