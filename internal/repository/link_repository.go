package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafedescribe/wey/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type LinkRepository interface {
	// Create inserts atomically under the short_code unique constraint.
	// Two concurrent inserts with the same code yield one success and one
	// ErrCodeExists.
	Create(ctx context.Context, link *models.Link) error
	// GetByShortCode returns active links only.
	GetByShortCode(ctx context.Context, code string) (*models.Link, error)
	// CodeExists reports whether any link, active or not, holds the code.
	CodeExists(ctx context.Context, code string) (bool, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Link, error)
	Deactivate(ctx context.Context, code string) error
	// IncrementClicks applies a relative add to both counters.
	IncrementClicks(ctx context.Context, linkID int64, uniqueDelta int64) error
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (user_id, short_code, original_url, domain, active, created_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		link.UserID,
		link.ShortCode,
		link.OriginalURL,
		link.Domain,
	).Scan(&link.ID, &link.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	link.Active = true
	return nil
}

func (r *linkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	query := `
		SELECT id, user_id, short_code, original_url, domain, active,
		       total_clicks, unique_clicks, created_at
		FROM links
		WHERE short_code = $1 AND active = TRUE
	`

	link := &models.Link{}
	err := r.db.Pool.QueryRow(ctx, query, code).Scan(
		&link.ID,
		&link.UserID,
		&link.ShortCode,
		&link.OriginalURL,
		&link.Domain,
		&link.Active,
		&link.TotalClicks,
		&link.UniqueClicks,
		&link.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

func (r *linkRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}
	return exists, nil
}

func (r *linkRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Link, error) {
	query := `
		SELECT id, user_id, short_code, original_url, domain, active,
		       total_clicks, unique_clicks, created_at
		FROM links
		WHERE user_id = $1 AND active = TRUE
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		var link models.Link
		if err := rows.Scan(
			&link.ID,
			&link.UserID,
			&link.ShortCode,
			&link.OriginalURL,
			&link.Domain,
			&link.Active,
			&link.TotalClicks,
			&link.UniqueClicks,
			&link.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

func (r *linkRepository) Deactivate(ctx context.Context, code string) error {
	query := `UPDATE links SET active = FALSE WHERE short_code = $1 AND active = TRUE`

	result, err := r.db.Pool.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("failed to deactivate link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *linkRepository) IncrementClicks(ctx context.Context, linkID int64, uniqueDelta int64) error {
	query := `
		UPDATE links
		SET total_clicks = total_clicks + 1,
		    unique_clicks = unique_clicks + $2
		WHERE id = $1
	`

	if _, err := r.db.Pool.Exec(ctx, query, linkID, uniqueDelta); err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	return nil
}

// isUniqueViolation checks for a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
