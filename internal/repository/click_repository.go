package repository

import (
	"context"
	"fmt"

	"github.com/dafedescribe/wey/internal/models"
)

type ClickRepository interface {
	// Record appends one click event. Rows are never updated or deleted.
	Record(ctx context.Context, click *models.Click) error
	ListByLink(ctx context.Context, linkID int64) ([]models.Click, error)
	// HasClickFrom reports whether the link already has a click from the
	// address. Pre-filter only; the tracker owns the uniqueness decision.
	HasClickFrom(ctx context.Context, linkID int64, ipAddress string) (bool, error)
	// GetDailyStats buckets clicks per calendar day in the given IANA
	// timezone, matching the zone the aggregator uses for "today".
	GetDailyStats(ctx context.Context, linkID int64, days int, timezone string) ([]models.DailyClickStats, error)
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) Record(ctx context.Context, click *models.Click) error {
	query := `
		INSERT INTO clicks (link_id, ip_address, user_agent, referer, device, browser, is_unique, clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		click.LinkID,
		click.IPAddress,
		click.UserAgent,
		click.Referer,
		click.Device,
		click.Browser,
		click.Unique,
		click.ClickedAt,
	).Scan(&click.ID)

	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	return nil
}

func (r *clickRepository) ListByLink(ctx context.Context, linkID int64) ([]models.Click, error) {
	query := `
		SELECT id, link_id, ip_address, user_agent, referer, device, browser, is_unique, clicked_at
		FROM clicks
		WHERE link_id = $1
		ORDER BY clicked_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	var clicks []models.Click
	for rows.Next() {
		var click models.Click
		if err := rows.Scan(
			&click.ID,
			&click.LinkID,
			&click.IPAddress,
			&click.UserAgent,
			&click.Referer,
			&click.Device,
			&click.Browser,
			&click.Unique,
			&click.ClickedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		clicks = append(clicks, click)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return clicks, nil
}

func (r *clickRepository) HasClickFrom(ctx context.Context, linkID int64, ipAddress string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM clicks WHERE link_id = $1 AND ip_address = $2)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, linkID, ipAddress).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check click origin: %w", err)
	}
	return exists, nil
}

func (r *clickRepository) GetDailyStats(ctx context.Context, linkID int64, days int, timezone string) ([]models.DailyClickStats, error) {
	query := `
		SELECT (clicked_at AT TIME ZONE $3)::date::text as date, COUNT(*) as clicks
		FROM clicks
		WHERE link_id = $1
			AND clicked_at >= NOW() - INTERVAL '1 day' * $2
		GROUP BY date
		ORDER BY date DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, linkID, days, timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	defer rows.Close()

	var stats []models.DailyClickStats
	for rows.Next() {
		var dailyStat models.DailyClickStats
		if err := rows.Scan(&dailyStat.Date, &dailyStat.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		stats = append(stats, dailyStat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily stats: %w", err)
	}

	return stats, nil
}
