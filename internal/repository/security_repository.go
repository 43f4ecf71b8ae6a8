package repository

import (
	"context"
	"fmt"

	"github.com/dafedescribe/wey/internal/models"
)

type SecurityRepository interface {
	// RecordEvent appends one audit row. Append-only.
	RecordEvent(ctx context.Context, event *models.SecurityEvent) error
}

type securityRepository struct {
	db *PostgresDB
}

func NewSecurityRepository(db *PostgresDB) SecurityRepository {
	return &securityRepository{db: db}
}

func (r *securityRepository) RecordEvent(ctx context.Context, event *models.SecurityEvent) error {
	query := `
		INSERT INTO security_events (identity, url, reason, allowed, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		event.Identity,
		event.URL,
		event.Reason,
		event.Allowed,
	).Scan(&event.ID, &event.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record security event: %w", err)
	}

	return nil
}
