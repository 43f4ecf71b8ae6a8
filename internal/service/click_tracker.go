package service

import (
	"context"
	"time"

	"github.com/dafedescribe/wey/internal/models"
	"github.com/dafedescribe/wey/internal/repository"
	"go.uber.org/zap"
)

// ClickTracker records click events and keeps the link counters in step.
// Everything here is telemetry: a failure never gates the redirect.
type ClickTracker interface {
	RecordClick(ctx context.Context, event *models.ClickEvent) (models.ClickResult, error)
}

type clickTracker struct {
	linkRepo   repository.LinkRepository
	clickRepo  repository.ClickRepository
	sourceRepo repository.ClickSourceRepository
	logger     *zap.Logger
}

func NewClickTracker(
	linkRepo repository.LinkRepository,
	clickRepo repository.ClickRepository,
	sourceRepo repository.ClickSourceRepository,
	logger *zap.Logger,
) ClickTracker {
	return &clickTracker{
		linkRepo:   linkRepo,
		clickRepo:  clickRepo,
		sourceRepo: sourceRepo,
		logger:     logger,
	}
}

func (t *clickTracker) RecordClick(ctx context.Context, event *models.ClickEvent) (models.ClickResult, error) {
	link, err := t.linkRepo.GetByShortCode(ctx, event.ShortCode)
	if err != nil {
		return models.ClickResult{}, err
	}

	unique := t.isFirstFromAddress(ctx, link.ID, event.IPAddress)

	click := &models.Click{
		LinkID:    link.ID,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		Referer:   event.Referer,
		Device:    DetectDevice(event.UserAgent),
		Browser:   DetectBrowser(event.UserAgent),
		Unique:    unique,
		ClickedAt: time.Now(),
	}

	if err := t.clickRepo.Record(ctx, click); err != nil {
		return models.ClickResult{}, err
	}

	var uniqueDelta int64
	if unique {
		uniqueDelta = 1
	}
	if err := t.linkRepo.IncrementClicks(ctx, link.ID, uniqueDelta); err != nil {
		// The event row exists; don't fail the recording over a counter
		// update.
		t.logger.Warn("failed to increment link counters",
			zap.String("code", event.ShortCode),
			zap.Error(err),
		)
	}

	return models.ClickResult{Recorded: true, Unique: unique}, nil
}

// isFirstFromAddress decides uniqueness with an atomic set add. The set is
// only a fast-path filter: its entries expire and Redis can lose data, so a
// "seen" answer is final but a "first" answer is confirmed against the stored
// events before the click is flagged unique.
func (t *clickTracker) isFirstFromAddress(ctx context.Context, linkID int64, ipAddress string) bool {
	first, err := t.sourceRepo.MarkSeen(ctx, linkID, ipAddress)
	if err != nil {
		t.logger.Debug("click source set unavailable, falling back to store", zap.Error(err))
	} else if !first {
		return false
	}

	seen, err := t.clickRepo.HasClickFrom(ctx, linkID, ipAddress)
	if err != nil {
		t.logger.Warn("failed to check click origin", zap.Int64("link_id", linkID), zap.Error(err))
		return false
	}
	return !seen
}
