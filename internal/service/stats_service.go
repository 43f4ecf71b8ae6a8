package service

import (
	"context"
	"time"

	"github.com/dafedescribe/wey/internal/models"
	"github.com/dafedescribe/wey/internal/repository"
)

// StatsService derives per-link statistics from stored click events on
// demand. Read-only: the stored counters belong to the click tracker.
type StatsService interface {
	GetStats(ctx context.Context, code string) (*models.LinkStats, error)
	GetDailyStats(ctx context.Context, code string, days int) ([]models.DailyClickStats, error)
}

type statsService struct {
	linkRepo   repository.LinkRepository
	clickRepo  repository.ClickRepository
	baseDomain string
	location   *time.Location
}

func NewStatsService(
	linkRepo repository.LinkRepository,
	clickRepo repository.ClickRepository,
	baseDomain string,
	location *time.Location,
) StatsService {
	if location == nil {
		location = time.UTC
	}
	return &statsService{
		linkRepo:   linkRepo,
		clickRepo:  clickRepo,
		baseDomain: baseDomain,
		location:   location,
	}
}

func (s *statsService) GetStats(ctx context.Context, code string) (*models.LinkStats, error) {
	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	clicks, err := s.clickRepo.ListByLink(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	stats := &models.LinkStats{
		ShortCode:    link.ShortCode,
		ShortURL:     s.baseDomain + "/" + link.ShortCode,
		TotalClicks:  link.TotalClicks,
		UniqueClicks: link.UniqueClicks,
		CreatedAt:    link.CreatedAt,
		Devices:      make(map[string]int64),
		Browsers:     make(map[string]int64),
	}

	today := time.Now().In(s.location)
	for _, click := range clicks {
		if sameDay(click.ClickedAt.In(s.location), today) {
			stats.ClicksToday++
		}
		stats.Devices[click.Device]++
		stats.Browsers[click.Browser]++
	}

	return stats, nil
}

func (s *statsService) GetDailyStats(ctx context.Context, code string, days int) ([]models.DailyClickStats, error) {
	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.clickRepo.GetDailyStats(ctx, link.ID, days, s.location.String())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
