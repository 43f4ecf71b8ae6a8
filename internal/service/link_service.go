package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/dafedescribe/wey/internal/models"
	"github.com/dafedescribe/wey/internal/repository"
	"go.uber.org/zap"
)

const cacheTTL = 24 * time.Hour

// LinkService owns creation and lookup of short links and the users that
// hold them.
type LinkService interface {
	// Shorten runs the full creation pipeline: security gate, code
	// allocation, atomic insert with retry on a code race.
	Shorten(ctx context.Context, identity, displayName, rawURL string) (*models.Link, error)
	// GetLink resolves an active link by code, cache first.
	GetLink(ctx context.Context, code string) (*models.Link, error)
	GetLinksForUser(ctx context.Context, identity string, limit, offset int) ([]models.Link, error)
	// Deactivate is the only removal path; rows are never deleted.
	Deactivate(ctx context.Context, code string) error
	// ShortURL composes the public URL for a code.
	ShortURL(code string) string
}

type linkService struct {
	gate       SecurityGate
	allocator  CodeAllocator
	linkRepo   repository.LinkRepository
	userRepo   repository.UserRepository
	cacheRepo  repository.CacheRepository
	baseDomain string
	logger     *zap.Logger
}

func NewLinkService(
	gate SecurityGate,
	allocator CodeAllocator,
	linkRepo repository.LinkRepository,
	userRepo repository.UserRepository,
	cacheRepo repository.CacheRepository,
	baseDomain string,
	logger *zap.Logger,
) LinkService {
	return &linkService{
		gate:       gate,
		allocator:  allocator,
		linkRepo:   linkRepo,
		userRepo:   userRepo,
		cacheRepo:  cacheRepo,
		baseDomain: baseDomain,
		logger:     logger,
	}
}

func (s *linkService) Shorten(ctx context.Context, identity, displayName, rawURL string) (*models.Link, error) {
	rawURL = strings.TrimSpace(rawURL)
	domain, err := extractDomain(rawURL)
	if err != nil {
		return nil, ErrInvalidURL
	}

	verdict := s.gate.Evaluate(ctx, rawURL, identity)
	if !verdict.Allowed {
		return nil, &SecurityDeniedError{Verdict: verdict}
	}

	user, err := s.userRepo.GetOrCreate(ctx, identity, displayName)
	if err != nil {
		return nil, err
	}

	link, err := s.insertWithFreshCode(ctx, user.ID, rawURL, domain)
	if err != nil {
		return nil, err
	}

	// Best-effort bookkeeping: a failed counter update is logged, never
	// rolled into the already-created link.
	if err := s.userRepo.IncrementLinkCount(ctx, user.ID); err != nil {
		s.logger.Warn("failed to increment user link counter",
			zap.String("identity", identity),
			zap.Error(err),
		)
		go s.healLinkCount(user.ID)
	}

	if err := s.cacheRepo.Set(ctx, link.ShortCode, link, cacheTTL); err != nil {
		s.logger.Debug("failed to cache link", zap.String("code", link.ShortCode), zap.Error(err))
	}

	return link, nil
}

// insertWithFreshCode allocates and inserts, re-allocating when the insert
// loses a race on the unique code constraint. Bounded by the same attempt
// cap as allocation itself.
func (s *linkService) insertWithFreshCode(ctx context.Context, userID int64, rawURL, domain string) (*models.Link, error) {
	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		code, err := s.allocator.Allocate(ctx)
		if err != nil {
			return nil, err
		}

		link := &models.Link{
			UserID:      userID,
			ShortCode:   code,
			OriginalURL: rawURL,
			Domain:      domain,
		}

		err = s.linkRepo.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		if errors.Is(err, repository.ErrCodeExists) {
			s.logger.Debug("short code race lost, retrying", zap.String("code", code))
			continue
		}
		return nil, err
	}

	return nil, ErrCodeExhausted
}

func (s *linkService) healLinkCount(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.userRepo.SyncLinkCount(ctx, userID); err != nil {
		s.logger.Warn("failed to heal user link counter", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *linkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	link, err := s.cacheRepo.Get(ctx, code)
	if err == nil && link.Active {
		return link, nil
	}

	link, err = s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.cacheRepo.Set(ctx, code, link, cacheTTL); err != nil {
		s.logger.Debug("failed to cache link", zap.String("code", code), zap.Error(err))
	}

	return link, nil
}

func (s *linkService) GetLinksForUser(ctx context.Context, identity string, limit, offset int) ([]models.Link, error) {
	user, err := s.userRepo.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.linkRepo.ListByUser(ctx, user.ID, limit, offset)
}

func (s *linkService) Deactivate(ctx context.Context, code string) error {
	if err := s.cacheRepo.Delete(ctx, code); err != nil {
		s.logger.Debug("failed to drop cached link", zap.String("code", code), zap.Error(err))
	}
	return s.linkRepo.Deactivate(ctx, code)
}

func (s *linkService) ShortURL(code string) string {
	return s.baseDomain + "/" + code
}

// extractDomain pulls the host out of the submitted URL, tolerating a
// missing scheme the same way the redirect path does.
func extractDomain(rawURL string) (string, error) {
	if rawURL == "" {
		return "", ErrInvalidURL
	}

	candidate := rawURL
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}
	return strings.ToLower(u.Hostname()), nil
}
