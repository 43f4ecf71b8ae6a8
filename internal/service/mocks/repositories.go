package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/dafedescribe/wey/internal/models"
	"github.com/dafedescribe/wey/internal/repository"
)

// MockLinkRepository implements repository.LinkRepository for testing
type MockLinkRepository struct {
	mu     sync.RWMutex
	links  map[string]*models.Link
	nextID int64
	// AllCodesExist makes every candidate code collide, for exhaustion tests.
	AllCodesExist bool
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links:  make(map[string]*models.Link),
		nextID: 1,
	}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[link.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	link.ID = m.nextID
	m.nextID++
	link.Active = true
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	stored := *link
	m.links[link.ShortCode] = &stored
	return nil
}

func (m *MockLinkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.links[code]
	if !exists || !link.Active {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockLinkRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.AllCodesExist {
		return true, nil
	}
	_, exists := m.links[code]
	return exists, nil
}

func (m *MockLinkRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var links []models.Link
	for _, link := range m.links {
		if link.UserID == userID && link.Active {
			links = append(links, *link)
		}
	}
	// Newest first.
	for i := 0; i < len(links); i++ {
		for j := i + 1; j < len(links); j++ {
			if links[j].CreatedAt.After(links[i].CreatedAt) {
				links[i], links[j] = links[j], links[i]
			}
		}
	}
	if len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

func (m *MockLinkRepository) Deactivate(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[code]
	if !exists || !link.Active {
		return repository.ErrLinkNotFound
	}
	link.Active = false
	return nil
}

func (m *MockLinkRepository) IncrementClicks(ctx context.Context, linkID int64, uniqueDelta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, link := range m.links {
		if link.ID == linkID {
			link.TotalClicks++
			link.UniqueClicks += uniqueDelta
			return nil
		}
	}
	return repository.ErrLinkNotFound
}

// MockUserRepository implements repository.UserRepository for testing
type MockUserRepository struct {
	mu     sync.RWMutex
	users  map[string]*models.User
	nextID int64
	// FailIncrement simulates a broken counter update.
	FailIncrement error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[string]*models.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) GetOrCreate(ctx context.Context, identity, displayName string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, exists := m.users[identity]; exists {
		copied := *user
		return &copied, nil
	}

	user := &models.User{
		ID:          m.nextID,
		Identity:    identity,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
	m.nextID++
	m.users[identity] = user
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) GetByIdentity(ctx context.Context, identity string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[identity]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) IncrementLinkCount(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailIncrement != nil {
		return m.FailIncrement
	}
	for _, user := range m.users {
		if user.ID == userID {
			user.TotalLinks++
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *MockUserRepository) SyncLinkCount(ctx context.Context, userID int64) error {
	return nil
}

// MockClickRepository implements repository.ClickRepository for testing
type MockClickRepository struct {
	mu     sync.RWMutex
	clicks map[int64][]models.Click
	nextID int64
}

func NewMockClickRepository() *MockClickRepository {
	return &MockClickRepository{
		clicks: make(map[int64][]models.Click),
		nextID: 1,
	}
}

func (m *MockClickRepository) Record(ctx context.Context, click *models.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	click.ID = m.nextID
	m.nextID++
	m.clicks[click.LinkID] = append(m.clicks[click.LinkID], *click)
	return nil
}

func (m *MockClickRepository) ListByLink(ctx context.Context, linkID int64) ([]models.Click, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Click, len(m.clicks[linkID]))
	copy(out, m.clicks[linkID])
	return out, nil
}

func (m *MockClickRepository) HasClickFrom(ctx context.Context, linkID int64, ipAddress string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, click := range m.clicks[linkID] {
		if click.IPAddress == ipAddress {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockClickRepository) GetDailyStats(ctx context.Context, linkID int64, days int, timezone string) ([]models.DailyClickStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	counts := make(map[string]int64)
	for _, click := range m.clicks[linkID] {
		counts[click.ClickedAt.In(loc).Format("2006-01-02")]++
	}

	var stats []models.DailyClickStats
	for date, clicks := range counts {
		stats = append(stats, models.DailyClickStats{Date: date, Clicks: clicks})
	}
	return stats, nil
}

// MockClickSourceRepository implements repository.ClickSourceRepository
type MockClickSourceRepository struct {
	mu   sync.Mutex
	seen map[int64]map[string]bool
	// Err simulates an unavailable Redis so the tracker falls back to
	// stored events.
	Err error
}

func NewMockClickSourceRepository() *MockClickSourceRepository {
	return &MockClickSourceRepository{
		seen: make(map[int64]map[string]bool),
	}
}

func (m *MockClickSourceRepository) MarkSeen(ctx context.Context, linkID int64, ipAddress string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return false, m.Err
	}
	if m.seen[linkID] == nil {
		m.seen[linkID] = make(map[string]bool)
	}
	if m.seen[linkID][ipAddress] {
		return false, nil
	}
	m.seen[linkID][ipAddress] = true
	return true, nil
}

// Reset empties the set, simulating TTL expiry or Redis data loss.
func (m *MockClickSourceRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seen = make(map[int64]map[string]bool)
}

// MockRateLimitRepository keeps per-identity windows in memory with the same
// prune-count-append semantics as the Redis script.
type MockRateLimitRepository struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	// Now allows tests to control the clock; defaults to time.Now.
	Now func() time.Time
}

func NewMockRateLimitRepository() *MockRateLimitRepository {
	return &MockRateLimitRepository{
		windows: make(map[string][]time.Time),
		Now:     time.Now,
	}
}

func (m *MockRateLimitRepository) ReserveSlot(ctx context.Context, identity string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	cutoff := now.Add(-window)

	kept := m.windows[identity][:0]
	for _, ts := range m.windows[identity] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		m.windows[identity] = kept
		return false, nil
	}

	m.windows[identity] = append(kept, now)
	return true, nil
}

// MockSecurityRepository implements repository.SecurityRepository
type MockSecurityRepository struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func NewMockSecurityRepository() *MockSecurityRepository {
	return &MockSecurityRepository{}
}

func (m *MockSecurityRepository) RecordEvent(ctx context.Context, event *models.SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	event.ID = int64(len(m.events) + 1)
	event.CreatedAt = time.Now()
	m.events = append(m.events, *event)
	return nil
}

func (m *MockSecurityRepository) Events() []models.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.SecurityEvent, len(m.events))
	copy(out, m.events)
	return out
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]*models.Link
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]*models.Link),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.cache[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, code string, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *link
	m.cache[code] = &copied
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cache, code)
	return nil
}
