package repository_test

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dafedescribe/wey/internal/config"
	"github.com/dafedescribe/wey/internal/models"
	"github.com/dafedescribe/wey/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}

type testEnv struct {
	db             *repository.PostgresDB
	redis          *repository.RedisDB
	dbContainer    testcontainers.Container
	redisContainer testcontainers.Container
}

// setupTestEnv starts PostgreSQL and Redis containers and connects both
// stores through the production constructors, migrations included.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := t.Context()

	dbContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("wey"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)

	dbHost, err := dbContainer.Host(ctx)
	require.NoError(t, err)
	dbPort, err := dbContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	db, err := repository.NewPostgresDB(config.DBConfig{
		Host:     dbHost,
		Port:     dbPort.Port(),
		User:     "user",
		Password: "password",
		Name:     "wey",
	})
	require.NoError(t, err)

	redisClient, err := repository.NewRedisClient(config.RedisConfig{
		Host: redisHost,
		Port: redisPort.Port(),
	})
	require.NoError(t, err)

	return &testEnv{
		db:             db,
		redis:          redisClient,
		dbContainer:    dbContainer,
		redisContainer: redisContainer,
	}
}

func (env *testEnv) teardown(t *testing.T) {
	env.db.Close()
	env.redis.Close()

	ctx := t.Context()
	if env.dbContainer != nil {
		env.dbContainer.Terminate(ctx)
	}
	if env.redisContainer != nil {
		env.redisContainer.Terminate(ctx)
	}
}

func (env *testEnv) createUser(t *testing.T, identity string) *models.User {
	t.Helper()
	user, err := repository.NewUserRepository(env.db).GetOrCreate(t.Context(), identity, "Test User")
	require.NoError(t, err)
	return user
}

func TestIntegration_LinkRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	ctx := t.Context()
	linkRepo := repository.NewLinkRepository(env.db)
	user := env.createUser(t, "user-links")

	t.Run("create and get", func(t *testing.T) {
		link := &models.Link{
			UserID:      user.ID,
			ShortCode:   "abc123",
			OriginalURL: "https://example.com/page",
			Domain:      "example.com",
		}
		require.NoError(t, linkRepo.Create(ctx, link))
		assert.NotZero(t, link.ID)
		assert.True(t, link.Active)

		got, err := linkRepo.GetByShortCode(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, link.ID, got.ID)
		assert.Equal(t, "https://example.com/page", got.OriginalURL)
		assert.Equal(t, "example.com", got.Domain)
	})

	t.Run("duplicate code hits the unique constraint", func(t *testing.T) {
		dup := &models.Link{
			UserID:      user.ID,
			ShortCode:   "abc123",
			OriginalURL: "https://other.org",
			Domain:      "other.org",
		}
		err := linkRepo.Create(ctx, dup)
		assert.ErrorIs(t, err, repository.ErrCodeExists)
	})

	t.Run("code exists", func(t *testing.T) {
		exists, err := linkRepo.CodeExists(ctx, "abc123")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = linkRepo.CodeExists(ctx, "nosuch")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("concurrent increments lose no clicks", func(t *testing.T) {
		link, err := linkRepo.GetByShortCode(ctx, "abc123")
		require.NoError(t, err)

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, linkRepo.IncrementClicks(ctx, link.ID, 1))
			}()
		}
		wg.Wait()

		got, err := linkRepo.GetByShortCode(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(n), got.TotalClicks)
		assert.Equal(t, int64(n), got.UniqueClicks)
	})

	t.Run("deactivate hides the link", func(t *testing.T) {
		require.NoError(t, linkRepo.Deactivate(ctx, "abc123"))

		_, err := linkRepo.GetByShortCode(ctx, "abc123")
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)

		// The code stays burned even after deactivation.
		exists, err := linkRepo.CodeExists(ctx, "abc123")
		require.NoError(t, err)
		assert.True(t, exists)

		assert.ErrorIs(t, linkRepo.Deactivate(ctx, "abc123"), repository.ErrLinkNotFound)
	})
}

func TestIntegration_UserRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	ctx := t.Context()
	userRepo := repository.NewUserRepository(env.db)

	first, err := userRepo.GetOrCreate(ctx, "msg:42", "Alice")
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	// Same identity maps to the same row.
	second, err := userRepo.GetOrCreate(ctx, "msg:42", "Alice A.")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, userRepo.IncrementLinkCount(ctx, first.ID))
	got, err := userRepo.GetByIdentity(ctx, "msg:42")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalLinks)

	// SyncLinkCount recomputes from the links table; no links means zero.
	require.NoError(t, userRepo.SyncLinkCount(ctx, first.ID))
	got, err = userRepo.GetByIdentity(ctx, "msg:42")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.TotalLinks)

	_, err = userRepo.GetByIdentity(ctx, "msg:unknown")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestIntegration_ClickRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	ctx := t.Context()
	linkRepo := repository.NewLinkRepository(env.db)
	clickRepo := repository.NewClickRepository(env.db)
	user := env.createUser(t, "user-clicks")

	link := &models.Link{
		UserID:      user.ID,
		ShortCode:   "clk001",
		OriginalURL: "https://example.com",
		Domain:      "example.com",
	}
	require.NoError(t, linkRepo.Create(ctx, link))

	for i := 0; i < 3; i++ {
		require.NoError(t, clickRepo.Record(ctx, &models.Click{
			LinkID:    link.ID,
			IPAddress: fmt.Sprintf("192.0.2.%d", i%2),
			UserAgent: "Mozilla/5.0 Chrome/120.0",
			Device:    models.DeviceDesktop,
			Browser:   "chrome",
			Unique:    i < 2,
			ClickedAt: time.Now(),
		}))
	}

	clicks, err := clickRepo.ListByLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Len(t, clicks, 3)

	has, err := clickRepo.HasClickFrom(ctx, link.ID, "192.0.2.0")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = clickRepo.HasClickFrom(ctx, link.ID, "203.0.113.1")
	require.NoError(t, err)
	assert.False(t, has)

	daily, err := clickRepo.GetDailyStats(ctx, link.ID, 7, "UTC")
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, int64(3), daily[0].Clicks)
	assert.NotEmpty(t, daily[0].Date)
}

func TestIntegration_RateLimitRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	ctx := t.Context()
	rateRepo := repository.NewRateLimitRepository(env.redis)

	const limit = 5
	for i := 0; i < limit; i++ {
		allowed, err := rateRepo.ReserveSlot(ctx, "msg:99", limit, time.Hour)
		require.NoError(t, err)
		assert.True(t, allowed, "slot %d within limit", i)
	}

	allowed, err := rateRepo.ReserveSlot(ctx, "msg:99", limit, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Another identity has its own window.
	allowed, err = rateRepo.ReserveSlot(ctx, "msg:other", limit, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)

	// A short window expires and frees the slots again.
	for i := 0; i < limit; i++ {
		_, err := rateRepo.ReserveSlot(ctx, "msg:fast", limit, 100*time.Millisecond)
		require.NoError(t, err)
	}
	allowed, err = rateRepo.ReserveSlot(ctx, "msg:fast", limit, 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, allowed)

	time.Sleep(150 * time.Millisecond)
	allowed, err = rateRepo.ReserveSlot(ctx, "msg:fast", limit, 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIntegration_ClickSourceRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	ctx := t.Context()
	sourceRepo := repository.NewClickSourceRepository(env.redis)

	first, err := sourceRepo.MarkSeen(ctx, 1, "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := sourceRepo.MarkSeen(ctx, 1, "192.0.2.1")
	require.NoError(t, err)
	assert.False(t, again)

	// Different link or address starts fresh.
	other, err := sourceRepo.MarkSeen(ctx, 2, "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, other)

	// Concurrent first clicks from one address yield exactly one winner.
	const n = 10
	var wg sync.WaitGroup
	results := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := sourceRepo.MarkSeen(ctx, 3, "198.51.100.7")
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, ok := range results {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestIntegration_CacheRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	ctx := t.Context()
	cacheRepo, err := repository.NewCacheRepository(env.redis)
	require.NoError(t, err)

	link := &models.Link{
		ID:          7,
		UserID:      1,
		ShortCode:   "cached",
		OriginalURL: "https://example.com",
		Domain:      "example.com",
		Active:      true,
	}
	require.NoError(t, cacheRepo.Set(ctx, "cached", link, time.Minute))

	got, err := cacheRepo.Get(ctx, "cached")
	require.NoError(t, err)
	assert.Equal(t, link.OriginalURL, got.OriginalURL)
	assert.True(t, got.Active)

	require.NoError(t, cacheRepo.Delete(ctx, "cached"))
	_, err = cacheRepo.Get(ctx, "cached")
	assert.Error(t, err)
}

func TestIntegration_SecurityRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	ctx := t.Context()
	secRepo := repository.NewSecurityRepository(env.db)

	event := &models.SecurityEvent{
		Identity: "msg:42",
		URL:      "https://malware.com/payload",
		Reason:   models.ReasonBlockedDomain,
		Allowed:  false,
	}
	require.NoError(t, secRepo.RecordEvent(ctx, event))
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}
