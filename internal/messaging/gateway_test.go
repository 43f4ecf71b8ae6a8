package messaging_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dafedescribe/wey/internal/messaging"
	"github.com/dafedescribe/wey/internal/models"
	"github.com/dafedescribe/wey/internal/service"
	"github.com/dafedescribe/wey/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (s *recordingSender) SendText(ctx context.Context, recipient, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.replies = append(s.replies, text)
	return nil
}

func (s *recordingSender) last(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.replies)
	return s.replies[len(s.replies)-1]
}

type stubGate struct {
	verdict models.Verdict
}

func (g stubGate) Evaluate(ctx context.Context, rawURL, identity string) models.Verdict {
	return g.verdict
}

type gatewayEnv struct {
	gateway *messaging.Gateway
	sender  *recordingSender
	links   service.LinkService
}

func setupGateway(t *testing.T, gate service.SecurityGate) *gatewayEnv {
	t.Helper()

	linkRepo := mocks.NewMockLinkRepository()
	userRepo := mocks.NewMockUserRepository()
	clickRepo := mocks.NewMockClickRepository()
	cacheRepo := mocks.NewMockCacheRepository()
	logger := zap.NewNop()

	links := service.NewLinkService(
		gate, service.NewCodeAllocator(linkRepo),
		linkRepo, userRepo, cacheRepo, "https://wey.sh", logger,
	)
	stats := service.NewStatsService(linkRepo, clickRepo, "https://wey.sh", time.UTC)

	sender := &recordingSender{}
	return &gatewayEnv{
		gateway: messaging.NewGateway(links, stats, sender, logger),
		sender:  sender,
		links:   links,
	}
}

func handle(t *testing.T, env *gatewayEnv, from, text string) string {
	t.Helper()
	err := env.gateway.Handle(context.Background(), messaging.InboundMessage{
		From: from,
		Name: "Test User",
		Text: text,
	})
	require.NoError(t, err)
	return env.sender.last(t)
}

func TestGateway_ShortenCommand(t *testing.T) {
	env := setupGateway(t, stubGate{models.Verdict{Allowed: true, Reason: models.ReasonAllowed}})

	reply := handle(t, env, "user1", "shorten https://example.com/article")

	assert.Contains(t, reply, "https://wey.sh/")
}

// A bare URL works without the shorten keyword.
func TestGateway_BareURL(t *testing.T) {
	env := setupGateway(t, stubGate{models.Verdict{Allowed: true, Reason: models.ReasonAllowed}})

	reply := handle(t, env, "user1", "https://example.com/article")
	assert.Contains(t, reply, "https://wey.sh/")

	reply = handle(t, env, "user1", "www.example.com")
	assert.Contains(t, reply, "https://wey.sh/")
}

// A denial reply carries the gate's message verbatim.
func TestGateway_SecurityDenied(t *testing.T) {
	env := setupGateway(t, stubGate{models.Verdict{
		Allowed: false,
		Reason:  models.ReasonBlockedDomain,
		Message: "This domain is not allowed.",
	}})

	reply := handle(t, env, "user1", "shorten https://malware.com/payload")

	assert.Equal(t, "This domain is not allowed.", reply)
}

func TestGateway_InvalidURL(t *testing.T) {
	env := setupGateway(t, stubGate{models.Verdict{Allowed: true, Reason: models.ReasonAllowed}})

	reply := handle(t, env, "user1", "shorten ://notaurl")

	assert.Contains(t, reply, "valid URL")
}

func TestGateway_StatsCommand(t *testing.T) {
	env := setupGateway(t, stubGate{models.Verdict{Allowed: true, Reason: models.ReasonAllowed}})

	link, err := env.links.Shorten(context.Background(), "user1", "Test User", "https://example.com")
	require.NoError(t, err)

	reply := handle(t, env, "user1", "stats "+link.ShortCode)

	assert.Contains(t, reply, "https://wey.sh/"+link.ShortCode)
	assert.Contains(t, reply, "Total clicks: 0")
}

func TestGateway_StatsUnknownCode(t *testing.T) {
	env := setupGateway(t, stubGate{models.Verdict{Allowed: true, Reason: models.ReasonAllowed}})

	reply := handle(t, env, "user1", "stats nosuch")

	assert.Contains(t, reply, "No link found")
}

func TestGateway_MyLinks(t *testing.T) {
	env := setupGateway(t, stubGate{models.Verdict{Allowed: true, Reason: models.ReasonAllowed}})

	_, err := env.links.Shorten(context.Background(), "user1", "Test User", "https://example.com/a")
	require.NoError(t, err)
	_, err = env.links.Shorten(context.Background(), "user1", "Test User", "https://other.org/b")
	require.NoError(t, err)

	reply := handle(t, env, "user1", "mylinks")

	assert.Contains(t, reply, "Your latest links:")
	assert.Contains(t, reply, "example.com")
	assert.Contains(t, reply, "other.org")
}

func TestGateway_MyLinksEmpty(t *testing.T) {
	env := setupGateway(t, stubGate{models.Verdict{Allowed: true, Reason: models.ReasonAllowed}})

	reply := handle(t, env, "newcomer", "mylinks")

	assert.Contains(t, reply, "haven't created any links")
}

func TestGateway_HelpAndUnknown(t *testing.T) {
	env := setupGateway(t, stubGate{models.Verdict{Allowed: true, Reason: models.ReasonAllowed}})

	for _, text := range []string{"help", "what is this", "   "} {
		reply := handle(t, env, "user1", text)
		assert.Contains(t, reply, "Commands:", "text %q should fall through to help", text)
	}
}

func TestGateway_SenderFailure(t *testing.T) {
	env := setupGateway(t, stubGate{models.Verdict{Allowed: true, Reason: models.ReasonAllowed}})
	env.sender.err = errors.New("transport down")

	err := env.gateway.Handle(context.Background(), messaging.InboundMessage{
		From: "user1",
		Text: "help",
	})
	assert.Error(t, err)
}
