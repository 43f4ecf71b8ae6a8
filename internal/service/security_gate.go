package service

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dafedescribe/wey/internal/config"
	"github.com/dafedescribe/wey/internal/models"
	"github.com/dafedescribe/wey/internal/repository"
	"go.uber.org/zap"
)

// Built-in blocklist; extended through config.
var defaultBlockedDomains = []string{
	"malware.com",
	"phishing.com",
	"spam.com",
}

// Suspicious URL patterns: bare IP hosts, chained shorteners, executable
// payloads, script/data schemes, common scam bait.
var suspiciousPatterns = []string{
	`^https?://\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`,
	`(?i)(bit\.ly|tinyurl\.com|t\.co|goo\.gl|is\.gd|ow\.ly|buff\.ly|cutt\.ly|rebrand\.ly|tiny\.cc|shorturl\.at)`,
	`(?i)\.(exe|scr|bat|cmd|msi|apk|jar)(\?|#|$)`,
	`(?i)^(javascript|data|vbscript):`,
	`(?i)(free[-_]?money|win[-_]?prize|claim[-_]?reward|crypto[-_]?doubler|account[-_]?verify)`,
}

// SecurityGate evaluates a candidate URL and submitter identity, short-
// circuiting on the first failing check.
type SecurityGate interface {
	Evaluate(ctx context.Context, rawURL, identity string) models.Verdict
}

type securityGate struct {
	cfg       config.SecurityConfig
	rateRepo  repository.RateLimitRepository
	auditRepo repository.SecurityRepository
	blocklist []string
	patterns  []*regexp.Regexp
	probe     *http.Client
	logger    *zap.Logger
}

// NewSecurityGate compiles the blocklist and pattern set once at startup;
// the gate itself is safe for concurrent use.
func NewSecurityGate(
	cfg config.SecurityConfig,
	rateRepo repository.RateLimitRepository,
	auditRepo repository.SecurityRepository,
	logger *zap.Logger,
) SecurityGate {
	blocklist := make([]string, 0, len(defaultBlockedDomains)+len(cfg.BlockedDomains))
	for _, d := range defaultBlockedDomains {
		blocklist = append(blocklist, strings.ToLower(d))
	}
	for _, d := range cfg.BlockedDomains {
		blocklist = append(blocklist, strings.ToLower(d))
	}

	patterns := make([]*regexp.Regexp, 0, len(suspiciousPatterns))
	for _, p := range suspiciousPatterns {
		patterns = append(patterns, regexp.MustCompile(p))
	}

	return &securityGate{
		cfg:       cfg,
		rateRepo:  rateRepo,
		auditRepo: auditRepo,
		blocklist: blocklist,
		patterns:  patterns,
		probe:     &http.Client{Timeout: cfg.ProbeTimeout},
		logger:    logger,
	}
}

func (g *securityGate) Evaluate(ctx context.Context, rawURL, identity string) models.Verdict {
	verdict := g.evaluate(ctx, rawURL, identity)
	g.audit(rawURL, identity, verdict)
	return verdict
}

func (g *securityGate) evaluate(ctx context.Context, rawURL, identity string) models.Verdict {
	allowed, err := g.rateRepo.ReserveSlot(ctx, identity, g.cfg.LinksPerWindow, g.cfg.Window)
	if err != nil {
		// A broken limiter store must not take link creation down with it.
		g.logger.Error("rate limit check failed, allowing request", zap.Error(err))
	} else if !allowed {
		return deny(models.ReasonRateLimit,
			"You've hit the hourly link limit. Try again a bit later.")
	}

	lower := strings.ToLower(rawURL)
	for _, domain := range g.blocklist {
		if strings.Contains(lower, domain) {
			return deny(models.ReasonBlockedDomain,
				"That domain can't be shortened here.")
		}
	}

	for _, pattern := range g.patterns {
		if pattern.MatchString(rawURL) {
			return deny(models.ReasonSuspiciousPattern,
				"That URL looks unsafe, so it was not shortened.")
		}
	}

	if len(rawURL) > g.cfg.MaxURLLength {
		return deny(models.ReasonURLTooLong,
			"That URL is too long to shorten.")
	}

	if g.probeNotFound(ctx, rawURL) {
		return deny(models.ReasonURLNotFound,
			"That URL doesn't seem to exist (404).")
	}

	return models.Verdict{Allowed: true, Reason: models.ReasonAllowed}
}

// probeNotFound makes a best-effort HEAD request. Only a definitive 404
// counts against the URL; timeouts and transport errors are inconclusive.
func (g *securityGate) probeNotFound(ctx context.Context, rawURL string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, g.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}

	resp, err := g.probe.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusNotFound
}

// audit records the verdict without blocking or failing the caller.
func (g *securityGate) audit(rawURL, identity string, verdict models.Verdict) {
	event := &models.SecurityEvent{
		Identity: identity,
		URL:      rawURL,
		Reason:   verdict.Reason,
		Allowed:  verdict.Allowed,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := g.auditRepo.RecordEvent(ctx, event); err != nil {
			g.logger.Warn("failed to record security event",
				zap.String("identity", identity),
				zap.String("reason", verdict.Reason),
				zap.Error(err),
			)
		}
	}()
}

func deny(reason, message string) models.Verdict {
	return models.Verdict{Allowed: false, Reason: reason, Message: message}
}
