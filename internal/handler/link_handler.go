package handler

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dafedescribe/wey/internal/models"
	"github.com/dafedescribe/wey/internal/repository"
	"github.com/dafedescribe/wey/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	links     service.LinkService
	stats     service.StatsService
	processor service.ClickProcessor
	logger    *zap.Logger
}

func NewLinkHandler(
	links service.LinkService,
	stats service.StatsService,
	processor service.ClickProcessor,
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		links:     links,
		stats:     stats,
		processor: processor,
		logger:    logger,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// LinkSummary is the public shape of a link; row ids stay internal.
type LinkSummary struct {
	ShortCode    string    `json:"short_code"`
	ShortURL     string    `json:"short_url"`
	OriginalURL  string    `json:"original_url"`
	Domain       string    `json:"domain"`
	TotalClicks  int64     `json:"total_clicks"`
	UniqueClicks int64     `json:"unique_clicks"`
	CreatedAt    time.Time `json:"created_at"`
}

// Redirect resolves /:code, records the click best-effort and responds 302.
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	link, err := h.links.GetLink(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.String(http.StatusNotFound, "Short link not found.")
			return
		}
		h.logger.Error("failed to resolve link", zap.String("code", code), zap.Error(err))
		c.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}

	target, ok := normalizeTarget(link.OriginalURL)
	if !ok {
		h.logger.Warn("stored URL is malformed", zap.String("code", code))
		c.String(http.StatusBadRequest, "The stored destination URL is malformed.")
		return
	}

	// Telemetry must never delay or fail the redirect.
	event := &models.ClickEvent{
		ShortCode: code,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	}
	if err := h.processor.Enqueue(c.Request.Context(), event); err != nil {
		h.logger.Debug("failed to enqueue click", zap.Error(err))
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Redirect(http.StatusFound, target)
}

// GetStats serves the public stats payload for a code.
func (h *LinkHandler) GetStats(c *gin.Context) {
	code := c.Param("code")

	stats, err := h.stats.GetStats(c.Request.Context(), code)
	if err != nil {
		h.respondStatsError(c, code, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetDailyStats serves per-day click counts.
func (h *LinkHandler) GetDailyStats(c *gin.Context) {
	code := c.Param("code")
	days := 7
	if d := c.Query("days"); d != "" {
		if _, err := fmt.Sscanf(d, "%d", &days); err != nil || days < 1 || days > 90 {
			days = 7
		}
	}

	stats, err := h.stats.GetDailyStats(c.Request.Context(), code, days)
	if err != nil {
		h.respondStatsError(c, code, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head><title>Link preview</title></head>
<body>
<h1>{{.ShortURL}}</h1>
<p>Code: {{.ShortCode}}</p>
<p>Total clicks: {{.TotalClicks}}</p>
<p>Unique clicks: {{.UniqueClicks}}</p>
<p>Clicks today: {{.ClicksToday}}</p>
<p>Created: {{.CreatedAt}}</p>
{{if .Devices}}<h2>Devices</h2>
<ul>{{range $device, $count := .Devices}}<li>{{$device}}: {{$count}}</li>{{end}}</ul>
{{end}}{{if .Browsers}}<h2>Browsers</h2>
<ul>{{range $browser, $count := .Browsers}}<li>{{$browser}}: {{$count}}</li>{{end}}</ul>
{{end}}<p><a href="/{{.ShortCode}}">Continue to destination</a></p>
</body>
</html>`))

// Preview shows the same public fields as the stats API, without redirecting.
func (h *LinkHandler) Preview(c *gin.Context) {
	code := c.Param("code")

	stats, err := h.stats.GetStats(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.String(http.StatusNotFound, "Short link not found.")
			return
		}
		h.logger.Error("failed to build preview", zap.String("code", code), zap.Error(err))
		c.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := previewTemplate.Execute(c.Writer, stats); err != nil {
		h.logger.Error("failed to render preview", zap.String("code", code), zap.Error(err))
	}
}

// Deactivate disables a link; rows are never deleted.
func (h *LinkHandler) Deactivate(c *gin.Context) {
	code := c.Param("code")

	if err := h.links.Deactivate(c.Request.Context(), code); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Link not found",
			})
			return
		}
		h.logger.Error("failed to deactivate link", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to deactivate link",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deactivated"})
}

// ListLinks returns a user's links, newest first.
func (h *LinkHandler) ListLinks(c *gin.Context) {
	identity := c.Query("identity")
	if identity == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_identity",
			Message: "identity query parameter is required",
		})
		return
	}

	links, err := h.links.GetLinksForUser(c.Request.Context(), identity, 50, 0)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "User not found",
			})
			return
		}
		h.logger.Error("failed to list links", zap.String("identity", identity), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list links",
		})
		return
	}

	summaries := make([]LinkSummary, 0, len(links))
	for _, link := range links {
		summaries = append(summaries, LinkSummary{
			ShortCode:    link.ShortCode,
			ShortURL:     h.links.ShortURL(link.ShortCode),
			OriginalURL:  link.OriginalURL,
			Domain:       link.Domain,
			TotalClicks:  link.TotalClicks,
			UniqueClicks: link.UniqueClicks,
			CreatedAt:    link.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, summaries)
}

func (h *LinkHandler) respondStatsError(c *gin.Context, code string, err error) {
	if errors.Is(err, repository.ErrLinkNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
		return
	}
	h.logger.Error("failed to get stats", zap.String("code", code), zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Failed to get stats",
	})
}

// normalizeTarget prepends https:// when the stored URL has no scheme and
// rejects anything still malformed after that.
func normalizeTarget(rawURL string) (string, bool) {
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return "", false
	}
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return target, true
}
