package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dafedescribe/wey/internal/repository"
	"github.com/dafedescribe/wey/internal/service"
	"go.uber.org/zap"
)

// Sender is the boundary to the external messaging transport. The engine
// only ever needs "send text to recipient id".
type Sender interface {
	SendText(ctx context.Context, recipient, text string) error
}

// InboundMessage is what the transport delivers: a sender id, an optional
// display name and the message text.
type InboundMessage struct {
	From string `json:"from" binding:"required"`
	Name string `json:"name"`
	Text string `json:"text" binding:"required"`
}

const helpText = `Commands:
shorten <url> - create a short link (or just send the url)
stats <code> - click stats for one of your links
mylinks - list your latest links
help - this message`

// Gateway turns inbound texts into engine calls and replies through the
// sender. Replies are always user-safe; internal errors never leak.
type Gateway struct {
	links  service.LinkService
	stats  service.StatsService
	sender Sender
	logger *zap.Logger
}

func NewGateway(links service.LinkService, stats service.StatsService, sender Sender, logger *zap.Logger) *Gateway {
	return &Gateway{
		links:  links,
		stats:  stats,
		sender: sender,
		logger: logger,
	}
}

// Handle processes one inbound message and sends exactly one reply.
func (g *Gateway) Handle(ctx context.Context, msg InboundMessage) error {
	reply := g.replyFor(ctx, msg)
	if err := g.sender.SendText(ctx, msg.From, reply); err != nil {
		g.logger.Warn("failed to send reply", zap.String("to", msg.From), zap.Error(err))
		return err
	}
	return nil
}

func (g *Gateway) replyFor(ctx context.Context, msg InboundMessage) string {
	text := strings.TrimSpace(msg.Text)
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return helpText
	}

	command := strings.ToLower(fields[0])
	switch {
	case command == "shorten" && len(fields) > 1:
		return g.shorten(ctx, msg, fields[1])
	case looksLikeURL(fields[0]):
		return g.shorten(ctx, msg, fields[0])
	case command == "stats" && len(fields) > 1:
		return g.statsSummary(ctx, fields[1])
	case command == "mylinks":
		return g.linkList(ctx, msg.From)
	default:
		return helpText
	}
}

func (g *Gateway) shorten(ctx context.Context, msg InboundMessage, rawURL string) string {
	link, err := g.links.Shorten(ctx, msg.From, msg.Name, rawURL)
	if err != nil {
		var denied *service.SecurityDeniedError
		switch {
		case errors.As(err, &denied):
			return denied.Verdict.Message
		case errors.Is(err, service.ErrInvalidURL):
			return "That doesn't look like a valid URL."
		case errors.Is(err, service.ErrCodeExhausted):
			return "Couldn't generate a short code right now, please try again."
		default:
			g.logger.Error("shorten failed", zap.String("identity", msg.From), zap.Error(err))
			return "Something went wrong on our side, please try again."
		}
	}

	return fmt.Sprintf("Here's your short link: %s", g.links.ShortURL(link.ShortCode))
}

func (g *Gateway) statsSummary(ctx context.Context, code string) string {
	stats, err := g.stats.GetStats(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return "No link found for that code."
		}
		g.logger.Error("stats lookup failed", zap.String("code", code), zap.Error(err))
		return "Couldn't fetch stats right now, please try again."
	}

	return fmt.Sprintf("%s\nTotal clicks: %d\nUnique clicks: %d\nToday: %d",
		stats.ShortURL, stats.TotalClicks, stats.UniqueClicks, stats.ClicksToday)
}

func (g *Gateway) linkList(ctx context.Context, identity string) string {
	links, err := g.links.GetLinksForUser(ctx, identity, 10, 0)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "You haven't created any links yet. Send a URL to get started."
		}
		g.logger.Error("link list failed", zap.String("identity", identity), zap.Error(err))
		return "Couldn't fetch your links right now, please try again."
	}
	if len(links) == 0 {
		return "You haven't created any links yet. Send a URL to get started."
	}

	var b strings.Builder
	b.WriteString("Your latest links:\n")
	for _, link := range links {
		fmt.Fprintf(&b, "%s -> %s (%d clicks)\n",
			g.links.ShortURL(link.ShortCode), link.Domain, link.TotalClicks)
	}
	return strings.TrimRight(b.String(), "\n")
}

func looksLikeURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "www.")
}
