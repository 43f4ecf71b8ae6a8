package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dafedescribe/wey/internal/models"
	"github.com/dafedescribe/wey/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultWorkerCount   = 3
	defaultChannelBuffer = 1000
	maxRecordRetries     = 3
)

// ClickProcessor drains redirect click events into the tracker from a
// buffered channel, keeping the redirect path free of storage latency.
type ClickProcessor interface {
	Start()
	Stop()
	// Enqueue hands off a click event without blocking; when the buffer is
	// full the event is dropped and the redirect proceeds.
	Enqueue(ctx context.Context, event *models.ClickEvent) error
}

type clickProcessor struct {
	tracker      ClickTracker
	logger       *zap.Logger
	clickChannel chan *models.ClickEvent
	workerCount  int
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewClickProcessor(tracker ClickTracker, logger *zap.Logger) ClickProcessor {
	return &clickProcessor{
		tracker:      tracker,
		logger:       logger,
		clickChannel: make(chan *models.ClickEvent, defaultChannelBuffer),
		workerCount:  defaultWorkerCount,
	}
}

func (p *clickProcessor) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.logger.Info("starting click workers", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *clickProcessor) Stop() {
	p.logger.Info("stopping click processor")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("click processor stopped")
}

func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("click worker started", zap.Int("id", id))

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("click worker stopped", zap.Int("id", id))
			return

		case event, ok := <-p.clickChannel:
			if !ok {
				return
			}
			p.processClick(event)
		}
	}
}

func (p *clickProcessor) processClick(event *models.ClickEvent) {
	ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
	defer cancel()

	var lastErr error
	for i := 0; i < maxRecordRetries; i++ {
		_, err := p.tracker.RecordClick(ctx, event)
		if err == nil {
			return
		}
		if errors.Is(err, repository.ErrLinkNotFound) {
			// Unknown or deactivated code; retrying cannot help.
			p.logger.Debug("dropping click for unknown code", zap.String("short_code", event.ShortCode))
			return
		}
		lastErr = err
		if i < maxRecordRetries-1 {
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}

	p.logger.Error("failed to record click after retries",
		zap.String("short_code", event.ShortCode),
		zap.Error(lastErr),
	)
}

func (p *clickProcessor) Enqueue(ctx context.Context, event *models.ClickEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case p.clickChannel <- event:
		return nil
	default:
		p.logger.Warn("click buffer full, dropping event",
			zap.String("short_code", event.ShortCode),
		)
		return nil
	}
}
