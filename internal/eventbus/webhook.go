package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/TheHaywire/solid-fortnight/internal/orchestrator"
	"github.com/TheHaywire/solid-fortnight/internal/tools"
)

const webhookQueue = 256

// WebhookSink POSTs every event as JSON to a URL from a background worker.
// Events arriving while the queue is full, or after Close, are dropped.
type WebhookSink struct {
	url    string
	post   *tools.HTTPPostJSONTool
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan orchestrator.Event
	done   chan struct{}
}

func NewWebhookSink(url string, timeout time.Duration, logger *slog.Logger) *WebhookSink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &WebhookSink{
		url:    url,
		post:   &tools.HTTPPostJSONTool{Timeout: timeout},
		logger: logger,
		queue:  make(chan orchestrator.Event, webhookQueue),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *WebhookSink) Publish(runID string, ev orchestrator.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Debug("webhook sink closed, dropping event", "run_id", runID, "event", ev.Event)
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.logger.Warn("webhook queue full, dropping event", "run_id", runID, "event", ev.Event)
	}
}

func (s *WebhookSink) loop() {
	defer close(s.done)
	for ev := range s.queue {
		_, logs, err := s.post.Execute(context.Background(), map[string]any{"url": s.url, "json": ev})
		if err != nil {
			s.logger.Warn("webhook delivery failed", "event", ev.Event, "run_id", ev.RunID, "err", err, "logs", logs)
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (s *WebhookSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
	return nil
}
