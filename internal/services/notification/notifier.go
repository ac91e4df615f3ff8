package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"contactless-ordering/internal/logger"
	"contactless-ordering/internal/metrics"
	"contactless-ordering/internal/models"
	"contactless-ordering/internal/queue"
)

// Sink forwards notifications outside the process, e.g. to a broker
type Sink interface {
	Name() string
	Publish(ctx context.Context, msg *models.NotificationMessage) error
}

// Callback receives every delivered notification text
type Callback func(message string)

// Notifier is the single staff notification worker. It takes messages off the
// notification channel in order, hands each to every subscriber and sink, then
// pauses for the pacing delay.
type Notifier struct {
	messages *queue.Queue[string]
	pacing   time.Duration
	sinks    []Sink
	metrics  *metrics.Metrics
	logger   *logger.Logger

	mu          sync.RWMutex
	subscribers []Callback
}

// NewNotifier creates a notifier draining messages
func NewNotifier(messages *queue.Queue[string], pacing time.Duration, sinks []Sink, m *metrics.Metrics, log *logger.Logger) *Notifier {
	return &Notifier{
		messages: messages,
		pacing:   pacing,
		sinks:    sinks,
		metrics:  m,
		logger:   log,
	}
}

// Subscribe registers a display callback. Callbacks run on the notifier
// goroutine and must not block.
func (n *Notifier) Subscribe(cb Callback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = append(n.subscribers, cb)
}

// Run delivers messages until ctx is cancelled. Messages still queued at that
// point are not delivered.
func (n *Notifier) Run(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	n.logger.Info("service_started", requestID, "Staff notifier started",
		zap.Duration("pacing", n.pacing), zap.Int("sinks", len(n.sinks)))

	for {
		if ctx.Err() != nil {
			break
		}
		message, err := n.messages.Pop(ctx)
		if err != nil {
			break
		}
		n.metrics.SetQueueDepth("notifications", n.messages.Len())
		n.deliver(ctx, message)

		if !sleep(ctx, n.pacing) {
			break
		}
	}

	n.logger.Info("graceful_shutdown", requestID, "Staff notifier stopped",
		zap.Int("undelivered", n.messages.Len()))
	return nil
}

func (n *Notifier) deliver(ctx context.Context, message string) {
	n.mu.RLock()
	subscribers := append([]Callback(nil), n.subscribers...)
	n.mu.RUnlock()

	for _, cb := range subscribers {
		cb(message)
		n.metrics.RecordNotification("display", metrics.OutcomeSuccess)
	}

	if len(n.sinks) == 0 {
		return
	}
	envelope := models.CreateNotificationMessage(message)
	for _, sink := range n.sinks {
		if err := sink.Publish(ctx, envelope); err != nil {
			n.metrics.RecordNotification(sink.Name(), metrics.OutcomeFailure)
			n.logger.Error("notification_publish_failed", envelope.ID, "Failed to publish notification", err,
				zap.String("sink", sink.Name()))
			continue
		}
		n.metrics.RecordNotification(sink.Name(), metrics.OutcomeSuccess)
	}
}

// sleep waits for d or ctx, reporting whether the full delay elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
