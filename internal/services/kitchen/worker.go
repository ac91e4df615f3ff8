package kitchen

import (
	"context"
	"time"

	"go.uber.org/zap"

	"contactless-ordering/internal/logger"
	"contactless-ordering/internal/metrics"
	"contactless-ordering/internal/models"
	"contactless-ordering/internal/queue"
	"contactless-ordering/internal/registry"
)

// OrderSaver persists the whole order registry
type OrderSaver interface {
	SaveOrders(ctx context.Context) error
}

// Worker is the single order processor. It takes orders off the work queue in
// submission order, simulates preparation and reports progress to staff. It
// never completes an order; staff do.
type Worker struct {
	name  string
	delay time.Duration

	work          *queue.Queue[models.Order]
	orders        *registry.Registry[models.Order]
	notifications *queue.Queue[string]
	saver         OrderSaver
	metrics       *metrics.Metrics
	logger        *logger.Logger
}

// NewWorker creates a new order processor
func NewWorker(name string, delay time.Duration, work *queue.Queue[models.Order], orders *registry.Registry[models.Order],
	notifications *queue.Queue[string], saver OrderSaver, m *metrics.Metrics, log *logger.Logger) *Worker {
	return &Worker{
		name:          name,
		delay:         delay,
		work:          work,
		orders:        orders,
		notifications: notifications,
		saver:         saver,
		metrics:       m,
		logger:        log,
	}
}

// Run processes orders until ctx is cancelled. Orders still queued stay in
// the registry and are not processed.
func (w *Worker) Run(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	w.logger.Info("worker_started", requestID, "Order processor started",
		zap.String("worker_name", w.name), zap.Duration("processing_delay", w.delay))

	for ctx.Err() == nil {
		order, err := w.work.Pop(ctx)
		if err != nil {
			break
		}
		w.metrics.SetQueueDepth("work", w.work.Len())
		if !w.process(ctx, order) {
			break
		}
	}

	w.logger.Info("graceful_shutdown", requestID, "Order processor stopped",
		zap.String("worker_name", w.name), zap.Int("unprocessed", w.work.Len()))
	return nil
}

// process handles one order and reports whether the delay ran to completion
func (w *Worker) process(ctx context.Context, order models.Order) bool {
	requestID := logger.GenerateRequestID()
	started := time.Now()

	w.notifications.Push(models.OrderProcessingText(order.ID))
	w.logger.Debug("order_processing_started", requestID, "Processing order",
		zap.Int("order_id", order.ID), zap.Int("table_id", order.TableID))

	timer := time.NewTimer(w.delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		w.logger.Info("order_processing_interrupted", requestID, "Processing interrupted by shutdown",
			zap.Int("order_id", order.ID))
		return false
	case <-timer.C:
	}

	// A staff completion may have landed while the order was being prepared;
	// the registry copy wins over the dequeued one.
	w.orders.Upsert(order.ID, func(current models.Order, exists bool) models.Order {
		if exists {
			return current
		}
		return order
	})

	if err := w.saver.SaveOrders(ctx); err != nil {
		w.logger.Error("order_save_failed", requestID, "Failed to persist orders after processing", err,
			zap.Int("order_id", order.ID))
	}

	w.notifications.Push(models.OrderProcessedText(order.ID))
	w.metrics.RecordProcessed(time.Since(started).Seconds())
	w.logger.Debug("order_processed", requestID, "Order processed",
		zap.Int("order_id", order.ID), zap.String("processed_by", w.name))
	return true
}
