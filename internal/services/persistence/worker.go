package persistence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"contactless-ordering/internal/logger"
)

// Worker repeats an action on a fixed interval: sleep, act, repeat. A failed
// action is logged and retried on the next cycle.
type Worker struct {
	name     string
	interval time.Duration
	action   func(ctx context.Context) error
	logger   *logger.Logger
}

// NewWorker creates a periodic worker
func NewWorker(name string, interval time.Duration, action func(ctx context.Context) error, log *logger.Logger) *Worker {
	return &Worker{
		name:     name,
		interval: interval,
		action:   action,
		logger:   log,
	}
}

// Name returns the worker name
func (w *Worker) Name() string { return w.name }

// Run blocks until ctx is cancelled. Cancellation during the sleep exits
// without acting.
func (w *Worker) Run(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	w.logger.Info("worker_started", requestID, "Periodic worker started",
		zap.String("worker_name", w.name), zap.Duration("interval", w.interval))

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker_stopped", requestID, "Periodic worker stopped", zap.String("worker_name", w.name))
			return nil
		case <-timer.C:
		}

		if err := w.action(ctx); err != nil {
			w.logger.Warn("worker_cycle_failed", requestID, "Periodic action failed, retrying next cycle",
				zap.String("worker_name", w.name), zap.Error(err))
		}
		timer.Reset(w.interval)
	}
}

// NewAdminSaver saves menu and tables every interval
func NewAdminSaver(name string, interval time.Duration, s *Snapshotter, log *logger.Logger) *Worker {
	return NewWorker(name, interval, s.SaveAdmin, log)
}

// NewOrderSaver saves the order registry every interval
func NewOrderSaver(name string, interval time.Duration, s *Snapshotter, log *logger.Logger) *Worker {
	return NewWorker(name, interval, s.SaveOrders, log)
}

// NewBackupWorker copies the snapshot files every interval
func NewBackupWorker(name string, interval time.Duration, s *Snapshotter, log *logger.Logger) *Worker {
	return NewWorker(name, interval, s.Backup, log)
}
