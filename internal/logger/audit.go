package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"contactless-ordering/internal/queue"
)

// AuditTimeLayout formats the timestamp prefix of audit lines.
const AuditTimeLayout = "2006-01-02T15:04:05.000"

// AuditLog appends human-readable event lines to a file from a single
// background writer. Log never blocks on I/O.
type AuditLog struct {
	path string
	poll time.Duration
	ops  *Logger

	entries *queue.Queue[string]
	now     func() time.Time

	mu      sync.Mutex
	stopped bool

	stopCtx  context.Context
	stopFunc context.CancelFunc
	start    sync.Once
	done     chan struct{}
}

// NewAuditLog creates an audit log writing to path. The writer waits at most
// poll for new entries before re-checking for stop.
func NewAuditLog(path string, poll time.Duration, ops *Logger) *AuditLog {
	if poll <= 0 {
		poll = time.Second
	}
	if ops == nil {
		ops = Nop()
	}
	stopCtx, stopFunc := context.WithCancel(context.Background())
	return &AuditLog{
		path:     path,
		poll:     poll,
		ops:      ops,
		entries:  queue.New[string](),
		now:      time.Now,
		stopCtx:  stopCtx,
		stopFunc: stopFunc,
		done:     make(chan struct{}),
	}
}

// Log enqueues a timestamped entry. It is a no-op once Stop was called.
func (a *AuditLog) Log(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.entries.Push(fmt.Sprintf("%s - %s", a.now().Format(AuditTimeLayout), message))
}

// Pending returns the number of entries not yet written.
func (a *AuditLog) Pending() int {
	return a.entries.Len()
}

// Start launches the writer. Calling it more than once has no effect.
func (a *AuditLog) Start() {
	a.start.Do(func() {
		go a.run()
	})
}

// Stop rejects further entries, waits until everything logged before the call
// has been written and returns.
func (a *AuditLog) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()

	a.stopFunc()
	a.Start()
	<-a.done
}

func (a *AuditLog) run() {
	defer close(a.done)

	for {
		ctx, cancel := context.WithTimeout(a.stopCtx, a.poll)
		entry, err := a.entries.Pop(ctx)
		cancel()

		if err != nil {
			if a.stopCtx.Err() != nil {
				return
			}
			continue
		}
		if err := a.write(entry); err != nil {
			a.ops.Error("audit_write", "", "Failed to write audit entry", err, zap.String("path", a.path))
		}
	}
}

func (a *AuditLog) write(entry string) error {
	file, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	if _, err := file.WriteString(entry + "\n"); err != nil {
		file.Close()
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return file.Close()
}
