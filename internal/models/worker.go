package models

import (
	"sort"
	"sync"
	"time"
)

// WorkerStatus represents the status of a background worker
type WorkerStatus string

const (
	WorkerStarting WorkerStatus = "starting"
	WorkerOnline   WorkerStatus = "online"
	WorkerOffline  WorkerStatus = "offline"
)

// Names of the supervised workers
const (
	OrderProcessorWorker = "order-processor"
	StaffNotifierWorker  = "staff-notifier"
	AdminSaverWorker     = "admin-saver"
	OrderSaverWorker     = "order-saver"
	BackupWorker         = "backup-worker"
	AuditLoggerWorker    = "audit-logger"
)

// Worker is a point-in-time view of a supervised worker
type Worker struct {
	Name     string       `json:"worker_name"`
	Status   WorkerStatus `json:"status"`
	LastSeen time.Time    `json:"last_seen"`
}

// WorkerBoard tracks the status of every supervised worker
type WorkerBoard struct {
	mu      sync.RWMutex
	workers map[string]Worker
}

// NewWorkerBoard creates an empty board
func NewWorkerBoard() *WorkerBoard {
	return &WorkerBoard{workers: make(map[string]Worker)}
}

// Set records the status of a worker
func (b *WorkerBoard) Set(name string, status WorkerStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.workers[name] = Worker{Name: name, Status: status, LastSeen: time.Now().UTC()}
}

// List returns all workers sorted by name
func (b *WorkerBoard) List() []Worker {
	b.mu.RLock()
	defer b.mu.RUnlock()

	workers := make([]Worker, 0, len(b.workers))
	for _, w := range b.workers {
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].Name < workers[j].Name })
	return workers
}

// AllOnline reports whether every tracked worker is online
func (b *WorkerBoard) AllOnline() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.workers) == 0 {
		return false
	}
	for _, w := range b.workers {
		if w.Status != WorkerOnline {
			return false
		}
	}
	return true
}
