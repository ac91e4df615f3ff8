// Package storage persists registry snapshots as line-oriented text files and
// produces timestamped backups of them.
package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"

	"contactless-ordering/internal/models"
)

// Kinds of persisted files, also used as backup name prefixes.
const (
	KindMenu   = "menu"
	KindTables = "tables"
	KindOrders = "orders"
)

// BackupTimeLayout formats the timestamp of backup file names.
const BackupTimeLayout = "20060102_150405"

// Paths locates the live snapshot files and the backup directory.
type Paths struct {
	Menu      string
	Tables    string
	Orders    string
	BackupDir string
}

// LoadReport describes a load: whether the file existed and how many lines
// were skipped as malformed.
type LoadReport struct {
	Kind    string
	Missing bool
	Loaded  int
	Skipped int
}

// FileStore reads and writes snapshot files. Each file has a single writer at
// a time; writes go through a temp file and a rename.
type FileStore struct {
	paths Paths
	locks map[string]*sync.Mutex
	now   func() time.Time
}

// NewFileStore creates a store over the given paths.
func NewFileStore(paths Paths) *FileStore {
	return &FileStore{
		paths: paths,
		locks: map[string]*sync.Mutex{
			KindMenu:   {},
			KindTables: {},
			KindOrders: {},
		},
		now: time.Now,
	}
}

// Paths returns the configured paths.
func (s *FileStore) Paths() Paths { return s.paths }

// LoadMenu reads the menu file.
func (s *FileStore) LoadMenu() ([]models.MenuItem, LoadReport, error) {
	var items []models.MenuItem
	report, err := s.readLines(KindMenu, func(line string) error {
		item, err := DecodeMenuItem(line)
		if err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	return items, report, err
}

// LoadTables reads the tables file.
func (s *FileStore) LoadTables() ([]models.Table, LoadReport, error) {
	var tables []models.Table
	report, err := s.readLines(KindTables, func(line string) error {
		table, err := DecodeTable(line)
		if err != nil {
			return err
		}
		tables = append(tables, table)
		return nil
	})
	return tables, report, err
}

// LoadOrders reads the orders file, resolving line items through menu.
func (s *FileStore) LoadOrders(menu func(id int) (models.MenuItem, bool)) ([]models.Order, LoadReport, error) {
	var orders []models.Order
	report, err := s.readLines(KindOrders, func(line string) error {
		order, err := DecodeOrder(line, menu)
		if err != nil {
			return err
		}
		orders = append(orders, order)
		return nil
	})
	return orders, report, err
}

// SaveMenu overwrites the menu file with items.
func (s *FileStore) SaveMenu(items []models.MenuItem) error {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, EncodeMenuItem(item))
	}
	return s.writeLines(KindMenu, lines)
}

// SaveTables overwrites the tables file.
func (s *FileStore) SaveTables(tables []models.Table) error {
	lines := make([]string, 0, len(tables))
	for _, table := range tables {
		lines = append(lines, EncodeTable(table))
	}
	return s.writeLines(KindTables, lines)
}

// SaveOrders overwrites the orders file.
func (s *FileStore) SaveOrders(orders []models.Order) error {
	lines := make([]string, 0, len(orders))
	for _, order := range orders {
		lines = append(lines, EncodeOrder(order))
	}
	return s.writeLines(KindOrders, lines)
}

// Backup copies every existing live file to <kind>_backup_<timestamp>.txt in
// the backup directory. Missing sources are skipped. It returns the written
// backup paths.
func (s *FileStore) Backup() ([]string, error) {
	stamp := s.now().Format(BackupTimeLayout)

	var (
		written []string
		errs    error
	)
	for _, kind := range []string{KindMenu, KindTables, KindOrders} {
		target := filepath.Join(s.paths.BackupDir, fmt.Sprintf("%s_backup_%s.txt", kind, stamp))
		ok, err := s.copyFile(kind, target)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if ok {
			written = append(written, target)
		}
	}
	return written, errs
}

func (s *FileStore) path(kind string) string {
	switch kind {
	case KindMenu:
		return s.paths.Menu
	case KindTables:
		return s.paths.Tables
	default:
		return s.paths.Orders
	}
}

func (s *FileStore) readLines(kind string, decode func(line string) error) (LoadReport, error) {
	report := LoadReport{Kind: kind}

	file, err := os.Open(s.path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		report.Missing = true
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("failed to open %s file: %w", kind, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := decode(line); err != nil {
			report.Skipped++
			continue
		}
		report.Loaded++
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("failed to read %s file: %w", kind, err)
	}
	return report, nil
}

func (s *FileStore) writeLines(kind string, lines []string) error {
	lock := s.locks[kind]
	lock.Lock()
	defer lock.Unlock()

	target := s.path(kind)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: create directory for %s: %v", models.ErrPersistence, kind, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp file for %s: %v", models.ErrPersistence, kind, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", models.ErrPersistence, kind, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", models.ErrPersistence, kind, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("%w: replace %s: %v", models.ErrPersistence, kind, err)
	}
	return nil
}

func (s *FileStore) copyFile(kind, target string) (bool, error) {
	lock := s.locks[kind]
	lock.Lock()
	defer lock.Unlock()

	src, err := os.Open(s.path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: backup %s: %v", models.ErrPersistence, kind, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, fmt.Errorf("%w: backup %s: %v", models.ErrPersistence, kind, err)
	}
	dst, err := os.Create(target)
	if err != nil {
		return false, fmt.Errorf("%w: backup %s: %v", models.ErrPersistence, kind, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return false, fmt.Errorf("%w: backup %s: %v", models.ErrPersistence, kind, err)
	}
	if err := dst.Close(); err != nil {
		return false, fmt.Errorf("%w: backup %s: %v", models.ErrPersistence, kind, err)
	}
	return true, nil
}
