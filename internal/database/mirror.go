package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"contactless-ordering/internal/models"
)

// Mirror copies registry snapshots into Postgres. Each save runs in one
// transaction; the last writer wins.
type Mirror struct {
	db *DB
}

// NewMirror creates a mirror over an open database
func NewMirror(db *DB) *Mirror {
	return &Mirror{db: db}
}

// SaveMenu upserts every menu item
func (m *Mirror) SaveMenu(ctx context.Context, items []models.MenuItem) error {
	return m.db.InTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, item := range items {
			batch.Queue(UpsertMenuItemSQL, item.ID, item.Name, item.Price)
		}
		return sendBatch(ctx, tx, batch, "menu")
	})
}

// SaveTables upserts every table
func (m *Mirror) SaveTables(ctx context.Context, tables []models.Table) error {
	return m.db.InTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, table := range tables {
			batch.Queue(UpsertTableSQL, table.ID, table.Occupied)
		}
		return sendBatch(ctx, tx, batch, "tables")
	})
}

// SaveOrders upserts every order and replaces its lines
func (m *Mirror) SaveOrders(ctx context.Context, orders []models.Order) error {
	return m.db.InTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, order := range orders {
			batch.Queue(UpsertOrderSQL, order.ID, order.TableID, order.Completed, order.Total())
			batch.Queue(DeleteOrderLinesSQL, order.ID)
			for i, line := range order.Lines {
				batch.Queue(InsertOrderLineSQL, order.ID, i+1, line.Item.ID, line.Quantity)
			}
		}
		return sendBatch(ctx, tx, batch, "orders")
	})
}

// RecordWorker stores the latest status of a worker
func (m *Mirror) RecordWorker(ctx context.Context, name string, status models.WorkerStatus) error {
	if err := m.db.Exec(ctx, UpsertWorkerSQL, name, string(status)); err != nil {
		return fmt.Errorf("failed to record worker %s: %w", name, err)
	}
	return nil
}

func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, kind string) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to mirror %s: %w", kind, err)
	}
	return nil
}
