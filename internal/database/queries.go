package database

// Migration bookkeeping
const (
	CreateMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	SelectMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	RecordMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)

// Snapshot mirror queries. Rows are upserted, never deleted.
const (
	UpsertMenuItemSQL = `
		INSERT INTO menu_items (id, name, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			updated_at = NOW()`

	UpsertTableSQL = `
		INSERT INTO dining_tables (id, occupied)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			occupied = EXCLUDED.occupied,
			updated_at = NOW()`

	UpsertOrderSQL = `
		INSERT INTO orders (id, table_id, completed, total)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			table_id = EXCLUDED.table_id,
			completed = EXCLUDED.completed,
			total = EXCLUDED.total,
			updated_at = NOW()`

	DeleteOrderLinesSQL = `DELETE FROM order_lines WHERE order_id = $1`

	InsertOrderLineSQL = `
		INSERT INTO order_lines (order_id, position, menu_item_id, quantity)
		VALUES ($1, $2, $3, $4)`
)

// Worker queries
const (
	UpsertWorkerSQL = `
		INSERT INTO workers (name, status)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET
			status = EXCLUDED.status,
			last_seen = NOW()`
)
