package db

import (
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the Postgres migrations for the SQLite driver. Enum
// columns become TEXT with CHECK constraints and uuids are stored as text.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL CHECK (role IN ('employee','admin')),
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		push_token TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS departments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT,
		unit TEXT NOT NULL DEFAULT '',
		available INTEGER NOT NULL DEFAULT 0 CHECK (available >= 0),
		total_stock INTEGER NOT NULL DEFAULT 0,
		reserved INTEGER NOT NULL DEFAULT 0,
		min_quantity INTEGER NOT NULL DEFAULT 0,
		last_restocked_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CHECK (available <= total_stock)
	)`,
	`CREATE TABLE IF NOT EXISTS supply_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		item_id TEXT NOT NULL,
		item_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		notes TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low','medium','high')),
		status TEXT NOT NULL CHECK (status IN ('pending','approved','fulfilled','rejected','cancelled')),
		group_id TEXT,
		admin_notes TEXT,
		approved_at DATETIME,
		approved_by TEXT,
		rejected_at DATETIME,
		rejected_by TEXT,
		fulfilled_at DATETIME,
		fulfilled_by TEXT,
		cancelled_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_supply_requests_employee_item ON supply_requests (employee_id, item_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS ix_supply_requests_group ON supply_requests (group_id)`,
	`CREATE TABLE IF NOT EXISTS item_limitations (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		item_name TEXT NOT NULL,
		position TEXT NOT NULL,
		monthly_limit INTEGER NOT NULL CHECK (monthly_limit >= 1),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CONSTRAINT ux_item_limitations_item_position UNIQUE (item_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS monthly_usage (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		item_name TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		quantity INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CONSTRAINT ux_monthly_usage_user_item_period UNIQUE (user_id, item_id, year, month)
	)`,
	`CREATE TABLE IF NOT EXISTS usage_records (
		id TEXT PRIMARY KEY,
		idempotency_key TEXT NOT NULL UNIQUE,
		request_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		message_key TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		request_id TEXT,
		request_group_id TEXT,
		item_id TEXT,
		new_item_request_id TEXT,
		count INTEGER NOT NULL DEFAULT 1,
		read_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_notifications_user_created ON notifications (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS new_item_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		item_name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL CHECK (status IN ('pending','approved','rejected')),
		admin_notes TEXT,
		decided_by TEXT,
		decided_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}

// ApplySQLiteSchema creates every table when missing.
func ApplySQLiteSchema(conn *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("applying sqlite schema: %w", err)
		}
	}
	return nil
}
