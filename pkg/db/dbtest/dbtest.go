// Package dbtest opens throwaway SQLite databases carrying the same tables as
// the goose migrations, for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		wallet NUMERIC NOT NULL DEFAULT 0 CHECK (wallet >= 0),
		seller_level TEXT NOT NULL DEFAULT 'new',
		reputation_score NUMERIC NOT NULL DEFAULT 0,
		viewed_categories TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE services (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		title TEXT NOT NULL,
		category TEXT,
		price NUMERIC NOT NULL,
		packages TEXT,
		approval_status TEXT NOT NULL DEFAULT 'pending',
		rating NUMERIC NOT NULL DEFAULT 0,
		rating_count INTEGER NOT NULL DEFAULT 0,
		purchases INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE reviews (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT,
		created_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_reviews_user_service ON reviews (user_id, service_id)`,
	`CREATE TABLE coupons (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		discount_type TEXT NOT NULL,
		discount_value NUMERIC NOT NULL,
		expiry_date DATETIME NOT NULL,
		max_usage INTEGER NOT NULL DEFAULT 1,
		used_count INTEGER NOT NULL DEFAULT 0 CHECK (used_count <= max_usage),
		is_active NUMERIC NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		package_type TEXT NOT NULL DEFAULT 'single',
		status TEXT NOT NULL DEFAULT 'pending',
		payment_status TEXT NOT NULL,
		escrow_status TEXT NOT NULL DEFAULT 'held',
		escrow_amount NUMERIC NOT NULL,
		commission_amount NUMERIC NOT NULL,
		platform_fee_percent NUMERIC NOT NULL,
		coupon_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE milestones (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		title TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE wallet_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount NUMERIC NOT NULL CHECK (amount >= 0),
		reason TEXT NOT NULL,
		related_order_id TEXT,
		affects_balance NUMERIC NOT NULL DEFAULT 1,
		meta TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE disputes (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		raised_by_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		proof_url TEXT,
		status TEXT NOT NULL DEFAULT 'open',
		admin_decision TEXT NOT NULL DEFAULT 'none',
		admin_notes TEXT,
		resolved_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_disputes_active_order ON disputes (order_id) WHERE status IN ('open', 'under_review')`,
	`CREATE TABLE withdrawal_requests (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		amount NUMERIC NOT NULL CHECK (amount > 0),
		status TEXT NOT NULL DEFAULT 'pending',
		note TEXT,
		requested_at DATETIME NOT NULL,
		processed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_withdrawal_requests_pending_seller ON withdrawal_requests (seller_id) WHERE status = 'pending'`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		event_id TEXT UNIQUE,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		meta TEXT,
		read_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE invoice_records (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE,
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		invoice_number TEXT NOT NULL UNIQUE,
		subtotal NUMERIC NOT NULL,
		commission NUMERIC NOT NULL DEFAULT 0,
		total_amount NUMERIC NOT NULL,
		issued_at DATETIME NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a fresh in-memory database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}
