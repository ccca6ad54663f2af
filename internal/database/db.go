// Package database is the persistence boundary: append-only event tables,
// periodic KPI summary rows and the queries behind retrospective reads.
// Write serialization is the driver's and the server's problem, not ours.
package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// queryTimeout bounds reads so a query never parks forever behind writers.
const queryTimeout = 10 * time.Second

// Database wraps the connection pool.
type Database struct {
	DB *sql.DB
}

// New opens and verifies the connection.
func New(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}

// Init creates the required tables and indexes if they don't exist.
func (d *Database) Init() error {
	createTables := `
	CREATE TABLE IF NOT EXISTS kpi_records (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
		customer_entries INTEGER NOT NULL DEFAULT 0,
		customer_exits INTEGER NOT NULL DEFAULT 0,
		current_occupancy INTEGER NOT NULL DEFAULT 0,
		vehicle_count INTEGER NOT NULL DEFAULT 0,
		queue_length INTEGER NOT NULL DEFAULT 0,
		staff_count INTEGER NOT NULL DEFAULT 0,
		service_efficiency DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS customer_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		camera_id TEXT,
		zone_name TEXT,
		confidence DOUBLE PRECISION,
		metadata JSONB,
		timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS vehicle_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		camera_id TEXT,
		zone_name TEXT,
		confidence DOUBLE PRECISION,
		metadata JSONB,
		timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS queue_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		camera_id TEXT,
		zone_name TEXT,
		confidence DOUBLE PRECISION,
		metadata JSONB,
		timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS staff_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		camera_id TEXT,
		zone_name TEXT,
		confidence DOUBLE PRECISION,
		metadata JSONB,
		timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		alert_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		resolved_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_kpi_timestamp ON kpi_records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_customer_timestamp ON customer_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_vehicle_timestamp ON vehicle_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_queue_timestamp ON queue_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_staff_timestamp ON staff_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);
	`

	_, err := d.DB.Exec(createTables)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.DB.Close()
}
