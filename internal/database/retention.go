package database

import (
	"context"
	"fmt"
	"log"
	"time"
)

var eventTables = []string{"customer_events", "vehicle_events", "queue_events", "staff_events"}

// Cleanup drops rows past their retention horizon. Event and KPI rows
// share one horizon, alerts keep a longer one.
func (d *Database) Cleanup(ctx context.Context, retentionDays, alertRetentionDays int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	alertCutoff := time.Now().AddDate(0, 0, -alertRetentionDays)

	for _, table := range eventTables {
		res, err := d.DB.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE timestamp < $1", table), cutoff)
		if err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Printf("[database] cleanup: removed %d rows from %s", n, table)
		}
	}

	res, err := d.DB.ExecContext(ctx, "DELETE FROM kpi_records WHERE timestamp < $1", cutoff)
	if err != nil {
		return fmt.Errorf("cleanup kpi_records: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[database] cleanup: removed %d rows from kpi_records", n)
	}

	res, err = d.DB.ExecContext(ctx, "DELETE FROM alerts WHERE timestamp < $1", alertCutoff)
	if err != nil {
		return fmt.Errorf("cleanup alerts: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[database] cleanup: removed %d rows from alerts", n)
	}

	return nil
}

// Stats reports the row count of every table, keyed by table name.
func (d *Database) Stats(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tables := append([]string{"kpi_records", "alerts"}, eventTables...)
	stats := make(map[string]int64, len(tables))
	for _, table := range tables {
		var n int64
		err := d.DB.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}
