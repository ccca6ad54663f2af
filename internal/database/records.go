package database

import (
	"context"
	"fmt"
	"time"

	"github.com/visionops/restaurant-analytics/internal/models"
)

// WriteSummary appends one KPI summary row. Fire-and-forget: the caller
// logs a failure and moves on.
func (d *Database) WriteSummary(rec models.KPIRecord) error {
	_, err := d.DB.Exec(`
		INSERT INTO kpi_records (
			timestamp, customer_entries, customer_exits, current_occupancy,
			vehicle_count, queue_length, staff_count, service_efficiency
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.Timestamp,
		rec.CustomerEntries,
		rec.CustomerExits,
		rec.CurrentOccupancy,
		rec.VehicleCount,
		rec.QueueLength,
		rec.StaffCount,
		rec.ServiceEfficiency,
	)
	return err
}

// QuerySummaries returns KPI records in [start, end], newest first.
// A limit of 0 means no limit.
func (d *Database) QuerySummaries(ctx context.Context, start, end time.Time, limit int) ([]models.KPIRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT timestamp, customer_entries, customer_exits, current_occupancy,
		       vehicle_count, queue_length, staff_count, service_efficiency
		FROM kpi_records
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp DESC`
	args := []any{start, end}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query kpi records: %w", err)
	}
	defer rows.Close()

	var records []models.KPIRecord
	for rows.Next() {
		var r models.KPIRecord
		err := rows.Scan(
			&r.Timestamp,
			&r.CustomerEntries,
			&r.CustomerExits,
			&r.CurrentOccupancy,
			&r.VehicleCount,
			&r.QueueLength,
			&r.StaffCount,
			&r.ServiceEfficiency,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// QueryHourly aggregates one day of events per hour. For customer events
// the entry/exit split is meaningful; for other kinds only Entries is set,
// holding the plain row count.
func (d *Database) QueryHourly(ctx context.Context, kind models.EventKind, date time.Time) ([]models.HourlyStat, error) {
	table, err := eventTable(kind)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	query := fmt.Sprintf(`
		SELECT EXTRACT(HOUR FROM timestamp)::int AS hour,
		       COUNT(*) FILTER (WHERE event_type = 'entry') AS entries,
		       COUNT(*) FILTER (WHERE event_type = 'exit') AS exits,
		       COUNT(*) AS total
		FROM %s
		WHERE timestamp >= $1 AND timestamp < $2
		GROUP BY hour
		ORDER BY hour`, table)

	rows, err := d.DB.QueryContext(ctx, query, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("query hourly %s: %w", table, err)
	}
	defer rows.Close()

	var stats []models.HourlyStat
	for rows.Next() {
		var s models.HourlyStat
		var total int
		if err := rows.Scan(&s.Hour, &s.Entries, &s.Exits, &total); err != nil {
			return nil, err
		}
		if kind != models.EventCustomer {
			s.Entries, s.Exits = total, 0
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}
