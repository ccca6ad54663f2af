package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/visionops/restaurant-analytics/internal/models"
)

func eventTable(kind models.EventKind) (string, error) {
	switch kind {
	case models.EventCustomer:
		return "customer_events", nil
	case models.EventVehicle:
		return "vehicle_events", nil
	case models.EventQueue:
		return "queue_events", nil
	case models.EventStaff:
		return "staff_events", nil
	default:
		return "", fmt.Errorf("unknown event kind %q", kind)
	}
}

// WriteEvent appends one row to the event table selected by ev.Kind.
// An empty ID gets a fresh UUID so callers never have to care.
func (d *Database) WriteEvent(ev models.Event) error {
	table, err := eventTable(ev.Kind)
	if err != nil {
		return err
	}

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	var metadata []byte
	if ev.Metadata != nil {
		metadata, err = json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, event_type, count, camera_id, zone_name, confidence, metadata, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, table)

	_, err = d.DB.Exec(query,
		ev.ID, ev.Type, ev.Count, ev.CameraID, ev.ZoneName, ev.Confidence, metadata, ev.Timestamp)
	return err
}

// WriteAlert appends one alert row.
func (d *Database) WriteAlert(a models.Alert) error {
	_, err := d.DB.Exec(`
		INSERT INTO alerts (id, alert_type, severity, message, timestamp)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), a.Type, a.Severity, a.Message, a.Timestamp)
	return err
}

// QueryRange returns events of one kind in [start, end], oldest first.
func (d *Database) QueryRange(ctx context.Context, kind models.EventKind, start, end time.Time) ([]models.Event, error) {
	table, err := eventTable(kind)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, event_type, count, camera_id, zone_name, confidence, metadata, timestamp
		FROM %s
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp ASC`, table)

	rows, err := d.DB.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		var metadata []byte
		err := rows.Scan(&ev.ID, &ev.Type, &ev.Count, &ev.CameraID, &ev.ZoneName,
			&ev.Confidence, &metadata, &ev.Timestamp)
		if err != nil {
			return nil, err
		}
		ev.Kind = kind
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// RecentAlerts returns alerts from the last N hours, newest first.
func (d *Database) RecentAlerts(ctx context.Context, hours int, unresolvedOnly bool) ([]models.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT alert_type, severity, message, timestamp
		FROM alerts
		WHERE timestamp >= $1`
	if unresolvedOnly {
		query += " AND resolved = FALSE"
	}
	query += " ORDER BY timestamp DESC"

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	rows, err := d.DB.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.Type, &a.Severity, &a.Message, &a.Timestamp); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}
