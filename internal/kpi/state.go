package kpi

import (
	"math"
	"time"

	"github.com/visionops/restaurant-analytics/internal/models"
)

// CustomerFlowKPIs tracks gate traffic.
type CustomerFlowKPIs struct {
	TotalEntries     int     `json:"total_entries"`
	TotalExits       int     `json:"total_exits"`
	CurrentOccupancy int     `json:"current_occupancy"`
	HourlyEntries    [24]int `json:"hourly_entries"`
	PeakHour         int     `json:"peak_hour"` // -1 until any entry is seen
}

// VehicleKPIs tracks the parking view.
type VehicleKPIs struct {
	CurrentVehicles int     `json:"current_vehicles"`
	TotalVehicles   int     `json:"total_vehicles"`
	HourlyArrivals  [24]int `json:"hourly_arrivals"`
	PeakHour        int     `json:"peak_hour"` // -1 until any arrival is seen
}

// QueueKPIs tracks the service queue.
type QueueKPIs struct {
	CurrentLength int     `json:"current_length"`
	MaxLength     int     `json:"max_length"` // monotone for the process lifetime
	AverageLength float64 `json:"average_length"`
}

// StaffKPIs tracks the kitchen work area.
type StaffKPIs struct {
	CurrentCount   int  `json:"current_count"`
	HandWashEvents int  `json:"hand_wash_events"`
	HandWashActive bool `json:"hand_wash_active"`
}

// OperationalKPIs carries the cross-family derived metrics.
type OperationalKPIs struct {
	ServiceEfficiency float64        `json:"service_efficiency"`
	PeakHours         []int          `json:"peak_hours"`
	Alerts            []models.Alert `json:"alerts"`
}

// Snapshot is a copy-on-read view of the KPI state. Callers own it; nothing
// in it aliases live aggregator state.
type Snapshot struct {
	UpdatedAt    time.Time        `json:"updated_at"`
	CustomerFlow CustomerFlowKPIs `json:"customer_flow"`
	Vehicles     VehicleKPIs      `json:"vehicle_metrics"`
	Queue        QueueKPIs        `json:"queue_analytics"`
	Staff        StaffKPIs        `json:"staff_metrics"`
	Operational  OperationalKPIs  `json:"operational_kpis"`
}

// state is the live KPI aggregate. It is owned exclusively by the
// aggregator goroutine; everything leaving it is copied.
type state struct {
	flow     CustomerFlowKPIs
	vehicles VehicleKPIs
	queue    QueueKPIs
	staff    StaffKPIs
	ops      OperationalKPIs

	queueHistory *Ring

	histQueue    *SampleRing
	histStaff    *SampleRing
	histVehicles *SampleRing
	histEntries  *SampleRing

	// Delta tracking for entries/arrivals. The first sample of each role
	// only establishes the baseline.
	lastGateCount    int
	gateSeen         bool
	lastVehicleCount int
	vehiclesSeen     bool

	// Rising-edge detection for hand-wash events.
	washActive bool

	// Hours in which at least one aggregation cycle observed the gate.
	// The peak-hours mean runs over these, not over all 24 buckets.
	hoursSeen [24]bool

	updatedAt time.Time
}

func newState(historySize int) *state {
	return &state{
		flow:         CustomerFlowKPIs{PeakHour: -1},
		vehicles:     VehicleKPIs{PeakHour: -1},
		queueHistory: NewRing(historySize),
		// A day of 5s-grade samples for the minute-level series.
		histQueue:    NewSampleRing(1440),
		histStaff:    NewSampleRing(1440),
		histVehicles: NewSampleRing(1440),
		histEntries:  NewSampleRing(24),
	}
}

// snapshot deep-copies the externally visible state.
func (s *state) snapshot() Snapshot {
	snap := Snapshot{
		UpdatedAt:    s.updatedAt,
		CustomerFlow: s.flow,
		Vehicles:     s.vehicles,
		Queue:        s.queue,
		Staff:        s.staff,
	}
	snap.Operational.ServiceEfficiency = s.ops.ServiceEfficiency
	snap.Operational.PeakHours = append([]int(nil), s.ops.PeakHours...)
	snap.Operational.Alerts = append([]models.Alert(nil), s.ops.Alerts...)
	return snap
}

// record builds the summary row flushed to the persistence store.
func (s *state) record(now time.Time) models.KPIRecord {
	return models.KPIRecord{
		Timestamp:         now,
		CustomerEntries:   s.flow.TotalEntries,
		CustomerExits:     s.flow.TotalExits,
		CurrentOccupancy:  s.flow.CurrentOccupancy,
		VehicleCount:      s.vehicles.CurrentVehicles,
		QueueLength:       s.queue.CurrentLength,
		StaffCount:        s.staff.CurrentCount,
		ServiceEfficiency: s.ops.ServiceEfficiency,
	}
}

// peakHour returns the busiest hour of a histogram: the bucket with the
// maximum count, lowest hour on ties, or -1 for an all-zero histogram.
func peakHour(hist [24]int) int {
	best, bestCount := -1, 0
	for h := 0; h < 24; h++ {
		if hist[h] > bestCount {
			best, bestCount = h, hist[h]
		}
	}
	return best
}

// peakHours returns the hours whose counts exceed factor times the mean
// count over the observed hours. Recomputed fresh each cycle.
func peakHours(hist [24]int, seen [24]bool, factor float64) []int {
	total, n := 0, 0
	for h := 0; h < 24; h++ {
		if seen[h] {
			total += hist[h]
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := float64(total) / float64(n)

	var hours []int
	for h := 0; h < 24; h++ {
		if seen[h] && float64(hist[h]) > mean*factor {
			hours = append(hours, h)
		}
	}
	return hours
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
