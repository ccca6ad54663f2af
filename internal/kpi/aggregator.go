// Package kpi turns the latest per-role detection snapshots into rolling
// operational metrics, alerts and periodic summary records.
package kpi

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/visionops/restaurant-analytics/internal/metrics"
	"github.com/visionops/restaurant-analytics/internal/models"
)

// maxRetainedAlerts bounds the in-memory alert list; oldest drop first.
const maxRetainedAlerts = 100

// Historical metric names accepted by Historical.
const (
	MetricQueueLengths  = "queue_lengths"
	MetricStaffCounts   = "staff_counts"
	MetricVehicleCounts = "vehicle_counts"
	MetricEntriesHourly = "entries_per_hour"
)

// SnapshotReader is the detection-store side the aggregator consumes.
type SnapshotReader interface {
	ReadAll() map[models.Role]models.Snapshot
}

// Recorder is the persistence boundary: fire-and-forget appends. A failed
// write is logged and skipped; the in-memory state is never rolled back.
type Recorder interface {
	WriteSummary(rec models.KPIRecord) error
	WriteAlert(a models.Alert) error
	WriteEvent(e models.Event) error
}

// AlertPublisher pushes alerts to downstream consumers (Kafka). Optional.
type AlertPublisher interface {
	SendAlert(a models.Alert) error
}

// SnapshotCacher keeps the latest KPI snapshot somewhere cheap to read
// (Redis). Optional.
type SnapshotCacher interface {
	StoreSnapshot(ctx context.Context, snap Snapshot) error
}

// Config tunes the aggregation cycle.
type Config struct {
	UpdateInterval time.Duration
	SaveInterval   time.Duration
	HistorySize    int
	MaxQueueLength int
	MinStaffCount  int
	PeakHourFactor float64
}

// Aggregator owns the KPI state. It has two lifecycle states, stopped and
// running; Stop is observed within one tick, and a restart resumes with
// the accumulated state intact.
type Aggregator struct {
	cfg      Config
	source   SnapshotReader
	recorder Recorder
	alertPub AlertPublisher
	cache    SnapshotCacher

	mu      sync.Mutex
	st      *state
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg Config, source SnapshotReader, recorder Recorder, alertPub AlertPublisher, cache SnapshotCacher) *Aggregator {
	if cfg.PeakHourFactor == 0 {
		cfg.PeakHourFactor = 1.5
	}
	return &Aggregator{
		cfg:      cfg,
		source:   source,
		recorder: recorder,
		alertPub: alertPub,
		cache:    cache,
		st:       newState(cfg.HistorySize),
	}
}

// Start begins the timer loop. Calling Start on a running aggregator is a
// no-op.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	a.running = true
	go a.loop(ctx, a.done)
}

// Stop halts the loop and waits for the current tick to finish. Idempotent;
// the KPI state is kept for a later Start.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	cancel, done := a.cancel, a.done
	a.running = false
	a.mu.Unlock()

	cancel()
	<-done
}

func (a *Aggregator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	log.Printf("Aggregator: started (tick %v, flush %v)", a.cfg.UpdateInterval, a.cfg.SaveInterval)

	tick := time.NewTicker(a.cfg.UpdateInterval)
	defer tick.Stop()
	flush := time.NewTicker(a.cfg.SaveInterval)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Aggregator: stopped")
			return
		case now := <-tick.C:
			a.RunCycle(now)
		case now := <-flush.C:
			a.Flush(ctx, now)
		}
	}
}

// RunCycle executes one aggregation tick: read the latest snapshots, fold
// them into the state, evaluate alert rules and publish what came out.
// Errors along the way are contained here; the next tick always runs.
func (a *Aggregator) RunCycle(now time.Time) {
	snaps := a.source.ReadAll()

	a.mu.Lock()
	alerts, events := a.st.update(snaps, now, a.cfg)
	queueLen := a.st.queue.CurrentLength
	staff := a.st.staff.CurrentCount
	vehicles := a.st.vehicles.CurrentVehicles
	occupancy := a.st.flow.CurrentOccupancy
	efficiency := a.st.ops.ServiceEfficiency
	a.mu.Unlock()

	metrics.CurrentQueueLength.Set(float64(queueLen))
	metrics.CurrentStaffCount.Set(float64(staff))
	metrics.CurrentVehicles.Set(float64(vehicles))
	metrics.CurrentOccupancy.Set(float64(occupancy))
	metrics.ServiceEfficiency.Set(efficiency)

	for _, alert := range alerts {
		metrics.AlertsGenerated.WithLabelValues(alert.Type, string(alert.Severity)).Inc()
		log.Printf("Aggregator: ALERT [%s] %s", alert.Severity, alert.Message)

		if a.recorder != nil {
			if err := a.recorder.WriteAlert(alert); err != nil {
				log.Printf("Aggregator: alert write failed: %v", err)
			}
		}
		if a.alertPub != nil {
			if err := a.alertPub.SendAlert(alert); err != nil {
				log.Printf("Aggregator: alert publish failed: %v", err)
			}
		}
	}

	for _, ev := range events {
		if a.recorder == nil {
			break
		}
		if err := a.recorder.WriteEvent(ev); err != nil {
			log.Printf("Aggregator: event write failed: %v", err)
		}
	}
}

// Flush writes one summary record to the persistence store and refreshes
// the cached snapshot. A failed write leaves the in-memory state alone:
// the durable copy is momentarily stale, nothing else.
func (a *Aggregator) Flush(ctx context.Context, now time.Time) {
	a.mu.Lock()
	rec := a.st.record(now)
	snap := a.st.snapshot()
	a.mu.Unlock()

	if a.recorder != nil {
		if err := a.recorder.WriteSummary(rec); err != nil {
			metrics.KPIFlushFailures.Inc()
			log.Printf("Aggregator: summary flush failed: %v", err)
		}
		err := a.recorder.WriteEvent(models.Event{
			Kind:      models.EventQueue,
			Type:      "queue_sample",
			Count:     rec.QueueLength,
			Timestamp: now,
		})
		if err != nil {
			log.Printf("Aggregator: queue event write failed: %v", err)
		}
	}

	if a.cache != nil {
		if err := a.cache.StoreSnapshot(ctx, snap); err != nil {
			log.Printf("Aggregator: snapshot cache write failed: %v", err)
		}
	}
}

// CurrentKPIs returns a copy of the KPI state. Non-blocking, safe from any
// goroutine.
func (a *Aggregator) CurrentKPIs() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.st.snapshot()
}

// Historical returns the retained samples of a metric newer than the given
// horizon, oldest first. Unknown metrics yield an empty slice.
func (a *Aggregator) Historical(metric string, hours int) []TimedSample {
	a.mu.Lock()
	var samples []TimedSample
	switch metric {
	case MetricQueueLengths:
		samples = a.st.histQueue.Values()
	case MetricStaffCounts:
		samples = a.st.histStaff.Values()
	case MetricVehicleCounts:
		samples = a.st.histVehicles.Values()
	case MetricEntriesHourly:
		samples = a.st.histEntries.Values()
	}
	a.mu.Unlock()

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	return lo.Filter(samples, func(s TimedSample, _ int) bool {
		return !s.At.Before(cutoff)
	})
}

// update folds one set of snapshots into the state and returns the alerts
// and events generated this cycle. Runs under the aggregator lock.
func (s *state) update(snaps map[models.Role]models.Snapshot, now time.Time, cfg Config) ([]models.Alert, []models.Event) {
	hour := now.Hour()
	var events []models.Event

	if snap, ok := snaps[models.RolePerson]; ok {
		s.hoursSeen[hour] = true
		if s.gateSeen {
			// Positive deltas are treated as entries, negative as
			// exits. Crude, but all a single gate count can tell us.
			delta := snap.Count - s.lastGateCount
			if delta > 0 {
				s.flow.TotalEntries += delta
				s.flow.HourlyEntries[hour] += delta
			} else if delta < 0 {
				s.flow.TotalExits -= delta
			}
		}
		s.gateSeen = true
		s.lastGateCount = snap.Count
		s.flow.CurrentOccupancy = snap.Count
		s.flow.PeakHour = peakHour(s.flow.HourlyEntries)
		s.histEntries.Push(now, float64(s.flow.HourlyEntries[hour]))
	}

	if snap, ok := snaps[models.RoleVehicle]; ok {
		if s.vehiclesSeen {
			delta := snap.Count - s.lastVehicleCount
			if delta > 0 {
				s.vehicles.TotalVehicles += delta
				s.vehicles.HourlyArrivals[hour] += delta
			}
		}
		s.vehiclesSeen = true
		s.lastVehicleCount = snap.Count
		s.vehicles.CurrentVehicles = snap.Count
		s.vehicles.PeakHour = peakHour(s.vehicles.HourlyArrivals)
		s.histVehicles.Push(now, float64(snap.Count))
	}

	if snap, ok := snaps[models.RoleQueue]; ok {
		s.queue.CurrentLength = snap.Count
		if snap.Count > s.queue.MaxLength {
			s.queue.MaxLength = snap.Count
		}
		s.queueHistory.Push(float64(snap.Count))
		s.queue.AverageLength = round2(s.queueHistory.Mean())
		s.histQueue.Push(now, float64(snap.Count))
	}

	if snap, ok := snaps[models.RoleStaff]; ok {
		s.staff.CurrentCount = snap.Count
		if snap.HandWash && !s.washActive {
			s.staff.HandWashEvents++
			events = append(events, models.Event{
				Kind:      models.EventStaff,
				Type:      "hand_washing",
				Count:     snap.Count,
				ZoneName:  "wash_station",
				Timestamp: now,
			})
		}
		s.washActive = snap.HandWash
		s.staff.HandWashActive = snap.HandWash
		s.histStaff.Push(now, float64(snap.Count))
	}

	// Derived metrics. Efficiency keeps its previous value through a
	// staffing gap; dividing by zero here would be worse than stale.
	if s.staff.CurrentCount > 0 {
		s.ops.ServiceEfficiency = round2(s.queue.AverageLength / float64(s.staff.CurrentCount))
	}
	s.ops.PeakHours = peakHours(s.flow.HourlyEntries, s.hoursSeen, cfg.PeakHourFactor)

	// Alert rules, each independent, re-fired every cycle the condition
	// holds. The repetition is a deliberate liveness signal.
	alerts := s.evaluateAlerts(now, cfg)

	s.updatedAt = now
	return alerts, events
}

func (s *state) evaluateAlerts(now time.Time, cfg Config) []models.Alert {
	var alerts []models.Alert

	if s.queue.CurrentLength > cfg.MaxQueueLength {
		alerts = append(alerts, models.Alert{
			Type: "queue_alert",
			Message: fmt.Sprintf("Queue length (%d) exceeds threshold (%d)",
				s.queue.CurrentLength, cfg.MaxQueueLength),
			Severity:  models.SeverityHigh,
			Timestamp: now,
		})
	}

	if s.staff.CurrentCount < cfg.MinStaffCount {
		alerts = append(alerts, models.Alert{
			Type: "staff_alert",
			Message: fmt.Sprintf("Staff count (%d) below minimum (%d)",
				s.staff.CurrentCount, cfg.MinStaffCount),
			Severity:  models.SeverityMedium,
			Timestamp: now,
		})
	}

	s.ops.Alerts = append(s.ops.Alerts, alerts...)
	if n := len(s.ops.Alerts); n > maxRetainedAlerts {
		s.ops.Alerts = append([]models.Alert(nil), s.ops.Alerts[n-maxRetainedAlerts:]...)
	}
	return alerts
}
