package kpi

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/visionops/restaurant-analytics/internal/models"
)

type fakeReader struct {
	mu    sync.Mutex
	snaps map[models.Role]models.Snapshot
}

func (f *fakeReader) set(role models.Role, count int, handWash bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snaps == nil {
		f.snaps = make(map[models.Role]models.Snapshot)
	}
	f.snaps[role] = models.Snapshot{Role: role, Count: count, HandWash: handWash, CapturedAt: time.Now()}
}

func (f *fakeReader) clear(role models.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snaps, role)
}

func (f *fakeReader) ReadAll() map[models.Role]models.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[models.Role]models.Snapshot, len(f.snaps))
	for k, v := range f.snaps {
		out[k] = v
	}
	return out
}

type fakeRecorder struct {
	mu        sync.Mutex
	summaries []models.KPIRecord
	alerts    []models.Alert
	events    []models.Event
	failAll   bool
}

func (f *fakeRecorder) WriteSummary(rec models.KPIRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("database down")
	}
	f.summaries = append(f.summaries, rec)
	return nil
}

func (f *fakeRecorder) WriteAlert(a models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("database down")
	}
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeRecorder) WriteEvent(e models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("database down")
	}
	f.events = append(f.events, e)
	return nil
}

func testConfig() Config {
	return Config{
		UpdateInterval: 5 * time.Millisecond,
		SaveInterval:   50 * time.Millisecond,
		HistorySize:    100,
		MaxQueueLength: 10,
		MinStaffCount:  2,
		PeakHourFactor: 1.5,
	}
}

func at(hour int) time.Time {
	return time.Date(2025, 6, 1, hour, 30, 0, 0, time.UTC)
}

func TestQueueAverageOverHistoryRing(t *testing.T) {
	cfg := testConfig()
	cfg.HistorySize = 3
	reader := &fakeReader{}
	agg := New(cfg, reader, nil, nil, nil)

	// Feed [2, 4, 6, 8] with ring capacity 3: the 2 falls out, average
	// is mean(4, 6, 8).
	for _, n := range []int{2, 4, 6, 8} {
		reader.set(models.RoleQueue, n, false)
		agg.RunCycle(at(12))
	}

	snap := agg.CurrentKPIs()
	if snap.Queue.AverageLength != 6.0 {
		t.Errorf("expected average 6.0, got %v", snap.Queue.AverageLength)
	}
	if snap.Queue.MaxLength != 8 {
		t.Errorf("expected max 8, got %d", snap.Queue.MaxLength)
	}
}

func TestMaxQueueLengthMonotone(t *testing.T) {
	reader := &fakeReader{}
	agg := New(testConfig(), reader, nil, nil, nil)

	prev := 0
	for _, n := range []int{3, 9, 2, 7, 1, 0, 4} {
		reader.set(models.RoleQueue, n, false)
		agg.RunCycle(at(12))
		max := agg.CurrentKPIs().Queue.MaxLength
		if max < prev {
			t.Fatalf("max decreased from %d to %d", prev, max)
		}
		prev = max
	}
	if prev != 9 {
		t.Errorf("expected final max 9, got %d", prev)
	}
}

func TestAlertRefiresEveryCycleWhileHeld(t *testing.T) {
	reader := &fakeReader{}
	rec := &fakeRecorder{}
	agg := New(testConfig(), reader, rec, nil, nil)

	reader.set(models.RoleQueue, 12, false) // threshold is 10
	reader.set(models.RoleStaff, 5, false)  // staff fine, no second alert

	for i := 0; i < 4; i++ {
		agg.RunCycle(at(12))
	}

	snap := agg.CurrentKPIs()
	var queueAlerts int
	for _, a := range snap.Operational.Alerts {
		if a.Type != "queue_alert" {
			t.Errorf("unexpected alert type %s", a.Type)
			continue
		}
		if a.Severity != models.SeverityHigh {
			t.Errorf("queue alert severity %s, expected high", a.Severity)
		}
		queueAlerts++
	}
	if queueAlerts != 4 {
		t.Errorf("expected exactly one high alert per cycle (4 total), got %d", queueAlerts)
	}
	if len(rec.alerts) != 4 {
		t.Errorf("expected 4 alerts persisted, got %d", len(rec.alerts))
	}

	// Condition clears: no further alerts.
	reader.set(models.RoleQueue, 2, false)
	agg.RunCycle(at(12))
	if n := len(agg.CurrentKPIs().Operational.Alerts); n != 4 {
		t.Errorf("expected alert list to stay at 4 after condition cleared, got %d", n)
	}
}

func TestAlertListCappedFIFO(t *testing.T) {
	reader := &fakeReader{}
	agg := New(testConfig(), reader, nil, nil, nil)

	reader.set(models.RoleQueue, 99, false)
	reader.set(models.RoleStaff, 5, false)

	// 120 cycles of one alert each: only the last 100 survive.
	var firstRetained time.Time
	for i := 0; i < 120; i++ {
		now := at(10).Add(time.Duration(i) * time.Second)
		if i == 20 {
			firstRetained = now
		}
		agg.RunCycle(now)
	}

	alerts := agg.CurrentKPIs().Operational.Alerts
	if len(alerts) != 100 {
		t.Fatalf("expected alert list capped at 100, got %d", len(alerts))
	}
	if !alerts[0].Timestamp.Equal(firstRetained) {
		t.Errorf("oldest alerts were not the ones dropped: first retained at %v, expected %v",
			alerts[0].Timestamp, firstRetained)
	}
}

func TestServiceEfficiencyHeldThroughStaffingGap(t *testing.T) {
	reader := &fakeReader{}
	agg := New(testConfig(), reader, nil, nil, nil)

	reader.set(models.RoleQueue, 6, false)
	reader.set(models.RoleStaff, 3, false)
	agg.RunCycle(at(12))

	before := agg.CurrentKPIs().Operational.ServiceEfficiency
	if before != 2.0 {
		t.Fatalf("expected efficiency 2.0, got %v", before)
	}

	// Staff walks out of frame: efficiency must keep its last value,
	// not zero out and not go NaN.
	reader.set(models.RoleStaff, 0, false)
	agg.RunCycle(at(12))

	after := agg.CurrentKPIs().Operational.ServiceEfficiency
	if after != before {
		t.Errorf("efficiency changed across staffing gap: %v -> %v", before, after)
	}
}

func TestPeakHourTieBreaksLow(t *testing.T) {
	reader := &fakeReader{}
	agg := New(testConfig(), reader, nil, nil, nil)

	// Entries are positive deltas of the gate count. Same rise at hour
	// 14 and hour 9: the tie must resolve to 9.
	reader.set(models.RolePerson, 0, false)
	agg.RunCycle(at(14))
	reader.set(models.RolePerson, 5, false)
	agg.RunCycle(at(14))

	reader.set(models.RolePerson, 0, false)
	agg.RunCycle(at(9))
	reader.set(models.RolePerson, 5, false)
	agg.RunCycle(at(9))

	snap := agg.CurrentKPIs()
	if snap.CustomerFlow.PeakHour != 9 {
		t.Errorf("expected peak hour 9 on tie, got %d", snap.CustomerFlow.PeakHour)
	}
	if snap.CustomerFlow.TotalEntries != 10 {
		t.Errorf("expected 10 total entries, got %d", snap.CustomerFlow.TotalEntries)
	}
}

func TestPeakHourEmptyHistogram(t *testing.T) {
	reader := &fakeReader{}
	agg := New(testConfig(), reader, nil, nil, nil)
	agg.RunCycle(at(12))

	if h := agg.CurrentKPIs().CustomerFlow.PeakHour; h != -1 {
		t.Errorf("expected -1 for empty histogram, got %d", h)
	}
}

func TestAbsentRoleLeavesFamilyUntouched(t *testing.T) {
	reader := &fakeReader{}
	agg := New(testConfig(), reader, nil, nil, nil)

	reader.set(models.RoleQueue, 4, false)
	agg.RunCycle(at(12))

	// Queue drops out (camera offline): its metrics stay where they were.
	reader.clear(models.RoleQueue)
	reader.set(models.RoleStaff, 2, false)
	agg.RunCycle(at(12))

	snap := agg.CurrentKPIs()
	if snap.Queue.CurrentLength != 4 {
		t.Errorf("queue length changed while role absent: %d", snap.Queue.CurrentLength)
	}
	if snap.Staff.CurrentCount != 2 {
		t.Errorf("staff update lost: %d", snap.Staff.CurrentCount)
	}
}

func TestHandWashRisingEdge(t *testing.T) {
	reader := &fakeReader{}
	rec := &fakeRecorder{}
	agg := New(testConfig(), reader, rec, nil, nil)

	// Occupied wash zone across three cycles is one event, not three.
	reader.set(models.RoleStaff, 2, true)
	agg.RunCycle(at(12))
	agg.RunCycle(at(12))
	agg.RunCycle(at(12))

	reader.set(models.RoleStaff, 2, false)
	agg.RunCycle(at(12))

	reader.set(models.RoleStaff, 2, true)
	agg.RunCycle(at(12))

	snap := agg.CurrentKPIs()
	if snap.Staff.HandWashEvents != 2 {
		t.Errorf("expected 2 hand-wash events, got %d", snap.Staff.HandWashEvents)
	}

	var washEvents int
	for _, e := range rec.events {
		if e.Type == "hand_washing" {
			washEvents++
		}
	}
	if washEvents != 2 {
		t.Errorf("expected 2 hand-wash event rows, got %d", washEvents)
	}
}

func TestFlushFailureLeavesStateIntact(t *testing.T) {
	reader := &fakeReader{}
	rec := &fakeRecorder{failAll: true}
	agg := New(testConfig(), reader, rec, nil, nil)

	reader.set(models.RoleQueue, 7, false)
	agg.RunCycle(at(12))
	agg.Flush(context.Background(), at(12))

	snap := agg.CurrentKPIs()
	if snap.Queue.CurrentLength != 7 || snap.Queue.MaxLength != 7 {
		t.Errorf("in-memory state disturbed by failed flush: %+v", snap.Queue)
	}
}

func TestStopAndRestartKeepsState(t *testing.T) {
	reader := &fakeReader{}
	agg := New(testConfig(), reader, nil, nil, nil)

	reader.set(models.RoleQueue, 8, false)
	agg.Start()
	agg.Start() // second Start is a no-op

	deadline := time.After(2 * time.Second)
	for agg.CurrentKPIs().Queue.MaxLength != 8 {
		select {
		case <-deadline:
			t.Fatal("aggregator never processed a tick")
		case <-time.After(time.Millisecond):
		}
	}

	agg.Stop()
	agg.Stop() // idempotent

	kept := agg.CurrentKPIs()
	if kept.Queue.MaxLength != 8 {
		t.Fatalf("state lost on stop: %+v", kept.Queue)
	}

	// Restart resumes with the same state; max stays monotone.
	reader.set(models.RoleQueue, 3, false)
	agg.Start()
	defer agg.Stop()

	deadline = time.After(2 * time.Second)
	for agg.CurrentKPIs().Queue.CurrentLength != 3 {
		select {
		case <-deadline:
			t.Fatal("aggregator did not resume after restart")
		case <-time.After(time.Millisecond):
		}
	}
	if agg.CurrentKPIs().Queue.MaxLength != 8 {
		t.Errorf("max reset across restart: %d", agg.CurrentKPIs().Queue.MaxLength)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	reader := &fakeReader{}
	agg := New(testConfig(), reader, nil, nil, nil)

	reader.set(models.RoleQueue, 20, false)
	agg.RunCycle(at(12))

	snap := agg.CurrentKPIs()
	if len(snap.Operational.Alerts) == 0 {
		t.Fatal("expected at least one alert")
	}
	snap.Operational.Alerts[0].Message = "tampered"
	snap.Operational.PeakHours = append(snap.Operational.PeakHours, 99)

	fresh := agg.CurrentKPIs()
	if fresh.Operational.Alerts[0].Message == "tampered" {
		t.Error("caller mutation leaked into aggregator state")
	}
}
