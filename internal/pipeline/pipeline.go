// Package pipeline wires cameras, workers and the KPI aggregator together
// and owns their shared lifecycle.
package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/visionops/restaurant-analytics/internal/capture"
	"github.com/visionops/restaurant-analytics/internal/config"
	"github.com/visionops/restaurant-analytics/internal/detstore"
	"github.com/visionops/restaurant-analytics/internal/kpi"
	"github.com/visionops/restaurant-analytics/internal/models"
	"github.com/visionops/restaurant-analytics/internal/worker"
)

const cleanupInterval = time.Hour

// Janitor prunes persisted rows past their retention horizon.
type Janitor interface {
	Cleanup(ctx context.Context, retentionDays, alertRetentionDays int) error
}

// Pipeline runs one worker per configured camera plus the aggregator.
// A camera whose source cannot be opened is skipped with a log line;
// the remaining streams run unaffected.
type Pipeline struct {
	cfg        *config.Config
	store      *detstore.Store
	agg        *kpi.Aggregator
	detector   worker.Detector
	heartbeats worker.HeartbeatSender
	janitor    Janitor

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(cfg *config.Config, detector worker.Detector, recorder kpi.Recorder,
	alertPub kpi.AlertPublisher, cache kpi.SnapshotCacher,
	heartbeats worker.HeartbeatSender, janitor Janitor) *Pipeline {

	store := detstore.New()
	agg := kpi.New(kpi.Config{
		UpdateInterval: cfg.UpdateInterval(),
		SaveInterval:   cfg.SaveInterval(),
		HistorySize:    cfg.Analytics.HistorySize,
		MaxQueueLength: cfg.Analytics.MaxQueueLength,
		MinStaffCount:  cfg.Analytics.MinStaffCount,
		PeakHourFactor: cfg.Analytics.PeakHourFactor,
	}, store, recorder, alertPub, cache)

	return &Pipeline{
		cfg:        cfg,
		store:      store,
		agg:        agg,
		detector:   detector,
		heartbeats: heartbeats,
		janitor:    janitor,
	}
}

// Start opens every camera source and launches the workers and the
// aggregator. Calling Start on a running pipeline is a no-op.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true

	captureCfg := capture.Config{
		MinioEndpoint:  p.cfg.Minio.Endpoint,
		MinioAccessKey: p.cfg.Minio.AccessKey,
		MinioSecretKey: p.cfg.Minio.SecretKey,
	}

	started := 0
	for role, cam := range p.cfg.CamerasByRole() {
		source, err := capture.OpenWithFallback(ctx, captureCfg, cam.Source, cam.BackupSource)
		if err != nil {
			log.Printf("Pipeline: camera %s unavailable, skipping: %v", role, err)
			continue
		}

		w := worker.New(role, cam, source, p.detector, p.store, p.heartbeats,
			p.cfg.CycleDelay(), p.cfg.ReadRetryDelay())

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(ctx)
		}()
		started++
	}
	log.Printf("Pipeline: started %d of %d workers", started, len(p.cfg.Cameras))

	p.agg.Start()

	if p.janitor != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.runJanitor(ctx)
		}()
	}
}

// Stop cancels every worker and waits up to the configured stop timeout.
// Workers that fail to exit in time are abandoned with a log line.
// Idempotent.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.cancel()

	p.agg.Stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Pipeline: all workers stopped")
	case <-time.After(p.cfg.StopTimeout()):
		log.Printf("Pipeline: stop timed out after %v, abandoning remaining workers", p.cfg.StopTimeout())
	}
}

func (p *Pipeline) runJanitor(ctx context.Context) {
	t := time.NewTicker(cleanupInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			err := p.janitor.Cleanup(ctx,
				p.cfg.Analytics.RetentionDays, p.cfg.Analytics.AlertRetentionDays)
			if err != nil {
				log.Printf("Pipeline: retention cleanup failed: %v", err)
			}
		}
	}
}

// CurrentKPIs returns a copy of the live KPI snapshot.
func (p *Pipeline) CurrentKPIs() kpi.Snapshot {
	return p.agg.CurrentKPIs()
}

// Historical returns ring samples of one metric from the last N hours.
func (p *Pipeline) Historical(metric string, hours int) []kpi.TimedSample {
	return p.agg.Historical(metric, hours)
}

// LatestFrames returns a copy of the most recent frame per role.
func (p *Pipeline) LatestFrames() map[models.Role]capture.Frame {
	return p.store.LatestFrames()
}
