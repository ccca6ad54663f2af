// Package worker runs one capture/inference/publish loop per camera stream.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/visionops/restaurant-analytics/internal/capture"
	"github.com/visionops/restaurant-analytics/internal/config"
	"github.com/visionops/restaurant-analytics/internal/detstore"
	"github.com/visionops/restaurant-analytics/internal/metrics"
	"github.com/visionops/restaurant-analytics/internal/models"
	"github.com/visionops/restaurant-analytics/internal/zones"
)

const heartbeatInterval = 5 * time.Second

// Detector is the opaque inference capability.
type Detector interface {
	Infer(ctx context.Context, frame []byte) ([]models.Detection, error)
}

// HeartbeatSender publishes worker liveness downstream. May be absent.
type HeartbeatSender interface {
	SendHeartbeat(hb models.Heartbeat) error
}

// Worker owns one video source for the lifetime of its Run loop. Read
// failures are retried forever; the previous snapshot stays visible while
// the source is down. Failures never cross to sibling workers.
type Worker struct {
	role       models.Role
	cam        config.Camera
	source     capture.Source
	detector   Detector
	store      *detstore.Store
	heartbeats HeartbeatSender

	cycleDelay     time.Duration
	readRetryDelay time.Duration

	frames int64
}

func New(role models.Role, cam config.Camera, source capture.Source, detector Detector,
	store *detstore.Store, heartbeats HeartbeatSender,
	cycleDelay, readRetryDelay time.Duration) *Worker {

	return &Worker{
		role:           role,
		cam:            cam,
		source:         source,
		detector:       detector,
		store:          store,
		heartbeats:     heartbeats,
		cycleDelay:     cycleDelay,
		readRetryDelay: readRetryDelay,
	}
}

func (w *Worker) Role() models.Role { return w.role }

// Run processes the stream until ctx is cancelled, then releases the source.
func (w *Worker) Run(ctx context.Context) {
	defer w.source.Close()
	log.Printf("Worker[%s]: started", w.role)

	hb := time.NewTicker(heartbeatInterval)
	defer hb.Stop()

	for {
		if ctx.Err() != nil {
			log.Printf("Worker[%s]: stopped after %d frames", w.role, w.frames)
			return
		}

		frame, err := w.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("Worker[%s]: stopped after %d frames", w.role, w.frames)
				return
			}
			log.Printf("Worker[%s]: frame read failed: %v", w.role, err)
			metrics.FrameReadFailures.WithLabelValues(string(w.role)).Inc()
			if !sleep(ctx, w.readRetryDelay) {
				return
			}
			continue
		}

		w.frames++
		w.store.PublishFrame(w.role, frame)

		start := time.Now()
		dets, err := w.detector.Infer(ctx, frame.Data)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Worker[%s]: inference failed: %v", w.role, err)
			metrics.InferenceFailures.WithLabelValues(string(w.role)).Inc()
			if !sleep(ctx, w.readRetryDelay) {
				return
			}
			continue
		}
		metrics.InferenceLatency.WithLabelValues(string(w.role)).Observe(time.Since(start).Seconds())

		w.store.Publish(w.role, BuildSnapshot(w.role, w.cam, dets, frame.CapturedAt))
		metrics.FramesProcessed.WithLabelValues(string(w.role)).Inc()

		select {
		case <-hb.C:
			w.sendHeartbeat()
		default:
		}

		if !sleep(ctx, w.cycleDelay) {
			return
		}
	}
}

func (w *Worker) sendHeartbeat() {
	if w.heartbeats == nil {
		return
	}
	err := w.heartbeats.SendHeartbeat(models.Heartbeat{
		Role:      w.role,
		Frames:    w.frames,
		TimeStamp: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("Worker[%s]: heartbeat send failed: %v", w.role, err)
	}
}

// BuildSnapshot filters raw detections by the camera's class whitelist and
// confidence threshold, applies zone classification where the role needs it
// and computes the role aggregate.
func BuildSnapshot(role models.Role, cam config.Camera, dets []models.Detection, at time.Time) models.Snapshot {
	kept := make([]models.Detection, 0, len(dets))
	for _, d := range dets {
		if !classAllowed(cam.Classes, d.ClassID) {
			continue
		}
		if d.Confidence < cam.ConfidenceThreshold {
			continue
		}
		kept = append(kept, d)
	}

	snap := models.Snapshot{Role: role, CapturedAt: at}

	switch role {
	case models.RoleVehicle, models.RolePerson:
		snap.Detections = kept
		snap.Count = len(kept)

	case models.RoleQueue:
		// Only persons inside a declared queue zone count; everyone
		// else in frame is just passing by.
		inZone := make([]models.Detection, 0, len(kept))
		for _, d := range kept {
			name, ok := zones.Classify(d.Center, cam.Zones)
			if !ok {
				continue
			}
			d.Zone = name
			inZone = append(inZone, d)
		}
		snap.Detections = inZone
		snap.Count = len(inZone)

	case models.RoleStaff:
		for i, d := range kept {
			name, ok := zones.Classify(d.Center, cam.Zones)
			if !ok {
				continue
			}
			kept[i].Zone = name
			switch name {
			case cam.WorkZone:
				snap.Count++
			case cam.WashZone:
				snap.HandWash = true
			}
		}
		snap.Detections = kept
	}

	return snap
}

func classAllowed(whitelist []int, classID int) bool {
	for _, c := range whitelist {
		if c == classID {
			return true
		}
	}
	return false
}

// sleep waits for d or until ctx is done; false means cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
