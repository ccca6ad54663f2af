package pipeline

import (
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/visionops/restaurant-analytics/internal/config"
	"github.com/visionops/restaurant-analytics/internal/models"
)

type staticDetector struct {
	dets []models.Detection
}

func (d staticDetector) Infer(_ context.Context, _ []byte) ([]models.Detection, error) {
	return d.dets, nil
}

// mjpegServer streams small JPEG-ish parts until the client disconnects.
func mjpegServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
		w.WriteHeader(http.StatusOK)

		for i := 0; ; i++ {
			pw, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"image/jpeg"}})
			if err != nil {
				return
			}
			pw.Write([]byte{0xff, 0xd8, byte(i)})
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			select {
			case <-r.Context().Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(cameras map[string]config.Camera) *config.Config {
	cfg := &config.Config{Cameras: cameras}
	cfg.Worker.CycleDelayMS = 1
	cfg.Worker.ReadRetryDelayMS = 10
	cfg.Worker.StopTimeoutMS = 3000
	cfg.Analytics.UpdateIntervalSeconds = 1
	cfg.Analytics.SaveIntervalSeconds = 60
	cfg.Analytics.HistorySize = 10
	cfg.Analytics.MaxQueueLength = 10
	cfg.Analytics.MinStaffCount = 2
	cfg.Analytics.PeakHourFactor = 1.5
	return cfg
}

func waitForFrame(t *testing.T, p *Pipeline, role models.Role) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := p.LatestFrames()[role]; ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no frame for role %s within deadline", role)
}

func TestPipelineSkipsUnopenableCamera(t *testing.T) {
	srv := mjpegServer(t)

	cfg := testConfig(map[string]config.Camera{
		"person":  {Source: srv.URL, Classes: []int{0}, ConfidenceThreshold: 0.5},
		"vehicle": {Source: "rtsp://nope"},
	})

	p := New(cfg, staticDetector{}, nil, nil, nil, nil, nil)
	p.Start()
	defer p.Stop()

	waitForFrame(t, p, models.RolePerson)

	if _, ok := p.LatestFrames()[models.RoleVehicle]; ok {
		t.Fatal("frame published for camera that should have been skipped")
	}
}

func TestPipelineFallsBackToBackupSource(t *testing.T) {
	srv := mjpegServer(t)

	cfg := testConfig(map[string]config.Camera{
		"person": {
			Source:              "rtsp://nope",
			BackupSource:        srv.URL,
			Classes:             []int{0},
			ConfidenceThreshold: 0.5,
		},
	})

	p := New(cfg, staticDetector{}, nil, nil, nil, nil, nil)
	p.Start()
	defer p.Stop()

	waitForFrame(t, p, models.RolePerson)
}

func TestPipelineStopIsIdempotent(t *testing.T) {
	cfg := testConfig(map[string]config.Camera{
		"person": {Source: "rtsp://nope"},
	})

	p := New(cfg, staticDetector{}, nil, nil, nil, nil, nil)

	p.Stop() // before Start: no-op
	p.Start()
	p.Start() // second Start: no-op
	p.Stop()
	p.Stop() // second Stop: no-op
}
