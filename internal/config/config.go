package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/visionops/restaurant-analytics/internal/models"
)

// Camera configures one stream. Source addresses are s3://bucket/prefix
// (recorded frames) or an http(s) MJPEG endpoint.
type Camera struct {
	Source              string        `yaml:"source"`
	BackupSource        string        `yaml:"backup_source"`
	Classes             []int         `yaml:"classes"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	Zones               []models.Zone `yaml:"zones"`

	// Staff role only: which declared zones carry the work-area and
	// wash-station semantics.
	WorkZone string `yaml:"work_zone"`
	WashZone string `yaml:"wash_zone"`
}

// Config is the full application configuration: YAML file with environment
// variable overrides.
type Config struct {
	Postgres struct {
		DSN string `yaml:"dsn" env:"DATABASE_DSN"`
	} `yaml:"postgres"`

	Minio struct {
		Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	} `yaml:"minio"`

	Kafka struct {
		Brokers        []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		AlertTopic     string   `yaml:"alert_topic" env:"ALERT_TOPIC"`
		HeartbeatTopic string   `yaml:"heartbeat_topic" env:"HEARTBEAT_TOPIC"`
	} `yaml:"kafka"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	Inference struct {
		Endpoint       string `yaml:"endpoint" env:"INFERENCE_ENDPOINT"`
		TimeoutSeconds int    `yaml:"timeout_seconds" env:"INFERENCE_TIMEOUT_SECONDS"`
	} `yaml:"inference"`

	Metrics struct {
		Addr string `yaml:"addr" env:"METRICS_ADDR"`
	} `yaml:"metrics"`

	Cameras map[string]Camera `yaml:"cameras"`

	Analytics struct {
		UpdateIntervalSeconds int     `yaml:"update_interval_seconds" env:"KPI_UPDATE_INTERVAL_SECONDS"`
		SaveIntervalSeconds   int     `yaml:"save_interval_seconds" env:"KPI_SAVE_INTERVAL_SECONDS"`
		HistorySize           int     `yaml:"history_size"`
		MaxQueueLength        int     `yaml:"max_queue_length"`
		MinStaffCount         int     `yaml:"min_staff_count"`
		PeakHourFactor        float64 `yaml:"peak_hour_factor"`
		RetentionDays         int     `yaml:"retention_days"`
		AlertRetentionDays    int     `yaml:"alert_retention_days"`
	} `yaml:"analytics"`

	Worker struct {
		CycleDelayMS     int `yaml:"cycle_delay_ms"`
		ReadRetryDelayMS int `yaml:"read_retry_delay_ms"`
		StopTimeoutMS    int `yaml:"stop_timeout_ms"`
	} `yaml:"worker"`
}

// Load reads the YAML file, applies environment overrides, fills defaults
// and validates. A malformed configuration is not retryable: callers are
// expected to treat an error here as fatal.
func Load(filename string) (*Config, error) {
	cfg := &Config{}

	if filename == "" {
		filename = "internal/config/local.yaml"
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Inference.TimeoutSeconds == 0 {
		c.Inference.TimeoutSeconds = 30
	}
	if c.Analytics.UpdateIntervalSeconds == 0 {
		c.Analytics.UpdateIntervalSeconds = 5
	}
	if c.Analytics.SaveIntervalSeconds == 0 {
		c.Analytics.SaveIntervalSeconds = 60
	}
	if c.Analytics.HistorySize == 0 {
		c.Analytics.HistorySize = 100
	}
	if c.Analytics.MaxQueueLength == 0 {
		c.Analytics.MaxQueueLength = 10
	}
	if c.Analytics.MinStaffCount == 0 {
		c.Analytics.MinStaffCount = 2
	}
	if c.Analytics.PeakHourFactor == 0 {
		c.Analytics.PeakHourFactor = 1.5
	}
	if c.Analytics.RetentionDays == 0 {
		c.Analytics.RetentionDays = 30
	}
	if c.Analytics.AlertRetentionDays == 0 {
		c.Analytics.AlertRetentionDays = 90
	}
	if c.Worker.CycleDelayMS == 0 {
		c.Worker.CycleDelayMS = 100
	}
	if c.Worker.ReadRetryDelayMS == 0 {
		c.Worker.ReadRetryDelayMS = 1000
	}
	if c.Worker.StopTimeoutMS == 0 {
		c.Worker.StopTimeoutMS = 5000
	}
}

// Validate enforces the configuration contract. Violations here are
// programming errors in the deployment, surfaced at startup.
func (c *Config) Validate() error {
	if c.Inference.Endpoint == "" {
		return fmt.Errorf("config: inference endpoint is required")
	}
	if len(c.Cameras) == 0 {
		return fmt.Errorf("config: at least one camera is required")
	}

	for name, cam := range c.Cameras {
		role := models.Role(name)
		if !role.Valid() {
			return fmt.Errorf("config: unknown camera role %q", name)
		}
		if cam.Source == "" {
			return fmt.Errorf("config: camera %q has no source", name)
		}
		if cam.ConfidenceThreshold < 0 || cam.ConfidenceThreshold > 1 {
			return fmt.Errorf("config: camera %q confidence threshold %v out of [0,1]",
				name, cam.ConfidenceThreshold)
		}

		switch role {
		case models.RoleQueue:
			if len(cam.Zones) == 0 {
				return fmt.Errorf("config: queue camera needs at least one zone")
			}
		case models.RoleStaff:
			if cam.WorkZone == "" || cam.WashZone == "" {
				return fmt.Errorf("config: staff camera needs work_zone and wash_zone")
			}
			if !hasZone(cam.Zones, cam.WorkZone) {
				return fmt.Errorf("config: staff work_zone %q not among declared zones", cam.WorkZone)
			}
			if !hasZone(cam.Zones, cam.WashZone) {
				return fmt.Errorf("config: staff wash_zone %q not among declared zones", cam.WashZone)
			}
		}
	}
	return nil
}

func hasZone(zs []models.Zone, name string) bool {
	for _, z := range zs {
		if z.Name == name {
			return true
		}
	}
	return false
}

// Role-keyed view of the camera map. Validate guarantees the keys are legal.
func (c *Config) CamerasByRole() map[models.Role]Camera {
	out := make(map[models.Role]Camera, len(c.Cameras))
	for name, cam := range c.Cameras {
		out[models.Role(name)] = cam
	}
	return out
}

func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Analytics.UpdateIntervalSeconds) * time.Second
}

func (c *Config) SaveInterval() time.Duration {
	return time.Duration(c.Analytics.SaveIntervalSeconds) * time.Second
}

func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutSeconds) * time.Second
}

func (c *Config) CycleDelay() time.Duration {
	return time.Duration(c.Worker.CycleDelayMS) * time.Millisecond
}

func (c *Config) ReadRetryDelay() time.Duration {
	return time.Duration(c.Worker.ReadRetryDelayMS) * time.Millisecond
}

func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.Worker.StopTimeoutMS) * time.Millisecond
}
