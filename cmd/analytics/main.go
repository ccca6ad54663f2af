package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/visionops/restaurant-analytics/internal/cache"
	"github.com/visionops/restaurant-analytics/internal/config"
	"github.com/visionops/restaurant-analytics/internal/database"
	"github.com/visionops/restaurant-analytics/internal/inference"
	"github.com/visionops/restaurant-analytics/internal/kafka"
	"github.com/visionops/restaurant-analytics/internal/kpi"
	"github.com/visionops/restaurant-analytics/internal/models"
	"github.com/visionops/restaurant-analytics/internal/pipeline"
	"github.com/visionops/restaurant-analytics/internal/worker"
)

// alertSinks fans one alert out to every configured destination.
type alertSinks []kpi.AlertPublisher

func (s alertSinks) SendAlert(a models.Alert) error {
	var firstErr error
	for _, sink := range s {
		if err := sink.SendAlert(a); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Init(); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	if stats, err := db.Stats(context.Background()); err == nil {
		log.Printf("Database: %v", stats)
	}

	var sinks alertSinks
	var heartbeats worker.HeartbeatSender
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic, cfg.Kafka.HeartbeatTopic)
		if err != nil {
			log.Fatalf("Failed to create Kafka producer: %v", err)
		}
		defer producer.Close()
		sinks = append(sinks, producer)
		heartbeats = producer
	}

	var snapCache kpi.SnapshotCacher
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, 2*cfg.SaveInterval())
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		snapCache = redisCache
		sinks = append(sinks, redisCache)
	}

	var alertPub kpi.AlertPublisher
	if len(sinks) > 0 {
		alertPub = sinks
	}

	detector := inference.NewClient(cfg.Inference.Endpoint, cfg.InferenceTimeout())

	p := pipeline.New(cfg, detector, db, alertPub, snapCache, heartbeats, db)
	p.Start()

	if cfg.Metrics.Addr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, nil); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	p.Stop()
}
